package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	sc "github.com/dmitrijs2005/gophstat/internal/server/config"
)

var (
	loadDefaultAWSConfig  = config.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}
	archiveClock = time.Now
)

// Archiver keeps a copy of an accepted upload.
type Archiver interface {
	Archive(ctx context.Context, owner, filename string, body io.ReadSeeker) (string, error)
}

// NopArchiver discards uploads.
type NopArchiver struct{}

func (NopArchiver) Archive(context.Context, string, string, io.ReadSeeker) (string, error) {
	return "", nil
}

// S3Archiver puts uploads into an S3-compatible bucket.
type S3Archiver struct {
	client *s3.Client
	bucket string
}

// NewArchiver returns an S3Archiver for cfg, or NopArchiver when no bucket
// is configured.
func NewArchiver(ctx context.Context, cfg *sc.Config) (Archiver, error) {
	if cfg.S3Bucket == "" {
		return NopArchiver{}, nil
	}

	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3RootUser,
			cfg.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Archiver{client: client, bucket: cfg.S3Bucket}, nil
}

// ArchiveKey builds the object key for an upload owned by owner at t.
func ArchiveKey(owner string, t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("uploads/%s/%04d/%02d/%02d/%v.csv", owner, t.Year(), int(t.Month()), t.Day(), uuid.New())
}

// Archive rewinds body and stores it under a fresh key, which it returns.
func (a *S3Archiver) Archive(ctx context.Context, owner, filename string, body io.ReadSeeker) (string, error) {
	if _, err := body.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind upload: %w", err)
	}

	key := ArchiveKey(owner, archiveClock())
	in := &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String("text/csv"),
		Metadata:    map[string]string{"filename": filename, "owner": owner},
	}
	if _, err := putObject(a.client, ctx, in); err != nil {
		return "", fmt.Errorf("put %s/%s: %w", a.bucket, key, err)
	}
	return key, nil
}

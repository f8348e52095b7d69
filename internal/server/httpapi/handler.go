// Package httpapi exposes the auth and statistics services over HTTP
// using gin. Every error body has the shape {"detail": "..."}.
package httpapi

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/gophstat/internal/common"
	"github.com/dmitrijs2005/gophstat/internal/logging"
	"github.com/dmitrijs2005/gophstat/internal/server/models"
	"github.com/dmitrijs2005/gophstat/internal/server/services"
)

// multipartOverhead is the slack allowed on top of the file ceiling for
// boundaries and part headers.
const multipartOverhead = 64 << 10

const uploadField = "upload_file"

// Authenticator issues tokens for valid credentials.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*services.TokenResponse, error)
}

// Authorizer resolves an Authorization header value to the caller.
type Authorizer interface {
	Resolve(ctx context.Context, authorization string) (*models.Principal, error)
}

// Aggregator computes per-column statistics of an uploaded CSV.
type Aggregator interface {
	Aggregate(ctx context.Context, src io.ReadSeeker) (services.Statistics, error)
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handler serves the public endpoints.
type Handler struct {
	authn     Authenticator
	authz     Authorizer
	stats     Aggregator
	archiver  services.Archiver
	db        Pinger
	logger    logging.Logger
	maxUpload int64
}

// Option customizes a Handler.
type Option func(*Handler)

// WithArchiver keeps a copy of every upload that aggregates successfully.
func WithArchiver(a services.Archiver) Option {
	return func(h *Handler) { h.archiver = a }
}

// WithPinger enables the database check behind /healthz.
func WithPinger(p Pinger) Option {
	return func(h *Handler) { h.db = p }
}

// WithMaxUpload overrides services.MaxUploadSize for the request body cap.
func WithMaxUpload(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxUpload = n
		}
	}
}

// NewHandler builds a Handler; uploads are not archived unless WithArchiver is given.
func NewHandler(l logging.Logger, authn Authenticator, authz Authorizer, stats Aggregator, opts ...Option) *Handler {
	h := &Handler{
		authn:     authn,
		authz:     authz,
		stats:     stats,
		archiver:  services.NopArchiver{},
		logger:    l.With("module", "httpapi"),
		maxUpload: services.MaxUploadSize,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Token handles POST /token with form fields username and password.
func (h *Handler) Token(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")
	if username == "" || password == "" {
		writeDetail(c, http.StatusUnprocessableEntity, "username and password are required")
		return
	}

	resp, err := h.authn.Login(c.Request.Context(), username, password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Me handles GET /users/me.
func (h *Handler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, principalFrom(c))
}

// Statistics handles POST /statistics with a multipart file in upload_file.
func (h *Handler) Statistics(c *gin.Context) {
	limit := h.maxUpload + multipartOverhead
	if c.Request.ContentLength > limit {
		h.writeError(c, common.ErrPayloadTooLarge)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	fh, err := c.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(c, common.ErrPayloadTooLarge)
			return
		}
		writeDetail(c, http.StatusBadRequest, uploadField+" is required")
		return
	}

	f, err := fh.Open()
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer f.Close()

	ctx := c.Request.Context()
	stats, err := h.stats.Aggregate(ctx, f)
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.archive(ctx, principalFrom(c), fh, f)
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) archive(ctx context.Context, p *models.Principal, fh *multipart.FileHeader, f multipart.File) {
	key, err := h.archiver.Archive(ctx, p.Username, fh.Filename, f)
	if err != nil {
		h.logger.Warn(ctx, "archive upload failed", "user", p.Username, "filename", fh.Filename, "error", err)
		return
	}
	if key != "" {
		h.logger.Debug(ctx, "upload archived", "user", p.Username, "key", key)
	}
}

// Health handles GET /healthz.
func (h *Handler) Health(c *gin.Context) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			h.logger.Error(ctx, "health check failed", "error", err)
			writeDetail(c, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

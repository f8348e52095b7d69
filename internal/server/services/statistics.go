package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gophstat/internal/common"
)

// MaxUploadSize is the default ceiling for files passed to Aggregate.
const MaxUploadSize int64 = 20 << 20

const ctxCheckEvery = 4096

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Number is a float64 that renders whole values as JSON integers.
type Number float64

func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if f == math.Trunc(f) && math.Abs(f) < 1<<63 {
		return strconv.AppendInt(nil, int64(f), 10), nil
	}
	return json.Marshal(f)
}

// ColumnStatistics holds the aggregates of one CSV column.
type ColumnStatistics struct {
	Name     string
	Sum      Number
	Variance Number
}

// Statistics is the per-column result of Aggregate, in header order.
type Statistics []ColumnStatistics

// MarshalJSON renders {"<column>": {"sum": ..., "variance": ...}, ...}
// keeping the header order.
func (s Statistics) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(col.Name)
		if err != nil {
			return nil, err
		}
		sum, err := col.Sum.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("column %q sum: %w", col.Name, err)
		}
		variance, err := col.Variance.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("column %q variance: %w", col.Name, err)
		}

		buf.Write(name)
		buf.WriteString(`:{"sum":`)
		buf.Write(sum)
		buf.WriteString(`,"variance":`)
		buf.Write(variance)
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Column returns the statistics for name.
func (s Statistics) Column(name string) (ColumnStatistics, bool) {
	for _, c := range s {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnStatistics{}, false
}

// StatisticsService computes per-column sum and variance of numeric CSV data.
type StatisticsService struct {
	maxSize int64
	sample  bool
}

// NewStatisticsService returns a service rejecting inputs above maxSize bytes.
// variance selects "population" (divide by n) or "sample" (divide by n-1).
func NewStatisticsService(maxSize int64, variance string) (*StatisticsService, error) {
	s := &StatisticsService{maxSize: maxSize}
	switch variance {
	case "population", "":
	case "sample":
		s.sample = true
	default:
		return nil, fmt.Errorf("unknown variance mode %q", variance)
	}
	if maxSize <= 0 {
		s.maxSize = MaxUploadSize
	}
	return s, nil
}

// Aggregate reads a CSV with a header row and numeric cells and returns
// sum and variance per column. It makes two passes over src, rewinding it
// before each. Any malformed input aborts with an error wrapping
// common.ErrInvalidFormat or common.ErrPayloadTooLarge; no partial
// result is returned.
func (s *StatisticsService) Aggregate(ctx context.Context, src io.ReadSeeker) (Statistics, error) {
	size, err := src.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("measure upload: %w", err)
	}
	if size > s.maxSize {
		return nil, fmt.Errorf("%w: file is %d bytes, limit is %d MiB", common.ErrPayloadTooLarge, size, s.maxSize>>20)
	}

	var (
		sums []float64
		n    int
	)
	header, err := s.scan(ctx, src, func(row []float64) {
		if sums == nil {
			sums = make([]float64, len(row))
		}
		for i, v := range row {
			sums[i] += v
		}
		n++
	})
	if err != nil {
		return nil, err
	}

	if n == 0 {
		return nil, fmt.Errorf("%w: no data rows", common.ErrInvalidFormat)
	}
	if s.sample && n < 2 {
		return nil, fmt.Errorf("%w: sample variance needs at least two data rows", common.ErrInvalidFormat)
	}

	means := make([]float64, len(sums))
	for i, sum := range sums {
		means[i] = sum / float64(n)
	}

	squares := make([]float64, len(sums))
	if _, err := s.scan(ctx, src, func(row []float64) {
		for i, v := range row {
			d := v - means[i]
			squares[i] += d * d
		}
	}); err != nil {
		return nil, err
	}

	denom := float64(n)
	if s.sample {
		denom--
	}

	out := make(Statistics, len(header))
	for i, name := range header {
		variance := squares[i] / denom
		if math.IsInf(sums[i], 0) || math.IsInf(variance, 0) {
			return nil, fmt.Errorf("%w: values in column %q overflow float64", common.ErrInvalidFormat, name)
		}
		out[i] = ColumnStatistics{Name: name, Sum: Number(sums[i]), Variance: Number(variance)}
	}
	return out, nil
}

// scan rewinds src, validates the header and feeds every parsed data row
// to fn. The row slice is reused between calls.
func (s *StatisticsService) scan(ctx context.Context, src io.ReadSeeker, fn func(row []float64)) ([]string, error) {
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind upload: %w", err)
	}

	br := bufio.NewReader(src)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	r := csv.NewReader(br)
	r.ReuseRecord = true

	rec, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: missing header row", common.ErrInvalidFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidFormat, err)
	}
	header, err := parseHeader(rec)
	if err != nil {
		return nil, err
	}

	row := make([]float64, len(header))
	for count := 1; ; count++ {
		if count%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return header, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrInvalidFormat, err)
		}

		for i, cell := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				line, _ := r.FieldPos(i)
				return nil, fmt.Errorf("%w: non-numeric value %q in column %q at line %d",
					common.ErrInvalidFormat, cell, header[i], line)
			}
			row[i] = v
		}
		fn(row)
	}
}

func parseHeader(rec []string) ([]string, error) {
	header := make([]string, len(rec))
	seen := make(map[string]struct{}, len(rec))
	for i, name := range rec {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("%w: column %d has an empty name", common.ErrInvalidFormat, i+1)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", common.ErrInvalidFormat, name)
		}
		seen[name] = struct{}{}
		header[i] = name
	}
	return header, nil
}

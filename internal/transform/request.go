package transform

import (
	"fmt"
	"math"
	"time"

	"github.com/disintegration/imaging"
)

// Request describes one resize/re-encode of a single source image.
type Request struct {
	RequestID         string   `json:"request_id"`
	Source            []byte   `json:"-"`
	Width             int      `json:"width"`
	Height            int      `json:"height"`
	KeepAspectRatio   bool     `json:"keep_aspect_ratio"`
	Format            string   `json:"format"`
	Quality           float64  `json:"quality"`
	CompressionFactor *float64 `json:"compression_factor,omitempty"`
	Watermark         bool     `json:"watermark"`
}

// Options returns the request without its source payload.
func (r Request) Options() Options {
	return Options{
		Width:             r.Width,
		Height:            r.Height,
		KeepAspectRatio:   r.KeepAspectRatio,
		Format:            r.Format,
		Quality:           r.Quality,
		CompressionFactor: r.CompressionFactor,
		Watermark:         r.Watermark,
	}
}

// Options is the serialisable part of a Request, used by job payloads and
// HTTP bodies that carry the source separately.
type Options struct {
	Width             int      `json:"width"`
	Height            int      `json:"height"`
	KeepAspectRatio   bool     `json:"keep_aspect_ratio"`
	Format            string   `json:"format"`
	Quality           float64  `json:"quality"`
	CompressionFactor *float64 `json:"compression_factor,omitempty"`
	Watermark         bool     `json:"watermark"`
}

func (o Options) Request(requestID string, source []byte) Request {
	return Request{
		RequestID:         requestID,
		Source:            source,
		Width:             o.Width,
		Height:            o.Height,
		KeepAspectRatio:   o.KeepAspectRatio,
		Format:            o.Format,
		Quality:           o.Quality,
		CompressionFactor: o.CompressionFactor,
		Watermark:         o.Watermark,
	}
}

// MaxDimension caps each requested axis. Larger targets cannot fit any
// sane pixel budget and would overflow the surface size arithmetic.
const MaxDimension = 1 << 20

func (r Request) Validate() error {
	if r.RequestID == "" {
		return newError(KindInvalid, r.RequestID, "request id is required")
	}
	if r.Width <= 0 || r.Height <= 0 {
		return newError(KindInvalid, r.RequestID, "target dimensions must be positive, got %dx%d", r.Width, r.Height)
	}
	if r.Width > MaxDimension || r.Height > MaxDimension {
		return newError(KindInvalid, r.RequestID, "target dimensions must be at most %d per axis, got %dx%d", MaxDimension, r.Width, r.Height)
	}
	if math.IsNaN(r.Quality) || r.Quality < 0 || r.Quality > 1 {
		return newError(KindInvalid, r.RequestID, "quality must be between 0 and 1, got %v", r.Quality)
	}
	if cf := r.CompressionFactor; cf != nil && (math.IsNaN(*cf) || math.IsInf(*cf, 0) || *cf < 0) {
		return newError(KindInvalid, r.RequestID, "compression factor must be a non-negative number, got %v", *cf)
	}
	if r.Format == "" {
		return newError(KindInvalid, r.RequestID, "output format is required")
	}
	return nil
}

// Result is the single terminal outcome of a Request. Success results
// carry the encoded bytes; failures carry Error and ErrorKind.
type Result struct {
	Success     bool          `json:"success"`
	RequestID   string        `json:"request_id"`
	Data        []byte        `json:"-"`
	ContentType string        `json:"content_type,omitempty"`
	Extension   string        `json:"extension,omitempty"`
	Width       int           `json:"width,omitempty"`
	Height      int           `json:"height,omitempty"`
	Size        int           `json:"size,omitempty"`
	Quality     float64       `json:"quality,omitempty"`
	Error       string        `json:"error,omitempty"`
	ErrorKind   ErrorKind     `json:"error_kind,omitempty"`
	Duration    time.Duration `json:"-"`
}

// Err rebuilds the failure as an *Error, or returns nil on success.
func (r Result) Err() error {
	if r.Success {
		return nil
	}
	return &Error{Kind: r.ErrorKind, RequestID: r.RequestID, Err: fmt.Errorf("%s", r.Error)}
}

func failure(requestID string, err error) Result {
	kind, ok := KindOf(err)
	if !ok {
		kind = KindContext
	}
	return Result{
		Success:   false,
		RequestID: requestID,
		Error:     err.Error(),
		ErrorKind: kind,
	}
}

type Config struct {
	QualityFloor    float64
	MaxSourcePixels int
	MaxOutputPixels int
	Filter          string
	Concurrency     int
}

func DefaultConfig() *Config {
	return &Config{
		QualityFloor:    DefaultQualityFloor,
		MaxSourcePixels: 100_000_000,
		MaxOutputPixels: 50_000_000,
		Filter:          "lanczos",
		Concurrency:     4,
	}
}

func (c *Config) Validate() error {
	if c.QualityFloor <= 0 || c.QualityFloor > 1 {
		return fmt.Errorf("invalid quality floor: %v", c.QualityFloor)
	}
	if c.MaxSourcePixels < 1 || c.MaxOutputPixels < 1 {
		return fmt.Errorf("invalid pixel limits: source %d, output %d", c.MaxSourcePixels, c.MaxOutputPixels)
	}
	if _, err := ParseFilter(c.Filter); err != nil {
		return err
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("invalid transform concurrency: %d", c.Concurrency)
	}
	return nil
}

// ParseFilter resolves a resampling filter by name. Nearest-neighbour and
// box filters are rejected.
func ParseFilter(name string) (imaging.ResampleFilter, error) {
	switch name {
	case "", "lanczos":
		return imaging.Lanczos, nil
	case "catmullrom", "bicubic":
		return imaging.CatmullRom, nil
	case "mitchell":
		return imaging.MitchellNetravali, nil
	case "linear", "bilinear":
		return imaging.Linear, nil
	default:
		return imaging.ResampleFilter{}, fmt.Errorf("unsupported resample filter: %q", name)
	}
}

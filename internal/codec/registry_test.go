package codec

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"io"
	"sync"
	"testing"
)

type stubEncoder struct {
	name        string
	contentType string
}

func (s *stubEncoder) Name() string        { return s.name }
func (s *stubEncoder) ContentType() string { return s.contentType }
func (s *stubEncoder) Extension() string   { return s.name }
func (s *stubEncoder) Encode(w io.Writer, img image.Image, quality float64) error {
	_, err := w.Write([]byte(s.name))
	return err
}

func TestRegistry_Register(t *testing.T) {
	tests := []struct {
		name      string
		encoders  []Encoder
		wantCount int
	}{
		{
			name:      "register single encoder",
			encoders:  []Encoder{&stubEncoder{"jpeg", JPEG}},
			wantCount: 1,
		},
		{
			name:      "register multiple encoders",
			encoders:  []Encoder{&stubEncoder{"jpeg", JPEG}, &stubEncoder{"png", PNG}},
			wantCount: 2,
		},
		{
			name:      "register overwrites same content type",
			encoders:  []Encoder{&stubEncoder{"jpeg", JPEG}, &stubEncoder{"jpeg2", JPEG}},
			wantCount: 1,
		},
		{
			name:      "empty registry",
			encoders:  nil,
			wantCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			for _, enc := range tt.encoders {
				r.Register(enc)
			}
			if got := len(r.List()); got != tt.wantCount {
				t.Errorf("List() returned %d encoders, want %d", got, tt.wantCount)
			}
		})
	}
}

func TestRegistry_GetByAlias(t *testing.T) {
	r := Default()

	tests := []struct {
		format string
		want   string
	}{
		{"jpg", JPEG},
		{"JPEG", JPEG},
		{"image/jpeg", JPEG},
		{"image/jpg", JPEG},
		{"png", PNG},
		{" image/webp ", WebP},
		{"webp", WebP},
		{"tif", TIFF},
		{"image/png; charset=binary", PNG},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			enc, ok := r.Get(tt.format)
			if !ok {
				t.Fatalf("Get(%q) not found", tt.format)
			}
			if enc.ContentType() != tt.want {
				t.Errorf("ContentType() = %q, want %q", enc.ContentType(), tt.want)
			}
		})
	}
}

func TestRegistry_GetOrError(t *testing.T) {
	r := Default()

	if _, err := r.GetOrError("image/avif"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("GetOrError(avif) error = %v, want ErrUnsupportedFormat", err)
	}
	if _, err := r.GetOrError("png"); err != nil {
		t.Errorf("GetOrError(png) unexpected error: %v", err)
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Register(NewPNGEncoder())
		}()
		go func() {
			defer wg.Done()
			_, _ = r.Get("png")
			_ = r.List()
		}()
	}
	wg.Wait()

	if len(r.List()) != 1 {
		t.Errorf("List() = %v, want one encoder", r.List())
	}
}

func TestEncoders_RoundTrip(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 32, 24))
	for y := 0; y < 24; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 8), G: uint8(y * 10), B: 128, A: 255})
		}
	}

	r := Default()
	for _, ct := range r.List() {
		t.Run(ct, func(t *testing.T) {
			enc, ok := r.Get(ct)
			if !ok {
				t.Fatalf("Get(%q) missing a listed type", ct)
			}
			var buf bytes.Buffer
			if err := enc.Encode(&buf, img, 0.8); err != nil {
				t.Fatalf("Encode() error: %v", err)
			}
			if buf.Len() == 0 {
				t.Fatal("Encode() produced no bytes")
			}
		})
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		quality float64
		want    int
	}{
		{0, 1},
		{0.1, 10},
		{0.856, 86},
		{1, 100},
		{1.5, 100},
	}
	for _, tt := range tests {
		if got := percent(tt.quality); got != tt.want {
			t.Errorf("percent(%v) = %d, want %d", tt.quality, got, tt.want)
		}
	}
}

package codec

import (
	"fmt"
	"image"
	"io"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

type imagingEncoder struct {
	name        string
	contentType string
	ext         string
	format      imaging.Format
	lossy       bool
}

func (e *imagingEncoder) Name() string        { return e.name }
func (e *imagingEncoder) ContentType() string { return e.contentType }
func (e *imagingEncoder) Extension() string   { return e.ext }

func (e *imagingEncoder) Encode(w io.Writer, img image.Image, quality float64) error {
	var opts []imaging.EncodeOption
	if e.lossy {
		opts = append(opts, imaging.JPEGQuality(percent(quality)))
	}
	if err := imaging.Encode(w, img, e.format, opts...); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrEncodeFailed, e.name, err)
	}
	return nil
}

func NewJPEGEncoder() Encoder {
	return &imagingEncoder{name: "jpeg", contentType: JPEG, ext: "jpg", format: imaging.JPEG, lossy: true}
}

func NewPNGEncoder() Encoder {
	return &imagingEncoder{name: "png", contentType: PNG, ext: "png", format: imaging.PNG}
}

func NewGIFEncoder() Encoder {
	return &imagingEncoder{name: "gif", contentType: GIF, ext: "gif", format: imaging.GIF}
}

func NewBMPEncoder() Encoder {
	return &imagingEncoder{name: "bmp", contentType: BMP, ext: "bmp", format: imaging.BMP}
}

func NewTIFFEncoder() Encoder {
	return &imagingEncoder{name: "tiff", contentType: TIFF, ext: "tiff", format: imaging.TIFF}
}

type webpEncoder struct{}

func NewWebPEncoder() Encoder { return webpEncoder{} }

func (webpEncoder) Name() string        { return "webp" }
func (webpEncoder) ContentType() string { return WebP }
func (webpEncoder) Extension() string   { return "webp" }

func (webpEncoder) Encode(w io.Writer, img image.Image, quality float64) error {
	if err := webp.Encode(w, img, &webp.Options{Quality: float32(percent(quality))}); err != nil {
		return fmt.Errorf("%w: webp: %v", ErrEncodeFailed, err)
	}
	return nil
}

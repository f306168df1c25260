package codec

import (
	"errors"
	"image"
	"io"
	"math"
	"strings"
)

var (
	ErrUnsupportedFormat = errors.New("codec: unsupported output format")
	ErrEncodeFailed      = errors.New("codec: encode failed")
)

const (
	JPEG = "image/jpeg"
	PNG  = "image/png"
	GIF  = "image/gif"
	BMP  = "image/bmp"
	TIFF = "image/tiff"
	WebP = "image/webp"
)

// Encoder writes an image in a single output format. Quality is the
// effective quality in [0,1]; lossless encoders ignore it.
type Encoder interface {
	Name() string
	ContentType() string
	Extension() string
	Encode(w io.Writer, img image.Image, quality float64) error
}

var aliases = map[string]string{
	"jpeg":       JPEG,
	"jpg":        JPEG,
	"image/jpg":  JPEG,
	"image/jpeg": JPEG,
	"png":        PNG,
	"image/png":  PNG,
	"gif":        GIF,
	"image/gif":  GIF,
	"bmp":        BMP,
	"image/bmp":  BMP,
	"tif":        TIFF,
	"tiff":       TIFF,
	"image/tiff": TIFF,
	"webp":       WebP,
	"image/webp": WebP,
}

// Normalize maps a short format name or MIME type to its canonical MIME
// type. Unknown formats are returned lower-cased and trimmed.
func Normalize(format string) string {
	f := strings.ToLower(strings.TrimSpace(format))
	if i := strings.IndexByte(f, ';'); i >= 0 {
		f = strings.TrimSpace(f[:i])
	}
	if mime, ok := aliases[f]; ok {
		return mime
	}
	return f
}

func percent(quality float64) int {
	q := int(math.Round(quality * 100))
	if q < 1 {
		return 1
	}
	if q > 100 {
		return 100
	}
	return q
}

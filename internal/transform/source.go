package transform

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/url"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var dataURIPrefix = []byte("data:")

// sourceBytes returns the encoded image bytes of src, unwrapping a data URI
// when src is one.
func sourceBytes(src []byte) ([]byte, error) {
	if len(src) < len(dataURIPrefix) || !bytes.EqualFold(src[:len(dataURIPrefix)], dataURIPrefix) {
		return src, nil
	}

	header, payload, ok := strings.Cut(string(src[len(dataURIPrefix):]), ",")
	if !ok {
		return nil, fmt.Errorf("malformed data uri: missing comma")
	}

	if strings.HasSuffix(strings.ToLower(header), ";base64") {
		payload = strings.Map(func(r rune) rune {
			switch r {
			case ' ', '\n', '\r', '\t':
				return -1
			}
			return r
		}, payload)
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		}
		if err != nil {
			return nil, fmt.Errorf("malformed data uri: %w", err)
		}
		return data, nil
	}

	data, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("malformed data uri: %w", err)
	}
	return []byte(data), nil
}

// decodeSource decodes src into a raster image, honouring EXIF orientation
// the way browsers do when drawing an <img>.
func decodeSource(src []byte, maxPixels int) (image.Image, string, error) {
	data, err := sourceBytes(src)
	if err != nil {
		return nil, "", err
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("empty source")
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, "", fmt.Errorf("invalid source dimensions %dx%d", cfg.Width, cfg.Height)
	}
	if maxPixels > 0 && cfg.Width*cfg.Height > maxPixels {
		return nil, "", &Error{
			Kind: KindContext,
			Err:  fmt.Errorf("source %dx%d exceeds the %d pixel limit", cfg.Width, cfg.Height, maxPixels),
		}
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", err
	}
	return img, format, nil
}

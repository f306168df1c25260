package transform

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

// createTestImage creates a gradient image so resampling has real content.
func createTestImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := img.PixOffset(x, y)
			img.Pix[i] = uint8(255 * x / width)
			img.Pix[i+1] = uint8(255 * y / height)
			img.Pix[i+2] = 128
			img.Pix[i+3] = 255
		}
	}
	return img
}

func createSolidImage(width, height int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
	return img
}

func encodeTestJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func encodeTestPNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func createTestJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	return encodeTestJPEG(t, createTestImage(width, height))
}

func decodeResult(t *testing.T, res Result) image.Image {
	t.Helper()
	img, _, err := image.Decode(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatalf("decode result: %v", err)
	}
	return img
}

// createCorruptedJPEG returns a JPEG header with no image data behind it.
func createCorruptedJPEG() []byte {
	return []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46, 0x49, 0x46}
}

func newTestTransformer(t *testing.T) *Transformer {
	t.Helper()
	tr, err := NewTransformer(nil, nil)
	if err != nil {
		t.Fatalf("NewTransformer() error: %v", err)
	}
	return tr
}

func ptr[T any](v T) *T {
	return &v
}

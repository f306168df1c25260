package transform

import (
	"fmt"
	"image"
	"sync"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
)

const (
	WatermarkLabel = "resize.cheap"

	watermarkPadding  = 10.0
	watermarkFontSize = 14.0
	watermarkGap      = 4.0
	watermarkShadow   = 1.0
	glyphSize         = 16.0
	glyphStroke       = 1.5

	// Below this scale the mark is unreadable and is left off.
	minWatermarkScale = 0.25
)

// glyphPath is a diagonal "resize" arrow inside a glyphSize square.
var glyphPath = [][2]float64{
	{14, 2},
	{14, 9},
	{11.5, 6.5},
	{4.5, 13.5},
	{2.5, 11.5},
	{9.5, 4.5},
	{7, 2},
}

var (
	watermarkFontOnce sync.Once
	watermarkFont     *opentype.Font
	watermarkFontErr  error
)

// newWatermarkFace returns a fresh face; font.Face values are not safe
// for concurrent use, the parsed font is.
func newWatermarkFace() (font.Face, error) {
	watermarkFontOnce.Do(func() {
		watermarkFont, watermarkFontErr = opentype.Parse(gobold.TTF)
	})
	if watermarkFontErr != nil {
		return nil, fmt.Errorf("parse watermark font: %w", watermarkFontErr)
	}
	return opentype.NewFace(watermarkFont, &opentype.FaceOptions{
		Size:    watermarkFontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// watermarkLayout places the glyph+label block on the canvas. X and Y are
// the block's top-left corner in canvas pixels; Width and Height are its
// unscaled size.
type watermarkLayout struct {
	X, Y          float64
	Scale         float64
	Width, Height float64
}

func (l watermarkLayout) Bounds() (x0, y0, x1, y1 float64) {
	return l.X, l.Y, l.X + l.Width*l.Scale, l.Y + l.Height*l.Scale
}

// layoutWatermark right-aligns a blockW x blockH mark against the
// bottom-right corner with fixed padding, shrinking it until it fits in the
// bottom-right quadrant. ok is false when it cannot fit legibly.
func layoutWatermark(canvasW, canvasH int, blockW, blockH float64) (watermarkLayout, bool) {
	if canvasW <= 0 || canvasH <= 0 || blockW <= 0 || blockH <= 0 {
		return watermarkLayout{}, false
	}

	availW := float64(canvasW)/2 - watermarkPadding
	availH := float64(canvasH)/2 - watermarkPadding
	scale := min(1, availW/blockW, availH/blockH)
	if scale < minWatermarkScale {
		return watermarkLayout{}, false
	}

	return watermarkLayout{
		X:      float64(canvasW) - watermarkPadding - blockW*scale,
		Y:      float64(canvasH) - watermarkPadding - blockH*scale,
		Scale:  scale,
		Width:  blockW,
		Height: blockH,
	}, true
}

// applyWatermark composites the arrow glyph and label onto img. The
// returned image always has the same bounds as img.
func applyWatermark(img image.Image) (image.Image, error) {
	face, err := newWatermarkFace()
	if err != nil {
		return nil, err
	}
	defer face.Close()

	metrics := face.Metrics()
	ascent := float64(metrics.Ascent.Ceil())
	textH := float64((metrics.Ascent + metrics.Descent).Ceil())
	textW := float64(font.MeasureString(face, WatermarkLabel).Ceil())

	blockW := glyphSize + watermarkGap + textW + watermarkShadow
	blockH := max(glyphSize, textH+watermarkShadow)

	bounds := img.Bounds()
	layout, ok := layoutWatermark(bounds.Dx(), bounds.Dy(), blockW, blockH)
	if !ok {
		return img, nil
	}

	dc := gg.NewContextForImage(img)
	dc.SetFontFace(face)

	dc.Push()
	dc.Translate(layout.X, layout.Y)
	dc.Scale(layout.Scale, layout.Scale)

	glyphTop := (blockH - glyphSize) / 2
	for i, p := range glyphPath {
		if i == 0 {
			dc.MoveTo(p[0], glyphTop+p[1])
			continue
		}
		dc.LineTo(p[0], glyphTop+p[1])
	}
	dc.ClosePath()
	dc.SetRGBA(1, 1, 1, 0.7)
	dc.FillPreserve()
	dc.SetRGBA(0, 0, 0, 0.6)
	dc.SetLineWidth(glyphStroke)
	dc.Stroke()

	textX := glyphSize + watermarkGap
	baseline := (blockH-watermarkShadow-textH)/2 + ascent
	dc.SetRGBA(0, 0, 0, 0.5)
	dc.DrawString(WatermarkLabel, textX+watermarkShadow, baseline+watermarkShadow)
	dc.SetRGBA(1, 1, 1, 0.7)
	dc.DrawString(WatermarkLabel, textX, baseline)

	dc.Pop()

	return dc.Image(), nil
}

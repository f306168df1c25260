package transform

import "math"

// DefaultQualityFloor is the lowest quality ever handed to an encoder.
const DefaultQualityFloor = 0.1

// OutputSize returns the dimensions a source of srcW x srcH is rendered at.
// With keepAspect the result is the largest size with the source's ratio
// that fits inside targetW x targetH; otherwise the target is used as is.
func OutputSize(srcW, srcH, targetW, targetH int, keepAspect bool) (int, int) {
	if !keepAspect || srcW <= 0 || srcH <= 0 {
		return targetW, targetH
	}

	ratio := math.Min(float64(targetW)/float64(srcW), float64(targetH)/float64(srcH))
	w := int(math.Round(float64(srcW) * ratio))
	h := int(math.Round(float64(srcH) * ratio))

	return max(w, 1), max(h, 1)
}

// EffectiveQuality combines the requested quality with the optional
// compression multiplier and applies the floor:
// max(floor, quality * compressionFactor).
func EffectiveQuality(quality float64, compressionFactor *float64, floor float64) float64 {
	factor := 1.0
	if compressionFactor != nil {
		factor = *compressionFactor
	}
	return math.Max(floor, quality*factor)
}

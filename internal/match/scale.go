package match

import "math"

// ScaleValueToNormalized maps a 1-based scale value onto [0, 1].
// Values outside 1..scaleSize are clamped to the nearest end of the scale.
func ScaleValueToNormalized(scaleValue, scaleSize int) float64 {
	if scaleSize < 2 {
		return 0
	}
	v := min(max(scaleValue, 1), scaleSize)
	return float64(v-1) / float64(scaleSize-1)
}

// NormalizedToScaleValue is the inverse of ScaleValueToNormalized.
func NormalizedToScaleValue(normalized float64, scaleSize int) int {
	if scaleSize < 2 || math.IsNaN(normalized) {
		return 1
	}
	x := math.Min(math.Max(normalized, 0), 1)
	return int(math.Round(x*float64(scaleSize-1) + 1))
}

// Package analytics computes wellness statistics over check-in windows.
// Every function is total: degenerate input yields 0, never NaN or a panic.
package analytics

import "math"

// Average returns the arithmetic mean of values, or 0 when empty.
func Average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// CV returns the coefficient of variation (population standard deviation
// divided by mean). It is 0 for empty input or a zero mean.
func CV(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := Average(values)
	if mean == 0 {
		return 0
	}
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	cv := math.Sqrt(ss/float64(len(values))) / mean
	if math.IsNaN(cv) || math.IsInf(cv, 0) {
		return 0
	}
	return cv
}

// Correlation returns the Pearson correlation coefficient of x and y. It is 0
// when the series are empty, differ in length, or either one is constant.
func Correlation(x, y []float64) float64 {
	n := len(x)
	if n == 0 || n != len(y) {
		return 0
	}
	var sx, sy, sxy, sx2, sy2 float64
	for i := range x {
		sx += x[i]
		sy += y[i]
		sxy += x[i] * y[i]
		sx2 += x[i] * x[i]
		sy2 += y[i] * y[i]
	}
	fn := float64(n)
	den := math.Sqrt((fn*sx2 - sx*sx) * (fn*sy2 - sy*sy))
	if den == 0 || math.IsNaN(den) {
		return 0
	}
	r := (fn*sxy - sx*sy) / den
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

// Slope returns the least-squares slope of values against their index.
// Fewer than two points give 0.
func Slope(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	var sx, sy, sxy, sx2 float64
	for i, v := range values {
		x := float64(i)
		sx += x
		sy += v
		sxy += x * v
		sx2 += x * x
	}
	fn := float64(n)
	s := (fn*sxy - sx*sy) / (fn*sx2 - sx*sx)
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return 0
	}
	return s
}

// RollingAverage returns the trailing mean over window for each index. The
// first window-1 points average what is available so far.
func RollingAverage(values []float64, window int) []float64 {
	if window < 1 {
		window = 1
	}
	out := make([]float64, len(values))
	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		n := window
		if i+1 < window {
			n = i + 1
		}
		out[i] = sum / float64(n)
	}
	return out
}

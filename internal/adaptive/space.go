package adaptive

import "math"

// Linspace returns n evenly spaced points from x1 to x2 inclusive. The
// endpoints are exact. n == 1 yields {x2}.
func Linspace(x1, x2 float64, n int) []float64 {
	if n <= 0 {
		return []float64{}
	}
	if n == 1 {
		return []float64{x2}
	}
	x := make([]float64, n)
	if x1 == x2 {
		for i := range x {
			x[i] = x1
		}
		return x
	}
	x[n-1] = x2
	step := (x2 - x1) / float64(n-1)
	for i := n - 1; i > 1; i-- {
		x[i-1] = x2 - step*float64(n-i)
	}
	x[0] = x1
	return x
}

// Logspace returns n points from x1 to x2 inclusive, evenly spaced in
// log10. Both bounds must be positive.
func Logspace(x1, x2 float64, n int) []float64 {
	x := Linspace(math.Log10(x1), math.Log10(x2), n)
	for i, v := range x {
		x[i] = math.Pow(10, v)
	}
	return x
}

package psychometric

import (
	"math"
	"sort"
)

// Nelder-Mead coefficients and stopping rules. These are MATLAB's fminsearch
// defaults.
const (
	reflectionCoeff  = 1.0
	expansionCoeff   = 2.0
	contractionCoeff = 0.5
	shrinkCoeff      = 0.5

	xTolerance        = 1e-4
	functionTolerance = 1e-4

	// initialStep scales each non-zero coordinate of the starting point to
	// build the initial simplex; zeroStep is used for zero coordinates.
	initialStep = 1.05
	zeroStep    = 0.00025
)

// fminsearch minimises f from start with the Nelder-Mead simplex method and
// returns the best vertex found. Iterations and evaluations are each capped
// at 200 per dimension.
//
// The simplex is stored row-major by coordinate: simplex[i][j] is coordinate
// i of vertex j.
func fminsearch(f func([]float64) float64, start []float64) []float64 {
	n := len(start)
	simplex := make([][]float64, n)
	for i := range simplex {
		simplex[i] = make([]float64, n+1)
		simplex[i][0] = start[i]
	}
	values := make([]float64, n+1)
	values[0] = f(start)
	for j := 0; j < n; j++ {
		guess := append([]float64(nil), start...)
		if guess[j] != 0 {
			guess[j] *= initialStep
		} else {
			guess[j] = zeroStep
		}
		for i := 0; i < n; i++ {
			simplex[i][j+1] = guess[i]
		}
		values[j+1] = f(guess)
	}
	simplex, values = orderVertices(simplex, values)

	iterations := 1
	evaluations := n + 1
	maxEvaluations := 200 * n
	maxIterations := 200 * n

	vertex := func(col int) []float64 {
		v := make([]float64, n)
		for i := range v {
			v[i] = simplex[i][col]
		}
		return v
	}
	replaceWorst := func(p []float64, value float64) {
		for i := range p {
			simplex[i][n] = p[i]
		}
		values[n] = value
	}
	along := func(xbar []float64, coeff float64) []float64 {
		// xbar + coeff*(xbar - worst)
		p := make([]float64, n)
		for i := range p {
			p[i] = (1+coeff)*xbar[i] - coeff*simplex[i][n]
		}
		return p
	}

	for evaluations < maxEvaluations && iterations < maxIterations {
		valueRange := values[n] - values[0]
		maxDeltaX := 0.0
		maxX := 0.0
		for i := 0; i < n; i++ {
			for j := 1; j <= n; j++ {
				maxDeltaX = math.Max(maxDeltaX, math.Abs(simplex[i][j]-simplex[i][0]))
			}
			maxX = math.Max(maxX, simplex[i][0])
		}
		if valueRange <= toleranceAt(functionTolerance, values[0]) &&
			maxDeltaX <= toleranceAt(xTolerance, maxX) {
			break
		}

		xbar := make([]float64, n)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				xbar[i] += simplex[i][j]
			}
			xbar[i] /= float64(n)
		}

		reflection := along(xbar, reflectionCoeff)
		reflectionValue := f(reflection)
		evaluations++

		switch {
		case reflectionValue < values[0]:
			expansion := along(xbar, reflectionCoeff*expansionCoeff)
			expansionValue := f(expansion)
			evaluations++
			if expansionValue < reflectionValue {
				replaceWorst(expansion, expansionValue)
			} else {
				replaceWorst(reflection, reflectionValue)
			}
		case reflectionValue < values[n-1]:
			replaceWorst(reflection, reflectionValue)
		default:
			shrink := false
			if reflectionValue < values[n] {
				outside := along(xbar, contractionCoeff*reflectionCoeff)
				outsideValue := f(outside)
				evaluations++
				if outsideValue <= reflectionValue {
					replaceWorst(outside, outsideValue)
				} else {
					shrink = true
				}
			} else {
				inside := make([]float64, n)
				for i := range inside {
					inside[i] = (1-contractionCoeff)*xbar[i] + contractionCoeff*simplex[i][n]
				}
				insideValue := f(inside)
				evaluations++
				if insideValue < values[n] {
					replaceWorst(inside, insideValue)
				} else {
					shrink = true
				}
			}
			if shrink {
				for j := 1; j <= n; j++ {
					for i := 0; i < n; i++ {
						simplex[i][j] = simplex[i][0] + shrinkCoeff*(simplex[i][j]-simplex[i][0])
					}
					values[j] = f(vertex(j))
				}
				evaluations += n
			}
		}

		simplex, values = orderVertices(simplex, values)
		iterations++
	}
	return vertex(0)
}

// orderVertices returns copies of simplex and values with vertices sorted by
// ascending function value. Ties keep their current order.
func orderVertices(simplex [][]float64, values []float64) ([][]float64, []float64) {
	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return values[order[a]] < values[order[b]] })

	sorted := make([][]float64, len(simplex))
	for i := range simplex {
		sorted[i] = make([]float64, len(values))
		for j, k := range order {
			sorted[i][j] = simplex[i][k]
		}
	}
	sortedValues := make([]float64, len(values))
	for j, k := range order {
		sortedValues[j] = values[k]
	}
	return sorted, sortedValues
}

// toleranceAt widens tol to ten ulps of x when x is large.
func toleranceAt(tol, x float64) float64 {
	ax := math.Abs(x)
	return math.Max(tol, 10*(math.Nextafter(ax, ax+1)-ax))
}

// Package stats provides the numeric helpers shared by the analysis packages.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Sum calculates the sum of a slice of float64.
func Sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

// Mean calculates the arithmetic mean, returning 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// StdDev calculates the sample standard deviation (n-1 denominator).
// Fewer than two values yield 0.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	sd := stat.StdDev(values, nil)
	if !Finite(sd) {
		return 0
	}
	return sd
}

// Median returns the median, averaging the two middle values for even
// lengths. The input is not modified.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Clamp restricts a value to the given range.
func Clamp(value, minVal, maxVal float64) float64 {
	if value < minVal {
		return minVal
	}
	if value > maxVal {
		return maxVal
	}
	return value
}

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Correlation is a Pearson correlation with its two-sided p-value.
type Correlation struct {
	R      float64
	PValue float64
	N      int
}

// Pearson computes the Pearson correlation between x and y. ok is false when
// the series differ in length, have fewer than three points, or either
// series has zero variance.
func Pearson(x, y []float64) (Correlation, bool) {
	n := len(x)
	if n != len(y) || n < 3 {
		return Correlation{}, false
	}
	if StdDev(x) == 0 || StdDev(y) == 0 {
		return Correlation{}, false
	}
	r := stat.Correlation(x, y, nil)
	if !Finite(r) {
		return Correlation{}, false
	}
	r = Clamp(r, -1, 1)

	p := 0.0
	if math.Abs(r) < 1 {
		df := float64(n - 2)
		t := r * math.Sqrt(df/(1-r*r))
		p = twoSidedP(t, df)
	}
	return Correlation{R: r, PValue: p, N: n}, true
}

// TTest is the result of a two-sample t-test.
type TTest struct {
	T      float64
	DF     float64
	PValue float64
}

// WelchTTest runs Welch's unequal-variance t-test of mean(a) against mean(b).
// ok is false when either sample has fewer than two values or both samples
// have zero variance.
func WelchTTest(a, b []float64) (TTest, bool) {
	na, nb := float64(len(a)), float64(len(b))
	if na < 2 || nb < 2 {
		return TTest{}, false
	}
	va := StdDev(a) * StdDev(a) / na
	vb := StdDev(b) * StdDev(b) / nb
	se := va + vb
	if se == 0 {
		return TTest{}, false
	}
	t := (Mean(a) - Mean(b)) / math.Sqrt(se)
	df := se * se / (va*va/(na-1) + vb*vb/(nb-1))
	if !Finite(t) || !Finite(df) || df <= 0 {
		return TTest{}, false
	}
	return TTest{T: t, DF: df, PValue: twoSidedP(t, df)}, true
}

// twoSidedP returns the two-sided p-value of a Student-t statistic.
func twoSidedP(t, df float64) float64 {
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * (1 - dist.CDF(math.Abs(t)))
	return Clamp(p, 0, 1)
}

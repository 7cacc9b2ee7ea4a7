package risk

import "math"

// minOverlap is the minimum number of aligned return observations required
// before a correlation estimate is trusted. Shorter overlaps are skipped and
// the pair is allowed.
const minOverlap = 10

// correlation computes the Pearson correlation of the trailing overlap of two
// return series. ok is false when the overlap is too short or either series
// has zero variance.
func correlation(a, b []float64) (float64, bool) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n < minOverlap {
		return 0, false
	}
	a = a[len(a)-n:]
	b = b[len(b)-n:]

	var meanA, meanB float64
	for i := 0; i < n; i++ {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= float64(n)
	meanB /= float64(n)

	var cov, varA, varB float64
	for i := 0; i < n; i++ {
		da := a[i] - meanA
		db := b[i] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0, false
	}
	return cov / math.Sqrt(varA*varB), true
}

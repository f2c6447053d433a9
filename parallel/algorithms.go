package parallel

import "golang.org/x/exp/constraints"

// Number is any integer or floating point type.
type Number interface {
	constraints.Integer | constraints.Float
}

// minChunk is the smallest amount of iterations worth a lane.
const minChunk = 256

// chunks partitions [0,n) into at most s.Workers() contiguous ranges and
// calls fn(c, lo, hi) for each, through s.For.
func chunks(s Space, n int, fn func(c, lo, hi int)) (nchunks int) {
	nw := s.Workers()
	if nw < 1 {
		nw = 1
	}
	size := max((n+nw-1)/nw, minChunk)
	nchunks = (n + size - 1) / size
	s.For(nchunks, func(c int) {
		lo := c * size
		fn(c, lo, min(lo+size, n))
	})
	return nchunks
}

// Reduce combines f(i) for all i in [0,n) with combine, starting each partial
// from identity. combine must be associative. For a fixed Space the
// combination order is fixed, so results are reproducible.
func Reduce[T any](s Space, n int, identity T, f func(i int) T, combine func(a, b T) T) T {
	if n <= 0 {
		return identity
	}
	partials := make([]T, max(s.Workers(), 1))
	nc := chunks(s, n, func(c, lo, hi int) {
		acc := identity
		for i := lo; i < hi; i++ {
			acc = combine(acc, f(i))
		}
		partials[c] = acc
	})
	acc := identity
	for _, p := range partials[:nc] {
		acc = combine(acc, p)
	}
	return acc
}

// Sum returns the sum of f(i) over [0,n).
func Sum[T Number](s Space, n int, f func(i int) T) T {
	var zero T
	return Reduce(s, n, zero, f, func(a, b T) T { return a + b })
}

// ExclusiveScan writes the exclusive prefix sum of src into dst and returns
// the total. dst[0] is zero and dst[i] = src[0] + ... + src[i-1].
// dst and src may be the same slice. It panics if len(dst) < len(src).
func ExclusiveScan[T Number](s Space, dst, src []T) T {
	n := len(src)
	if len(dst) < n {
		panic("parallel: ExclusiveScan destination shorter than source")
	}
	if n == 0 {
		return 0
	}
	partials := make([]T, max(s.Workers(), 1))
	// First pass: per chunk totals.
	nc := chunks(s, n, func(c, lo, hi int) {
		var acc T
		for i := lo; i < hi; i++ {
			acc += src[i]
		}
		partials[c] = acc
	})
	// Scan chunk totals into chunk offsets.
	var total T
	for c := 0; c < nc; c++ {
		p := partials[c]
		partials[c] = total
		total += p
	}
	// Second pass: local scan seeded by chunk offset.
	chunks(s, n, func(c, lo, hi int) {
		acc := partials[c]
		for i := lo; i < hi; i++ {
			v := src[i]
			dst[i] = acc
			acc += v
		}
	})
	return total
}

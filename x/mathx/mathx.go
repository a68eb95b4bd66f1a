package mathx

import "golang.org/x/exp/constraints"

// Clamp limits v to [lo, hi]. If lo > hi, the bounds are swapped.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	return Min(Max(v, lo), hi)
}

func Min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// IsPow2 reports whether n is a positive power of two.
func IsPow2[T constraints.Integer](n T) bool {
	return n > 0 && n&(n-1) == 0
}

// FloorPow2 is the largest power of two <= n, or 0 for n < 1.
func FloorPow2[T constraints.Integer](n T) T {
	if n < 1 {
		return 0
	}
	var p T = 1
	for p <= n/2 {
		p *= 2
	}
	return p
}

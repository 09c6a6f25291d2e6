// Package math holds small integer-arithmetic helpers shared by epoch
// processing and the lean chain, kept separate from corestate/helpers so
// packages with no business reading validator state can still use them.
package math

// ISqrt returns floor(sqrt(n)) using Newton's method over integers, the
// way the consensus spec's integer_squareroot does (used by epoch
// processing's base-reward denominator and, per SPEC_FULL.md, by
// lean.IsJustifiableSlot in place of a floating-point perfect-square
// test — spec.md §9 Open Question (b)).
func ISqrt(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	x := n
	y := (x + 1) / 2
	for y < x {
		x = y
		y = (x + n/x) / 2
	}
	return x
}

// IsPerfectSquare reports whether n is a perfect square, computed with
// integer arithmetic only (no float comparison).
func IsPerfectSquare(n uint64) bool {
	r := ISqrt(n)
	return r*r == n
}

// IsOblong reports whether n is an "oblong" (pronic) number, i.e.
// n == x*(x+1) for some integer x >= 0. The lean chain's
// is_justifiable_slot backoff additionally allows oblong deltas; the
// original Rust used a float test `(delta + 0.25).sqrt() % 1.0 == 0.5`,
// which is exactly the pronic-number condition expressed awkwardly in
// floating point.
func IsOblong(n uint64) bool {
	x := ISqrt(n)
	if x*(x+1) == n {
		return true
	}
	// ISqrt returns the exact floor, and x*x <= x*(x+1) < (x+1)*(x+1), so
	// the check above already matches every pronic n; the x+1 check is
	// only a redundant guard.
	return (x+1)*(x+2) == n
}

package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestISqrt(t *testing.T) {
	cases := map[uint64]uint64{
		0:  0,
		1:  1,
		2:  1,
		3:  1,
		4:  2,
		15: 3,
		16: 4,
		17: 4,
		99: 9,
		100: 10,
	}
	for n, want := range cases {
		assert.Equal(t, want, ISqrt(n), "ISqrt(%d)", n)
	}
}

func TestIsPerfectSquare(t *testing.T) {
	squares := []uint64{0, 1, 4, 9, 16, 25, 10000}
	for _, n := range squares {
		assert.True(t, IsPerfectSquare(n), "expected %d to be a perfect square", n)
	}
	nonSquares := []uint64{2, 3, 5, 8, 15, 26, 99}
	for _, n := range nonSquares {
		assert.False(t, IsPerfectSquare(n), "expected %d not to be a perfect square", n)
	}
}

func TestIsOblong(t *testing.T) {
	// Pronic numbers: 0*1, 1*2, 2*3, 3*4, 4*5, 5*6 ...
	oblong := []uint64{0, 2, 6, 12, 20, 30, 42}
	for _, n := range oblong {
		assert.True(t, IsOblong(n), "expected %d to be oblong", n)
	}
	nonOblong := []uint64{1, 3, 4, 5, 10, 15}
	for _, n := range nonOblong {
		assert.False(t, IsOblong(n), "expected %d not to be oblong", n)
	}
}

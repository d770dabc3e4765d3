package util

import "testing"

func TestIsPowerOfTwo(t *testing.T) {
	t.Parallel()

	truthy := []uint64{1, 2, 4, 8, 1 << 20, 1 << 63}
	for _, x := range truthy {
		if !IsPowerOfTwo(x) {
			t.Fatalf("IsPowerOfTwo(%d) = false, want true", x)
		}
	}
	falsy := []uint64{0, 3, 6, 12, 1<<20 + 1}
	for _, x := range falsy {
		if IsPowerOfTwo(x) {
			t.Fatalf("IsPowerOfTwo(%d) = true, want false", x)
		}
	}
}

func TestNextPow2(t *testing.T) {
	t.Parallel()

	cases := []struct{ in, want uint64 }{
		{0, 1},
		{1, 1},
		{2, 2},
		{3, 4},
		{4, 4},
		{5, 8},
		{1000, 1024},
		{1 << 40, 1 << 40},
		{1<<40 + 1, 1 << 41},
		{1<<63 + 1, 1 << 63}, // clamped
	}
	for _, c := range cases {
		if got := NextPow2(c.in); got != c.want {
			t.Fatalf("NextPow2(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

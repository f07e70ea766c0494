package domain

import "math/rand"

// Shuffle returns a new slice holding a random permutation of items.
// The input is never mutated; outputs across calls are independent.
func Shuffle[T any](rnd *rand.Rand, items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	for i := len(out) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

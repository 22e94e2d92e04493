package arena

import (
	"fmt"
	"math/rand/v2"
)

// PickSpawnIndices returns k distinct indices out of n, each ordered pair
// equally likely. It is a partial Fisher-Yates shuffle.
func PickSpawnIndices(r *rand.Rand, n, k int) ([]int, error) {
	if k < 0 || n < k {
		return nil, fmt.Errorf("need %d spawn points, layout has %d", k, n)
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + r.IntN(n-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx[:k], nil
}

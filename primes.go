package chashmap

import "sort"

// primeLadder is the precomputed prime ladder spec.md §4.3 refers to
// ("a small precomputed prime ladder is available via next_prime(n)"),
// carried verbatim from the original C++'s getNextPrimeNumber
// (original_source/inc/unordered_map_utils.hpp).
var primeLadder = []uint64{
	41, 83, 167, 337, 677, 1361, 2729,
	5471, 10949, 21911, 43853, 87719, 175447, 350899,
	701819, 1403641, 2807303, 5614657, 11229331, 22458671, 44917381,
	89834777, 179669557, 359339171, 718678369, 1437356741,
}

// NextPrime returns the smallest value in the ladder that is strictly
// greater than n, matching the original's behavior of always stepping past
// an exact match (getNextPrimeNumber increments past currentNumber when the
// lower bound lands exactly on it). Once n reaches the top of the ladder,
// the largest entry is returned, same as the original's fallback.
func NextPrime(n uint64) uint64 {
	i := sort.Search(len(primeLadder), func(i int) bool { return primeLadder[i] > n })
	if i == len(primeLadder) {
		return primeLadder[len(primeLadder)-1]
	}
	return primeLadder[i]
}

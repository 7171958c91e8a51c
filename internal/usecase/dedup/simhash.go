package dedup

import (
	"hash/fnv"
	"math/bits"
	"strconv"
	"strings"
)

// Simhash computes a 64-bit SimHash over the whitespace-split tokens of the
// normalized text. Similar documents produce hashes with a small Hamming
// distance. Empty input yields zero.
func Simhash(text string) uint64 {
	tokens := strings.Fields(Normalize(text))
	if len(tokens) == 0 {
		return 0
	}

	var weights [64]int
	for _, tok := range tokens {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum64()
		for i := 0; i < 64; i++ {
			if sum&(1<<uint(i)) != 0 {
				weights[i]++
			} else {
				weights[i]--
			}
		}
	}

	var out uint64
	for i := 0; i < 64; i++ {
		if weights[i] > 0 {
			out |= 1 << uint(i)
		}
	}
	return out
}

// HammingDistance counts differing bits between two fingerprints.
func HammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// FormatSimhash renders a fingerprint the way it is persisted.
func FormatSimhash(h uint64) string {
	return strconv.FormatUint(h, 10)
}

// ParseSimhash parses a persisted fingerprint. The second return value is
// false for empty or malformed input.
func ParseSimhash(s string) (uint64, bool) {
	if s == "" {
		return 0, false
	}
	h, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return h, true
}

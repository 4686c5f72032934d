// Package entropy scores the unpredictability of strings. It is used to
// reject anti-CSRF state values that an attacker could guess.
package entropy

import "math"

// ShannonBits returns the Shannon entropy of the character distribution of s
// in bits per character.
func ShannonBits(s string) float64 {
	runes := []rune(s)
	if len(runes) == 0 {
		return 0
	}

	counts := make(map[rune]int)
	for _, r := range runes {
		counts[r]++
	}

	length := float64(len(runes))
	var bits float64
	for _, count := range counts {
		p := float64(count) / length
		bits -= p * math.Log2(p)
	}

	return bits
}

// TotalBits returns the entropy of the whole string: bits per character
// times character count.
func TotalBits(s string) float64 {
	return ShannonBits(s) * float64(len([]rune(s)))
}

// Package text provides utilities for text processing and analysis.
package text

// CountRunes counts the number of Unicode characters (runes) in the given
// text. Cyrillic and emoji are multi-byte in UTF-8, so byte length would
// overstate how much actual text an article carries; content-length gates
// throughout the pipeline count runes instead.
//
// Examples:
//
//	CountRunes("hello")     // returns 5 (ASCII text)
//	CountRunes("привет")    // returns 6 (Cyrillic text)
//	CountRunes("")          // returns 0 (empty string)
func CountRunes(text string) int {
	return len([]rune(text))
}

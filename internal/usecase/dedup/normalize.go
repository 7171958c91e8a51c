// Package dedup collapses near-duplicate posts to a representative set.
// It combines 64-bit SimHash bucketing with TF-IDF cosine similarity.
package dedup

import (
	"regexp"
	"strings"
)

var (
	urlRe        = regexp.MustCompile(`(?i)\bhttps?://\S+|\bwww\.\S+`)
	tagRe        = regexp.MustCompile(`<[^>]+>`)
	punctRunRe   = regexp.MustCompile(`([[:punct:]])[[:punct:]]+`)
	nonWordRe    = regexp.MustCompile(`[^a-zA-Z\p{Cyrillic}0-9_\s]`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Normalize prepares text for fingerprinting and vectorization: lowercase,
// URLs and markup stripped, punctuation runs collapsed, non-word characters
// removed (Latin, Cyrillic, digits and underscore survive), whitespace
// collapsed. The function is idempotent.
func Normalize(text string) string {
	s := strings.ToLower(text)
	s = urlRe.ReplaceAllString(s, " ")
	s = tagRe.ReplaceAllString(s, " ")
	s = punctRunRe.ReplaceAllString(s, "$1")
	s = nonWordRe.ReplaceAllString(s, " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

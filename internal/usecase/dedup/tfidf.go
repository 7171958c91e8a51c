package dedup

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// tokenRe matches word tokens of at least two characters, Latin or Cyrillic.
var tokenRe = regexp.MustCompile(`[A-Za-z\p{Cyrillic}0-9]{2,}`)

// VectorizerConfig controls TF-IDF feature extraction.
type VectorizerConfig struct {
	NgramMin    int
	NgramMax    int
	MaxFeatures int
	Stopwords   map[string]struct{}
}

// DefaultVectorizerConfig matches the in-batch deduplication setup:
// word 1-3-grams capped at 5000 features.
func DefaultVectorizerConfig() VectorizerConfig {
	return VectorizerConfig{NgramMin: 1, NgramMax: 3, MaxFeatures: 5000}
}

// UnigramVectorizerConfig is used where single terms suffice: simhash-less
// group assignment and digest diversification.
func UnigramVectorizerConfig() VectorizerConfig {
	return VectorizerConfig{NgramMin: 1, NgramMax: 1, MaxFeatures: 5000}
}

// SparseVector is an l2-normalized term-weight vector keyed by feature index.
type SparseVector map[int]float64

// Cosine returns the cosine similarity of two normalized vectors.
func (v SparseVector) Cosine(other SparseVector) float64 {
	if len(other) < len(v) {
		v, other = other, v
	}
	var dot float64
	for i, w := range v {
		if ow, ok := other[i]; ok {
			dot += w * ow
		}
	}
	return dot
}

// Sum returns the total weight of the vector, a cheap proxy for how much
// distinctive information the document carries.
func (v SparseVector) Sum() float64 {
	var s float64
	for _, w := range v {
		s += w
	}
	return s
}

// FitTransform learns a vocabulary over the documents and returns one
// normalized TF-IDF vector per document. Documents with no tokens yield empty
// vectors. The vocabulary is deterministic: features are ranked by corpus
// frequency with lexicographic tie-breaks before the MaxFeatures cut.
func FitTransform(docs []string, cfg VectorizerConfig) []SparseVector {
	if cfg.NgramMin <= 0 {
		cfg.NgramMin = 1
	}
	if cfg.NgramMax < cfg.NgramMin {
		cfg.NgramMax = cfg.NgramMin
	}

	tokenized := make([][]string, len(docs))
	for i, doc := range docs {
		tokenized[i] = tokenize(doc, cfg)
	}

	// Corpus counts for vocabulary selection and document frequency for idf.
	corpusFreq := map[string]int{}
	docFreq := map[string]int{}
	for _, terms := range tokenized {
		seen := map[string]struct{}{}
		for _, t := range terms {
			corpusFreq[t]++
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				docFreq[t]++
			}
		}
	}

	vocab := selectVocabulary(corpusFreq, cfg.MaxFeatures)

	n := float64(len(docs))
	idf := make([]float64, len(vocab))
	for term, idx := range vocab {
		idf[idx] = math.Log((1+n)/(1+float64(docFreq[term]))) + 1
	}

	vectors := make([]SparseVector, len(docs))
	for i, toks := range tokenized {
		counts := map[int]int{}
		for _, t := range toks {
			if idx, ok := vocab[t]; ok {
				counts[idx]++
			}
		}
		vec := make(SparseVector, len(counts))
		var norm float64
		for idx, c := range counts {
			w := float64(c) * idf[idx]
			vec[idx] = w
			norm += w * w
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for idx := range vec {
				vec[idx] /= norm
			}
		}
		vectors[i] = vec
	}
	return vectors
}

func tokenize(doc string, cfg VectorizerConfig) []string {
	words := tokenRe.FindAllString(strings.ToLower(doc), -1)
	if len(cfg.Stopwords) > 0 {
		kept := words[:0]
		for _, w := range words {
			if _, stop := cfg.Stopwords[w]; !stop {
				kept = append(kept, w)
			}
		}
		words = kept
	}

	if cfg.NgramMax == 1 {
		return words
	}

	grams := make([]string, 0, len(words)*(cfg.NgramMax-cfg.NgramMin+1))
	for n := cfg.NgramMin; n <= cfg.NgramMax; n++ {
		for i := 0; i+n <= len(words); i++ {
			grams = append(grams, strings.Join(words[i:i+n], " "))
		}
	}
	return grams
}

func selectVocabulary(corpusFreq map[string]int, maxFeatures int) map[string]int {
	terms := make([]string, 0, len(corpusFreq))
	for t := range corpusFreq {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if corpusFreq[terms[i]] != corpusFreq[terms[j]] {
			return corpusFreq[terms[i]] > corpusFreq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if maxFeatures > 0 && len(terms) > maxFeatures {
		terms = terms[:maxFeatures]
	}

	vocab := make(map[string]int, len(terms))
	for i, t := range terms {
		vocab[t] = i
	}
	return vocab
}

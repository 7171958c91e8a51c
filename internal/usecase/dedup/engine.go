package dedup

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/ADEMSU/insight-flow-rss/internal/domain/entity"
)

// Config holds the similarity thresholds of the engine. Each stage carries
// its own knob; the defaults mirror the production tuning.
type Config struct {
	// MaxDistance is the Hamming radius of a simhash bucket.
	MaxDistance int
	// MinBatches is the minimum number of groups ProcessPosts works with;
	// the largest group is split in half until the count is reached.
	MinBatches int
	// BatchThreshold is the cosine cutoff inside one simhash group.
	BatchThreshold float64
	// GlobalThreshold is the tightened cutoff of the cross-group pass.
	GlobalThreshold float64
	// Stopwords are dropped during vectorization.
	Stopwords map[string]struct{}
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		MaxDistance:     16,
		MinBatches:      2,
		BatchThreshold:  0.65,
		GlobalThreshold: 0.60,
	}
}

// Engine groups and deduplicates posts. It is stateless apart from its
// configuration and safe for concurrent use.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	if cfg.MaxDistance <= 0 {
		cfg.MaxDistance = 16
	}
	if cfg.MinBatches <= 0 {
		cfg.MinBatches = 2
	}
	if cfg.BatchThreshold <= 0 {
		cfg.BatchThreshold = 0.65
	}
	if cfg.GlobalThreshold <= 0 {
		cfg.GlobalThreshold = 0.60
	}
	return &Engine{cfg: cfg}
}

func postText(p *entity.Post) string {
	return Normalize(p.Title + " " + p.Content)
}

// GroupBySimhash clusters posts into buckets of mutually similar
// fingerprints. Greedy single pass in input order: each unassigned post opens
// a group and absorbs every later unassigned post within MaxDistance.
// Posts without a fingerprint are attached to the group whose concatenated
// text is closest by TF-IDF cosine, ties broken by group index; with no
// groups at all they form their own. If fewer than MinBatches groups emerge,
// the largest is split in half until the count is reached.
func (e *Engine) GroupBySimhash(posts []*entity.Post) [][]*entity.Post {
	if len(posts) == 0 {
		return nil
	}

	type hashed struct {
		post *entity.Post
		hash uint64
	}
	var withHash []hashed
	var withoutHash []*entity.Post
	for _, p := range posts {
		if h, ok := ParseSimhash(p.Simhash); ok {
			withHash = append(withHash, hashed{post: p, hash: h})
		} else {
			withoutHash = append(withoutHash, p)
		}
	}

	var groups [][]*entity.Post
	assigned := make([]bool, len(withHash))
	for i := range withHash {
		if assigned[i] {
			continue
		}
		group := []*entity.Post{withHash[i].post}
		assigned[i] = true
		for j := i + 1; j < len(withHash); j++ {
			if assigned[j] {
				continue
			}
			if HammingDistance(withHash[i].hash, withHash[j].hash) <= e.cfg.MaxDistance {
				group = append(group, withHash[j].post)
				assigned[j] = true
			}
		}
		groups = append(groups, group)
	}

	groups = e.assignHashless(groups, withoutHash)

	for len(groups) < e.cfg.MinBatches && splittable(groups) {
		groups = splitLargest(groups)
	}
	return groups
}

// assignHashless distributes fingerprint-less posts to the most similar
// existing group.
func (e *Engine) assignHashless(groups [][]*entity.Post, orphans []*entity.Post) [][]*entity.Post {
	if len(orphans) == 0 {
		return groups
	}
	if len(groups) == 0 {
		return [][]*entity.Post{orphans}
	}

	for _, orphan := range orphans {
		docs := make([]string, 0, len(groups)+1)
		for _, g := range groups {
			var parts []string
			for _, p := range g {
				parts = append(parts, postText(p))
			}
			docs = append(docs, strings.Join(parts, " "))
		}
		docs = append(docs, postText(orphan))

		vecs := FitTransform(docs, VectorizerConfig{
			NgramMin: 1, NgramMax: 1, MaxFeatures: 5000, Stopwords: e.cfg.Stopwords,
		})
		orphanVec := vecs[len(vecs)-1]

		best, bestSim := 0, -1.0
		for gi := range groups {
			if sim := orphanVec.Cosine(vecs[gi]); sim > bestSim {
				best, bestSim = gi, sim
			}
		}
		groups[best] = append(groups[best], orphan)
	}
	return groups
}

func splittable(groups [][]*entity.Post) bool {
	for _, g := range groups {
		if len(g) > 1 {
			return true
		}
	}
	return false
}

func splitLargest(groups [][]*entity.Post) [][]*entity.Post {
	largest, size := -1, 1
	for i, g := range groups {
		if len(g) > size {
			largest, size = i, len(g)
		}
	}
	if largest < 0 {
		return groups
	}
	g := groups[largest]
	mid := len(g) / 2
	out := make([][]*entity.Post, 0, len(groups)+1)
	out = append(out, groups[:largest]...)
	out = append(out, g[:mid], g[mid:])
	out = append(out, groups[largest+1:]...)
	return out
}

// DeduplicateBatch keeps the most informative representative of every
// near-duplicate cluster. Posts are scored by their TF-IDF row sum; the
// highest-scored available post is selected and everything above the
// threshold relative to it is discarded, until no candidates remain.
// With keepMinOne set, a batch that would otherwise vanish (empty
// vocabulary, blank content) returns its first post unchanged.
func (e *Engine) DeduplicateBatch(posts []*entity.Post, threshold float64, keepMinOne bool) []*entity.Post {
	if len(posts) <= 1 {
		return posts
	}

	docs := make([]string, len(posts))
	for i, p := range posts {
		docs[i] = postText(p)
	}
	vecs := FitTransform(docs, VectorizerConfig{
		NgramMin: 1, NgramMax: 3, MaxFeatures: 5000, Stopwords: e.cfg.Stopwords,
	})

	scores := make([]float64, len(posts))
	var total float64
	for i, v := range vecs {
		scores[i] = v.Sum()
		total += scores[i]
	}
	if total == 0 {
		if keepMinOne {
			return posts[:1]
		}
		return nil
	}

	order := make([]int, len(posts))
	for i := range order {
		order[i] = i
	}
	// Stable by construction: ties resolve to the earlier input index.
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	excluded := make([]bool, len(posts))
	var kept []int
	for _, i := range order {
		if excluded[i] {
			continue
		}
		kept = append(kept, i)
		for _, j := range order {
			if j != i && !excluded[j] && vecs[i].Cosine(vecs[j]) > threshold {
				excluded[j] = true
			}
		}
	}

	sort.Ints(kept)
	out := make([]*entity.Post, 0, len(kept))
	for _, i := range kept {
		out = append(out, posts[i])
	}
	if len(out) == 0 && keepMinOne {
		return posts[:1]
	}
	return out
}

// ProcessPosts runs the full two-phase pipeline: simhash grouping, per-group
// deduplication at BatchThreshold, then one tightened global pass at
// GlobalThreshold. Output is always a subset of input and the operation is
// idempotent.
func (e *Engine) ProcessPosts(posts []*entity.Post) []*entity.Post {
	if len(posts) <= 1 {
		return posts
	}

	groups := e.GroupBySimhash(posts)
	var survivors []*entity.Post
	for _, g := range groups {
		survivors = append(survivors, e.DeduplicateBatch(g, e.cfg.BatchThreshold, true)...)
	}

	result := e.DeduplicateBatch(survivors, e.cfg.GlobalThreshold, true)
	slog.Debug("dedup finished",
		slog.Int("input", len(posts)),
		slog.Int("groups", len(groups)),
		slog.Int("output", len(result)))
	return result
}

// SelectTopN diversifies the digest: it drops anything nearly identical
// (cosine >= 0.9) to an earlier candidate, sorts the rest by relevance score
// and greedily picks posts whose similarity to every picked one stays below
// 0.8, stopping at n.
func (e *Engine) SelectTopN(posts []*entity.Post, n int) []*entity.Post {
	if n <= 0 || len(posts) == 0 {
		return nil
	}

	docs := make([]string, len(posts))
	for i, p := range posts {
		docs[i] = postText(p)
	}
	vecs := FitTransform(docs, VectorizerConfig{
		NgramMin: 1, NgramMax: 1, MaxFeatures: 5000, Stopwords: e.cfg.Stopwords,
	})

	// Pre-drop near-identical posts in input order.
	var candidates []int
	for i := range posts {
		dup := false
		for _, j := range candidates {
			if vecs[i].Cosine(vecs[j]) >= 0.9 {
				dup = true
				break
			}
		}
		if !dup {
			candidates = append(candidates, i)
		}
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		return posts[candidates[a]].RelevanceScore > posts[candidates[b]].RelevanceScore
	})

	var picked []int
	for _, i := range candidates {
		if len(picked) >= n {
			break
		}
		ok := true
		for _, j := range picked {
			if vecs[i].Cosine(vecs[j]) >= 0.8 {
				ok = false
				break
			}
		}
		if ok {
			picked = append(picked, i)
		}
	}

	out := make([]*entity.Post, 0, len(picked))
	for _, i := range picked {
		out = append(out, posts[i])
	}
	return out
}

// DeduplicateStories removes summaries that retell the same event: two
// stories collide when their titles exceed titleThreshold or their bodies
// exceed contentThreshold by cosine similarity. Earlier stories win.
func (e *Engine) DeduplicateStories(posts []*entity.Post, titleThreshold, contentThreshold float64) []*entity.Post {
	if len(posts) <= 1 {
		return posts
	}

	titles := make([]string, len(posts))
	bodies := make([]string, len(posts))
	for i, p := range posts {
		titles[i] = Normalize(p.Title)
		body := p.Summary
		if body == "" {
			body = p.Content
		}
		bodies[i] = Normalize(body)
	}
	cfg := VectorizerConfig{NgramMin: 1, NgramMax: 1, MaxFeatures: 5000, Stopwords: e.cfg.Stopwords}
	titleVecs := FitTransform(titles, cfg)
	bodyVecs := FitTransform(bodies, cfg)

	var kept []int
	for i := range posts {
		dup := false
		for _, j := range kept {
			if titleVecs[i].Cosine(titleVecs[j]) >= titleThreshold ||
				bodyVecs[i].Cosine(bodyVecs[j]) >= contentThreshold {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, i)
		}
	}

	out := make([]*entity.Post, 0, len(kept))
	for _, i := range kept {
		out = append(out, posts[i])
	}
	return out
}

// Package duplicates finds repeated pages inside a scanned collection.
//
// Comparison is pairwise, O(n²) in the number of pages. Collections are
// bounded by issue size (tens of pages) so no indexing is attempted.
package duplicates

import (
	"sort"
	"strings"

	"github.com/ppiankov/majalla/internal/model"
	"github.com/ppiankov/majalla/internal/similarity"
)

// Thresholds are the lower bounds of each duplicate tier
type Thresholds struct {
	Exact         float64
	NearDuplicate float64
	Similar       float64
}

// DefaultThresholds returns the standard tier bands
func DefaultThresholds() Thresholds {
	return Thresholds{
		Exact:         0.95,
		NearDuplicate: 0.80,
		Similar:       0.60,
	}
}

// Classify maps a similarity onto a tier; ok is false below the similar band
func (t Thresholds) Classify(sim float64) (tier model.DuplicateTier, ok bool) {
	switch {
	case sim >= t.Exact:
		return model.TierExact, true
	case sim >= t.NearDuplicate:
		return model.TierNearDuplicate, true
	case sim >= t.Similar:
		return model.TierSimilar, true
	}
	return "", false
}

// Detector compares every page of a collection with every other page
type Detector struct {
	engine     *similarity.Engine
	thresholds Thresholds
}

// NewDetector creates a detector; zero-valued thresholds fall back to the defaults
func NewDetector(thresholds Thresholds, ngramSize int) *Detector {
	if thresholds == (Thresholds{}) {
		thresholds = DefaultThresholds()
	}
	return &Detector{
		engine:     similarity.NewEngine(ngramSize),
		thresholds: thresholds,
	}
}

// FromConfig builds a detector from the duplicates config section
func FromConfig(cfg model.DuplicatesConfig) *Detector {
	return NewDetector(Thresholds{
		Exact:         cfg.Exact,
		NearDuplicate: cfg.NearDuplicate,
		Similar:       cfg.Similar,
	}, cfg.NGramSize)
}

// Detect returns every pair (i<j) at or above the similar threshold, sorted by
// similarity descending. Pages with blank text are never compared.
func (d *Detector) Detect(pages []model.Page) []model.DuplicateResult {
	profiles := make([]*similarity.Profile, len(pages))
	for i, p := range pages {
		if strings.TrimSpace(p.Text) == "" {
			continue
		}
		profiles[i] = d.engine.Profile(p.Text)
	}

	results := make([]model.DuplicateResult, 0)
	for i := 0; i < len(pages); i++ {
		if profiles[i] == nil {
			continue
		}
		for j := i + 1; j < len(pages); j++ {
			if profiles[j] == nil {
				continue
			}
			score := d.engine.Compare(profiles[i], profiles[j])
			tier, ok := d.thresholds.Classify(score.Combined)
			if !ok {
				continue
			}
			results = append(results, model.DuplicateResult{
				PageIndex1: i,
				PageIndex2: j,
				ID1:        pages[i].Key(),
				ID2:        pages[j].Key(),
				Similarity: score.Combined,
				Tier:       tier,
			})
		}
	}

	// Stable so equal scores keep generation order
	sort.SliceStable(results, func(a, b int) bool {
		return results[a].Similarity > results[b].Similarity
	})
	return results
}

// ByPageOrder returns a copy of results in generation order (i, then j)
func ByPageOrder(results []model.DuplicateResult) []model.DuplicateResult {
	out := make([]model.DuplicateResult, len(results))
	copy(out, results)
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].PageIndex1 != out[b].PageIndex1 {
			return out[a].PageIndex1 < out[b].PageIndex1
		}
		return out[a].PageIndex2 < out[b].PageIndex2
	})
	return out
}

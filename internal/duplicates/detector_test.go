package duplicates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/majalla/internal/model"
)

const cover = "مجلة الكواكب العدد الأول القاهرة سنة ١٩٣٢"

func pages(texts ...string) []model.Page {
	out := make([]model.Page, len(texts))
	for i, t := range texts {
		out[i] = model.Page{DocumentID: "issue-7", PageIndex: i + 1, Text: t}
	}
	return out
}

func TestThresholds_Classify(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		sim  float64
		want model.DuplicateTier
		ok   bool
	}{
		{1.0, model.TierExact, true},
		{0.95, model.TierExact, true},
		{0.92, model.TierNearDuplicate, true},
		{0.80, model.TierNearDuplicate, true},
		{0.65, model.TierSimilar, true},
		{0.60, model.TierSimilar, true},
		{0.59, "", false},
		{0, "", false},
	}
	for _, tt := range tests {
		tier, ok := th.Classify(tt.sim)
		assert.Equal(t, tt.ok, ok, "sim=%v", tt.sim)
		assert.Equal(t, tt.want, tier, "sim=%v", tt.sim)
	}
}

func TestDetect_NearDuplicateByNGrams(t *testing.T) {
	// 24 distinct trigrams vs the same 24 plus two more: 24/26 ≈ 0.92
	a := "abcdefghijklmnopqrstuvwxyz"
	b := a + "AB"

	d := NewDetector(Thresholds{}, 3)
	results := d.Detect(pages(a, b))

	require.Len(t, results, 1)
	assert.Equal(t, model.TierNearDuplicate, results[0].Tier)
	assert.InDelta(t, 24.0/26.0, results[0].Similarity, 1e-9)
	assert.Equal(t, 0, results[0].PageIndex1)
	assert.Equal(t, 1, results[0].PageIndex2)
	assert.Equal(t, "issue-7/p1", results[0].ID1)
	assert.Equal(t, "issue-7/p2", results[0].ID2)
}

func TestDetect_ThreeCopiesFormOneChain(t *testing.T) {
	d := NewDetector(DefaultThresholds(), 3)
	results := d.Detect(pages(cover, cover, cover))

	require.Len(t, results, 3)
	for _, r := range results {
		assert.Equal(t, model.TierExact, r.Tier)
		assert.Less(t, r.PageIndex1, r.PageIndex2)
	}

	chains := GroupChains(results)
	require.Len(t, chains, 1)
	assert.Equal(t, []int{0, 1, 2}, chains[0].PageIndexes)
	assert.Equal(t, []string{"issue-7/p1", "issue-7/p2", "issue-7/p3"}, chains[0].IDs)

	assert.Equal(t, []int{1, 2}, SuggestRemovals(results))
}

func TestDetect_GenerationOrderRemovesAllLaterCopies(t *testing.T) {
	base := "مجلة الكواكب تقدم اليوم عرضا خاصا لفيلم الوردة البيضاء في دار سينما رويال بالقاهرة"
	d := NewDetector(DefaultThresholds(), 3)
	results := d.Detect(pages(base+" انتظرونا الأسبوع المقبل", base+" ذيل الصفحة", base+" ذيل الصفحة"))

	require.Len(t, results, 3)
	assert.Equal(t, 1, results[0].PageIndex1)
	assert.Equal(t, 2, results[0].PageIndex2)

	chains := GroupChains(results)
	require.Len(t, chains, 1)
	assert.Equal(t, []int{0, 1, 2}, chains[0].PageIndexes)

	assert.Equal(t, []int{1, 2}, SuggestRemovals(ByPageOrder(results)))
	assert.Equal(t, []int{2}, SuggestRemovals(results), "similarity order keeps both 0 and 1")
}

func TestDetect_SkipsBlankPages(t *testing.T) {
	d := NewDetector(DefaultThresholds(), 3)
	results := d.Detect(pages("", "   \n", cover, ""))
	assert.Empty(t, results)

	results = d.Detect(pages(cover, "  ", cover))
	require.Len(t, results, 1)
	assert.Equal(t, 0, results[0].PageIndex1)
	assert.Equal(t, 2, results[0].PageIndex2)
}

func TestDetect_SortedBySimilarityDescending(t *testing.T) {
	a := "abcdefghijklmnopqrstuvwxyz"
	d := NewDetector(DefaultThresholds(), 3)
	results := d.Detect(pages(a, "0123456789", a+"AB", a))

	require.Len(t, results, 3)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Similarity, results[i].Similarity)
	}
	assert.Equal(t, model.TierExact, results[0].Tier)
	assert.Equal(t, 0, results[0].PageIndex1)
	assert.Equal(t, 3, results[0].PageIndex2)

	ordered := ByPageOrder(results)
	assert.Equal(t, 0, ordered[0].PageIndex1)
	assert.Equal(t, 2, ordered[0].PageIndex2)
	assert.Equal(t, 2, ordered[2].PageIndex1)
}

func TestDetect_Empty(t *testing.T) {
	d := NewDetector(DefaultThresholds(), 3)
	assert.Empty(t, d.Detect(nil))
	assert.Empty(t, d.Detect(pages(cover)))
}

func TestFromConfig(t *testing.T) {
	cfg := model.DefaultConfig().Duplicates
	cfg.Similar = 0.99
	cfg.NearDuplicate = 0.99
	cfg.Exact = 0.995
	d := FromConfig(cfg)

	a := "abcdefghijklmnopqrstuvwxyz"
	assert.Empty(t, d.Detect(pages(a, a+"AB")))
}

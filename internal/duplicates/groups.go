package duplicates

import (
	"sort"

	"github.com/ppiankov/majalla/internal/model"
)

// SuggestRemovals walks pairs in the order given, keeping the first page of
// each pair and marking the second for removal. A page already kept is never
// removed by a later pair, and a pair whose first page is already marked for
// removal is skipped. Returns page positions in ascending order.
//
// Pairs are deliberately not re-sorted by similarity, which can retain a
// lower-quality copy; use ByPageOrder to get generation order.
func SuggestRemovals(results []model.DuplicateResult) []int {
	keep := make(map[int]bool)
	remove := make(map[int]bool)

	for _, r := range results {
		if remove[r.PageIndex1] || keep[r.PageIndex2] {
			continue
		}
		keep[r.PageIndex1] = true
		remove[r.PageIndex2] = true
	}

	out := make([]int, 0, len(remove))
	for idx := range remove {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// GroupChains unions duplicate pairs into connected components. Each chain
// lists its pages in position order; chains are ordered by their first page.
func GroupChains(results []model.DuplicateResult) []model.DuplicateChain {
	uf := newUnionFind()
	ids := make(map[int]string)
	for _, r := range results {
		uf.union(r.PageIndex1, r.PageIndex2)
		ids[r.PageIndex1] = r.ID1
		ids[r.PageIndex2] = r.ID2
	}

	members := make(map[int][]int)
	for idx := range ids {
		root := uf.find(idx)
		members[root] = append(members[root], idx)
	}

	chains := make([]model.DuplicateChain, 0, len(members))
	for _, idxs := range members {
		sort.Ints(idxs)
		chain := model.DuplicateChain{
			PageIndexes: idxs,
			IDs:         make([]string, len(idxs)),
		}
		for i, idx := range idxs {
			chain.IDs[i] = ids[idx]
		}
		chains = append(chains, chain)
	}

	sort.Slice(chains, func(a, b int) bool {
		return chains[a].PageIndexes[0] < chains[b].PageIndexes[0]
	})
	return chains
}

type unionFind struct {
	parent map[int]int
}

func newUnionFind() *unionFind {
	return &unionFind{parent: make(map[int]int)}
}

func (u *unionFind) find(x int) int {
	if _, ok := u.parent[x]; !ok {
		u.parent[x] = x
	}
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	// Lower position becomes the root so roots are stable
	if rb < ra {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
}

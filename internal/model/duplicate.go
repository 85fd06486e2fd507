package model

import "fmt"

// Page is one page of OCR text inside a document collection
type Page struct {
	DocumentID string `json:"documentId"`
	PageIndex  int    `json:"pageIndex"`
	Text       string `json:"text"`
}

// Key identifies the page across a collection
func (p Page) Key() string {
	if p.DocumentID == "" {
		return fmt.Sprintf("p%d", p.PageIndex)
	}
	return fmt.Sprintf("%s/p%d", p.DocumentID, p.PageIndex)
}

// DuplicateTier classifies how close two pages are
type DuplicateTier string

const (
	TierExact         DuplicateTier = "exact"
	TierNearDuplicate DuplicateTier = "near_duplicate"
	TierSimilar       DuplicateTier = "similar"
)

// DuplicateResult is one pair of pages judged similar.
// PageIndex1 < PageIndex2 are positions in the input slice; ID1/ID2 are the page keys.
type DuplicateResult struct {
	PageIndex1 int           `json:"pageIndex1"`
	PageIndex2 int           `json:"pageIndex2"`
	ID1        string        `json:"id1"`
	ID2        string        `json:"id2"`
	Similarity float64       `json:"similarity"`
	Tier       DuplicateTier `json:"tier"`
}

// DuplicateChain is a connected group of pages linked by duplicate relations
type DuplicateChain struct {
	PageIndexes []int    `json:"pageIndexes"`
	IDs         []string `json:"ids"`
}

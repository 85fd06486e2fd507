package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/majalla/internal/duplicates"
	"github.com/ppiankov/majalla/internal/extract"
	"github.com/ppiankov/majalla/internal/model"
)

var (
	dupsJSON            string
	dupsSimilarityOrder bool
)

// dupsCmd represents the dups command
var dupsCmd = &cobra.Command{
	Use:   "dups <dir>",
	Short: "Find duplicate pages in a scanned issue",
	Long: `Dups compares every pair of pages in a directory (*.txt, *.html, *.hocr,
in name order) and reports pairs at or above the similar threshold,
the chains of mutually duplicated pages, and which pages to remove.
Removals walk pairs in page order so the earliest copy is kept.

Example:
  majalla dups ./issues/kawakib-1932-01
  majalla dups ./issues/kawakib-1932-01 --json dups.json --similarity-order`,
	Args: cobra.ExactArgs(1),
	RunE: runDups,
}

func init() {
	rootCmd.AddCommand(dupsCmd)

	dupsCmd.Flags().StringVar(&dupsJSON, "json", "", "write the report as JSON to this path ('-' for stdout)")
	dupsCmd.Flags().BoolVar(&dupsSimilarityOrder, "similarity-order", false, "pick removals by similarity instead of page order")
}

// dupsReport is the JSON form of a duplicate scan
type dupsReport struct {
	Pages    int                     `json:"pages"`
	Pairs    []model.DuplicateResult `json:"pairs"`
	Chains   []model.DuplicateChain  `json:"chains"`
	Removals []string                `json:"removals"`
}

func scanDuplicates(pages []model.Page, cfg model.DuplicatesConfig, similarityOrder bool) dupsReport {
	pairs := duplicates.FromConfig(cfg).Detect(pages)

	ordered := duplicates.ByPageOrder(pairs)
	if similarityOrder {
		ordered = pairs
	}

	removals := []string{}
	for _, idx := range duplicates.SuggestRemovals(ordered) {
		removals = append(removals, pages[idx].Key())
	}

	return dupsReport{
		Pages:    len(pages),
		Pairs:    pairs,
		Chains:   duplicates.GroupChains(pairs),
		Removals: removals,
	}
}

func runDups(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	pages, err := extract.LoadPages(args[0])
	if err != nil {
		return err
	}

	report := scanDuplicates(pages, cfg.Duplicates, dupsSimilarityOrder)

	if dupsJSON != "" {
		path := dupsJSON
		if path == "-" {
			path = ""
		}
		return writeJSON(path, report)
	}

	banner(os.Stdout, fmt.Sprintf("Duplicate Pages (%d pages)", report.Pages))

	if len(report.Pairs) == 0 {
		fmt.Printf("%s no duplicate pages\n\n", okMark("✓"))
		return nil
	}

	for _, pair := range report.Pairs {
		fmt.Printf("  %-16s %s ↔ %s  %.2f\n", pair.Tier, pair.ID1, pair.ID2, pair.Similarity)
	}
	fmt.Println()
	for i, chain := range report.Chains {
		fmt.Printf("  chain %d: %v\n", i+1, chain.IDs)
	}
	fmt.Println()
	for _, id := range report.Removals {
		fmt.Printf("%s remove %s\n", failMark("✗"), id)
	}
	fmt.Println()

	return nil
}

package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/majalla/internal/apply"
	"github.com/ppiankov/majalla/internal/extract"
	"github.com/ppiankov/majalla/internal/model"
)

var (
	applyOut        string
	applyAllPending bool
)

// applyCmd represents the apply command
var applyCmd = &cobra.Command{
	Use:   "apply <text-file> <corrections.json>",
	Short: "Apply reviewed corrections to a page",
	Long: `Apply rewrites a page with the corrections whose status is approved or
deleted. The corrections file holds either a detection result (as written
by 'majalla detect') or a bare array of corrections.

Example:
  majalla apply page-004.txt page-004.json --out page-004.fixed.txt`,
	Args: cobra.ExactArgs(2),
	RunE: runApply,
}

func init() {
	rootCmd.AddCommand(applyCmd)

	applyCmd.Flags().StringVar(&applyOut, "out", "", "output text path (default: stdout)")
	applyCmd.Flags().BoolVar(&applyAllPending, "approve-pending", false, "treat pending corrections as approved")
}

func runApply(cmd *cobra.Command, args []string) error {
	text, err := extract.LoadFile(args[0])
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("read corrections: %w", err)
	}
	corrections, err := parseCorrections(data)
	if err != nil {
		return err
	}

	if applyAllPending {
		for i := range corrections {
			if corrections[i].Status == model.StatusPending || corrections[i].Status == "" {
				corrections[i].Status = model.StatusApproved
			}
		}
	}

	out, skipped := apply.ApplyReport(text, corrections)
	for _, c := range skipped {
		fmt.Fprintf(os.Stderr, "%s skipped %s [%d,%d): span out of range or overlapping\n",
			warnMark("!"), c.ID, c.Span.Start, c.Span.End)
	}
	fmt.Fprintf(os.Stderr, "%s applied %d of %d corrections\n",
		okMark("✓"), len(apply.Selected(corrections))-len(skipped), len(corrections))

	return writeText(applyOut, out)
}

// parseCorrections accepts a detection result object or a bare correction array
func parseCorrections(data []byte) ([]model.Correction, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var corrections []model.Correction
		if err := json.Unmarshal(trimmed, &corrections); err != nil {
			return nil, fmt.Errorf("decode corrections: %w", err)
		}
		return corrections, nil
	}

	var result model.DetectionResult
	if err := json.Unmarshal(trimmed, &result); err != nil {
		return nil, fmt.Errorf("decode detection result: %w", err)
	}
	return result.Corrections, nil
}

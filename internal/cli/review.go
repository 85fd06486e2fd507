package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ppiankov/majalla/internal/apply"
	"github.com/ppiankov/majalla/internal/model"
	"github.com/ppiankov/majalla/internal/store"
)

var reviewOut string

// reviewCmd represents the review command
var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review stored corrections",
	Long: `Review lists stored detection results, records reviewer decisions and
applies the approved corrections.

Statuses: pending, approved, rejected, deleted. Only approved and deleted
corrections are applied.

Example:
  majalla review list
  majalla review list page-004
  majalla review set page-004 3f2c... approved
  majalla review apply page-004 --out page-004.fixed.txt`,
}

var reviewListCmd = &cobra.Command{
	Use:   "list [document]",
	Short: "List documents, or the corrections of one document",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, db *store.Store) error {
			if len(args) == 0 {
				return listDocuments(ctx, db)
			}
			return listCorrections(ctx, db, args[0])
		})
	},
}

var reviewSetCmd = &cobra.Command{
	Use:   "set <document> <id> <status>",
	Short: "Set the status of a correction or formatting change",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		status, ok := model.ParseStatus(args[2])
		if !ok {
			return fmt.Errorf("invalid status %q (pending, approved, rejected, deleted)", args[2])
		}
		return withStore(func(ctx context.Context, db *store.Store) error {
			if err := db.SetStatus(ctx, args[0], args[1], status); err != nil {
				return err
			}
			fmt.Printf("%s %s/%s → %s\n", okMark("✓"), args[0], args[1], status)
			return nil
		})
	},
}

var reviewApplyCmd = &cobra.Command{
	Use:   "apply <document>",
	Short: "Apply approved corrections and save a new revision",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, db *store.Store) error {
			return applyStored(ctx, db, args[0])
		})
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)
	reviewCmd.AddCommand(reviewListCmd, reviewSetCmd, reviewApplyCmd)

	reviewCmd.PersistentFlags().StringVar(&dbPath, "db", "", "review database path (default: store.path)")
	reviewApplyCmd.Flags().StringVar(&reviewOut, "out", "", "also write the applied text to this path ('-' for stdout)")
}

// withStore opens the configured review store for the duration of fn
func withStore(fn func(context.Context, *store.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path := cfg.Store.Path
	if dbPath != "" {
		path = dbPath
	}

	ctx := context.Background()
	db, err := store.Open(ctx, path, slog.Default())
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	return fn(ctx, db)
}

func listDocuments(ctx context.Context, db *store.Store) error {
	docs, err := db.Documents(ctx)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Println("No documents stored")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DOCUMENT\tREVISION\tMODEL\tCOST\tDETECTED")
	for _, d := range docs {
		fmt.Fprintf(w, "%s\t%d\t%s\t$%.4f\t%s\n", d.ID, d.Revision, d.Provenance.ModelUsed,
			d.Provenance.Cost, d.DetectedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func listCorrections(ctx context.Context, db *store.Store, documentID string) error {
	result, err := db.Result(ctx, documentID)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tSPAN\tORIGINAL\tCORRECTED\tCONFIDENCE")
	for _, c := range result.Corrections {
		fmt.Fprintf(w, "%s\t%s\t[%d,%d)\t%s\t%s\t%.2f\n", c.ID, c.Status,
			c.Span.Start, c.Span.End, c.Original, c.Replacement, c.Confidence)
	}
	for _, f := range result.FormattingChanges {
		fmt.Fprintf(w, "%s\t%s\t[%d,%d)\t%s\t(%s)\t\n", f.ID, f.Status,
			f.Span.Start, f.Span.End, f.Text, f.Kind)
	}
	return w.Flush()
}

func applyStored(ctx context.Context, db *store.Store, documentID string) error {
	doc, err := db.Document(ctx, documentID)
	if err != nil {
		return err
	}
	approved, err := db.ApprovedCorrections(ctx, documentID)
	if err != nil {
		return err
	}

	// Spans refer to the source text the corrections were detected on
	text, skipped := apply.ApplyReport(doc.Source, approved)
	for _, c := range skipped {
		fmt.Fprintf(os.Stderr, "%s skipped %s [%d,%d)\n", warnMark("!"), c.ID, c.Span.Start, c.Span.End)
	}

	revision, err := db.SaveAppliedText(ctx, documentID, text)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%s %s: applied %d corrections (revision %d)\n",
		okMark("✓"), documentID, len(approved)-len(skipped), revision)

	switch reviewOut {
	case "":
		return nil
	case "-":
		return writeText("", text)
	default:
		return writeText(reviewOut, text)
	}
}

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/majalla/internal/extract"
	"github.com/ppiankov/majalla/internal/store"
	"github.com/ppiankov/majalla/internal/worker"
)

var (
	batchSize    int
	batchDelay   time.Duration
	batchTimeout time.Duration
	dbPath       string
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <dir|list-file>",
	Short: "Detect corrections for many pages and store them for review",
	Long: `Batch runs detection over every page in a directory, or over the paths
listed in a file (one per line, '#' comments allowed).

Pages are sent in fixed-size batches; pages in a batch run concurrently
and a delay separates batches to respect the service's rate limit. A
failing page is reported and skipped. Ctrl-C stops scheduling new
batches and lets the running one finish.

Results are saved to the review store (see 'majalla review').

Example:
  majalla batch ./issues/kawakib-1932-01
  majalla batch pages.txt --size 3 --delay 5s --db review.db`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&batchSize, "size", 0, "pages per batch (default: batch.size)")
	batchCmd.Flags().DurationVar(&batchDelay, "delay", 0, "delay between batches (default: batch.delay)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", time.Hour, "stop scheduling batches after this long")
	addStoreFlag(batchCmd)
	addLLMFlags(batchCmd)
}

// addStoreFlag registers the review database flag
func addStoreFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&dbPath, "db", "", "review database path (default: store.path)")
}

// batchPaths expands the argument into page paths
func batchPaths(arg string) ([]string, error) {
	info, err := os.Stat(arg)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", arg, err)
	}
	if info.IsDir() {
		return extract.PageFiles(arg)
	}
	return worker.ReadPathList(arg)
}

func loadDocuments(paths []string) ([]worker.Document, error) {
	docs := make([]worker.Document, 0, len(paths))
	for _, path := range paths {
		text, err := extract.LoadFile(path)
		if err != nil {
			return nil, err
		}
		docs = append(docs, worker.Document{
			ID:   extract.DocumentID(path),
			Path: path,
			Text: text,
		})
	}
	return docs, nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	logger := slog.Default()

	p, cfg, err := buildPipeline(logger)
	if err != nil {
		return err
	}
	if batchSize > 0 {
		cfg.Batch.Size = batchSize
	}
	if cmd.Flags().Changed("delay") {
		cfg.Batch.Delay = batchDelay
	}
	if dbPath != "" {
		cfg.Store.Path = dbPath
	}

	paths, err := batchPaths(args[0])
	if err != nil {
		return err
	}
	docs, err := loadDocuments(paths)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	db, err := store.Open(ctx, cfg.Store.Path, logger)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	banner(os.Stderr, "Majalla Batch Detection")
	fmt.Fprintf(os.Stderr, "  Input:        %s\n", args[0])
	fmt.Fprintf(os.Stderr, "  Pages:        %d\n", len(docs))
	fmt.Fprintf(os.Stderr, "  Batch size:   %d\n", cfg.Batch.Size)
	fmt.Fprintf(os.Stderr, "  Delay:        %v\n", cfg.Batch.Delay)
	fmt.Fprintf(os.Stderr, "  Service:      %s/%s\n", p.ProviderName(), cfg.LLM.Model)
	fmt.Fprintf(os.Stderr, "  Store:        %s\n", cfg.Store.Path)
	fmt.Fprintln(os.Stderr)

	processor := worker.NewBatchProcessorFromConfig(p, cfg.Batch)
	processor.LimiterKey = p.ProviderName()
	processor.Logger = logger
	processor.OnResult = func(doc worker.Document, res *worker.DocumentResult) {
		if res.Err != nil {
			fmt.Fprintf(os.Stderr, "%s %s: %v\n", failMark("✗"), doc.ID, res.Err)
			return
		}
		// Saving uses a fresh context so an interrupt does not lose finished work
		if err := db.SaveDetection(context.WithoutCancel(ctx), doc.ID, doc.Path, doc.Text, res.Result); err != nil {
			fmt.Fprintf(os.Stderr, "%s %s: save failed: %v\n", failMark("✗"), doc.ID, err)
			return
		}
		fmt.Fprintf(os.Stderr, "%s %s (%d corrections, %s)\n",
			okMark("✓"), doc.ID, len(res.Result.Corrections), res.Duration.Round(time.Millisecond))
	}

	report := processor.ProcessDocuments(ctx, docs)

	banner(os.Stderr, "Batch Complete")
	fmt.Fprintf(os.Stderr, "  Run:       %s\n", report.RunID)
	fmt.Fprintf(os.Stderr, "  Total:     %d pages\n", len(docs))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", report.Processed)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", report.Failed)
	fmt.Fprintf(os.Stderr, "  Cost:      $%.4f\n", report.TotalCost)
	fmt.Fprintf(os.Stderr, "  Duration:  %v\n", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	if report.Cancelled {
		fmt.Fprintf(os.Stderr, "  %s stopped early; %d pages not scheduled\n",
			warnMark("!"), len(docs)-report.Processed-report.Failed)
	}
	fmt.Fprintln(os.Stderr)

	return nil
}

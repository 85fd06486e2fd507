package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/majalla/internal/extract"
	"github.com/ppiankov/majalla/internal/llm"
	"github.com/ppiankov/majalla/internal/model"
	"github.com/ppiankov/majalla/internal/pipeline"
)

var (
	detectOut      string
	detectOutcomes bool
	detectTimeout  time.Duration
	llmProvider    string
	llmModel       string
	noCache        bool
)

// detectCmd represents the detect command
var detectCmd = &cobra.Command{
	Use:   "detect <file>",
	Short: "Propose verified OCR corrections for one page",
	Long: `Detect sends a page's text to the configured correction service and
prints the corrections that survived verification against the source.

Proposals below the confidence threshold, at positions that do not hold
the claimed text, or overlapping an earlier accepted proposal are dropped.

Example:
  majalla detect page-004.txt
  majalla detect page-004.hocr --out page-004.json
  majalla detect page-004.txt --llm-provider ollama --llm-model llama3.1`,
	Args: cobra.ExactArgs(1),
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)

	detectCmd.Flags().StringVar(&detectOut, "out", "", "output JSON path (default: stdout)")
	detectCmd.Flags().BoolVar(&detectOutcomes, "outcomes", false, "print every proposal with its validation verdict to stderr")
	detectCmd.Flags().DurationVar(&detectTimeout, "timeout", 5*time.Minute, "overall detection timeout")
	addLLMFlags(detectCmd)
}

// addLLMFlags registers the service selection flags shared by detect and batch
func addLLMFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&llmProvider, "llm-provider", "", "correction service (openai, anthropic, ollama)")
	cmd.Flags().StringVar(&llmModel, "llm-model", "", "correction service model name")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the detection result cache")
}

// buildPipeline loads config, applies flag overrides and wires the pipeline
func buildPipeline(logger *slog.Logger) (*pipeline.Pipeline, *model.Config, error) {
	cfg, err := decodeConfig()
	if err != nil {
		return nil, nil, err
	}

	if llmProvider != "" && llmProvider != cfg.LLM.Provider {
		cfg.LLM.Provider = llmProvider
		cfg.LLM.APIKey = ""
	}
	if llmModel != "" {
		cfg.LLM.Model = llmModel
	}
	resolveProviderEnv(cfg)

	if noCache {
		cfg.Cache.Enabled = false
	}

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		return nil, nil, fmt.Errorf("create provider: %w", err)
	}
	if provider == nil {
		return nil, nil, fmt.Errorf("no correction service configured (set llm.provider or --llm-provider): %w", pipeline.ErrNoProvider)
	}

	return pipeline.NewFromConfig(cfg, provider, logger), cfg, nil
}

func runDetect(cmd *cobra.Command, args []string) error {
	path := args[0]
	logger := slog.Default()

	text, err := extract.LoadFile(path)
	if err != nil {
		return err
	}

	p, _, err := buildPipeline(logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), detectTimeout)
	defer cancel()

	detection, err := p.Detect(ctx, text)
	if err != nil {
		return fmt.Errorf("detect failed: %w", err)
	}

	if detectOutcomes {
		for _, o := range detection.Outcomes {
			if o.Accepted {
				fmt.Fprintf(os.Stderr, "%s %s [%d,%d) %q → %q\n", okMark("✓"), o.Correction.ID,
					o.ResolvedSpan.Start, o.ResolvedSpan.End, o.Correction.Original, o.Correction.Replacement)
				continue
			}
			fmt.Fprintf(os.Stderr, "%s %s %q: %s\n", failMark("✗"), o.Correction.ID, o.Correction.Original, o.Reason)
		}
	}

	result := detection.Result
	fmt.Fprintf(os.Stderr, "%s %d corrections, %d formatting changes (%s, repair: %s, cost: $%.4f)\n",
		okMark("✓"), len(result.Corrections), len(result.FormattingChanges),
		p.ProviderName(), result.Provenance.Repair, result.Provenance.Cost)
	if result.Provenance.Truncated {
		fmt.Fprintf(os.Stderr, "%s input was truncated before submission\n", warnMark("!"))
	}

	return writeJSON(detectOut, result)
}

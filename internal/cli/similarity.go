package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/majalla/internal/extract"
	"github.com/ppiankov/majalla/internal/similarity"
)

// similarityCmd represents the similarity command
var similarityCmd = &cobra.Command{
	Use:   "similarity <file-a> <file-b>",
	Short: "Score how similar two pages are",
	Long: `Similarity prints the token-set, character n-gram and combined
similarity of two pages, each in [0,1].`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		a, err := extract.LoadFile(args[0])
		if err != nil {
			return err
		}
		b, err := extract.LoadFile(args[1])
		if err != nil {
			return err
		}

		score := similarity.NewEngine(cfg.Duplicates.NGramSize).CompareText(a, b)
		fmt.Printf("token:    %.4f\n", score.Token)
		fmt.Printf("ngram:    %.4f\n", score.NGram)
		fmt.Printf("combined: %.4f\n", score.Combined)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(similarityCmd)
}

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"chess_review/internal/domain"
	"chess_review/internal/usecase/analysis"
)

func init() {
	var (
		fen     string
		depth   int
		elo     int
		multiPV int
		moves   []string
	)
	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "Search a single position",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := domain.AnalysisRequest{
				Position:        fen,
				SearchDepth:     depth,
				MultiPV:         multiPV,
				RestrictToMoves: moves,
			}
			if cmd.Flags().Changed("elo") {
				req.EloLimit = &elo
			}
			return engineSession(cmd.Context(), func(ctx context.Context, uc *analysis.AnalysisUseCase, _ *zap.SugaredLogger) error {
				res, err := uc.Analyze(ctx, req)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if jsonOutput(out) {
					return writeJSON(out, res)
				}
				printAnalysis(out, res)
				return nil
			})
		},
	}
	analyzeCmd.Flags().StringVar(&fen, "fen", "startpos", "position to analyze")
	analyzeCmd.Flags().IntVar(&depth, "depth", 0, "search depth (default from config)")
	analyzeCmd.Flags().IntVar(&elo, "elo", 0, "limit engine strength to this rating")
	analyzeCmd.Flags().IntVar(&multiPV, "multipv", 1, "number of lines to report")
	analyzeCmd.Flags().StringSliceVar(&moves, "move", nil, "restrict the search to these moves")
	rootCmd.AddCommand(analyzeCmd)
}

func printAnalysis(w io.Writer, res domain.AnalysisResult) {
	fmt.Fprintf(w, "bestmove %s\n", res.BestMove)
	for _, line := range res.Lines {
		score := "?"
		if line.Score != nil {
			score = line.Score.String()
		}
		fmt.Fprintf(w, "  %d. [%s] depth %d  %s\n", max(line.MultiPV, 1), score, line.Depth, strings.Join(line.PV, " "))
	}
}

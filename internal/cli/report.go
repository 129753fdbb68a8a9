package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"chess_review/internal/chessrules"
	"chess_review/internal/domain/report"
	"chess_review/internal/export"
	"chess_review/internal/usecase/analysis"
	"chess_review/internal/usecase/grading"
	reportUC "chess_review/internal/usecase/report"
)

type reportOptions struct {
	pgnPath     string
	depth       int
	elo         int
	multiPV     int
	parquetPath string
	pdfPath     string
}

func init() {
	var opts reportOptions
	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Review every game of a PGN file",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(opts.pgnPath)
			if err != nil {
				return err
			}
			games, err := chessrules.ScanPGN(f)
			f.Close()
			if err != nil {
				return err
			}
			if len(games) == 0 {
				return fmt.Errorf("no games in %s", opts.pgnPath)
			}

			var elo *int
			if cmd.Flags().Changed("elo") {
				elo = &opts.elo
			}
			return engineSession(cmd.Context(), func(ctx context.Context, uc *analysis.AnalysisUseCase, log *zap.SugaredLogger) error {
				reps, err := reviewGames(ctx, grading.NewGrader(uc, chessrules.Resolver{}, opts.multiPV, log), games, opts.depth, elo)
				if err != nil {
					return err
				}
				return writeReports(cmd.OutOrStdout(), reps, opts)
			})
		},
	}
	reportCmd.Flags().StringVar(&opts.pgnPath, "pgn", "", "PGN file with one or more games")
	reportCmd.Flags().IntVar(&opts.depth, "depth", 12, "search depth per position")
	reportCmd.Flags().IntVar(&opts.elo, "elo", 0, "limit engine strength to this rating")
	reportCmd.Flags().IntVar(&opts.multiPV, "multipv", grading.DefaultMultiPV, "lines searched for only-move detection")
	reportCmd.Flags().StringVar(&opts.parquetPath, "parquet", "", "write per-ply rows of all games to this file")
	reportCmd.Flags().StringVar(&opts.pdfPath, "pdf", "", "write a PDF per game, numbered when there are several")
	_ = reportCmd.MarkFlagRequired("pgn")
	rootCmd.AddCommand(reportCmd)
}

// reviewGames grades the games one after another through the shared engine.
func reviewGames(ctx context.Context, grader reportUC.GameGrader, games []chessrules.Game, depth int, elo *int) ([]report.Report, error) {
	reps := make([]report.Report, 0, len(games))
	for i, g := range games {
		if len(g.MoveTexts) == 0 {
			continue
		}
		grades, err := grader.GradeGame(ctx, grading.Input{
			StartPosition: g.StartFEN,
			Positions:     g.Positions,
			MoveTexts:     g.MoveTexts,
			Depth:         depth,
			Elo:           elo,
		}, nil)
		if err != nil {
			return reps, fmt.Errorf("game %d: %w", i+1, err)
		}
		rep := reportUC.Assemble(g.StartFEN, depth, elo, g.Positions, g.MoveTexts, grades)
		rep.ID = fmt.Sprintf("game-%d", i+1)
		reps = append(reps, rep)
	}
	return reps, nil
}

func writeReports(out io.Writer, reps []report.Report, opts reportOptions) error {
	if opts.parquetPath != "" {
		if err := export.WriteParquet(opts.parquetPath, reps...); err != nil {
			return err
		}
	}
	if opts.pdfPath != "" {
		for i, rep := range reps {
			if err := export.WritePDFFile(numberedPath(opts.pdfPath, i, len(reps)), rep); err != nil {
				return err
			}
		}
	}

	if jsonOutput(out) {
		return writeJSON(out, reps)
	}
	for _, rep := range reps {
		printReport(out, rep)
	}
	return nil
}

// numberedPath inserts a 1-based index before the extension when more than
// one file is written.
func numberedPath(path string, i, total int) string {
	if total <= 1 {
		return path
	}
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(path, ext), i+1, ext)
}

func printReport(w io.Writer, rep report.Report) {
	fmt.Fprintf(w, "%s: %d plies, accuracy %.1f%%\n", rep.ID, len(rep.PerPly), rep.Accuracy)
	if rep.Aggregates != nil {
		o := rep.Aggregates.Overall
		fmt.Fprintf(w, "  white acpl %.1f accuracy %.1f%% | black acpl %.1f accuracy %.1f%%\n",
			o.White.AvgCentipawnLoss, o.White.AccuracyPercent, o.Black.AvgCentipawnLoss, o.Black.AccuracyPercent)
	}
	for _, g := range rep.PerPly {
		if g.Tag.Rank() < report.TagInaccuracy.Rank() {
			continue
		}
		move := ""
		if g.Ply-1 < len(rep.MoveTexts) {
			move = rep.MoveTexts[g.Ply-1]
		}
		fmt.Fprintf(w, "  ply %3d %-7s %-10s cpl %4d best %s\n", g.Ply, move+g.Symbol, g.Tag, g.CentipawnLoss, g.BestMove)
	}
}

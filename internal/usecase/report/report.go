package report

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"chess_review/internal/domain"
	"chess_review/internal/domain/puzzle"
	"chess_review/internal/domain/report"
	errs "chess_review/internal/errors"
	"chess_review/internal/usecase/aggregate"
	"chess_review/internal/usecase/grading"
)

const puzzleSolutionPlies = 4

type ReportStore interface {
	CreateReport(ctx context.Context, rep report.Report) (string, error)
	GetReport(ctx context.Context, id string) (report.Report, error)
	GetLatestReport(ctx context.Context) (report.Report, error)
	UpdateGrades(ctx context.Context, id string, grades []report.PlyGrade, agg report.Aggregates) error
}

type PuzzleStore interface {
	CreatePuzzle(ctx context.Context, pz puzzle.Puzzle) (string, error)
}

type GameGrader interface {
	GradeGame(ctx context.Context, in grading.Input, emit func(report.PlyGrade)) ([]report.PlyGrade, error)
}

type ReportUseCase struct {
	grader       GameGrader
	store        ReportStore
	puzzles      PuzzleStore
	defaultDepth int
	log          *zap.SugaredLogger
}

func NewReportUseCase(grader GameGrader, store ReportStore, puzzles PuzzleStore, defaultDepth int, log *zap.SugaredLogger) *ReportUseCase {
	if defaultDepth <= 0 {
		defaultDepth = 12
	}
	return &ReportUseCase{
		grader:       grader,
		store:        store,
		puzzles:      puzzles,
		defaultDepth: defaultDepth,
		log:          log,
	}
}

// Generate grades a game, stores the report and returns it. emit receives
// each ply's grade as it is produced and may be nil.
func (u *ReportUseCase) Generate(ctx context.Context, req report.GenerateRequest, emit func(report.PlyGrade)) (report.Report, error) {
	if len(req.Positions) == 0 || len(req.MoveTexts) == 0 {
		return report.Report{}, fmt.Errorf("%w: fens and sans are required", errs.ErrInvalidInput)
	}
	depth := req.Depth
	if depth <= 0 {
		depth = u.defaultDepth
	}
	start := req.StartPosition
	if start == "" || start == "startpos" {
		start = domain.StartFEN
	}

	began := time.Now()
	grades, err := u.grader.GradeGame(ctx, grading.Input{
		StartPosition: start,
		Positions:     req.Positions,
		MoveTexts:     req.MoveTexts,
		Depth:         depth,
		Elo:           req.Elo,
	}, emit)
	if err != nil {
		return report.Report{}, err
	}

	n := len(grades)
	rep := Assemble(start, depth, req.Elo, req.Positions, req.MoveTexts, grades)

	id, err := u.store.CreateReport(ctx, rep)
	if err != nil {
		return report.Report{}, fmt.Errorf("%w: %v", errs.ErrInternal, err)
	}
	rep.ID = id
	u.log.Infof("report %s generated: %d plies at depth %d in %s", id, n, depth, time.Since(began).Round(time.Millisecond))

	u.extractPuzzles(ctx, rep)
	return rep, nil
}

// Assemble builds an unsaved report from grades, keeping only the graded
// prefix of the position and move lists.
func Assemble(start string, depth int, elo *int, positions, moveTexts []string, grades []report.PlyGrade) report.Report {
	n := len(grades)
	agg := aggregate.Summarize(grades)
	return report.Report{
		CreatedAt:     time.Now().UTC(),
		Depth:         depth,
		Elo:           elo,
		StartPosition: start,
		Positions:     append([]string(nil), positions[:n]...),
		MoveTexts:     append([]string(nil), moveTexts[:n]...),
		Evals:         Evals(grades),
		Tags:          Tags(grades),
		Accuracy:      aggregate.OverallAccuracy(grades),
		PerPly:        grades,
		Aggregates:    &agg,
	}
}

// Evals lists the engine's best score for every ply, mate saturated.
func Evals(grades []report.PlyGrade) []int {
	out := make([]int, len(grades))
	for i, g := range grades {
		if g.BestScore != nil {
			out[i] = g.BestScore.Centipawns()
		}
	}
	return out
}

func Tags(grades []report.PlyGrade) []report.Tag {
	out := make([]report.Tag, len(grades))
	for i, g := range grades {
		out[i] = g.Tag
	}
	return out
}

// extractPuzzles stores the position before every blunder, with the engine's
// line as the solution.
func (u *ReportUseCase) extractPuzzles(ctx context.Context, rep report.Report) {
	if u.puzzles == nil {
		return
	}
	for i, g := range rep.PerPly {
		if g.Tag != report.TagBlunder || g.BestMove == "" {
			continue
		}
		solution := g.BestLine
		if len(solution) == 0 {
			solution = []string{g.BestMove}
		}
		if len(solution) > puzzleSolutionPlies {
			solution = solution[:puzzleSolutionPlies]
		}
		pre := rep.StartPosition
		if i > 0 {
			pre = rep.Positions[i-1]
		}
		motif := "blunder"
		if g.Note != "" {
			motif = g.Note
		}
		pz := puzzle.Puzzle{
			FEN:      pre,
			Solution: append([]string(nil), solution...),
			Motifs:   motif,
			Source:   "report",
			ReportID: rep.ID,
		}
		if _, err := u.puzzles.CreatePuzzle(ctx, pz); err != nil {
			u.log.Warnf("failed to store puzzle from report %s ply %d: %v", rep.ID, g.Ply, err)
		}
	}
}

func (u *ReportUseCase) Get(ctx context.Context, id string) (report.Report, error) {
	if id == "" {
		return report.Report{}, fmt.Errorf("%w: missing report id", errs.ErrInvalidInput)
	}
	return u.store.GetReport(ctx, id)
}

func (u *ReportUseCase) Latest(ctx context.Context) (report.Report, error) {
	return u.store.GetLatestReport(ctx)
}

// Details returns a report with per-ply grades and aggregates, regrading and
// saving it when the stored copy has none. An empty id means the latest
// report.
func (u *ReportUseCase) Details(ctx context.Context, id string) (report.Report, error) {
	var (
		rep report.Report
		err error
	)
	if id == "" {
		rep, err = u.store.GetLatestReport(ctx)
	} else {
		rep, err = u.store.GetReport(ctx, id)
	}
	if err != nil {
		return report.Report{}, err
	}

	if len(rep.PerPly) > 0 {
		if rep.Aggregates == nil {
			agg := aggregate.Summarize(rep.PerPly)
			rep.Aggregates = &agg
		}
		return rep, nil
	}

	if len(rep.Positions) == 0 || len(rep.Positions) != len(rep.MoveTexts) {
		return report.Report{}, fmt.Errorf("%w: stored report %s has invalid move data", errs.ErrInvalidInput, rep.ID)
	}
	grades, err := u.grader.GradeGame(ctx, grading.Input{
		StartPosition: rep.StartPosition,
		Positions:     rep.Positions,
		MoveTexts:     rep.MoveTexts,
		Depth:         rep.Depth,
		Elo:           rep.Elo,
	}, nil)
	if err != nil {
		return report.Report{}, err
	}
	agg := aggregate.Summarize(grades)
	rep.PerPly = grades
	rep.Aggregates = &agg
	if err := u.store.UpdateGrades(ctx, rep.ID, grades, agg); err != nil {
		u.log.Warnf("failed to save regraded report %s: %v", rep.ID, err)
	}
	return rep, nil
}

// Package grading drives the engine over every ply of a game and grades the
// moves that were played.
package grading

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"chess_review/internal/domain"
	"chess_review/internal/domain/report"
)

const DefaultMultiPV = 2

type Analyzer interface {
	Analyze(ctx context.Context, req domain.AnalysisRequest) (domain.AnalysisResult, error)
}

// MoveResolver maps recorded move text to its wire form. next is the known
// position after the move and may be used when the text itself is unusable.
type MoveResolver interface {
	ResolvePlayedMove(pre, text, next string) (string, error)
}

type Input struct {
	StartPosition string
	Positions     []string
	MoveTexts     []string
	Depth         int
	Elo           *int
}

type Grader struct {
	analyzer Analyzer
	resolver MoveResolver
	multiPV  int
	log      *zap.SugaredLogger
}

func NewGrader(analyzer Analyzer, resolver MoveResolver, multiPV int, log *zap.SugaredLogger) *Grader {
	if multiPV < 1 {
		multiPV = DefaultMultiPV
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Grader{analyzer: analyzer, resolver: resolver, multiPV: multiPV, log: log}
}

// GradeGame grades every ply in order. Position and move text lists of
// different length are trimmed to the shorter one. emit, when set, receives
// each grade as soon as it is computed. Engine errors abort the game.
func (g *Grader) GradeGame(ctx context.Context, in Input, emit func(report.PlyGrade)) ([]report.PlyGrade, error) {
	n := len(in.Positions)
	if len(in.MoveTexts) != n {
		g.log.Warnf("position list has %d entries and move list %d, grading the first %d plies",
			len(in.Positions), len(in.MoveTexts), min(n, len(in.MoveTexts)))
		n = min(n, len(in.MoveTexts))
	}

	start := in.StartPosition
	if start == "" {
		start = domain.StartFEN
	}

	grades := make([]report.PlyGrade, 0, n)
	for i := 0; i < n; i++ {
		pre := start
		if i > 0 {
			pre = in.Positions[i-1]
		}
		grade, err := g.GradePly(ctx, i+1, pre, in.MoveTexts[i], in.Positions[i], in.Depth, in.Elo)
		if err != nil {
			return grades, fmt.Errorf("ply %d: %w", i+1, err)
		}
		grades = append(grades, grade)
		if emit != nil {
			emit(grade)
		}
	}
	return grades, nil
}

// GradePly analyzes pre twice, once freely and once restricted to the played
// move, and grades the difference.
func (g *Grader) GradePly(ctx context.Context, ply int, pre, text, next string, depth int, elo *int) (report.PlyGrade, error) {
	bestReq := domain.AnalysisRequest{Position: pre, SearchDepth: depth, EloLimit: elo, MultiPV: g.multiPV}
	best, err := g.analyzer.Analyze(ctx, bestReq)
	if err != nil {
		return report.PlyGrade{}, err
	}

	ev := Evaluation{BestMove: best.BestMove, Lines: best.Lines}
	if best.Info != nil {
		ev.Best = best.Info.Score
		ev.BestLine = best.Info.PV
	}

	played, err := g.resolver.ResolvePlayedMove(pre, text, next)
	if err != nil {
		g.log.Warnf("ply %d: %v, grading as zero loss", ply, err)
		return Grade(ply, ev, g.multiPV), nil
	}
	ev.PlayedMove = played

	playedReq := bestReq
	playedReq.RestrictToMoves = []string{played}
	res, err := g.analyzer.Analyze(ctx, playedReq)
	if err != nil {
		return report.PlyGrade{}, err
	}
	if res.Info != nil {
		ev.Played = res.Info.Score
		ev.PlayedLine = res.Info.PV
	}
	return Grade(ply, ev, g.multiPV), nil
}

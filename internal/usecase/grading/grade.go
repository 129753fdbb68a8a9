package grading

import (
	"strings"

	"chess_review/internal/domain"
	"chess_review/internal/domain/report"
)

// Policy values. They have no derivation beyond matching established review
// output and may be tuned.
const (
	// OnlyMoveWindow is how close (in centipawns) a candidate line must be to
	// the top line to count as an alternative.
	OnlyMoveWindow = 30
	// AgreementThreshold is the largest loss still counted as playing the
	// engine's move.
	AgreementThreshold = 30

	OpeningLastMove    = 12
	MiddlegameLastMove = 40
)

var tagThresholds = []struct {
	max int
	tag report.Tag
}{
	{30, report.TagBest},
	{70, report.TagExcellent},
	{150, report.TagGood},
	{300, report.TagInaccuracy},
	{600, report.TagMistake},
}

// TagForLoss maps a centipawn loss to a tag, ignoring mate information.
func TagForLoss(cpl int) report.Tag {
	for _, t := range tagThresholds {
		if cpl <= t.max {
			return t.tag
		}
	}
	return report.TagBlunder
}

// PhaseOf classifies a 1-based ply by its move number.
func PhaseOf(ply int) report.Phase {
	move := (ply + 1) / 2
	switch {
	case move <= OpeningLastMove:
		return report.PhaseOpening
	case move <= MiddlegameLastMove:
		return report.PhaseMiddlegame
	default:
		return report.PhaseEndgame
	}
}

// Evaluation is what the engine said about one ply.
type Evaluation struct {
	Best       *domain.Score
	Played     *domain.Score
	Lines      []domain.Info
	BestMove   string
	PlayedMove string
	BestLine   []string
	PlayedLine []string
}

// Grade turns an evaluation into the verdict for ply. multiPV bounds how
// many candidate lines take part in the only-move check.
func Grade(ply int, ev Evaluation, multiPV int) report.PlyGrade {
	best := domain.Score{Kind: domain.ScoreCentipawns}
	if ev.Best != nil {
		best = *ev.Best
	}
	played := best
	if ev.Played != nil {
		played = *ev.Played
	}

	cpl := best.Centipawns() - played.Centipawns()
	if cpl < 0 {
		cpl = 0
	}

	missedMate := best.IsMate() && !played.IsMate()
	var tag report.Tag
	switch {
	case missedMate:
		tag = report.TagBlunder
	case best.IsMate() && played.IsMate() && abs(played.Value) > abs(best.Value):
		tag = report.TagBlunder
	default:
		tag = TagForLoss(cpl)
	}

	agrees := cpl <= AgreementThreshold
	onlyMove := isOnlyMove(ev.Lines, multiPV)

	g := report.PlyGrade{
		Ply:            ply,
		CentipawnLoss:  cpl,
		Tag:            tag,
		AgreesWithBest: agrees,
		IsOnlyGoodMove: onlyMove,
		PlayedMove:     ev.PlayedMove,
		BestMove:       ev.BestMove,
		BestLine:       ev.BestLine,
		PlayedLine:     ev.PlayedLine,
		Phase:          PhaseOf(ply),
		Symbol:         symbol(tag, agrees, missedMate),
	}
	if ev.Best != nil {
		b := best
		g.BestScore = &b
	}
	if ev.Played != nil {
		p := played
		g.PlayedScore = &p
	}

	var notes []string
	if missedMate {
		notes = append(notes, "missed mate")
	}
	if onlyMove {
		notes = append(notes, "only move")
	}
	g.Note = strings.Join(notes, "; ")
	return g
}

// isOnlyMove reports whether exactly one of the top lines scores within the
// window of the first one.
func isOnlyMove(lines []domain.Info, multiPV int) bool {
	if multiPV > 0 && len(lines) > multiPV {
		lines = lines[:multiPV]
	}
	if len(lines) == 0 {
		return false
	}
	top := 0
	if lines[0].Score != nil {
		top = lines[0].Score.Centipawns()
	}
	near := 0
	for _, l := range lines {
		if l.Score == nil {
			continue
		}
		if abs(l.Score.Centipawns()-top) <= OnlyMoveWindow {
			near++
		}
	}
	return near == 1
}

func symbol(tag report.Tag, agrees, missedMate bool) string {
	switch {
	case missedMate || tag == report.TagBlunder:
		return "??"
	case tag == report.TagMistake:
		return "?"
	case tag == report.TagInaccuracy:
		return "?!"
	case tag == report.TagExcellent:
		return "!!"
	case (tag == report.TagBest || tag == report.TagGood) && agrees:
		return "!!"
	default:
		return "!"
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

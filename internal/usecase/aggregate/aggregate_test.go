package aggregate

import (
	"math"
	"reflect"
	"testing"

	"chess_review/internal/domain/report"
)

func grade(ply, cpl int, tag report.Tag, phase report.Phase) report.PlyGrade {
	return report.PlyGrade{Ply: ply, CentipawnLoss: cpl, Tag: tag, Phase: phase}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEmpty(t *testing.T) {
	if AvgCentipawnLoss(nil) != 0 {
		t.Fatalf("average of nothing must be 0")
	}
	if AccuracyPercent(nil) != 100 {
		t.Fatalf("accuracy of nothing must be 100")
	}
	agg := Summarize(nil)
	if agg.Overall.White.Plies != 0 || len(agg.Phases) != 3 {
		t.Fatalf("unexpected empty summary: %+v", agg)
	}
}

func TestAccuracyFormula(t *testing.T) {
	grades := []report.PlyGrade{
		grade(1, 0, report.TagBest, report.PhaseOpening),
		grade(3, 100, report.TagGood, report.PhaseOpening),
		grade(5, 200, report.TagInaccuracy, report.PhaseOpening),
	}
	// mean loss 1 pawn, 1/8 of the scale
	if got := AccuracyPercent(grades); !almostEqual(got, 87.5) {
		t.Fatalf("expected 87.5, got %v", got)
	}
	if got := AvgCentipawnLoss(grades); !almostEqual(got, 100) {
		t.Fatalf("expected 100, got %v", got)
	}
}

func TestAccuracyClamped(t *testing.T) {
	grades := []report.PlyGrade{
		grade(1, 10000, report.TagBlunder, report.PhaseOpening),
		grade(3, 10000, report.TagBlunder, report.PhaseOpening),
	}
	if got := AccuracyPercent(grades); got != 0 {
		t.Fatalf("expected clamp to 0, got %v", got)
	}
	for cpl := 0; cpl <= 20000; cpl += 333 {
		a := AccuracyPercent([]report.PlyGrade{grade(1, cpl, report.TagBest, report.PhaseOpening)})
		if a < 0 || a > 100 {
			t.Fatalf("accuracy %v out of range for loss %d", a, cpl)
		}
	}
}

func TestParitySplit(t *testing.T) {
	grades := []report.PlyGrade{
		grade(1, 10, report.TagBest, report.PhaseOpening),
		grade(2, 400, report.TagMistake, report.PhaseOpening),
		grade(3, 30, report.TagBest, report.PhaseOpening),
		grade(4, 800, report.TagBlunder, report.PhaseOpening),
	}
	b := Bucket(grades)
	if b.White.Plies != 2 || b.Black.Plies != 2 {
		t.Fatalf("unexpected split: %+v", b)
	}
	if !almostEqual(b.White.AvgCentipawnLoss, 20) || !almostEqual(b.Black.AvgCentipawnLoss, 600) {
		t.Fatalf("unexpected averages: white %v black %v", b.White.AvgCentipawnLoss, b.Black.AvgCentipawnLoss)
	}
	if b.White.TagCounts[report.TagBest] != 2 || b.Black.TagCounts[report.TagBlunder] != 1 {
		t.Fatalf("unexpected side histograms: %+v %+v", b.White.TagCounts, b.Black.TagCounts)
	}
	if b.TagCounts[report.TagMistake] != 1 || b.TagCounts[report.TagExcellent] != 0 {
		t.Fatalf("unexpected bucket histogram: %+v", b.TagCounts)
	}
	if _, ok := b.TagCounts[report.TagExcellent]; !ok {
		t.Fatalf("histogram should list every tag")
	}
}

func TestPhaseBuckets(t *testing.T) {
	grades := []report.PlyGrade{
		grade(1, 0, report.TagBest, report.PhaseOpening),
		grade(30, 100, report.TagGood, report.PhaseMiddlegame),
		grade(31, 700, report.TagBlunder, report.PhaseMiddlegame),
		grade(90, 50, report.TagExcellent, report.PhaseEndgame),
	}
	agg := Summarize(grades)
	if agg.Phases[report.PhaseOpening].White.Plies != 1 {
		t.Fatalf("opening bucket wrong: %+v", agg.Phases[report.PhaseOpening])
	}
	mid := agg.Phases[report.PhaseMiddlegame]
	if mid.White.Plies != 1 || mid.Black.Plies != 1 || mid.TagCounts[report.TagBlunder] != 1 {
		t.Fatalf("middlegame bucket wrong: %+v", mid)
	}
	if agg.Phases[report.PhaseEndgame].Black.Plies != 1 {
		t.Fatalf("endgame bucket wrong: %+v", agg.Phases[report.PhaseEndgame])
	}
	if agg.Overall.White.Plies+agg.Overall.Black.Plies != 4 {
		t.Fatalf("overall bucket wrong: %+v", agg.Overall)
	}
}

func TestSummarizeIdempotent(t *testing.T) {
	grades := []report.PlyGrade{
		grade(1, 12, report.TagBest, report.PhaseOpening),
		grade(2, 95, report.TagGood, report.PhaseOpening),
		grade(27, 320, report.TagMistake, report.PhaseMiddlegame),
	}
	first := Summarize(grades)
	second := Summarize(grades)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("summaries differ:\n%+v\n%+v", first, second)
	}
}

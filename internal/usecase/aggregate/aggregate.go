// Package aggregate folds per-ply grades into side and phase statistics.
// Everything here is a pure function of its input.
package aggregate

import (
	"math"

	"chess_review/internal/domain/report"
)

// AccuracyDivisorPawns is the average loss, in pawns, that maps to zero
// accuracy.
const AccuracyDivisorPawns = 8.0

// AvgCentipawnLoss is the mean loss, 0 for no grades.
func AvgCentipawnLoss(grades []report.PlyGrade) float64 {
	if len(grades) == 0 {
		return 0
	}
	sum := 0
	for _, g := range grades {
		sum += g.CentipawnLoss
	}
	return float64(sum) / float64(len(grades))
}

// AccuracyPercent is 100 minus the average loss in pawns scaled by the
// divisor, clamped to [0, 100].
func AccuracyPercent(grades []report.PlyGrade) float64 {
	if len(grades) == 0 {
		return 100
	}
	pawns := 0.0
	for _, g := range grades {
		pawns += math.Abs(float64(g.CentipawnLoss) / 100)
	}
	pawns /= float64(len(grades))
	return clamp(100-(pawns/AccuracyDivisorPawns)*100, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// IsWhitePly reports whether a 1-based ply belongs to the first mover.
func IsWhitePly(ply int) bool {
	return ply%2 == 1
}

func Side(grades []report.PlyGrade) report.SideAggregate {
	return report.SideAggregate{
		Plies:            len(grades),
		AvgCentipawnLoss: AvgCentipawnLoss(grades),
		AccuracyPercent:  AccuracyPercent(grades),
		TagCounts:        TagCounts(grades),
	}
}

// TagCounts is a histogram with an entry for every tag.
func TagCounts(grades []report.PlyGrade) map[report.Tag]int {
	counts := make(map[report.Tag]int, len(report.Tags))
	for _, t := range report.Tags {
		counts[t] = 0
	}
	for _, g := range grades {
		counts[g.Tag]++
	}
	return counts
}

func Bucket(grades []report.PlyGrade) report.BucketAggregate {
	var white, black []report.PlyGrade
	for _, g := range grades {
		if IsWhitePly(g.Ply) {
			white = append(white, g)
		} else {
			black = append(black, g)
		}
	}
	return report.BucketAggregate{
		White:     Side(white),
		Black:     Side(black),
		TagCounts: TagCounts(grades),
	}
}

// Summarize computes the overall bucket and one bucket per phase.
func Summarize(grades []report.PlyGrade) report.Aggregates {
	byPhase := make(map[report.Phase][]report.PlyGrade, len(report.Phases))
	for _, g := range grades {
		byPhase[g.Phase] = append(byPhase[g.Phase], g)
	}
	out := report.Aggregates{
		Overall: Bucket(grades),
		Phases:  make(map[report.Phase]report.BucketAggregate, len(report.Phases)),
	}
	for _, p := range report.Phases {
		out.Phases[p] = Bucket(byPhase[p])
	}
	return out
}

// OverallAccuracy is the accuracy over both sides together.
func OverallAccuracy(grades []report.PlyGrade) float64 {
	return AccuracyPercent(grades)
}

package domain

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

	// MateCentipawns is the saturated value a mate score takes when it has to be
	// compared against centipawn scores.
	MateCentipawns = 10000
)

type ScoreKind string

const (
	ScoreCentipawns ScoreKind = "cp"
	ScoreMate       ScoreKind = "mate"
)

// Score is an engine evaluation from the side to move's point of view.
// For mate scores Value is the signed distance to mate.
type Score struct {
	Kind  ScoreKind `json:"type" bson:"type"`
	Value int       `json:"value" bson:"value"`
}

func (s Score) IsMate() bool {
	return s.Kind == ScoreMate
}

// Centipawns converts the score for arithmetic. Mate scores saturate to
// ±MateCentipawns, "mate 0" means the side to move is already mated.
func (s Score) Centipawns() int {
	if s.Kind != ScoreMate {
		return s.Value
	}
	if s.Value > 0 {
		return MateCentipawns
	}
	return -MateCentipawns
}

func (s Score) String() string {
	if s.Kind == ScoreMate {
		return fmt.Sprintf("mate %d", s.Value)
	}
	return fmt.Sprintf("cp %d", s.Value)
}

// Info is one parsed engine progress line.
type Info struct {
	Depth    int      `json:"depth,omitempty" bson:"depth,omitempty"`
	SelDepth int      `json:"seldepth,omitempty" bson:"seldepth,omitempty"`
	MultiPV  int      `json:"multipv,omitempty" bson:"multipv,omitempty"`
	Score    *Score   `json:"score,omitempty" bson:"score,omitempty"`
	Bound    string   `json:"bound,omitempty" bson:"bound,omitempty"`
	Nodes    int64    `json:"nodes,omitempty" bson:"nodes,omitempty"`
	NPS      int64    `json:"nps,omitempty" bson:"nps,omitempty"`
	TimeMs   int64    `json:"timeMs,omitempty" bson:"time_ms,omitempty"`
	PV       []string `json:"pv,omitempty" bson:"pv,omitempty"`
}

// IsPrimary reports whether the line belongs to the first (best) variation.
func (i Info) IsPrimary() bool {
	return i.MultiPV == 0 || i.MultiPV == 1
}

type AnalysisRequest struct {
	Position        string   `json:"fen"`
	SearchDepth     int      `json:"depth"`
	EloLimit        *int     `json:"elo,omitempty"`
	MultiPV         int      `json:"multiPv,omitempty"`
	RestrictToMoves []string `json:"searchMoves,omitempty"`
}

// Key is the identity used to coalesce identical in-flight requests.
func (r AnalysisRequest) Key() string {
	elo := "-"
	if r.EloLimit != nil {
		elo = strconv.Itoa(*r.EloLimit)
	}
	return fmt.Sprintf("%s|d%d|e%s|s%s", r.Position, r.SearchDepth, elo, strings.Join(r.RestrictToMoves, ","))
}

type AnalysisResult struct {
	BestMove  string   `json:"bestmove"`
	Info      *Info    `json:"info"`
	Lines     []Info   `json:"lines"`
	Raw       []string `json:"raw"`
	RequestID string   `json:"reqId"`
}

// BestScore returns the primary line's score, if the engine reported one.
func (r AnalysisResult) BestScore() (Score, bool) {
	if r.Info == nil || r.Info.Score == nil {
		return Score{}, false
	}
	return *r.Info.Score, true
}

type EngineHealth struct {
	Ready      bool     `json:"ready"`
	Busy       bool     `json:"busy"`
	State      string   `json:"state"`
	PID        int      `json:"pid,omitempty"`
	Name       string   `json:"name,omitempty"`
	QueueDepth int      `json:"queue"`
	LastStdout []string `json:"lastStdout"`
}

// ProbeResult is the outcome of a one-off handshake against a fresh engine
// process, independent of the shared instance.
type ProbeResult struct {
	OK        bool     `json:"ok"`
	Path      string   `json:"path"`
	Name      string   `json:"name,omitempty"`
	ElapsedMs int64    `json:"elapsedMs"`
	Stdout    []string `json:"stdout"`
	Error     string   `json:"error,omitempty"`
}

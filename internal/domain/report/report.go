package report

import (
	"time"

	"chess_review/internal/domain"
)

// Tag is the quality label of a single move.
type Tag string

const (
	TagBest       Tag = "Best"
	TagExcellent  Tag = "Excellent"
	TagGood       Tag = "Good"
	TagInaccuracy Tag = "Inaccuracy"
	TagMistake    Tag = "Mistake"
	TagBlunder    Tag = "Blunder"
)

// Tags lists every tag from best to worst.
var Tags = []Tag{TagBest, TagExcellent, TagGood, TagInaccuracy, TagMistake, TagBlunder}

// Rank orders tags from best (0) to worst; unknown tags rank -1.
func (t Tag) Rank() int {
	for i, known := range Tags {
		if known == t {
			return i
		}
	}
	return -1
}

func (t Tag) Valid() bool {
	return t.Rank() >= 0
}

type Phase string

const (
	PhaseOpening    Phase = "opening"
	PhaseMiddlegame Phase = "middlegame"
	PhaseEndgame    Phase = "endgame"
)

var Phases = []Phase{PhaseOpening, PhaseMiddlegame, PhaseEndgame}

// PlyGrade is the verdict on one half-move.
type PlyGrade struct {
	Ply            int           `json:"ply" bson:"ply"`
	CentipawnLoss  int           `json:"cpl" bson:"cpl"`
	Tag            Tag           `json:"tag" bson:"tag"`
	AgreesWithBest bool          `json:"agreement" bson:"agreement"`
	IsOnlyGoodMove bool          `json:"onlyMove" bson:"only_move"`
	PlayedMove     string        `json:"playedUci,omitempty" bson:"played_uci,omitempty"`
	BestMove       string        `json:"bestUci,omitempty" bson:"best_uci,omitempty"`
	BestScore      *domain.Score `json:"bestScore,omitempty" bson:"best_score,omitempty"`
	PlayedScore    *domain.Score `json:"playedScore,omitempty" bson:"played_score,omitempty"`
	BestLine       []string      `json:"bestPv,omitempty" bson:"best_pv,omitempty"`
	PlayedLine     []string      `json:"playedPv,omitempty" bson:"played_pv,omitempty"`
	Phase          Phase         `json:"phase" bson:"phase"`
	Symbol         string        `json:"symbol" bson:"symbol"`
	Note           string        `json:"note,omitempty" bson:"note,omitempty"`
}

// SideAggregate summarises the plies of one side within one bucket.
type SideAggregate struct {
	Plies            int         `json:"plies" bson:"plies"`
	AvgCentipawnLoss float64     `json:"acpl" bson:"acpl"`
	AccuracyPercent  float64     `json:"accuracy" bson:"accuracy"`
	TagCounts        map[Tag]int `json:"tagCounts" bson:"tag_counts"`
}

type BucketAggregate struct {
	White     SideAggregate `json:"white" bson:"white"`
	Black     SideAggregate `json:"black" bson:"black"`
	TagCounts map[Tag]int   `json:"tagCounts" bson:"tag_counts"`
}

type Aggregates struct {
	Overall BucketAggregate           `json:"overall" bson:"overall"`
	Phases  map[Phase]BucketAggregate `json:"phases" bson:"phases"`
}

// Report is the stored outcome of one game review.
type Report struct {
	ID            string      `json:"id" bson:"_id"`
	CreatedAt     time.Time   `json:"createdAt" bson:"created_at"`
	Depth         int         `json:"depth" bson:"depth"`
	Elo           *int        `json:"elo,omitempty" bson:"elo,omitempty"`
	StartPosition string      `json:"startFen" bson:"start_fen"`
	Positions     []string    `json:"fens" bson:"fens"`
	MoveTexts     []string    `json:"sans" bson:"sans"`
	Evals         []int       `json:"evals" bson:"evals"`
	Tags          []Tag       `json:"tags" bson:"tags"`
	Accuracy      float64     `json:"accuracy" bson:"accuracy"`
	PerPly        []PlyGrade  `json:"perMove" bson:"per_move"`
	Aggregates    *Aggregates `json:"aggregates,omitempty" bson:"aggregates,omitempty"`
}

// GenerateRequest is the caller's input to a review.
type GenerateRequest struct {
	StartPosition string   `json:"startFen,omitempty"`
	Positions     []string `json:"fens"`
	MoveTexts     []string `json:"sans"`
	Depth         int      `json:"depth,omitempty"`
	Elo           *int     `json:"elo,omitempty"`
}

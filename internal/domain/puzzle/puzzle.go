package puzzle

import "time"

type Puzzle struct {
	ID        string    `json:"id" bson:"_id"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
	FEN       string    `json:"fen" bson:"fen"`
	Solution  []string  `json:"solution" bson:"solution"`
	Motifs    string    `json:"motifs,omitempty" bson:"motifs,omitempty"`
	Rating    *int      `json:"rating,omitempty" bson:"rating,omitempty"`
	Source    string    `json:"source,omitempty" bson:"source,omitempty"`
	ReportID  string    `json:"reportId,omitempty" bson:"report_id,omitempty"`
}

type Attempt struct {
	ID        string    `json:"id" bson:"_id"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
	PuzzleID  string    `json:"puzzleId" bson:"puzzle_id"`
	TimeMs    int       `json:"timeMs" bson:"time_ms"`
	Mistakes  int       `json:"mistakes" bson:"mistakes"`
	Solved    bool      `json:"solved" bson:"solved"`
	Rating    *int      `json:"rating,omitempty" bson:"rating,omitempty"`
}

type ListFilter struct {
	Limit int
	Motif string
}

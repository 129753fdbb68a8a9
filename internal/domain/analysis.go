package domain

import (
	"encoding/json"
	"time"
)

// SavedAnalysis is a client-side evaluation series kept for later viewing.
type SavedAnalysis struct {
	ID        string          `json:"id" bson:"_id"`
	CreatedAt time.Time       `json:"createdAt" bson:"created_at"`
	PGN       string          `json:"pgn" bson:"pgn"`
	Depth     int             `json:"depth" bson:"depth"`
	Ply       int             `json:"ply" bson:"ply"`
	Sans      []string        `json:"sans" bson:"sans"`
	Fens      []string        `json:"fens" bson:"fens"`
	Series    json.RawMessage `json:"series" bson:"series"`
}

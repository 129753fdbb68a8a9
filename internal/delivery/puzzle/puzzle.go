package puzzle

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"chess_review/internal/bootstrap"
	"chess_review/internal/domain/puzzle"
	"chess_review/internal/httpresponse"
	"chess_review/internal/utils"
)

type PuzzleService interface {
	List(ctx context.Context, filter puzzle.ListFilter) ([]puzzle.Puzzle, error)
	Random(ctx context.Context, motif string) (*puzzle.Puzzle, error)
	Create(ctx context.Context, pz puzzle.Puzzle) (puzzle.Puzzle, error)
	RecordAttempt(ctx context.Context, a puzzle.Attempt) (puzzle.Attempt, error)
}

type CreatePuzzleRequest struct {
	FEN      string   `json:"fen"`
	Solution []string `json:"solution"`
	Motifs   string   `json:"motifs,omitempty"`
	Rating   *int     `json:"rating,omitempty"`
	Source   string   `json:"source,omitempty"`
}

type AttemptRequest struct {
	PuzzleID string `json:"puzzleId"`
	TimeMs   int    `json:"timeMs"`
	Mistakes int    `json:"mistakes"`
	Solved   bool   `json:"solved"`
	Rating   *int   `json:"rating,omitempty"`
}

type PuzzleHandler struct {
	cfg      bootstrap.Config
	log      *zap.SugaredLogger
	puzzleUC PuzzleService
}

func NewPuzzleHandler(cfg bootstrap.Config, log *zap.SugaredLogger, puzzleUC PuzzleService) *PuzzleHandler {
	return &PuzzleHandler{
		cfg:      cfg,
		log:      log,
		puzzleUC: puzzleUC,
	}
}

func (p *PuzzleHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, err := utils.QueryInt(r, "limit", 0)
	if err != nil {
		httpresponse.WriteError(p.log, w, err)
		return
	}
	puzzles, err := p.puzzleUC.List(r.Context(), puzzle.ListFilter{Limit: limit, Motif: r.URL.Query().Get("motif")})
	if err != nil {
		httpresponse.WriteError(p.log, w, err)
		return
	}
	if puzzles == nil {
		puzzles = []puzzle.Puzzle{}
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, puzzles)
}

// HandleRandom answers 200 with a null body when nothing matches.
func (p *PuzzleHandler) HandleRandom(w http.ResponseWriter, r *http.Request) {
	pz, err := p.puzzleUC.Random(r.Context(), r.URL.Query().Get("motif"))
	if err != nil {
		httpresponse.WriteError(p.log, w, err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, pz)
}

func (p *PuzzleHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreatePuzzleRequest
	if err := utils.DecodeJSONRequest(r, &req); err != nil {
		httpresponse.WriteError(p.log, w, err)
		return
	}
	pz, err := p.puzzleUC.Create(r.Context(), puzzle.Puzzle{
		FEN:      req.FEN,
		Solution: req.Solution,
		Motifs:   req.Motifs,
		Rating:   req.Rating,
		Source:   req.Source,
	})
	if err != nil {
		httpresponse.WriteError(p.log, w, err)
		return
	}
	p.log.Infof("puzzle %s created", pz.ID)
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, pz)
}

func (p *PuzzleHandler) HandleAttempt(w http.ResponseWriter, r *http.Request) {
	var req AttemptRequest
	if err := utils.DecodeJSONRequest(r, &req); err != nil {
		httpresponse.WriteError(p.log, w, err)
		return
	}
	a, err := p.puzzleUC.RecordAttempt(r.Context(), puzzle.Attempt{
		PuzzleID: req.PuzzleID,
		TimeMs:   req.TimeMs,
		Mistakes: req.Mistakes,
		Solved:   req.Solved,
		Rating:   req.Rating,
	})
	if err != nil {
		httpresponse.WriteError(p.log, w, err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, a)
}

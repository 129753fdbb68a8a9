package puzzle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"chess_review/internal/chessrules"
	"chess_review/internal/domain/puzzle"
	errs "chess_review/internal/errors"
)

const MaxPageLimit = 100

type PuzzleStore interface {
	ListPuzzles(ctx context.Context, filter puzzle.ListFilter) ([]puzzle.Puzzle, error)
	RandomPuzzle(ctx context.Context, motif string) (puzzle.Puzzle, error)
	CreatePuzzle(ctx context.Context, pz puzzle.Puzzle) (string, error)
	CreateAttempt(ctx context.Context, a puzzle.Attempt) (string, error)
}

type PuzzleUseCase struct {
	store        PuzzleStore
	defaultLimit int
	log          *zap.SugaredLogger
}

func NewPuzzleUseCase(store PuzzleStore, defaultLimit int, log *zap.SugaredLogger) *PuzzleUseCase {
	if defaultLimit <= 0 {
		defaultLimit = 20
	}
	return &PuzzleUseCase{store: store, defaultLimit: defaultLimit, log: log}
}

func (u *PuzzleUseCase) clampLimit(limit int) int {
	if limit == 0 {
		limit = u.defaultLimit
	}
	if limit < 1 {
		return 1
	}
	if limit > MaxPageLimit {
		return MaxPageLimit
	}
	return limit
}

func (u *PuzzleUseCase) List(ctx context.Context, filter puzzle.ListFilter) ([]puzzle.Puzzle, error) {
	filter.Limit = u.clampLimit(filter.Limit)
	filter.Motif = strings.TrimSpace(filter.Motif)
	return u.store.ListPuzzles(ctx, filter)
}

// Random returns nil when no puzzle matches.
func (u *PuzzleUseCase) Random(ctx context.Context, motif string) (*puzzle.Puzzle, error) {
	pz, err := u.store.RandomPuzzle(ctx, strings.TrimSpace(motif))
	if errors.Is(err, errs.ErrPuzzleNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pz, nil
}

// Create validates that the solution is playable from the puzzle position.
func (u *PuzzleUseCase) Create(ctx context.Context, pz puzzle.Puzzle) (puzzle.Puzzle, error) {
	fen, err := chessrules.NormalizeFEN(pz.FEN)
	if err != nil {
		return puzzle.Puzzle{}, err
	}
	if len(pz.Solution) == 0 {
		return puzzle.Puzzle{}, fmt.Errorf("%w: empty solution", errs.ErrInvalidInput)
	}
	if _, err := chessrules.GameFromMoves(fen, pz.Solution); err != nil {
		return puzzle.Puzzle{}, fmt.Errorf("%w: solution: %v", errs.ErrInvalidInput, err)
	}
	pz.FEN = fen
	id, err := u.store.CreatePuzzle(ctx, pz)
	if err != nil {
		return puzzle.Puzzle{}, err
	}
	pz.ID = id
	return pz, nil
}

func (u *PuzzleUseCase) RecordAttempt(ctx context.Context, a puzzle.Attempt) (puzzle.Attempt, error) {
	if strings.TrimSpace(a.PuzzleID) == "" {
		return puzzle.Attempt{}, fmt.Errorf("%w: missing puzzleId", errs.ErrInvalidInput)
	}
	a.TimeMs = max(0, a.TimeMs)
	a.Mistakes = max(0, a.Mistakes)
	id, err := u.store.CreateAttempt(ctx, a)
	if err != nil {
		return puzzle.Attempt{}, err
	}
	a.ID = id
	return a, nil
}

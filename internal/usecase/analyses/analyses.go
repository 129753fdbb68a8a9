package analyses

import (
	"context"
	"fmt"
	"strings"

	"chess_review/internal/domain"
	errs "chess_review/internal/errors"
)

const defaultDepth = 12

type AnalysesStore interface {
	ListAnalyses(ctx context.Context, limit int) ([]domain.SavedAnalysis, error)
	CreateAnalysis(ctx context.Context, a domain.SavedAnalysis) (string, error)
}

type AnalysesUseCase struct {
	store AnalysesStore
	limit int
}

func NewAnalysesUseCase(store AnalysesStore, limit int) *AnalysesUseCase {
	if limit <= 0 {
		limit = 50
	}
	return &AnalysesUseCase{store: store, limit: limit}
}

func (u *AnalysesUseCase) List(ctx context.Context) ([]domain.SavedAnalysis, error) {
	return u.store.ListAnalyses(ctx, u.limit)
}

func (u *AnalysesUseCase) Create(ctx context.Context, a domain.SavedAnalysis) (domain.SavedAnalysis, error) {
	if strings.TrimSpace(a.PGN) == "" || a.Sans == nil || a.Fens == nil || len(a.Series) == 0 || a.Series[0] != '[' {
		return domain.SavedAnalysis{}, fmt.Errorf("%w: pgn, sans, fens and series are required", errs.ErrInvalidInput)
	}
	if a.Depth <= 0 {
		a.Depth = defaultDepth
	}
	if a.Ply < 0 {
		a.Ply = 0
	}
	id, err := u.store.CreateAnalysis(ctx, a)
	if err != nil {
		return domain.SavedAnalysis{}, err
	}
	a.ID = id
	return a, nil
}

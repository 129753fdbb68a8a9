package analyses

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"chess_review/internal/domain"
	errs "chess_review/internal/errors"
)

type fakeStore struct {
	limit   int
	created []domain.SavedAnalysis
}

func (f *fakeStore) ListAnalyses(_ context.Context, limit int) ([]domain.SavedAnalysis, error) {
	f.limit = limit
	return f.created, nil
}

func (f *fakeStore) CreateAnalysis(_ context.Context, a domain.SavedAnalysis) (string, error) {
	f.created = append(f.created, a)
	return "an-1", nil
}

func TestCreateDefaults(t *testing.T) {
	store := &fakeStore{}
	uc := NewAnalysesUseCase(store, 0)

	a, err := uc.Create(context.Background(), domain.SavedAnalysis{
		PGN:    "1. e4 *",
		Sans:   []string{"e4"},
		Fens:   []string{domain.StartFEN},
		Series: json.RawMessage(`[{"ply":1,"cp":25}]`),
		Ply:    -3,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.ID != "an-1" || a.Depth != 12 || a.Ply != 0 {
		t.Fatalf("unexpected analysis %+v", a)
	}

	if _, err := uc.List(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.limit != 50 {
		t.Fatalf("expected limit 50, got %d", store.limit)
	}
}

func TestCreateRejectsIncomplete(t *testing.T) {
	uc := NewAnalysesUseCase(&fakeStore{}, 50)
	bad := []domain.SavedAnalysis{
		{Sans: []string{}, Fens: []string{}, Series: json.RawMessage(`[]`)},
		{PGN: "*", Fens: []string{}, Series: json.RawMessage(`[]`)},
		{PGN: "*", Sans: []string{}, Fens: []string{}, Series: json.RawMessage(`{"a":1}`)},
	}
	for _, a := range bad {
		if _, err := uc.Create(context.Background(), a); !errors.Is(err, errs.ErrInvalidInput) {
			t.Errorf("%+v: expected invalid input, got %v", a, err)
		}
	}
}

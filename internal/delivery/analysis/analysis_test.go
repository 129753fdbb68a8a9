package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"chess_review/internal/bootstrap"
	"chess_review/internal/domain"
	errs "chess_review/internal/errors"
	"chess_review/internal/httpresponse"
)

type fakeService struct {
	got   domain.AnalysisRequest
	err   error
	probe domain.ProbeResult
}

func (f *fakeService) Analyze(_ context.Context, req domain.AnalysisRequest) (domain.AnalysisResult, error) {
	f.got = req
	if f.err != nil {
		return domain.AnalysisResult{}, f.err
	}
	return domain.AnalysisResult{BestMove: "e2e4", RequestID: "r1"}, nil
}

func (f *fakeService) Health() domain.EngineHealth {
	return domain.EngineHealth{Ready: true, State: "ready"}
}

func (f *fakeService) Probe(context.Context) domain.ProbeResult {
	return f.probe
}

func newHandler(svc *fakeService) *AnalysisHandler {
	return NewAnalysisHandler(bootstrap.Config{}, zap.NewNop().Sugar(), svc)
}

func post(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(body)))
	return rec
}

func TestHandleAnalyze(t *testing.T) {
	svc := &fakeService{}
	rec := post(newHandler(svc).HandleAnalyze, `{"fen":"startpos","depth":8,"elo":1500,"multiPv":2}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp httpresponse.Response[domain.AnalysisResult]
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Body.BestMove != "e2e4" {
		t.Fatalf("unexpected body %+v", resp.Body)
	}
	if svc.got.Position != "startpos" || svc.got.SearchDepth != 8 || svc.got.MultiPV != 2 || *svc.got.EloLimit != 1500 {
		t.Fatalf("unexpected request %+v", svc.got)
	}
}

func TestHandleAnalyzeLimitStrengthOff(t *testing.T) {
	svc := &fakeService{}
	post(newHandler(svc).HandleAnalyze, `{"fen":"startpos","elo":1500,"limitStrength":false}`)
	if svc.got.EloLimit != nil {
		t.Fatalf("elo should be dropped when limitStrength is false")
	}
}

func TestHandleAnalyzeErrors(t *testing.T) {
	cases := []struct {
		name string
		body string
		err  error
		want int
	}{
		{"missing fen", `{"depth":8}`, nil, http.StatusBadRequest},
		{"malformed", `{"fen":`, nil, http.StatusBadRequest},
		{"invalid fen", `{"fen":"x"}`, fmt.Errorf("%w: fen", errs.ErrInvalidInput), http.StatusBadRequest},
		{"engine down", `{"fen":"startpos"}`, errs.ErrSpawn, http.StatusServiceUnavailable},
		{"timeout", `{"fen":"startpos"}`, errs.ErrJobTimeout, http.StatusGatewayTimeout},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := post(newHandler(&fakeService{err: tc.err}).HandleAnalyze, tc.body)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}

func TestHandleEngineHealth(t *testing.T) {
	cases := []struct {
		probe  domain.ProbeResult
		status int
		errTag string
	}{
		{domain.ProbeResult{OK: true, Name: "Stockfish 17"}, http.StatusOK, ""},
		{domain.ProbeResult{Error: "spawn: no such file"}, http.StatusServiceUnavailable, "spawn_error"},
		{domain.ProbeResult{Error: "timed out after 8s"}, http.StatusServiceUnavailable, "not_ready"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		newHandler(&fakeService{probe: tc.probe}).HandleEngineHealth(rec, httptest.NewRequest(http.MethodGet, "/health/engine", nil))
		if rec.Code != tc.status {
			t.Fatalf("%+v: expected %d, got %d", tc.probe, tc.status, rec.Code)
		}
		var resp httpresponse.Response[EngineHealthResponse]
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Body.Error != tc.errTag || resp.Body.ReqID == "" || !resp.Body.Pool.Ready {
			t.Fatalf("unexpected body %+v", resp.Body)
		}
	}
}

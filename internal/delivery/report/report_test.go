package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"chess_review/internal/bootstrap"
	"chess_review/internal/domain/report"
	errs "chess_review/internal/errors"
	"chess_review/internal/httpresponse"
	"chess_review/internal/usecase/aggregate"
)

type fakeService struct {
	generated  []report.GenerateRequest
	generateFn func(emit func(report.PlyGrade)) error
	reports    map[string]report.Report
}

func grades() []report.PlyGrade {
	return []report.PlyGrade{
		{Ply: 1, CentipawnLoss: 10, Tag: report.TagBest, Phase: report.PhaseOpening, PlayedMove: "e2e4", BestMove: "e2e4"},
		{Ply: 2, CentipawnLoss: 80, Tag: report.TagGood, Phase: report.PhaseOpening, PlayedMove: "e7e5", BestMove: "c7c5"},
	}
}

func (f *fakeService) Generate(_ context.Context, req report.GenerateRequest, emit func(report.PlyGrade)) (report.Report, error) {
	f.generated = append(f.generated, req)
	if f.generateFn != nil {
		if err := f.generateFn(emit); err != nil {
			return report.Report{}, err
		}
	}
	g := grades()
	agg := aggregate.Summarize(g)
	return report.Report{ID: "rep-new", Positions: req.Positions, MoveTexts: req.MoveTexts, PerPly: g, Aggregates: &agg}, nil
}

func (f *fakeService) Get(_ context.Context, id string) (report.Report, error) {
	rep, ok := f.reports[id]
	if !ok {
		return report.Report{}, errs.ErrReportNotFound
	}
	return rep, nil
}

func (f *fakeService) Latest(ctx context.Context) (report.Report, error) {
	return f.Get(ctx, "latest")
}

func (f *fakeService) Details(ctx context.Context, id string) (report.Report, error) {
	if id == "" {
		id = "latest"
	}
	return f.Get(ctx, id)
}

func newServer(t *testing.T, svc *fakeService) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	NewReportHandler(bootstrap.Config{}, zap.NewNop().Sugar(), svc).Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func stored() map[string]report.Report {
	g := grades()
	agg := aggregate.Summarize(g)
	rep := report.Report{ID: "abc", MoveTexts: []string{"e4", "e5"}, PerPly: g, Aggregates: &agg}
	return map[string]report.Report{"abc": rep, "latest": rep}
}

func TestGenerateValidation(t *testing.T) {
	svc := &fakeService{}
	srv := newServer(t, svc)

	cases := []struct {
		body string
		want int
	}{
		{`{"fens":[],"sans":[]}`, http.StatusBadRequest},
		{`{"fens":["a","b"],"sans":["e4"]}`, http.StatusBadRequest},
		{`{"fens":["a"],"sans":["e4"],"depth":10}`, http.StatusOK},
	}
	for _, tc := range cases {
		resp, err := http.Post(srv.URL+"/report/generate", "application/json", strings.NewReader(tc.body))
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != tc.want {
			t.Errorf("%s: expected %d, got %d", tc.body, tc.want, resp.StatusCode)
		}
	}
	if len(svc.generated) != 1 || svc.generated[0].Depth != 10 {
		t.Fatalf("only the valid request should reach the use case: %+v", svc.generated)
	}
}

func TestGetRoutes(t *testing.T) {
	srv := newServer(t, &fakeService{reports: stored()})

	cases := []struct {
		path string
		want int
	}{
		{"/report/abc", http.StatusOK},
		{"/report/abc/details", http.StatusOK},
		{"/report/latest", http.StatusOK},
		{"/report/latest/details", http.StatusOK},
		{"/report/missing", http.StatusNotFound},
		{"/report/missing/details", http.StatusNotFound},
	}
	for _, tc := range cases {
		resp, err := http.Get(srv.URL + tc.path)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		var body httpresponse.Response[report.Report]
		_ = json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		if resp.StatusCode != tc.want {
			t.Errorf("%s: expected %d, got %d", tc.path, tc.want, resp.StatusCode)
		}
		if tc.want == http.StatusOK && body.Body.ID != "abc" {
			t.Errorf("%s: unexpected report %+v", tc.path, body.Body)
		}
	}
}

func TestExports(t *testing.T) {
	srv := newServer(t, &fakeService{reports: stored()})

	resp, err := http.Get(srv.URL + "/report/abc/pdf")
	if err != nil {
		t.Fatalf("get pdf: %v", err)
	}
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("unexpected pdf response %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/report/abc/parquet")
	if err != nil {
		t.Fatalf("get parquet: %v", err)
	}
	buf.Reset()
	_, _ = buf.ReadFrom(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !bytes.HasPrefix(buf.Bytes(), []byte("PAR1")) {
		t.Fatalf("unexpected parquet response %d", resp.StatusCode)
	}
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/report/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestStream(t *testing.T) {
	svc := &fakeService{generateFn: func(emit func(report.PlyGrade)) error {
		for _, g := range grades() {
			emit(g)
		}
		return nil
	}}
	conn := dial(t, newServer(t, svc))

	if err := conn.WriteJSON(report.GenerateRequest{Positions: []string{"a", "b"}, MoveTexts: []string{"e4", "e5"}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var types []string
	for {
		var ev StreamEvent
		if err := conn.ReadJSON(&ev); err != nil {
			break
		}
		types = append(types, ev.Type)
		if ev.Type == EventSummary {
			if ev.Report == nil || ev.Report.ID != "rep-new" {
				t.Fatalf("unexpected summary %+v", ev)
			}
			break
		}
	}
	if strings.Join(types, ",") != "ply,ply,summary" {
		t.Fatalf("unexpected event sequence %v", types)
	}
}

func TestStreamErrors(t *testing.T) {
	svc := &fakeService{generateFn: func(func(report.PlyGrade)) error { return errors.New("engine crashed") }}
	srv := newServer(t, svc)

	conn := dial(t, srv)
	_ = conn.WriteJSON(report.GenerateRequest{Positions: []string{"a"}, MoveTexts: []string{}})
	var ev StreamEvent
	if err := conn.ReadJSON(&ev); err != nil || ev.Type != EventError {
		t.Fatalf("expected validation error event, got %+v %v", ev, err)
	}

	conn = dial(t, srv)
	_ = conn.WriteJSON(report.GenerateRequest{Positions: []string{"a"}, MoveTexts: []string{"e4"}})
	ev = StreamEvent{}
	if err := conn.ReadJSON(&ev); err != nil || ev.Type != EventError || ev.Error != "engine crashed" {
		t.Fatalf("expected engine error event, got %+v %v", ev, err)
	}
}

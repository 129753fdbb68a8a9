package engine

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"chess_review/internal/domain"
	errs "chess_review/internal/errors"
)

var searchLines = []string{
	"info string NNUE enabled",
	"info depth 1 seldepth 1 multipv 1 score cp 20 pv e2e4",
	"info depth 1 seldepth 1 multipv 2 score cp 10 pv d2d4",
	"info depth 2 currmove e2e4 currmovenumber 1",
	"info depth 2 seldepth 3 multipv 1 score cp 31 nodes 800 pv e2e4 e7e5",
	"info depth 2 seldepth 3 multipv 2 score cp 18 nodes 800 pv d2d4 d7d5",
	"info depth banana",
}

func newTestClient(t *testing.T, l *fakeLauncher, cfg Config) *Client {
	t.Helper()
	c := NewClient(cfg, l, nil)
	t.Cleanup(func() {
		_ = c.Close(context.Background())
	})
	return c
}

func TestClientStartAndSearch(t *testing.T) {
	l := &fakeLauncher{script: fakeScript{goLines: searchLines, bestmove: "e2e4"}}
	c := newTestClient(t, l, Config{})

	if c.State() != StateUnstarted {
		t.Fatalf("expected unstarted, got %s", c.State())
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if c.State() != StateReady {
		t.Fatalf("expected ready, got %s", c.State())
	}
	if c.Name() != "FakeFish 1.0" {
		t.Fatalf("unexpected engine name %q", c.Name())
	}

	res, err := c.Search(context.Background(), domain.AnalysisRequest{Position: domain.StartFEN, SearchDepth: 2, MultiPV: 2})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if res.BestMove != "e2e4" {
		t.Fatalf("unexpected bestmove %q", res.BestMove)
	}
	score, ok := res.BestScore()
	if !ok || score.Value != 31 || res.Info.Depth != 2 {
		t.Fatalf("primary info should be the latest multipv 1 line, got %+v", res.Info)
	}
	if len(res.Lines) != 2 || res.Lines[0].MultiPV != 1 || res.Lines[1].MultiPV != 2 || res.Lines[1].Score.Value != 18 {
		t.Fatalf("unexpected lines: %+v", res.Lines)
	}
	if len(res.Raw) != len(searchLines) {
		t.Fatalf("raw trace should keep every info line, got %d: %v", len(res.Raw), res.Raw)
	}
	if last := res.Raw[len(res.Raw)-1]; !strings.Contains(last, "banana") {
		t.Fatalf("unparseable info line should stay in the trace, got %q", last)
	}
	if c.State() != StateReady {
		t.Fatalf("expected ready after search, got %s", c.State())
	}

	// second start is a no-op
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	if l.launches() != 1 {
		t.Fatalf("expected a single launch, got %d", l.launches())
	}
}

func TestClientRawTraceBounded(t *testing.T) {
	var lines []string
	for i := 1; i <= 25; i++ {
		lines = append(lines, "info depth "+strconv.Itoa(i)+" score cp 5 pv e2e4")
	}
	l := &fakeLauncher{script: fakeScript{goLines: lines, bestmove: "e2e4"}}
	c := newTestClient(t, l, Config{RawTraceSize: 10})
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	res, err := c.Search(context.Background(), domain.AnalysisRequest{Position: domain.StartFEN, SearchDepth: 25})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(res.Raw) != 10 {
		t.Fatalf("expected 10 trace lines, got %d", len(res.Raw))
	}
	if res.Raw[9] != "info depth 25 score cp 5 pv e2e4" {
		t.Fatalf("trace should end with the newest line, got %q", res.Raw[9])
	}
}

func TestClientSpawnError(t *testing.T) {
	l := &fakeLauncher{err: errors.New("no such file")}
	c := newTestClient(t, l, Config{})

	err := c.Start(context.Background())
	if !errors.Is(err, errs.ErrSpawn) {
		t.Fatalf("expected spawn error, got %v", err)
	}
	if c.State() != StateUnstarted {
		t.Fatalf("expected unstarted after spawn failure, got %s", c.State())
	}
}

func TestClientHandshakeTimeout(t *testing.T) {
	l := &fakeLauncher{script: fakeScript{silentReady: true}}
	c := newTestClient(t, l, Config{HandshakeTimeout: 50 * time.Millisecond})

	err := c.Start(context.Background())
	if !errors.Is(err, errs.ErrHandshakeTimeout) {
		t.Fatalf("expected handshake timeout, got %v", err)
	}
	if c.State() != StateClosed {
		t.Fatalf("expected closed, got %s", c.State())
	}
	select {
	case <-l.last().exited:
	case <-time.After(time.Second):
		t.Fatalf("process was not killed")
	}
}

func TestClientSearchRequiresReady(t *testing.T) {
	c := newTestClient(t, &fakeLauncher{}, Config{})
	_, err := c.Search(context.Background(), domain.AnalysisRequest{Position: domain.StartFEN, SearchDepth: 1})
	if !errors.Is(err, errs.ErrEngineUnavailable) {
		t.Fatalf("expected engine unavailable, got %v", err)
	}
}

func TestClientCrashDuringSearch(t *testing.T) {
	l := &fakeLauncher{script: fakeScript{goLines: searchLines[:2], crashOnGo: true}}
	c := newTestClient(t, l, Config{})
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	_, err := c.Search(context.Background(), domain.AnalysisRequest{Position: domain.StartFEN, SearchDepth: 5})
	if !errors.Is(err, errs.ErrEngineUnavailable) {
		t.Fatalf("expected engine unavailable, got %v", err)
	}
	if c.State() != StateClosed {
		t.Fatalf("expected closed after crash, got %s", c.State())
	}

	l.setScript(fakeScript{goLines: searchLines, bestmove: "d2d4"})
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	if l.launches() != 2 {
		t.Fatalf("expected a fresh process, got %d launches", l.launches())
	}
	res, err := c.Search(context.Background(), domain.AnalysisRequest{Position: domain.StartFEN, SearchDepth: 5})
	if err != nil {
		t.Fatalf("search after restart failed: %v", err)
	}
	if res.BestMove != "d2d4" {
		t.Fatalf("unexpected bestmove %q", res.BestMove)
	}
}

func TestClientJobTimeoutStops(t *testing.T) {
	l := &fakeLauncher{script: fakeScript{hangOnGo: true, bestmove: "e2e4"}}
	c := newTestClient(t, l, Config{MinJobTimeout: 50 * time.Millisecond, MaxJobTimeout: 50 * time.Millisecond, StopGrace: time.Second})
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	_, err := c.Search(context.Background(), domain.AnalysisRequest{Position: domain.StartFEN, SearchDepth: 30})
	if !errors.Is(err, errs.ErrJobTimeout) {
		t.Fatalf("expected job timeout, got %v", err)
	}
	if c.State() != StateReady {
		t.Fatalf("engine that honoured stop should be ready, got %s", c.State())
	}
	cmds := l.last().commands()
	if cmds[len(cmds)-1] != "stop" {
		t.Fatalf("expected stop to be sent, got %v", cmds)
	}
}

func TestClientJobTimeoutKills(t *testing.T) {
	l := &fakeLauncher{script: fakeScript{hangOnGo: true, ignoreStop: true}}
	c := newTestClient(t, l, Config{MinJobTimeout: 50 * time.Millisecond, MaxJobTimeout: 50 * time.Millisecond, StopGrace: 50 * time.Millisecond})
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	_, err := c.Search(context.Background(), domain.AnalysisRequest{Position: domain.StartFEN, SearchDepth: 30})
	if !errors.Is(err, errs.ErrJobTimeout) {
		t.Fatalf("expected job timeout, got %v", err)
	}
	if c.State() != StateClosed {
		t.Fatalf("unresponsive engine should be closed, got %s", c.State())
	}
}

func TestClientCancelledSearch(t *testing.T) {
	l := &fakeLauncher{script: fakeScript{hangOnGo: true, bestmove: "e2e4"}}
	c := newTestClient(t, l, Config{})
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := c.Search(ctx, domain.AnalysisRequest{Position: domain.StartFEN, SearchDepth: 10})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected caller deadline, got %v", err)
	}
	if c.State() != StateReady {
		t.Fatalf("expected ready, got %s", c.State())
	}
}

func TestClientOptionsSentOnChange(t *testing.T) {
	l := &fakeLauncher{script: fakeScript{goLines: searchLines, bestmove: "e2e4"}}
	c := newTestClient(t, l, Config{Options: Options{Threads: 2, HashMB: 64}})
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	elo := 1000
	reqs := []domain.AnalysisRequest{
		{Position: domain.StartFEN, SearchDepth: 3, MultiPV: 2, EloLimit: &elo},
		{Position: domain.StartFEN, SearchDepth: 3, MultiPV: 2, EloLimit: &elo},
		{Position: domain.StartFEN, SearchDepth: 3, MultiPV: 2},
	}
	for _, req := range reqs {
		if _, err := c.Search(context.Background(), req); err != nil {
			t.Fatalf("search failed: %v", err)
		}
	}

	counts := map[string]int{}
	for _, cmd := range l.last().commands() {
		counts[cmd]++
	}
	want := map[string]int{
		"setoption name Threads value 2":               1,
		"setoption name Hash value 64":                 1,
		"setoption name MultiPV value 2":               1,
		"setoption name UCI_LimitStrength value true":  1,
		"setoption name UCI_Elo value 1350":            1,
		"setoption name UCI_LimitStrength value false": 1,
		"go depth 3": 3,
	}
	for cmd, n := range want {
		if counts[cmd] != n {
			t.Errorf("%q sent %d times, want %d", cmd, counts[cmd], n)
		}
	}
}

func TestClientHealth(t *testing.T) {
	l := &fakeLauncher{script: fakeScript{goLines: searchLines, bestmove: "e2e4"}}
	c := newTestClient(t, l, Config{})
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	h := c.Health()
	if !h.Ready || h.Busy || h.PID != 1000 || h.State != string(StateReady) {
		t.Fatalf("unexpected health: %+v", h)
	}
	found := false
	for _, line := range h.LastStdout {
		if line == "uciok" {
			found = true
		}
	}
	if !found {
		t.Fatalf("stdout history should contain uciok: %v", h.LastStdout)
	}

	if _, err := c.Search(context.Background(), domain.AnalysisRequest{Position: domain.StartFEN, SearchDepth: 2}); err != nil {
		t.Fatalf("search failed: %v", err)
	}
	h = c.Health()
	if len(h.LastStdout) != 10 {
		t.Fatalf("health should report the last 10 stdout lines, got %d", len(h.LastStdout))
	}
	if h.LastStdout[9] != "bestmove e2e4" {
		t.Fatalf("newest stdout line should be last, got %q", h.LastStdout[9])
	}
}

func TestClientClose(t *testing.T) {
	l := &fakeLauncher{script: fakeScript{}}
	c := NewClient(Config{}, l, nil)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := c.Close(context.Background()); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	select {
	case <-l.last().exited:
	case <-time.After(time.Second):
		t.Fatalf("engine did not exit on quit")
	}
	if err := c.Start(context.Background()); !errors.Is(err, errs.ErrEngineUnavailable) {
		t.Fatalf("closed client must not restart, got %v", err)
	}
}

func TestJobTimeoutClamp(t *testing.T) {
	c := NewClient(Config{}, &fakeLauncher{}, nil)
	cases := map[int]time.Duration{
		1:  2 * time.Second,
		5:  5 * time.Second,
		18: 18 * time.Second,
		40: 20 * time.Second,
	}
	for depth, want := range cases {
		if got := c.jobTimeout(depth); got != want {
			t.Errorf("depth %d: got %s, want %s", depth, got, want)
		}
	}
}

func TestClampElo(t *testing.T) {
	if ClampElo(800) != MinElo || ClampElo(3200) != MaxElo || ClampElo(2000) != 2000 {
		t.Fatalf("elo clamp out of range")
	}
}

func TestProbe(t *testing.T) {
	l := &fakeLauncher{script: fakeScript{}}
	res := Probe(context.Background(), l, "/usr/games/stockfish", time.Second)
	if !res.OK || res.Name != "FakeFish 1.0" || res.Path != "/usr/games/stockfish" {
		t.Fatalf("unexpected probe result: %+v", res)
	}

	l = &fakeLauncher{script: fakeScript{silentReady: true}}
	res = Probe(context.Background(), l, "stockfish", 50*time.Millisecond)
	if res.OK || !strings.Contains(res.Error, "timed out") {
		t.Fatalf("expected probe timeout, got %+v", res)
	}

	l = &fakeLauncher{err: errors.New("missing")}
	res = Probe(context.Background(), l, "stockfish", time.Second)
	if res.OK || !strings.Contains(res.Error, "spawn") {
		t.Fatalf("expected spawn failure, got %+v", res)
	}
}

func TestHandshakeCheckReapsBlockedProcess(t *testing.T) {
	// more output than the reader buffers, so it is stuck sending when the handshake returns
	proc := newChattyProcess(500)
	res := Probe(context.Background(), singleLauncher{proc: proc}, "stockfish", time.Second)
	if !res.OK {
		t.Fatalf("expected probe success, got %+v", res)
	}
	deadline := time.Now().Add(2 * time.Second)
	for !proc.reaped() {
		if time.Now().After(deadline) {
			t.Fatalf("throwaway process was killed but never waited on")
		}
		time.Sleep(time.Millisecond)
	}
}

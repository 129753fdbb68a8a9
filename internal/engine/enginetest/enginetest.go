// Package enginetest provides an in-memory UCI engine for tests that drive
// engine.Client over its pipes.
package enginetest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"chess_review/internal/domain"
	"chess_review/internal/engine"
)

// Line is one candidate the fake engine reports, best first.
type Line struct {
	Move       string
	Centipawns int
}

// Evaluator decides the candidates for a search. searchMoves is empty for an
// unrestricted search.
type Evaluator func(fen string, searchMoves []string) []Line

// Steady prefers e2e4 by a small margin over one close alternative and scores
// any restricted move 20 centipawns below the best line.
func Steady(_ string, searchMoves []string) []Line {
	if len(searchMoves) > 0 {
		return []Line{{Move: searchMoves[0], Centipawns: 20}}
	}
	return []Line{{Move: "e2e4", Centipawns: 40}, {Move: "d2d4", Centipawns: 30}}
}

type Launcher struct {
	Eval Evaluator

	mu    sync.Mutex
	procs []*Process
}

func NewLauncher(eval Evaluator) *Launcher {
	if eval == nil {
		eval = Steady
	}
	return &Launcher{Eval: eval}
}

func (l *Launcher) Launch(_ context.Context, _ string, _ ...string) (engine.Process, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p := newProcess(l.Eval, 2000+len(l.procs))
	l.procs = append(l.procs, p)
	return p, nil
}

func (l *Launcher) Launches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.procs)
}

// Commands returns every command received, across all launched processes.
func (l *Launcher) Commands() []string {
	l.mu.Lock()
	procs := append([]*Process(nil), l.procs...)
	l.mu.Unlock()

	var out []string
	for _, p := range procs {
		out = append(out, p.Commands()...)
	}
	return out
}

// GoCommands returns only the search commands, in order.
func (l *Launcher) GoCommands() []string {
	var out []string
	for _, cmd := range l.Commands() {
		if strings.HasPrefix(cmd, "go") {
			out = append(out, cmd)
		}
	}
	return out
}

type Process struct {
	eval Evaluator
	pid  int

	inR  *io.PipeReader
	inW  *io.PipeWriter
	outR *io.PipeReader
	outW *io.PipeWriter

	exited   chan struct{}
	exitOnce sync.Once

	mu   sync.Mutex
	cmds []string
}

func newProcess(eval Evaluator, pid int) *Process {
	p := &Process{eval: eval, pid: pid, exited: make(chan struct{})}
	p.inR, p.inW = io.Pipe()
	p.outR, p.outW = io.Pipe()
	go p.run()
	return p
}

func (p *Process) run() {
	multiPV := 1
	fen := domain.StartFEN
	scanner := bufio.NewScanner(p.inR)
	for scanner.Scan() {
		cmd := scanner.Text()
		p.mu.Lock()
		p.cmds = append(p.cmds, cmd)
		p.mu.Unlock()

		fields := strings.Fields(cmd)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "uci":
			p.emit("id name MemoryFish 1.0", "option name MultiPV type spin default 1 min 1 max 500", "uciok")
		case "isready":
			p.emit("readyok")
		case "setoption":
			if len(fields) == 5 && fields[2] == "MultiPV" {
				if n, err := strconv.Atoi(fields[4]); err == nil {
					multiPV = n
				}
			}
		case "position":
			if len(fields) > 2 && fields[1] == "fen" {
				fen = strings.Join(fields[2:], " ")
			} else {
				fen = domain.StartFEN
			}
		case "go":
			p.search(fen, fields[1:], multiPV)
		case "quit":
			p.exit()
			return
		}
	}
}

func (p *Process) search(fen string, args []string, multiPV int) {
	depth := 1
	var searchMoves []string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "depth":
			if i+1 < len(args) {
				depth, _ = strconv.Atoi(args[i+1])
				i++
			}
		case "searchmoves":
			searchMoves = args[i+1:]
			i = len(args)
		}
	}

	lines := p.eval(fen, searchMoves)
	if len(lines) > multiPV {
		lines = lines[:multiPV]
	}
	for i, l := range lines {
		p.emit(fmt.Sprintf("info depth %d seldepth %d multipv %d score cp %d nodes 1000 pv %s", depth, depth, i+1, l.Centipawns, l.Move))
	}
	best := "(none)"
	if len(lines) > 0 {
		best = lines[0].Move
	}
	p.emit("bestmove " + best)
}

func (p *Process) emit(lines ...string) {
	for _, l := range lines {
		if _, err := io.WriteString(p.outW, l+"\n"); err != nil {
			return
		}
	}
}

func (p *Process) exit() {
	p.exitOnce.Do(func() {
		_ = p.outW.Close()
		_ = p.inR.Close()
		close(p.exited)
	})
}

func (p *Process) Commands() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.cmds...)
}

func (p *Process) Stdin() io.WriteCloser { return p.inW }
func (p *Process) Stdout() io.Reader     { return p.outR }
func (p *Process) Pid() int              { return p.pid }

func (p *Process) Wait() error {
	<-p.exited
	return nil
}

func (p *Process) Kill() error {
	p.exit()
	return nil
}

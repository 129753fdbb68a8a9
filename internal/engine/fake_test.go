package engine

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
	"sync/atomic"
)

// fakeScript describes how the in-memory engine answers commands.
type fakeScript struct {
	goLines     []string
	bestmove    string
	silentReady bool
	hangOnGo    bool
	ignoreStop  bool
	crashOnGo   bool
}

type fakeProcess struct {
	script fakeScript
	pid    int

	inR  *io.PipeReader
	inW  *io.PipeWriter
	outR *io.PipeReader
	outW *io.PipeWriter

	exited   chan struct{}
	exitOnce sync.Once

	mu   sync.Mutex
	cmds []string
}

func newFakeProcess(s fakeScript, pid int) *fakeProcess {
	p := &fakeProcess{script: s, pid: pid, exited: make(chan struct{})}
	p.inR, p.inW = io.Pipe()
	p.outR, p.outW = io.Pipe()
	go p.run()
	return p
}

func (p *fakeProcess) run() {
	scanner := bufio.NewScanner(p.inR)
	searching := false
	for scanner.Scan() {
		cmd := scanner.Text()
		p.mu.Lock()
		p.cmds = append(p.cmds, cmd)
		p.mu.Unlock()

		switch {
		case cmd == "uci":
			p.emit("id name FakeFish 1.0", "id author tests", "option name MultiPV type spin default 1 min 1 max 500", "uciok")
		case cmd == "isready":
			if !p.script.silentReady {
				p.emit("readyok")
			}
		case strings.HasPrefix(cmd, "go"):
			if p.script.crashOnGo {
				p.emit(p.script.goLines...)
				p.exit()
				return
			}
			if p.script.hangOnGo {
				searching = true
				continue
			}
			p.emit(p.script.goLines...)
			p.emit("bestmove " + p.script.bestmove)
		case cmd == "stop":
			if searching && !p.script.ignoreStop {
				searching = false
				p.emit("bestmove " + p.script.bestmove)
			}
		case cmd == "quit":
			p.exit()
			return
		}
	}
}

func (p *fakeProcess) emit(lines ...string) {
	for _, l := range lines {
		if _, err := io.WriteString(p.outW, l+"\n"); err != nil {
			return
		}
	}
}

func (p *fakeProcess) exit() {
	p.exitOnce.Do(func() {
		_ = p.outW.Close()
		_ = p.inR.Close()
		close(p.exited)
	})
}

func (p *fakeProcess) commands() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.cmds...)
}

func (p *fakeProcess) Stdin() io.WriteCloser { return p.inW }
func (p *fakeProcess) Stdout() io.Reader     { return p.outR }
func (p *fakeProcess) Pid() int              { return p.pid }

func (p *fakeProcess) Wait() error {
	<-p.exited
	return nil
}

func (p *fakeProcess) Kill() error {
	p.exit()
	return nil
}

type fakeLauncher struct {
	mu     sync.Mutex
	script fakeScript
	err    error
	procs  []*fakeProcess
}

func (l *fakeLauncher) Launch(_ context.Context, _ string, _ ...string) (Process, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	p := newFakeProcess(l.script, 1000+len(l.procs))
	l.procs = append(l.procs, p)
	return p, nil
}

func (l *fakeLauncher) setScript(s fakeScript) {
	l.mu.Lock()
	l.script = s
	l.mu.Unlock()
}

func (l *fakeLauncher) launches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.procs)
}

func (l *fakeLauncher) last() *fakeProcess {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.procs[len(l.procs)-1]
}

// chattyProcess answers the handshake from a canned transcript and then keeps
// printing, so a reader that stops consuming ends up blocked.
type chattyProcess struct {
	out    io.Reader
	killed chan struct{}
	once   sync.Once
	waits  int32
}

func newChattyProcess(extra int) *chattyProcess {
	var b strings.Builder
	b.WriteString("id name FakeFish 1.0\nuciok\nreadyok\n")
	for i := 0; i < extra; i++ {
		b.WriteString("info string loading network\n")
	}
	return &chattyProcess{out: strings.NewReader(b.String()), killed: make(chan struct{})}
}

type discardCloser struct{}

func (discardCloser) Write(p []byte) (int, error) { return len(p), nil }
func (discardCloser) Close() error                { return nil }

func (p *chattyProcess) Stdin() io.WriteCloser { return discardCloser{} }
func (p *chattyProcess) Stdout() io.Reader     { return p.out }
func (p *chattyProcess) Pid() int              { return 4242 }

func (p *chattyProcess) Wait() error {
	<-p.killed
	atomic.AddInt32(&p.waits, 1)
	return nil
}

func (p *chattyProcess) Kill() error {
	p.once.Do(func() { close(p.killed) })
	return nil
}

func (p *chattyProcess) reaped() bool {
	return atomic.LoadInt32(&p.waits) > 0
}

type singleLauncher struct {
	proc Process
}

func (l singleLauncher) Launch(context.Context, string, ...string) (Process, error) {
	return l.proc, nil
}

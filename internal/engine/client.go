package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"chess_review/internal/domain"
	errs "chess_review/internal/errors"
)

type State string

const (
	StateUnstarted State = "unstarted"
	StateStarting  State = "starting"
	StateReady     State = "ready"
	StateBusy      State = "busy"
	StateClosed    State = "closed"
)

const (
	MinElo = 1350
	MaxElo = 2850

	stdoutHistory = 100
	healthHistory = 10
	quitTimeout   = 3 * time.Second
)

type Options struct {
	Threads int
	HashMB  int
}

type Config struct {
	Path             string
	Args             []string
	HandshakeTimeout time.Duration
	PerDepthTimeout  time.Duration
	MinJobTimeout    time.Duration
	MaxJobTimeout    time.Duration
	StopGrace        time.Duration
	RawTraceSize     int
	Options          Options
}

func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 8 * time.Second,
		PerDepthTimeout:  time.Second,
		MinJobTimeout:    2 * time.Second,
		MaxJobTimeout:    20 * time.Second,
		StopGrace:        500 * time.Millisecond,
		RawTraceSize:     10,
	}
}

// Client owns at most one engine process and runs one search at a time.
// It is not a queue: callers serialize searches themselves.
type Client struct {
	cfg      Config
	launcher Launcher
	log      *zap.SugaredLogger

	startMu sync.Mutex

	mu       sync.Mutex
	state    State
	sess     *session
	name     string
	stdout   []string
	shutdown bool
}

type session struct {
	proc     Process
	writeMu  sync.Mutex
	lines    chan string
	quit     chan struct{}
	quitOnce sync.Once
	done     chan struct{}

	multiPV int
	limited bool
	elo     int
}

func newSession(proc Process) *session {
	return &session{
		proc:    proc,
		lines:   make(chan string, 256),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		multiPV: 1,
	}
}

func (s *session) send(cmd string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := fmt.Fprintf(s.proc.Stdin(), "%s\n", cmd); err != nil {
		return fmt.Errorf("%w: write %q: %v", errs.ErrEngineUnavailable, cmd, err)
	}
	return nil
}

func (s *session) stop() {
	s.quitOnce.Do(func() { close(s.quit) })
}

// drain discards lines left over from a previous job.
func (s *session) drain() {
	for {
		select {
		case _, ok := <-s.lines:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func NewClient(cfg Config, launcher Launcher, log *zap.SugaredLogger) *Client {
	def := DefaultConfig()
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = def.HandshakeTimeout
	}
	if cfg.PerDepthTimeout <= 0 {
		cfg.PerDepthTimeout = def.PerDepthTimeout
	}
	if cfg.MinJobTimeout <= 0 {
		cfg.MinJobTimeout = def.MinJobTimeout
	}
	if cfg.MaxJobTimeout <= 0 {
		cfg.MaxJobTimeout = def.MaxJobTimeout
	}
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = def.StopGrace
	}
	if cfg.RawTraceSize <= 0 {
		cfg.RawTraceSize = def.RawTraceSize
	}
	if launcher == nil {
		launcher = ExecLauncher{}
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Client{cfg: cfg, launcher: launcher, log: log, state: StateUnstarted}
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start launches the engine and completes the handshake. It is a no-op when
// the engine is already up, and restarts a process that has exited.
func (c *Client) Start(ctx context.Context) error {
	c.startMu.Lock()
	defer c.startMu.Unlock()

	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		return fmt.Errorf("%w: client closed", errs.ErrEngineUnavailable)
	}
	if c.state == StateReady || c.state == StateBusy {
		c.mu.Unlock()
		return nil
	}
	c.state = StateStarting
	c.mu.Unlock()

	proc, err := c.launcher.Launch(ctx, c.cfg.Path, c.cfg.Args...)
	if err != nil {
		c.setState(StateUnstarted)
		c.log.Errorf("failed to launch engine %s: %v", c.cfg.Path, err)
		return fmt.Errorf("%w: %v", errs.ErrSpawn, err)
	}

	sess := newSession(proc)
	c.mu.Lock()
	c.sess = sess
	c.mu.Unlock()
	go c.readLoop(sess)

	hctx, cancel := context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
	defer cancel()
	if err := c.handshake(hctx, sess); err != nil {
		c.abandon(sess)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Errorf("engine handshake failed: %v", err)
		if errors.Is(err, errs.ErrHandshakeTimeout) {
			return err
		}
		return fmt.Errorf("%w: %v", errs.ErrHandshakeTimeout, err)
	}

	c.mu.Lock()
	if c.sess == sess && c.state == StateStarting {
		c.state = StateReady
	}
	c.mu.Unlock()
	c.log.Infof("engine ready (pid %d, %s)", proc.Pid(), c.Name())
	return nil
}

func (c *Client) handshake(ctx context.Context, sess *session) error {
	if err := sess.send("uci"); err != nil {
		return err
	}
	err := c.await(ctx, sess, func(ev Event) bool {
		if ev.Type == EventID && ev.Key == "name" {
			c.mu.Lock()
			c.name = ev.Value
			c.mu.Unlock()
		}
		return ev.Type == EventUCIOK
	})
	if err != nil {
		return err
	}
	if c.cfg.Options.Threads > 0 {
		if err := sess.send(setOptionCommand("Threads", strconv.Itoa(c.cfg.Options.Threads))); err != nil {
			return err
		}
	}
	if c.cfg.Options.HashMB > 0 {
		if err := sess.send(setOptionCommand("Hash", strconv.Itoa(c.cfg.Options.HashMB))); err != nil {
			return err
		}
	}
	if err := sess.send("isready"); err != nil {
		return err
	}
	return c.await(ctx, sess, func(ev Event) bool { return ev.Type == EventReadyOK })
}

// await consumes lines until match returns true.
func (c *Client) await(ctx context.Context, sess *session, match func(Event) bool) error {
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return errs.ErrHandshakeTimeout
			}
			return ctx.Err()
		case line, ok := <-sess.lines:
			if !ok {
				return errors.New("engine exited")
			}
			ev, err := ParseLine(line)
			if err != nil {
				continue
			}
			if match(ev) {
				return nil
			}
		}
	}
}

// Search runs one analysis to the requested depth. The client must be Ready.
// On timeout the engine is asked to stop; if it does not answer in time the
// process is killed and the client becomes Closed.
func (c *Client) Search(ctx context.Context, req domain.AnalysisRequest) (domain.AnalysisResult, error) {
	c.mu.Lock()
	if c.state != StateReady || c.sess == nil {
		st := c.state
		c.mu.Unlock()
		return domain.AnalysisResult{}, fmt.Errorf("%w: engine is %s", errs.ErrEngineUnavailable, st)
	}
	sess := c.sess
	c.state = StateBusy
	c.mu.Unlock()

	sess.drain()

	jctx, cancel := context.WithTimeout(ctx, c.jobTimeout(req.SearchDepth))
	defer cancel()

	if err := c.configure(sess, req); err != nil {
		c.abandon(sess)
		return domain.AnalysisResult{}, err
	}
	if err := sess.send(positionCommand(req.Position)); err != nil {
		c.abandon(sess)
		return domain.AnalysisResult{}, err
	}
	if err := sess.send(goCommand(req)); err != nil {
		c.abandon(sess)
		return domain.AnalysisResult{}, err
	}

	res, err := c.collect(jctx, sess, sess.multiPV)
	if err == nil {
		c.markReady(sess)
		return res, nil
	}
	if errors.Is(err, errs.ErrEngineUnavailable) {
		c.abandon(sess)
		return domain.AnalysisResult{}, err
	}

	if c.stopSearch(sess) {
		c.markReady(sess)
	} else {
		c.log.Warnf("engine ignored stop, killing pid %d", sess.proc.Pid())
		c.abandon(sess)
	}
	if ctx.Err() != nil {
		return domain.AnalysisResult{}, ctx.Err()
	}
	return domain.AnalysisResult{}, fmt.Errorf("%w: depth %d on %s", errs.ErrJobTimeout, req.SearchDepth, req.Position)
}

func (c *Client) jobTimeout(depth int) time.Duration {
	t := time.Duration(depth) * c.cfg.PerDepthTimeout
	if t < c.cfg.MinJobTimeout {
		t = c.cfg.MinJobTimeout
	}
	if t > c.cfg.MaxJobTimeout {
		t = c.cfg.MaxJobTimeout
	}
	return t
}

// configure sends only the options that differ from the session's current
// settings.
func (c *Client) configure(sess *session, req domain.AnalysisRequest) error {
	multiPV := req.MultiPV
	if multiPV < 1 {
		multiPV = 1
	}
	if multiPV != sess.multiPV {
		if err := sess.send(setOptionCommand("MultiPV", strconv.Itoa(multiPV))); err != nil {
			return err
		}
		sess.multiPV = multiPV
	}

	if req.EloLimit == nil {
		if sess.limited {
			if err := sess.send(setOptionCommand("UCI_LimitStrength", "false")); err != nil {
				return err
			}
			sess.limited = false
		}
		return nil
	}
	elo := ClampElo(*req.EloLimit)
	if !sess.limited {
		if err := sess.send(setOptionCommand("UCI_LimitStrength", "true")); err != nil {
			return err
		}
		sess.limited = true
	}
	if sess.elo != elo {
		if err := sess.send(setOptionCommand("UCI_Elo", strconv.Itoa(elo))); err != nil {
			return err
		}
		sess.elo = elo
	}
	return nil
}

func ClampElo(elo int) int {
	if elo < MinElo {
		return MinElo
	}
	if elo > MaxElo {
		return MaxElo
	}
	return elo
}

func (c *Client) collect(ctx context.Context, sess *session, multiPV int) (domain.AnalysisResult, error) {
	latest := make(map[int]domain.Info)
	var primary *domain.Info
	trace := make([]string, 0, c.cfg.RawTraceSize)

	for {
		select {
		case <-ctx.Done():
			return domain.AnalysisResult{}, ctx.Err()
		case line, ok := <-sess.lines:
			if !ok {
				return domain.AnalysisResult{}, fmt.Errorf("%w: engine exited during search", errs.ErrEngineUnavailable)
			}
			if raw := strings.TrimSpace(line); raw == "info" || strings.HasPrefix(raw, "info ") {
				if len(trace) == c.cfg.RawTraceSize {
					trace = trace[1:]
				}
				trace = append(trace, raw)
			}
			ev, err := ParseLine(line)
			if err != nil {
				c.log.Debugf("dropping engine line: %v", err)
				continue
			}
			switch ev.Type {
			case EventInfo:
				if ev.Info.Score == nil {
					continue
				}
				info := ev.Info
				idx := info.MultiPV
				if idx == 0 {
					idx = 1
				}
				if idx > multiPV {
					continue
				}
				latest[idx] = info
				if info.IsPrimary() {
					primary = &info
				}
			case EventBestMove:
				res := domain.AnalysisResult{BestMove: ev.Move, Info: primary, Raw: trace}
				idxs := make([]int, 0, len(latest))
				for i := range latest {
					idxs = append(idxs, i)
				}
				sort.Ints(idxs)
				for _, i := range idxs {
					res.Lines = append(res.Lines, latest[i])
				}
				return res, nil
			}
		}
	}
}

// stopSearch asks the engine to abort and reports whether it produced the
// terminating bestmove within the grace period.
func (c *Client) stopSearch(sess *session) bool {
	if err := sess.send("stop"); err != nil {
		return false
	}
	timer := time.NewTimer(c.cfg.StopGrace)
	defer timer.Stop()
	for {
		select {
		case <-timer.C:
			return false
		case line, ok := <-sess.lines:
			if !ok {
				return false
			}
			if strings.HasPrefix(line, "bestmove") {
				return true
			}
		}
	}
}

func (c *Client) readLoop(sess *session) {
	defer close(sess.done)

	scanner := bufio.NewScanner(sess.proc.Stdout())
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	forward := true
	for scanner.Scan() {
		line := scanner.Text()
		c.recordStdout(line)
		if !forward {
			continue
		}
		select {
		case sess.lines <- line:
		case <-sess.quit:
			forward = false
		}
	}
	if err := scanner.Err(); err != nil {
		c.log.Warnf("engine stdout: %v", err)
	}
	close(sess.lines)
	if err := sess.proc.Wait(); err != nil {
		c.log.Debugf("engine process exited: %v", err)
	}
	c.handleExit(sess)
}

func (c *Client) recordStdout(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.stdout) == stdoutHistory {
		c.stdout = c.stdout[1:]
	}
	c.stdout = append(c.stdout, line)
}

// handleExit marks the client Closed when the session that exited is still
// the current one.
func (c *Client) handleExit(sess *session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess != sess || c.state == StateClosed {
		return
	}
	c.state = StateClosed
	c.log.Warnf("engine process %d exited unexpectedly", sess.proc.Pid())
}

// abandon kills the session's process and marks the client Closed.
func (c *Client) abandon(sess *session) {
	sess.stop()
	if err := sess.proc.Kill(); err != nil {
		c.log.Debugf("kill engine: %v", err)
	}
	c.mu.Lock()
	if c.sess == sess {
		c.state = StateClosed
	}
	c.mu.Unlock()
}

func (c *Client) markReady(sess *session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == sess && c.state == StateBusy {
		c.state = StateReady
	}
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Client) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

func (c *Client) Health() domain.EngineHealth {
	c.mu.Lock()
	defer c.mu.Unlock()
	h := domain.EngineHealth{
		Ready: c.state == StateReady,
		Busy:  c.state == StateBusy,
		State: string(c.state),
		Name:  c.name,
	}
	if c.sess != nil && c.state != StateClosed {
		h.PID = c.sess.proc.Pid()
	}
	from := len(c.stdout) - healthHistory
	if from < 0 {
		from = 0
	}
	h.LastStdout = append([]string{}, c.stdout[from:]...)
	return h
}

// Close sends quit and kills the process if it has not exited after a few
// seconds. The client cannot be restarted afterwards.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	c.shutdown = true
	sess := c.sess
	c.state = StateClosed
	c.mu.Unlock()
	if sess == nil {
		return nil
	}

	sess.stop()
	_ = sess.send("quit")
	_ = sess.proc.Stdin().Close()

	timer := time.NewTimer(quitTimeout)
	defer timer.Stop()
	select {
	case <-sess.done:
		return nil
	case <-timer.C:
	case <-ctx.Done():
	}
	c.log.Warnf("engine did not quit, killing pid %d", sess.proc.Pid())
	if err := sess.proc.Kill(); err != nil {
		return fmt.Errorf("failed to kill engine: %w", err)
	}
	return nil
}

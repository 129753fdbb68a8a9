package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chess_review/internal/domain"
	"chess_review/internal/engine"
	errs "chess_review/internal/errors"
)

const DefaultWindow = 5 * time.Second

// Engine is the single-process client the scheduler drives.
type Engine interface {
	Start(ctx context.Context) error
	Search(ctx context.Context, req domain.AnalysisRequest) (domain.AnalysisResult, error)
	State() engine.State
	Health() domain.EngineHealth
	Probe(ctx context.Context) domain.ProbeResult
}

type call struct {
	done    chan struct{}
	res     domain.AnalysisResult
	err     error
	created time.Time
	multiPV int
}

type job struct {
	id   string
	key  string
	req  domain.AnalysisRequest
	call *call
}

// Scheduler serializes analysis requests onto one engine. Identical requests
// made within the coalescing window share one job and its result.
type Scheduler struct {
	eng    Engine
	log    *zap.SugaredLogger
	window time.Duration
	now    func() time.Time

	mu     sync.Mutex
	queue  []*job
	calls  map[string]*call
	closed bool
	wake   chan struct{}
}

func New(eng Engine, log *zap.SugaredLogger, window time.Duration) *Scheduler {
	if window <= 0 {
		window = DefaultWindow
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Scheduler{
		eng:    eng,
		log:    log,
		window: window,
		now:    time.Now,
		calls:  make(map[string]*call),
		wake:   make(chan struct{}, 1),
	}
}

// Analyze enqueues req, or joins an identical request made within the window,
// and waits for the result. A shared entry must carry at least as many lines
// as req asks for; the caller gets the first MultiPV of them.
func (s *Scheduler) Analyze(ctx context.Context, req domain.AnalysisRequest) (domain.AnalysisResult, error) {
	key := req.Key()
	now := s.now()
	multiPV := lineCount(req.MultiPV)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.AnalysisResult{}, errs.ErrSchedulerClosed
	}
	s.evictExpired(now)
	c, ok := s.calls[key]
	if ok && c.multiPV < multiPV {
		ok = false
	}
	if !ok {
		c = &call{done: make(chan struct{}), created: now, multiPV: multiPV}
		s.calls[key] = c
		s.queue = append(s.queue, &job{id: uuid.NewString(), key: key, req: req, call: c})
	}
	s.mu.Unlock()

	if ok {
		s.log.Debugf("coalesced analysis request %s", key)
	} else {
		s.signal()
	}

	select {
	case <-c.done:
		if c.err != nil {
			return domain.AnalysisResult{}, c.err
		}
		return truncateLines(c.res, multiPV), nil
	case <-ctx.Done():
		return domain.AnalysisResult{}, ctx.Err()
	}
}

func lineCount(multiPV int) int {
	if multiPV < 1 {
		return 1
	}
	return multiPV
}

// truncateLines returns res with at most n lines, leaving the shared result
// untouched.
func truncateLines(res domain.AnalysisResult, n int) domain.AnalysisResult {
	if len(res.Lines) > n {
		res.Lines = append([]domain.Info(nil), res.Lines[:n]...)
	}
	return res
}

// evictExpired drops entries older than the window, finished or not.
// Callers hold mu.
func (s *Scheduler) evictExpired(now time.Time) {
	for key, c := range s.calls {
		if now.Sub(c.created) >= s.window {
			delete(s.calls, key)
		}
	}
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run processes jobs one at a time until ctx is done or Close is called.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		j, closed := s.next()
		if closed {
			return nil
		}
		if j == nil {
			select {
			case <-ctx.Done():
				s.shutdown(ctx.Err())
				return ctx.Err()
			case <-s.wake:
			}
			continue
		}
		s.process(ctx, j)
	}
}

func (s *Scheduler) next() (*job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, true
	}
	if len(s.queue) == 0 {
		return nil, false
	}
	j := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]
	return j, false
}

func (s *Scheduler) process(ctx context.Context, j *job) {
	if err := s.eng.Start(ctx); err != nil {
		s.log.Errorf("engine start failed for job %s: %v", j.id, err)
		s.finish(j, domain.AnalysisResult{}, err)
		s.rejectQueued(err)
		return
	}

	started := time.Now()
	res, err := s.eng.Search(ctx, j.req)
	if err != nil {
		s.log.Warnf("analysis job %s failed after %s: %v", j.id, time.Since(started), err)
	} else {
		res.RequestID = j.id
		s.log.Debugf("analysis job %s done in %s (bestmove %s)", j.id, time.Since(started), res.BestMove)
	}
	s.finish(j, res, err)

	if s.eng.State() == engine.StateClosed {
		s.rejectQueued(fmt.Errorf("%w: engine stopped", errs.ErrEngineUnavailable))
	}
}

func (s *Scheduler) finish(j *job, res domain.AnalysisResult, err error) {
	s.mu.Lock()
	j.call.res, j.call.err = res, err
	if err != nil && s.calls[j.key] == j.call {
		delete(s.calls, j.key)
	}
	s.mu.Unlock()
	close(j.call.done)
}

// rejectQueued fails every waiting job with err.
func (s *Scheduler) rejectQueued(err error) {
	s.mu.Lock()
	pending := s.queue
	s.queue = nil
	s.mu.Unlock()

	if len(pending) > 0 {
		s.log.Warnf("rejecting %d queued analysis jobs: %v", len(pending), err)
	}
	for _, j := range pending {
		s.finish(j, domain.AnalysisResult{}, err)
	}
}

func (s *Scheduler) shutdown(cause error) {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.rejectQueued(fmt.Errorf("%w: %v", errs.ErrSchedulerClosed, cause))
}

// Close stops accepting requests and fails the queued ones. A job already on
// the engine runs to completion.
func (s *Scheduler) Close() {
	s.shutdown(fmt.Errorf("shutting down"))
	s.signal()
}

// Pending returns the number of queued jobs, not counting the running one.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *Scheduler) Health() domain.EngineHealth {
	h := s.eng.Health()
	h.QueueDepth = s.Pending()
	return h
}

func (s *Scheduler) Probe(ctx context.Context) domain.ProbeResult {
	return s.eng.Probe(ctx)
}

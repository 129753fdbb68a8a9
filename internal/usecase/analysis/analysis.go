package analysis

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"chess_review/internal/chessrules"
	"chess_review/internal/domain"
	"chess_review/internal/engine"
	errs "chess_review/internal/errors"
)

const (
	MaxDepth   = 40
	MaxMultiPV = 5
)

// Engine is satisfied by the local scheduler and by the remote gRPC client.
type Engine interface {
	Analyze(ctx context.Context, req domain.AnalysisRequest) (domain.AnalysisResult, error)
	Health() domain.EngineHealth
	Probe(ctx context.Context) domain.ProbeResult
}

type ResultCache interface {
	Get(ctx context.Context, req domain.AnalysisRequest) (domain.AnalysisResult, bool)
	Set(ctx context.Context, req domain.AnalysisRequest, res domain.AnalysisResult)
}

type AnalysisUseCase struct {
	engine       Engine
	cache        ResultCache
	defaultDepth int
	log          *zap.SugaredLogger
}

func NewAnalysisUseCase(engine Engine, cache ResultCache, defaultDepth int, log *zap.SugaredLogger) *AnalysisUseCase {
	if defaultDepth <= 0 {
		defaultDepth = 12
	}
	return &AnalysisUseCase{
		engine:       engine,
		cache:        cache,
		defaultDepth: defaultDepth,
		log:          log,
	}
}

// Normalize validates a request and fills in defaults.
func (u *AnalysisUseCase) Normalize(req domain.AnalysisRequest) (domain.AnalysisRequest, error) {
	if strings.TrimSpace(req.Position) == "" {
		return req, fmt.Errorf("%w: missing fen", errs.ErrInvalidInput)
	}
	fen, err := chessrules.NormalizeFEN(req.Position)
	if err != nil {
		return req, err
	}
	req.Position = fen

	if req.SearchDepth <= 0 {
		req.SearchDepth = u.defaultDepth
	}
	if req.SearchDepth > MaxDepth {
		return req, fmt.Errorf("%w: depth %d exceeds %d", errs.ErrInvalidInput, req.SearchDepth, MaxDepth)
	}
	if req.MultiPV < 1 {
		req.MultiPV = 1
	}
	if req.MultiPV > MaxMultiPV {
		req.MultiPV = MaxMultiPV
	}
	if req.EloLimit != nil {
		elo := engine.ClampElo(*req.EloLimit)
		req.EloLimit = &elo
	}
	for i, m := range req.RestrictToMoves {
		m = strings.ToLower(strings.TrimSpace(m))
		if !chessrules.IsLegal(fen, m) {
			return req, fmt.Errorf("%w: %q is not legal in %s", errs.ErrInvalidInput, m, fen)
		}
		req.RestrictToMoves[i] = m
	}
	return req, nil
}

// Analyze serves req from the cache when possible and stores fresh results.
func (u *AnalysisUseCase) Analyze(ctx context.Context, req domain.AnalysisRequest) (domain.AnalysisResult, error) {
	req, err := u.Normalize(req)
	if err != nil {
		return domain.AnalysisResult{}, err
	}
	if u.cache != nil {
		if res, ok := u.cache.Get(ctx, req); ok {
			u.log.Debugf("analysis cache hit for %s", req.Key())
			return res, nil
		}
	}

	u.log.Infow("analysis started", "fen", req.Position, "depth", req.SearchDepth, "elo", req.EloLimit)
	res, err := u.engine.Analyze(ctx, req)
	if err != nil {
		u.log.Errorw("analysis failed", "fen", req.Position, "error", err)
		return domain.AnalysisResult{}, err
	}
	if u.cache != nil {
		u.cache.Set(ctx, req, res)
	}
	return res, nil
}

func (u *AnalysisUseCase) Health() domain.EngineHealth {
	return u.engine.Health()
}

func (u *AnalysisUseCase) Probe(ctx context.Context) domain.ProbeResult {
	return u.engine.Probe(ctx)
}

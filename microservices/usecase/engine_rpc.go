package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/structpb"

	"chess_review/internal/domain"
	errs "chess_review/internal/errors"
	engineRPC "chess_review/microservices/proto"
)

type EngineStore interface {
	Analyze(ctx context.Context, req domain.AnalysisRequest) (domain.AnalysisResult, error)
	Health() domain.EngineHealth
	Probe(ctx context.Context) domain.ProbeResult
}

// EngineUseCase serves engine.EngineService on top of a local engine.
type EngineUseCase struct {
	store EngineStore
	log   *zap.SugaredLogger
}

var _ engineRPC.EngineServiceServer = (*EngineUseCase)(nil)

func NewEngineUseCase(store EngineStore, log *zap.SugaredLogger) *EngineUseCase {
	return &EngineUseCase{
		store: store,
		log:   log,
	}
}

func (e *EngineUseCase) Analyze(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req domain.AnalysisRequest
	if err := engineRPC.FromStruct(in, &req); err != nil {
		return nil, engineRPC.StatusFromError(fmt.Errorf("%w: %v", errs.ErrInvalidInput, err))
	}

	res, err := e.store.Analyze(ctx, req)
	if err != nil {
		e.log.Warnw("remote analysis failed", "fen", req.Position, "error", err)
		return nil, engineRPC.StatusFromError(err)
	}
	out, err := engineRPC.ToStruct(res)
	if err != nil {
		return nil, engineRPC.StatusFromError(err)
	}
	return out, nil
}

func (e *EngineUseCase) Health(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req engineRPC.HealthRequest
	if in != nil {
		if err := engineRPC.FromStruct(in, &req); err != nil {
			return nil, engineRPC.StatusFromError(fmt.Errorf("%w: %v", errs.ErrInvalidInput, err))
		}
	}
	resp := engineRPC.HealthResponse{Pool: e.store.Health()}
	if req.Probe {
		probe := e.store.Probe(ctx)
		resp.Probe = &probe
	}
	out, err := engineRPC.ToStruct(resp)
	if err != nil {
		return nil, engineRPC.StatusFromError(err)
	}
	return out, nil
}

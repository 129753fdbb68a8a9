package proto

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"chess_review/internal/domain"
)

const healthTimeout = 3 * time.Second

// RemoteEngine forwards analysis to an engine service over gRPC.
type RemoteEngine struct {
	client EngineServiceClient
	log    *zap.SugaredLogger
}

func NewRemoteEngine(cc grpc.ClientConnInterface, log *zap.SugaredLogger) *RemoteEngine {
	return &RemoteEngine{client: NewEngineServiceClient(cc), log: log}
}

func (r *RemoteEngine) Analyze(ctx context.Context, req domain.AnalysisRequest) (domain.AnalysisResult, error) {
	in, err := ToStruct(req)
	if err != nil {
		return domain.AnalysisResult{}, err
	}
	out, err := r.client.Analyze(ctx, in)
	if err != nil {
		return domain.AnalysisResult{}, ErrorFromStatus(err)
	}
	var res domain.AnalysisResult
	if err := FromStruct(out, &res); err != nil {
		return domain.AnalysisResult{}, err
	}
	return res, nil
}

func (r *RemoteEngine) health(ctx context.Context, probe bool) (HealthResponse, error) {
	in, err := ToStruct(HealthRequest{Probe: probe})
	if err != nil {
		return HealthResponse{}, err
	}
	out, err := r.client.Health(ctx, in)
	if err != nil {
		return HealthResponse{}, ErrorFromStatus(err)
	}
	var resp HealthResponse
	if err := FromStruct(out, &resp); err != nil {
		return HealthResponse{}, err
	}
	return resp, nil
}

func (r *RemoteEngine) Health() domain.EngineHealth {
	ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
	defer cancel()
	resp, err := r.health(ctx, false)
	if err != nil {
		r.log.Warnf("remote engine health failed: %v", err)
		return domain.EngineHealth{State: "unreachable"}
	}
	return resp.Pool
}

func (r *RemoteEngine) Probe(ctx context.Context) domain.ProbeResult {
	resp, err := r.health(ctx, true)
	if err != nil {
		return domain.ProbeResult{Error: err.Error()}
	}
	if resp.Probe == nil {
		return domain.ProbeResult{Error: "engine service returned no probe"}
	}
	return *resp.Probe
}

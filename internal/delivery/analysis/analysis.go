package analysis

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chess_review/internal/bootstrap"
	"chess_review/internal/domain"
	"chess_review/internal/httpresponse"
	"chess_review/internal/utils"
)

type AnalysisService interface {
	Analyze(ctx context.Context, req domain.AnalysisRequest) (domain.AnalysisResult, error)
	Health() domain.EngineHealth
	Probe(ctx context.Context) domain.ProbeResult
}

type AnalyzeRequest struct {
	FEN           string   `json:"fen"`
	Depth         int      `json:"depth,omitempty"`
	Elo           *int     `json:"elo,omitempty"`
	LimitStrength *bool    `json:"limitStrength,omitempty"`
	MultiPV       int      `json:"multiPv,omitempty"`
	SearchMoves   []string `json:"searchMoves,omitempty"`
}

// ToDomain applies elo only when strength limiting was not explicitly
// switched off.
func (a AnalyzeRequest) ToDomain() domain.AnalysisRequest {
	req := domain.AnalysisRequest{
		Position:        a.FEN,
		SearchDepth:     a.Depth,
		MultiPV:         a.MultiPV,
		RestrictToMoves: a.SearchMoves,
	}
	if a.Elo != nil && (a.LimitStrength == nil || *a.LimitStrength) {
		elo := *a.Elo
		req.EloLimit = &elo
	}
	return req
}

type EngineHealthResponse struct {
	OK    bool                `json:"ok"`
	ReqID string              `json:"reqId"`
	Error string              `json:"error,omitempty"`
	Probe *domain.ProbeResult `json:"probe,omitempty"`
	Pool  domain.EngineHealth `json:"pool"`
}

type AnalysisHandler struct {
	cfg        bootstrap.Config
	log        *zap.SugaredLogger
	analysisUC AnalysisService
}

func NewAnalysisHandler(cfg bootstrap.Config, log *zap.SugaredLogger, analysisUC AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{
		cfg:        cfg,
		log:        log,
		analysisUC: analysisUC,
	}
}

func (a *AnalysisHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	reqID := uuid.NewString()
	log := a.log.With("reqId", reqID)

	var body AnalyzeRequest
	if err := utils.DecodeJSONRequest(r, &body); err != nil {
		httpresponse.WriteError(log, w, err)
		return
	}
	if strings.TrimSpace(body.FEN) == "" {
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest, httpresponse.ErrorResponse{ErrorDescription: "Missing fen"})
		return
	}

	log.Infow("analysis requested", "fen", body.FEN, "depth", body.Depth, "elo", body.Elo)
	res, err := a.analysisUC.Analyze(r.Context(), body.ToDomain())
	if err != nil {
		httpresponse.WriteError(log, w, err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, res)
}

// HandleEngineHealth spawns a throwaway engine and runs the handshake
// against it. The shared instance is reported alongside.
func (a *AnalysisHandler) HandleEngineHealth(w http.ResponseWriter, r *http.Request) {
	reqID := uuid.NewString()
	probe := a.analysisUC.Probe(r.Context())
	resp := EngineHealthResponse{
		OK:    probe.OK,
		ReqID: reqID,
		Probe: &probe,
		Pool:  a.analysisUC.Health(),
	}
	if probe.OK {
		httpresponse.WriteResponseWithStatus(w, http.StatusOK, resp)
		return
	}

	resp.Error = "not_ready"
	if strings.HasPrefix(probe.Error, "spawn") {
		resp.Error = "spawn_error"
	}
	a.log.Warnw("engine probe failed", "reqId", reqID, "path", probe.Path, "error", probe.Error)
	httpresponse.WriteResponseWithStatus(w, http.StatusServiceUnavailable, resp)
}

package analyses

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"chess_review/internal/bootstrap"
	"chess_review/internal/domain"
	"chess_review/internal/httpresponse"
	"chess_review/internal/utils"
)

type AnalysesService interface {
	List(ctx context.Context) ([]domain.SavedAnalysis, error)
	Create(ctx context.Context, a domain.SavedAnalysis) (domain.SavedAnalysis, error)
}

type AnalysesHandler struct {
	cfg        bootstrap.Config
	log        *zap.SugaredLogger
	analysesUC AnalysesService
}

func NewAnalysesHandler(cfg bootstrap.Config, log *zap.SugaredLogger, analysesUC AnalysesService) *AnalysesHandler {
	return &AnalysesHandler{
		cfg:        cfg,
		log:        log,
		analysesUC: analysesUC,
	}
}

func (a *AnalysesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	items, err := a.analysesUC.List(r.Context())
	if err != nil {
		httpresponse.WriteError(a.log, w, err)
		return
	}
	if items == nil {
		items = []domain.SavedAnalysis{}
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, items)
}

func (a *AnalysesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req domain.SavedAnalysis
	if err := utils.DecodeJSONRequest(r, &req); err != nil {
		httpresponse.WriteError(a.log, w, err)
		return
	}
	saved, err := a.analysesUC.Create(r.Context(), req)
	if err != nil {
		httpresponse.WriteError(a.log, w, err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, saved)
}

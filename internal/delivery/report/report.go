package report

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"chess_review/internal/bootstrap"
	"chess_review/internal/domain/report"
	errs "chess_review/internal/errors"
	"chess_review/internal/export"
	"chess_review/internal/httpresponse"
	"chess_review/internal/utils"
)

type ReportService interface {
	Generate(ctx context.Context, req report.GenerateRequest, emit func(report.PlyGrade)) (report.Report, error)
	Get(ctx context.Context, id string) (report.Report, error)
	Latest(ctx context.Context) (report.Report, error)
	Details(ctx context.Context, id string) (report.Report, error)
}

// Stream event types sent over /report/stream.
const (
	EventPly     = "ply"
	EventSummary = "summary"
	EventError   = "error"
)

type StreamEvent struct {
	Type   string           `json:"type"`
	Grade  *report.PlyGrade `json:"grade,omitempty"`
	Report *report.Report   `json:"report,omitempty"`
	Error  string           `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type ReportHandler struct {
	cfg      bootstrap.Config
	log      *zap.SugaredLogger
	reportUC ReportService
}

func NewReportHandler(cfg bootstrap.Config, log *zap.SugaredLogger, reportUC ReportService) *ReportHandler {
	return &ReportHandler{
		cfg:      cfg,
		log:      log,
		reportUC: reportUC,
	}
}

func (h *ReportHandler) Register(r chi.Router) {
	r.Route("/report", func(r chi.Router) {
		r.Post("/generate", h.HandleGenerate)
		r.Get("/stream", h.HandleStream)
		r.Get("/latest", h.HandleLatest)
		r.Get("/latest/details", h.HandleLatestDetails)
		r.Get("/{id}", h.HandleGet)
		r.Get("/{id}/details", h.HandleDetails)
		r.Get("/{id}/pdf", h.HandlePDF)
		r.Get("/{id}/parquet", h.HandleParquet)
	})
}

func validateGenerate(req report.GenerateRequest) error {
	if len(req.Positions) == 0 || len(req.MoveTexts) == 0 || len(req.Positions) != len(req.MoveTexts) {
		return fmt.Errorf("%w: fens and sans must be non-empty and of equal length", errs.ErrInvalidInput)
	}
	return nil
}

func (h *ReportHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	log := h.log.With("reqId", uuid.NewString())

	var req report.GenerateRequest
	if err := utils.DecodeJSONRequest(r, &req); err != nil {
		httpresponse.WriteError(log, w, err)
		return
	}
	if err := validateGenerate(req); err != nil {
		httpresponse.WriteError(log, w, err)
		return
	}

	log.Infow("report requested", "plies", len(req.Positions), "depth", req.Depth)
	rep, err := h.reportUC.Generate(r.Context(), req, nil)
	if err != nil {
		httpresponse.WriteError(log, w, err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, rep)
}

func (h *ReportHandler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	rep, err := h.reportUC.Latest(r.Context())
	if err != nil {
		httpresponse.WriteError(h.log, w, err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, rep)
}

func (h *ReportHandler) HandleLatestDetails(w http.ResponseWriter, r *http.Request) {
	h.writeDetails(w, r, "")
}

func (h *ReportHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	rep, err := h.reportUC.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpresponse.WriteError(h.log, w, err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, rep)
}

func (h *ReportHandler) HandleDetails(w http.ResponseWriter, r *http.Request) {
	h.writeDetails(w, r, chi.URLParam(r, "id"))
}

func (h *ReportHandler) writeDetails(w http.ResponseWriter, r *http.Request, id string) {
	rep, err := h.reportUC.Details(r.Context(), id)
	if err != nil {
		httpresponse.WriteError(h.log, w, err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, rep)
}

func (h *ReportHandler) HandlePDF(w http.ResponseWriter, r *http.Request) {
	rep, err := h.reportUC.Details(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpresponse.WriteError(h.log, w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "report-"+rep.ID+".pdf"))
	if err := export.WritePDF(w, rep); err != nil {
		h.log.Errorf("failed to render pdf for report %s: %v", rep.ID, err)
	}
}

// HandleParquet renders into a temporary file first since the parquet
// footer is written last.
func (h *ReportHandler) HandleParquet(w http.ResponseWriter, r *http.Request) {
	rep, err := h.reportUC.Details(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpresponse.WriteError(h.log, w, err)
		return
	}

	dir, err := os.MkdirTemp("", "report-parquet-")
	if err != nil {
		httpresponse.WriteError(h.log, w, err)
		return
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "plies.parquet")
	if err := export.WriteParquet(path, rep); err != nil {
		httpresponse.WriteError(h.log, w, err)
		return
	}
	f, err := os.Open(path)
	if err != nil {
		httpresponse.WriteError(h.log, w, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/vnd.apache.parquet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "report-"+rep.ID+".parquet"))
	if _, err := io.Copy(w, f); err != nil {
		h.log.Warnf("failed to send parquet for report %s: %v", rep.ID, err)
	}
}

// HandleStream reads one generate request from the socket, then pushes a
// ply event per graded move followed by a summary or an error event.
func (h *ReportHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Errorf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	log := h.log.With("reqId", uuid.NewString())

	var req report.GenerateRequest
	if err := conn.ReadJSON(&req); err != nil {
		_ = conn.WriteJSON(StreamEvent{Type: EventError, Error: "invalid request: " + err.Error()})
		return
	}
	if err := validateGenerate(req); err != nil {
		_ = conn.WriteJSON(StreamEvent{Type: EventError, Error: err.Error()})
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	emit := func(g report.PlyGrade) {
		if err := conn.WriteJSON(StreamEvent{Type: EventPly, Grade: &g}); err != nil {
			log.Warnf("stream client went away at ply %d: %v", g.Ply, err)
			cancel()
		}
	}

	rep, err := h.reportUC.Generate(ctx, req, emit)
	if err != nil {
		log.Warnw("streamed report failed", "error", err)
		_ = conn.WriteJSON(StreamEvent{Type: EventError, Error: err.Error()})
		return
	}
	_ = conn.WriteJSON(StreamEvent{Type: EventSummary, Report: &rep})
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

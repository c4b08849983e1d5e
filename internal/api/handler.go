package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/opensource-finance/harrier/internal/detect"
	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/report"
	"github.com/opensource-finance/harrier/internal/runs"
	"github.com/opensource-finance/harrier/internal/simulate"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	detector *detect.Detector
	store    *runs.Store
	validate *validator.Validate
	topN     int
	version  string
}

// NewHandler creates a new API handler. The detector carries the
// server's default detection config; requests may override it per run.
func NewHandler(detector *detect.Detector, store *runs.Store, topN int, version string) *Handler {
	if topN <= 0 {
		topN = 10
	}
	return &Handler{
		detector: detector,
		store:    store,
		validate: validator.New(),
		topN:     topN,
		version:  version,
	}
}

// TransactionPayload is one transaction in a detect request.
type TransactionPayload struct {
	ID         int64     `json:"id" validate:"required,gt=0"`
	SenderID   int64     `json:"senderId" validate:"required"`
	ReceiverID int64     `json:"receiverId" validate:"required"`
	Amount     float64   `json:"amount" validate:"required,gt=0"`
	Timestamp  time.Time `json:"timestamp"`
	Location   string    `json:"location" validate:"required"`
}

// DetectRequest is the request body for POST /detect.
type DetectRequest struct {
	Transactions []TransactionPayload    `json:"transactions" validate:"dive"`
	Config       *domain.DetectionConfig `json:"config,omitempty"`
}

// SimulateRequest is the request body for POST /simulate.
type SimulateRequest struct {
	BaseCount            int                     `json:"baseCount" validate:"gte=0,lte=1000000"`
	StructuringSenders   int                     `json:"structuringSenders" validate:"gte=0"`
	StructuringPerSender int                     `json:"structuringPerSender" validate:"gte=0"`
	Seed                 int64                   `json:"seed"`
	Config               *domain.DetectionConfig `json:"config,omitempty"`
}

// RunResponse is the response for a completed screening run.
type RunResponse struct {
	RunID      string         `json:"runId"`
	StartedAt  time.Time      `json:"startedAt"`
	DurationMs int64          `json:"durationMs"`
	Summary    report.Summary `json:"summary"`
	Version    string         `json:"version"`
}

// Detect handles POST /detect requests: screens a caller-supplied batch.
func (h *Handler) Detect(w http.ResponseWriter, r *http.Request) {
	var req DetectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}

	txns := make([]domain.Transaction, len(req.Transactions))
	for i, p := range req.Transactions {
		txns[i] = domain.Transaction{
			ID:         p.ID,
			SenderID:   p.SenderID,
			ReceiverID: p.ReceiverID,
			Amount:     p.Amount,
			Timestamp:  p.Timestamp,
			Location:   p.Location,
		}
	}

	h.runAndRespond(w, r, txns, req.Config)
}

// Simulate handles POST /simulate requests: generates a synthetic batch
// server-side and screens it.
func (h *Handler) Simulate(w http.ResponseWriter, r *http.Request) {
	var req SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}

	opts := simulate.DefaultOptions()
	if req.BaseCount > 0 {
		opts.BaseCount = req.BaseCount
	}
	if req.StructuringSenders > 0 {
		opts.StructuringSenders = req.StructuringSenders
	}
	if req.StructuringPerSender > 0 {
		opts.StructuringPerSender = req.StructuringPerSender
	}
	if req.Seed != 0 {
		opts.Seed = req.Seed
	}

	batch := simulate.Generate(opts)
	h.runAndRespond(w, r, batch.Transactions, req.Config)
}

// runAndRespond screens the batch, stores the run and writes the summary.
func (h *Handler) runAndRespond(w http.ResponseWriter, r *http.Request, txns []domain.Transaction, override *domain.DetectionConfig) {
	detector := h.detector
	if override != nil {
		d, err := detect.New(*override)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		detector = d
	}

	start := time.Now()
	verdicts, err := detector.Detect(r.Context(), txns)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidTransaction), errors.Is(err, domain.ErrInvalidConfig):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			slog.Error("screening failed", "error", err)
			writeError(w, http.StatusInternalServerError, "screening failed")
		}
		return
	}

	run := &runs.Run{
		ID:           uuid.New().String(),
		StartedAt:    start.UTC(),
		DurationMs:   time.Since(start).Milliseconds(),
		Config:       detector.Config(),
		Transactions: txns,
		Verdicts:     verdicts,
		Summary:      report.Summarize(txns, verdicts, h.topN),
	}
	h.store.Put(run)

	writeJSON(w, http.StatusOK, RunResponse{
		RunID:      run.ID,
		StartedAt:  run.StartedAt,
		DurationMs: run.DurationMs,
		Summary:    run.Summary,
		Version:    h.version,
	})
}

// ListRuns handles GET /runs.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	held := h.store.List()
	out := make([]RunResponse, len(held))
	for i, run := range held {
		out[i] = RunResponse{
			RunID:      run.ID,
			StartedAt:  run.StartedAt,
			DurationMs: run.DurationMs,
			Summary:    run.Summary,
			Version:    h.version,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// GetRun handles GET /runs/{id}.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := h.store.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// RunReportCSV handles GET /runs/{id}/report.csv. By default only
// suspicious transactions are exported; ?all=true includes the rest.
func (h *Handler) RunReportCSV(w http.ResponseWriter, r *http.Request) {
	run, ok := h.store.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}

	suspiciousOnly := r.URL.Query().Get("all") != "true"

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="suspicious_transactions.csv"`)
	if err := report.WriteCSV(w, run.Transactions, run.Verdicts, suspiciousOnly); err != nil {
		slog.Error("failed to write CSV report", "run_id", run.ID, "error", err)
	}
}

// RunReportText handles GET /runs/{id}/report.txt.
func (h *Handler) RunReportText(w http.ResponseWriter, r *http.Request) {
	run, ok := h.store.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := report.WriteText(w, run.Summary); err != nil {
		slog.Error("failed to write text report", "run_id", run.ID, "error", err)
	}
}

// ListRules handles GET /rules.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.detector.Engine().LoadedRules())
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"version": h.version,
		"runs":    h.store.Len(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

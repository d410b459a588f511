// Package api exposes HTTP handlers for the altitude ledger.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"example.com/altitude/internal/domain"
	"example.com/altitude/internal/persistence"
)

const (
	defaultRecentDays = 7
	maxRecentDays     = 366
	maxPageSize       = 500
)

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
	logger  *slog.Logger
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/log", h.logActivity)
	mux.HandleFunc("/v1/bonus", h.applyBonus)
	mux.HandleFunc("/v1/bonus/stats", h.bonusStats)
	mux.HandleFunc("/v1/summary/today", h.todaySummary)
	mux.HandleFunc("/v1/summary/all", h.allSummary)
	mux.HandleFunc("/v1/summary/recent", h.recentSummary)
	mux.HandleFunc("/v1/slots", h.answeredSlots)
	mux.HandleFunc("/v1/slots/open", h.openSlots)
	mux.HandleFunc("/v1/altitude", h.currentAltitude)
	mux.HandleFunc("/v1/journal", h.journal)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) logActivity(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req LogActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	input, err := req.Input()
	if err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.service.LogActivity(r.Context(), input)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, LogActivityResponse{
		Status:   "ok",
		EntryID:  result.Entry.ID,
		Day:      result.Entry.Day,
		Category: result.Category.String(),
		Summary:  toSummaryView(result.Row, true),
	})
}

func (h *Handler) applyBonus(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req ApplyBonusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	input, err := req.Input()
	if err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.service.ApplyBonus(r.Context(), input)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ApplyBonusResponse{
		Status:  "ok",
		Applied: result.Applied,
		Summary: toSummaryView(result.Row, true),
	})
}

func (h *Handler) bonusStats(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	stats, err := h.service.BonusStats(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BonusStatsResponse{
		Status:     "ok",
		WindowDays: h.service.Config().StatsWindowDays,
		Goals:      stats,
	})
}

func (h *Handler) todaySummary(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	row, recorded, err := h.service.TodaySummary(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
		SummaryView
	}{Status: "ok", SummaryView: toSummaryView(row, recorded)})
}

func (h *Handler) allSummary(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	query := r.URL.Query()
	after, err := persistence.DecodeCursor(query.Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	limit := 0
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "validation_failed", "limit must be a positive integer")
			return
		}
		limit = min(parsed, maxPageSize)
	}

	var (
		rows []domain.LedgerRow
		next domain.Day
	)
	if limit == 0 && after == "" {
		rows, err = h.service.AllSummary(r.Context())
	} else {
		rows, next, err = h.service.AllSummaryPage(r.Context(), after, limit)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ListSummaryResponse{
		Status:     "ok",
		Items:      toSummaryViews(rows),
		NextCursor: persistence.EncodeCursor(next),
	})
}

func (h *Handler) recentSummary(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	days := defaultRecentDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "validation_failed", "days must be a positive integer")
			return
		}
		days = min(parsed, maxRecentDays)
	}

	rows, err := h.service.RecentSummary(r.Context(), days)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListSummaryResponse{Status: "ok", Items: toSummaryViews(rows)})
}

func (h *Handler) answeredSlots(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	day, ok := h.dayParam(w, r)
	if !ok {
		return
	}
	slots, err := h.service.AnsweredSlots(r.Context(), day)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AnsweredSlotsResponse{Status: "ok", Day: day, Slots: slots})
}

func (h *Handler) openSlots(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	grid, err := h.service.Slots(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
		domain.SlotGrid
	}{Status: "ok", SlotGrid: grid})
}

func (h *Handler) currentAltitude(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	height, err := h.service.CurrentAltitude(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AltitudeResponse{Status: "ok", Day: h.service.Today(), Altitude: height})
}

func (h *Handler) journal(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	day, ok := h.dayParam(w, r)
	if !ok {
		return
	}
	entries, err := h.service.Journal(r.Context(), day)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, JournalResponse{Status: "ok", Day: day, Entries: entries})
}

// dayParam reads ?day=, defaulting to today.
func (h *Handler) dayParam(w http.ResponseWriter, r *http.Request) (domain.Day, bool) {
	raw := r.URL.Query().Get("day")
	if raw == "" {
		return h.service.Today(), true
	}
	day, err := domain.ParseDay(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "day must be formatted YYYY-MM-DD")
		return "", false
	}
	return day, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, "validation_failed", verr.Error())
	case errors.Is(err, domain.ErrInvalidDay):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "ledger operation failed")
	}
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"status": "error",
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/kardemumma/internal/app"
	"github.com/shrimpsizemoose/kardemumma/internal/metrics"
	"github.com/shrimpsizemoose/kardemumma/internal/models"
)

type AdminHandler struct {
	service *app.Service
}

func NewAdminHandler(service *app.Service) *AdminHandler {
	return &AdminHandler{
		service: service,
	}
}

func (h *AdminHandler) gate(w http.ResponseWriter, r *http.Request) bool {
	if !h.service.ValidateAdminHeaders(r.Header) {
		http.Error(w, "these are not the droids you are looking for", http.StatusNotFound)
		return false
	}
	return true
}

func (h *AdminHandler) HandleIssueToken(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r) {
		return
	}

	day := r.PathValue("day")
	if _, err := models.ParseDay(day); err != nil {
		http.Error(w, "Invalid day, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	token, err := h.service.Tokens.Issue(r.Context(), day)
	if err != nil {
		logger.Error.Printf("Failed to issue token for %s: %v", day, err)
		http.Error(w, "Failed to issue token", http.StatusInternalServerError)
		return
	}

	metrics.TokensIssuedTotal.Inc()
	logger.Info.Printf("Issued token for day %s", day)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(token); err != nil {
		logger.Debug.Printf("Error encoding response: %v", err)
	}
}

func (h *AdminHandler) HandleGetToken(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r) {
		return
	}

	day := r.PathValue("day")
	token, err := h.service.Tokens.Get(r.Context(), day)
	if err != nil {
		logger.Error.Printf("Failed to fetch token for %s: %v", day, err)
		http.Error(w, "Failed to fetch token", http.StatusInternalServerError)
		return
	}
	if token == nil {
		http.Error(w, "No token issued for this day", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(token); err != nil {
		logger.Debug.Printf("Error encoding response: %v", err)
	}
}

func (h *AdminHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r) {
		return
	}

	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")

	roster := h.service.Config.Roster.Students
	if student := r.URL.Query().Get("student"); student != "" {
		roster = []string{student}
	}

	stats, err := h.service.Reports.ComputeStats(roster, from, to)
	if err != nil {
		logger.Error.Printf("Failed to compute stats for %s..%s: %v", from, to, err)
		http.Error(w, "Failed to compute stats", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"stats": stats,
	}); err != nil {
		logger.Debug.Printf("Error encoding response: %v", err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// HandleRegister serves the flattened per-day/per-student table for the
// admin register view and exports.
func (h *AdminHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r) {
		return
	}

	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if day := r.URL.Query().Get("day"); day != "" {
		from, to = day, day
	}
	if _, err := models.ParseDay(from); err != nil {
		http.Error(w, "Invalid from day, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	if _, err := models.ParseDay(to); err != nil {
		http.Error(w, "Invalid to day, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	rows, err := h.service.Store.FetchRegisterRows(from, to)
	if err != nil {
		logger.Error.Printf("Failed to fetch register rows: %v", err)
		http.Error(w, "Failed to fetch register", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"rows": rows,
	}); err != nil {
		logger.Debug.Printf("Error encoding response: %v", err)
	}
}

func (h *AdminHandler) HandleSetOverride(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r) {
		return
	}

	var override models.ManualOverride
	if err := json.NewDecoder(r.Body).Decode(&override); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	override.RecordedAt = time.Now().UTC().Unix()

	if err := validator.New().Struct(&override); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.service.Store.SetOverride(override); err != nil {
		logger.Error.Printf("Failed to set override for %s/%s: %v", override.Student, override.Day, err)
		http.Error(w, "Failed to save override", http.StatusInternalServerError)
		return
	}

	logger.Info.Printf("Manual override %s/%s present=%v", override.Student, override.Day, override.Present)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *AdminHandler) HandleListOverrides(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r) {
		return
	}

	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if _, err := models.ParseDay(from); err != nil {
		http.Error(w, "Invalid from day, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	if _, err := models.ParseDay(to); err != nil {
		http.Error(w, "Invalid to day, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	overrides, err := h.service.Store.ListOverridesByDateRange(from, to)
	if err != nil {
		logger.Error.Printf("Failed to list overrides: %v", err)
		http.Error(w, "Failed to list overrides", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"rows": overrides,
	}); err != nil {
		logger.Debug.Printf("Error encoding response: %v", err)
	}
}

func (h *AdminHandler) HandleAddHoliday(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r) {
		return
	}

	var holiday models.Holiday
	if err := json.NewDecoder(r.Body).Decode(&holiday); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := validator.New().Struct(&holiday); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.service.Store.AddHoliday(holiday); err != nil {
		logger.Error.Printf("Failed to add holiday %s: %v", holiday.Day, err)
		http.Error(w, "Failed to save holiday", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *AdminHandler) HandleRemoveHoliday(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r) {
		return
	}

	day := r.PathValue("day")
	if _, err := models.ParseDay(day); err != nil {
		http.Error(w, "Invalid day, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	if err := h.service.Store.RemoveHoliday(day); err != nil {
		logger.Error.Printf("Failed to remove holiday %s: %v", day, err)
		http.Error(w, "Failed to remove holiday", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *AdminHandler) HandleListHolidays(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r) {
		return
	}

	holidays, err := h.service.Store.ListHolidays()
	if err != nil {
		logger.Error.Printf("Failed to list holidays: %v", err)
		http.Error(w, "Failed to list holidays", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"rows": holidays,
	}); err != nil {
		logger.Debug.Printf("Error encoding response: %v", err)
	}
}

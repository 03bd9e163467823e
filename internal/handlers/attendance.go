package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/kardemumma/internal/app"
	"github.com/shrimpsizemoose/kardemumma/internal/geo"
	"github.com/shrimpsizemoose/kardemumma/internal/metrics"
)

type AttendanceHandler struct {
	service *app.Service
}

func NewAttendanceHandler(service *app.Service) *AttendanceHandler {
	return &AttendanceHandler{
		service: service,
	}
}

// HandleVerify is the student-facing verification entry point. Policy
// rejections (bad token, outside the fence, already marked) are regular
// responses; only malformed input or store trouble become error statuses.
func (h *AttendanceHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := http.StatusOK
	defer func() {
		duration := time.Since(start).Seconds()
		metrics.APIRequestDuration.WithLabelValues(
			r.URL.Path,
			r.Method,
			strconv.Itoa(status),
		).Observe(duration)
	}()

	var req app.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		status = http.StatusBadRequest
		http.Error(w, "Invalid request body", status)
		return
	}

	result, err := h.service.VerifyAttendance(r.Context(), &req)
	if err != nil {
		var verrs validator.ValidationErrors
		switch {
		case errors.As(err, &verrs), errors.Is(err, geo.ErrBadAccuracy):
			logger.Debug.Printf("Rejected verify input: %v", err)
			status = http.StatusBadRequest
			http.Error(w, err.Error(), status)
		default:
			logger.Error.Printf("Verification failed for %s/%s: %v", req.Student, req.Day, err)
			status = http.StatusServiceUnavailable
			http.Error(w, "Verification temporarily unavailable, retry later", status)
		}
		return
	}

	metrics.VerificationsTotal.WithLabelValues(string(result.Outcome)).Inc()
	if result.Outcome == app.OutcomeMarked {
		metrics.VerifyDistanceHistogram.Observe(result.DistanceM)
	}

	switch result.Outcome {
	case app.OutcomeInvalidToken, app.OutcomeOutsideRange:
		status = http.StatusForbidden
	case app.OutcomeLocationUnavailable:
		status = http.StatusUnprocessableEntity
	default:
		status = http.StatusOK
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		logger.Debug.Printf("Error encoding response: %v", err)
	}
}

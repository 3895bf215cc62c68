package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/shem-project/shem/internal/forecast"
	"github.com/shem-project/shem/internal/logging"
	"github.com/shem-project/shem/internal/models"
	"github.com/shem-project/shem/internal/monitor"
	"github.com/shem-project/shem/internal/simulation"
)

// Response messages.
const (
	msgNoEntries        = "No entries available."
	msgNoHistory        = "No historical data found."
	msgCleared          = "All readings cleared."
	msgClearFailed      = "Failed to clear readings."
	msgInsufficientData = "Insufficient data to generate a prediction."
	msgMonthRequired    = "Please provide 'month' in YYYY-MM-DD format."
	msgBeforeEarliest   = "Target month is before earliest recorded month."
	msgPredictFailed    = "Prediction failed."
	msgUsageRequired    = "Please provide current usage via 'usage' parameter"
)

// SimulateRequest is the optional body of POST /simulate.
type SimulateRequest struct {
	Scenario      string  `json:"scenario,omitempty"`
	TotalUsageKWh float64 `json:"total_usage_kwh,omitempty"`
	TotalCost     float64 `json:"total_cost,omitempty"`
}

func (req SimulateRequest) options() (simulation.CycleOptions, error) {
	var opts simulation.CycleOptions
	if req.Scenario != "" {
		scenario, ok := models.ParseScenario(req.Scenario)
		if !ok {
			return opts, fmt.Errorf("unknown scenario %q", req.Scenario)
		}
		opts.Scenario = scenario
	}
	if req.TotalUsageKWh != 0 || req.TotalCost != 0 {
		if req.TotalUsageKWh <= 0 || req.TotalCost <= 0 {
			return opts, errors.New("total_usage_kwh and total_cost must both be positive")
		}
		opts.Totals = &simulation.Totals{UsageKWh: req.TotalUsageKWh, Cost: req.TotalCost}
	}
	return opts, nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) simulate(w http.ResponseWriter, r *http.Request) {
	var req SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	opts, err := req.options()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.backend.Simulate(r.Context(), opts)
	if err != nil {
		s.logger.Error().Err(err).Msg("simulation failed")
		writeError(w, http.StatusInternalServerError, "Simulation failed.")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) readings(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("month")
	result, err := s.backend.Readings(r.Context(), key)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result)
	case errors.Is(err, monitor.ErrNoReadings):
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"message":  noReadingsMessage(key),
			"readings": []models.Reading{},
		})
	case errors.Is(err, monitor.ErrInvalidPeriod):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.storageError(w, err)
	}
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	history, err := s.backend.History(r.Context())
	if err != nil {
		s.storageError(w, err)
		return
	}
	if len(history) == 0 {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"history": []models.AggregatedPeriod{},
			"message": msgNoHistory,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"history": history})
}

func (s *Server) predict(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("month")
	prediction, err := s.backend.Predict(r.Context(), target)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, prediction)
	case errors.Is(err, forecast.ErrInsufficientHistory):
		writeError(w, http.StatusBadRequest, msgInsufficientData)
	case errors.Is(err, monitor.ErrInvalidPeriod):
		if target == "" {
			writeError(w, http.StatusBadRequest, msgMonthRequired)
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, monitor.ErrTargetBeforeHistory):
		writeError(w, http.StatusBadRequest, msgBeforeEarliest)
	default:
		s.logger.Error().Err(err).Str("month", target).Msg("prediction failed")
		writeError(w, http.StatusInternalServerError, msgPredictFailed)
	}
}

func (s *Server) suggestions(w http.ResponseWriter, r *http.Request) {
	usage, err := strconv.ParseFloat(r.URL.Query().Get("usage"), 64)
	if err != nil || math.IsNaN(usage) || math.IsInf(usage, 0) {
		writeError(w, http.StatusBadRequest, msgUsageRequired)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"current_usage": usage,
		"suggestions":   s.backend.Suggestions(usage),
	})
}

func (s *Server) breakdown(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("month")
	report, err := s.backend.Breakdown(r.Context(), key)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]interface{}{"data": report})
	case errors.Is(err, monitor.ErrNoReadings):
		writeJSON(w, http.StatusNotFound, map[string]string{"message": noReadingsMessage(key)})
	case errors.Is(err, monitor.ErrInvalidPeriod):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.storageError(w, err)
	}
}

func (s *Server) clearReadings(w http.ResponseWriter, r *http.Request) {
	if _, err := s.backend.Clear(r.Context()); err != nil {
		s.logger.Error().Err(err).Msg("failed to clear readings")
		writeError(w, http.StatusInternalServerError, msgClearFailed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msgCleared})
}

func (s *Server) storageError(w http.ResponseWriter, err error) {
	s.logger.Error().Err(err).Msg("storage failure")
	writeError(w, http.StatusInternalServerError, "storage failure")
}

func noReadingsMessage(key string) string {
	if key == "" {
		return msgNoEntries
	}
	return fmt.Sprintf("No readings for %s.", key)
}

// writeJSON encodes v before writing the header so an unencodable value
// becomes a 500 instead of an empty response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	logger := logging.Component("api")
	body, err := json.Marshal(v)
	if err != nil {
		logger.Error().Err(err).Int("status", status).Msg("failed to encode response")
		status = http.StatusInternalServerError
		body = []byte(`{"error":"failed to encode response"}`)
	}
	body = append(body, '\n')

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logger.Debug().Err(err).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

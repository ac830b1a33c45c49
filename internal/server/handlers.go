package server

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"

	"diet-planner/internal/gpt"
	"diet-planner/internal/models"
	"diet-planner/internal/planclient"
)

const maxRequestBytes = 64 << 10

// PlanGenerator produces the raw JSON plan document for one request.
type PlanGenerator interface {
	GeneratePlan(ctx context.Context, profile models.UserProfile, targetCalories, seed int) (json.RawMessage, error)
}

func (s *Server) handleGeneratePlan(w http.ResponseWriter, r *http.Request) {
	var req planclient.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Cuerpo de la petición inválido.", "")
		return
	}
	if err := req.UserProfile.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	if req.TargetCalories <= 0 {
		writeError(w, http.StatusBadRequest, "targetCalories debe ser positivo.", "")
		return
	}
	if req.Seed == 0 {
		req.Seed = rand.Intn(10_000_000) + 1
	}

	plan, err := s.generator.GeneratePlan(r.Context(), req.UserProfile, req.TargetCalories, req.Seed)
	if err != nil {
		s.logger.Errorw("Plan generation failed",
			"error", err,
			"target", req.TargetCalories,
			"request_id", requestIDFrom(r.Context()))

		switch {
		case errors.Is(err, gpt.ErrMissingAPIKey):
			writeError(w, http.StatusInternalServerError, "API key no configurada en el servidor.", planclient.ConfigurationCode)
		case errors.Is(err, gpt.ErrRateLimited):
			writeError(w, http.StatusTooManyRequests, "Límite de peticiones alcanzado.", "")
		default:
			writeError(w, http.StatusBadGateway, "Error procesando el plan.", "")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(plan)
}

func writeError(w http.ResponseWriter, status int, msg, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(planclient.ErrorResponse{Error: msg, Code: code})
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/SerpentAI/selenium-respectful/internal/core/domain"
	"github.com/SerpentAI/selenium-respectful/internal/core/services"
)

type admissionPayload struct {
	URL    string   `json:"url"`
	Realms []string `json:"realms"`
	Wait   bool     `json:"wait"`
}

type leasePayload struct {
	Realm     string    `json:"realm"`
	ID        string    `json:"id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AdmissionsHandler atende pedidos de admissão, com e sem espera.
type AdmissionsHandler struct {
	gate   *services.GateService
	logger *zap.Logger
}

func NewAdmissionsHandler(gate *services.GateService, logger *zap.Logger) *AdmissionsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdmissionsHandler{gate: gate, logger: logger}
}

func (h *AdmissionsHandler) Routes(r chi.Router) {
	r.Post("/admissions", h.admit)
}

func (h *AdmissionsHandler) admit(w http.ResponseWriter, r *http.Request) {
	var payload admissionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	nav := domain.Navigation{URL: payload.URL, Realms: payload.Realms}

	var (
		decision domain.Decision
		err      error
	)
	if payload.Wait {
		decision, err = h.gate.AdmitWait(r.Context(), nav)
	} else {
		decision, err = h.gate.Admit(r.Context(), nav)
	}
	if err != nil {
		h.writeAdmissionError(w, payload, err)
		return
	}

	leases := make([]leasePayload, 0, len(decision.Leases))
	for _, lease := range decision.Leases {
		leases = append(leases, leasePayload{Realm: lease.Realm, ID: lease.ID, ExpiresAt: lease.ExpiresAt})
	}
	writeJSON(w, http.StatusOK, map[string]any{"granted": true, "leases": leases})
}

func (h *AdmissionsHandler) writeAdmissionError(w http.ResponseWriter, payload admissionPayload, err error) {
	if denial, ok := domain.AsRateLimited(err); ok {
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"granted":          false,
			"saturated_realms": denial.Realms,
		})
		return
	}
	if domain.IsRealmNotFound(err) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	var validation *domain.ActuatorValidationError
	if errors.As(err, &validation) {
		writeError(w, http.StatusUnprocessableEntity, validation.Error())
		return
	}
	var actuator *domain.ActuatorError
	if errors.As(err, &actuator) {
		// Quota was consumed; the navigation itself failed.
		writeError(w, http.StatusBadGateway, actuator.Error())
		return
	}

	h.logger.Error("admission failed",
		zap.Strings("realms", payload.Realms),
		zap.String("url", payload.URL),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}

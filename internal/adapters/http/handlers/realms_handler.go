package handlers

import (
	"encoding/json"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/SerpentAI/selenium-respectful/internal/core/domain"
	"github.com/SerpentAI/selenium-respectful/internal/core/services"
)

type realmPayload struct {
	Name        string `json:"name"`
	MaxRequests int    `json:"max_requests"`
	Timespan    int    `json:"timespan"`
}

func (p realmPayload) toRealm() domain.Realm {
	return domain.Realm{
		Name:        p.Name,
		MaxRequests: p.MaxRequests,
		Timespan:    time.Duration(p.Timespan) * time.Second,
	}
}

// RealmsHandler atende o CRUD administrativo de realms.
type RealmsHandler struct {
	registry *services.RegistryService
	ledger   *services.LedgerService
	logger   *zap.Logger
}

func NewRealmsHandler(registry *services.RegistryService, ledger *services.LedgerService, logger *zap.Logger) *RealmsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RealmsHandler{registry: registry, ledger: ledger, logger: logger}
}

func (h *RealmsHandler) Routes(r chi.Router) {
	r.Post("/realms", h.register)
	r.Post("/realms/batch", h.registerBatch)
	r.Get("/realms", h.list)
	r.Get("/realms/{name}", h.get)
	r.Patch("/realms/{name}", h.update)
	r.Delete("/realms/{name}", h.unregister)
}

func (h *RealmsHandler) register(w http.ResponseWriter, r *http.Request) {
	var payload realmPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.registry.Register(r.Context(), payload.toRealm()); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"name": payload.Name})
}

func (h *RealmsHandler) registerBatch(w http.ResponseWriter, r *http.Request) {
	var payloads []realmPayload
	if err := json.NewDecoder(r.Body).Decode(&payloads); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	realms := make([]domain.Realm, 0, len(payloads))
	for _, payload := range payloads {
		realms = append(realms, payload.toRealm())
	}

	// Registration is applied per entry; earlier successes stand even when a
	// later entry is rejected.
	if err := h.registry.RegisterMany(r.Context(), realms); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"registered": len(realms)})
}

func (h *RealmsHandler) list(w http.ResponseWriter, r *http.Request) {
	names, err := h.registry.ListRegistered(r.Context())
	if err != nil {
		h.logger.Error("listing realms failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"realms": names})
}

func (h *RealmsHandler) get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	realm, err := h.registry.Get(r.Context(), name)
	if err != nil {
		if domain.IsRealmNotFound(err) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("fetching realm failed", zap.String("realm", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	active, err := h.ledger.ActiveCount(r.Context(), name)
	if err != nil {
		h.logger.Error("counting leases failed", zap.String("realm", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"name":            realm.Name,
		"max_requests":    realm.MaxRequests,
		"timespan":        realm.TimespanSeconds(),
		"active_requests": active,
	})
}

func (h *RealmsHandler) update(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	// JSON numbers arrive as float64; whole values are the JSON spelling of
	// integers. Everything else stays as-is and is ignored downstream.
	for key, value := range fields {
		if number, ok := value.(float64); ok && number == math.Trunc(number) {
			fields[key] = int(number)
		}
	}

	if err := h.registry.Update(r.Context(), name, fields); err != nil {
		if domain.IsRealmNotFound(err) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("updating realm failed", zap.String("realm", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *RealmsHandler) unregister(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := h.registry.Unregister(r.Context(), name); err != nil {
		h.logger.Error("unregistering realm failed", zap.String("realm", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

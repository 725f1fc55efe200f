package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Kone-AI/Kone-sub000/pkg/modelhealth"
	"github.com/Kone-AI/Kone-sub000/pkg/providerfactory"
)

// maxHistoryLimit caps the limit query parameter of /status/history.
const maxHistoryLimit = 1000

// ModelsResponse is the body of GET /status/models.
type ModelsResponse struct {
	Models  []modelhealth.Record `json:"models"`
	Count   int                  `json:"count"`
	Running bool                 `json:"running"`
	NextRun *time.Time           `json:"next_run,omitempty"`
}

// ProvidersResponse is the body of GET /status/providers.
type ProvidersResponse struct {
	Providers []providerfactory.ProviderStatus `json:"providers"`
	Count     int                              `json:"count"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes an error.
type ErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// handleListModels lists the latest record of every checked model.
// The optional status query parameter filters by status.
func (s *Server) handleListModels() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records := s.deps.Models.GetStatus()

		if want := r.URL.Query().Get("status"); want != "" {
			filtered := make([]modelhealth.Record, 0, len(records))
			for _, rec := range records {
				if string(rec.Status) == want {
					filtered = append(filtered, rec)
				}
			}
			records = filtered
		}

		resp := ModelsResponse{
			Models:  records,
			Count:   len(records),
			Running: s.deps.Models.Running(),
		}
		if next := s.deps.Models.NextRun(); !next.IsZero() {
			resp.NextRun = &next
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// handleGetModel returns one model record. Model ids contain '/', so the
// id is taken from the wildcard.
func (s *Server) handleGetModel() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		modelID := chi.URLParam(r, "*")
		rec, ok := s.deps.Models.Get(modelID)
		if !ok {
			writeError(w, http.StatusNotFound, "not_found", "model "+modelID+" has not been checked")
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func (s *Server) handleListProviders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := s.deps.Providers.Status(r.Context())
		writeJSON(w, http.StatusOK, ProvidersResponse{Providers: status, Count: len(status)})
	}
}

// handleResetProvider clears the cooldown of a provider.
func (s *Server) handleResetProvider() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if err := s.deps.Providers.ResetProvider(name); err != nil {
			writeError(w, http.StatusNotFound, "not_found", err.Error())
			return
		}
		s.logger.InfoContext(r.Context(), "provider cooldown reset", "provider", name)
		writeJSON(w, http.StatusOK, map[string]string{"provider": name, "status": "reset"})
	}
}

// handleHistory returns persisted check results, newest first.
func (s *Server) handleHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				writeError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
				return
			}
			limit = min(n, maxHistoryLimit)
		}

		entries, err := s.deps.History.History(r.Context(), r.URL.Query().Get("model"), limit)
		if err != nil {
			s.logger.ErrorContext(r.Context(), "failed to read health history", "error", err)
			writeError(w, http.StatusInternalServerError, "server_error", "failed to read health history")
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, errType, message string) {
	writeJSON(w, code, ErrorResponse{Error: ErrorDetail{Type: errType, Message: message}})
}

package status

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Handler serves the status endpoints from the outcome store.
type Handler struct {
	store *Store
	mux   *http.ServeMux
}

// NewHandler registers all routes against the given store.
func NewHandler(st *Store) http.Handler {
	h := &Handler{store: st, mux: http.NewServeMux()}
	h.mux.HandleFunc("/api/v1/status", h.list)
	h.mux.HandleFunc("/healthz", h.healthz)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// list returns GET /api/v1/status — the last outcome for every repository.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, h.store.List())
}

// healthz returns GET /healthz — a liveness probe.
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, map[string]string{"status": "up"})
}

func jsonResp(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("status: encode response", "err", err)
	}
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, map[string]string{"error": msg})
}

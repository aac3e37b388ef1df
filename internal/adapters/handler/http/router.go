package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const WebhookPath = "/telegram/webhook"

// NewHandler builds the HTTP surface. webhookHandler is nil unless updates
// are received through the Telegram webhook.
func NewHandler(planningHandler *PlanningHandler, voterHandler *VoterHandler, webhookHandler *WebhookHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/plannings", func(r chi.Router) {
			r.Get("/{id}", planningHandler.GetPlanning)
		})
		r.Get("/voters", voterHandler.ListVoters)
	})

	if webhookHandler != nil {
		r.Post(WebhookPath, webhookHandler.ReceiveUpdate)
	}

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

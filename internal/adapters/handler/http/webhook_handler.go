package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vncsmyrnk/planner/internal/adapters/handler/telegram"
)

type UpdateDispatcher interface {
	Dispatch(ctx context.Context, update tgbotapi.Update) error
}

// SecretTokenHeader carries the secret registered with setWebhook.
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

type WebhookHandler struct {
	dispatcher UpdateDispatcher
	secret     []byte
	logger     *slog.Logger
}

// NewWebhookHandler accepts only requests carrying secret in
// SecretTokenHeader. An empty secret rejects every request.
func NewWebhookHandler(dispatcher UpdateDispatcher, secret string, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		dispatcher: dispatcher,
		secret:     []byte(secret),
		logger:     logger,
	}
}

// ReceiveUpdate queues an update posted by Telegram. Handling happens in
// the user's session, after the response is written.
func (h *WebhookHandler) ReceiveUpdate(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		h.logger.Warn("rejected webhook request", "remote_addr", r.RemoteAddr)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "invalid update", http.StatusBadRequest)
		return
	}

	if err := h.dispatcher.Dispatch(r.Context(), update); err != nil {
		if errors.Is(err, telegram.ErrDispatcherClosed) {
			http.Error(w, "shutting down", http.StatusServiceUnavailable)
			return
		}
		h.logger.Error("failed to dispatch update", "update_id", update.UpdateID, "error", err)
		http.Error(w, "failed to dispatch update", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *WebhookHandler) authorized(r *http.Request) bool {
	if len(h.secret) == 0 {
		return false
	}
	got := []byte(r.Header.Get(SecretTokenHeader))
	return subtle.ConstantTimeCompare(got, h.secret) == 1
}

package telegram

import (
	"encoding/json"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	telegram "rossmann/internal/adapters/telegram"
	"rossmann/pkg/logger"
)

// UpdateParser decodes a webhook request into an update
type UpdateParser interface {
	HandleUpdate(r *http.Request) (*tgbotapi.Update, error)
}

// WebhookHandler handles Telegram webhook requests
type WebhookHandler struct {
	parser  UpdateParser
	handler *telegram.Handler
	log     *logger.Logger
}

// NewWebhookHandler creates a new Telegram webhook handler. parser is usually
// the bot's *tgbotapi.BotAPI.
func NewWebhookHandler(parser UpdateParser, handler *telegram.Handler, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		parser:  parser,
		handler: handler,
		log:     log.With("component", "telegram_webhook"),
	}
}

// ServeHTTP handles incoming webhook requests from Telegram
func (wh *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	update, err := wh.parser.HandleUpdate(r)
	if err != nil {
		wh.log.Errorw("Failed to handle webhook update", "error", err)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	wh.log.Debugw("Received webhook update",
		"update_id", update.UpdateID,
		"has_message", update.Message != nil,
	)

	// Errors are logged only; Telegram would otherwise redeliver the update forever
	if err := wh.handler.Route(r.Context(), *update); err != nil {
		wh.log.Errorw("Failed to route update", "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"ok": true,
	})
}

// HealthCheck returns webhook health status
func (wh *WebhookHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "telegram_webhook",
	})
}

package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"

	"rossmann/internal/domain/forecast"
	"rossmann/internal/metrics"
	"rossmann/pkg/errors"
	"rossmann/pkg/logger"
)

// Replies sent by the forecast bot
const (
	ReplyWrongID   = "Store ID is Wrong. Try another id ;)"
	ReplyUnknownID = "Store ID is wrong. Try another id ;)"
	ReplyFailed    = "Forecast is unavailable right now. Please try again later."
)

// Sender delivers a text message to a chat
type Sender interface {
	SendMessageWithContext(ctx context.Context, chatID int64, text string) error
}

// OutlookProvider computes a store's six-week outlook
type OutlookProvider interface {
	StoreOutlook(ctx context.Context, store int) (*forecast.Outlook, error)
}

// Handler answers store id messages with the store's six-week sales total
type Handler struct {
	sender   Sender
	outlooks OutlookProvider
	timeout  time.Duration
	log      *logger.Logger
}

// NewHandler creates a new telegram handler
func NewHandler(sender Sender, outlooks OutlookProvider, timeout time.Duration, log *logger.Logger) *Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Handler{
		sender:   sender,
		outlooks: outlooks,
		timeout:  timeout,
		log:      log.With("component", "telegram_handler"),
	}
}

// HandleUpdate processes a polled update
func (h *Handler) HandleUpdate(update tgbotapi.Update) {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	if err := h.Route(ctx, update); err != nil {
		h.log.Errorw("Failed to handle update",
			"update_id", update.UpdateID,
			"error", err,
		)
	}
}

// Route answers a single update. Updates without a text message are ignored.
func (h *Handler) Route(ctx context.Context, update tgbotapi.Update) error {
	msg := update.Message
	if msg == nil || msg.Chat == nil || msg.Text == "" {
		return nil
	}
	chatID := msg.Chat.ID

	h.log.Debugw("Processing message",
		"chat_id", chatID,
		"text", msg.Text,
	)

	store, ok := ParseStoreID(msg.Text)
	if !ok {
		metrics.BotMessages.WithLabelValues("wrong_id").Inc()
		return h.sender.SendMessageWithContext(ctx, chatID, ReplyWrongID)
	}

	reply, outcome, err := h.reply(ctx, store)
	metrics.BotMessages.WithLabelValues(outcome).Inc()
	if sendErr := h.sender.SendMessageWithContext(ctx, chatID, reply); sendErr != nil {
		return sendErr
	}
	return err
}

func (h *Handler) reply(ctx context.Context, store int) (string, string, error) {
	outlook, err := h.outlooks.StoreOutlook(ctx, store)
	switch {
	case err == nil:
		return FormatOutlook(outlook), "forecast", nil
	case errors.Is(err, errors.ErrNotFound), errors.Is(err, errors.ErrInvalidInput):
		return ReplyUnknownID, "not_found", nil
	case errors.Is(err, errors.ErrEmptyResult):
		return fmt.Sprintf("No forecast available for store %d", store), "empty", nil
	default:
		return ReplyFailed, "error", errors.Wrapf(err, "store %d outlook", store)
	}
}

// ParseStoreID reads a store id from "/22", "22" or "/22@rossmann_bot".
func ParseStoreID(text string) (int, bool) {
	text = strings.TrimSpace(text)
	if at := strings.IndexByte(text, '@'); at >= 0 {
		text = text[:at]
	}
	text = strings.TrimSpace(strings.ReplaceAll(text, "/", ""))

	store, err := strconv.Atoi(text)
	if err != nil {
		return 0, false
	}
	return store, true
}

// FormatOutlook renders the reply for a store outlook.
func FormatOutlook(o *forecast.Outlook) string {
	return fmt.Sprintf("Store Number %d will sell U$ %s in the next 6 weeks", o.Store, FormatMoney(o.TotalSales))
}

// FormatMoney writes an amount with thousands separators and two decimals,
// e.g. 123,456.78.
func FormatMoney(d decimal.Decimal) string {
	fixed := d.Round(2).StringFixed(2)

	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	whole, frac, _ := strings.Cut(fixed, ".")

	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return sign + fixed
	}
	return sign + humanize.Comma(n) + "." + frac
}

package telegram

import (
	"context"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"rossmann/pkg/errors"
	"rossmann/pkg/logger"
)

// Bot represents a Telegram bot instance
type Bot struct {
	api         *tgbotapi.BotAPI
	log         *logger.Logger
	mu          sync.RWMutex
	running     bool
	webhookMode bool                  // If true, use webhook instead of polling
	timeout     int                   // Long polling timeout in seconds
	msgHandler  func(tgbotapi.Update) // Handler for incoming updates
	rateLimiter *rate.Limiter         // Rate limiter for Telegram API calls
}

// Config contains Telegram bot configuration
type Config struct {
	Token          string
	Debug          bool
	Timeout        int  // Update timeout in seconds
	WebhookMode    bool // If true, don't start polling (use webhook instead)
	HTTPTimeout    time.Duration
	RateLimitBurst int // Rate limiter burst (default: 30)
	RateLimitRate  int // Rate limiter per second (default: 20)
}

// NewBot creates a new Telegram bot instance
func NewBot(cfg Config, log *logger.Logger) (*Bot, error) {
	if cfg.Token == "" {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "telegram bot token is required")
	}

	// Set defaults
	if cfg.Timeout == 0 {
		cfg.Timeout = 60
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 75 * time.Second
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 30 // Telegram allows bursts
	}
	if cfg.RateLimitRate == 0 {
		cfg.RateLimitRate = 20 // Telegram limit is 30 msg/sec
	}

	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create telegram bot")
	}

	api.Debug = cfg.Debug

	log.Infof("Authorized on account %s", api.Self.UserName)

	return &Bot{
		api:         api,
		webhookMode: cfg.WebhookMode,
		timeout:     cfg.Timeout,
		log:         log.With("component", "telegram_bot"),
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RateLimitRate), cfg.RateLimitBurst),
	}, nil
}

// Start begins polling for updates (or just blocks if webhook mode)
func (b *Bot) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return errors.New("bot is already running")
	}
	b.running = true
	b.mu.Unlock()

	// HTTP server handles webhook requests, no polling needed
	if b.webhookMode {
		b.log.Infow("Telegram bot in webhook mode (no polling)")
		<-ctx.Done()
		b.log.Infow("Telegram bot stopping (context cancelled)")
		b.Stop()
		return nil
	}

	b.log.Infow("Starting Telegram bot in polling mode...")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.timeout

	updates := b.api.GetUpdatesChan(u)

	b.log.Infow("Telegram bot started, waiting for updates")

	for {
		select {
		case <-ctx.Done():
			b.log.Infow("Telegram bot stopping (context cancelled)")
			b.Stop()
			return nil

		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go b.handleUpdate(update)
		}
	}
}

// Stop gracefully stops the bot
func (b *Bot) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.running {
		return
	}

	b.log.Infow("Stopping Telegram bot...")
	if !b.webhookMode {
		b.api.StopReceivingUpdates()
	}
	b.running = false
	b.log.Infow("Telegram bot stopped")
}

// handleUpdate processes a single polled update
func (b *Bot) handleUpdate(update tgbotapi.Update) {
	b.mu.RLock()
	handler := b.msgHandler
	b.mu.RUnlock()

	if handler == nil {
		b.log.Debugw("Received update (no handler registered)", "update_id", update.UpdateID)
		return
	}
	handler(update)
}

// SetMessageHandler registers a handler for incoming updates
func (b *Bot) SetMessageHandler(handler func(tgbotapi.Update)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgHandler = handler
}

// SendMessageWithContext sends a plain text message to a chat
func (b *Bot) SendMessageWithContext(ctx context.Context, chatID int64, text string) error {
	if err := b.rateLimiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "rate limiter wait failed")
	}

	start := time.Now()
	_, err := b.api.Send(tgbotapi.NewMessage(chatID, text))
	duration := time.Since(start)

	if err != nil {
		b.log.Errorw("Failed to send message",
			"chat_id", chatID,
			"error", err,
			"duration_ms", duration.Milliseconds(),
		)
		return errors.Wrap(err, "failed to send message")
	}

	b.log.Debugw("Message sent successfully",
		"chat_id", chatID,
		"duration_ms", duration.Milliseconds(),
	)

	return nil
}

// GetAPI returns the underlying Telegram Bot API instance
func (b *Bot) GetAPI() *tgbotapi.BotAPI {
	return b.api
}

// IsRunning returns whether the bot is currently running
func (b *Bot) IsRunning() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.running
}

// SetWebhook configures the bot to use webhook mode
func (b *Bot) SetWebhook(webhookURL string) error {
	webhookConfig, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return errors.Wrap(err, "failed to create webhook config")
	}

	webhookConfig.MaxConnections = 40
	webhookConfig.AllowedUpdates = []string{"message"}

	if _, err := b.api.Request(webhookConfig); err != nil {
		return errors.Wrap(err, "failed to set webhook")
	}

	b.log.Infow("Webhook configured successfully", "url", webhookURL)
	return nil
}

// DeleteWebhook removes webhook and returns to polling mode
func (b *Bot) DeleteWebhook(dropPendingUpdates bool) error {
	deleteConfig := tgbotapi.DeleteWebhookConfig{
		DropPendingUpdates: dropPendingUpdates,
	}

	if _, err := b.api.Request(deleteConfig); err != nil {
		return errors.Wrap(err, "failed to delete webhook")
	}

	b.log.Infow("Webhook deleted successfully")
	return nil
}

package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"meal-shopper/internal/app"
	"meal-shopper/internal/config"
	"meal-shopper/internal/logging"
)

const commandTimeout = time.Minute

// Sender is the part of the Telegram API the bot replies through.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot wraps the Telegram API and routes chat messages to Commands.
type Bot struct {
	api      Sender
	commands *Commands
	allowed  []int64
	wg       sync.WaitGroup
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(cfg *config.Config, a *app.App) (*Bot, error) {
	if err := cfg.RequireTelegram(); err != nil {
		return nil, err
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	slog.Info("authorized on telegram", "account", api.Self.UserName)

	wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook url %s: %w", cfg.TelegramWebhookURL, err)
	}
	resp, err := api.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	slog.Info("webhook set", "description", resp.Description)

	return newBot(api, a, cfg.TelegramAllowedUserIDs), nil
}

func newBot(api Sender, a *app.App, allowed []int64) *Bot {
	return &Bot{
		api:      api,
		commands: NewCommands(a),
		allowed:  allowed,
	}
}

// Handler returns the HTTP handler serving the webhook and health check.
func (b *Bot) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(logging.Middleware)
	r.Use(middleware.Recoverer)

	r.Post("/webhook", b.handleWebhook)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("OK")) //nolint:errcheck
	})
	return r
}

// Wait blocks until every in-flight message has been answered.
func (b *Bot) Wait() {
	b.wg.Wait()
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := decodeUpdate(r, &update); err != nil {
		slog.Warn("error parsing update", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil || msg.Text == "" {
		return
	}

	if !b.isAllowed(msg.From.ID) {
		slog.Warn("unauthorized access attempt", "user_id", msg.From.ID, "username", msg.From.UserName)
		return
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.processMessage(msg.Chat.ID, msg.Text)
	}()
}

func decodeUpdate(r *http.Request, update *tgbotapi.Update) error {
	if err := json.NewDecoder(r.Body).Decode(update); err != nil {
		return fmt.Errorf("failed to decode update: %w", err)
	}
	return nil
}

// isAllowed reports whether userID may use the bot. An empty allow-list
// admits everyone.
func (b *Bot) isAllowed(userID int64) bool {
	return len(b.allowed) == 0 || slices.Contains(b.allowed, userID)
}

func (b *Bot) processMessage(chatID int64, text string) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	reply := tgbotapi.NewMessage(chatID, b.commands.Handle(ctx, chatID, text))
	reply.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(reply); err != nil {
		slog.Error("failed to send reply", "chat_id", chatID, "error", err)
	}
}

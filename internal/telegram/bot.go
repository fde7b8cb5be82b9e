// Package telegram provides a Telegram bot front end for electcast.
// It answers forecast and ranking commands in chat and can post a scheduled digest
// of the closest races.
//
// Replies use MarkdownV2 formatting. Sends are rate limited and retried with a
// linear backoff, so bursts of commands do not trip Telegram's flood control.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"github.com/rewired-gh/electcast/internal/config"
	"github.com/rewired-gh/electcast/internal/logger"
	"github.com/rewired-gh/electcast/internal/presenter"
	"github.com/rewired-gh/electcast/internal/ranking"
	"github.com/rewired-gh/electcast/internal/service"
)

// Service is what the bot needs from the forecasting layer. *service.Forecaster satisfies it.
type Service interface {
	Constituencies() []string
	Search(query string) []string
	Forecast(ctx context.Context, req service.Request) (*presenter.View, error)
	Rank(ctx context.Context, k int) ([]ranking.Race, []ranking.RaceError, error)
}

// botAPI is the subset of *tgbotapi.BotAPI the bot uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot handles Telegram commands and digests
type Bot struct {
	api            botAPI
	svc            Service
	chatID         int64 // Digest destination; 0 disables the digest
	maxRetries     int
	retryDelayBase time.Duration
	limiter        *rate.Limiter
	digestSchedule string
	digestTopK     int
	sleep          func(ctx context.Context, d time.Duration) error
}

// NewBot creates a new Telegram bot
func NewBot(cfg config.TelegramConfig, svc Service) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	logger.Info("Authorized on Telegram account %s", api.Self.UserName)
	return newBot(api, cfg, svc)
}

func newBot(api botAPI, cfg config.TelegramConfig, svc Service) (*Bot, error) {
	var chatID int64
	if cfg.ChatID != "" {
		id, err := strconv.ParseInt(cfg.ChatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chat ID: %w", err)
		}
		chatID = id
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	retryDelayBase := cfg.RetryDelayBase
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}
	perSecond := cfg.RateLimit
	if perSecond <= 0 {
		perSecond = 1
	}
	topK := cfg.DigestTopK
	if topK <= 0 {
		topK = 5
	}

	return &Bot{
		api:            api,
		svc:            svc,
		chatID:         chatID,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
		limiter:        rate.NewLimiter(rate.Limit(perSecond), 1),
		digestSchedule: cfg.DigestSchedule,
		digestTopK:     topK,
		sleep:          sleepContext,
	}, nil
}

// Run answers commands until ctx is cancelled. When a digest schedule and chat are
// configured, the digest runs on that schedule for as long as Run does.
func (b *Bot) Run(ctx context.Context) error {
	if b.digestSchedule != "" && b.chatID != 0 {
		c := cron.New(cron.WithSeconds())
		if _, err := c.AddFunc(b.digestSchedule, func() {
			if err := b.SendDigest(ctx); err != nil {
				logger.Error("Failed to send digest: %v", err)
			}
		}); err != nil {
			return fmt.Errorf("register digest schedule: %w", err)
		}
		c.Start()
		logger.Info("Digest scheduled (%s, top %d) for chat %d", b.digestSchedule, b.digestTopK, b.chatID)
		defer func() {
			<-c.Stop().Done()
			logger.Debug("Digest scheduler stopped")
		}()
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	logger.Info("Listening for Telegram commands")
	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || !msg.IsCommand() {
		return
	}
	logger.Debug("Command /%s from chat %d", msg.Command(), msg.Chat.ID)

	reply := b.HandleCommand(ctx, msg.Command(), msg.CommandArguments())
	if err := b.Send(ctx, msg.Chat.ID, reply); err != nil {
		logger.Error("Failed to reply to chat %d: %v", msg.Chat.ID, err)
	}
}

// SendDigest posts the closest races to the configured chat.
func (b *Bot) SendDigest(ctx context.Context) error {
	if b.chatID == 0 {
		return fmt.Errorf("no chat configured for the digest")
	}
	races, raceErrors, err := b.svc.Rank(ctx, b.digestTopK)
	if err != nil {
		return fmt.Errorf("failed to rank races: %w", err)
	}
	return b.Send(ctx, b.chatID, formatDigest(races, len(raceErrors)))
}

// Send delivers a MarkdownV2 message, waiting for the rate limiter and retrying
// failed sends.
func (b *Bot) Send(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	var lastErr error
	for i := 0; i < b.maxRetries; i++ {
		if err := b.limiter.Wait(ctx); err != nil {
			return err
		}
		_, err := b.api.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		logger.Warn("Telegram send attempt %d/%d failed: %v", i+1, b.maxRetries, err)
		if i < b.maxRetries-1 {
			if err := b.sleep(ctx, b.retryDelayBase*time.Duration(i+1)); err != nil {
				return err
			}
		}
	}

	return fmt.Errorf("failed to send message after %d retries: %w", b.maxRetries, lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

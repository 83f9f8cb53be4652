// Package bot implements the Telegram control surface for the tracker.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"reel_tracker/internal/config"
	"reel_tracker/internal/storage"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// pollRunner is the slice of the poller the bot drives.
type pollRunner interface {
	PollPost(ctx context.Context, id int64)
	PollIDs(ctx context.Context, ids []int64)
	PollAll(ctx context.Context) (int, error)
}

// Bot is the Telegram bot that handles operator commands.
type Bot struct {
	api    telegramAPI
	store  storage.Storage
	cfg    *config.Config
	poller pollRunner
	log    *slog.Logger
}

// New creates a Bot with the given Telegram token, storage, poller and config.
func New(token string, store storage.Storage, p pollRunner, cfg *config.Config, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return &Bot{
		api:    api,
		store:  store,
		cfg:    cfg,
		poller: p,
		log:    log,
	}, nil
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.CallbackQuery != nil {
				if !b.cfg.IsUserAllowed(update.CallbackQuery.From.ID) {
					continue
				}
				b.handleCallback(ctx, update.CallbackQuery)
				continue
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			if !b.cfg.IsUserAllowed(update.Message.From.ID) {
				b.reply(update.Message.Chat.ID, "Access denied.")
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

// SendMessage sends a text message to the given chat.
func (b *Bot) SendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) reply(chatID int64, text string) {
	b.SendMessage(chatID, text)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "chat_id", chatID)

	switch cmd {
	case "start":
		b.handleStart(chatID)
	case "help":
		b.handleHelp(chatID)
	case "add":
		b.handleAdd(ctx, chatID, args)
	case "bulk":
		b.handleBulk(ctx, chatID, args)
	case "list":
		b.handleList(ctx, chatID)
	case "stats":
		b.handleStats(ctx, chatID)
	case "campaign":
		b.handleCampaign(ctx, chatID, args)
	case "poll":
		b.handlePoll(ctx, chatID, args)
	case "remove_creator":
		b.handleRemoveCreator(ctx, chatID, args)
	case "purge":
		b.handlePurge(chatID)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	data := cb.Data
	chatID := cb.Message.Chat.ID

	callback := tgbotapi.NewCallback(cb.ID, "")
	if _, err := b.api.Send(callback); err != nil {
		b.log.Error("send callback ack", "error", err)
	}

	b.log.Info("callback", "data", data, "chat_id", chatID, "user_id", cb.From.ID)

	switch data {
	case "purge:confirm":
		b.handlePurgeConfirmed(ctx, chatID)
	case "purge:cancel":
		b.reply(chatID, "Purge cancelled.")
	}
}

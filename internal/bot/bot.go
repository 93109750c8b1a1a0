package bot

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"linkbrief/internal/pipeline"
	"linkbrief/internal/ratelimiter"
)

const (
	maxBackoffSeconds         = 60
	initialBackoffSeconds     = 3
	backoffGrowthFactor       = 2
	resetOffsetBackoffSeconds = 30

	DefaultRequestTimeout       = 3 * time.Minute
	DefaultMaxConcurrentUpdates = 8

	BotUpdateTimeout = 60
)

// Runner turns a chat message into a summary.
type Runner interface {
	Run(ctx context.Context, text string) (*pipeline.Result, error)
}

type sender interface {
	Send(ctx context.Context, c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Options struct {
	AllowedChats         []int64
	MaxConcurrentUpdates int
	RequestTimeout       time.Duration
}

type Bot struct {
	api            *tgbotapi.BotAPI
	rateLimiter    *ratelimiter.RateLimiter
	sender         sender
	runner         Runner
	allowedChats   []int64
	slots          chan struct{}
	wg             sync.WaitGroup
	requestTimeout time.Duration
	log            *slog.Logger
}

func New(token string, runner Runner, opts Options, log *slog.Logger) (*Bot, error) {
	token = strings.TrimSpace(token)

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	rateLimiter := ratelimiter.New(api, log)

	b := newBot(rateLimiter, runner, opts, log)
	b.api = api
	b.rateLimiter = rateLimiter

	return b, nil
}

func newBot(s sender, runner Runner, opts Options, log *slog.Logger) *Bot {
	if opts.MaxConcurrentUpdates < 1 {
		opts.MaxConcurrentUpdates = DefaultMaxConcurrentUpdates
	}

	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}

	return &Bot{
		sender:         s,
		runner:         runner,
		allowedChats:   opts.AllowedChats,
		slots:          make(chan struct{}, opts.MaxConcurrentUpdates),
		requestTimeout: opts.RequestTimeout,
		log:            log,
	}
}

// RateLimiter exposes the outgoing queue so housekeeping can sweep it.
func (b *Bot) RateLimiter() *ratelimiter.RateLimiter {
	return b.rateLimiter
}

func (b *Bot) Start(ctx context.Context) {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = BotUpdateTimeout
	updateConfig.AllowedUpdates = []string{"message"}

	backoffSeconds := initialBackoffSeconds

	for {
		select {
		case <-ctx.Done():
			b.log.InfoContext(ctx, "Bot context is done",
				"error", ctx.Err())
			return
		default:
		}

		updates := b.api.GetUpdatesChan(updateConfig)
		updatesClosed := false

		for !updatesClosed {
			select {
			case <-ctx.Done():
				b.log.InfoContext(ctx, "Bot context is done",
					"error", ctx.Err())
				return

			case update, ok := <-updates:
				if !ok {
					updatesClosed = true
					continue
				}
				updateConfig.Offset = update.UpdateID + 1

				b.dispatch(ctx, update)
			}
		}

		if ctx.Err() != nil {
			return
		}

		b.log.WarnContext(ctx, "Update channel is closed, reconnecting...",
			"offset", updateConfig.Offset,
			"backoffSeconds", backoffSeconds)

		select {
		case <-time.After(time.Duration(backoffSeconds) * time.Second):
		case <-ctx.Done():
			return
		}

		backoffSeconds = updateBackoffSeconds(backoffSeconds)

		if backoffSeconds >= resetOffsetBackoffSeconds {
			updateConfig.Offset = 0
		}
	}
}

// dispatch blocks while every slot is busy so polling slows down instead of
// piling up goroutines.
func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	select {
	case b.slots <- struct{}{}:
	case <-ctx.Done():
		return
	}

	b.wg.Add(1)

	go func() {
		defer func() {
			<-b.slots
			b.wg.Done()
		}()

		b.handleUpdate(ctx, &update)
	}()
}

func (b *Bot) handleUpdate(ctx context.Context, update *tgbotapi.Update) {
	if update.Message == nil {
		return
	}

	updateCtx, cancel := context.WithTimeout(ctx, b.requestTimeout)
	defer cancel()

	message := update.Message
	chatID, chatType := chatContext(message.Chat)
	userID, username := userContext(message.From)

	if !b.chatAllowed(chatID) {
		b.log.DebugContext(updateCtx, "Chat is not allowed",
			"chatID", chatID,
			"userID", userID,
			"username", username,
			"chatType", chatType)

		return
	}

	if err := b.handleMessage(updateCtx, message); err != nil {
		b.log.ErrorContext(updateCtx, "Failed to handle message",
			"error", err,
			"chatID", chatID,
			"userID", userID,
			"chatType", chatType,
			"messageID", message.MessageID)
	}
}

func (b *Bot) chatAllowed(chatID int64) bool {
	return len(b.allowedChats) == 0 || slices.Contains(b.allowedChats, chatID)
}

func chatContext(chat *tgbotapi.Chat) (int64, string) {
	if chat == nil {
		return 0, ""
	}

	return chat.ID, chat.Type
}

func userContext(user *tgbotapi.User) (int64, string) {
	if user == nil {
		return 0, ""
	}

	return user.ID, user.UserName
}

// Stop waits for in-flight updates and then closes the outgoing queue.
func (b *Bot) Stop() {
	if b.api != nil {
		b.api.StopReceivingUpdates()
	}

	b.wg.Wait()

	if b.rateLimiter != nil {
		b.rateLimiter.Stop()
	}
}

func updateBackoffSeconds(backoffSeconds int) int {
	if backoffSeconds < maxBackoffSeconds {
		backoffSeconds *= backoffGrowthFactor
		if backoffSeconds > maxBackoffSeconds {
			backoffSeconds = maxBackoffSeconds
		}
	}
	return backoffSeconds
}

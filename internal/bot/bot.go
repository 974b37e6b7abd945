// Package bot is the Telegram front end of the price advisor.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/campusconnect/campusconnect/internal/llm"
	"github.com/campusconnect/campusconnect/internal/pricing"
	"github.com/campusconnect/campusconnect/internal/session"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// BotAPI defines the interface for Telegram bot API operations.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// PriceAdvisor suggests prices. *pricing.Advisor implements it.
type PriceAdvisor interface {
	Analyze(ctx context.Context, req pricing.Request) pricing.PriceAnalysis
}

// Bot answers pricing questions over Telegram.
type Bot struct {
	tg         BotAPI
	advisor    PriceAdvisor
	sessions   *session.Manager
	analyzer   llm.Analyzer
	downloader *ImageDownloader
	categories []string

	mu sync.Mutex
	// Telegram user id to session id
	userSessions map[int64]string
}

// NewBot creates a new Bot instance. categories are offered by /categories
// and used to canonicalize the category given to /price.
func NewBot(tg BotAPI, advisor PriceAdvisor, sessions *session.Manager, categories []string) *Bot {
	return &Bot{
		tg:           tg,
		advisor:      advisor,
		sessions:     sessions,
		downloader:   NewImageDownloader(),
		categories:   categories,
		userSessions: make(map[int64]string),
	}
}

// SetAnalyzer enables photo analysis. Without one, photos get a hint to use
// /price instead.
func (b *Bot) SetAnalyzer(analyzer llm.Analyzer) {
	b.analyzer = analyzer
}

// HandleUpdate handles one Telegram update. It is safe for concurrent use.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	message := update.Message
	if message == nil || message.From == nil || message.Chat == nil {
		return
	}

	log.Info().
		Int64("userId", message.From.ID).
		Str("text", message.Text).
		Int("photos", len(message.Photo)).
		Msg("got message")

	command, args := parseCommand(message.Text)
	switch command {
	case "/start":
		if _, err := b.startSession(message.From.ID); err != nil {
			b.replyWithError(message.Chat.ID, err)
			return
		}
		b.reply(message.Chat.ID, formatReplyText(MsgWelcome))
		return
	case "/stop":
		b.handleStop(message)
		return
	case "/help":
		b.reply(message.Chat.ID, formatReplyText(MsgHelp))
		return
	case "/categories":
		b.handleCategories(message)
		return
	}

	sess, err := b.ensureSession(message.From.ID)
	if err != nil {
		b.replyWithError(message.Chat.ID, err)
		return
	}
	ctx = session.NewContext(ctx, sess)

	switch {
	case command == "/price":
		b.handlePrice(ctx, message, args)
	case len(message.Photo) > 0:
		b.handlePhoto(ctx, message)
	case strings.HasPrefix(command, "/"):
		b.reply(message.Chat.ID, MsgUnknownCommand)
	default:
		b.reply(message.Chat.ID, MsgSendPhotoHint)
	}
}

// startSession replaces any open session of the user with a fresh one.
func (b *Bot) startSession(userID int64) (*session.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if id, ok := b.userSessions[userID]; ok {
		if err := b.sessions.End(id); err != nil && !errors.Is(err, session.ErrNotFound) {
			return nil, err
		}
		delete(b.userSessions, userID)
	}
	return b.startSessionLocked(userID)
}

// ensureSession returns the user's open session, starting one if needed.
func (b *Bot) ensureSession(userID int64) (*session.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if id, ok := b.userSessions[userID]; ok {
		sess, err := b.sessions.Get(id)
		if err == nil {
			return sess, nil
		}
		if !errors.Is(err, session.ErrNotFound) {
			return nil, err
		}
		delete(b.userSessions, userID)
	}
	return b.startSessionLocked(userID)
}

func (b *Bot) startSessionLocked(userID int64) (*session.Session, error) {
	sess, err := b.sessions.Start(telegramUserID(userID), "")
	if err != nil {
		return nil, err
	}
	b.userSessions[userID] = sess.ID
	return sess, nil
}

func (b *Bot) handleStop(message *tgbotapi.Message) {
	b.mu.Lock()
	id, ok := b.userSessions[message.From.ID]
	delete(b.userSessions, message.From.ID)
	b.mu.Unlock()

	if !ok {
		b.reply(message.Chat.ID, MsgNoSession)
		return
	}
	if err := b.sessions.End(id); err != nil && !errors.Is(err, session.ErrNotFound) {
		b.replyWithError(message.Chat.ID, err)
		return
	}
	b.reply(message.Chat.ID, MsgSessionEnded)
}

func (b *Bot) handleCategories(message *tgbotapi.Message) {
	var categories, conditions strings.Builder
	for _, c := range b.categories {
		fmt.Fprintf(&categories, "• %s\n", escapeMarkdown(c))
	}
	for _, c := range pricing.Conditions {
		fmt.Fprintf(&conditions, "• %s\n", c)
	}
	b.reply(message.Chat.ID, fmt.Sprintf(MsgCategories,
		strings.TrimSuffix(categories.String(), "\n"),
		strings.TrimSuffix(conditions.String(), "\n")))
}

func (b *Bot) handlePrice(ctx context.Context, message *tgbotapi.Message, args string) {
	req, ok := parsePriceArgs(args, b.categories)
	if !ok {
		b.reply(message.Chat.ID, MsgPriceUsage)
		return
	}

	b.sendTypingAction(message.Chat.ID)
	analysis := b.advisor.Analyze(ctx, req)
	b.reply(message.Chat.ID, formatAnalysis(analysis))
}

func (b *Bot) handlePhoto(ctx context.Context, message *tgbotapi.Message) {
	if b.analyzer == nil {
		b.reply(message.Chat.ID, MsgVisionDisabled)
		return
	}

	b.sendTypingAction(message.Chat.ID)

	// The last size is the largest.
	largest := message.Photo[len(message.Photo)-1]
	data, err := b.downloader.DownloadTelegramFile(ctx, b.tg.GetFileDirectURL, largest.FileID)
	if err != nil {
		log.Error().Err(err).Str("fileId", largest.FileID).Msg("failed to download photo")
		b.reply(message.Chat.ID, MsgPhotoFailed)
		return
	}

	result, err := b.analyzer.AnalyzeImages(ctx, [][]byte{data})
	if err == nil && result.Item == nil {
		err = errors.New("analyzer returned no item")
	}
	if err != nil {
		log.Error().Err(err).Msg("photo analysis failed")
		b.reply(message.Chat.ID, MsgPhotoFailed)
		return
	}

	item := result.Item
	analysis := b.advisor.Analyze(ctx, pricing.Request{
		Title:       item.Title,
		Category:    item.Category,
		Condition:   pricing.Condition(item.Condition),
		Description: item.Description,
	})

	b.reply(message.Chat.ID, formatPhotoAnalysis(item)+"\n\n"+formatAnalysis(analysis))
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.tg.Send(msg); err != nil {
		log.Error().Err(err).Int64("chatId", chatID).Msg("failed to send reply")
	}
}

func (b *Bot) replyWithError(chatID int64, err error) {
	log.Error().Stack().Err(err).Send()
	b.reply(chatID, MsgUnexpectedErr)
}

func (b *Bot) sendTypingAction(chatID int64) {
	if _, err := b.tg.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		log.Warn().Err(err).Msg("failed to send typing action")
	}
}

func telegramUserID(id int64) string {
	return "telegram:" + strconv.FormatInt(id, 10)
}

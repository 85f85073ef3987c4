package notifier

import (
	"context"
	"errors"
	"html"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	tele "gopkg.in/telebot.v4"
)

// TelegramConfig configures the Telegram mirror sink.
type TelegramConfig struct {
	Token    string
	ChatID   int64
	ThreadID int
}

// TelegramSink sends plain-text messages to one chat (optionally a forum topic).
type TelegramSink struct {
	cfg TelegramConfig
	bot *tele.Bot
}

func NewTelegramSink(cfg TelegramConfig) (*TelegramSink, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat_id is empty")
	}
	// Offline skips getMe at construction; the bot only sends.
	b, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		Offline: true,
		Client:  &http.Client{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, err
	}
	return &TelegramSink{cfg: cfg, bot: b}, nil
}

func (s *TelegramSink) Name() string { return "telegram" }

func (s *TelegramSink) Send(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.bot.Send(&tele.Chat{ID: s.cfg.ChatID}, telegramHTML(m), &tele.SendOptions{
		ParseMode:             tele.ModeHTML,
		ThreadID:              s.cfg.ThreadID,
		DisableWebPagePreview: true,
	})
	return err
}

// telegramMaxRunes is Telegram's message length limit.
const telegramMaxRunes = 4096

// telegramHTML renders m for ParseMode HTML: bold title, escaped body.
// The body is cut so the whole message fits one Telegram message.
func telegramHTML(m Message) string {
	title := ""
	if m.Title != "" {
		title = "<b>" + html.EscapeString(m.Title) + "</b>\n"
	}
	room := telegramMaxRunes - utf8.RuneCountInString(title)
	return title + html.EscapeString(truncRunes(m.Body, room))
}

// truncRunes returns s cut to at most n runes, ending in "…" when cut.
func truncRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}

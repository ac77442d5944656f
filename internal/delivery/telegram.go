package delivery

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ykvlv/dailyping/internal/domain"
)

// botSender is the part of *tgbotapi.BotAPI used for outgoing messages.
type botSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// telegramTimeout bounds a single Bot API request.
const telegramTimeout = 15 * time.Second

// TelegramSender pushes notifications as chat messages.
type TelegramSender struct {
	bot botSender
}

func NewTelegramSender(token string) (*TelegramSender, error) {
	client := &http.Client{Timeout: telegramTimeout}
	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, err
	}
	bot.Debug = false
	return &TelegramSender{bot: bot}, nil
}

func (t *TelegramSender) SendPush(ctx context.Context, ep domain.PushEndpoint, p Payload) error {
	if ep.ChatID == 0 {
		return errors.New("telegram endpoint has no chat id")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(ep.ChatID, telegramText(p))
	msg.DisableWebPagePreview = true

	// Send takes no context; the http client timeout caps the abandoned call.
	done := make(chan error, 1)
	go func() {
		_, err := t.bot.Send(msg)
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func telegramText(p Payload) string {
	lines := make([]string, 0, 3)
	for _, s := range []string{p.Title, p.Body, p.URL} {
		if s = strings.TrimSpace(s); s != "" {
			lines = append(lines, s)
		}
	}
	return strings.Join(lines, "\n\n")
}

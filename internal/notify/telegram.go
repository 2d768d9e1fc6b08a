package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const telegramTimeout = 10 * time.Second

// Telegram отправляет уведомления в telegram чат через Bot API. Ошибки отправки
// пишутся в лог и проглатываются.
type Telegram struct {
	botToken string
	chatID   string
	client   *http.Client
	l        *logrus.Entry
}

func NewTelegram(botToken, chatID string, l *logrus.Logger) *Telegram {
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: telegramTimeout},
		l:        l.WithField("component", "telegram"),
	}
}

func (t *Telegram) Notify(ctx context.Context, event Event, message string) {
	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.botToken)
	form := url.Values{
		"chat_id": {t.chatID},
		"text":    {fmt.Sprintf("[%s] %s", event, message)},
	}

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if reqErr != nil {
		t.l.WithError(reqErr).WithField("event", event).Error("building telegram request")
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, respErr := t.client.Do(req)
	if respErr != nil {
		t.l.WithError(respErr).WithField("event", event).Error("sending telegram notification")
		return
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		t.l.WithFields(logrus.Fields{
			"event":  event,
			"status": resp.StatusCode,
		}).Error("telegram api rejected notification")
	}
}

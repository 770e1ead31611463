/*
Package notify delivers alert messages to the configured notification
targets: one or more Telegram bot/chat pairs, plus an optional email target.

Targets are attempted independently; a failure on one never prevents the
others, and delivery counts as successful when at least one target accepted
the message. There is no retry beyond the single attempt per target.
*/
package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	gomail "gopkg.in/mail.v2"

	"github.com/kpraghav/orderwatch/internal/config"
)

const (
	telegramBaseURL = "https://api.telegram.org"
	sendTimeout     = 10 * time.Second
)

// Dispatcher fans an alert out to every configured target.
type Dispatcher struct {
	telegram   []config.TelegramTarget
	email      config.EmailTarget
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewDispatcher builds a dispatcher from the alerts configuration.
func NewDispatcher(cfg config.AlertsConfig, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		telegram:   cfg.Telegram,
		email:      cfg.Email,
		httpClient: &http.Client{Timeout: sendTimeout},
		logger:     logger,
	}
}

// Send attempts delivery to each target and reports whether at least one
// accepted the message.
func (d *Dispatcher) Send(ctx context.Context, subject, message string) bool {
	delivered := 0

	for i, target := range d.telegram {
		if err := d.sendTelegram(ctx, target, message); err != nil {
			d.logger.Warn().Err(err).Int("target", i).Msg("telegram delivery failed")
			continue
		}
		delivered++
	}

	if d.email.Enabled() {
		if err := d.sendEmail(subject, message); err != nil {
			d.logger.Warn().Err(err).Str("to", d.email.ToEmail).Msg("email delivery failed")
		} else {
			delivered++
		}
	}

	return delivered > 0
}

func (d *Dispatcher) sendTelegram(ctx context.Context, target config.TelegramTarget, message string) error {
	base := target.BaseURL
	if base == "" {
		base = telegramBaseURL
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", base, target.BotToken)
	form := url.Values{
		"chat_id": {target.ChatID},
		"text":    {message},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}
	return nil
}

func (d *Dispatcher) sendEmail(subject, messageBody string) error {
	message := gomail.NewMessage()

	from := d.email.FromEmail
	if from == "" {
		from = d.email.SMTPUser
	}

	message.SetHeader("From", from)
	message.SetHeader("To", d.email.ToEmail)
	message.SetHeader("Subject", subject)
	message.SetBody("text/plain", messageBody)

	dialer := gomail.NewDialer(d.email.SMTPServer, d.email.SMTPPort, d.email.SMTPUser, d.email.SMTPPass)
	dialer.Timeout = sendTimeout

	if err := dialer.DialAndSend(message); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", d.email.ToEmail, err)
	}
	return nil
}

// FormatOrderAlert renders the alert message for a BIG order.
func FormatOrderAlert(company, date, impactNote string, revenueCr, marketCapCr int) string {
	return fmt.Sprintf("📋 ORDER ALERT\n\n📈 %s\n📅 %s\n\n%s\n\n💰 Revenue: %d Cr\n🏢 Market Cap: %d Cr",
		company, date, impactNote, revenueCr, marketCapCr)
}

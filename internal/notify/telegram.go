// Package notify delivers the one-shot "button pressed" message.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	DefaultAPIBase  = "https://api.telegram.org"
	DefaultMessage  = "She pressed the button! 💌"
	DefaultAttempts = 3
	DefaultDelay    = 2 * time.Second
)

var (
	// ErrMissingConfig means the bot token or chat id is not set. No request is made.
	ErrMissingConfig = errors.New("missing telegram config")
	// ErrDeliveryFailed means every attempt failed.
	ErrDeliveryFailed = errors.New("failed after retries")
)

// Notifier sends the notification.
type Notifier interface {
	Notify(ctx context.Context) error
}

// TelegramConfig configures the bot API call. Zero values fall back to the defaults above; a
// negative Delay retries without waiting.
type TelegramConfig struct {
	Token    string
	ChatID   string
	APIBase  string
	Message  string
	Attempts int
	Delay    time.Duration
}

// Configured reports whether both credentials are present.
func (c TelegramConfig) Configured() bool {
	return c.Token != "" && c.ChatID != ""
}

// Telegram posts a message through the Telegram bot API, retrying transient failures with a
// constant delay between attempts.
type Telegram struct {
	cfg    TelegramConfig
	client *http.Client
	log    *zap.Logger
	tracer trace.Tracer
}

// NewTelegram returns a notifier for cfg. A nil client uses a 10 second timeout.
func NewTelegram(cfg TelegramConfig, client *http.Client, log *zap.Logger) *Telegram {
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	if cfg.Message == "" {
		cfg.Message = DefaultMessage
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = DefaultAttempts
	}
	switch {
	case cfg.Delay == 0:
		cfg.Delay = DefaultDelay
	case cfg.Delay < 0:
		cfg.Delay = 0
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Telegram{
		cfg:    cfg,
		client: client,
		log:    log,
		tracer: otel.Tracer("github.com/harrylevesque/forgaile/internal/notify"),
	}
}

// WithTracer replaces the tracer taken from the global provider.
func (t *Telegram) WithTracer(tr trace.Tracer) *Telegram {
	t.tracer = tr
	return t
}

type sendMessage struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

func (t *Telegram) Notify(ctx context.Context) error {
	if !t.cfg.Configured() {
		return ErrMissingConfig
	}
	ctx, span := t.tracer.Start(ctx, "telegram.sendMessage",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.Int("notify.max_attempts", t.cfg.Attempts)))
	defer span.End()

	body, err := json.Marshal(sendMessage{ChatID: t.cfg.ChatID, Text: t.cfg.Message})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	endpoint := strings.TrimRight(t.cfg.APIBase, "/") + "/bot" + t.cfg.Token + "/sendMessage"

	attempt := 0
	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		span.AddEvent("attempt", trace.WithAttributes(attribute.Int("notify.attempt", attempt)))
		return struct{}{}, t.send(ctx, endpoint, body)
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(t.cfg.Delay)),
		backoff.WithMaxTries(uint(t.cfg.Attempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			t.log.Warn("telegram attempt failed",
				zap.Int("attempt", attempt),
				zap.Duration("retry_in", next),
				zap.Error(err))
		}),
	)
	span.SetAttributes(attribute.Int("notify.attempts", attempt))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delivery failed")
		t.log.Error("telegram delivery failed", zap.Int("attempts", attempt), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	t.log.Info("telegram message sent", zap.Int("attempts", attempt))
	return nil
}

func (t *Telegram) send(ctx context.Context, endpoint string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.client.Do(req)
	if err != nil {
		// The token is part of the URL; keep it out of logs.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			uerr.URL = t.cfg.APIBase + "/bot<redacted>/sendMessage"
		}
		return fmt.Errorf("post sendMessage: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sendMessage: status %d", resp.StatusCode)
	}
	return nil
}

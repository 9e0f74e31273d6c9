package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Remote asks a forgaile server to send the notification, so only the server holds the bot token.
type Remote struct {
	BaseURL string
	Client  *http.Client
}

// NewRemote returns a notifier that calls POST {baseURL}/api/notify.
func NewRemote(baseURL string, client *http.Client) *Remote {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Remote{BaseURL: strings.TrimRight(baseURL, "/"), Client: client}
}

type remoteReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// Notify maps the server's replies back onto ErrMissingConfig and ErrDeliveryFailed.
func (r *Remote) Notify(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+"/api/notify", nil)
	if err != nil {
		return err
	}
	resp, err := r.Client.Do(req)
	if err != nil {
		return fmt.Errorf("notify %s: %w", r.BaseURL, err)
	}
	defer resp.Body.Close()

	var reply remoteReply
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	_ = json.Unmarshal(data, &reply)

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusInternalServerError && reply.Error == MissingConfigMessage:
		return ErrMissingConfig
	case resp.StatusCode == http.StatusBadGateway:
		return ErrDeliveryFailed
	default:
		return fmt.Errorf("notify %s: status %d %s", r.BaseURL, resp.StatusCode, reply.Error)
	}
}

// Reply bodies of the notify endpoint.
const (
	MissingConfigMessage  = "Missing Telegram config"
	DeliveryFailedMessage = "Failed after retries"
)

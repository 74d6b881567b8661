package pushover

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/user/slot-watcher/internal/entity"
	"github.com/user/slot-watcher/internal/repository"
)

// DefaultEndpoint is the Pushover message API.
const DefaultEndpoint = "https://api.pushover.net/1/messages.json"

type message struct {
	Token    string `json:"token"`
	User     string `json:"user"`
	Message  string `json:"message"`
	Priority int    `json:"priority"`
}

// Notifier posts alerts to Pushover.
type Notifier struct {
	endpoint string
	token    string
	user     string
	client   *http.Client
}

// NewNotifier creates a Pushover notifier. An empty endpoint selects DefaultEndpoint.
func NewNotifier(endpoint, token, user string, timeout time.Duration) *Notifier {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Notifier{
		endpoint: endpoint,
		token:    token,
		user:     user,
		client:   &http.Client{Timeout: timeout},
	}
}

func (n *Notifier) Name() string { return "pushover" }

// Notify makes one delivery attempt.
func (n *Notifier) Notify(ctx context.Context, alert entity.Alert) error {
	body, err := json.Marshal(message{
		Token:    n.token,
		User:     n.user,
		Message:  alert.Message,
		Priority: alert.Priority,
	})
	if err != nil {
		return fmt.Errorf("%w: encode message: %v", repository.ErrNotificationDelivery, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: create request: %v", repository.ErrNotificationDelivery, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", repository.ErrNotificationDelivery, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: pushover returned %d", repository.ErrNotificationDelivery, resp.StatusCode)
	}
	return nil
}

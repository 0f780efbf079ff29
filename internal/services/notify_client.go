package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/alfaref/referral_backend/internal/models"
)

// NotifyClient отправляет события в сервис уведомлений по HTTP.
// Таймаут короткий: вызов не должен задерживать основную операцию.
type NotifyClient struct {
	url    string
	client *http.Client
}

func NewNotifyClient(url string, timeout time.Duration) *NotifyClient {
	return &NotifyClient{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (c *NotifyClient) Notify(ctx context.Context, event models.NotificationEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("notification service returned %d", resp.StatusCode)
	}
	return nil
}

package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/saturnino-fabrica-de-software/siamese/internal/ws"
)

const (
	HeaderSignature = "X-Siamese-Signature"
	HeaderTimestamp = "X-Siamese-Timestamp"
	HeaderEvent     = "X-Siamese-Event"
)

// Sender posts signed payloads to one endpoint
type Sender struct {
	endpoint Endpoint
	client   *http.Client
	now      func() time.Time
}

func NewSender(endpoint Endpoint) *Sender {
	return &Sender{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		now: time.Now,
	}
}

func (s *Sender) Send(ctx context.Context, eventType ws.EventType, payload []byte) error {
	timestamp := s.now().Unix()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderSignature, Sign(s.endpoint.Secret, timestamp, payload))
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(timestamp, 10))
	req.Header.Set(HeaderEvent, string(eventType))
	req.Header.Set("User-Agent", "Siamese-Webhook/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver %s: %w", eventType, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("deliver %s: HTTP %d", eventType, resp.StatusCode)
	}
	return nil
}

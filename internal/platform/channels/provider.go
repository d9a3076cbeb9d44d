package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/santrihub/sppbilling/pkg/apperr"
	cfgpkg "github.com/santrihub/sppbilling/pkg/config"
	"github.com/santrihub/sppbilling/pkg/types"
)

// providerClient is the shared HTTP plumbing of the outbound adapters:
// bounded timeout, API-key auth, circuit breaker, message-id extraction.
type providerClient struct {
	name    string
	cfg     cfgpkg.ChannelConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[string]
	log     *zap.SugaredLogger
}

func newProviderClient(name string, cfg cfgpkg.ChannelConfig, log *zap.SugaredLogger) *providerClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	st := gobreaker.Settings{
		Name:    name,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
	}
	return &providerClient{
		name:    name,
		cfg:     cfg,
		client:  &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker[string](st),
		log:     log,
	}
}

// post sends payload to path and returns the provider message id from the
// {"message_id": "..."} response body.
func (p *providerClient) post(ctx context.Context, path string, payload any) (string, error) {
	return p.breaker.Execute(func() (string, error) {
		b, err := json.Marshal(payload)
		if err != nil {
			return "", apperr.Gatewayf(err, "%s: marshal request", p.name)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+path, bytes.NewReader(b))
		if err != nil {
			return "", apperr.Gatewayf(err, "%s: build request", p.name)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

		resp, err := p.client.Do(req)
		if err != nil {
			return "", apperr.Gatewayf(err, "%s: send failed", p.name)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return "", apperr.Gatewayf(err, "%s: read response", p.name)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			p.log.Warnw("channel_provider_non_2xx", "provider", p.name, "status", resp.StatusCode)
			return "", apperr.Gatewayf(fmt.Errorf("status %d", resp.StatusCode), "%s: provider rejected message", p.name)
		}
		var res struct {
			MessageID string `json:"message_id"`
		}
		if err := json.Unmarshal(body, &res); err != nil || res.MessageID == "" {
			return "", apperr.Gatewayf(err, "%s: missing message id", p.name)
		}
		return res.MessageID, nil
	})
}

type emailAdapter struct{ *providerClient }

func newEmailAdapter(cfg cfgpkg.ChannelConfig, log *zap.SugaredLogger) *emailAdapter {
	return &emailAdapter{newProviderClient("email", cfg, log)}
}

func (a *emailAdapter) Channel() types.Channel { return types.ChannelEmail }

func (a *emailAdapter) SendMessage(ctx context.Context, to Recipient, msg Message) (string, error) {
	if to.Email == "" {
		return "", apperr.Validationf("recipient %s has no email address", to.ID)
	}
	return a.post(ctx, "/v1/email/send", map[string]any{
		"from":    a.cfg.Sender,
		"to":      to.Email,
		"subject": msg.Title,
		"body":    msg.Body,
	})
}

type whatsAppAdapter struct{ *providerClient }

func newWhatsAppAdapter(cfg cfgpkg.ChannelConfig, log *zap.SugaredLogger) *whatsAppAdapter {
	return &whatsAppAdapter{newProviderClient("whatsapp", cfg, log)}
}

func (a *whatsAppAdapter) Channel() types.Channel { return types.ChannelWhatsApp }

func (a *whatsAppAdapter) SendMessage(ctx context.Context, to Recipient, msg Message) (string, error) {
	if to.Phone == "" {
		return "", apperr.Validationf("recipient %s has no phone number", to.ID)
	}
	return a.post(ctx, "/v1/messages", map[string]any{
		"sender":  a.cfg.Sender,
		"target":  to.Phone,
		"message": fmt.Sprintf("*%s*\n\n%s", msg.Title, msg.Body),
	})
}

type smsAdapter struct{ *providerClient }

func newSMSAdapter(cfg cfgpkg.ChannelConfig, log *zap.SugaredLogger) *smsAdapter {
	return &smsAdapter{newProviderClient("sms", cfg, log)}
}

func (a *smsAdapter) Channel() types.Channel { return types.ChannelSMS }

func (a *smsAdapter) SendMessage(ctx context.Context, to Recipient, msg Message) (string, error) {
	if to.Phone == "" {
		return "", apperr.Validationf("recipient %s has no phone number", to.ID)
	}
	return a.post(ctx, "/v1/sms/send", map[string]any{
		"sender": a.cfg.Sender,
		"to":     to.Phone,
		"text":   msg.Title + ": " + msg.Body,
	})
}

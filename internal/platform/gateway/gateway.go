package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/santrihub/sppbilling/pkg/apperr"
	cfgpkg "github.com/santrihub/sppbilling/pkg/config"
)

// PaymentStatus is the gateway-side state of a payment session.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusSettled PaymentStatus = "settlement"
	PaymentStatusExpired PaymentStatus = "expire"
	PaymentStatusDenied  PaymentStatus = "deny"
	PaymentStatusCancel  PaymentStatus = "cancel"
)

// Settled reports whether the status means money arrived.
func (s PaymentStatus) Settled() bool {
	return s == PaymentStatusSettled || s == "capture"
}

type CreatePaymentRequest struct {
	OrderID     string `json:"order_id"`
	GrossAmount int64  `json:"gross_amount"`
	Description string `json:"description"`
	PayerName   string `json:"payer_name"`
	PayerPhone  string `json:"payer_phone"`
	CallbackURL string `json:"callback_url"`
	ExpirySecs  int64  `json:"expiry_secs"`
}

type PaymentSession struct {
	PaymentID   string `json:"payment_id"`
	RedirectURL string `json:"redirect_url"`
}

// Gateway is the abstract payment collaborator. The wire protocol of the real
// provider stays behind this contract.
type Gateway interface {
	CreatePayment(ctx context.Context, req *CreatePaymentRequest) (*PaymentSession, error)
	GetStatus(ctx context.Context, paymentID string) (PaymentStatus, error)
}

// HTTPGateway talks to an HTTP payment provider using a server key, with a
// bounded timeout and a circuit breaker in front of every call.
type HTTPGateway struct {
	cfg     cfgpkg.GatewayConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	log     *zap.SugaredLogger
}

func NewHTTPGateway(cfg *cfgpkg.Config, log *zap.SugaredLogger) Gateway {
	gc := cfg.Gateway
	timeout := gc.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	st := gobreaker.Settings{
		Name:    "payment-gateway",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
	}
	return &HTTPGateway{
		cfg:     gc,
		client:  &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker[[]byte](st),
		log:     log,
	}
}

func (g *HTTPGateway) CreatePayment(ctx context.Context, req *CreatePaymentRequest) (*PaymentSession, error) {
	if req == nil || req.OrderID == "" || req.GrossAmount <= 0 {
		return nil, apperr.Validationf("invalid payment request")
	}
	if req.CallbackURL == "" {
		req.CallbackURL = g.cfg.CallbackURL
	}
	if req.ExpirySecs == 0 && g.cfg.ExpiryDuration > 0 {
		req.ExpirySecs = int64(g.cfg.ExpiryDuration.Seconds())
	}

	body, err := g.do(ctx, http.MethodPost, "/v1/payments", req)
	if err != nil {
		return nil, err
	}
	var session PaymentSession
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, apperr.Gatewayf(err, "malformed create payment response")
	}
	if session.PaymentID == "" {
		return nil, apperr.Gatewayf(nil, "gateway returned empty payment id")
	}
	return &session, nil
}

func (g *HTTPGateway) GetStatus(ctx context.Context, paymentID string) (PaymentStatus, error) {
	if paymentID == "" {
		return "", apperr.Validationf("payment id required")
	}
	body, err := g.do(ctx, http.MethodGet, "/v1/payments/"+paymentID+"/status", nil)
	if err != nil {
		return "", err
	}
	var res struct {
		TransactionStatus string `json:"transaction_status"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return "", apperr.Gatewayf(err, "malformed status response")
	}
	return PaymentStatus(res.TransactionStatus), nil
}

func (g *HTTPGateway) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	return g.breaker.Execute(func() ([]byte, error) {
		var reader io.Reader
		if payload != nil {
			b, err := json.Marshal(payload)
			if err != nil {
				return nil, apperr.Gatewayf(err, "marshal gateway request")
			}
			reader = bytes.NewReader(b)
		}
		req, err := http.NewRequestWithContext(ctx, method, g.cfg.BaseURL+path, reader)
		if err != nil {
			return nil, apperr.Gatewayf(err, "build gateway request")
		}
		req.Header.Set("Content-Type", "application/json")
		req.SetBasicAuth(g.cfg.ServerKey, "")

		resp, err := g.client.Do(req)
		if err != nil {
			return nil, apperr.Gatewayf(err, "gateway call failed")
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, apperr.Gatewayf(err, "read gateway response")
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			g.log.Warnw("gateway_non_2xx", "status", resp.StatusCode, "path", path)
			return nil, apperr.Gatewayf(fmt.Errorf("status %d", resp.StatusCode), "gateway rejected %s", path)
		}
		return body, nil
	})
}

var Module = fx.Options(
	fx.Provide(NewHTTPGateway),
)

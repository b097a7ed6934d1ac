package lp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/apexfx/brokerd/internal/crypto"
)

// RESTProvider talks to a venue over its HTTP order API. Requests are signed
// with HMAC-SHA256 over timestamp+method+path+body, base64-encoded.
type RESTProvider struct {
	name    string
	baseURL string
	auth    *crypto.HMACAuth
	client  *http.Client
}

// RESTConfig holds connection parameters for a REST venue.
type RESTConfig struct {
	Name      string
	BaseURL   string
	APIKey    string
	APISecret string
	Timeout   time.Duration
}

// NewRESTProvider creates a provider for the venue described by cfg.
func NewRESTProvider(cfg RESTConfig) *RESTProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RESTProvider{
		name:    cfg.Name,
		baseURL: cfg.BaseURL,
		auth:    &crypto.HMACAuth{Key: cfg.APIKey, Secret: cfg.APISecret},
		client:  &http.Client{Timeout: timeout},
	}
}

// Name returns the provider's name.
func (p *RESTProvider) Name() string { return p.name }

func (p *RESTProvider) do(ctx context.Context, method, path string, payload, out any) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("lp: marshal %s %s: %w", method, path, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("lp: build %s %s: %w", method, path, err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range p.auth.Headers(method, path, string(body)) {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("lp: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("lp: read %s %s response: %w", method, path, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrTimeout
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", ErrOrderRejected, string(data))
	case resp.StatusCode >= 400:
		return fmt.Errorf("lp: %s %s: status %d: %s", method, path, resp.StatusCode, string(data))
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("lp: decode %s %s response: %w", method, path, err)
		}
	}
	return nil
}

// ExecuteOrder submits the order and decodes the venue's fill report.
func (p *RESTProvider) ExecuteOrder(ctx context.Context, req *ExecutionRequest) (*ExecutionReport, error) {
	var report ExecutionReport
	if err := p.do(ctx, http.MethodPost, "/v1/orders", req, &report); err != nil {
		return nil, err
	}
	if report.Status == "rejected" {
		return &report, fmt.Errorf("%w: %s", ErrOrderRejected, report.ErrorMessage)
	}
	return &report, nil
}

// GetOrderStatus queries the venue for a previously placed order.
func (p *RESTProvider) GetOrderStatus(ctx context.Context, lpOrderID string) (*OrderStatusResponse, error) {
	var status OrderStatusResponse
	if err := p.do(ctx, http.MethodGet, "/v1/orders/"+lpOrderID, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// CancelOrder attempts to cancel an order at the venue.
func (p *RESTProvider) CancelOrder(ctx context.Context, lpOrderID string) error {
	return p.do(ctx, http.MethodDelete, "/v1/orders/"+lpOrderID, nil, nil)
}

// GetBalance retrieves the venue-side balance for one currency.
func (p *RESTProvider) GetBalance(ctx context.Context, currency string) (*BalanceInfo, error) {
	var info BalanceInfo
	if err := p.do(ctx, http.MethodGet, "/v1/balances/"+currency, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// HealthCheck pings the venue.
func (p *RESTProvider) HealthCheck(ctx context.Context) error {
	return p.do(ctx, http.MethodGet, "/v1/ping", nil, nil)
}

// Compile-time interface check.
var _ LiquidityProvider = (*RESTProvider)(nil)

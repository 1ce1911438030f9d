package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type ClientConfig struct {
	BaseURL       string
	APIToken      string
	WebhookSecret string
	Timeout       time.Duration
}

type httpClient struct {
	cfg  ClientConfig
	http *http.Client
}

// NewClient builds the HTTP adapter. Missing credentials are a configuration
// error and are rejected here rather than on first use.
func NewClient(cfg ClientConfig) (Client, error) {
	if cfg.BaseURL == "" || cfg.APIToken == "" {
		return nil, ErrNotConfigured
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &httpClient{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type orderResponse struct {
	OrderID      string      `json:"order_id"`
	CheckoutURL  string      `json:"checkout_url"`
	Status       OrderStatus `json:"status"`
	AutoCaptured bool        `json:"auto_captured"`
	Code         string      `json:"code"`
	Message      string      `json:"message"`
}

func (c *httpClient) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error) {
	var resp orderResponse
	if err := c.do(ctx, http.MethodPost, "/checkout", req, &resp); err != nil {
		return nil, err
	}
	return &CheckoutResponse{OrderID: resp.OrderID, CheckoutURL: resp.CheckoutURL}, nil
}

func (c *httpClient) GetOrder(ctx context.Context, orderID string) (OrderStatus, error) {
	var resp orderResponse
	if err := c.do(ctx, http.MethodGet, "/orders/"+orderID, nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

func (c *httpClient) Authorize(ctx context.Context, orderID string) (*AuthorizeResult, error) {
	var resp orderResponse
	if err := c.do(ctx, http.MethodPost, "/orders/"+orderID+"/authorise", nil, &resp); err != nil {
		return nil, err
	}
	return &AuthorizeResult{Status: resp.Status, AutoCaptured: resp.AutoCaptured, Message: resp.Message}, nil
}

func (c *httpClient) Capture(ctx context.Context, orderID string, amount Amount) (OrderStatus, error) {
	body := map[string]Amount{"total_amount": amount}
	var resp orderResponse
	if err := c.do(ctx, http.MethodPost, "/payments/capture/"+orderID, body, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

func (c *httpClient) CancelOrder(ctx context.Context, orderID string, amount Amount) (OrderStatus, error) {
	body := map[string]Amount{"total_amount": amount}
	var resp orderResponse
	if err := c.do(ctx, http.MethodPost, "/orders/"+orderID+"/cancel", body, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

func (c *httpClient) Refund(ctx context.Context, orderID string, amount Amount, comment string) (OrderStatus, error) {
	body := map[string]any{"total_amount": amount, "comment": comment}
	var resp orderResponse
	if err := c.do(ctx, http.MethodPost, "/payments/refund/"+orderID, body, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// VerifyWebhookSignature checks the provider's HMAC-SHA256 hex signature over
// the raw payload.
func (c *httpClient) VerifyWebhookSignature(payload []byte, signature string) bool {
	if c.cfg.WebhookSecret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(c.cfg.WebhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (c *httpClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal gateway request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrUnreachable, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out != nil {
			if err := json.Unmarshal(raw, out); err != nil {
				return fmt.Errorf("decode gateway response: %w", err)
			}
		}
		return nil

	case resp.StatusCode == http.StatusConflict:
		var conflict struct {
			OldState OrderStatus `json:"old_state"`
			Message  string      `json:"message"`
		}
		_ = json.Unmarshal(raw, &conflict)
		return &ConflictError{OldState: conflict.OldState, Message: conflict.Message}

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: provider returned %d", ErrNotConfigured, resp.StatusCode)

	default:
		var apiErr struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(raw, &apiErr)
		return &APIError{StatusCode: resp.StatusCode, Code: apiErr.Code, Message: apiErr.Message}
	}
}

// FormatAmount renders an internal float amount as the decimal string the
// provider requires.
func FormatAmount(value float64, currency string) Amount {
	return Amount{Value: fmt.Sprintf("%.2f", value), Currency: currency}
}

package printify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/printloom/printsync-backend/pkg/config"
	pkgerrors "github.com/printloom/printsync-backend/pkg/errors"
	"github.com/printloom/printsync-backend/pkg/logger"
)

const defaultRetryBound = 3

var errAPIKeyRequired = errors.New("printify api key is required")

// RequestObserver is invoked for every failed or retried call, so callers can
// surface vendor trouble to the sync log without coupling the client to it.
type RequestObserver func(endpoint, method string, attempt int, err error)

// Client wraps the Printify REST API with auth, bounded retries, and
// rate-limit handling. Retries are synchronous; there is no concurrent
// fan-out, which keeps the client inside the vendor's rate budget.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	apiKey        string
	retryBound    int
	rateLimitWait time.Duration
	logger        *logger.Logger
	observer      RequestObserver

	sleep func(time.Duration)
}

// NewClient initializes the Printify wrapper and validates the credentials.
func NewClient(cfg config.PrintifyConfig, logg *logger.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	retryBound := cfg.RetryBound
	if retryBound <= 0 {
		retryBound = defaultRetryBound
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rateLimitWait := cfg.RateLimitWait
	if rateLimitWait <= 0 {
		rateLimitWait = 10 * time.Second
	}
	return &Client{
		httpClient:    &http.Client{Timeout: timeout},
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:        apiKey,
		retryBound:    retryBound,
		rateLimitWait: rateLimitWait,
		logger:        logg,
		sleep:         time.Sleep,
	}, nil
}

// SetObserver installs the failed/retried-call hook.
func (c *Client) SetObserver(obs RequestObserver) {
	c.observer = obs
}

type vendorError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (v vendorError) text() string {
	if v.Message != "" {
		return v.Message
	}
	return v.Error
}

// do runs one request with the retry policy: transport failures back off
// exponentially, 429 honors Retry-After, and every attempt consumes the same
// bounded budget. Any other HTTP >=400 returns a vendor error without retry.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode request body")
		}
		payload = encoded
	}

	var lastErr error
	var delay time.Duration
	for attempt := 0; attempt < c.retryBound; attempt++ {
		if delay > 0 {
			c.sleep(delay)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build request")
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = pkgerrors.Wrap(pkgerrors.CodeTransport, err, fmt.Sprintf("%s %s", method, path))
			c.observe(path, method, attempt, lastErr)
			if ctx.Err() != nil {
				return lastErr
			}
			delay = c.backoff(attempt + 1)
			continue
		}

		raw, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = pkgerrors.Wrap(pkgerrors.CodeTransport, readErr, fmt.Sprintf("%s %s: read body", method, path))
			c.observe(path, method, attempt, lastErr)
			delay = c.backoff(attempt + 1)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = pkgerrors.New(pkgerrors.CodeRateLimit, fmt.Sprintf("%s %s: rate limited", method, path))
			c.observe(path, method, attempt, lastErr)
			delay = c.retryAfter(resp)
			continue
		case resp.StatusCode >= http.StatusBadRequest:
			vendorErr := c.vendorFailure(method, path, resp.StatusCode, raw)
			c.observe(path, method, attempt, vendorErr)
			return vendorErr
		}

		if out != nil && len(raw) > 0 {
			if err := json.Unmarshal(raw, out); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeVendor, err, fmt.Sprintf("%s %s: decode response", method, path))
			}
		}
		return nil
	}

	if lastErr == nil {
		lastErr = pkgerrors.New(pkgerrors.CodeTransport, fmt.Sprintf("%s %s: retries exhausted", method, path))
	}
	return lastErr
}

func (c *Client) vendorFailure(method, path string, status int, raw []byte) error {
	var body vendorError
	_ = json.Unmarshal(raw, &body)
	message := body.text()
	if message == "" {
		message = http.StatusText(status)
	}
	code := pkgerrors.CodeVendor
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		code = pkgerrors.CodeUnauthorized
	}
	err := pkgerrors.New(code, fmt.Sprintf("%s %s: vendor returned %d: %s", method, path, status, message))
	return err.WithDetails(map[string]any{"status": status, "vendor_message": message})
}

func (c *Client) backoff(attempt int) time.Duration {
	return time.Duration(1<<attempt) * time.Second
}

func (c *Client) retryAfter(resp *http.Response) time.Duration {
	header := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if header != "" {
		if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return c.rateLimitWait
}

func (c *Client) observe(endpoint, method string, attempt int, err error) {
	if c.observer != nil {
		c.observer(endpoint, method, attempt, err)
	}
	if c.logger != nil {
		ctx := c.logger.WithFields(context.Background(), map[string]any{
			"endpoint": endpoint,
			"method":   method,
			"attempt":  attempt,
		})
		c.logger.Warn(ctx, fmt.Sprintf("printify request failed: %v", err))
	}
}

// ListShops returns every shop visible to the configured token.
func (c *Client) ListShops(ctx context.Context) ([]Shop, error) {
	var shops []Shop
	if err := c.do(ctx, http.MethodGet, "/shops.json", nil, &shops); err != nil {
		return nil, err
	}
	return shops, nil
}

// ListProducts fetches one page of the shop's product catalog.
func (c *Client) ListProducts(ctx context.Context, shopID string, page, limit int) (*ProductPage, error) {
	path := fmt.Sprintf("/shops/%s/products.json?page=%d&limit=%d", shopID, page, limit)
	var result ProductPage
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetProduct fetches a single catalog product.
func (c *Client) GetProduct(ctx context.Context, shopID, productID string) (*Product, error) {
	path := fmt.Sprintf("/shops/%s/products/%s.json", shopID, productID)
	var result Product
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListOrders fetches one page of the shop's orders.
func (c *Client) ListOrders(ctx context.Context, shopID string, page, limit int) (*OrderPage, error) {
	path := fmt.Sprintf("/shops/%s/orders.json?page=%d&limit=%d", shopID, page, limit)
	var result OrderPage
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetOrder fetches a single order.
func (c *Client) GetOrder(ctx context.Context, shopID, orderID string) (*Order, error) {
	path := fmt.Sprintf("/shops/%s/orders/%s.json", shopID, orderID)
	var result Order
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListWebhooks returns the shop's registered webhook subscriptions.
func (c *Client) ListWebhooks(ctx context.Context, shopID string) ([]Webhook, error) {
	path := fmt.Sprintf("/shops/%s/webhooks.json", shopID)
	var hooks []Webhook
	if err := c.do(ctx, http.MethodGet, path, nil, &hooks); err != nil {
		return nil, err
	}
	return hooks, nil
}

// CreateWebhook registers a topic subscription for the given endpoint URL.
func (c *Client) CreateWebhook(ctx context.Context, shopID, topic, url string) (*Webhook, error) {
	path := fmt.Sprintf("/shops/%s/webhooks.json", shopID)
	body := map[string]string{"topic": topic, "url": url}
	var hook Webhook
	if err := c.do(ctx, http.MethodPost, path, body, &hook); err != nil {
		return nil, err
	}
	return &hook, nil
}

// DeleteWebhook removes a registered subscription.
func (c *Client) DeleteWebhook(ctx context.Context, shopID, webhookID string) error {
	path := fmt.Sprintf("/shops/%s/webhooks/%s.json", shopID, webhookID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

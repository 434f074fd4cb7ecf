// Package client talks to the canteen order service over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"canteen-service/basket"
	"canteen-service/models"

	"github.com/sony/gobreaker/v2"
)

const maxResponseBytes = 1 << 20

// OrderError is a failure reported by the service itself.
type OrderError struct {
	Status  int
	Message string
	Stage   string
}

func (e *OrderError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("order service returned %d", e.Status)
	}
	return e.Message
}

type Options struct {
	Timeout time.Duration
	// FailureThreshold is the number of consecutive transport failures that
	// opens the breaker.
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

type response struct {
	status int
	body   []byte
}

type OrderClient struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[response]
}

func NewOrderClient(baseURL string, opts Options) *OrderClient {
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.FailureThreshold == 0 {
		opts.FailureThreshold = 3
	}
	if opts.OpenTimeout == 0 {
		opts.OpenTimeout = 30 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[response](gobreaker.Settings{
		Name:    "order-service",
		Timeout: opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})

	return &OrderClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: opts.Timeout},
		breaker: breaker,
	}
}

// CreateOrder submits one vendor group.
func (c *OrderClient) CreateOrder(ctx context.Context, session basket.Session, req models.OrderRequest) (int64, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return 0, fmt.Errorf("marshal order: %w", err)
	}

	res, err := c.do(ctx, session, http.MethodPost, "/orders/create", body)
	if err != nil {
		return 0, err
	}

	var out models.OrderResponse
	if err := json.Unmarshal(res.body, &out); err != nil {
		return 0, &OrderError{Status: res.status, Message: "unreadable response from order service"}
	}
	if !out.Success || res.status >= 300 {
		return 0, &OrderError{Status: res.status, Message: out.Message, Stage: out.Error}
	}
	return out.OrderID, nil
}

// FetchHistory returns the orders of username.
func (c *OrderClient) FetchHistory(ctx context.Context, session basket.Session, username string) ([]models.OrderHistory, error) {
	res, err := c.do(ctx, session, http.MethodGet, "/orders/"+url.PathEscape(username), nil)
	if err != nil {
		return nil, err
	}

	var out models.OrderHistoryResponse
	if err := json.Unmarshal(res.body, &out); err != nil {
		return nil, &OrderError{Status: res.status, Message: "unreadable response from order service"}
	}
	if !out.Success || res.status >= 300 {
		return nil, &OrderError{Status: res.status, Message: out.Message}
	}
	return out.Orders, nil
}

// do runs one request through the breaker. Only transport failures count
// against it; any HTTP response is a success from the breaker's view.
func (c *OrderClient) do(ctx context.Context, session basket.Session, method, path string, body []byte) (response, error) {
	return c.breaker.Execute(func() (response, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return response{}, err
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if session.Token != "" {
			req.Header.Set("Authorization", "Bearer "+session.Token)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return response{}, fmt.Errorf("order service request failed: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return response{}, fmt.Errorf("read order service response: %w", err)
		}
		return response{status: resp.StatusCode, body: data}, nil
	})
}

// Package pos forwards orders to the point-of-sale system.
package pos

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/backend-zawadi/internal/obs"
	"github.com/noah-isme/backend-zawadi/internal/pricing"
	"github.com/noah-isme/backend-zawadi/internal/resilience"
)

// ErrRejected marks a submission the POS refused. Retrying will not help.
var ErrRejected = errors.New("pos: order rejected")

// Line is one submitted item. Price is the unit price in cents.
type Line struct {
	Name      string        `json:"name"`
	Quantity  int           `json:"quantity"`
	Price     pricing.Money `json:"price"`
	Modifiers []string      `json:"modifiers,omitempty"`
}

// Customer is the pickup contact.
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Order is the submission payload.
type Order struct {
	Number              string        `json:"orderNumber"`
	Customer            Customer      `json:"customer"`
	PickupTime          string        `json:"pickupTime,omitempty"`
	SpecialInstructions string        `json:"specialInstructions,omitempty"`
	Items               []Line        `json:"items"`
	Subtotal            pricing.Money `json:"subtotal"`
	Tax                 pricing.Money `json:"tax"`
	Total               pricing.Money `json:"total"`
}

// Result is the POS answer. GUID is empty when the order was only accepted
// locally.
type Result struct {
	GUID string `json:"guid"`
}

// Submitter sends an order to the POS.
type Submitter interface {
	Submit(ctx context.Context, o Order) (Result, error)
	Mode() string
}

// LocalSubmitter accepts every order without a remote call. It is used when
// no POS is configured.
type LocalSubmitter struct {
	Logger *zerolog.Logger
}

// Mode implements Submitter.
func (LocalSubmitter) Mode() string { return "local" }

// Submit implements Submitter.
func (s LocalSubmitter) Submit(ctx context.Context, o Order) (Result, error) {
	start := time.Now()
	if s.Logger != nil {
		s.Logger.Info().Str("order_number", o.Number).Int("items", len(o.Items)).Msg("pos_local_accept")
	}
	obs.ObservePOSSubmit("local", "ok", time.Since(start))
	return Result{}, nil
}

// HTTPConfig configures HTTPSubmitter.
type HTTPConfig struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	MaxAttempts int
	BaseBackoff time.Duration
	Breaker     *resilience.Breaker
}

// HTTPSubmitter posts orders as JSON to BaseURL + "/orders".
type HTTPSubmitter struct {
	BaseURL string
	APIKey  string
	Client  resilience.HTTPClient
}

// NewHTTPSubmitter builds a traced, retrying submitter.
func NewHTTPSubmitter(cfg HTTPConfig) *HTTPSubmitter {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSubmitter{
		BaseURL: strings.TrimRight(cfg.BaseURL, "/"),
		APIKey:  cfg.APIKey,
		Client: resilience.HTTPClient{
			Client:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
			Breaker:     cfg.Breaker,
			BaseBackoff: cfg.BaseBackoff,
			MaxAttempts: cfg.MaxAttempts,
			Jitter:      0.2,
			Timeout:     timeout,
		},
	}
}

// Mode implements Submitter.
func (*HTTPSubmitter) Mode() string { return "http" }

// Submit implements Submitter. 4xx answers wrap ErrRejected.
func (s *HTTPSubmitter) Submit(ctx context.Context, o Order) (Result, error) {
	start := time.Now()
	res, err := s.submit(ctx, o)
	result := "ok"
	switch {
	case errors.Is(err, ErrRejected):
		result = "rejected"
	case err != nil:
		result = "error"
	}
	obs.ObservePOSSubmit("http", result, time.Since(start))
	return res, err
}

func (s *HTTPSubmitter) submit(ctx context.Context, o Order) (Result, error) {
	if s == nil || s.BaseURL == "" {
		return Result{}, errors.New("pos: base url not configured")
	}
	body, err := json.Marshal(o)
	if err != nil {
		return Result{}, fmt.Errorf("pos: encode order: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", o.Number)
	req.Header.Set("X-Request-Id", uuid.NewString())
	if s.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.APIKey)
	}

	resp, err := s.Client.Do(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("pos: submit: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("pos: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return Result{}, fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	var out Result
	if err := json.Unmarshal(raw, &out); err != nil {
		return Result{}, fmt.Errorf("pos: decode response: %w", err)
	}
	if out.GUID == "" {
		return Result{}, errors.New("pos: response without guid")
	}
	return out, nil
}

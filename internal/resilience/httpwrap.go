package resilience

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClient retries idempotent-safe failures of an http.Client behind an
// optional Breaker.
type HTTPClient struct {
	Client      *http.Client
	Breaker     *Breaker
	BaseBackoff time.Duration
	MaxAttempts int
	Jitter      float64
	// Timeout bounds one attempt including the body read. Zero falls back
	// to Client.Timeout.
	Timeout time.Duration
	// Fallback, when set, receives the final error instead of the caller.
	Fallback func(context.Context, *http.Request, error) (*http.Response, error)
}

// ErrRetryableStatus wraps the status of a response that was retried.
var ErrRetryableStatus = errors.New("resilience: retryable status")

// outcome classifies one attempt.
type outcome int

const (
	succeeded outcome = iota
	// failed counts against the breaker and is retried.
	failed
	// throttled is retried without blaming the dependency.
	throttled
)

func classify(resp *http.Response, err error) outcome {
	switch {
	case err != nil, resp.StatusCode >= http.StatusInternalServerError:
		return failed
	case resp.StatusCode == http.StatusTooManyRequests:
		return throttled
	default:
		return succeeded
	}
}

// Do sends req until it gets a response below 500 (other than 429), the
// attempts run out or the breaker refuses. The body is buffered so every
// attempt sends it again.
func (cl HTTPClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if cl.Client == nil {
		return nil, errors.New("resilience: http client not configured")
	}
	body, err := bufferBody(req)
	if err != nil {
		return nil, err
	}

	attempts := max(cl.MaxAttempts, 1)
	var lastErr error
	for attempt := 1; ; attempt++ {
		if cl.Breaker != nil && !cl.Breaker.Allow(ctx) {
			lastErr = ErrOpenCircuit
			break
		}
		resp, err := cl.doOnce(ctx, withBody(req.Clone(ctx), body))
		result := classify(resp, err)
		if result == succeeded {
			cl.Breaker.report(ctx, true)
			return resp, nil
		}
		if result == failed {
			cl.Breaker.report(ctx, false)
		}
		if err == nil {
			lastErr = fmt.Errorf("%w: %s", ErrRetryableStatus, resp.Status)
			discard(resp)
		} else {
			lastErr = err
		}

		if attempt >= attempts || ctx.Err() != nil {
			break
		}
		if err := sleep(ctx, Backoff(cl.BaseBackoff, attempt, cl.Jitter)); err != nil {
			return nil, err
		}
	}

	if cl.Fallback != nil {
		return cl.Fallback(ctx, req, lastErr)
	}
	return nil, lastErr
}

func (cl HTTPClient) doOnce(ctx context.Context, req *http.Request) (*http.Response, error) {
	timeout := cl.Timeout
	if timeout <= 0 {
		timeout = cl.Client.Timeout
	}
	if timeout <= 0 {
		return cl.Client.Do(req)
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	resp, err := cl.Client.Do(req.WithContext(callCtx))
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	defer c.cancel()
	return c.ReadCloser.Close()
}

// bufferBody reads the request body once. A nil result means no body.
func bufferBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	src := req.Body
	if req.GetBody != nil {
		fresh, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		src = fresh
	}
	defer func() { _ = src.Close() }()
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("buffer request body: %w", err)
	}
	return data, nil
}

func withBody(req *http.Request, body []byte) *http.Request {
	if body == nil {
		return req
	}
	req.Body = io.NopCloser(bytes.NewReader(body))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	req.ContentLength = int64(len(body))
	return req
}

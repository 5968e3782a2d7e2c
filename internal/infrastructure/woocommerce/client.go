package woocommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/knwn/storefront/internal/domain/integration"
)

// maxResponseSize is the maximum allowed response size from the store (10MB)
const maxResponseSize = 10 * 1024 * 1024

// maxReadAttempts bounds retries of idempotent reads
const maxReadAttempts = 3

// invalidCartKeyCode is what the Store API answers for an unknown line key
const invalidCartKeyCode = "woocommerce_rest_cart_invalid_key"

// newHTTPClient builds a traced client. A nil transport means the default.
func newHTTPClient(timeout time.Duration, transport http.RoundTripper) *http.Client {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(transport),
	}
}

// reply is a raw store response
type reply struct {
	status int
	header http.Header
	body   []byte
}

// doJSON sends in as JSON and returns the reply. The reply is also returned
// alongside status errors so callers can read response headers.
func doJSON(ctx context.Context, client *http.Client, method, endpoint string, header http.Header, in any) (*reply, error) {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("woocommerce: failed to encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("woocommerce: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", integration.ErrRemoteUnavailable, err)
	}

	r := &reply{status: resp.StatusCode, header: resp.Header, body: data}
	return r, statusError(resp.StatusCode, data)
}

// statusError maps an HTTP status to the integration error taxonomy
func statusError(status int, body []byte) error {
	if status < http.StatusBadRequest {
		return nil
	}
	var apiErr apiError
	_ = json.Unmarshal(body, &apiErr)

	detail := fmt.Sprintf("HTTP %d", status)
	if apiErr.Code != "" {
		detail = fmt.Sprintf("%s %s: %s", detail, apiErr.Code, apiErr.Message)
	}

	var sentinel error
	switch {
	case apiErr.Code == invalidCartKeyCode:
		sentinel = integration.ErrRemoteLineNotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		sentinel = integration.ErrRemoteAuthFailed
	case status == http.StatusTooManyRequests:
		sentinel = integration.ErrRemoteRateLimited
	case status >= http.StatusInternalServerError:
		sentinel = integration.ErrRemoteUnavailable
	default:
		sentinel = integration.ErrRemoteRequestFailed
	}
	return fmt.Errorf("%w: %s", sentinel, detail)
}

// decode unmarshals a reply body
func decode(r *reply, out any) error {
	if err := json.Unmarshal(r.body, out); err != nil {
		return fmt.Errorf("%w: %v", integration.ErrRemoteInvalidResponse, err)
	}
	return nil
}

// retryRead retries op on transient failures. Only idempotent reads go
// through here.
func retryRead[T any](ctx context.Context, op func() (T, error)) (T, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	return backoff.Retry(ctx, func() (T, error) {
		v, err := op()
		if err != nil && !integration.IsTransient(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(maxReadAttempts),
	)
}

// isNotFound reports whether err is a missing-line error
func isNotFound(err error) bool {
	return errors.Is(err, integration.ErrRemoteLineNotFound)
}

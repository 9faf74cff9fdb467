package feeder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"hydronom-sim/internal/auth"
	"hydronom-sim/internal/telemetry"
)

// Outcome reports how one delivery attempt went. Failures are values, not errors:
// the loop logs them and moves on.
type Outcome struct {
	OK         bool
	StatusCode int
	Latency    time.Duration
	Err        error
}

func (o Outcome) String() string {
	switch {
	case o.OK:
		return fmt.Sprintf("ok status=%d latency=%s", o.StatusCode, o.Latency)
	case o.Err != nil:
		return fmt.Sprintf("failed: %v", o.Err)
	default:
		return fmt.Sprintf("failed status=%d", o.StatusCode)
	}
}

// Transport delivers one record per call.
type Transport interface {
	Send(ctx context.Context, rec telemetry.Record) Outcome
}

const (
	// DefaultSendTimeout bounds a single delivery attempt.
	DefaultSendTimeout = 3 * time.Second
	// maxErrorBody caps how much of a rejection body is kept for diagnostics.
	maxErrorBody = 512
)

// HTTPTransport posts records as JSON to the ingestion endpoint.
type HTTPTransport struct {
	endpoint string
	tokens   auth.TokenSource
	client   *http.Client
}

// NewHTTPTransport creates an HTTPTransport. A non-positive timeout uses DefaultSendTimeout.
func NewHTTPTransport(endpoint string, tokens auth.TokenSource, timeout time.Duration) (*HTTPTransport, error) {
	if endpoint == "" {
		return nil, errors.New("transport: endpoint required")
	}
	if tokens == nil {
		return nil, errors.New("transport: token source required")
	}
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	return &HTTPTransport{
		endpoint: endpoint,
		tokens:   tokens,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

// Send posts rec once. Any non-2xx response or network error is a failed outcome.
func (t *HTTPTransport) Send(ctx context.Context, rec telemetry.Record) Outcome {
	start := time.Now()
	fail := func(status int, err error) Outcome {
		return Outcome{StatusCode: status, Latency: time.Since(start), Err: err}
	}

	body, err := json.Marshal(rec)
	if err != nil {
		return fail(0, fmt.Errorf("encode record: %w", err))
	}
	token, err := t.tokens.Token()
	if err != nil {
		return fail(0, fmt.Errorf("token: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return fail(0, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := t.client.Do(req)
	if err != nil {
		return fail(0, fmt.Errorf("post: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fail(resp.StatusCode, fmt.Errorf("endpoint returned %s: %s", resp.Status, bytes.TrimSpace(msg)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return Outcome{OK: true, StatusCode: resp.StatusCode, Latency: time.Since(start)}
}

// WriterTransport delivers records to a TelemetryWriter, e.g. in print-only mode.
type WriterTransport struct {
	W TelemetryWriter
}

func (t WriterTransport) Send(_ context.Context, rec telemetry.Record) Outcome {
	start := time.Now()
	if err := t.W.Write(rec); err != nil {
		return Outcome{Latency: time.Since(start), Err: err}
	}
	return Outcome{OK: true, Latency: time.Since(start)}
}

// DiscardTransport accepts every record without delivering it. Print-only
// runs with the TUI use it so records reach only the taps.
type DiscardTransport struct{}

func (DiscardTransport) Send(context.Context, telemetry.Record) Outcome {
	return Outcome{OK: true}
}

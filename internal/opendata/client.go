// Package opendata implements the two-step request protocol of the AEMET
// OpenData API: a handshake GET whose JSON body carries the URL of the actual
// payload (datos) and optionally of a field-description document (metadatos),
// both of which are fetched with a fixed-delay retry policy.
package opendata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// ClientConfig holds configuration for the OpenData client.
type ClientConfig struct {
	// Name identifies this client in logs and circuit breaker state.
	Name string

	// Timeout is the timeout for each individual HTTP call.
	// Default: 10 seconds.
	Timeout time.Duration

	// MaxAttempts is the total request budget per fetch, first try included.
	// Default: 10.
	MaxAttempts int

	// RetryWait is the fixed delay between attempts.
	// Default: 5 seconds.
	RetryWait time.Duration

	// RateLimitWait is the longer delay applied after an HTTP 429.
	// Default: 60 seconds.
	RateLimitWait time.Duration

	// TripThreshold is the number of consecutive exhausted fetches after
	// which the circuit opens. Default: 5.
	TripThreshold uint32

	// Clock drives the inter-attempt sleeps. Default: real clock.
	Clock clockwork.Clock

	// Logger for client diagnostics.
	Logger zerolog.Logger
}

// DefaultClientConfig returns the retry policy shared by most endpoints.
func DefaultClientConfig(name string) ClientConfig {
	return ClientConfig{
		Name:          name,
		Timeout:       10 * time.Second,
		MaxAttempts:   10,
		RetryWait:     5 * time.Second,
		RateLimitWait: 60 * time.Second,
		TripThreshold: 5,
	}
}

// Client drives the OpenData two-step protocol with retries. A fetch that
// cannot produce a payload ends in ErrNoData or ErrExhausted; adapters map
// both to an empty result, so ordinary API failures never surface to callers.
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*payload]
	clock      clockwork.Clock
	cfg        ClientConfig
	logger     zerolog.Logger
}

// NewClient creates a new OpenData client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 10
	}
	if cfg.RetryWait == 0 {
		cfg.RetryWait = 5 * time.Second
	}
	if cfg.RateLimitWait == 0 {
		cfg.RateLimitWait = 60 * time.Second
	}
	if cfg.TripThreshold == 0 {
		cfg.TripThreshold = 5
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}

	// One whole fetch (retry loop included) counts as one breaker request,
	// so the breaker only opens after several fetches in a row exhausted
	// their budget. NoData is a valid API answer, not a failure.
	breaker := gobreaker.NewCircuitBreaker[*payload](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.TripThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNoData) || errors.Is(err, context.Canceled)
		},
	})

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    breaker,
		clock:      cfg.Clock,
		cfg:        cfg,
		logger:     cfg.Logger.With().Str("client", cfg.Name).Logger(),
	}
}

// handshakeResponse is the JSON body of the initial request.
type handshakeResponse struct {
	Estado      int    `json:"estado"`
	Descripcion string `json:"descripcion"`
	Datos       string `json:"datos"`
	Metadatos   string `json:"metadatos"`
}

// apiBody is the error descriptor shape a datos payload can carry instead of
// the expected array.
type apiBody struct {
	Estado      int    `json:"estado"`
	Descripcion string `json:"descripcion"`
}

type payload struct {
	data []byte
	meta []byte
}

type fetchOptions struct {
	wantMetadata bool
	binary       bool
}

// Fetch runs the two-step protocol for url and returns the datos payload.
func (c *Client) Fetch(ctx context.Context, url string, notify Notifier) ([]byte, error) {
	p, err := c.execute(ctx, url, notify, fetchOptions{})
	if err != nil {
		return nil, err
	}
	return p.data, nil
}

// FetchWithMetadata runs the two-step protocol and additionally retrieves
// the metadatos document describing the payload's fields.
func (c *Client) FetchWithMetadata(ctx context.Context, url string, notify Notifier) (data, meta []byte, err error) {
	p, err := c.execute(ctx, url, notify, fetchOptions{wantMetadata: true})
	if err != nil {
		return nil, nil, err
	}
	return p.data, p.meta, nil
}

// FetchArchive runs the two-step protocol for a binary payload (the warning
// tar bundles). The body is returned as-is, without JSON shape checks.
func (c *Client) FetchArchive(ctx context.Context, url string, notify Notifier) ([]byte, error) {
	p, err := c.execute(ctx, url, notify, fetchOptions{binary: true})
	if err != nil {
		return nil, err
	}
	return p.data, nil
}

func (c *Client) execute(ctx context.Context, url string, notify Notifier, opts fetchOptions) (*payload, error) {
	p, err := c.breaker.Execute(func() (*payload, error) {
		return c.retryLoop(ctx, url, notify, opts)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			notify.Notify("API marked unavailable after repeated failures, skipping request")
			c.logger.Warn().Msg("circuit open, request short-circuited")
			return nil, ErrExhausted
		}
		return nil, err
	}
	return p, nil
}

// retryLoop drives attempts with a fixed inter-attempt delay, switching to
// the longer rate-limit delay after a 429. NoData ends the loop immediately.
func (c *Client) retryLoop(ctx context.Context, url string, notify Notifier, opts fetchOptions) (*payload, error) {
	policy := &retryPolicy{wait: c.cfg.RetryWait, rateLimitWait: c.cfg.RateLimitWait}
	bo := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.cfg.MaxAttempts-1)), ctx)

	var result *payload
	attempt := 0

	operation := func() error {
		attempt++
		notify.Notifyf("attempt %d/%d", attempt, c.cfg.MaxAttempts)

		p, err := c.attempt(ctx, url, opts)
		if err == nil {
			result = p
			notify.Notify("payload downloaded")
			return nil
		}
		if errors.Is(err, ErrNoData) {
			notify.Notify("no data available for this request")
			return backoff.Permanent(err)
		}
		if errors.Is(err, errRateLimited) {
			policy.rateLimited = true
		}
		return err
	}

	onRetry := func(err error, wait time.Duration) {
		notify.Notifyf("request failed (%v), retrying in %s", err, wait)
		c.logger.Debug().Err(err).Dur("wait", wait).Int("attempt", attempt).Msg("retrying request")
	}

	err := backoff.RetryNotifyWithTimer(operation, bo, onRetry, &clockTimer{clock: c.clock})
	if err != nil {
		if errors.Is(err, ErrNoData) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		notify.Notify("retries exhausted, giving up on this request")
		c.logger.Warn().Err(err).Int("attempts", attempt).Msg("fetch exhausted")
		return nil, ErrExhausted
	}

	return result, nil
}

// attempt performs one full pass of the protocol: handshake, datos download
// and, when requested, metadatos download.
func (c *Client) attempt(ctx context.Context, url string, opts fetchOptions) (*payload, error) {
	hs, err := c.handshake(ctx, url)
	if err != nil {
		return nil, err
	}

	data, err := c.download(ctx, hs.Datos, opts.binary)
	if err != nil {
		return nil, err
	}

	p := &payload{data: data}

	if opts.wantMetadata && hs.Metadatos != "" {
		meta, err := c.download(ctx, hs.Metadatos, true)
		if err != nil {
			return nil, err
		}
		p.meta = meta
	}

	return p, nil
}

func (c *Client) handshake(ctx context.Context, url string) (*handshakeResponse, error) {
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	var hs handshakeResponse
	if err := json.Unmarshal(body, &hs); err != nil {
		return nil, &transientError{fmt.Errorf("malformed handshake body: %w", err)}
	}

	if hs.Estado != http.StatusOK {
		apiErr := &APIError{Estado: hs.Estado, Descripcion: hs.Descripcion}
		if hs.Estado == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrNoData, hs.Descripcion)
		}
		return nil, &transientError{apiErr}
	}
	if hs.Datos == "" {
		return nil, &transientError{errors.New("handshake body missing datos url")}
	}

	return &hs, nil
}

func (c *Client) download(ctx context.Context, url string, binary bool) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &transientError{err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrNoData
	case http.StatusTooManyRequests:
		return nil, errRateLimited
	default:
		return nil, &transientError{fmt.Errorf("unexpected status code %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &transientError{err}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &transientError{errors.New("empty payload body")}
	}

	if !binary {
		if err := checkPayloadShape(body); err != nil {
			return nil, err
		}
	}

	return body, nil
}

// checkPayloadShape rejects a datos payload that is itself an API error
// descriptor. The expected payloads are JSON arrays; an object carrying an
// estado field means the API accepted the request but has nothing to return.
func checkPayloadShape(body []byte) error {
	trimmed := bytes.TrimSpace(body)
	if trimmed[0] != '{' {
		return nil
	}

	var b apiBody
	if err := json.Unmarshal(trimmed, &b); err != nil {
		return &transientError{fmt.Errorf("malformed payload body: %w", err)}
	}
	if b.Estado == 0 {
		return &transientError{errors.New("unexpected object payload")}
	}

	apiErr := &APIError{Estado: b.Estado, Descripcion: b.Descripcion}
	if b.Estado == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNoData, b.Descripcion)
	}
	return &transientError{apiErr}
}

// get performs the handshake GET, mapping status codes into the retry
// taxonomy.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &transientError{err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return nil, errRateLimited
	default:
		return nil, &transientError{fmt.Errorf("unexpected status code %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &transientError{err}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &transientError{errors.New("empty handshake body")}
	}

	return body, nil
}

// retryPolicy yields the fixed inter-attempt delay, or the longer rate-limit
// delay for the retry following a 429.
type retryPolicy struct {
	wait          time.Duration
	rateLimitWait time.Duration
	rateLimited   bool
}

func (p *retryPolicy) NextBackOff() time.Duration {
	if p.rateLimited {
		p.rateLimited = false
		return p.rateLimitWait
	}
	return p.wait
}

func (p *retryPolicy) Reset() {}

// clockTimer adapts a clockwork clock to the backoff timer interface so
// inter-attempt sleeps are controllable in tests.
type clockTimer struct {
	clock clockwork.Clock
	timer clockwork.Timer
}

func (t *clockTimer) Start(d time.Duration) {
	if t.timer == nil {
		t.timer = t.clock.NewTimer(d)
		return
	}
	t.timer.Reset(d)
}

func (t *clockTimer) C() <-chan time.Time {
	return t.timer.Chan()
}

func (t *clockTimer) Stop() {
	if t.timer != nil {
		t.timer.Stop()
	}
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/porter/internal/auth"
	"github.com/desertthunder/porter/internal/shared"
	"golang.org/x/time/rate"
)

const (
	DefaultMaxAttempts    = 3
	DefaultBaseDelay      = time.Second
	DefaultBackoffFactor  = 2.0
	DefaultRequestTimeout = 10 * time.Second

	maxErrorBody = 4096
)

// RequestBuilder builds a request carrying the given bearer token.
//
// It is called once per attempt so a refreshed token lands in the retried request.
type RequestBuilder func(ctx context.Context, token string) (*http.Request, error)

// ExecutorOpts configures an [Executor]. Zero values fall back to the defaults.
type ExecutorOpts struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	BackoffFactor  float64
	RequestTimeout time.Duration
	// Limiter throttles outgoing requests when set.
	Limiter *rate.Limiter
	Client  *http.Client
	Logger  *log.Logger
	// Sleep waits between attempts; tests replace it to avoid real delays.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Executor performs authenticated API calls with token refresh and retry.
type Executor struct {
	maxAttempts    int
	baseDelay      time.Duration
	backoffFactor  float64
	requestTimeout time.Duration
	limiter        *rate.Limiter
	client         *http.Client
	logger         *log.Logger
	sleep          func(ctx context.Context, d time.Duration) error
}

// NewExecutor creates an [Executor] from opts.
func NewExecutor(opts ExecutorOpts) *Executor {
	e := &Executor{
		maxAttempts:    opts.MaxAttempts,
		baseDelay:      opts.BaseDelay,
		backoffFactor:  opts.BackoffFactor,
		requestTimeout: opts.RequestTimeout,
		limiter:        opts.Limiter,
		client:         opts.Client,
		logger:         opts.Logger,
		sleep:          opts.Sleep,
	}

	if e.maxAttempts < 1 {
		e.maxAttempts = DefaultMaxAttempts
	}
	if e.baseDelay <= 0 {
		e.baseDelay = DefaultBaseDelay
	}
	if e.backoffFactor < 1 {
		e.backoffFactor = DefaultBackoffFactor
	}
	if e.requestTimeout <= 0 {
		e.requestTimeout = DefaultRequestTimeout
	}
	if e.client == nil {
		e.client = http.DefaultClient
	}
	if e.logger == nil {
		e.logger = shared.DiscardLogger()
	}
	if e.sleep == nil {
		e.sleep = shared.Sleep
	}
	return e
}

// NewExecutorFromConfig builds an [Executor] from the transfer section of the config.
func NewExecutorFromConfig(cfg shared.TransferConfig, logger *log.Logger) *Executor {
	var limiter *rate.Limiter
	if cfg.RequestsPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), 1)
	}

	return NewExecutor(ExecutorOpts{
		MaxAttempts:    cfg.MaxAttempts,
		BaseDelay:      cfg.BaseDelay(),
		BackoffFactor:  cfg.BackoffFactor,
		RequestTimeout: cfg.RequestTimeout(),
		Limiter:        limiter,
		Logger:         logger,
	})
}

type outcome int

const (
	outcomeOK outcome = iota
	outcomeAuth
	outcomeTransient
	outcomePermanent
)

// attemptResult is what a single round trip produced.
type attemptResult struct {
	outcome    outcome
	err        error
	retryAfter time.Duration
}

// Do runs the request built by build, decoding a JSON 2xx body into out when out is non-nil.
//
// A 401, or a 400/403 whose message mentions the token, triggers one provider refresh and one retry.
// Network errors, timeouts, 429 and 5xx responses are retried up to MaxAttempts total attempts with
// exponential backoff; a Retry-After header overrides the computed delay. Other 4xx responses fail
// immediately with a [*shared.APIError].
func (e *Executor) Do(ctx context.Context, provider auth.Provider, build RequestBuilder, out any) error {
	delay := e.baseDelay
	refreshed := false

	for attempt := 1; ; {
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		token, err := provider.Token(ctx)
		if err != nil {
			return err
		}

		res := e.attempt(ctx, build, token, out)
		switch res.outcome {
		case outcomeOK:
			return nil

		case outcomePermanent:
			return res.err

		case outcomeAuth:
			if refreshed {
				return fmt.Errorf("%w: token rejected after refresh: %w", shared.ErrAuthFailed, res.err)
			}
			refreshed = true
			e.logger.Warn("token rejected, refreshing", "err", res.err)
			if _, err := provider.Refresh(ctx); err != nil {
				return err
			}

		case outcomeTransient:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if attempt >= e.maxAttempts {
				return fmt.Errorf("%w: giving up after %d attempts: %w", shared.ErrTransient, attempt, res.err)
			}

			wait := delay
			if res.retryAfter > 0 {
				wait = res.retryAfter
			}
			e.logger.Warn("request failed, retrying", "attempt", attempt, "wait", wait, "err", res.err)

			if err := e.sleep(ctx, wait); err != nil {
				return err
			}
			delay = time.Duration(float64(delay) * e.backoffFactor)
			attempt++
		}
	}
}

func (e *Executor) attempt(ctx context.Context, build RequestBuilder, token string, out any) attemptResult {
	reqCtx, cancel := context.WithTimeout(ctx, e.requestTimeout)
	defer cancel()

	req, err := build(reqCtx, token)
	if err != nil {
		return attemptResult{outcome: outcomePermanent, err: fmt.Errorf("failed to create request: %w", err)}
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return attemptResult{outcome: outcomeTransient, err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	e.logger.Debug("response", "method", req.Method, "path", req.URL.Path, "status", resp.StatusCode)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			if isTimeout(err) {
				return attemptResult{outcome: outcomeTransient, err: fmt.Errorf("failed to read response: %w", err)}
			}
			return attemptResult{outcome: outcomePermanent, err: fmt.Errorf("failed to read response: %w", err)}
		}
		if out != nil && len(strings.TrimSpace(string(body))) > 0 {
			if err := json.Unmarshal(body, out); err != nil {
				return attemptResult{outcome: outcomePermanent, err: fmt.Errorf("failed to decode response: %w", err)}
			}
		}
		return attemptResult{outcome: outcomeOK}
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &shared.APIError{StatusCode: resp.StatusCode, Message: errorMessage(body)}

	switch {
	case isTokenFailure(resp.StatusCode, apiErr.Message):
		return attemptResult{outcome: outcomeAuth, err: apiErr}
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return attemptResult{
			outcome:    outcomeTransient,
			err:        apiErr,
			retryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}
	default:
		return attemptResult{outcome: outcomePermanent, err: apiErr}
	}
}

func isTokenFailure(status int, msg string) bool {
	switch status {
	case http.StatusUnauthorized:
		return true
	case http.StatusBadRequest, http.StatusForbidden:
		return strings.Contains(strings.ToLower(msg), "token")
	}
	return false
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout())
}

// parseRetryAfter accepts delay-seconds or an HTTP date.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

// errorMessage pulls a readable message out of a Spotify or Apple Music error body.
//
//	Spotify: {"error": {"status": 401, "message": "..."}}
//	Apple:   {"errors": [{"status": "401", "title": "...", "detail": "..."}]}
func errorMessage(body []byte) string {
	var spotify struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &spotify); err == nil && spotify.Error.Message != "" {
		return spotify.Error.Message
	}

	var apple struct {
		Errors []struct {
			Title  string `json:"title"`
			Detail string `json:"detail"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &apple); err == nil && len(apple.Errors) > 0 {
		if apple.Errors[0].Detail != "" {
			return apple.Errors[0].Title + ": " + apple.Errors[0].Detail
		}
		return apple.Errors[0].Title
	}

	return strings.TrimSpace(string(body))
}

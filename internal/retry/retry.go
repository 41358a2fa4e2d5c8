// Package retry executes an upstream operation with hint-aware exponential
// backoff, grounded on original_source/src/utils/retry.rs. The exponential
// schedule itself is computed by github.com/cenkalti/backoff/v5 (the
// ecosystem's standard backoff generator, mirroring the Rust side's use of
// the `backoff` crate); the server-hint parsing and retry-loop policy
// (max attempts, retryable-status classification, total budget) are specific
// to this protocol and implemented here.
package retry

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	maxAttempts    = 5
	initialWait    = 500 * time.Millisecond
	multiplier     = 2.0
	jitter         = 0.3
	maxWait        = 30 * time.Second
	totalBudget    = 2 * time.Minute
	maxHintSeconds = 60.0
)

// HTTPError is the failure shape an Operation returns for a non-2xx upstream
// response: the status code and raw response body, so the retry loop can
// both classify retryability and parse a server-provided RetryInfo hint.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return "upstream http error " + strconv.Itoa(e.StatusCode)
}

// Operation is the async unit of work the engine retries.
type Operation[T any] func(ctx context.Context) (T, error)

// Do runs op, retrying on a retryable HTTPError (429, 500, 502, 503, 504) up
// to maxAttempts times, honoring a server-provided RetryInfo delay hint when
// present, falling back to exponential backoff otherwise. A non-retryable
// error, or exhaustion of attempts/budget, is returned as-is.
func Do[T any](ctx context.Context, op Operation[T]) (T, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initialWait
	bo.Multiplier = multiplier
	bo.RandomizationFactor = jitter
	bo.MaxInterval = maxWait

	var zero T
	deadline := time.Now().Add(totalBudget)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		var httpErr *HTTPError
		if !errors.As(err, &httpErr) || !IsRetryable(httpErr.StatusCode) {
			return zero, err
		}
		if attempt == maxAttempts {
			break
		}

		wait := parseRetryDelay(httpErr.Body)
		if wait <= 0 {
			wait = bo.NextBackOff()
		}
		if wait == backoff.Stop || time.Now().Add(wait).After(deadline) {
			break
		}

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
	return zero, lastErr
}

// IsRetryable reports whether a status code is worth retrying.
func IsRetryable(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// parseRetryDelay looks for a google.rpc.RetryInfo detail in an upstream
// error body and returns the hinted wait, capped at 60s. Returns 0 if no
// usable hint is present.
func parseRetryDelay(body []byte) time.Duration {
	var parsed struct {
		Error struct {
			Details []struct {
				Type       string `json:"@type"`
				RetryDelay string `json:"retryDelay"`
			} `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0
	}
	for _, d := range parsed.Error.Details {
		if !strings.HasSuffix(d.Type, ".RetryInfo") {
			continue
		}
		secs, ok := parseDurationString(d.RetryDelay)
		if !ok {
			continue
		}
		if secs > maxHintSeconds {
			secs = maxHintSeconds
		}
		return time.Duration(secs * float64(time.Second))
	}
	return 0
}

// parseDurationString parses a protobuf-duration string like "0.45s" or
// "40s" into seconds.
func parseDurationString(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "s")
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return secs, true
}

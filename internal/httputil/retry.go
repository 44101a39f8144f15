// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RetryPolicy retries HTTP 429 (Too Many Requests) responses with
// exponential backoff: BaseDelay, 2*BaseDelay, 4*BaseDelay, ... The zero
// value never retries.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// Backoff returns the wait before retry attempt (0-based). A Retry-After
// header in seconds wins when it asks for longer.
func (p RetryPolicy) Backoff(attempt int, retryAfter string) time.Duration {
	d := p.BaseDelay << uint(attempt)
	if secs, err := strconv.Atoi(strings.TrimSpace(retryAfter)); err == nil && secs > 0 {
		if ra := time.Duration(secs) * time.Second; ra > d {
			d = ra
		}
	}
	return d
}

// do executes req under p. Every attempt waits for lim first. When the next
// backoff would outlast ctx's deadline the 429 response is returned at once,
// so a caller with other sources to try is not held up.
func do(ctx context.Context, client *http.Client, lim *Limiter, req *http.Request, p RetryPolicy) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		if err := lim.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}

		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, fmt.Errorf("HTTP request: %w", err)
		}
		if resp.StatusCode != http.StatusTooManyRequests || attempt >= p.MaxRetries {
			return resp, nil
		}

		wait := p.Backoff(attempt, resp.Header.Get("Retry-After"))
		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < wait {
			return resp, nil
		}

		io.Copy(io.Discard, io.LimitReader(resp.Body, MaxBodyBytes))
		resp.Body.Close()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastRetry keeps test backoffs in the millisecond range.
var fastRetry = RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond}

func rateLimitedServer(t *testing.T, failures int32, calls *int32) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := atomic.AddInt32(calls, 1)
		if n <= failures {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok"))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestGet_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	ts := rateLimitedServer(t, 2, &calls)

	body, err := Get(context.Background(), ts.Client(), nil, fastRetry, ts.URL, "", "")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGet_ExhaustsRetries(t *testing.T) {
	var calls int32
	ts := rateLimitedServer(t, 100, &calls)

	_, err := Get(context.Background(), ts.Client(), nil, fastRetry, ts.URL, "", "")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)
	// 1 initial + 3 retries.
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func TestGet_ZeroPolicyDoesNotRetry(t *testing.T) {
	var calls int32
	ts := rateLimitedServer(t, 1, &calls)

	_, err := Get(context.Background(), ts.Client(), nil, RetryPolicy{}, ts.URL, "", "")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGet_Non429IsNotRetried(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	_, err := Get(context.Background(), ts.Client(), nil, fastRetry, ts.URL, "", "")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGet_GivesUpWhenBackoffOutlastsDeadline(t *testing.T) {
	var calls int32
	ts := rateLimitedServer(t, 100, &calls)

	slow := RetryPolicy{MaxRetries: 5, BaseDelay: time.Minute}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	start := time.Now()
	_, err := Get(ctx, ts.Client(), nil, slow, ts.URL, "", "")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestGet_CancelledDuringBackoff(t *testing.T) {
	var calls int32
	ts := rateLimitedServer(t, 100, &calls)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	slow := RetryPolicy{MaxRetries: 5, BaseDelay: 10 * time.Second}
	_, err := Get(ctx, ts.Client(), nil, slow, ts.URL, "", "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryPolicyBackoff(t *testing.T) {
	p := RetryPolicy{BaseDelay: time.Second}
	assert.Equal(t, time.Second, p.Backoff(0, ""))
	assert.Equal(t, 2*time.Second, p.Backoff(1, ""))
	assert.Equal(t, 4*time.Second, p.Backoff(2, ""))
	assert.Equal(t, 30*time.Second, p.Backoff(0, "30"), "Retry-After longer than backoff wins")
	assert.Equal(t, 4*time.Second, p.Backoff(2, "1"), "shorter Retry-After is ignored")
	assert.Equal(t, time.Second, p.Backoff(0, "Wed, 21 Oct 2015 07:28:00 GMT"), "date form is ignored")
}

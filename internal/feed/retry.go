package feed

import (
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"
)

// retryTransport retries transient feed fetch failures with exponential
// backoff and full jitter. Feed hosts throttle aggressive pollers; a 429 or
// a 5xx on one poll is almost never worth surfacing.
type retryTransport struct {
	base       http.RoundTripper
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// newFetchClient builds the HTTP client the feed parser fetches with
func newFetchClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &retryTransport{
			base:       http.DefaultTransport,
			maxRetries: 3,
			baseDelay:  time.Second,
			maxDelay:   15 * time.Second,
		},
	}
}

func (rt *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= rt.maxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(rt.backoff(attempt))
			select {
			case <-timer.C:
			case <-req.Context().Done():
				timer.Stop()
				return nil, req.Context().Err()
			}
		}

		resp, err := rt.base.RoundTrip(req)
		if err != nil {
			if req.Context().Err() != nil {
				return nil, err
			}
			lastErr = err
			continue
		}

		if !retryableStatus(resp.StatusCode) || attempt == rt.maxRetries {
			return resp, nil
		}

		// drain for connection reuse before retrying
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		lastErr = fmt.Errorf("feed host returned %d", resp.StatusCode)
	}

	return nil, lastErr
}

func (rt *retryTransport) backoff(attempt int) time.Duration {
	d := float64(rt.baseDelay) * math.Pow(2, float64(attempt-1))
	if d > float64(rt.maxDelay) {
		d = float64(rt.maxDelay)
	}
	jittered := time.Duration(rand.Float64() * d)
	if jittered < 100*time.Millisecond {
		jittered = 100 * time.Millisecond
	}
	return jittered
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

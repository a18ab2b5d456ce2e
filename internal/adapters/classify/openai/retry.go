package openai

import (
	"context"
	"strings"
	"time"

	"github.com/openai/openai-go/responses"

	perr "sondeo/internal/platform/errors"
)

const maxAttempts = 3

var (
	rateLimitWaits   = []time.Duration{30 * time.Second, 60 * time.Second}
	serverErrorWaits = []time.Duration{5 * time.Second, 20 * time.Second}

	// sleep seam for tests
	sleep = time.Sleep
)

// call runs the request with bounded retry on rate limits and server
// errors. After exhaustion it surfaces a terminal classifier error
func (c *Classifier) call(ctx context.Context, params responses.ResponseNewParams) (*responses.Response, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		resp, err := c.client.Responses.New(ctx, params)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var wait time.Duration
		switch {
		case isRateLimit(err):
			if attempt < len(rateLimitWaits) {
				wait = rateLimitWaits[attempt]
			}
		case isServerError(err):
			if attempt < len(serverErrorWaits) {
				wait = serverErrorWaits[attempt]
			}
		}
		if wait == 0 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, perr.Classifierf("canceled during backoff: %v", ctx.Err())
		default:
		}
		sleep(wait)
	}
	return nil, perr.Classifierf("exhausted %d attempts: %v", maxAttempts, lastErr)
}

func isRateLimit(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "429") ||
		strings.Contains(s, "rate limit") ||
		strings.Contains(s, "too many requests")
}

func isServerError(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "500") ||
		strings.Contains(s, "502") ||
		strings.Contains(s, "503") ||
		strings.Contains(s, "server_error") ||
		strings.Contains(s, "internal server error")
}

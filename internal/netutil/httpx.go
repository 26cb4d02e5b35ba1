// Package netutil carries the shared HTTP plumbing for venue clients.
package netutil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/paperhands/internal/netutil/ratelimit"
)

// Get performs a rate-limited GET and returns the response body. A 429 maps
// to ratelimit.ErrRateLimited so the engine can recognize throttling.
func Get(ctx context.Context, client *http.Client, limiter *ratelimit.Limiter, venue, url string) ([]byte, error) {
	if err := limiter.Wait(ctx, venue); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", venue, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%s: %w", venue, ratelimit.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d", venue, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response body: %w", venue, err)
	}
	log.Debug().Str("venue", venue).Str("url", url).
		Dur("latency", time.Since(start)).Msg("Venue request")
	return body, nil
}

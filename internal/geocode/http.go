package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/time/rate"
)

func newLimiter(ratePerSecond float64) *rate.Limiter {
	if ratePerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(ratePerSecond), 1)
}

// getJSON performs a rate-limited GET and decodes a 2xx JSON body into dst.
// Every failure is reported as a *ProviderError.
func getJSON(ctx context.Context, client *http.Client, limiter *rate.Limiter, provider, rawURL, userAgent string, dst any) error {
	if err := limiter.Wait(ctx); err != nil {
		return &ProviderError{Provider: provider, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &ProviderError{Provider: provider, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		// Includes client timeouts and context cancellation.
		return &ProviderError{Provider: provider, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &ProviderError{Provider: provider, StatusCode: resp.StatusCode, Err: fmt.Errorf("%s: %s", resp.Status, body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return &ProviderError{Provider: provider, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}

// Package sonos reads the zone topology published by a local Sonos HTTP API
// bridge and turns it into a debounced playback signal for one room.
package sonos

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Client fetches zone-group snapshots from the speaker controller
type Client struct {
	zonesURL   string
	httpClient *http.Client

	// Rate limiting for upstream requests
	limiter *rate.Limiter
}

// NewClient creates a new zones client
func NewClient(zonesURL string, timeout time.Duration, rateLimitRPS float64) *Client {
	if timeout == 0 {
		timeout = 3 * time.Second
	}
	if rateLimitRPS == 0 {
		rateLimitRPS = 2.0
	}
	burst := int(rateLimitRPS)
	if burst < 1 {
		burst = 1
	}

	return &Client{
		zonesURL:   zonesURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rateLimitRPS), burst),
	}
}

// Zones fetches a fresh zone-group snapshot
func (c *Client) Zones(ctx context.Context) ([]ZoneGroup, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.zonesURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return decodeZones(body)
}

// Close closes the client
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

/*
Package geo wraps the reverse-geocoding service punches are tagged with.

PURPOSE:
  Punch-in/out captures coordinates; the address shown to HR comes from
  an external reverse-geocoding HTTP service that may be slow or down.
  The client here bounds every call with a timeout and a short retry,
  and classifies failures as upstream errors so the punch service can
  degrade to "address unknown" instead of aborting the punch.
*/
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/falconhr/attendance-engine/fault"
	"github.com/sirupsen/logrus"
)

// Coordinates is a WGS84 point.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Geocoder resolves coordinates to a human-readable address.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, c Coordinates) (string, error)
}

// =============================================================================
// HTTP CLIENT - Nominatim-style reverse endpoint
// =============================================================================

const (
	defaultTimeout = 3 * time.Second
	maxAttempts    = 3
	retryBackoff   = 250 * time.Millisecond
)

// Client calls a Nominatim-compatible /reverse endpoint.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Log        *logrus.Logger
}

// NewClient builds a geocoding client with the default per-call timeout.
func NewClient(baseURL string, log *logrus.Logger) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
		Log:        log,
	}
}

// ReverseGeocode resolves coordinates to an address, retrying transient
// failures a bounded number of times.
func (c *Client) ReverseGeocode(ctx context.Context, coords Coordinates) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		address, err := c.lookup(ctx, coords)
		if err == nil {
			return address, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if c.Log != nil {
			c.Log.WithFields(logrus.Fields{
				"attempt": attempt,
				"lat":     coords.Latitude,
				"lng":     coords.Longitude,
			}).WithError(err).Warn("reverse geocode attempt failed")
		}
		if attempt < maxAttempts {
			select {
			case <-time.After(retryBackoff):
			case <-ctx.Done():
				return "", fmt.Errorf("reverse geocode: %w: %w", fault.ErrUpstream, ctx.Err())
			}
		}
	}
	return "", fmt.Errorf("reverse geocode after %d attempts: %w: %w", maxAttempts, fault.ErrUpstream, lastErr)
}

func (c *Client) lookup(ctx context.Context, coords Coordinates) (string, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(coords.Latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(coords.Longitude, 'f', -1, 64))
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}

	var body struct {
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode geocoder response: %w", err)
	}
	if body.DisplayName == "" {
		return "", fmt.Errorf("geocoder returned no address")
	}
	return body.DisplayName, nil
}

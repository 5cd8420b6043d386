package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultGoogleEndpoint is the Google Geocoding API JSON endpoint.
const DefaultGoogleEndpoint = "https://maps.googleapis.com/maps/api/geocode/json"

// GoogleClient calls the Google Geocoding API.
type GoogleClient struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewGoogleClient constructs a client. An empty endpoint selects DefaultGoogleEndpoint and a nil
// httpClient gets a 10 second timeout.
func NewGoogleClient(apiKey, endpoint string, httpClient *http.Client) *GoogleClient {
	if endpoint == "" {
		endpoint = DefaultGoogleEndpoint
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &GoogleClient{apiKey: apiKey, endpoint: endpoint, client: httpClient}
}

type googleResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		Geometry struct {
			Location Coordinates `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Geocode resolves address to the first result returned by Google.
func (c *GoogleClient) Geocode(ctx context.Context, address string) (Coordinates, error) {
	query := url.Values{}
	query.Set("address", address)
	query.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return Coordinates{}, fmt.Errorf("geocode: build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Coordinates{}, fmt.Errorf("geocode: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Coordinates{}, fmt.Errorf("geocode: unexpected status %d: %s", resp.StatusCode, body)
	}

	var payload googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Coordinates{}, fmt.Errorf("geocode: decode response: %w", err)
	}

	switch payload.Status {
	case "OK":
		if len(payload.Results) == 0 {
			return Coordinates{}, ErrNoResults
		}
		return payload.Results[0].Geometry.Location, nil
	case "ZERO_RESULTS":
		return Coordinates{}, ErrNoResults
	default:
		return Coordinates{}, fmt.Errorf("geocode: provider status %s: %s", payload.Status, payload.ErrorMessage)
	}
}

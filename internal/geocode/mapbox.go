package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"

var (
	ErrNoToken   = errors.New("geocoding token not configured")
	ErrNoFeature = errors.New("no geocoding result")
)

type Point struct {
	Longitude float64
	Latitude  float64
}

// Client calls the Mapbox forward geocoding endpoint.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(token string) *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

type featureCollection struct {
	Features []struct {
		Geometry struct {
			Type        string    `json:"type"`
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// Forward returns the best match for query.
func (c *Client) Forward(ctx context.Context, query string) (Point, error) {
	if c.token == "" {
		return Point{}, ErrNoToken
	}

	endpoint := fmt.Sprintf("%s/%s.json?%s", c.baseURL, url.PathEscape(query), url.Values{
		"access_token": {c.token},
		"limit":        {"1"},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Point{}, fmt.Errorf("build geocoding request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Point{}, fmt.Errorf("geocoding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Point{}, fmt.Errorf("geocoding request: unexpected status %d", resp.StatusCode)
	}

	var fc featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return Point{}, fmt.Errorf("decode geocoding response: %w", err)
	}

	if len(fc.Features) == 0 || len(fc.Features[0].Geometry.Coordinates) < 2 {
		return Point{}, ErrNoFeature
	}

	coords := fc.Features[0].Geometry.Coordinates
	return Point{Longitude: coords[0], Latitude: coords[1]}, nil
}

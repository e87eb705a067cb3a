package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/BruksfildServices01/homeservices-coverage/internal/logger"
	"github.com/BruksfildServices01/homeservices-coverage/internal/metrics"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api/geocode/json"

// Location is what a lookup learns about one postal code.
type Location struct {
	Code      string  `json:"code"`
	City      string  `json:"city"`
	State     string  `json:"state"`
	StateAbbr string  `json:"state_abbr"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
}

// Lookup resolves a postal code to a location.
type Lookup interface {
	LookupPostalCode(ctx context.Context, code string) (*Location, error)
}

// Client wraps the Google Maps Geocoding API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient returns nil when apiKey is empty so callers can run without
// geocoding.
func NewClient(apiKey string, timeout time.Duration) *Client {
	if apiKey == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type geocodeResponse struct {
	Results []geocodeResult `json:"results"`
	Status  string          `json:"status"`
}

type geocodeResult struct {
	AddressComponents []addressComponent `json:"address_components"`
	Geometry          geometry           `json:"geometry"`
}

type addressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

type geometry struct {
	Location latLng `json:"location"`
}

type latLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// LookupPostalCode geocodes a US postal code by component filter.
func (c *Client) LookupPostalCode(ctx context.Context, code string) (*Location, error) {
	q := url.Values{}
	q.Set("components", "postal_code:"+code+"|country:US")
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	metrics.GeocodeRequestsTotal.Inc()
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoding request: %w", err)
	}
	defer resp.Body.Close()
	logger.L().Debug("geocode lookup", "code", code, "status", resp.StatusCode, "ms", time.Since(start).Milliseconds())

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoding API returned HTTP %d", resp.StatusCode)
	}

	var geoResp geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&geoResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if geoResp.Status != "OK" || len(geoResp.Results) == 0 {
		return nil, fmt.Errorf("geocoding failed: status=%s", geoResp.Status)
	}

	result := geoResp.Results[0]
	out := &Location{
		Lat: result.Geometry.Location.Lat,
		Lng: result.Geometry.Location.Lng,
	}
	for _, comp := range result.AddressComponents {
		for _, t := range comp.Types {
			switch t {
			case "postal_code":
				out.Code = comp.ShortName
			case "administrative_area_level_1":
				out.State = comp.LongName
				out.StateAbbr = comp.ShortName
			case "locality", "postal_town":
				if out.City == "" {
					out.City = comp.LongName
				}
			}
		}
	}

	if out.Code != code {
		return nil, fmt.Errorf("geocoding matched %q instead of %s", out.Code, code)
	}
	return out, nil
}

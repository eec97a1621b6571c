package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
)

const distanceMatrixEndpoint = "https://maps.googleapis.com/maps/api/distancematrix/json"

// MapsClient wraps the Google Distance Matrix API used by the distance and
// directions tools.
type MapsClient struct {
	apiKey   string
	client   *http.Client
	endpoint string
}

// MapsClientConfig configures the maps client; Endpoint is overridable for
// tests.
type MapsClientConfig struct {
	APIKey     string
	Timeout    time.Duration
	Endpoint   string
	HTTPClient *http.Client
}

// NewMapsClient creates a Google Maps API client.
func NewMapsClient(cfg MapsClientConfig) *MapsClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = distanceMatrixEndpoint
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &MapsClient{apiKey: cfg.APIKey, client: client, endpoint: endpoint}
}

// DistanceResult is the outcome of one origin/destination lookup.
type DistanceResult struct {
	Origin      string
	Destination string
	Distance    string
	Duration    string
	Status      string
}

type distanceMatrixResponse struct {
	Status string `json:"status"`
	Rows   []struct {
		Elements []struct {
			Status   string `json:"status"`
			Distance struct {
				Text string `json:"text"`
			} `json:"distance"`
			Duration struct {
				Text string `json:"text"`
			} `json:"duration"`
		} `json:"elements"`
	} `json:"rows"`
}

// Distance looks up travel distance and duration between two locations.
func (m *MapsClient) Distance(ctx context.Context, origin, destination, mode string) (*DistanceResult, error) {
	if m.apiKey == "" {
		return nil, fmt.Errorf("google maps API key not configured")
	}

	query := url.Values{}
	query.Set("origins", origin)
	query.Set("destinations", destination)
	query.Set("key", m.apiKey)
	if mode != "" {
		query.Set("mode", mode)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build distance request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("distance request: %w", err)
	}
	defer resp.Body.Close()

	var decoded distanceMatrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode distance response: %w", err)
	}

	if decoded.Status != "OK" || len(decoded.Rows) == 0 || len(decoded.Rows[0].Elements) == 0 {
		return nil, fmt.Errorf("distance API error: %s", decoded.Status)
	}
	element := decoded.Rows[0].Elements[0]
	if element.Status != "OK" {
		return nil, fmt.Errorf("distance API error: %s", element.Status)
	}

	return &DistanceResult{
		Origin:      origin,
		Destination: destination,
		Distance:    element.Distance.Text,
		Duration:    element.Duration.Text,
		Status:      "OK",
	}, nil
}

// RegisterMapsTools adds get_distance_matrix and get_directions backed by
// the given client.
func RegisterMapsTools(r *Registry, maps *MapsClient) {
	locationProps := func(originKey, destKey string) map[string]any {
		return map[string]any{
			originKey: map[string]any{
				"type":        "string",
				"description": "Starting location",
			},
			destKey: map[string]any{
				"type":        "string",
				"description": "Ending location",
			},
		}
	}

	r.Register(&Descriptor{
		Name:        "get_distance_matrix",
		Description: "Calculate distance and duration between locations",
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: locationProps("origin", "destination"),
			Required:   []string{"origin", "destination"},
		},
		Invoke: func(ctx context.Context, args map[string]any) (map[string]string, error) {
			result, err := maps.Distance(ctx, stringArg(args, "origin"), stringArg(args, "destination"), "")
			if err != nil {
				return nil, err
			}
			return map[string]string{
				"origin":      result.Origin,
				"destination": result.Destination,
				"distance":    result.Distance,
				"duration":    result.Duration,
				"status":      result.Status,
			}, nil
		},
	})

	directionsProps := locationProps("start_location", "end_location")
	directionsProps["transport_mode"] = map[string]any{
		"type":        "string",
		"description": "Mode of transport (driving, walking, bicycling, transit)",
	}

	r.Register(&Descriptor{
		Name:        "get_directions",
		Description: "Get navigation directions between locations",
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: directionsProps,
			Required:   []string{"start_location", "end_location"},
		},
		Invoke: func(ctx context.Context, args map[string]any) (map[string]string, error) {
			mode := stringArg(args, "transport_mode")
			if mode == "" {
				mode = "driving"
			}
			result, err := maps.Distance(ctx, stringArg(args, "start_location"), stringArg(args, "end_location"), mode)
			if err != nil {
				return nil, err
			}
			return map[string]string{
				"start_location": result.Origin,
				"end_location":   result.Destination,
				"transport_mode": mode,
				"total_distance": result.Distance,
				"total_duration": result.Duration,
				"instruction":    fmt.Sprintf("Travel from %s to %s by %s (%s, about %s)", result.Origin, result.Destination, mode, result.Distance, result.Duration),
			}, nil
		},
	})
}

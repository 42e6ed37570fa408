// Package openrouteservice provides a client for the OpenRouteService directions API.
package openrouteservice

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/ecoroute/ecoroute/internal/provider/resilience"
	"github.com/ecoroute/ecoroute/internal/routing"
	"github.com/ecoroute/ecoroute/pkg/polyline"
)

const (
	// ProviderName identifies this routing provider.
	ProviderName = "openrouteservice"

	// DefaultBaseURL is the OpenRouteService API base URL.
	DefaultBaseURL = "https://api.openrouteservice.org"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 15 * time.Second
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the OpenRouteService client.
type ClientConfig struct {
	// APIKey is the ORS API key (required).
	APIKey string

	// BaseURL is the API base URL (optional, defaults to ORS API).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 15s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is an OpenRouteService API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new OpenRouteService client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = timeout
		clientCfg.Registry = cfg.Registry
		clientCfg.Logger = cfg.Logger
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// GetRoute retrieves the primary route between two points.
// The profile is passed to ORS as-is; unsupported profiles come back as provider errors.
func (c *Client) GetRoute(ctx context.Context, req routing.RouteRequest) (*routing.RouteData, error) {
	if req.Start.Validate() != nil {
		return nil, routeError("INVALID_ORIGIN", "invalid origin coordinates", routing.ErrInvalidCoordinates)
	}
	if req.End.Validate() != nil {
		return nil, routeError("INVALID_DESTINATION", "invalid destination coordinates", routing.ErrInvalidCoordinates)
	}

	params := url.Values{}
	params.Set("start", req.Start.String())
	params.Set("end", req.End.String())
	endpoint := fmt.Sprintf("%s/v2/directions/%s?%s", c.baseURL, url.PathEscape(string(req.Profile)), params.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Authorization", c.apiKey)
	httpReq.Header.Set("Accept", "application/json, application/geo+json")

	c.logger.Debug().Str("profile", string(req.Profile)).Msg("requesting route from ORS")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, routeError("REQUEST_FAILED", "failed to reach routing provider",
			fmt.Errorf("%w: %v", routing.ErrProviderUnavailable, err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errorFromResponse(resp.StatusCode, respBody)
	}

	var fc orsFeatureCollection
	if err := json.Unmarshal(respBody, &fc); err != nil {
		return nil, routeError("DECODE_FAILED", "malformed routing provider response",
			fmt.Errorf("%w: %v", routing.ErrProviderUnavailable, err))
	}

	route, err := toRouteData(&fc)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("profile", string(req.Profile)).
		Float64("distance_km", route.DistanceKm).
		Float64("duration_min", route.DurationMin).
		Msg("received route from ORS")

	return route, nil
}

func routeError(code, message string, err error) *routing.Error {
	return &routing.Error{Provider: ProviderName, Code: code, Message: message, Err: err}
}

// noRouteCodes are ORS 400 codes meaning the points cannot be connected.
var noRouteCodes = map[int]bool{
	orsErrorCodeNotFound:      true,
	orsErrorCodePointNotFound: true,
	orsErrorCodeDistanceLimit: true,
}

// errorFromResponse maps a non-200 ORS answer to a routing error. The body
// is optional; non-JSON bodies map on status alone.
func errorFromResponse(status int, body []byte) error {
	var detail orsErrorDetail
	var orsErr orsErrorResponse
	if json.Unmarshal(body, &orsErr) == nil {
		detail = orsErr.detail()
	}

	switch {
	case status == http.StatusTooManyRequests:
		return routeError("RATE_LIMIT", "API rate limit exceeded, please try again later", routing.ErrRateLimitExceeded)
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return routeError("FORBIDDEN", "API access denied - check API key configuration", routing.ErrProviderUnavailable)
	case status == http.StatusNotFound, status == http.StatusBadRequest && noRouteCodes[detail.Code]:
		return routeError("NO_ROUTE", messageOr(detail.Message, "no route found between the given points"), routing.ErrNoRouteFound)
	case status == http.StatusBadRequest:
		return routeError("BAD_REQUEST", messageOr(detail.Message, "routing request rejected"), routing.ErrInvalidCoordinates)
	case status >= 500:
		return routeError(fmt.Sprintf("SERVER_%d", status), "routing provider is temporarily unavailable", routing.ErrProviderUnavailable)
	default:
		return routeError(fmt.Sprintf("HTTP_%d", status),
			messageOr(detail.Message, fmt.Sprintf("routing provider returned status %d", status)),
			routing.ErrProviderUnavailable)
	}
}

func messageOr(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}

// toRouteData converts the first feature to the domain model.
// Distance and duration come from the first segment, falling back to the route summary.
func toRouteData(fc *orsFeatureCollection) (*routing.RouteData, error) {
	if len(fc.Features) == 0 {
		return nil, routeError("NO_ROUTE", "routing provider returned no routes", routing.ErrNoRouteFound)
	}

	f := &fc.Features[0]
	meters := f.Properties.Summary.Distance
	seconds := f.Properties.Summary.Duration
	if len(f.Properties.Segments) > 0 {
		meters = f.Properties.Segments[0].Distance
		seconds = f.Properties.Segments[0].Duration
	}

	route := &routing.RouteData{
		DistanceKm:  meters / 1000,
		DurationMin: seconds / 60,
	}
	if f.Geometry != nil {
		route.Geometry = f.Geometry.Geometry()
		route.Polyline = polyline.EncodeGeometry(route.Geometry)
	}

	return route, nil
}

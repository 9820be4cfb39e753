// Package weather fetches current conditions and a five-day forecast for a
// coordinate, caches successful reports in Redis and falls back to a fixed sample
// when the provider cannot answer.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/stwalsh4118/farmboard/internal/geo"
	"github.com/stwalsh4118/farmboard/internal/metrics"
)

// DefaultBaseURL is the OpenWeatherMap data API.
const DefaultBaseURL = "https://api.openweathermap.org/data/2.5"

const serviceName = "weather"

// ErrMissingAPIKey is returned when no provider key is configured.
var ErrMissingAPIKey = errors.New("weather api key not configured")

// condition is one entry of the provider's weather array.
type condition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type currentResponse struct {
	Name    string      `json:"name"`
	Weather []condition `json:"weather"`
	Main    struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		TempMin   float64 `json:"temp_min"`
		TempMax   float64 `json:"temp_max"`
		Humidity  int     `json:"humidity"`
		Pressure  int     `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Dt int64 `json:"dt"`
}

type forecastEntry struct {
	Weather []condition `json:"weather"`
	Main    struct {
		Temp    float64 `json:"temp"`
		TempMin float64 `json:"temp_min"`
		TempMax float64 `json:"temp_max"`
	} `json:"main"`
	Dt int64 `json:"dt"`
}

type forecastResponse struct {
	List []forecastEntry `json:"list"`
	City struct {
		Name     string `json:"name"`
		Timezone int    `json:"timezone"`
	} `json:"city"`
}

// Client calls an OpenWeatherMap-compatible provider in metric units.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

// NewClient creates a provider client. An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

// Fetch requests current conditions and the forecast and assembles a report.
func (c *Client) Fetch(ctx context.Context, at geo.Coordinate) (*Report, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	var current currentResponse
	if err := c.get(ctx, "/weather", at, &current); err != nil {
		return nil, err
	}
	var forecast forecastResponse
	if err := c.get(ctx, "/forecast", at, &forecast); err != nil {
		return nil, err
	}

	report := &Report{
		Location:   current.Name,
		Coordinate: at,
		Current:    currentFrom(current),
		Forecast:   Aggregate(forecast.List, time.FixedZone("local", forecast.City.Timezone), ForecastDays),
	}
	if report.Location == "" {
		report.Location = forecast.City.Name
	}
	return report, nil
}

func (c *Client) get(ctx context.Context, path string, at geo.Coordinate, out interface{}) error {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(at.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(at.Lng, 'f', -1, 64))
	q.Set("units", "metric")
	q.Set("appid", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to build weather request: %w", err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveUpstream(serviceName, 0, time.Since(start))
		return fmt.Errorf("weather request %s failed: %w", path, err)
	}
	defer resp.Body.Close()
	metrics.ObserveUpstream(serviceName, resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("weather request %s returned %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode weather %s response: %w", path, err)
	}
	return nil
}

func currentFrom(r currentResponse) Current {
	cur := Current{
		Temperature: r.Main.Temp,
		FeelsLike:   r.Main.FeelsLike,
		Humidity:    r.Main.Humidity,
		WindSpeed:   r.Wind.Speed,
	}
	if len(r.Weather) > 0 {
		cur.Condition = r.Weather[0].Main
		cur.Description = r.Weather[0].Description
		cur.Icon = r.Weather[0].Icon
	}
	return cur
}

// Package openmeteo implements the wind.Provider interface against the
// Open-Meteo archive and forecast APIs.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/pedalwatt/pedalwatt/internal/provider/resilience"
	"github.com/pedalwatt/pedalwatt/internal/wind"
)

const (
	// ProviderName identifies this wind provider.
	ProviderName = "open-meteo"

	// DefaultArchiveURL is the historical weather API endpoint.
	DefaultArchiveURL = "https://archive-api.open-meteo.com/v1/archive"

	// DefaultForecastURL is the forecast API endpoint, which also serves
	// recent past days the archive has not ingested yet.
	DefaultForecastURL = "https://api.open-meteo.com/v1/forecast"

	// ForecastWindowDays is how recent a date must be to use the forecast
	// endpoint. The archive typically lags around five days behind.
	ForecastWindowDays = 3

	// hourLayout is the timestamp format of Open-Meteo hourly series.
	hourLayout = "2006-01-02T15:04"
)

// ClientConfig holds configuration for the Open-Meteo client.
type ClientConfig struct {
	// ArchiveURL is the historical API endpoint (optional).
	ArchiveURL string

	// ForecastURL is the forecast API endpoint (optional).
	ForecastURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with wind-appropriate defaults.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger

	// Now is overridable for tests.
	Now func() time.Time
}

// Client is an Open-Meteo API client. No API key is required.
type Client struct {
	archiveURL  string
	forecastURL string
	httpClient  *resilience.Client
	logger      zerolog.Logger
	now         func() time.Time
}

// NewClient creates a new Open-Meteo client.
func NewClient(cfg ClientConfig) *Client {
	archiveURL := cfg.ArchiveURL
	if archiveURL == "" {
		archiveURL = DefaultArchiveURL
	}

	forecastURL := cfg.ForecastURL
	if forecastURL == "" {
		forecastURL = DefaultForecastURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.WindClientConfig(ProviderName))
		resilience.GlobalRegistry.Register(ProviderName, httpClient)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Client{
		archiveURL:  archiveURL,
		forecastURL: forecastURL,
		httpClient:  httpClient,
		logger:      cfg.Logger,
		now:         now,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// GetHourlyWind fetches the hourly wind series for one day. Recent dates go
// through the forecast endpoint because the archive lags behind.
func (c *Client) GetHourlyWind(ctx context.Context, lat, lon float64, date time.Time) (*wind.Day, error) {
	endpoint := c.archiveURL
	if c.now().Sub(date) < ForecastWindowDays*24*time.Hour {
		endpoint = c.forecastURL
	}

	day := date.Format("2006-01-02")

	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.6f", lat))
	q.Set("longitude", fmt.Sprintf("%.6f", lon))
	q.Set("start_date", day)
	q.Set("end_date", day)
	q.Set("hourly", "windspeed_10m,winddirection_10m")
	q.Set("windspeed_unit", "ms")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		resilience.GlobalRegistry.RecordFailure(ProviderName, err)
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		resilience.GlobalRegistry.RecordFailure(ProviderName, err)
		return nil, err
	}
	resilience.GlobalRegistry.RecordSuccess(ProviderName)

	var omResp hourlyResponse
	if err := json.NewDecoder(resp.Body).Decode(&omResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return c.toDay(lat, lon, date, &omResp)
}

// toDay converts the parallel hourly arrays to the domain model. Null speeds
// are preserved as missing hours.
func (c *Client) toDay(lat, lon float64, date time.Time, resp *hourlyResponse) (*wind.Day, error) {
	day := &wind.Day{
		Lat:    lat,
		Lon:    lon,
		Date:   date,
		Hourly: make([]wind.Hourly, 0, len(resp.Hourly.Time)),
	}

	for i, raw := range resp.Hourly.Time {
		t, err := time.Parse(hourLayout, raw)
		if err != nil {
			return nil, fmt.Errorf("parsing hourly timestamp %q: %w", raw, err)
		}

		h := wind.Hourly{Time: t.UTC()}
		if i < len(resp.Hourly.WindSpeed) {
			h.SpeedMS = resp.Hourly.WindSpeed[i]
		}
		if i < len(resp.Hourly.WindDirection) {
			h.DirectionDeg = resp.Hourly.WindDirection[i]
		}
		day.Hourly = append(day.Hourly, h)
	}

	return day, nil
}

// Open-Meteo API response structure. The hourly block is parallel arrays,
// with nulls for hours the station never reported.
type hourlyResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Hourly    struct {
		Time          []string   `json:"time"`
		WindSpeed     []*float64 `json:"windspeed_10m"`
		WindDirection []*float64 `json:"winddirection_10m"`
	} `json:"hourly"`
}

// Ensure Client implements wind.Provider interface.
var _ wind.Provider = (*Client)(nil)

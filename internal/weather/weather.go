// Package weather provides real-world weather data integration.
// Maps OpenWeatherMap conditions to the lattice's starting climate.
package weather

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Client fetches weather data from OpenWeatherMap.
type Client struct {
	apiKey   string
	location string
	client   *http.Client

	mu          sync.Mutex
	cached      *Conditions
	cachedAt    time.Time
	cacheTTL    time.Duration
	lastFailAt  time.Time
	failBackoff time.Duration
}

// NewClient creates a weather API client. Returns nil if apiKey is empty.
func NewClient(apiKey, location string) *Client {
	if apiKey == "" {
		return nil
	}
	if location == "" {
		location = "San Diego,US"
	}
	return &Client{
		apiKey:   apiKey,
		location: location,
		client:   &http.Client{Timeout: 10 * time.Second},
		cacheTTL: 5 * time.Minute,
	}
}

// Conditions holds parsed weather data from the API.
type Conditions struct {
	Temp        float64 `json:"temp"`     // Celsius
	Humidity    float64 `json:"humidity"` // percent
	Description string  `json:"description"`
	WindSpeed   float64 `json:"wind_speed"` // m/s
	IsRain      bool    `json:"is_rain"`
	IsSnow      bool    `json:"is_snow"`
}

// Fetch retrieves current weather conditions, using cache if fresh.
func (c *Client) Fetch() (*Conditions, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != nil && time.Since(c.cachedAt) < c.cacheTTL {
		return c.cached, nil
	}

	// Backoff on repeated failures (up to 10 minutes).
	if c.failBackoff > 0 && time.Since(c.lastFailAt) < c.failBackoff {
		if c.cached != nil {
			return c.cached, nil
		}
		return nil, fmt.Errorf("weather API backoff (%s remaining)", c.failBackoff-time.Since(c.lastFailAt))
	}

	conditions, err := c.fetchFromAPI()
	if err != nil {
		c.lastFailAt = time.Now()
		if c.failBackoff == 0 {
			c.failBackoff = 1 * time.Minute
		} else if c.failBackoff < 10*time.Minute {
			c.failBackoff *= 2
		}
		if c.cached != nil {
			return c.cached, nil
		}
		return nil, err
	}

	c.cached = conditions
	c.cachedAt = time.Now()
	c.failBackoff = 0 // Reset backoff on success.
	return conditions, nil
}

func (c *Client) fetchFromAPI() (*Conditions, error) {
	apiURL := fmt.Sprintf("https://api.openweathermap.org/data/2.5/weather?q=%s&appid=%s&units=metric",
		url.QueryEscape(c.location), c.apiKey)

	resp, err := c.client.Get(apiURL)
	if err != nil {
		return nil, fmt.Errorf("weather API call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read weather response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather API error %d: %s", resp.StatusCode, string(body))
	}

	// Parse OpenWeatherMap response.
	var owm struct {
		Main struct {
			Temp     float64 `json:"temp"`
			Humidity float64 `json:"humidity"`
		} `json:"main"`
		Weather []struct {
			Main        string `json:"main"`
			Description string `json:"description"`
		} `json:"weather"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
	}

	if err := json.Unmarshal(body, &owm); err != nil {
		return nil, fmt.Errorf("parse weather: %w", err)
	}

	conditions := &Conditions{
		Temp:      owm.Main.Temp,
		Humidity:  owm.Main.Humidity,
		WindSpeed: owm.Wind.Speed,
	}

	if len(owm.Weather) > 0 {
		conditions.Description = owm.Weather[0].Description
		main := strings.ToLower(owm.Weather[0].Main)
		conditions.IsRain = main == "rain" || main == "drizzle" || main == "thunderstorm"
		conditions.IsSnow = main == "snow"
	}

	slog.Debug("weather fetched", "temp", conditions.Temp, "humidity", conditions.Humidity, "desc", conditions.Description)
	return conditions, nil
}

// Climate holds the lattice starting conditions derived from real weather.
type Climate struct {
	AmbientTemp   float64 // initial cell temperature, Celsius
	HumidityScale float64 // multiplier on material humidity
	Description   string
}

// MapToClimate converts real conditions to lattice starting conditions.
// A nil Conditions yields the neutral default climate.
func MapToClimate(c *Conditions) Climate {
	cl := Climate{
		AmbientTemp:   20,
		HumidityScale: 1.0,
		Description:   "default climate",
	}
	if c == nil {
		return cl
	}

	cl.Description = c.Description
	cl.AmbientTemp = c.Temp

	// Dry air lowers effective material humidity, damp air raises it.
	// 50% relative humidity is neutral.
	cl.HumidityScale = 0.5 + c.Humidity/100
	if c.IsRain {
		cl.HumidityScale *= 1.5
	}
	if c.IsSnow {
		cl.HumidityScale *= 2.0
	}
	if cl.HumidityScale < 0.5 {
		cl.HumidityScale = 0.5
	}
	if cl.HumidityScale > 3.0 {
		cl.HumidityScale = 3.0
	}

	return cl
}

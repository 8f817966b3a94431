// Package lookup answers /weer and /zoek with public web APIs.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"strikebot/utils"
)

const brandGreen = 0x2ecc71

var (
	ErrInvalidUnit      = errors.New("unit must be `c` or `f`")
	ErrLocationNotFound = errors.New("location not found")
)

// Unit selects metric or imperial output.
type Unit string

const (
	Celsius    Unit = "c"
	Fahrenheit Unit = "f"
)

// ParseUnit accepts "c", "f" or empty (Celsius).
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "c":
		return Celsius, nil
	case "f":
		return Fahrenheit, nil
	}
	return "", ErrInvalidUnit
}

func (u Unit) temperature() string {
	if u == Fahrenheit {
		return "°F"
	}
	return "°C"
}

func (u Unit) wind() string {
	if u == Fahrenheit {
		return "mph"
	}
	return "km/h"
}

type weatherCode struct {
	icon, label string
}

var weatherCodes = map[int]weatherCode{
	0:  {"☀️", "Clear sky"},
	1:  {"🌤️", "Mainly clear"},
	2:  {"⛅", "Partly cloudy"},
	3:  {"☁️", "Overcast"},
	45: {"🌫️", "Fog"},
	48: {"🌫️", "Depositing rime fog"},
	51: {"🌦️", "Light drizzle"},
	53: {"🌦️", "Moderate drizzle"},
	55: {"🌧️", "Dense drizzle"},
	61: {"🌧️", "Slight rain"},
	63: {"🌧️", "Moderate rain"},
	65: {"🌧️", "Heavy rain"},
	71: {"🌨️", "Slight snow"},
	73: {"🌨️", "Moderate snow"},
	75: {"❄️", "Heavy snow"},
	80: {"🌦️", "Rain showers"},
	81: {"🌦️", "Moderate rain showers"},
	82: {"⛈️", "Violent rain showers"},
	95: {"⛈️", "Thunderstorm"},
	96: {"⛈️", "Thunderstorm with hail"},
	99: {"⛈️", "Thunderstorm with hail"},
}

func describeCode(code int) weatherCode {
	if c, ok := weatherCodes[code]; ok {
		return c
	}
	return weatherCode{"🌡️", "Weather"}
}

// Day is one row of the daily forecast.
type Day struct {
	Date          string
	Code          int
	Min, Max      float64
	Precipitation *float64
}

// Report is the current weather plus up to seven days of forecast.
type Report struct {
	Place    string
	Country  string
	Unit     Unit
	Code     int
	Temp     float64
	Feels    float64
	Humidity float64
	Wind     float64
	Days     []Day
}

// Weather queries Open-Meteo geocoding and forecast endpoints.
type Weather struct {
	client      *http.Client
	GeocodeURL  string
	ForecastURL string
}

func NewWeather(client *http.Client) *Weather {
	return &Weather{
		client:      client,
		GeocodeURL:  "https://geocoding-api.open-meteo.com/v1/search",
		ForecastURL: "https://api.open-meteo.com/v1/forecast",
	}
}

type geocodeResponse struct {
	Results []struct {
		Name      string  `json:"name"`
		Country   string  `json:"country"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"results"`
}

type forecastResponse struct {
	Current struct {
		Temperature float64 `json:"temperature_2m"`
		Humidity    float64 `json:"relative_humidity_2m"`
		Apparent    float64 `json:"apparent_temperature"`
		WeatherCode int     `json:"weather_code"`
		WindSpeed   float64 `json:"wind_speed_10m"`
	} `json:"current"`
	Daily struct {
		Time          []string   `json:"time"`
		WeatherCode   []int      `json:"weather_code"`
		Max           []float64  `json:"temperature_2m_max"`
		Min           []float64  `json:"temperature_2m_min"`
		Precipitation []*float64 `json:"precipitation_probability_max"`
	} `json:"daily"`
}

// Lookup geocodes location and fetches its forecast.
func (w *Weather) Lookup(ctx context.Context, location string, unit Unit) (*Report, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, ErrLocationNotFound
	}

	q := url.Values{}
	q.Set("name", location)
	q.Set("count", "1")
	q.Set("language", "en")
	q.Set("format", "json")
	var geo geocodeResponse
	if err := utils.GetJSON(ctx, w.client, w.GeocodeURL+"?"+q.Encode(), nil, &geo); err != nil {
		return nil, fmt.Errorf("geocoding failed: %w", err)
	}
	if len(geo.Results) == 0 {
		return nil, ErrLocationNotFound
	}
	place := geo.Results[0]

	tempUnit, windUnit := "celsius", "kmh"
	if unit == Fahrenheit {
		tempUnit, windUnit = "fahrenheit", "mph"
	}
	q = url.Values{}
	q.Set("latitude", strconv.FormatFloat(place.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(place.Longitude, 'f', -1, 64))
	q.Set("current", "temperature_2m,relative_humidity_2m,apparent_temperature,weather_code,wind_speed_10m")
	q.Set("daily", "weather_code,temperature_2m_max,temperature_2m_min,precipitation_probability_max")
	q.Set("forecast_days", "7")
	q.Set("timezone", "auto")
	q.Set("temperature_unit", tempUnit)
	q.Set("windspeed_unit", windUnit)
	var fc forecastResponse
	if err := utils.GetJSON(ctx, w.client, w.ForecastURL+"?"+q.Encode(), nil, &fc); err != nil {
		return nil, fmt.Errorf("forecast fetch failed: %w", err)
	}

	r := &Report{
		Place:    place.Name,
		Country:  place.Country,
		Unit:     unit,
		Code:     fc.Current.WeatherCode,
		Temp:     fc.Current.Temperature,
		Feels:    fc.Current.Apparent,
		Humidity: fc.Current.Humidity,
		Wind:     fc.Current.WindSpeed,
	}
	if r.Place == "" {
		r.Place = location
	}
	d := fc.Daily
	for i := 0; i < len(d.Time) && i < 7; i++ {
		day := Day{Date: d.Time[i], Code: -1}
		if i < len(d.WeatherCode) {
			day.Code = d.WeatherCode[i]
		}
		if i < len(d.Min) {
			day.Min = d.Min[i]
		}
		if i < len(d.Max) {
			day.Max = d.Max[i]
		}
		if i < len(d.Precipitation) {
			day.Precipitation = d.Precipitation[i]
		}
		r.Days = append(r.Days, day)
	}
	return r, nil
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// WeatherEmbed renders a report.
func WeatherEmbed(r *Report) *discordgo.MessageEmbed {
	now := describeCode(r.Code)
	title := fmt.Sprintf("%s Weather: %s", now.icon, r.Place)
	if r.Country != "" {
		title += ", " + r.Country
	}
	deg := r.Unit.temperature()
	embed := &discordgo.MessageEmbed{
		Title: title,
		Description: fmt.Sprintf("**Now:** %s\n**Temp:** %s%s (feels %s%s)\n**Humidity:** %s%%\n**Wind:** %s %s",
			now.label, num(r.Temp), deg, num(r.Feels), deg, num(r.Humidity), num(r.Wind), r.Unit.wind()),
		Color: brandGreen,
	}

	var lines []string
	for _, d := range r.Days {
		pop := "-"
		if d.Precipitation != nil {
			pop = num(*d.Precipitation)
		}
		lines = append(lines, fmt.Sprintf("`%s` %s **%s%s**–**%s%s** • ☔ %s%%",
			d.Date, describeCode(d.Code).icon, num(d.Min), deg, num(d.Max), deg, pop))
	}
	if len(lines) > 0 {
		embed.Fields = []*discordgo.MessageEmbedField{{
			Name:  "7-day forecast",
			Value: truncate(strings.Join(lines, "\n"), 1024),
		}}
	}
	return embed
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

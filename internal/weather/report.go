package weather

import (
	"math"
	"time"

	"github.com/stwalsh4118/farmboard/internal/geo"
)

// ForecastDays is the forecast horizon.
const ForecastDays = 5

// Current is the present conditions, metric units.
type Current struct {
	Condition   string  `json:"condition"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
	Temperature float64 `json:"temperature"`
	FeelsLike   float64 `json:"feels_like"`
	WindSpeed   float64 `json:"wind_speed"`
	Humidity    int     `json:"humidity"`
}

// Day is one aggregated forecast day.
type Day struct {
	Date      string  `json:"date"`
	Condition string  `json:"condition"`
	Icon      string  `json:"icon"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
}

// Report is what the dashboard shows. Sample is true when the data is the built-in
// dataset rather than a provider answer.
type Report struct {
	FetchedAt  time.Time      `json:"fetched_at"`
	Location   string         `json:"location"`
	Current    Current        `json:"current"`
	Forecast   []Day          `json:"forecast"`
	Coordinate geo.Coordinate `json:"coordinate"`
	Sample     bool           `json:"sample"`
}

// Aggregate folds 3-hourly forecast entries into at most days calendar days in loc.
// Each day keeps the lowest minimum, the highest maximum and the most frequent
// condition; ties go to the condition seen first.
func Aggregate(entries []forecastEntry, loc *time.Location, days int) []Day {
	type bucket struct {
		counts map[string]int
		icons  map[string]string
		order  []string
		day    Day
	}

	out := make([]Day, 0, days)
	var cur *bucket

	flush := func() {
		if cur == nil {
			return
		}
		best := -1
		for _, name := range cur.order {
			if cur.counts[name] > best {
				best = cur.counts[name]
				cur.day.Condition = name
				cur.day.Icon = cur.icons[name]
			}
		}
		cur.day.Min = round1(cur.day.Min)
		cur.day.Max = round1(cur.day.Max)
		out = append(out, cur.day)
		cur = nil
	}

	for _, e := range entries {
		date := time.Unix(e.Dt, 0).In(loc).Format(time.DateOnly)
		if cur != nil && cur.day.Date != date {
			flush()
		}
		if len(out) == days {
			break
		}
		if cur == nil {
			cur = &bucket{
				counts: map[string]int{},
				icons:  map[string]string{},
				day:    Day{Date: date, Min: math.Inf(1), Max: math.Inf(-1)},
			}
		}

		cur.day.Min = math.Min(cur.day.Min, e.Main.TempMin)
		cur.day.Max = math.Max(cur.day.Max, e.Main.TempMax)
		if len(e.Weather) > 0 {
			name := e.Weather[0].Main
			if _, seen := cur.counts[name]; !seen {
				cur.order = append(cur.order, name)
				cur.icons[name] = e.Weather[0].Icon
			}
			cur.counts[name]++
		}
	}
	if len(out) < days {
		flush()
	}

	return out
}

// Sample returns the fixed dataset shown when the provider is unavailable. The
// forecast starts on the day of now.
func Sample(at geo.Coordinate, now time.Time) *Report {
	conditions := []struct {
		name, icon string
		min, max   float64
	}{
		{"Clear", "01d", 14, 24},
		{"Clouds", "03d", 13, 22},
		{"Rain", "10d", 11, 18},
		{"Clouds", "04d", 12, 20},
		{"Clear", "01d", 15, 25},
	}

	forecast := make([]Day, len(conditions))
	for i, c := range conditions {
		forecast[i] = Day{
			Date:      now.AddDate(0, 0, i).Format(time.DateOnly),
			Condition: c.name,
			Icon:      c.icon,
			Min:       c.min,
			Max:       c.max,
		}
	}

	return &Report{
		FetchedAt:  now,
		Location:   "Sample data",
		Coordinate: at,
		Current: Current{
			Condition:   "Clear",
			Description: "clear sky",
			Icon:        "01d",
			Temperature: 21,
			FeelsLike:   20.5,
			WindSpeed:   3.6,
			Humidity:    55,
		},
		Forecast: forecast,
		Sample:   true,
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

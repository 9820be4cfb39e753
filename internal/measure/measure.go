// Package measure derives display measurements from boundary rings.
// The values are non-authoritative: the Farm API recomputes what it persists.
package measure

import (
	"fmt"
	"math"

	"github.com/stwalsh4118/farmboard/internal/geo"
)

// Values holds the raw perimeter and area of a ring, rounded to two decimals.
type Values struct {
	PerimeterKm  float64 `json:"perimeter_km"`
	AreaHectares float64 `json:"area_ha"`
}

// Measurement is the formatted pair shown next to the boundary editor.
type Measurement struct {
	Perimeter string `json:"perimeter"`
	Area      string `json:"area"`
}

// Zero is the measurement of an empty or degenerate ring.
var Zero = Measurement{Perimeter: "0.00 km", Area: "0.00 ha"}

// Compute returns the geodesic perimeter and area of the ring.
// Empty rings and rings with fewer than three distinct vertices measure zero.
func Compute(ring geo.Ring) Values {
	if ring.DistinctCount() < geo.MinDistinctVertices {
		return Values{}
	}
	return Values{
		PerimeterKm:  round2(geo.PerimeterKm(ring)),
		AreaHectares: round2(geo.AreaHectares(ring)),
	}
}

// Format renders values with fixed two-decimal formatting.
func (v Values) Format() Measurement {
	return Measurement{
		Perimeter: fmt.Sprintf("%.2f km", v.PerimeterKm),
		Area:      fmt.Sprintf("%.2f ha", v.AreaHectares),
	}
}

// Format measures the ring and formats the result.
func Format(ring geo.Ring) Measurement {
	return Compute(ring).Format()
}

// SegmentLabel formats a live segment length in meters with one decimal.
func SegmentLabel(meters float64) string {
	return fmt.Sprintf("%.1f m", meters)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

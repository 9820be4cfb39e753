package measure

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stwalsh4118/farmboard/internal/geo"
)

func TestFormat_EmptyAndDegenerate(t *testing.T) {
	tests := []struct {
		name string
		ring geo.Ring
	}{
		{name: "nil ring", ring: nil},
		{name: "empty ring", ring: geo.Ring{}},
		{name: "single vertex", ring: geo.Ring{{Lng: 10, Lat: 36}}},
		{name: "two vertices closed", ring: geo.Ring{{Lng: 10, Lat: 36}, {Lng: 10.01, Lat: 36}, {Lng: 10, Lat: 36}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, Zero, Format(tt.ring))
			assert.Equal(t, "0.00 km", Format(tt.ring).Perimeter)
			assert.Equal(t, "0.00 ha", Format(tt.ring).Area)
		})
	}
}

func TestFormat_Triangle(t *testing.T) {
	ring := geo.Ring{{Lng: 10, Lat: 36}, {Lng: 10.01, Lat: 36}, {Lng: 10.01, Lat: 36.01}, {Lng: 10, Lat: 36}}

	values := Compute(ring)
	m := Format(ring)

	assert.Greater(t, values.PerimeterKm, 0.0)
	assert.Greater(t, values.AreaHectares, 0.0)
	assert.Regexp(t, `^\d+\.\d{2} km$`, m.Perimeter)
	assert.Regexp(t, `^\d+\.\d{2} ha$`, m.Area)
	assert.Equal(t, values.Format(), m)
}

func TestValuesFormat(t *testing.T) {
	m := Values{PerimeterKm: 1.005, AreaHectares: 12}.Format()

	assert.Equal(t, "12.00 ha", m.Area)
	assert.Contains(t, m.Perimeter, " km")
}

func TestSegmentLabel(t *testing.T) {
	assert.Equal(t, "123.5 m", SegmentLabel(123.46))
	assert.Equal(t, "0.0 m", SegmentLabel(0))
}

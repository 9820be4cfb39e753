package geo

import (
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decimals returns the number of digits after the point in the shortest representation of v.
func decimals(v float64) int {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return len(s) - i - 1
	}
	return 0
}

func TestRingClose(t *testing.T) {
	tests := []struct {
		name string
		ring Ring
		want Ring
	}{
		{
			name: "empty ring stays empty",
			ring: Ring{},
			want: Ring{},
		},
		{
			name: "open ring gets closing copy",
			ring: Ring{{10, 36}, {10.01, 36}, {10.01, 36.01}},
			want: Ring{{10, 36}, {10.01, 36}, {10.01, 36.01}, {10, 36}},
		},
		{
			name: "closed ring is unchanged",
			ring: Ring{{10, 36}, {10.01, 36}, {10.01, 36.01}, {10, 36}},
			want: Ring{{10, 36}, {10.01, 36}, {10.01, 36.01}, {10, 36}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.ring.Close()
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRingClose_Idempotent(t *testing.T) {
	ring := Ring{{10, 36}, {10.01, 36}, {10.01, 36.01}}

	once := ring.Close()
	twice := once.Close()

	assert.Equal(t, once, twice)
	assert.Len(t, twice, 4)
}

func TestRingClose_DoesNotAliasInput(t *testing.T) {
	ring := make(Ring, 3, 8)
	copy(ring, Ring{{10, 36}, {10.01, 36}, {10.01, 36.01}})

	closed := ring.Close()
	closed[0] = Coordinate{Lng: 0, Lat: 0}

	assert.Equal(t, Coordinate{Lng: 10, Lat: 36}, ring[0])
}

func TestNormalize(t *testing.T) {
	t.Run("rounds to six decimals and closes", func(t *testing.T) {
		raw := []Coordinate{
			{Lng: 10.123456789, Lat: 36.987654321},
			{Lng: 10.2222224, Lat: 36.1},
			{Lng: 10.3, Lat: 36.3333336},
		}

		ring := Normalize(raw)

		require.Len(t, ring, 4)
		assert.True(t, ring.Closed())
		assert.Equal(t, Coordinate{Lng: 10.123457, Lat: 36.987654}, ring[0])
		for _, c := range ring {
			assert.LessOrEqual(t, decimals(c.Lng), CoordinatePrecision)
			assert.LessOrEqual(t, decimals(c.Lat), CoordinatePrecision)
		}
	})

	t.Run("collapses consecutive duplicates", func(t *testing.T) {
		raw := []Coordinate{
			{Lng: 10, Lat: 36},
			{Lng: 10.01, Lat: 36},
			{Lng: 10.01, Lat: 36},
			{Lng: 10.01, Lat: 36.01},
			{Lng: 10.0100000001, Lat: 36.0100000001},
		}

		ring := Normalize(raw)

		assert.Equal(t, Ring{{10, 36}, {10.01, 36}, {10.01, 36.01}, {10, 36}}, ring)
	})

	t.Run("already closed input is not closed twice", func(t *testing.T) {
		raw := []Coordinate{{10, 36}, {10.01, 36}, {10.01, 36.01}, {10, 36}}

		ring := Normalize(raw)

		assert.Len(t, ring, 4)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, Normalize(nil))
	})
}

func TestRingValidate(t *testing.T) {
	tests := []struct {
		name    string
		ring    Ring
		wantErr error
	}{
		{
			name: "valid triangle",
			ring: Ring{{10, 36}, {10.01, 36}, {10.01, 36.01}, {10, 36}},
		},
		{
			name:    "open ring",
			ring:    Ring{{10, 36}, {10.01, 36}, {10.01, 36.01}},
			wantErr: ErrRingNotClosed,
		},
		{
			name:    "two distinct vertices",
			ring:    Ring{{10, 36}, {10.01, 36}, {10.01, 36}, {10, 36}},
			wantErr: ErrTooFewVertices,
		},
		{
			name:    "bow tie",
			ring:    Ring{{0, 0}, {1, 1}, {1, 0}, {0, 1}, {0, 0}},
			wantErr: ErrSelfIntersecting,
		},
		{
			name:    "latitude out of range",
			ring:    Ring{{10, 95}, {10.01, 36}, {10.01, 36.01}, {10, 95}},
			wantErr: ErrInvalidCoordinate,
		},
		{
			name:    "not finite",
			ring:    Ring{{math.NaN(), 36}, {10.01, 36}, {10.01, 36.01}, {math.NaN(), 36}},
			wantErr: ErrInvalidCoordinate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ring.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRingVerticesAndDistinct(t *testing.T) {
	ring := Ring{{10, 36}, {10.01, 36}, {10.01, 36.01}, {10, 36}}

	assert.Equal(t, []Coordinate{{10, 36}, {10.01, 36}, {10.01, 36.01}}, ring.Vertices())
	assert.Equal(t, 3, ring.DistinctCount())
	assert.Equal(t, 0, Ring(nil).DistinctCount())
}

func TestRingLngLatRoundTrip(t *testing.T) {
	ring := Ring{{10, 36}, {10.01, 36}, {10.01, 36.01}, {10, 36}}

	pairs := ring.LngLat()
	assert.Equal(t, []float64{10.01, 36}, pairs[1])

	back, err := RingFromLngLat(pairs)
	require.NoError(t, err)
	assert.Equal(t, ring, back)

	_, err = RingFromLngLat([][]float64{{10}})
	assert.ErrorIs(t, err, ErrInvalidCoordinate)
}

func TestLatLngOrder(t *testing.T) {
	c := LatLng(36.5, 10.25)

	assert.Equal(t, 10.25, c.Lng)
	assert.Equal(t, 36.5, c.Lat)
	assert.Equal(t, []float64{10.25, 36.5}, c.LngLat())
	assert.Equal(t, c, FromPoint(c.Point()))
}

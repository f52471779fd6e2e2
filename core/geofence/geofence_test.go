package geofence

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	seoulStation := Point{Latitude: 37.5547, Longitude: 126.9707}
	cityHall := Point{Latitude: 37.5663, Longitude: 126.9779}

	tests := []struct {
		name    string
		a, b    Point
		want    float64
		epsilon float64
	}{
		{name: "same point", a: seoulStation, b: seoulStation, want: 0, epsilon: 1e-9},
		{name: "seoul station to city hall", a: seoulStation, b: cityHall, want: 1438, epsilon: 5},
		{name: "symmetric", a: cityHall, b: seoulStation, want: 1438, epsilon: 5},
		{
			name:    "one degree of latitude",
			a:       Point{Latitude: 0, Longitude: 0},
			b:       Point{Latitude: 1, Longitude: 0},
			want:    EarthRadiusM * math.Pi / 180,
			epsilon: 1e-6,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, Distance(tc.a, tc.b), tc.epsilon)
		})
	}
}

func TestFence_Contains(t *testing.T) {
	center := Point{Latitude: 0, Longitude: 0}
	edge := Point{Latitude: 0, Longitude: 0.001}
	edgeDist := Distance(center, edge)

	tests := []struct {
		name   string
		fence  Fence
		p      Point
		inside bool
	}{
		{name: "center", fence: Fence{Center: center, RadiusM: 10}, p: center, inside: true},
		{name: "exactly on the edge", fence: Fence{Center: center, RadiusM: edgeDist}, p: edge, inside: true},
		{name: "just outside", fence: Fence{Center: center, RadiusM: edgeDist - 0.01}, p: edge, inside: false},
		{name: "far away", fence: Fence{Center: center, RadiusM: 200}, p: Point{Latitude: 1, Longitude: 1}, inside: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			inside, d := tc.fence.Contains(tc.p)
			assert.Equal(t, tc.inside, inside)
			assert.InDelta(t, Distance(tc.fence.Center, tc.p), d, 1e-9)
		})
	}
}

func TestPoint_Valid(t *testing.T) {
	assert.True(t, Point{Latitude: 90, Longitude: -180}.Valid())
	assert.False(t, Point{Latitude: 90.1, Longitude: 0}.Valid())
	assert.False(t, Point{Latitude: 0, Longitude: 181}.Valid())
	assert.False(t, Point{Latitude: math.NaN(), Longitude: 0}.Valid())
}

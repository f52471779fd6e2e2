// Package geofence answers whether a device is close enough to the church to check in.
package geofence

import (
	"math"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// EarthRadiusM is the mean Earth radius (IUGG) in meters.
const EarthRadiusM = 6371008.8

type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (p Point) Valid() bool {
	return !math.IsNaN(p.Latitude) && !math.IsNaN(p.Longitude) &&
		p.Latitude >= -90 && p.Latitude <= 90 &&
		p.Longitude >= -180 && p.Longitude <= 180
}

func (p Point) latLng() s2.LatLng {
	return s2.LatLngFromDegrees(p.Latitude, p.Longitude)
}

type Fence struct {
	Center  Point   `json:"center"`
	RadiusM float64 `json:"radius_m"`
}

// Distance returns the great-circle distance between a and b in meters.
func Distance(a, b Point) float64 {
	return angleToMeters(a.latLng().Distance(b.latLng()))
}

// Contains reports whether p lies within the fence (edge included), along with p's distance to the center.
func (f Fence) Contains(p Point) (bool, float64) {
	d := Distance(f.Center, p)
	return d <= f.RadiusM, d
}

func angleToMeters(a s1.Angle) float64 {
	return a.Radians() * EarthRadiusM
}

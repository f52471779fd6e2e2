package setting

import (
	"time"

	"github.com/minuum/qr-prayer-check/core"
	"github.com/minuum/qr-prayer-check/core/geofence"
)

// Keys of the settings table.
const (
	KeySessionActive   = "session_active"
	KeyGeofenceEnabled = "geofence_enabled"
	KeyChurchLatitude  = "church_latitude"
	KeyChurchLongitude = "church_longitude"
	KeyGeofenceRadius  = "geofence_radius_m"
	KeyCheckInBaseURL  = "check_in_base_url"
)

// Row is a raw key/value settings row.
type Row struct {
	Key       string    `db:"key"`
	Value     string    `db:"value"`
	UpdatedAt time.Time `db:"updated_at"` // UTC
}

type Geofence struct {
	Enabled   bool    `json:"enabled"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	RadiusM   float64 `json:"radius_m"`
}

// HasCenter is false until the church coordinates have been saved.
func (g Geofence) HasCenter() bool {
	return g.Latitude != 0 || g.Longitude != 0
}

func (g Geofence) Fence() geofence.Fence {
	return geofence.Fence{
		Center:  geofence.Point{Latitude: g.Latitude, Longitude: g.Longitude},
		RadiusM: g.RadiusM,
	}
}

type Settings struct {
	SessionActive  bool      `json:"session_active"`
	Geofence       Geofence  `json:"geofence"`
	CheckInBaseURL string    `json:"check_in_base_url"`
	UpdatedAt      time.Time `json:"updated_at,omitempty"` // UTC
}

// Public is what anonymous visitors may know about the current session.
type Public struct {
	SessionActive   bool `json:"session_active"`
	GeofenceEnabled bool `json:"geofence_enabled"`
}

// UpdateSettings holds the fields to change. nil fields keep their stored value.
type UpdateSettings struct {
	SessionActive   *bool    `json:"session_active"`
	GeofenceEnabled *bool    `json:"geofence_enabled"`
	Latitude        *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude       *float64 `json:"longitude" validate:"omitempty,longitude"`
	RadiusM         *float64 `json:"radius_m" validate:"omitempty,min=10,max=100000"`
	CheckInBaseURL  *string  `json:"check_in_base_url" validate:"omitempty,url,httpurl"`
}

func (us UpdateSettings) IsEmpty() bool {
	return us.SessionActive == nil && us.GeofenceEnabled == nil && us.Latitude == nil &&
		us.Longitude == nil && us.RadiusM == nil && us.CheckInBaseURL == nil
}

// Validate checks us against the currently stored settings.
func (us *UpdateSettings) Validate(current Settings) error {
	if us.CheckInBaseURL != nil {
		u := core.CleanString(*us.CheckInBaseURL)
		us.CheckInBaseURL = &u
	}
	if err := core.Validate.Struct(us); err != nil {
		return err
	}
	// omitempty skips the range check on a zero radius
	if us.RadiusM != nil && *us.RadiusM == 0 {
		return core.NewValidationError(ErrRadiusTooSmall, core.FieldError{Field: "radius_m", Error: ErrRadiusTooSmall.Error()})
	}

	// the resulting geofence must have a center when enabled
	enabled := current.Geofence.Enabled
	if us.GeofenceEnabled != nil {
		enabled = *us.GeofenceEnabled
	}
	if enabled {
		gf := current.Geofence
		if us.Latitude != nil {
			gf.Latitude = *us.Latitude
		}
		if us.Longitude != nil {
			gf.Longitude = *us.Longitude
		}
		if !gf.HasCenter() {
			return core.NewValidationError(ErrCenterRequired, core.FieldError{Field: "latitude", Error: ErrCenterRequired.Error()})
		}
	}
	return nil
}

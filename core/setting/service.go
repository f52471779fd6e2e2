// Package setting keeps the admin-controlled switches: session open/closed, geofence and QR base URL.
package setting

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/minuum/qr-prayer-check/core"
)

var (
	ErrCenterRequired = errors.New("church coordinates are required to enable the geofence")
	ErrRadiusTooSmall = errors.New("radius_m must be 10 or greater")
)

type (
	Repository interface {
		QueryAll(ctx context.Context, exec ...core.DBExecutor) ([]Row, error)
		// Upsert inserts the given rows, overwriting the value of existing keys.
		Upsert(ctx context.Context, rows []Row, exec ...core.DBExecutor) error
	}

	// Defaults are used for keys that were never saved.
	Defaults struct {
		SessionActive bool
		RadiusM       float64
	}

	Service struct {
		repo     Repository
		defaults Defaults
	}
)

func NewService(repo Repository, conf *core.Config) *Service {
	return &Service{
		repo:     repo,
		defaults: Defaults{SessionActive: conf.DefaultSessionActive, RadiusM: conf.DefaultRadiusM},
	}
}

func (svc *Service) Get(ctx context.Context, exec ...core.DBExecutor) (Settings, error) {
	rows, err := svc.repo.QueryAll(ctx, exec...)
	if err != nil {
		return Settings{}, err
	}

	s := Settings{
		SessionActive: svc.defaults.SessionActive,
		Geofence:      Geofence{RadiusM: svc.defaults.RadiusM},
	}
	for _, row := range rows {
		if row.UpdatedAt.After(s.UpdatedAt) {
			s.UpdatedAt = row.UpdatedAt
		}
		switch row.Key {
		case KeySessionActive:
			s.SessionActive = parseBool(row.Value, s.SessionActive)
		case KeyGeofenceEnabled:
			s.Geofence.Enabled = parseBool(row.Value, s.Geofence.Enabled)
		case KeyChurchLatitude:
			s.Geofence.Latitude = parseFloat(row.Value, s.Geofence.Latitude)
		case KeyChurchLongitude:
			s.Geofence.Longitude = parseFloat(row.Value, s.Geofence.Longitude)
		case KeyGeofenceRadius:
			s.Geofence.RadiusM = parseFloat(row.Value, s.Geofence.RadiusM)
		case KeyCheckInBaseURL:
			s.CheckInBaseURL = row.Value
		}
	}
	return s, nil
}

func (svc *Service) Public(ctx context.Context) (Public, error) {
	s, err := svc.Get(ctx)
	if err != nil {
		return Public{}, err
	}
	return Public{SessionActive: s.SessionActive, GeofenceEnabled: s.Geofence.Enabled}, nil
}

// Update validates us and saves only the provided keys.
func (svc *Service) Update(ctx context.Context, us UpdateSettings) (Settings, error) {
	current, err := svc.Get(ctx)
	if err != nil {
		return Settings{}, err
	}
	if us.IsEmpty() {
		return current, nil
	}
	if err := us.Validate(current); err != nil {
		return Settings{}, err
	}

	now := time.Now().UTC()
	rows := make([]Row, 0, 6)
	add := func(key, val string) {
		rows = append(rows, Row{Key: key, Value: val, UpdatedAt: now})
	}
	if us.SessionActive != nil {
		add(KeySessionActive, strconv.FormatBool(*us.SessionActive))
	}
	if us.GeofenceEnabled != nil {
		add(KeyGeofenceEnabled, strconv.FormatBool(*us.GeofenceEnabled))
	}
	if us.Latitude != nil {
		add(KeyChurchLatitude, formatFloat(*us.Latitude))
	}
	if us.Longitude != nil {
		add(KeyChurchLongitude, formatFloat(*us.Longitude))
	}
	if us.RadiusM != nil {
		add(KeyGeofenceRadius, formatFloat(*us.RadiusM))
	}
	if us.CheckInBaseURL != nil {
		add(KeyCheckInBaseURL, *us.CheckInBaseURL)
	}

	if err := svc.repo.Upsert(ctx, rows); err != nil {
		return Settings{}, errors.Wrap(err, "saving settings")
	}
	return svc.Get(ctx)
}

func (svc *Service) SetSessionActive(ctx context.Context, active bool) (Settings, error) {
	return svc.Update(ctx, UpdateSettings{SessionActive: &active})
}

func parseBool(s string, fallback bool) bool {
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return fallback
}

func parseFloat(s string, fallback float64) float64 {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return fallback
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

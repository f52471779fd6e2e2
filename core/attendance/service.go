// Package attendance records check-ins and rolls them up into daily counts, rankings and reports.
package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/minuum/qr-prayer-check/core"
	"github.com/minuum/qr-prayer-check/core/attendee"
	"github.com/minuum/qr-prayer-check/core/geofence"
	"github.com/minuum/qr-prayer-check/core/setting"
)

const (
	ReasonSessionClosed    = "session_closed"
	ReasonLocationRequired = "location_required"
	ReasonOutsideGeofence  = "outside_geofence"

	DefaultTodayLimit = 100
)

var (
	ErrNotFound = core.NewNotFoundError("attendance log not found")

	ErrSessionClosed    = core.NewGateError(ReasonSessionClosed, "지금은 출석체크 시간이 아닙니다.")
	ErrLocationRequired = core.NewGateError(ReasonLocationRequired, "위치 정보가 필요합니다. 위치 권한을 허용해주세요.")
	ErrOutsideGeofence  = core.NewGateError(ReasonOutsideGeofence, "교회 근처에서만 출석체크가 가능합니다.")

	errIncompleteLocation = errors.New("latitude and longitude must be sent together")
)

type (
	Repository interface {
		CreateLog(ctx context.Context, log Log, exec ...core.DBExecutor) (Log, error)
		GetLog(ctx context.Context, id int64, exec ...core.DBExecutor) (Log, error)
		// LatestLog returns the attendee's most recent log, or ErrNotFound.
		LatestLog(ctx context.Context, attendeeID string, exec ...core.DBExecutor) (Log, error)
		// QueryLogs applies AND operation on available QueryFilter fields; QueryFilter.Date is ignored.
		// QueryFilter.Search does a case-insensitive match on one of Log.Name or Log.Phone.
		QueryLogs(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Page, exec ...core.DBExecutor) ([]Log, int, error)
		// QueryLogsBetween returns logs created in [from, to) ordered by creation time. Zero bounds are open.
		QueryLogsBetween(ctx context.Context, from, to time.Time, exec ...core.DBExecutor) ([]Log, error)
		DeleteLog(ctx context.Context, id int64, exec ...core.DBExecutor) error
		DeleteAllLogs(ctx context.Context, exec ...core.DBExecutor) (int64, error)
	}

	Options struct {
		Repo        Repository
		Tx          core.Transactor
		AttendeeSvc *attendee.Service
		SettingSvc  *setting.Service
		Mailer      core.EmailService
		Logger      core.Logger
		Conf        *core.Config
		Clock       func() time.Time // time.Now if nil
	}

	Service struct {
		repo      Repository
		tx        core.Transactor
		attendees *attendee.Service
		settings  *setting.Service
		mailer    core.EmailService
		logger    core.Logger
		conf      *core.Config
		clock     func() time.Time
	}
)

func NewService(opts Options) *Service {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		repo:      opts.Repo,
		tx:        opts.Tx,
		attendees: opts.AttendeeSvc,
		settings:  opts.SettingSvc,
		mailer:    opts.Mailer,
		logger:    opts.Logger,
		conf:      opts.Conf,
		clock:     clock,
	}
}

func (svc *Service) now() time.Time {
	return svc.clock().UTC()
}

func (svc *Service) loc() *time.Location {
	return svc.conf.Location()
}

// CheckIn records ci unless the session is closed, the device is outside the geofence
// or the attendee already checked in within the duplicate window.
func (svc *Service) CheckIn(ctx context.Context, ci CheckIn) (CheckInResult, error) {
	if err := ci.Validate(); err != nil {
		return CheckInResult{}, err
	}

	st, err := svc.settings.Get(ctx)
	if err != nil {
		return CheckInResult{}, errors.Wrap(err, "loading settings")
	}
	if !st.SessionActive {
		return CheckInResult{}, ErrSessionClosed
	}

	log := Log{Source: SourceSelf}
	if ci.HasLocation() {
		log.Latitude = null.Float64FromPtr(ci.Latitude)
		log.Longitude = null.Float64FromPtr(ci.Longitude)
	}

	var dist *float64
	if gf := st.Geofence; gf.Enabled && gf.HasCenter() {
		if !ci.HasLocation() {
			return CheckInResult{}, ErrLocationRequired
		}
		inside, d := gf.Fence().Contains(geofence.Point{Latitude: *ci.Latitude, Longitude: *ci.Longitude})
		if !inside {
			return CheckInResult{}, outsideGeofenceError(d, gf.RadiusM)
		}
		dist = &d
		log.DistanceM = null.Float64From(d)
	}

	var res CheckInResult
	err = svc.tx.WithTx(ctx, func(exec core.DBExecutor) error {
		// the upsert locks the attendee row until commit, serializing concurrent check-ins of the same person
		att, err := svc.attendees.Register(ctx, ci.NewAttendee, exec)
		if err != nil {
			return err
		}
		res, err = svc.logOnce(ctx, att, log, exec)
		return err
	})
	if err != nil {
		return CheckInResult{}, err
	}
	res.DistanceM = dist
	return res, nil
}

// ScanCheckIn records a staff scan of the attendee's pass. The geofence does not apply.
func (svc *Service) ScanCheckIn(ctx context.Context, sc ScanCheckIn) (CheckInResult, error) {
	if err := sc.Validate(); err != nil {
		return CheckInResult{}, err
	}

	st, err := svc.settings.Get(ctx)
	if err != nil {
		return CheckInResult{}, errors.Wrap(err, "loading settings")
	}
	if !st.SessionActive {
		return CheckInResult{}, ErrSessionClosed
	}

	var res CheckInResult
	err = svc.tx.WithTx(ctx, func(exec core.DBExecutor) error {
		att, err := svc.attendees.GetByID(ctx, sc.AttendeeID, exec)
		if err != nil {
			return err
		}
		if att, err = svc.attendees.Register(ctx, attendee.NewAttendee{Name: att.Name, Phone: att.Phone}, exec); err != nil {
			return err
		}
		res, err = svc.logOnce(ctx, att, Log{Source: SourceScan}, exec)
		return err
	})
	if err != nil {
		return CheckInResult{}, err
	}
	return res, nil
}

// logOnce inserts log for att unless att's latest log is younger than the duplicate window.
func (svc *Service) logOnce(ctx context.Context, att attendee.Attendee, log Log, exec core.DBExecutor) (CheckInResult, error) {
	now := svc.now()
	res := CheckInResult{Success: true, Attendee: att}

	last, err := svc.repo.LatestLog(ctx, att.ID, exec)
	switch {
	case err == nil:
		if now.Sub(last.CreatedAt) < svc.conf.DuplicateWindow {
			res.AlreadyChecked = true
			res.Message = MsgAlreadyChecked
			res.Log = &last
			return res, nil
		}
	case !core.IsNotFound(err):
		return CheckInResult{}, errors.Wrap(err, "loading latest log")
	}

	log.AttendeeID = null.StringFrom(att.ID)
	log.Name = att.Name
	log.Phone = att.Phone
	log.CreatedAt = now
	created, err := svc.repo.CreateLog(ctx, log, exec)
	if err != nil {
		return CheckInResult{}, errors.Wrap(err, "creating log")
	}
	res.Message = MsgCheckedIn
	res.Log = &created
	return res, nil
}

func outsideGeofenceError(distM, radiusM float64) *core.GateError {
	return core.NewGateError(
		ReasonOutsideGeofence,
		fmt.Sprintf("%s (현재 거리: %.0fm, 허용 반경: %.0fm)", ErrOutsideGeofence.Message, distM, radiusM),
		map[string]interface{}{"distance_m": distM, "radius_m": radiusM},
	)
}

// resolveFilter turns filter.Date into a [From, To) range in the local time zone.
func (svc *Service) resolveFilter(filter *QueryFilter) (*QueryFilter, error) {
	if filter == nil {
		return nil, nil
	}
	filter.Clean()
	if filter.Date != "" {
		day, err := ParseDate(filter.Date, svc.loc())
		if err != nil {
			return nil, core.NewValidationError(err, core.FieldError{Field: "date", Error: "date must be formatted as YYYY-MM-DD"})
		}
		filter.From, filter.To = DayRange(day, svc.loc())
		filter.Date = ""
	}
	if filter.IsEmpty() {
		return nil, nil
	}
	return filter, nil
}

func (svc *Service) QueryLogs(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Page) ([]Log, int, error) {
	filter, err := svc.resolveFilter(filter)
	if err != nil {
		return nil, 0, err
	}
	return svc.repo.QueryLogs(ctx, filter, ordering, page.Clean())
}

// TodayLogs returns the logs since local midnight, newest first.
func (svc *Service) TodayLogs(ctx context.Context, limit int) ([]Log, int, error) {
	if limit <= 0 {
		limit = DefaultTodayLimit
	}
	from, _ := DayRange(svc.now(), svc.loc())
	return svc.repo.QueryLogs(
		ctx,
		&QueryFilter{From: from},
		[]core.DBOrdering{{Field: "created_at", Ascending: false}},
		core.Page{Limit: limit}.Clean(),
	)
}

func (svc *Service) GetLog(ctx context.Context, id int64) (Log, error) {
	return svc.repo.GetLog(ctx, id)
}

func (svc *Service) DeleteLog(ctx context.Context, id int64) error {
	return svc.repo.DeleteLog(ctx, id)
}

// ClearHistory deletes every log and returns how many were removed. Attendees are kept.
func (svc *Service) ClearHistory(ctx context.Context) (int64, error) {
	n, err := svc.repo.DeleteAllLogs(ctx)
	if err != nil {
		return 0, err
	}
	if svc.logger != nil {
		svc.logger.Warn(fmt.Sprintf("attendance history cleared: %d logs deleted", n))
	}
	return n, nil
}

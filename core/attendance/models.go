package attendance

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/minuum/qr-prayer-check/core"
	"github.com/minuum/qr-prayer-check/core/attendee"
)

// Log sources
const (
	SourceSelf = "self" // the attendee's own device
	SourceScan = "scan" // staff scanned the attendee's pass
)

const (
	MsgCheckedIn      = "출석이 완료되었습니다!"
	MsgAlreadyChecked = "이미 출석체크 되었습니다."
)

// Log is a single check-in. Name and Phone are copied from the attendee at check-in time,
// so a log outlives its attendee (AttendeeID is then null).
type Log struct {
	ID         int64        `json:"id" db:"id"`
	AttendeeID null.String  `json:"attendee_id" db:"attendee_id"`
	Name       string       `json:"name" db:"name"`
	Phone      string       `json:"phone" db:"phone"`
	Latitude   null.Float64 `json:"latitude" db:"latitude"`
	Longitude  null.Float64 `json:"longitude" db:"longitude"`
	DistanceM  null.Float64 `json:"distance_m" db:"distance_m"`
	Source     string       `json:"source" db:"source"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"` // UTC
}

// CheckIn is what the check-in form submits.
type CheckIn struct {
	attendee.NewAttendee
	Latitude  *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude *float64 `json:"longitude" validate:"omitempty,longitude"`
}

func (ci *CheckIn) Validate() error {
	ci.Clean()
	if err := core.Validate.Struct(ci); err != nil {
		return err
	}
	// coordinates come in pairs
	switch {
	case ci.Latitude == nil && ci.Longitude != nil:
		return core.NewValidationError(errIncompleteLocation, core.FieldError{Field: "latitude", Error: errIncompleteLocation.Error()})
	case ci.Latitude != nil && ci.Longitude == nil:
		return core.NewValidationError(errIncompleteLocation, core.FieldError{Field: "longitude", Error: errIncompleteLocation.Error()})
	}
	return nil
}

func (ci CheckIn) HasLocation() bool {
	return ci.Latitude != nil && ci.Longitude != nil
}

type CheckInResult struct {
	Success        bool              `json:"success"`
	AlreadyChecked bool              `json:"already_checked"`
	Message        string            `json:"message"`
	Attendee       attendee.Attendee `json:"attendee"`
	Log            *Log              `json:"log,omitempty"`
	DistanceM      *float64          `json:"distance_m,omitempty"`
}

type ScanCheckIn struct {
	AttendeeID string `json:"attendee_id" validate:"required,uuid"`
}

func (sc *ScanCheckIn) Validate() error {
	sc.AttendeeID = core.CleanString(sc.AttendeeID, true /* lower */)
	return core.Validate.Struct(sc)
}

// QueryFilter narrows down logs. Date is a local calendar day (YYYY-MM-DD) and takes precedence over From/To.
// From and To are instants, not bound from the query string: the API turns its `from`/`to` days into them.
type QueryFilter struct {
	Search     string    `query:"search"`
	AttendeeID string    `query:"attendee_id"`
	Date       string    `query:"date"`
	From       time.Time `query:"-"`
	To         time.Time `query:"-"` // exclusive
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.AttendeeID == "" && qf.Date == "" && qf.From.IsZero() && qf.To.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.AttendeeID = core.CleanString(qf.AttendeeID, true /* lower */)
	qf.Date = core.CleanString(qf.Date)
}

type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type Ranking struct {
	Rank          int         `json:"rank"`
	AttendeeID    null.String `json:"attendee_id"`
	Name          string      `json:"name"`
	Phone         string      `json:"phone"`
	Days          int         `json:"days"`
	CurrentStreak int         `json:"current_streak"`
	LongestStreak int         `json:"longest_streak"`
	LastSeen      time.Time   `json:"last_seen"`
}

type Report struct {
	From            string       `json:"from"`
	To              string       `json:"to"`
	Period          string       `json:"period"`
	TotalCheckIns   int          `json:"total_check_ins"`
	UniqueAttendees int          `json:"unique_attendees"`
	SessionDays     int          `json:"session_days"`
	Daily           []DailyCount `json:"daily"`
	Rankings        []Ranking    `json:"rankings"`
}

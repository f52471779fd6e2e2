package attendee

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/minuum/qr-prayer-check/core"
)

const nameMaxLen = 50

type Attendee struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Phone     string    `json:"phone" db:"phone"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// Stats summarizes an attendee's attendance history.
// Streaks count consecutive session days (days on which anyone checked in), not calendar days.
type Stats struct {
	TotalDays     int        `json:"total_days"`
	CurrentStreak int        `json:"current_streak"`
	LongestStreak int        `json:"longest_streak"`
	FirstSeen     *time.Time `json:"first_seen"`
	LastSeen      *time.Time `json:"last_seen"`
}

// Duplicate is a pair of attendees that are likely the same person.
type Duplicate struct {
	A          Attendee `json:"a"`
	B          Attendee `json:"b"`
	Similarity float64  `json:"similarity"`
}

// NewAttendee contains information needed to register an Attendee.
type NewAttendee struct {
	Name  string `json:"name" validate:"required,notblank,attendeename"`
	Phone string `json:"phone" validate:"required,phone"`
}

// Clean normalizes the name and phone so that the same person always maps to the same key.
func (na *NewAttendee) Clean() {
	na.Name = core.CleanName(na.Name)
	na.Phone = core.NormalizePhone(na.Phone)
}

func (na *NewAttendee) Validate() error {
	na.Clean()
	return core.Validate.Struct(na)
}

// UpdateAttendee defines what may be changed on an existing Attendee. Empty fields keep their value.
type UpdateAttendee struct {
	Name  string `json:"name" validate:"omitempty,attendeename"`
	Phone string `json:"phone" validate:"omitempty,phone"`
}

func (ua *UpdateAttendee) Validate(ctx context.Context, orig Attendee, svc *Service) error {
	if name := core.CleanName(ua.Name); name != "" {
		ua.Name = name
	} else {
		ua.Name = orig.Name
	}
	if phone := core.NormalizePhone(ua.Phone); phone != "" {
		ua.Phone = phone
	} else if core.CleanString(ua.Phone) != "" {
		ua.Phone = core.CleanString(ua.Phone) // let the phone tag reject it
	} else {
		ua.Phone = orig.Phone
	}

	if err := core.Validate.Struct(ua); err != nil {
		return err
	}
	return svc.checkUniqueness(ctx, ua.Name, ua.Phone, orig.ID)
}

type QueryFilter struct {
	Search      string    `query:"search"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

func validName(name string) bool {
	return utf8.RuneCountInString(name) <= nameMaxLen
}

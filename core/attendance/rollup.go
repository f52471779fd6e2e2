package attendance

import (
	"context"
	"sort"
	"time"

	"github.com/volatiletech/null/v8"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/minuum/qr-prayer-check/core/attendee"
)

const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD day in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, loc)
}

// DayRange returns the [start, end) bounds of t's calendar day in loc.
func DayRange(t time.Time, loc *time.Location) (time.Time, time.Time) {
	t = t.In(loc)
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// PeriodRange returns the [start, end) bounds covering the local days from through to.
// A zero day leaves its side open.
func PeriodRange(from, to time.Time, loc *time.Location) (time.Time, time.Time) {
	var start, end time.Time
	if !from.IsZero() {
		start, _ = DayRange(from, loc)
	}
	if !to.IsZero() {
		_, end = DayRange(to, loc)
	}
	return start, end
}

// personKey groups logs by attendee, or by (name, phone) once the attendee was deleted.
type personKey struct {
	attendeeID string
	name       string
	phone      string
}

func keyOf(l Log) personKey {
	if l.AttendeeID.Valid {
		return personKey{attendeeID: l.AttendeeID.String}
	}
	return personKey{name: l.Name, phone: l.Phone}
}

type person struct {
	attendeeID null.String
	name       string
	phone      string
	days       map[string]struct{}
	firstSeen  time.Time
	lastSeen   time.Time
}

// rollup is a single pass summary of a set of logs.
type rollup struct {
	checkIns    int
	sessionDays []string // ascending
	daily       map[string]map[personKey]struct{}
	people      map[personKey]*person
}

func newRollup(logs []Log, loc *time.Location) *rollup {
	r := &rollup{
		checkIns: len(logs),
		daily:    make(map[string]map[personKey]struct{}),
		people:   make(map[personKey]*person),
	}
	for _, l := range logs {
		day := l.CreatedAt.In(loc).Format(DateLayout)
		key := keyOf(l)

		if _, ok := r.daily[day]; !ok {
			r.daily[day] = make(map[personKey]struct{})
			r.sessionDays = append(r.sessionDays, day)
		}
		r.daily[day][key] = struct{}{}

		p, ok := r.people[key]
		if !ok {
			p = &person{attendeeID: l.AttendeeID, days: make(map[string]struct{}), firstSeen: l.CreatedAt}
			r.people[key] = p
		}
		p.days[day] = struct{}{}
		if l.CreatedAt.Before(p.firstSeen) {
			p.firstSeen = l.CreatedAt
		}
		if !l.CreatedAt.Before(p.lastSeen) {
			// latest name wins
			p.lastSeen = l.CreatedAt
			p.name = l.Name
			p.phone = l.Phone
		}
	}
	sort.Strings(r.sessionDays)
	return r
}

// streaks walks the session days: current counts back from the last one, longest is the best run.
func (r *rollup) streaks(p *person) (current, longest int) {
	var run int
	for _, day := range r.sessionDays {
		if _, ok := p.days[day]; ok {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	for i := len(r.sessionDays) - 1; i >= 0; i-- {
		if _, ok := p.days[r.sessionDays[i]]; !ok {
			break
		}
		current++
	}
	return current, longest
}

func (r *rollup) dailyCounts() []DailyCount {
	counts := make([]DailyCount, 0, len(r.sessionDays))
	for _, day := range r.sessionDays {
		counts = append(counts, DailyCount{Date: day, Count: len(r.daily[day])})
	}
	return counts
}

// rankings sorts people by days attended, then current streak, then name (Korean collation).
// People tied on days and current streak share a rank.
func (r *rollup) rankings(limit int) []Ranking {
	ranks := make([]Ranking, 0, len(r.people))
	for _, p := range r.people {
		current, longest := r.streaks(p)
		ranks = append(ranks, Ranking{
			AttendeeID:    p.attendeeID,
			Name:          p.name,
			Phone:         p.phone,
			Days:          len(p.days),
			CurrentStreak: current,
			LongestStreak: longest,
			LastSeen:      p.lastSeen,
		})
	}

	cl := collate.New(language.Korean)
	sort.Slice(ranks, func(i, j int) bool {
		a, b := ranks[i], ranks[j]
		if a.Days != b.Days {
			return a.Days > b.Days
		}
		if a.CurrentStreak != b.CurrentStreak {
			return a.CurrentStreak > b.CurrentStreak
		}
		if c := cl.CompareString(a.Name, b.Name); c != 0 {
			return c < 0
		}
		return a.Phone < b.Phone
	})

	for i := range ranks {
		if i > 0 && ranks[i].Days == ranks[i-1].Days && ranks[i].CurrentStreak == ranks[i-1].CurrentStreak {
			ranks[i].Rank = ranks[i-1].Rank
		} else {
			ranks[i].Rank = i + 1
		}
	}
	if limit > 0 && len(ranks) > limit {
		ranks = ranks[:limit]
	}
	return ranks
}

func (svc *Service) rollupPeriod(ctx context.Context, from, to time.Time) (*rollup, []Log, error) {
	start, end := PeriodRange(from, to, svc.loc())
	logs, err := svc.repo.QueryLogsBetween(ctx, start, end)
	if err != nil {
		return nil, nil, err
	}
	return newRollup(logs, svc.loc()), logs, nil
}

// DailyCounts returns the distinct attendees per local day between from and to (inclusive days).
func (svc *Service) DailyCounts(ctx context.Context, from, to time.Time) ([]DailyCount, error) {
	r, _, err := svc.rollupPeriod(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return r.dailyCounts(), nil
}

// Rankings ranks attendees over the local days from through to. limit <= 0 returns everyone.
func (svc *Service) Rankings(ctx context.Context, from, to time.Time, limit int) ([]Ranking, error) {
	r, _, err := svc.rollupPeriod(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return r.rankings(limit), nil
}

// AttendeeStats summarizes an attendee's whole history against every session day on record.
func (svc *Service) AttendeeStats(ctx context.Context, attendeeID string) (attendee.Stats, error) {
	if _, err := svc.attendees.GetByID(ctx, attendeeID); err != nil {
		return attendee.Stats{}, err
	}
	r, _, err := svc.rollupPeriod(ctx, time.Time{}, time.Time{})
	if err != nil {
		return attendee.Stats{}, err
	}

	p, ok := r.people[personKey{attendeeID: attendeeID}]
	if !ok {
		return attendee.Stats{}, nil
	}
	current, longest := r.streaks(p)
	first, last := p.firstSeen, p.lastSeen
	return attendee.Stats{
		TotalDays:     len(p.days),
		CurrentStreak: current,
		LongestStreak: longest,
		FirstSeen:     &first,
		LastSeen:      &last,
	}, nil
}

// DefaultPeriod is the last 90 local days, today included.
func (svc *Service) DefaultPeriod() (time.Time, time.Time) {
	today, _ := DayRange(svc.now(), svc.loc())
	return today.AddDate(0, 0, -89), today
}

// Package attendee manages the people who check in, keyed by name and phone.
package attendee

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/minuum/qr-prayer-check/core"
)

var (
	ErrNotFound = core.NewNotFoundError("attendee not found")
	ErrExists   = errors.New("an attendee with this name and phone already exists")
)

type (
	Repository interface {
		// CheckUniqueness returns ErrExists if another attendee (not excludedID) has the same name and phone.
		CheckUniqueness(ctx context.Context, name, phone, excludedID string, exec ...core.DBExecutor) error
		// Upsert returns the attendee keyed by (name, phone), creating it if needed.
		Upsert(ctx context.Context, att Attendee, exec ...core.DBExecutor) (Attendee, error)
		GetByID(ctx context.Context, id string, exec ...core.DBExecutor) (Attendee, error)
		// Query applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Attendee.Name or Attendee.Phone.
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Page, exec ...core.DBExecutor) ([]Attendee, int, error)
		// QuerySharedPhones returns attendees whose phone is shared with at least one other attendee.
		QuerySharedPhones(ctx context.Context, exec ...core.DBExecutor) ([]Attendee, error)
		Update(ctx context.Context, att Attendee, exec ...core.DBExecutor) (Attendee, error)
		Delete(ctx context.Context, ids []string, exec ...core.DBExecutor) error
	}

	Service struct {
		repo  Repository
		clock func() time.Time
	}
)

// NewService stamps attendees with clock, or time.Now if clock is nil.
func NewService(repo Repository, clock func() time.Time) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{repo: repo, clock: clock}
}

func (svc *Service) checkUniqueness(ctx context.Context, name, phone, excludedID string) error {
	if err := svc.repo.CheckUniqueness(ctx, name, phone, excludedID); err != nil {
		if errors.Is(err, ErrExists) {
			return core.NewValidationError(err,
				core.FieldError{Field: "name", Error: err.Error()},
				core.FieldError{Field: "phone", Error: err.Error()},
			)
		}
		return err
	}
	return nil
}

// Register returns the existing attendee with na's name and phone, or creates one.
func (svc *Service) Register(ctx context.Context, na NewAttendee, exec ...core.DBExecutor) (Attendee, error) {
	if err := na.Validate(); err != nil {
		return Attendee{}, err
	}
	now := svc.clock().UTC()
	return svc.repo.Upsert(ctx, Attendee{Name: na.Name, Phone: na.Phone, CreatedAt: now, UpdatedAt: now}, exec...)
}

func (svc *Service) GetByID(ctx context.Context, id string, exec ...core.DBExecutor) (Attendee, error) {
	return svc.repo.GetByID(ctx, id, exec...)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Page) ([]Attendee, int, error) {
	if filter != nil {
		filter.Clean()
		if filter.IsEmpty() {
			filter = nil
		}
	}
	return svc.repo.Query(ctx, filter, ordering, page.Clean())
}

func (svc *Service) Update(ctx context.Context, id string, ua UpdateAttendee) (Attendee, error) {
	att, err := svc.repo.GetByID(ctx, id)
	if err != nil {
		return Attendee{}, err
	}
	if err := ua.Validate(ctx, att, svc); err != nil {
		return Attendee{}, err
	}
	att.Name = ua.Name
	att.Phone = ua.Phone
	att.UpdatedAt = svc.clock().UTC()
	return svc.repo.Update(ctx, att)
}

// Delete removes attendees. Their attendance logs are kept, detached.
func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return svc.repo.Delete(ctx, ids)
}

// Duplicates pairs attendees that share a phone and have names at least `threshold` similar.
// The most similar pairs come first.
func (svc *Service) Duplicates(ctx context.Context, threshold float64) ([]Duplicate, error) {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultSimilarity
	}
	atts, err := svc.repo.QuerySharedPhones(ctx)
	if err != nil {
		return nil, err
	}

	byPhone := make(map[string][]Attendee)
	for _, a := range atts {
		byPhone[a.Phone] = append(byPhone[a.Phone], a)
	}

	dups := make([]Duplicate, 0)
	for _, group := range byPhone {
		sort.Slice(group, func(i, j int) bool { return group[i].CreatedAt.Before(group[j].CreatedAt) })
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				if sim := NameSimilarity(group[i].Name, group[j].Name); sim >= threshold {
					dups = append(dups, Duplicate{A: group[i], B: group[j], Similarity: sim})
				}
			}
		}
	}
	sort.SliceStable(dups, func(i, j int) bool {
		if dups[i].Similarity != dups[j].Similarity {
			return dups[i].Similarity > dups[j].Similarity
		}
		return dups[i].A.Phone < dups[j].A.Phone
	})
	return dups, nil
}

package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/minuum/qr-prayer-check/core"
	"github.com/minuum/qr-prayer-check/core/attendee"
)

type attendeeRepository struct {
	db *DB
}

var _ attendee.Repository = (*attendeeRepository)(nil) // interface compliance check

func NewAttendeeRepository(db *DB) *attendeeRepository {
	return &attendeeRepository{db: db}
}

func (repo *attendeeRepository) findByKey(name, phone string) *attendee.Attendee {
	for _, att := range repo.db.attendees {
		if att.Name == name && att.Phone == phone {
			return att
		}
	}
	return nil
}

func (repo *attendeeRepository) CheckUniqueness(_ context.Context, name, phone, excludedID string, _ ...core.DBExecutor) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if att := repo.findByKey(name, phone); att != nil && att.ID != excludedID {
		return attendee.ErrExists
	}
	return nil
}

func (repo *attendeeRepository) Upsert(_ context.Context, att attendee.Attendee, _ ...core.DBExecutor) (attendee.Attendee, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if existing := repo.findByKey(att.Name, att.Phone); existing != nil {
		return *existing, nil
	}
	att.ID = uuid.New().String()
	att.CreatedAt = att.CreatedAt.UTC()
	att.UpdatedAt = att.UpdatedAt.UTC()
	repo.db.attendees[att.ID] = &att
	return att, nil
}

func (repo *attendeeRepository) GetByID(_ context.Context, id string, _ ...core.DBExecutor) (attendee.Attendee, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if att, ok := repo.db.attendees[id]; ok {
		return *att, nil
	}
	return attendee.Attendee{}, attendee.ErrNotFound
}

func (repo *attendeeRepository) Query(_ context.Context, filter *attendee.QueryFilter, ordering []core.DBOrdering, page core.Page, _ ...core.DBExecutor) ([]attendee.Attendee, int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	atts := make([]attendee.Attendee, 0, len(repo.db.attendees))
	for _, att := range repo.db.attendees {
		if filter != nil {
			if filter.Search != "" && !containsFold(att.Name, filter.Search) && !containsFold(att.Phone, filter.Search) {
				continue
			}
			if !filter.CreatedFrom.IsZero() && att.CreatedAt.Before(filter.CreatedFrom) {
				continue
			}
			if !filter.CreatedTo.IsZero() && att.CreatedAt.After(filter.CreatedTo) {
				continue
			}
		}
		atts = append(atts, *att)
	}

	ordering = append(append([]core.DBOrdering{}, ordering...), core.DBOrdering{Field: "created_at"}, core.DBOrdering{Field: "id", Ascending: true})
	sort.Slice(atts, func(i, j int) bool {
		a, b := atts[i], atts[j]
		return compareOrdered(ordering, func(field string) (int, bool) {
			switch field {
			case "name":
				return cmpStrings(a.Name, b.Name), true
			case "phone":
				return cmpStrings(a.Phone, b.Phone), true
			case "created_at":
				return cmpInts(a.CreatedAt.UnixNano(), b.CreatedAt.UnixNano()), true
			case "updated_at":
				return cmpInts(a.UpdatedAt.UnixNano(), b.UpdatedAt.UnixNano()), true
			case "id":
				return cmpStrings(a.ID, b.ID), true
			}
			return 0, false
		}) < 0
	})

	start, end := page.Window(len(atts))
	return atts[start:end], len(atts), nil
}

func (repo *attendeeRepository) QuerySharedPhones(_ context.Context, _ ...core.DBExecutor) ([]attendee.Attendee, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	counts := make(map[string]int)
	for _, att := range repo.db.attendees {
		counts[att.Phone]++
	}
	atts := make([]attendee.Attendee, 0)
	for _, att := range repo.db.attendees {
		if counts[att.Phone] > 1 {
			atts = append(atts, *att)
		}
	}
	sort.Slice(atts, func(i, j int) bool {
		if atts[i].Phone != atts[j].Phone {
			return atts[i].Phone < atts[j].Phone
		}
		return atts[i].CreatedAt.Before(atts[j].CreatedAt)
	})
	return atts, nil
}

func (repo *attendeeRepository) Update(_ context.Context, att attendee.Attendee, _ ...core.DBExecutor) (attendee.Attendee, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.attendees[att.ID]
	if !ok {
		return attendee.Attendee{}, attendee.ErrNotFound
	}
	if other := repo.findByKey(att.Name, att.Phone); other != nil && other.ID != att.ID {
		return attendee.Attendee{}, attendee.ErrExists
	}
	orig.Name = att.Name
	orig.Phone = att.Phone
	orig.UpdatedAt = att.UpdatedAt.UTC()
	return *orig, nil
}

// Delete also detaches the attendees' logs, like the ON DELETE SET NULL foreign key.
func (repo *attendeeRepository) Delete(_ context.Context, ids []string, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, id := range ids {
		if _, ok := repo.db.attendees[id]; !ok {
			continue
		}
		delete(repo.db.attendees, id)
		for _, log := range repo.db.logs {
			if log.AttendeeID.Valid && log.AttendeeID.String == id {
				log.AttendeeID.Valid = false
				log.AttendeeID.String = ""
			}
		}
	}
	return nil
}

package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/minuum/qr-prayer-check/core"
	"github.com/minuum/qr-prayer-check/core/attendance"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) CreateLog(_ context.Context, log attendance.Log, _ ...core.DBExecutor) (attendance.Log, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.logSeq++
	log.ID = repo.db.logSeq
	log.CreatedAt = log.CreatedAt.UTC()
	repo.db.logs[log.ID] = &log
	return log, nil
}

func (repo *attendanceRepository) GetLog(_ context.Context, id int64, _ ...core.DBExecutor) (attendance.Log, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if log, ok := repo.db.logs[id]; ok {
		return *log, nil
	}
	return attendance.Log{}, attendance.ErrNotFound
}

func (repo *attendanceRepository) LatestLog(_ context.Context, attendeeID string, _ ...core.DBExecutor) (attendance.Log, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var latest *attendance.Log
	for _, log := range repo.db.logs {
		if !log.AttendeeID.Valid || log.AttendeeID.String != attendeeID {
			continue
		}
		if latest == nil || log.CreatedAt.After(latest.CreatedAt) ||
			(log.CreatedAt.Equal(latest.CreatedAt) && log.ID > latest.ID) {
			latest = log
		}
	}
	if latest == nil {
		return attendance.Log{}, attendance.ErrNotFound
	}
	return *latest, nil
}

func (repo *attendanceRepository) filter(match func(log *attendance.Log) bool) []attendance.Log {
	logs := make([]attendance.Log, 0)
	for _, log := range repo.db.logs {
		if match(log) {
			logs = append(logs, *log)
		}
	}
	return logs
}

func inRange(t, from, to time.Time) bool {
	return (from.IsZero() || !t.Before(from)) && (to.IsZero() || t.Before(to))
}

func (repo *attendanceRepository) QueryLogs(_ context.Context, filter *attendance.QueryFilter, ordering []core.DBOrdering, page core.Page, _ ...core.DBExecutor) ([]attendance.Log, int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	logs := repo.filter(func(log *attendance.Log) bool {
		if filter == nil {
			return true
		}
		if filter.Search != "" && !containsFold(log.Name, filter.Search) && !containsFold(log.Phone, filter.Search) {
			return false
		}
		if filter.AttendeeID != "" && (!log.AttendeeID.Valid || log.AttendeeID.String != filter.AttendeeID) {
			return false
		}
		return inRange(log.CreatedAt, filter.From, filter.To)
	})

	ordering = append(append([]core.DBOrdering{}, ordering...), core.DBOrdering{Field: "created_at"}, core.DBOrdering{Field: "id"})
	sort.Slice(logs, func(i, j int) bool {
		a, b := logs[i], logs[j]
		return compareOrdered(ordering, func(field string) (int, bool) {
			switch field {
			case "id":
				return cmpInts(a.ID, b.ID), true
			case "name":
				return cmpStrings(a.Name, b.Name), true
			case "phone":
				return cmpStrings(a.Phone, b.Phone), true
			case "source":
				return cmpStrings(a.Source, b.Source), true
			case "created_at":
				return cmpInts(a.CreatedAt.UnixNano(), b.CreatedAt.UnixNano()), true
			}
			return 0, false
		}) < 0
	})

	start, end := page.Window(len(logs))
	return logs[start:end], len(logs), nil
}

func (repo *attendanceRepository) QueryLogsBetween(_ context.Context, from, to time.Time, _ ...core.DBExecutor) ([]attendance.Log, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	logs := repo.filter(func(log *attendance.Log) bool { return inRange(log.CreatedAt, from, to) })
	sort.Slice(logs, func(i, j int) bool {
		if !logs[i].CreatedAt.Equal(logs[j].CreatedAt) {
			return logs[i].CreatedAt.Before(logs[j].CreatedAt)
		}
		return logs[i].ID < logs[j].ID
	})
	return logs, nil
}

func (repo *attendanceRepository) DeleteLog(_ context.Context, id int64, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.logs[id]; !ok {
		return attendance.ErrNotFound
	}
	delete(repo.db.logs, id)
	return nil
}

func (repo *attendanceRepository) DeleteAllLogs(_ context.Context, _ ...core.DBExecutor) (int64, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	n := int64(len(repo.db.logs))
	repo.db.logs = make(map[int64]*attendance.Log)
	return n, nil
}

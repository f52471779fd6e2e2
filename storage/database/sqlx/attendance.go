package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/minuum/qr-prayer-check/core"
	"github.com/minuum/qr-prayer-check/core/attendance"
)

const logColumns = "id, attendee_id, name, phone, latitude, longitude, distance_m, source, created_at"

var logOrderings = map[string]string{
	"id":         "id",
	"name":       "name",
	"phone":      "phone",
	"source":     "source",
	"created_at": "created_at",
}

type attendanceRepository struct {
	repository
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db core.DBExecutor) *attendanceRepository {
	return &attendanceRepository{repository{db: db}}
}

func (repo attendanceRepository) CreateLog(ctx context.Context, log attendance.Log, exec ...core.DBExecutor) (attendance.Log, error) {
	q := `INSERT INTO attendance_logs (attendee_id, name, phone, latitude, longitude, distance_m, source, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + logColumns

	var saved attendance.Log
	err := repo.getExec(exec).QueryRowxContext(
		ctx, q,
		log.AttendeeID, log.Name, log.Phone, log.Latitude, log.Longitude, log.DistanceM, log.Source, log.CreatedAt.UTC(),
	).StructScan(&saved)
	if err != nil {
		return attendance.Log{}, errors.Wrap(err, "inserting log")
	}
	return saved, nil
}

func (repo attendanceRepository) GetLog(ctx context.Context, id int64, exec ...core.DBExecutor) (attendance.Log, error) {
	var log attendance.Log
	q := "SELECT " + logColumns + " FROM attendance_logs WHERE id = $1"
	if err := repo.getExec(exec).QueryRowxContext(ctx, q, id).StructScan(&log); err != nil {
		return attendance.Log{}, trapNoRowsErr(err, attendance.ErrNotFound, "getting log")
	}
	return log, nil
}

func (repo attendanceRepository) LatestLog(ctx context.Context, attendeeID string, exec ...core.DBExecutor) (attendance.Log, error) {
	if !validUUID(attendeeID) {
		return attendance.Log{}, attendance.ErrNotFound
	}
	var log attendance.Log
	q := "SELECT " + logColumns + " FROM attendance_logs WHERE attendee_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1"
	if err := repo.getExec(exec).QueryRowxContext(ctx, q, attendeeID).StructScan(&log); err != nil {
		return attendance.Log{}, trapNoRowsErr(err, attendance.ErrNotFound, "getting latest log")
	}
	return log, nil
}

func (repo attendanceRepository) QueryLogs(ctx context.Context, filter *attendance.QueryFilter, ordering []core.DBOrdering, page core.Page, exec ...core.DBExecutor) ([]attendance.Log, int, error) {
	var w where
	if filter != nil {
		// logs with Name or Phone matching the search keyword
		if filter.Search != "" {
			val := likeValue(filter.Search)
			w.add("(name ILIKE ? OR phone ILIKE ?)", val, val)
		}
		if filter.AttendeeID != "" {
			if !validUUID(filter.AttendeeID) {
				return []attendance.Log{}, 0, nil
			}
			w.add("attendee_id = ?", filter.AttendeeID)
		}
		if !filter.From.IsZero() {
			w.add("created_at >= ?", filter.From.UTC())
		}
		if !filter.To.IsZero() {
			w.add("created_at < ?", filter.To.UTC())
		}
	}

	db := repo.getExec(exec)
	var total int
	if err := db.QueryRowxContext(ctx, rebind("SELECT COUNT(*) FROM attendance_logs"+w.String()), w.args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "counting logs")
	}

	orderBy := core.OrderByClause(ordering, logOrderings, core.DBOrdering{Field: "created_at"})
	q := "SELECT " + logColumns + " FROM attendance_logs" + w.String() + " ORDER BY " + orderBy + ", id DESC LIMIT ? OFFSET ?"
	args := append(w.args, page.Limit, page.Offset)

	rows, err := db.QueryxContext(ctx, rebind(q), args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying logs")
	}
	logs, err := scanLogs(rows)
	return logs, total, err
}

func (repo attendanceRepository) QueryLogsBetween(ctx context.Context, from, to time.Time, exec ...core.DBExecutor) ([]attendance.Log, error) {
	var w where
	if !from.IsZero() {
		w.add("created_at >= ?", from.UTC())
	}
	if !to.IsZero() {
		w.add("created_at < ?", to.UTC())
	}
	q := "SELECT " + logColumns + " FROM attendance_logs" + w.String() + " ORDER BY created_at, id"
	rows, err := repo.getExec(exec).QueryxContext(ctx, rebind(q), w.args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying logs")
	}
	return scanLogs(rows)
}

func (repo attendanceRepository) DeleteLog(ctx context.Context, id int64, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec).ExecContext(ctx, "DELETE FROM attendance_logs WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting log")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return attendance.ErrNotFound
	}
	return nil
}

func (repo attendanceRepository) DeleteAllLogs(ctx context.Context, exec ...core.DBExecutor) (int64, error) {
	res, err := repo.getExec(exec).ExecContext(ctx, "DELETE FROM attendance_logs")
	if err != nil {
		return 0, errors.Wrap(err, "deleting logs")
	}
	n, err := res.RowsAffected()
	return n, errors.Wrap(err, "counting deleted logs")
}

func scanLogs(rows rowsScanner) ([]attendance.Log, error) {
	defer func() { _ = rows.Close() }()
	logs := make([]attendance.Log, 0)
	for rows.Next() {
		var log attendance.Log
		if err := rows.StructScan(&log); err != nil {
			return nil, errors.Wrap(err, "scanning log")
		}
		logs = append(logs, log)
	}
	return logs, errors.Wrap(rows.Err(), "iterating logs")
}

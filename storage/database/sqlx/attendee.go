package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/minuum/qr-prayer-check/core"
	"github.com/minuum/qr-prayer-check/core/attendee"
)

const attendeeColumns = "id, name, phone, created_at, updated_at"

var attendeeOrderings = map[string]string{
	"name":       "name",
	"phone":      "phone",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

type attendeeRepository struct {
	repository
}

var _ attendee.Repository = (*attendeeRepository)(nil) // interface compliance check

func NewAttendeeRepository(db core.DBExecutor) *attendeeRepository {
	return &attendeeRepository{repository{db: db}}
}

func (repo attendeeRepository) CheckUniqueness(ctx context.Context, name, phone, excludedID string, exec ...core.DBExecutor) error {
	var exists bool
	q := "SELECT EXISTS (SELECT 1 FROM attendees WHERE name = $1 AND phone = $2 AND id::text <> $3)"
	if err := repo.getExec(exec).QueryRowxContext(ctx, q, name, phone, excludedID).Scan(&exists); err != nil {
		return errors.Wrap(err, "checking attendee uniqueness")
	}
	if exists {
		return attendee.ErrExists
	}
	return nil
}

func (repo attendeeRepository) Upsert(ctx context.Context, att attendee.Attendee, exec ...core.DBExecutor) (attendee.Attendee, error) {
	q := `INSERT INTO attendees (id, name, phone, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (name, phone) DO UPDATE SET name = EXCLUDED.name
RETURNING ` + attendeeColumns

	var saved attendee.Attendee
	err := repo.getExec(exec).QueryRowxContext(ctx, q, uuid.New().String(), att.Name, att.Phone, att.CreatedAt.UTC(), att.UpdatedAt.UTC()).StructScan(&saved)
	if err != nil {
		return attendee.Attendee{}, errors.Wrap(err, "upserting attendee")
	}
	return saved, nil
}

func (repo attendeeRepository) GetByID(ctx context.Context, id string, exec ...core.DBExecutor) (attendee.Attendee, error) {
	if !validUUID(id) {
		return attendee.Attendee{}, attendee.ErrNotFound
	}
	var att attendee.Attendee
	q := "SELECT " + attendeeColumns + " FROM attendees WHERE id = $1"
	if err := repo.getExec(exec).QueryRowxContext(ctx, q, id).StructScan(&att); err != nil {
		return attendee.Attendee{}, trapNoRowsErr(err, attendee.ErrNotFound, "getting attendee")
	}
	return att, nil
}

func (repo attendeeRepository) Query(ctx context.Context, filter *attendee.QueryFilter, ordering []core.DBOrdering, page core.Page, exec ...core.DBExecutor) ([]attendee.Attendee, int, error) {
	var w where
	if filter != nil {
		// attendees with Name or Phone matching the search keyword
		if filter.Search != "" {
			val := likeValue(filter.Search)
			w.add("(name ILIKE ? OR phone ILIKE ?)", val, val)
		}
		if !filter.CreatedFrom.IsZero() {
			w.add("created_at >= ?", filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			w.add("created_at <= ?", filter.CreatedTo.UTC())
		}
	}

	db := repo.getExec(exec)
	var total int
	if err := db.QueryRowxContext(ctx, rebind("SELECT COUNT(*) FROM attendees"+w.String()), w.args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "counting attendees")
	}

	orderBy := core.OrderByClause(ordering, attendeeOrderings, core.DBOrdering{Field: "created_at"})
	q := "SELECT " + attendeeColumns + " FROM attendees" + w.String() + " ORDER BY " + orderBy + ", id LIMIT ? OFFSET ?"
	args := append(w.args, page.Limit, page.Offset)

	rows, err := db.QueryxContext(ctx, rebind(q), args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying attendees")
	}
	atts, err := scanAttendees(rows)
	return atts, total, err
}

func (repo attendeeRepository) QuerySharedPhones(ctx context.Context, exec ...core.DBExecutor) ([]attendee.Attendee, error) {
	q := "SELECT " + attendeeColumns + ` FROM attendees
WHERE phone IN (SELECT phone FROM attendees GROUP BY phone HAVING COUNT(*) > 1)
ORDER BY phone, created_at`
	rows, err := repo.getExec(exec).QueryxContext(ctx, q)
	if err != nil {
		return nil, errors.Wrap(err, "querying shared phones")
	}
	return scanAttendees(rows)
}

func (repo attendeeRepository) Update(ctx context.Context, att attendee.Attendee, exec ...core.DBExecutor) (attendee.Attendee, error) {
	if !validUUID(att.ID) {
		return attendee.Attendee{}, attendee.ErrNotFound
	}
	q := "UPDATE attendees SET name = $2, phone = $3, updated_at = $4 WHERE id = $1 RETURNING " + attendeeColumns
	var saved attendee.Attendee
	err := repo.getExec(exec).QueryRowxContext(ctx, q, att.ID, att.Name, att.Phone, att.UpdatedAt.UTC()).StructScan(&saved)
	if err != nil {
		if isUniqueViolation(err) {
			return attendee.Attendee{}, attendee.ErrExists
		}
		return attendee.Attendee{}, trapNoRowsErr(err, attendee.ErrNotFound, "updating attendee")
	}
	return saved, nil
}

func (repo attendeeRepository) Delete(ctx context.Context, ids []string, exec ...core.DBExecutor) error {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if validUUID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return nil
	}
	// attendance_logs.attendee_id is set to NULL by the foreign key
	if _, err := repo.getExec(exec).ExecContext(ctx, "DELETE FROM attendees WHERE id = ANY($1::uuid[])", pq.Array(valid)); err != nil {
		return errors.Wrap(err, "deleting attendees")
	}
	return nil
}

type rowsScanner interface {
	Next() bool
	StructScan(dest interface{}) error
	Err() error
	Close() error
}

func scanAttendees(rows rowsScanner) ([]attendee.Attendee, error) {
	defer func() { _ = rows.Close() }()
	atts := make([]attendee.Attendee, 0)
	for rows.Next() {
		var att attendee.Attendee
		if err := rows.StructScan(&att); err != nil {
			return nil, errors.Wrap(err, "scanning attendee")
		}
		atts = append(atts, att)
	}
	return atts, errors.Wrap(rows.Err(), "iterating attendees")
}

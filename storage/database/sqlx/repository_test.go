package sqlxrepos

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/minuum/qr-prayer-check/core"
	"github.com/minuum/qr-prayer-check/core/attendance"
	"github.com/minuum/qr-prayer-check/core/attendee"
	"github.com/minuum/qr-prayer-check/core/setting"
)

const testID = "8f14e45f-ceea-467f-a0e6-37a3e6b1c001"

var (
	ctx        = context.Background()
	now        = time.Date(2026, 3, 4, 11, 0, 0, 0, time.UTC)
	attColumns = []string{"id", "name", "phone", "created_at", "updated_at"}
	logCols    = []string{"id", "attendee_id", "name", "phone", "latitude", "longitude", "distance_m", "source", "created_at"}
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })
	return sqlx.NewDb(mockDB, "postgres"), mock
}

func TestAttendeeRepository_Upsert(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAttendeeRepository(db)

	mock.ExpectQuery(`INSERT INTO attendees .* ON CONFLICT \(name, phone\) DO UPDATE`).
		WithArgs(sqlmock.AnyArg(), "홍길동", "1234", now, now).
		WillReturnRows(sqlmock.NewRows(attColumns).AddRow(testID, "홍길동", "1234", now, now))

	att, err := repo.Upsert(ctx, attendee.Attendee{Name: "홍길동", Phone: "1234", CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)
	assert.Equal(t, testID, att.ID)
	assert.Equal(t, "홍길동", att.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendeeRepository_GetByID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAttendeeRepository(db)

	t.Run("invalid uuid", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "nope")
		assert.True(t, core.IsNotFound(err))
	})

	t.Run("no rows", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .* FROM attendees WHERE id = \$1`).
			WithArgs(testID).
			WillReturnError(sql.ErrNoRows)
		_, err := repo.GetByID(ctx, testID)
		assert.True(t, core.IsNotFound(err))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendeeRepository_CheckUniqueness(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAttendeeRepository(db)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("홍길동", "1234", testID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	assert.Equal(t, attendee.ErrExists, repo.CheckUniqueness(ctx, "홍길동", "1234", testID))

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("홍길동", "5678", "").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	assert.NoError(t, repo.CheckUniqueness(ctx, "홍길동", "5678", ""))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendeeRepository_Query(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAttendeeRepository(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM attendees WHERE \(name ILIKE \$1 OR phone ILIKE \$2\)`).
		WithArgs("%길\\_동%", "%길\\_동%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`ORDER BY name ASC, created_at DESC, id LIMIT \$3 OFFSET \$4`).
		WithArgs("%길\\_동%", "%길\\_동%", 10, 0).
		WillReturnRows(sqlmock.NewRows(attColumns).AddRow(testID, "길_동", "1234", now, now))

	atts, total, err := repo.Query(
		ctx,
		&attendee.QueryFilter{Search: "길_동"},
		[]core.DBOrdering{{Field: "name", Ascending: true}, {Field: "password"}, {Field: "created_at"}},
		core.Page{Limit: 10},
	)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, atts, 1)
	assert.Equal(t, testID, atts[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendeeRepository_Update_Conflict(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAttendeeRepository(db)

	mock.ExpectQuery(`UPDATE attendees SET`).
		WithArgs(testID, "홍길동", "1234", now).
		WillReturnError(&pq.Error{Code: uniqueViolation})

	_, err := repo.Update(ctx, attendee.Attendee{ID: testID, Name: "홍길동", Phone: "1234", UpdatedAt: now})
	assert.Equal(t, attendee.ErrExists, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendeeRepository_Delete(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAttendeeRepository(db)

	mock.ExpectExec(`DELETE FROM attendees WHERE id = ANY`).
		WithArgs(pq.Array([]string{testID})).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(ctx, []string{testID, "not-a-uuid"}))
	require.NoError(t, repo.Delete(ctx, []string{"not-a-uuid"})) // no query
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepository_CreateLog(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAttendanceRepository(db)

	log := attendance.Log{
		AttendeeID: null.StringFrom(testID),
		Name:       "홍길동",
		Phone:      "1234",
		Latitude:   null.Float64From(37.5),
		Longitude:  null.Float64From(127.0),
		Source:     attendance.SourceSelf,
		CreatedAt:  now,
	}
	mock.ExpectQuery(`INSERT INTO attendance_logs`).
		WithArgs(testID, "홍길동", "1234", 37.5, 127.0, nil, attendance.SourceSelf, now).
		WillReturnRows(sqlmock.NewRows(logCols).AddRow(int64(7), testID, "홍길동", "1234", 37.5, 127.0, nil, "self", now))

	saved, err := repo.CreateLog(ctx, log)
	require.NoError(t, err)
	assert.Equal(t, int64(7), saved.ID)
	assert.Equal(t, testID, saved.AttendeeID.String)
	assert.False(t, saved.DistanceM.Valid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepository_LatestLog_None(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery(`WHERE attendee_id = \$1 ORDER BY created_at DESC, id DESC LIMIT 1`).
		WithArgs(testID).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.LatestLog(ctx, testID)
	assert.Equal(t, attendance.ErrNotFound, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepository_QueryLogs(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAttendanceRepository(db)
	from := now.Add(-time.Hour)
	to := now.Add(time.Hour)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM attendance_logs WHERE attendee_id = \$1 AND created_at >= \$2 AND created_at < \$3`).
		WithArgs(testID, from, to).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`ORDER BY created_at DESC, id DESC LIMIT \$4 OFFSET \$5`).
		WithArgs(testID, from, to, 50, 0).
		WillReturnRows(sqlmock.NewRows(logCols).
			AddRow(int64(2), testID, "홍길동", "1234", nil, nil, nil, "scan", now).
			AddRow(int64(1), testID, "홍길동", "1234", nil, nil, nil, "self", from))

	logs, total, err := repo.QueryLogs(ctx, &attendance.QueryFilter{AttendeeID: testID, From: from, To: to}, nil, core.Page{}.Clean())
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, logs, 2)
	assert.Equal(t, attendance.SourceScan, logs[0].Source)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepository_DeleteLog(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAttendanceRepository(db)

	mock.ExpectExec(`DELETE FROM attendance_logs WHERE id = \$1`).WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.Equal(t, attendance.ErrNotFound, repo.DeleteLog(ctx, 3))

	mock.ExpectExec(`DELETE FROM attendance_logs$`).WillReturnResult(sqlmock.NewResult(0, 12))
	n, err := repo.DeleteAllLogs(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingRepository(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSettingRepository(db)

	mock.ExpectExec(`INSERT INTO settings \(key, value, updated_at\) VALUES \(\$1, \$2, \$3\), \(\$4, \$5, \$6\) ON CONFLICT \(key\) DO UPDATE`).
		WithArgs(setting.KeySessionActive, "false", now, setting.KeyGeofenceRadius, "150", now).
		WillReturnResult(sqlmock.NewResult(0, 2))
	require.NoError(t, repo.Upsert(ctx, []setting.Row{
		{Key: setting.KeySessionActive, Value: "false", UpdatedAt: now},
		{Key: setting.KeyGeofenceRadius, Value: "150", UpdatedAt: now},
	}))

	mock.ExpectQuery(`SELECT key, value, updated_at FROM settings`).
		WillReturnRows(sqlmock.NewRows([]string{"key", "value", "updated_at"}).
			AddRow(setting.KeyGeofenceRadius, "150", now).
			AddRow(setting.KeySessionActive, "false", now))
	rows, err := repo.QueryAll(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	assert.NoError(t, mock.ExpectationsWereMet())
}

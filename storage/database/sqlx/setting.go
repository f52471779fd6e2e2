package sqlxrepos

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/minuum/qr-prayer-check/core"
	"github.com/minuum/qr-prayer-check/core/setting"
)

type settingRepository struct {
	repository
}

var _ setting.Repository = (*settingRepository)(nil) // interface compliance check

func NewSettingRepository(db core.DBExecutor) *settingRepository {
	return &settingRepository{repository{db: db}}
}

func (repo settingRepository) QueryAll(ctx context.Context, exec ...core.DBExecutor) ([]setting.Row, error) {
	rows, err := repo.getExec(exec).QueryxContext(ctx, "SELECT key, value, updated_at FROM settings ORDER BY key")
	if err != nil {
		return nil, errors.Wrap(err, "querying settings")
	}
	defer func() { _ = rows.Close() }()

	out := make([]setting.Row, 0)
	for rows.Next() {
		var row setting.Row
		if err := rows.StructScan(&row); err != nil {
			return nil, errors.Wrap(err, "scanning setting")
		}
		out = append(out, row)
	}
	return out, errors.Wrap(rows.Err(), "iterating settings")
}

// Upsert writes all rows in a single statement.
func (repo settingRepository) Upsert(ctx context.Context, rows []setting.Row, exec ...core.DBExecutor) error {
	if len(rows) == 0 {
		return nil
	}
	values := make([]string, 0, len(rows))
	args := make([]interface{}, 0, 3*len(rows))
	for _, row := range rows {
		values = append(values, "(?, ?, ?)")
		args = append(args, row.Key, row.Value, row.UpdatedAt.UTC())
	}
	q := "INSERT INTO settings (key, value, updated_at) VALUES " + strings.Join(values, ", ") +
		" ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at"

	if _, err := repo.getExec(exec).ExecContext(ctx, rebind(q), args...); err != nil {
		return errors.Wrap(err, "upserting settings")
	}
	return nil
}

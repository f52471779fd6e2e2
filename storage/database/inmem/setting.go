package inmemdb

import (
	"context"
	"sort"

	"github.com/minuum/qr-prayer-check/core"
	"github.com/minuum/qr-prayer-check/core/setting"
)

type settingRepository struct {
	db *DB
}

var _ setting.Repository = (*settingRepository)(nil) // interface compliance check

func NewSettingRepository(db *DB) *settingRepository {
	return &settingRepository{db: db}
}

func (repo *settingRepository) QueryAll(_ context.Context, _ ...core.DBExecutor) ([]setting.Row, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	rows := make([]setting.Row, 0, len(repo.db.settings))
	for _, row := range repo.db.settings {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })
	return rows, nil
}

func (repo *settingRepository) Upsert(_ context.Context, rows []setting.Row, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, row := range rows {
		row.UpdatedAt = row.UpdatedAt.UTC()
		repo.db.settings[row.Key] = row
	}
	return nil
}

// Package inmemdb implements the repositories in memory. It backs the tests and the API's -inmem mode.
package inmemdb

import (
	"context"
	"strings"
	"sync"

	"github.com/minuum/qr-prayer-check/core"
	"github.com/minuum/qr-prayer-check/core/attendance"
	"github.com/minuum/qr-prayer-check/core/attendee"
	"github.com/minuum/qr-prayer-check/core/setting"
)

// DB holds every table behind one lock.
// Transactions are serialized but not isolated: a failed transaction keeps its writes.
type DB struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	attendees map[string]*attendee.Attendee
	logs      map[int64]*attendance.Log
	logSeq    int64
	settings  map[string]setting.Row
}

var _ core.Transactor = (*DB)(nil)

func Open() *DB {
	return &DB{
		attendees: make(map[string]*attendee.Attendee),
		logs:      make(map[int64]*attendance.Log),
		settings:  make(map[string]setting.Row),
	}
}

func (db *DB) WithTx(_ context.Context, fn func(exec core.DBExecutor) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()
	return fn(nil)
}

// Flush empties every table.
func (db *DB) Flush() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.attendees = make(map[string]*attendee.Attendee)
	db.logs = make(map[int64]*attendance.Log)
	db.logSeq = 0
	db.settings = make(map[string]setting.Row)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// compareOrdered walks the orderings until one of them tells a and b apart.
func compareOrdered(ordering []core.DBOrdering, cmp func(field string) (int, bool)) int {
	for _, ord := range ordering {
		c, ok := cmp(ord.Field)
		if !ok || c == 0 {
			continue
		}
		if !ord.Ascending {
			c = -c
		}
		return c
	}
	return 0
}

func cmpStrings(a, b string) int {
	return strings.Compare(a, b)
}

func cmpInts(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

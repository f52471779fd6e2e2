package core

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
)

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 500
)

type (
	// DBExecutor is satisfied by both *sqlx.DB and *sqlx.Tx.
	DBExecutor interface {
		sqlx.ExtContext
	}

	// Transactor runs fn inside a single database transaction.
	// fn's error (or panic) rolls the transaction back.
	Transactor interface {
		WithTx(ctx context.Context, fn func(exec DBExecutor) error) error
	}
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// OrderByClause maps API field names to columns using `allowed` and renders an ORDER BY list.
// Unknown fields are dropped; `fallback` is used when nothing is left.
func OrderByClause(ordering []DBOrdering, allowed map[string]string, fallback ...DBOrdering) string {
	parts := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		col, ok := allowed[ord.Field]
		if !ok {
			continue
		}
		parts = append(parts, DBOrdering{Field: col, Ascending: ord.Ascending}.String())
	}
	if len(parts) == 0 {
		for _, ord := range fallback {
			parts = append(parts, ord.String())
		}
	}
	return strings.Join(parts, ", ")
}

// Page is a limit/offset window over a result set.
type Page struct {
	Limit  int
	Offset int
}

// Clean applies the default limit and caps it at MaxPageLimit.
func (p Page) Clean() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// Window returns the [start, end) bounds of the page over n items.
func (p Page) Window(n int) (int, int) {
	p = p.Clean()
	start := p.Offset
	if start > n {
		start = n
	}
	end := start + p.Limit
	if end > n {
		end = n
	}
	return start, end
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-report-api/pkg/months"
)

// storedTopN is the number of leaderboard references a metrics row can hold.
const storedTopN = 3

// beginningOfTime opens the window of snapshot queries so they cover all history.
var beginningOfTime = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// Window is an inclusive date span. Queries compare with [From, To+1 day) so
// timestamp columns include the whole last day.
type Window struct {
	From time.Time
	To   time.Time
}

// MonthWindow covers exactly one calendar month.
func MonthWindow(month time.Time) Window {
	return Window{From: months.FirstDay(month), To: months.LastDay(month)}
}

// SnapshotWindow covers all history up to asOf.
func SnapshotWindow(asOf time.Time) Window {
	return Window{From: beginningOfTime, To: asOf}
}

func earliest(ctx context.Context, db *sqlx.DB, query string) (*time.Time, error) {
	var ts sql.NullTime
	if err := db.GetContext(ctx, &ts, query); err != nil {
		return nil, fmt.Errorf("earliest activity: %w", err)
	}
	if !ts.Valid {
		return nil, nil
	}
	t := ts.Time.UTC()
	return &t, nil
}

package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/hackgods/vendor-booking/internal/db"
	"github.com/hackgods/vendor-booking/internal/interval"
)

type PgRepository struct {
	db db.Querier
}

func NewPgRepository(q db.Querier) *PgRepository {
	return &PgRepository{db: q}
}

func scanWindow(row pgx.Row) (*Window, error) {
	var (
		w          Window
		start, end pgtype.Time
	)

	err := row.Scan(
		&w.ID,
		&w.VendorID,
		&w.Date,
		&start,
		&end,
		&w.IsOpen,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	w.StartClock = clockFromPg(start)
	w.EndClock = clockFromPg(end)
	return &w, nil
}

func clockFromPg(t pgtype.Time) interval.Clock {
	return interval.Clock(time.Duration(t.Microseconds) * time.Microsecond / time.Minute)
}

func (r *PgRepository) ListOpenWindows(ctx context.Context, vendorID uuid.UUID, date time.Time) ([]Window, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, vendor_id, date, start_clock, end_clock, is_open, created_at, updated_at
		FROM availability_windows
		WHERE vendor_id = $1
		  AND date = $2
		  AND is_open
		ORDER BY start_clock
	`, vendorID, pgtype.Date{Time: interval.Day(date), Valid: true})
	if err != nil {
		return nil, fmt.Errorf("query availability windows: %w", err)
	}
	defer rows.Close()

	var result []Window
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan availability window: %w", err)
		}
		result = append(result, *w)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

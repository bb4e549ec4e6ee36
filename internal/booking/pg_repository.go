package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/vendor-booking/internal/db"
)

const bookingColumns = `id, customer_id, vendor_id, service_id, event_start, event_end, status,
	total_amount_cents, counter_amount_cents, counter_message, location, requirements,
	created_at, updated_at`

type PgRepository struct {
	db db.Querier
}

func NewPgRepository(q db.Querier) *PgRepository {
	return &PgRepository{db: q}
}

// PgStore is the pool-backed Store. Writes that must be serialised per vendor
// day go through WithVendorDays.
type PgStore struct {
	*PgRepository
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{PgRepository: NewPgRepository(pool), pool: pool}
}

func (s *PgStore) WithVendorDays(ctx context.Context, vendorID uuid.UUID, days []time.Time, fn func(ctx context.Context, tx Repository) error) error {
	return db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		for _, day := range ascendingDays(days) {
			key := fmt.Sprintf("bookings:%s:%s", vendorID, day.Format(time.DateOnly))
			if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key); err != nil {
				return fmt.Errorf("advisory lock %s: %w", key, err)
			}
		}
		return fn(ctx, NewPgRepository(tx))
	})
}

// Helpers

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	return &c, nil
}

func scanVendor(row pgx.Row) (*Vendor, error) {
	var v Vendor
	err := row.Scan(&v.ID, &v.Name, &v.Category, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVendorNotFound
		}
		return nil, err
	}
	return &v, nil
}

func scanService(row pgx.Row) (*ServiceOffering, error) {
	var s ServiceOffering
	err := row.Scan(&s.ID, &s.VendorID, &s.Name, &s.PriceCents, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}
	return &s, nil
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking

	err := row.Scan(
		&b.ID,
		&b.CustomerID,
		&b.VendorID,
		&b.ServiceID,
		&b.EventStart,
		&b.EventEnd,
		&b.Status,
		&b.TotalAmountCents,
		&b.CounterAmountCents,
		&b.CounterMessage,
		&b.Location,
		&b.Requirements,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	return &b, nil
}

func collectBookings(rows pgx.Rows) ([]Booking, error) {
	defer rows.Close()

	var result []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func statusStrings(statuses []Status) []string {
	if statuses == nil {
		return nil
	}
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// Interface methods

func (r *PgRepository) GetCustomerByID(ctx context.Context, id uuid.UUID) (*Customer, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM customers
		WHERE id = $1
	`, id)
	return scanCustomer(row)
}

func (r *PgRepository) GetVendorByID(ctx context.Context, id uuid.UUID) (*Vendor, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, category, created_at, updated_at
		FROM vendors
		WHERE id = $1
	`, id)
	return scanVendor(row)
}

func (r *PgRepository) GetServiceByID(ctx context.Context, id uuid.UUID) (*ServiceOffering, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, vendor_id, name, price_cents, created_at, updated_at
		FROM services
		WHERE id = $1
	`, id)
	return scanService(row)
}

func (r *PgRepository) GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1
	`, id)
	return scanBooking(row)
}

func (r *PgRepository) ListBookingsByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]Booking, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE customer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, customerID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (r *PgRepository) ListVendorBookings(ctx context.Context, vendorID uuid.UUID, from, to time.Time, statuses []Status) ([]Booking, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE vendor_id = $1
		  AND event_start >= $2
		  AND event_start < $3
		  AND ($4::text[] IS NULL OR status = ANY($4))
		ORDER BY event_start, created_at
	`, vendorID, from, to, statusStrings(statuses))
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (r *PgRepository) ListElapsedAccepted(ctx context.Context, now time.Time) ([]Booking, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE status = 'accepted'
		  AND COALESCE(event_end, event_start + interval '2 hours') < $1
		ORDER BY event_start
	`, now)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (r *PgRepository) InsertBooking(ctx context.Context, b *Booking) (*Booking, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO bookings (id, customer_id, vendor_id, service_id, event_start, event_end, status,
		                      total_amount_cents, location, requirements, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		RETURNING `+bookingColumns,
		b.ID, b.CustomerID, b.VendorID, b.ServiceID, b.EventStart, b.EventEnd, b.Status,
		b.TotalAmountCents, b.Location, b.Requirements)

	return scanBooking(row)
}

func (r *PgRepository) UpdateBookingStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Booking, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE bookings
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+bookingColumns, id, to, from)

	return scanBooking(row)
}

func (r *PgRepository) ApplyCounterOffer(ctx context.Context, id uuid.UUID, from Status, amountCents int64, message string) (*Booking, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE bookings
		SET status = 'counter_offered',
		    counter_amount_cents = $3,
		    counter_message = NULLIF($4, ''),
		    updated_at = now()
		WHERE id = $1
		  AND status = $2
		RETURNING `+bookingColumns, id, from, amountCents, message)

	return scanBooking(row)
}

func (r *PgRepository) AcceptCounterOffer(ctx context.Context, id uuid.UUID) (*Booking, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE bookings
		SET status = 'accepted',
		    total_amount_cents = COALESCE(counter_amount_cents, total_amount_cents),
		    updated_at = now()
		WHERE id = $1
		  AND status = 'counter_offered'
		RETURNING `+bookingColumns, id)

	return scanBooking(row)
}

func (r *PgRepository) UpdateBookingSchedule(ctx context.Context, id uuid.UUID, start time.Time, end *time.Time) (*Booking, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE bookings
		SET event_start = $2,
		    event_end = $3,
		    updated_at = now()
		WHERE id = $1
		  AND status IN ('pending', 'accepted', 'counter_offered')
		RETURNING `+bookingColumns, id, start, end)

	return scanBooking(row)
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO event_logs (event_type, booking_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.BookingID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

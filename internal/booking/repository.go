package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetCustomerByID(ctx context.Context, id uuid.UUID) (*Customer, error)
	GetVendorByID(ctx context.Context, id uuid.UUID) (*Vendor, error)
	GetServiceByID(ctx context.Context, id uuid.UUID) (*ServiceOffering, error)

	GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	ListBookingsByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]Booking, error)

	// ListVendorBookings returns vendorID's bookings whose event_start lies in
	// [from, to), ordered by event_start. A nil statuses slice means any status.
	ListVendorBookings(ctx context.Context, vendorID uuid.UUID, from, to time.Time, statuses []Status) ([]Booking, error)

	// Lifecycle sweep
	ListElapsedAccepted(ctx context.Context, now time.Time) ([]Booking, error)

	// Creation and updates
	InsertBooking(ctx context.Context, b *Booking) (*Booking, error)
	UpdateBookingStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Booking, error)
	ApplyCounterOffer(ctx context.Context, id uuid.UUID, from Status, amountCents int64, message string) (*Booking, error)
	AcceptCounterOffer(ctx context.Context, id uuid.UUID) (*Booking, error)
	UpdateBookingSchedule(ctx context.Context, id uuid.UUID, start time.Time, end *time.Time) (*Booking, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}

// Store adds the write isolation boundary on top of Repository.
type Store interface {
	Repository

	// WithVendorDays runs fn in a transaction that holds an exclusive lock on
	// vendorID's bookings for each of days, taken in ascending date order.
	// fn must use tx for every read and write.
	WithVendorDays(ctx context.Context, vendorID uuid.UUID, days []time.Time, fn func(ctx context.Context, tx Repository) error) error
}

package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/vendor-booking/internal/availability"
	"github.com/hackgods/vendor-booking/internal/interval"
)

// BookingReader is the slice of Repository the resolver needs. Inside a
// vendor-day transaction it is the transaction itself.
type BookingReader interface {
	ListVendorBookings(ctx context.Context, vendorID uuid.UUID, from, to time.Time, statuses []Status) ([]Booking, error)
}

// ConflictResolver detects overlaps with blocking bookings and proposes free
// windows inside declared availability. It holds no vendor state; every call
// names the vendor explicitly.
type ConflictResolver struct {
	bookings BookingReader
	windows  availability.Repository
}

func NewConflictResolver(bookings BookingReader, windows availability.Repository) *ConflictResolver {
	return &ConflictResolver{bookings: bookings, windows: windows}
}

// requestedSpan defaults a missing or non-positive end to DefaultDuration.
func requestedSpan(start, end time.Time) interval.Span {
	if end.IsZero() || !end.After(start) {
		end = start.Add(DefaultDuration)
	}
	return interval.Span{Start: start, End: end}
}

// blockingBetween lists blocking bookings that start in [from, to).
func (r *ConflictResolver) blockingBetween(ctx context.Context, vendorID uuid.UUID, from, to time.Time) ([]Booking, error) {
	bookings, err := r.bookings.ListVendorBookings(ctx, vendorID, from, to, BlockingStatuses)
	if err != nil {
		return nil, fmt.Errorf("list blocking bookings: %w", err)
	}
	return bookings, nil
}

// ConflictingBookings returns the blocking bookings that overlap [start, end).
// exclude, when set, is skipped. Bookings that started the day before and run
// past midnight are considered, as are bookings on the following day when the
// requested span crosses midnight.
//
// A missing vendor or start returns ErrConflictInputInvalid with no bookings;
// callers must check the error before reading the result.
func (r *ConflictResolver) ConflictingBookings(ctx context.Context, vendorID uuid.UUID, start, end time.Time, exclude *uuid.UUID) ([]Booking, error) {
	if vendorID == uuid.Nil || start.IsZero() {
		return nil, ErrConflictInputInvalid
	}

	requested := requestedSpan(start, end)

	// Bookings never outlast a day, so nothing starting earlier than the
	// previous midnight can reach requested.
	from := interval.Day(requested.Start).AddDate(0, 0, -1)
	candidates, err := r.blockingBetween(ctx, vendorID, from, requested.End)
	if err != nil {
		return nil, err
	}

	var conflicts []Booking
	for _, b := range candidates {
		if exclude != nil && b.ID == *exclude {
			continue
		}
		if !b.Status.Blocking() {
			continue
		}
		if b.Span().Overlaps(requested) {
			conflicts = append(conflicts, b)
		}
	}
	return conflicts, nil
}

// HasConflict reports whether any blocking booking overlaps [start, end).
// Invalid input yields false together with ErrConflictInputInvalid.
func (r *ConflictResolver) HasConflict(ctx context.Context, vendorID uuid.UUID, start, end time.Time, exclude *uuid.UUID) (bool, error) {
	conflicts, err := r.ConflictingBookings(ctx, vendorID, start, end, exclude)
	if err != nil {
		return false, err
	}
	return len(conflicts) > 0, nil
}

// SuggestAlternatives proposes windows of the requested duration on the
// requested date that sit inside an open availability window and clear every
// blocking booking. Overnight windows are followed into the next day.
func (r *ConflictResolver) SuggestAlternatives(ctx context.Context, vendorID uuid.UUID, start, end time.Time) ([]interval.Suggestion, error) {
	if vendorID == uuid.Nil || start.IsZero() {
		return nil, ErrConflictInputInvalid
	}

	requested := requestedSpan(start, end)
	day := interval.Day(start)

	windows, err := r.windows.ListOpenWindows(ctx, vendorID, day)
	if err != nil {
		return nil, fmt.Errorf("list open windows: %w", err)
	}
	if len(windows) == 0 {
		return []interval.Suggestion{}, nil
	}

	days := 1
	for _, w := range windows {
		if w.Overnight() {
			days = 2
			break
		}
	}

	bookings, err := r.blockingBetween(ctx, vendorID, day.AddDate(0, 0, -1), day.AddDate(0, 0, days))
	if err != nil {
		return nil, err
	}

	busy := make([]interval.Span, 0, len(bookings))
	for _, b := range bookings {
		if b.Status.Blocking() {
			busy = append(busy, b.Span())
		}
	}

	var candidates []interval.Span
	for _, w := range windows {
		if !w.IsOpen {
			continue
		}
		candidates = append(candidates, interval.FreeSlots(w.Span(), busy, requested.Duration())...)
	}

	return interval.Suggestions(candidates), nil
}

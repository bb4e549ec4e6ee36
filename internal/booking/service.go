package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/vendor-booking/internal/availability"
	"github.com/hackgods/vendor-booking/internal/interval"
	"github.com/hackgods/vendor-booking/internal/logger"
	"github.com/hackgods/vendor-booking/internal/notification"
	redisclient "github.com/hackgods/vendor-booking/internal/redis"
	"github.com/hackgods/vendor-booking/internal/validator"
)

const (
	EventBookingCreated        = "BOOKING_CREATED"
	EventBookingAccepted       = "BOOKING_ACCEPTED"
	EventBookingDeclined       = "BOOKING_DECLINED"
	EventBookingCounterOffered = "BOOKING_COUNTER_OFFERED"
	EventBookingCancelled      = "BOOKING_CANCELLED"
	EventBookingCompleted      = "BOOKING_COMPLETED"
	EventBookingRescheduled    = "BOOKING_RESCHEDULED"
)

const notifyTimeout = 5 * time.Second

type Service struct {
	store    Store
	windows  availability.Repository
	checker  *availability.Checker
	locker   redisclient.Locker
	notifier notification.Dispatcher
	now      func() time.Time
}

func NewService(
	store Store,
	windows availability.Repository,
	checker *availability.Checker,
	locker redisclient.Locker,
	notifier notification.Dispatcher,
) *Service {
	return &Service{
		store:    store,
		windows:  windows,
		checker:  checker,
		locker:   locker,
		notifier: notifier,
		now:      time.Now,
	}
}

// CreateBooking checks availability and conflicts and persists a pending
// booking, all under the vendor-day lock. Any rejection leaves no row behind.
// The vendor is notified after commit; enqueue failures are only logged.
func (s *Service) CreateBooking(ctx context.Context, req CreateBookingRequest) (*Booking, error) {
	if errs := validator.Validate(req); len(errs) > 0 {
		return nil, invalid(ErrInvalidRequest, errs...)
	}

	start := interval.Wall(req.EventStart)
	var end *time.Time
	if req.EventEnd != nil {
		e := interval.Wall(*req.EventEnd)
		if !e.After(start) {
			return nil, invalid(ErrInvalidRequest, FieldError{Field: "event_end", Message: "must be after event_start"})
		}
		end = &e
	}

	if _, err := s.store.GetCustomerByID(ctx, req.CustomerID); err != nil {
		if errors.Is(err, ErrCustomerNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load customer: %w", err)
	}

	offering, err := s.store.GetServiceByID(ctx, req.ServiceID)
	if err != nil {
		if errors.Is(err, ErrServiceNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load service: %w", err)
	}
	if req.VendorID != nil && *req.VendorID != offering.VendorID {
		return nil, invalid(ErrInvalidRequest, FieldError{Field: "vendor_id", Message: "does not offer this service"})
	}

	candidate := &Booking{
		ID:               uuid.New(),
		CustomerID:       req.CustomerID,
		VendorID:         offering.VendorID,
		ServiceID:        offering.ID,
		EventStart:       start,
		EventEnd:         end,
		Status:           StatusPending,
		TotalAmountCents: req.TotalAmountCents,
		Location:         req.Location,
		Requirements:     optional(req.Requirements),
	}

	created, err := s.underVendorDay(ctx, candidate.VendorID, candidate.Span(), nil, true,
		func(ctx context.Context, tx Repository) (*Booking, error) {
			b, err := tx.InsertBooking(ctx, candidate)
			if err != nil {
				return nil, fmt.Errorf("insert booking: %w", err)
			}
			return b, nil
		})
	if err != nil {
		s.logDecision(ctx, candidate, err)
		return nil, err
	}
	s.logDecision(ctx, created, nil)

	s.logEvent(ctx, created.ID, EventBookingCreated, map[string]any{
		"vendor_id":   created.VendorID.String(),
		"customer_id": created.CustomerID.String(),
		"event_start": created.EventStart,
		"event_end":   created.End(),
	})
	s.dispatch(ctx, createdNotification(created))

	return created, nil
}

// underVendorDay serialises a write on the vendor's bookings for every date
// span touches: Redis locks first, then a Postgres transaction holding the
// matching advisory locks. Both are taken in ascending date order. Availability
// (optional) and conflicts are evaluated inside both.
func (s *Service) underVendorDay(
	ctx context.Context,
	vendorID uuid.UUID,
	span interval.Span,
	exclude *uuid.UUID,
	checkAvailability bool,
	write func(ctx context.Context, tx Repository) (*Booking, error),
) (*Booking, error) {
	days := span.Days()
	day := days[0]
	var out *Booking

	err := s.lockDays(ctx, vendorID, days, func(lockCtx context.Context) error {
		return s.store.WithVendorDays(lockCtx, vendorID, days, func(txCtx context.Context, tx Repository) error {
			if checkAvailability {
				ok, err := s.checker.IsAvailable(txCtx, vendorID, day,
					interval.ClockSince(day, span.Start), interval.ClockSince(day, span.End))
				if err != nil {
					return fmt.Errorf("check availability: %w", err)
				}
				if !ok {
					return notAvailable()
				}
			}

			conflict, err := NewConflictResolver(tx, s.windows).HasConflict(txCtx, vendorID, span.Start, span.End, exclude)
			if err != nil {
				return fmt.Errorf("check conflicts: %w", err)
			}
			if conflict {
				return conflicting()
			}

			b, err := write(txCtx, tx)
			if err != nil {
				return err
			}
			out = b
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrVendorDayBusy
		}
		return nil, err
	}

	return out, nil
}

// lockDays holds the vendor-day lock for each of days, nested in order, while
// fn runs.
func (s *Service) lockDays(ctx context.Context, vendorID uuid.UUID, days []time.Time, fn func(ctx context.Context) error) error {
	if len(days) == 0 {
		return fn(ctx)
	}
	return s.locker.WithVendorDayLock(ctx, vendorID, days[0], func(ctx context.Context) error {
		return s.lockDays(ctx, vendorID, days[1:], fn)
	})
}

// ascendingDays truncates days to midnight, drops repeats and sorts them.
func ascendingDays(days []time.Time) []time.Time {
	out := make([]time.Time, 0, len(days))
	for _, d := range days {
		d = interval.Day(d)
		if !slices.ContainsFunc(out, d.Equal) {
			out = append(out, d)
		}
	}
	slices.SortFunc(out, func(a, b time.Time) int { return a.Compare(b) })
	return out
}

// Respond applies a vendor's answer to a pending booking. Answers that keep
// the booking blocking re-run conflict detection against everything else.
func (s *Service) Respond(ctx context.Context, id uuid.UUID, resp VendorResponse) (*Booking, error) {
	if resp == nil {
		return nil, invalid(ErrInvalidRequest, FieldError{Field: "type", Message: "can't be blank"})
	}
	if co, ok := resp.(CounterOffered); ok {
		if errs := validator.Validate(counterOfferRequest{AmountCents: co.AmountCents, Message: co.Message}); len(errs) > 0 {
			return nil, invalid(ErrInvalidRequest, errs...)
		}
	}

	b, err := s.loadBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	to := resp.target()
	if b.Status != StatusPending || !CanTransition(b.Status, to) {
		return nil, ErrInvalidStatusTransition
	}

	apply := func(ctx context.Context, repo Repository) (*Booking, error) {
		switch r := resp.(type) {
		case CounterOffered:
			return repo.ApplyCounterOffer(ctx, b.ID, StatusPending, r.AmountCents, r.Message)
		default:
			return repo.UpdateBookingStatus(ctx, b.ID, StatusPending, to)
		}
	}

	var updated *Booking
	if to.Blocking() {
		updated, err = s.underVendorDay(ctx, b.VendorID, b.Span(), &b.ID, false, apply)
	} else {
		updated, err = apply(ctx, s.store)
	}
	if err != nil {
		return nil, transitionErr(err)
	}

	s.logEvent(ctx, updated.ID, responseEvent(resp), map[string]any{
		"from": string(b.Status),
		"to":   string(updated.Status),
	})
	s.dispatch(ctx, responseNotification(updated, resp))

	return updated, nil
}

func responseEvent(resp VendorResponse) string {
	switch resp.(type) {
	case Accepted:
		return EventBookingAccepted
	case Declined:
		return EventBookingDeclined
	default:
		return EventBookingCounterOffered
	}
}

// ReplyToCounterOffer records the customer's answer to a counter-offer.
// Accepting adopts the counter amount and re-runs conflict detection.
func (s *Service) ReplyToCounterOffer(ctx context.Context, id uuid.UUID, accept bool) (*Booking, error) {
	b, err := s.loadBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status != StatusCounterOffered {
		return nil, ErrInvalidStatusTransition
	}

	var updated *Booking
	event := EventBookingDeclined
	if accept {
		event = EventBookingAccepted
		updated, err = s.underVendorDay(ctx, b.VendorID, b.Span(), &b.ID, false,
			func(ctx context.Context, tx Repository) (*Booking, error) {
				return tx.AcceptCounterOffer(ctx, b.ID)
			})
	} else {
		updated, err = s.store.UpdateBookingStatus(ctx, b.ID, StatusCounterOffered, StatusDeclined)
	}
	if err != nil {
		return nil, transitionErr(err)
	}

	s.logEvent(ctx, updated.ID, event, map[string]any{"replied_by": string(PartyCustomer)})
	s.dispatch(ctx, counterReplyNotification(updated))

	return updated, nil
}

// Cancel moves a live booking to cancelled and notifies the other party.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, actor Party) (*Booking, error) {
	if actor != PartyCustomer && actor != PartyVendor {
		return nil, invalid(ErrInvalidRequest, FieldError{Field: "cancelled_by", Message: "must be one of: customer vendor"})
	}

	b, err := s.loadBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(b.Status, StatusCancelled) {
		return nil, ErrInvalidStatusTransition
	}

	updated, err := s.store.UpdateBookingStatus(ctx, b.ID, b.Status, StatusCancelled)
	if err != nil {
		return nil, transitionErr(err)
	}

	s.logEvent(ctx, updated.ID, EventBookingCancelled, map[string]any{
		"from":         string(b.Status),
		"cancelled_by": string(actor),
	})
	s.dispatch(ctx, cancelledNotification(updated, actor))

	return updated, nil
}

// Complete marks an accepted booking as delivered.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Booking, error) {
	b, err := s.loadBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status != StatusAccepted {
		return nil, ErrInvalidStatusTransition
	}

	updated, err := s.store.UpdateBookingStatus(ctx, b.ID, StatusAccepted, StatusCompleted)
	if err != nil {
		return nil, transitionErr(err)
	}

	s.logEvent(ctx, updated.ID, EventBookingCompleted, map[string]any{"reason": "manual"})
	s.dispatch(ctx, completedNotification(updated))

	return updated, nil
}

// Reschedule moves a blocking booking to a new window. The new window must
// pass the same availability and conflict checks as a new booking, ignoring
// the booking's own current slot.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, start time.Time, end *time.Time) (*Booking, error) {
	if errs := validator.Validate(rescheduleRequest{EventStart: start, EventEnd: end}); len(errs) > 0 {
		return nil, invalid(ErrInvalidRequest, errs...)
	}

	start = interval.Wall(start)
	if end != nil {
		e := interval.Wall(*end)
		if !e.After(start) {
			return nil, invalid(ErrInvalidRequest, FieldError{Field: "event_end", Message: "must be after event_start"})
		}
		end = &e
	}

	b, err := s.loadBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if !b.Status.Blocking() {
		return nil, ErrInvalidStatusTransition
	}

	moved := *b
	moved.EventStart = start
	moved.EventEnd = end

	updated, err := s.underVendorDay(ctx, b.VendorID, moved.Span(), &b.ID, true,
		func(ctx context.Context, tx Repository) (*Booking, error) {
			return tx.UpdateBookingSchedule(ctx, b.ID, start, end)
		})
	if err != nil {
		return nil, transitionErr(err)
	}

	s.logEvent(ctx, updated.ID, EventBookingRescheduled, map[string]any{
		"previous_start": b.EventStart,
		"event_start":    updated.EventStart,
		"event_end":      updated.End(),
	})
	s.dispatch(ctx, rescheduledNotification(updated))

	return updated, nil
}

// CompleteElapsed is intended to be called by the worker periodically. It
// completes accepted bookings whose end is in the past and returns how many moved.
func (s *Service) CompleteElapsed(ctx context.Context) (int, error) {
	now := interval.Wall(s.now())
	elapsed, err := s.store.ListElapsedAccepted(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("find elapsed bookings: %w", err)
	}

	log := logger.FromContext(ctx)
	completed := 0
	for _, b := range elapsed {
		updated, err := s.store.UpdateBookingStatus(ctx, b.ID, StatusAccepted, StatusCompleted)
		if err != nil {
			if !errors.Is(err, ErrBookingNotFound) {
				log.Error().Err(err).Str("booking_id", b.ID.String()).Msg("failed to complete booking")
			}
			continue
		}
		completed++
		s.logEvent(ctx, updated.ID, EventBookingCompleted, map[string]any{"reason": "worker"})
		s.dispatch(ctx, completedNotification(updated))
	}

	return completed, nil
}

// CheckAvailability evaluates the Availability Checker for an absolute window.
func (s *Service) CheckAvailability(ctx context.Context, vendorID uuid.UUID, start, end time.Time) (bool, error) {
	span := requestedSpan(interval.Wall(start), interval.Wall(end))
	day := interval.Day(span.Start)
	return s.checker.IsAvailable(ctx, vendorID, day, interval.ClockSince(day, span.Start), interval.ClockSince(day, span.End))
}

// OpenWindows lists the vendor's declared same-day windows on date.
func (s *Service) OpenWindows(ctx context.Context, vendorID uuid.UUID, date time.Time) ([]interval.Suggestion, error) {
	return s.checker.SuggestedWindows(ctx, vendorID, interval.Day(interval.Wall(date)))
}

// FindAlternatives reports the conflicts for a window and, when there are
// any, free windows of the same duration on that date.
func (s *Service) FindAlternatives(ctx context.Context, vendorID uuid.UUID, start, end time.Time) (*Alternatives, error) {
	start, end = interval.Wall(start), interval.Wall(end)
	resolver := NewConflictResolver(s.store, s.windows)

	conflicts, err := resolver.ConflictingBookings(ctx, vendorID, start, end, nil)
	if err != nil {
		return nil, err
	}

	out := &Alternatives{
		HasConflict: len(conflicts) > 0,
		Conflicts:   conflicts,
		Suggestions: []interval.Suggestion{},
	}
	if !out.HasConflict {
		return out, nil
	}

	out.Suggestions, err = resolver.SuggestAlternatives(ctx, vendorID, start, end)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetBooking retrieves a booking by ID
func (s *Service) GetBooking(ctx context.Context, id uuid.UUID) (*Booking, error) {
	return s.loadBooking(ctx, id)
}

// ListVendorBookings returns every booking of the vendor starting on date, in any status.
func (s *Service) ListVendorBookings(ctx context.Context, vendorID uuid.UUID, date time.Time) ([]Booking, error) {
	day := interval.Day(interval.Wall(date))
	bookings, err := s.store.ListVendorBookings(ctx, vendorID, day, day.AddDate(0, 0, 1), nil)
	if err != nil {
		return nil, fmt.Errorf("list vendor bookings: %w", err)
	}
	return bookings, nil
}

// ListCustomerBookings retrieves bookings for a specific customer
func (s *Service) ListCustomerBookings(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]Booking, error) {
	if limit <= 0 {
		limit = 20 // default
	}
	if limit > 100 {
		limit = 100 // max
	}
	if offset < 0 {
		offset = 0
	}

	bookings, err := s.store.ListBookingsByCustomer(ctx, customerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list customer bookings: %w", err)
	}
	return bookings, nil
}

func (s *Service) loadBooking(ctx context.Context, id uuid.UUID) (*Booking, error) {
	b, err := s.store.GetBookingByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load booking: %w", err)
	}
	return b, nil
}

// transitionErr turns a lost compare-and-set (row exists but status moved on)
// into ErrInvalidStatusTransition.
func transitionErr(err error) error {
	if errors.Is(err, ErrBookingNotFound) {
		return ErrInvalidStatusTransition
	}
	return err
}

func (s *Service) dispatch(ctx context.Context, req notification.Request) {
	if s.notifier == nil {
		return
	}

	ctx = context.WithoutCancel(ctx)
	go func() {
		log := logger.FromContext(ctx)
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("type", string(req.Type)).Msg("notification dispatch panicked")
			}
		}()

		dctx, cancel := context.WithTimeout(ctx, notifyTimeout)
		defer cancel()

		if err := s.notifier.Dispatch(dctx, req); err != nil {
			log.Warn().Err(err).
				Str("type", string(req.Type)).
				Str("recipient_id", req.RecipientID.String()).
				Msg("notification enqueue failed")
		}
	}()
}

func (s *Service) logDecision(ctx context.Context, b *Booking, err error) {
	decision := "created"
	switch {
	case err == nil:
	case errors.Is(err, ErrNotAvailable):
		decision = "rejected_unavailable"
	case errors.Is(err, ErrConflict):
		decision = "rejected_conflict"
	case errors.Is(err, ErrVendorDayBusy):
		decision = "rejected_busy"
	default:
		logger.FromContext(ctx).Error().Err(err).
			Str("vendor_id", b.VendorID.String()).
			Msg("booking creation failed")
		return
	}

	logger.FromContext(ctx).Info().
		Str("vendor_id", b.VendorID.String()).
		Str("booking_id", b.ID.String()).
		Time("event_start", b.EventStart).
		Time("event_end", b.End()).
		Str("decision", decision).
		Msg("booking decision")
}

func (s *Service) logEvent(ctx context.Context, bookingID uuid.UUID, eventType string, payload map[string]any) {
	log := logger.FromContext(ctx)

	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("failed to marshal event payload")
		data = nil
	}

	id := bookingID
	ev := EventLog{
		EventType: eventType,
		BookingID: &id,
		Payload:   data,
		CreatedAt: time.Now(),
	}

	if err := s.store.InsertEvent(ctx, ev); err != nil {
		log.Error().Err(err).
			Str("event_type", eventType).
			Str("booking_id", bookingID.String()).
			Msg("failed to insert event log")
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

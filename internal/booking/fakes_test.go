package booking

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/vendor-booking/internal/availability"
	"github.com/hackgods/vendor-booking/internal/interval"
	"github.com/hackgods/vendor-booking/internal/notification"
	redisclient "github.com/hackgods/vendor-booking/internal/redis"
)

// memStore is an in-memory Store. Compare-and-set misses surface as
// ErrBookingNotFound, matching the Postgres UPDATE ... WHERE status = $from.
type memStore struct {
	mu        sync.Mutex
	customers map[uuid.UUID]Customer
	vendors   map[uuid.UUID]Vendor
	services  map[uuid.UUID]ServiceOffering
	bookings  map[uuid.UUID]Booking
	events    []EventLog

	dayLocks sync.Map
	inserts  int
	listErr  error
}

func newMemStore() *memStore {
	return &memStore{
		customers: map[uuid.UUID]Customer{},
		vendors:   map[uuid.UUID]Vendor{},
		services:  map[uuid.UUID]ServiceOffering{},
		bookings:  map[uuid.UUID]Booking{},
	}
}

func (s *memStore) WithVendorDays(ctx context.Context, vendorID uuid.UUID, days []time.Time, fn func(ctx context.Context, tx Repository) error) error {
	for _, day := range ascendingDays(days) {
		m, _ := s.dayLocks.LoadOrStore(redisclient.LockKey(vendorID, day), &sync.Mutex{})
		mu := m.(*sync.Mutex)
		mu.Lock()
		defer mu.Unlock()
	}

	return fn(ctx, s)
}

func (s *memStore) GetCustomerByID(_ context.Context, id uuid.UUID) (*Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[id]
	if !ok {
		return nil, ErrCustomerNotFound
	}
	return &c, nil
}

func (s *memStore) GetVendorByID(_ context.Context, id uuid.UUID) (*Vendor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vendors[id]
	if !ok {
		return nil, ErrVendorNotFound
	}
	return &v, nil
}

func (s *memStore) GetServiceByID(_ context.Context, id uuid.UUID) (*ServiceOffering, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.services[id]
	if !ok {
		return nil, ErrServiceNotFound
	}
	return &o, nil
}

func (s *memStore) GetBookingByID(_ context.Context, id uuid.UUID) (*Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	return &b, nil
}

func (s *memStore) ListBookingsByCustomer(_ context.Context, customerID uuid.UUID, limit, offset int) ([]Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Booking
	for _, b := range s.bookings {
		if b.CustomerID == customerID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) ListVendorBookings(_ context.Context, vendorID uuid.UUID, from, to time.Time, statuses []Status) ([]Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}

	var out []Booking
	for _, b := range s.bookings {
		if b.VendorID != vendorID || b.EventStart.Before(from) || !b.EventStart.Before(to) {
			continue
		}
		if statuses != nil && !containsStatus(statuses, b.Status) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventStart.Before(out[j].EventStart) })
	return out, nil
}

func containsStatus(list []Status, s Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (s *memStore) ListElapsedAccepted(_ context.Context, now time.Time) ([]Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Booking
	for _, b := range s.bookings {
		if b.Status == StatusAccepted && b.End().Before(now) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *memStore) InsertBooking(_ context.Context, b *Booking) (*Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	row := *b
	row.CreatedAt, row.UpdatedAt = now, now
	s.bookings[row.ID] = row
	s.inserts++
	return &row, nil
}

func (s *memStore) update(id uuid.UUID, from Status, apply func(b *Booking)) (*Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok || b.Status != from {
		return nil, ErrBookingNotFound
	}
	apply(&b)
	b.UpdatedAt = time.Now()
	s.bookings[id] = b
	return &b, nil
}

func (s *memStore) UpdateBookingStatus(_ context.Context, id uuid.UUID, from, to Status) (*Booking, error) {
	return s.update(id, from, func(b *Booking) { b.Status = to })
}

func (s *memStore) ApplyCounterOffer(_ context.Context, id uuid.UUID, from Status, amountCents int64, message string) (*Booking, error) {
	return s.update(id, from, func(b *Booking) {
		b.Status = StatusCounterOffered
		b.CounterAmountCents = &amountCents
		b.CounterMessage = optional(message)
	})
}

func (s *memStore) AcceptCounterOffer(_ context.Context, id uuid.UUID) (*Booking, error) {
	return s.update(id, StatusCounterOffered, func(b *Booking) {
		b.Status = StatusAccepted
		if b.CounterAmountCents != nil {
			b.TotalAmountCents = *b.CounterAmountCents
		}
	})
}

func (s *memStore) UpdateBookingSchedule(_ context.Context, id uuid.UUID, start time.Time, end *time.Time) (*Booking, error) {
	s.mu.Lock()
	b, ok := s.bookings[id]
	s.mu.Unlock()
	if !ok || !b.Status.Blocking() {
		return nil, ErrBookingNotFound
	}
	return s.update(id, b.Status, func(b *Booking) {
		b.EventStart = start
		b.EventEnd = end
	})
}

func (s *memStore) InsertEvent(_ context.Context, ev EventLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev.ID = int64(len(s.events) + 1)
	s.events = append(s.events, ev)
	return nil
}

func (s *memStore) put(b Booking) Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	s.bookings[b.ID] = b
	return b
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bookings)
}

func (s *memStore) eventTypes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev.EventType)
	}
	return out
}

type memWindows struct {
	mu      sync.Mutex
	windows []availability.Window
}

func (m *memWindows) ListOpenWindows(_ context.Context, vendorID uuid.UUID, date time.Time) ([]availability.Window, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []availability.Window
	for _, w := range m.windows {
		if w.VendorID == vendorID && w.Date.Equal(interval.Day(date)) && w.IsOpen {
			out = append(out, w)
		}
	}
	return out, nil
}

func (m *memWindows) add(vendorID uuid.UUID, date time.Time, from, to interval.Clock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.windows = append(m.windows, availability.Window{
		ID:         uuid.New(),
		VendorID:   vendorID,
		Date:       interval.Day(date),
		StartClock: from,
		EndClock:   to,
		IsOpen:     true,
	})
}

// keyLocker serialises on the same key as the Redis locker. busy forces
// every acquisition to fail.
type keyLocker struct {
	locks sync.Map
	busy  bool

	mu       sync.Mutex
	acquired []string
}

func (l *keyLocker) keys() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.acquired...)
}

func (l *keyLocker) WithVendorDayLock(ctx context.Context, vendorID uuid.UUID, day time.Time, fn func(ctx context.Context) error) error {
	if l.busy {
		return redisclient.ErrLockNotAcquired
	}
	key := redisclient.LockKey(vendorID, day)
	m, _ := l.locks.LoadOrStore(key, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	l.mu.Lock()
	l.acquired = append(l.acquired, key)
	l.mu.Unlock()
	return fn(ctx)
}

type chanDispatcher struct {
	sent chan notification.Request
	err  error
}

func newChanDispatcher() *chanDispatcher {
	return &chanDispatcher{sent: make(chan notification.Request, 128)}
}

func (d *chanDispatcher) Dispatch(_ context.Context, req notification.Request) error {
	if d.err != nil {
		return d.err
	}
	d.sent <- req
	return nil
}

func (d *chanDispatcher) next() (notification.Request, error) {
	select {
	case req := <-d.sent:
		return req, nil
	case <-time.After(2 * time.Second):
		return notification.Request{}, errors.New("no notification dispatched")
	}
}

package booking

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/vendor-booking/internal/interval"
)

// DefaultDuration applies to every interval computation on a booking without an end.
const DefaultDuration = 2 * time.Hour

type Vendor struct {
	ID        uuid.UUID
	Name      string
	Category  *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Customer struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ServiceOffering is a catalog entry; it resolves which vendor a request targets.
type ServiceOffering struct {
	ID         uuid.UUID
	VendorID   uuid.UUID
	Name       string
	PriceCents int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Booking struct {
	ID                 uuid.UUID
	CustomerID         uuid.UUID
	VendorID           uuid.UUID
	ServiceID          uuid.UUID
	EventStart         time.Time
	EventEnd           *time.Time
	Status             Status
	TotalAmountCents   int64
	CounterAmountCents *int64
	CounterMessage     *string
	Location           string
	Requirements       *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// End returns EventEnd, or EventStart plus DefaultDuration when it is absent.
func (b Booking) End() time.Time {
	if b.EventEnd != nil {
		return *b.EventEnd
	}
	return b.EventStart.Add(DefaultDuration)
}

func (b Booking) Span() interval.Span {
	return interval.Span{Start: b.EventStart, End: b.End()}
}

type EventLog struct {
	ID        int64
	EventType string
	BookingID *uuid.UUID
	Payload   []byte
	CreatedAt time.Time
}

package booking

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/vendor-booking/internal/interval"
)

// CreateBookingRequest is the inbound value object for CreateBooking.
// VendorID is optional; the vendor is resolved from ServiceID.
type CreateBookingRequest struct {
	CustomerID       uuid.UUID  `json:"customer_id" validate:"required"`
	VendorID         *uuid.UUID `json:"vendor_id,omitempty"`
	ServiceID        uuid.UUID  `json:"service_id" validate:"required"`
	EventStart       time.Time  `json:"event_start" validate:"required"`
	EventEnd         *time.Time `json:"event_end,omitempty"`
	Location         string     `json:"location" validate:"required,max=500"`
	TotalAmountCents int64      `json:"total_amount_cents" validate:"gt=0"`
	Requirements     string     `json:"requirements,omitempty" validate:"max=5000"`
}

type rescheduleRequest struct {
	EventStart time.Time  `json:"event_start" validate:"required"`
	EventEnd   *time.Time `json:"event_end,omitempty"`
}

type counterOfferRequest struct {
	AmountCents int64  `json:"amount_cents" validate:"gt=0"`
	Message     string `json:"message" validate:"max=2000"`
}

// Alternatives is the answer to "can I have this window, and if not, what else?".
type Alternatives struct {
	HasConflict bool                  `json:"has_conflict"`
	Conflicts   []Booking             `json:"conflicts"`
	Suggestions []interval.Suggestion `json:"suggestions"`
}

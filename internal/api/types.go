package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/vendor-booking/internal/booking"
	"github.com/hackgods/vendor-booking/internal/interval"
	"github.com/hackgods/vendor-booking/internal/validator"
)

type CreateBookingRequest struct {
	CustomerID       string     `json:"customer_id"`
	VendorID         string     `json:"vendor_id,omitempty"`
	ServiceID        string     `json:"service_id"`
	EventStart       time.Time  `json:"event_start"`
	EventEnd         *time.Time `json:"event_end,omitempty"`
	Location         string     `json:"location"`
	TotalAmountCents int64      `json:"total_amount_cents"`
	Requirements     string     `json:"requirements,omitempty"`
}

// RespondRequest carries a vendor answer ("accepted", "declined",
// "counter_offered") or, with Party set to "customer", the reply to a
// counter-offer ("accepted" or "declined").
type RespondRequest struct {
	Type        string `json:"type"`
	Party       string `json:"party,omitempty"`
	Reason      string `json:"reason,omitempty"`
	AmountCents int64  `json:"amount_cents,omitempty"`
	Message     string `json:"message,omitempty"`
}

type CancelRequest struct {
	CancelledBy string `json:"cancelled_by"`
}

type RescheduleRequest struct {
	EventStart time.Time  `json:"event_start"`
	EventEnd   *time.Time `json:"event_end,omitempty"`
}

type BookingResponse struct {
	ID                 uuid.UUID `json:"id"`
	CustomerID         uuid.UUID `json:"customer_id"`
	VendorID           uuid.UUID `json:"vendor_id"`
	ServiceID          uuid.UUID `json:"service_id"`
	EventStart         time.Time `json:"event_start"`
	EventEnd           time.Time `json:"event_end"`
	Status             string    `json:"status"`
	TotalAmountCents   int64     `json:"total_amount_cents"`
	CounterAmountCents *int64    `json:"counter_amount_cents,omitempty"`
	CounterMessage     *string   `json:"counter_message,omitempty"`
	Location           string    `json:"location"`
	Requirements       *string   `json:"requirements,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func toBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID:                 b.ID,
		CustomerID:         b.CustomerID,
		VendorID:           b.VendorID,
		ServiceID:          b.ServiceID,
		EventStart:         b.EventStart,
		EventEnd:           b.End(),
		Status:             string(b.Status),
		TotalAmountCents:   b.TotalAmountCents,
		CounterAmountCents: b.CounterAmountCents,
		CounterMessage:     b.CounterMessage,
		Location:           b.Location,
		Requirements:       b.Requirements,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
}

func toBookingList(bookings []booking.Booking) []BookingResponse {
	out := make([]BookingResponse, 0, len(bookings))
	for i := range bookings {
		out = append(out, toBookingResponse(&bookings[i]))
	}
	return out
}

type AvailabilityResponse struct {
	VendorID  uuid.UUID `json:"vendor_id"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Available bool      `json:"available"`
}

type WindowsResponse struct {
	VendorID uuid.UUID             `json:"vendor_id"`
	Date     string                `json:"date"`
	Windows  []interval.Suggestion `json:"windows"`
}

type AlternativesResponse struct {
	HasConflict bool                  `json:"has_conflict"`
	Conflicts   []BookingResponse     `json:"conflicts"`
	Suggestions []interval.Suggestion `json:"suggestions"`
}

type ErrorResponse struct {
	Error   string                 `json:"error"`
	Details string                 `json:"details,omitempty"`
	Fields  []validator.FieldError `json:"fields,omitempty"`
}

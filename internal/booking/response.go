package booking

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/vendor-booking/internal/notification"
)

// VendorResponse is the closed set of answers a vendor can give to a pending
// booking: Accepted, Declined or CounterOffered.
type VendorResponse interface {
	target() Status
}

type Accepted struct{}

type Declined struct {
	Reason string
}

type CounterOffered struct {
	AmountCents int64
	Message     string
}

func (Accepted) target() Status       { return StatusAccepted }
func (Declined) target() Status       { return StatusDeclined }
func (CounterOffered) target() Status { return StatusCounterOffered }

// Party identifies who triggered a customer- or vendor-driven transition.
type Party string

const (
	PartyCustomer Party = "customer"
	PartyVendor   Party = "vendor"
)

func bookingPayload(b *Booking) map[string]string {
	return map[string]string{"booking_id": b.ID.String()}
}

// responseNotification maps a vendor response to the notification the customer receives.
func responseNotification(b *Booking, resp VendorResponse) notification.Request {
	payload := bookingPayload(b)
	req := notification.Request{RecipientID: b.CustomerID, Payload: payload}

	switch r := resp.(type) {
	case Accepted:
		req.Type = notification.TypeBookingAccepted
	case Declined:
		req.Type = notification.TypeBookingDeclined
		if r.Reason != "" {
			payload["reason"] = r.Reason
		}
	case CounterOffered:
		req.Type = notification.TypeBookingCounterOffered
		payload["amount_cents"] = strconv.FormatInt(r.AmountCents, 10)
		if r.Message != "" {
			payload["message"] = r.Message
		}
	}
	return req
}

func createdNotification(b *Booking) notification.Request {
	return notification.Request{
		Type:        notification.TypeBookingCreated,
		RecipientID: b.VendorID,
		Payload:     bookingPayload(b),
	}
}

// counterpart returns the party that did not act.
func counterpart(b *Booking, actor Party) uuid.UUID {
	if actor == PartyVendor {
		return b.CustomerID
	}
	return b.VendorID
}

func cancelledNotification(b *Booking, actor Party) notification.Request {
	payload := bookingPayload(b)
	payload["cancelled_by"] = string(actor)
	return notification.Request{
		Type:        notification.TypeBookingCancelled,
		RecipientID: counterpart(b, actor),
		Payload:     payload,
	}
}

func completedNotification(b *Booking) notification.Request {
	return notification.Request{
		Type:        notification.TypeBookingCompleted,
		RecipientID: b.CustomerID,
		Payload:     bookingPayload(b),
	}
}

func rescheduledNotification(b *Booking) notification.Request {
	payload := bookingPayload(b)
	payload["event_start"] = b.EventStart.Format(time.RFC3339)
	payload["event_end"] = b.End().Format(time.RFC3339)
	return notification.Request{
		Type:        notification.TypeBookingRescheduled,
		RecipientID: b.VendorID,
		Payload:     payload,
	}
}

func counterReplyNotification(b *Booking) notification.Request {
	req := notification.Request{RecipientID: b.VendorID, Payload: bookingPayload(b)}
	if b.Status == StatusAccepted {
		req.Type = notification.TypeBookingAccepted
	} else {
		req.Type = notification.TypeBookingDeclined
	}
	return req
}

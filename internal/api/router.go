package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/vendor-booking/internal/booking"
	"github.com/hackgods/vendor-booking/internal/interval"
)

// BookingService is the surface the HTTP layer needs from *booking.Service.
type BookingService interface {
	CreateBooking(ctx context.Context, req booking.CreateBookingRequest) (*booking.Booking, error)
	GetBooking(ctx context.Context, id uuid.UUID) (*booking.Booking, error)
	Respond(ctx context.Context, id uuid.UUID, resp booking.VendorResponse) (*booking.Booking, error)
	ReplyToCounterOffer(ctx context.Context, id uuid.UUID, accept bool) (*booking.Booking, error)
	Cancel(ctx context.Context, id uuid.UUID, actor booking.Party) (*booking.Booking, error)
	Complete(ctx context.Context, id uuid.UUID) (*booking.Booking, error)
	Reschedule(ctx context.Context, id uuid.UUID, start time.Time, end *time.Time) (*booking.Booking, error)
	ListCustomerBookings(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]booking.Booking, error)
	ListVendorBookings(ctx context.Context, vendorID uuid.UUID, date time.Time) ([]booking.Booking, error)
	CheckAvailability(ctx context.Context, vendorID uuid.UUID, start, end time.Time) (bool, error)
	OpenWindows(ctx context.Context, vendorID uuid.UUID, date time.Time) ([]interval.Suggestion, error)
	FindAlternatives(ctx context.Context, vendorID uuid.UUID, start, end time.Time) (*booking.Alternatives, error)
}

type RouterConfig struct {
	Service  BookingService
	Postgres Pinger
	Redis    Pinger
	Env      string
	Version  string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(RecoverMiddleware)

	health := NewHealthHandler(cfg.Postgres, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Route("/bookings", func(r chi.Router) {
		r.Post("/", createBookingHandler(cfg.Service))
		r.Get("/{id}", getBookingHandler(cfg.Service))
		r.Post("/{id}/respond", respondHandler(cfg.Service))
		r.Post("/{id}/cancel", cancelBookingHandler(cfg.Service))
		r.Post("/{id}/complete", completeBookingHandler(cfg.Service))
		r.Put("/{id}/schedule", rescheduleBookingHandler(cfg.Service))
	})

	r.Get("/customers/{id}/bookings", listCustomerBookingsHandler(cfg.Service))

	r.Route("/vendors/{id}", func(r chi.Router) {
		r.Get("/bookings", listVendorBookingsHandler(cfg.Service))
		r.Get("/availability", availabilityHandler(cfg.Service))
		r.Get("/windows", windowsHandler(cfg.Service))
		r.Get("/alternatives", alternativesHandler(cfg.Service))
	})

	return r
}

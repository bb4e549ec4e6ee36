package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/vendor-booking/internal/booking"
	"github.com/hackgods/vendor-booking/internal/validator"
)

var timeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04"}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unrecognised time format")
}

func parseOptionalUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(s)
}

func pathUUID(w http.ResponseWriter, r *http.Request, name, code string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, code, name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func writeFieldError(w http.ResponseWriter, field, message string) {
	writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
		Error:  "validation_failed",
		Fields: []validator.FieldError{{Field: field, Message: message}},
	})
}

func createBookingHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		customerID, err := parseOptionalUUID(req.CustomerID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_customer_id", "customer_id must be a valid UUID")
			return
		}
		serviceID, err := parseOptionalUUID(req.ServiceID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_service_id", "service_id must be a valid UUID")
			return
		}

		in := booking.CreateBookingRequest{
			CustomerID:       customerID,
			ServiceID:        serviceID,
			EventStart:       req.EventStart,
			EventEnd:         req.EventEnd,
			Location:         req.Location,
			TotalAmountCents: req.TotalAmountCents,
			Requirements:     req.Requirements,
		}
		if req.VendorID != "" {
			vendorID, err := uuid.Parse(req.VendorID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_vendor_id", "vendor_id must be a valid UUID")
				return
			}
			in.VendorID = &vendorID
		}

		b, err := svc.CreateBooking(r.Context(), in)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, toBookingResponse(b))
	}
}

func getBookingHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id", "invalid_booking_id")
		if !ok {
			return
		}

		b, err := svc.GetBooking(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingResponse(b))
	}
}

func respondHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id", "invalid_booking_id")
		if !ok {
			return
		}

		var req RespondRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		var (
			b   *booking.Booking
			err error
		)
		switch booking.Party(req.Party) {
		case booking.PartyCustomer:
			switch booking.Status(req.Type) {
			case booking.StatusAccepted:
				b, err = svc.ReplyToCounterOffer(r.Context(), id, true)
			case booking.StatusDeclined:
				b, err = svc.ReplyToCounterOffer(r.Context(), id, false)
			default:
				writeFieldError(w, "type", "must be one of: accepted declined")
				return
			}
		case booking.PartyVendor, "":
			var resp booking.VendorResponse
			switch booking.Status(req.Type) {
			case booking.StatusAccepted:
				resp = booking.Accepted{}
			case booking.StatusDeclined:
				resp = booking.Declined{Reason: req.Reason}
			case booking.StatusCounterOffered:
				resp = booking.CounterOffered{AmountCents: req.AmountCents, Message: req.Message}
			default:
				writeFieldError(w, "type", "must be one of: accepted declined counter_offered")
				return
			}
			b, err = svc.Respond(r.Context(), id, resp)
		default:
			writeFieldError(w, "party", "must be one of: customer vendor")
			return
		}
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingResponse(b))
	}
}

func cancelBookingHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id", "invalid_booking_id")
		if !ok {
			return
		}

		var req CancelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		b, err := svc.Cancel(r.Context(), id, booking.Party(req.CancelledBy))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingResponse(b))
	}
}

func completeBookingHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id", "invalid_booking_id")
		if !ok {
			return
		}

		b, err := svc.Complete(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingResponse(b))
	}
}

func rescheduleBookingHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id", "invalid_booking_id")
		if !ok {
			return
		}

		var req RescheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		b, err := svc.Reschedule(r.Context(), id, req.EventStart, req.EventEnd)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingResponse(b))
	}
}

func listCustomerBookingsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, ok := pathUUID(w, r, "id", "invalid_customer_id")
		if !ok {
			return
		}

		limit, ok := intParam(w, r, "limit", "invalid_limit")
		if !ok {
			return
		}
		offset, ok := intParam(w, r, "offset", "invalid_offset")
		if !ok {
			return
		}

		bookings, err := svc.ListCustomerBookings(r.Context(), customerID, limit, offset)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingList(bookings))
	}
}

func listVendorBookingsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, ok := pathUUID(w, r, "id", "invalid_vendor_id")
		if !ok {
			return
		}

		date, ok := dateParam(w, r)
		if !ok {
			return
		}

		bookings, err := svc.ListVendorBookings(r.Context(), vendorID, date)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingList(bookings))
	}
}

func availabilityHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, ok := pathUUID(w, r, "id", "invalid_vendor_id")
		if !ok {
			return
		}

		start, end, ok := windowParams(w, r)
		if !ok {
			return
		}

		available, err := svc.CheckAvailability(r.Context(), vendorID, start, end)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, AvailabilityResponse{
			VendorID:  vendorID,
			Start:     start,
			End:       end,
			Available: available,
		})
	}
}

func windowsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, ok := pathUUID(w, r, "id", "invalid_vendor_id")
		if !ok {
			return
		}

		date, ok := dateParam(w, r)
		if !ok {
			return
		}

		windows, err := svc.OpenWindows(r.Context(), vendorID, date)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, WindowsResponse{
			VendorID: vendorID,
			Date:     date.Format(time.DateOnly),
			Windows:  windows,
		})
	}
}

func alternativesHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, ok := pathUUID(w, r, "id", "invalid_vendor_id")
		if !ok {
			return
		}

		start, end, ok := windowParams(w, r)
		if !ok {
			return
		}

		alt, err := svc.FindAlternatives(r.Context(), vendorID, start, end)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		conflicts := toBookingList(alt.Conflicts)
		writeJSON(w, http.StatusOK, AlternativesResponse{
			HasConflict: alt.HasConflict,
			Conflicts:   conflicts,
			Suggestions: alt.Suggestions,
		})
	}
}

func dateParam(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "missing_date", "date query parameter is required (YYYY-MM-DD)")
		return time.Time{}, false
	}
	date, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "date must be formatted as YYYY-MM-DD")
		return time.Time{}, false
	}
	return date, true
}

// intParam reads an optional integer query parameter. Absent means zero and
// leaves the default to the service.
func intParam(w http.ResponseWriter, r *http.Request, name, code string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, code, name+" must be an integer")
		return 0, false
	}
	return n, true
}

// windowParams reads start and an optional end. A missing end is left zero so
// the booking default duration applies downstream.
func windowParams(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	q := r.URL.Query()

	start, err := parseTime(q.Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_start", "start must be an RFC 3339 timestamp")
		return time.Time{}, time.Time{}, false
	}

	var end time.Time
	if raw := q.Get("end"); raw != "" {
		end, err = parseTime(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_end", "end must be an RFC 3339 timestamp")
			return time.Time{}, time.Time{}, false
		}
	}
	return start, end, true
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/vendor-booking/internal/booking"
	"github.com/hackgods/vendor-booking/internal/interval"
	"github.com/hackgods/vendor-booking/internal/validator"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) result(args mock.Arguments) (*booking.Booking, error) {
	b, _ := args.Get(0).(*booking.Booking)
	return b, args.Error(1)
}

func (m *mockService) CreateBooking(ctx context.Context, req booking.CreateBookingRequest) (*booking.Booking, error) {
	return m.result(m.Called(ctx, req))
}

func (m *mockService) GetBooking(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	return m.result(m.Called(ctx, id))
}

func (m *mockService) Respond(ctx context.Context, id uuid.UUID, resp booking.VendorResponse) (*booking.Booking, error) {
	return m.result(m.Called(ctx, id, resp))
}

func (m *mockService) ReplyToCounterOffer(ctx context.Context, id uuid.UUID, accept bool) (*booking.Booking, error) {
	return m.result(m.Called(ctx, id, accept))
}

func (m *mockService) Cancel(ctx context.Context, id uuid.UUID, actor booking.Party) (*booking.Booking, error) {
	return m.result(m.Called(ctx, id, actor))
}

func (m *mockService) Complete(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	return m.result(m.Called(ctx, id))
}

func (m *mockService) Reschedule(ctx context.Context, id uuid.UUID, start time.Time, end *time.Time) (*booking.Booking, error) {
	return m.result(m.Called(ctx, id, start, end))
}

func (m *mockService) ListCustomerBookings(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]booking.Booking, error) {
	args := m.Called(ctx, customerID, limit, offset)
	out, _ := args.Get(0).([]booking.Booking)
	return out, args.Error(1)
}

func (m *mockService) ListVendorBookings(ctx context.Context, vendorID uuid.UUID, date time.Time) ([]booking.Booking, error) {
	args := m.Called(ctx, vendorID, date)
	out, _ := args.Get(0).([]booking.Booking)
	return out, args.Error(1)
}

func (m *mockService) CheckAvailability(ctx context.Context, vendorID uuid.UUID, start, end time.Time) (bool, error) {
	args := m.Called(ctx, vendorID, start, end)
	return args.Bool(0), args.Error(1)
}

func (m *mockService) OpenWindows(ctx context.Context, vendorID uuid.UUID, date time.Time) ([]interval.Suggestion, error) {
	args := m.Called(ctx, vendorID, date)
	out, _ := args.Get(0).([]interval.Suggestion)
	return out, args.Error(1)
}

func (m *mockService) FindAlternatives(ctx context.Context, vendorID uuid.UUID, start, end time.Time) (*booking.Alternatives, error) {
	args := m.Called(ctx, vendorID, start, end)
	out, _ := args.Get(0).(*booking.Alternatives)
	return out, args.Error(1)
}

var eventStart = time.Date(2026, 6, 12, 10, 0, 0, 0, time.UTC)

func sampleBooking(status booking.Status) *booking.Booking {
	end := eventStart.Add(2 * time.Hour)
	return &booking.Booking{
		ID:               uuid.New(),
		CustomerID:       uuid.New(),
		VendorID:         uuid.New(),
		ServiceID:        uuid.New(),
		EventStart:       eventStart,
		EventEnd:         &end,
		Status:           status,
		TotalAmountCents: 150000,
		Location:         "12 Quay Street",
	}
}

func newTestRouter(svc BookingService) http.Handler {
	ok := PingFunc(func(context.Context) error { return nil })
	return NewRouter(RouterConfig{Service: svc, Postgres: ok, Redis: ok, Env: "test", Version: "v0"})
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestCreateBooking_Created(t *testing.T) {
	svc := new(mockService)
	created := sampleBooking(booking.StatusPending)

	svc.On("CreateBooking", mock.Anything, mock.MatchedBy(func(req booking.CreateBookingRequest) bool {
		return req.CustomerID == created.CustomerID &&
			req.ServiceID == created.ServiceID &&
			req.VendorID == nil &&
			req.EventStart.Equal(eventStart) &&
			req.EventEnd == nil &&
			req.TotalAmountCents == 150000
	})).Return(created, nil)

	body := `{"customer_id":"` + created.CustomerID.String() + `","service_id":"` + created.ServiceID.String() +
		`","event_start":"2026-06-12T10:00:00Z","location":"12 Quay Street","total_amount_cents":150000}`

	rec := do(t, newTestRouter(svc), http.MethodPost, "/bookings", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decode[BookingResponse](t, rec)
	assert.Equal(t, created.ID, resp.ID)
	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, eventStart.Add(2*time.Hour), resp.EventEnd)
	svc.AssertExpectations(t)
}

func TestCreateBooking_ConflictIsFieldError(t *testing.T) {
	svc := new(mockService)
	svc.On("CreateBooking", mock.Anything, mock.Anything).Return(nil, &booking.ValidationError{
		Kind:   booking.ErrConflict,
		Fields: []booking.FieldError{{Field: booking.FieldEventDate, Message: booking.MsgConflict}},
	})

	body := `{"customer_id":"` + uuid.NewString() + `","service_id":"` + uuid.NewString() +
		`","event_start":"2026-06-12T11:00:00Z","event_end":"2026-06-12T13:00:00Z","location":"x","total_amount_cents":1}`

	rec := do(t, newTestRouter(svc), http.MethodPost, "/bookings", body)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "validation_failed", resp.Error)
	assert.Equal(t, []validator.FieldError{{Field: "event_date", Message: "conflicts with another booking"}}, resp.Fields)
}

func TestCreateBooking_BadInput(t *testing.T) {
	svc := new(mockService)
	router := newTestRouter(svc)

	rec := do(t, router, http.MethodPost, "/bookings", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/bookings", `{"customer_id":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_customer_id", decode[ErrorResponse](t, rec).Error)

	rec = do(t, router, http.MethodPost, "/bookings", `{"vendor_id":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
}

func TestCreateBooking_ErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{booking.ErrVendorDayBusy, http.StatusConflict, "vendor_day_busy"},
		{booking.ErrCustomerNotFound, http.StatusNotFound, "customer_not_found"},
		{booking.ErrServiceNotFound, http.StatusNotFound, "service_not_found"},
		{errors.New("pool closed"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			svc := new(mockService)
			svc.On("CreateBooking", mock.Anything, mock.Anything).Return(nil, tc.err)

			rec := do(t, newTestRouter(svc), http.MethodPost, "/bookings", `{}`)
			assert.Equal(t, tc.status, rec.Code)

			resp := decode[ErrorResponse](t, rec)
			assert.Equal(t, tc.code, resp.Error)
			assert.NotContains(t, resp.Details, "pool closed")
		})
	}
}

func TestRespond_VendorCounterOffer(t *testing.T) {
	svc := new(mockService)
	b := sampleBooking(booking.StatusCounterOffered)

	svc.On("Respond", mock.Anything, b.ID, booking.CounterOffered{AmountCents: 180000, Message: "weekend"}).Return(b, nil)

	rec := do(t, newTestRouter(svc), http.MethodPost, "/bookings/"+b.ID.String()+"/respond",
		`{"type":"counter_offered","amount_cents":180000,"message":"weekend"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "counter_offered", decode[BookingResponse](t, rec).Status)
	svc.AssertExpectations(t)
}

func TestRespond_CustomerReply(t *testing.T) {
	svc := new(mockService)
	b := sampleBooking(booking.StatusAccepted)

	svc.On("ReplyToCounterOffer", mock.Anything, b.ID, true).Return(b, nil)

	rec := do(t, newTestRouter(svc), http.MethodPost, "/bookings/"+b.ID.String()+"/respond",
		`{"type":"accepted","party":"customer"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestRespond_RejectsUnknownType(t *testing.T) {
	svc := new(mockService)
	router := newTestRouter(svc)
	id := uuid.NewString()

	rec := do(t, router, http.MethodPost, "/bookings/"+id+"/respond", `{"type":"maybe"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "type", decode[ErrorResponse](t, rec).Fields[0].Field)

	rec = do(t, router, http.MethodPost, "/bookings/"+id+"/respond", `{"type":"counter_offered","party":"customer"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, router, http.MethodPost, "/bookings/"+id+"/respond", `{"type":"accepted","party":"admin"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, router, http.MethodPost, "/bookings/not-a-uuid/respond", `{"type":"accepted"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookingTransitions(t *testing.T) {
	svc := new(mockService)
	router := newTestRouter(svc)
	b := sampleBooking(booking.StatusAccepted)

	svc.On("Cancel", mock.Anything, b.ID, booking.PartyCustomer).Return(nil, booking.ErrInvalidStatusTransition)
	svc.On("Complete", mock.Anything, b.ID).Return(b, nil)
	svc.On("GetBooking", mock.Anything, b.ID).Return(nil, booking.ErrBookingNotFound)

	rec := do(t, router, http.MethodPost, "/bookings/"+b.ID.String()+"/cancel", `{"cancelled_by":"customer"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, router, http.MethodPost, "/bookings/"+b.ID.String()+"/complete", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/bookings/"+b.ID.String(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReschedule(t *testing.T) {
	svc := new(mockService)
	b := sampleBooking(booking.StatusPending)
	newStart := eventStart.Add(3 * time.Hour)

	svc.On("Reschedule", mock.Anything, b.ID, mock.MatchedBy(func(s time.Time) bool { return s.Equal(newStart) }), (*time.Time)(nil)).
		Return(b, nil)

	rec := do(t, newTestRouter(svc), http.MethodPut, "/bookings/"+b.ID.String()+"/schedule",
		`{"event_start":"2026-06-12T13:00:00Z"}`)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	svc.AssertExpectations(t)
}

func TestVendorQueries(t *testing.T) {
	svc := new(mockService)
	router := newTestRouter(svc)
	vendorID := uuid.New()
	day := time.Date(2026, 6, 12, 0, 0, 0, 0, time.UTC)
	slot := interval.Span{Start: eventStart.Add(2 * time.Hour), End: eventStart.Add(4 * time.Hour)}.Suggestion()

	svc.On("ListVendorBookings", mock.Anything, vendorID, day).Return([]booking.Booking{*sampleBooking(booking.StatusPending)}, nil)
	svc.On("OpenWindows", mock.Anything, vendorID, day).Return([]interval.Suggestion{slot}, nil)
	svc.On("CheckAvailability", mock.Anything, vendorID, eventStart, eventStart.Add(2*time.Hour)).Return(true, nil)
	svc.On("FindAlternatives", mock.Anything, vendorID, eventStart, time.Time{}).Return(&booking.Alternatives{
		HasConflict: true,
		Conflicts:   []booking.Booking{*sampleBooking(booking.StatusAccepted)},
		Suggestions: []interval.Suggestion{slot},
	}, nil)

	base := "/vendors/" + vendorID.String()

	rec := do(t, router, http.MethodGet, base+"/bookings?date=2026-06-12", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]BookingResponse](t, rec), 1)

	rec = do(t, router, http.MethodGet, base+"/bookings", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodGet, base+"/windows?date=2026-06-12", "")
	require.Equal(t, http.StatusOK, rec.Code)
	windows := decode[WindowsResponse](t, rec)
	assert.Equal(t, "2026-06-12", windows.Date)
	require.Len(t, windows.Windows, 1)

	rec = do(t, router, http.MethodGet, base+"/availability?start=2026-06-12T10:00:00Z&end=2026-06-12T12:00", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[AvailabilityResponse](t, rec).Available)

	rec = do(t, router, http.MethodGet, base+"/alternatives?start=2026-06-12T10:00:00Z", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	alt := decode[AlternativesResponse](t, rec)
	assert.True(t, alt.HasConflict)
	assert.Len(t, alt.Conflicts, 1)
	assert.InDelta(t, 2.0, alt.Suggestions[0].DurationHours, 1e-9)

	rec = do(t, router, http.MethodGet, base+"/alternatives?start=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc.AssertExpectations(t)
}

func TestListCustomerBookings_PassesPaging(t *testing.T) {
	svc := new(mockService)
	customerID := uuid.New()
	svc.On("ListCustomerBookings", mock.Anything, customerID, 5, 10).Return([]booking.Booking{}, nil)

	rec := do(t, newTestRouter(svc), http.MethodGet, "/customers/"+customerID.String()+"/bookings?limit=5&offset=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestListCustomerBookings_RejectsMalformedPaging(t *testing.T) {
	svc := new(mockService)
	router := newTestRouter(svc)
	base := "/customers/" + uuid.NewString() + "/bookings"

	cases := []struct {
		query string
		code  string
	}{
		{"?limit=abc", "invalid_limit"},
		{"?limit=5&offset=1.5", "invalid_offset"},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			rec := do(t, router, http.MethodGet, base+tc.query, "")
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tc.code, decode[ErrorResponse](t, rec).Error)
		})
	}

	svc.AssertNotCalled(t, "ListCustomerBookings", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRequestIDIsEchoed(t *testing.T) {
	router := newTestRouter(new(mockService))

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))

	rec = do(t, router, http.MethodGet, "/health/live", "")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestReadiness(t *testing.T) {
	up := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("down") })

	cases := []struct {
		name    string
		pg, rd  Pinger
		status  int
		overall string
	}{
		{"all up", up, up, http.StatusOK, "ok"},
		{"redis down", up, down, http.StatusOK, "degraded"},
		{"postgres down", down, up, http.StatusServiceUnavailable, "error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := NewRouter(RouterConfig{Service: new(mockService), Postgres: tc.pg, Redis: tc.rd})
			rec := do(t, router, http.MethodGet, "/health/ready", "")
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.overall, decode[ReadinessResponse](t, rec).Status)
		})
	}
}

package availability

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/vendor-booking/internal/interval"
)

// Window is a vendor-declared open range on one calendar date. Clock values
// are vendor-local; an EndClock before StartClock declares an overnight window.
type Window struct {
	ID         uuid.UUID
	VendorID   uuid.UUID
	Date       time.Time
	StartClock interval.Clock
	EndClock   interval.Clock
	IsOpen     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (w Window) Overnight() bool {
	return w.EndClock < w.StartClock
}

// Span resolves the window against its date. Overnight windows end on the following day.
func (w Window) Span() interval.Span {
	return interval.WindowSpan(w.Date, w.StartClock, w.EndClock)
}

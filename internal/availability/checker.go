package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/vendor-booking/internal/interval"
)

// Checker decides whether a requested window is covered by a declared open window.
type Checker struct {
	repo           Repository
	allowOvernight bool
}

type CheckerOption func(*Checker)

// WithOvernightContainment lets overnight windows satisfy IsAvailable. Off by
// default: overnight windows never match until product decides otherwise.
func WithOvernightContainment(allow bool) CheckerOption {
	return func(c *Checker) {
		c.allowOvernight = allow
	}
}

func NewChecker(repo Repository, opts ...CheckerOption) *Checker {
	c := &Checker{repo: repo}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsAvailable reports whether [start, end) on date lies entirely inside one
// open window. Missing vendor or date yields false, never an error; only
// store failures are returned.
func (c *Checker) IsAvailable(ctx context.Context, vendorID uuid.UUID, date time.Time, start, end interval.Clock) (bool, error) {
	if vendorID == uuid.Nil || date.IsZero() || end <= start {
		return false, nil
	}

	windows, err := c.repo.ListOpenWindows(ctx, vendorID, date)
	if err != nil {
		return false, fmt.Errorf("list open windows: %w", err)
	}

	requested := interval.Span{Start: start.On(date), End: end.On(date)}
	for _, w := range windows {
		if !w.IsOpen {
			continue
		}
		if w.Overnight() && !c.allowOvernight {
			continue
		}
		if w.Span().Contains(requested) {
			return true, nil
		}
	}

	return false, nil
}

// SuggestedWindows lists every open same-day window on date. Existing bookings
// are not taken into account.
func (c *Checker) SuggestedWindows(ctx context.Context, vendorID uuid.UUID, date time.Time) ([]interval.Suggestion, error) {
	if vendorID == uuid.Nil || date.IsZero() {
		return []interval.Suggestion{}, nil
	}

	windows, err := c.repo.ListOpenWindows(ctx, vendorID, date)
	if err != nil {
		return nil, fmt.Errorf("list open windows: %w", err)
	}

	spans := make([]interval.Span, 0, len(windows))
	for _, w := range windows {
		if !w.IsOpen || w.Overnight() {
			continue
		}
		spans = append(spans, w.Span())
	}

	return interval.Suggestions(spans), nil
}

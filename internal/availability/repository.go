package availability

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is read-only access to declared windows. Window CRUD belongs to
// the vendor profile surface.
type Repository interface {
	ListOpenWindows(ctx context.Context, vendorID uuid.UUID, date time.Time) ([]Window, error)
}

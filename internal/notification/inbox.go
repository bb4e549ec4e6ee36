package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/hackgods/vendor-booking/internal/db"
)

// Inbox stores delivered notifications for the recipient's in-app feed.
type Inbox interface {
	Save(ctx context.Context, req Request) error
}

type PgInbox struct {
	db db.Querier
}

func NewPgInbox(q db.Querier) *PgInbox {
	return &PgInbox{db: q}
}

func (i *PgInbox) Save(ctx context.Context, req Request) error {
	payload, err := json.Marshal(req.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	_, err = i.db.Exec(ctx, `
		INSERT INTO notifications (id, recipient_id, type, payload, created_at)
		VALUES ($1, $2, $3, $4, now())
	`, uuid.New(), req.RecipientID, string(req.Type), payload)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

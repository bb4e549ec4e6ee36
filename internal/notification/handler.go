package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

// NewDeliveryHandler processes TaskDeliver tasks into the inbox.
func NewDeliveryHandler(inbox Inbox) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var req Request
		if err := json.Unmarshal(t.Payload(), &req); err != nil {
			return fmt.Errorf("decode notification: %v: %w", err, asynq.SkipRetry)
		}

		if err := inbox.Save(ctx, req); err != nil {
			return err
		}

		log.Info().
			Str("type", string(req.Type)).
			Str("recipient_id", req.RecipientID.String()).
			Str("booking_id", req.Payload["booking_id"]).
			Msg("notification delivered")
		return nil
	}
}

// Package notification carries booking side effects out of the request path.
// Dispatch only enqueues; delivery happens in the worker and never feeds back
// into a booking decision.
package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type Type string

const (
	TypeBookingCreated        Type = "booking_created"
	TypeBookingAccepted       Type = "booking_accepted"
	TypeBookingDeclined       Type = "booking_declined"
	TypeBookingCounterOffered Type = "booking_counter_offered"
	TypeBookingCancelled      Type = "booking_cancelled"
	TypeBookingCompleted      Type = "booking_completed"
	TypeBookingRescheduled    Type = "booking_rescheduled"
)

// TaskDeliver is the asynq task type used for every notification.
const TaskDeliver = "notification:deliver"

type Request struct {
	Type        Type              `json:"type"`
	RecipientID uuid.UUID         `json:"recipient_id"`
	Payload     map[string]string `json:"payload"`
}

type Dispatcher interface {
	Dispatch(ctx context.Context, req Request) error
}

func NewDeliverTask(req Request) (*asynq.Task, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal notification: %w", err)
	}
	return asynq.NewTask(TaskDeliver, b), nil
}

type AsynqDispatcher struct {
	client *asynq.Client
	queue  string
}

func NewAsynqDispatcher(client *asynq.Client, queue string) *AsynqDispatcher {
	return &AsynqDispatcher{client: client, queue: queue}
}

func (d *AsynqDispatcher) Dispatch(ctx context.Context, req Request) error {
	task, err := NewDeliverTask(req)
	if err != nil {
		return err
	}

	if _, err := d.client.EnqueueContext(ctx, task, asynq.Queue(d.queue), asynq.MaxRetry(5)); err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}

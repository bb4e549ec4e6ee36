package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memInbox struct {
	saved []Request
	err   error
}

func (m *memInbox) Save(_ context.Context, req Request) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, req)
	return nil
}

func TestDeliveryHandler_SavesRequest(t *testing.T) {
	inbox := &memInbox{}
	handler := NewDeliveryHandler(inbox)

	req := Request{
		Type:        TypeBookingCreated,
		RecipientID: uuid.New(),
		Payload:     map[string]string{"booking_id": uuid.NewString()},
	}
	task, err := NewDeliverTask(req)
	require.NoError(t, err)
	assert.Equal(t, TaskDeliver, task.Type())

	require.NoError(t, handler.ProcessTask(context.Background(), task))
	require.Len(t, inbox.saved, 1)
	assert.Equal(t, req, inbox.saved[0])
}

func TestDeliveryHandler_MalformedPayloadIsNotRetried(t *testing.T) {
	handler := NewDeliveryHandler(&memInbox{})

	err := handler.ProcessTask(context.Background(), asynq.NewTask(TaskDeliver, []byte("{not json")))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestDeliveryHandler_InboxErrorIsRetried(t *testing.T) {
	handler := NewDeliveryHandler(&memInbox{err: errors.New("db down")})

	task, err := NewDeliverTask(Request{Type: TypeBookingDeclined, RecipientID: uuid.New()})
	require.NoError(t, err)

	err = handler.ProcessTask(context.Background(), task)
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

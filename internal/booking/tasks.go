package booking

import (
	"context"
	"time"

	"github.com/hibiken/asynq"

	"github.com/hackgods/vendor-booking/internal/logger"
)

// TaskCompleteElapsed is the periodic lifecycle sweep scheduled by the worker.
const TaskCompleteElapsed = "booking:complete_elapsed"

// ElapsedCompleter is implemented by *Service.
type ElapsedCompleter interface {
	CompleteElapsed(ctx context.Context) (int, error)
}

func NewCompleteElapsedTask() *asynq.Task {
	return asynq.NewTask(TaskCompleteElapsed, nil)
}

func NewCompleteElapsedHandler(svc ElapsedCompleter) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		start := time.Now()
		n, err := svc.CompleteElapsed(ctx)
		if err != nil {
			return err
		}
		logger.FromContext(ctx).Info().
			Int("completed", n).
			Dur("took", time.Since(start)).
			Msg("lifecycle sweep complete")
		return nil
	}
}

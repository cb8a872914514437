package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/service"
)

// StartSweepWorker schedules periodic re-routing of unassigned
// conversations, picking up tickets stranded while no agent was available.
// An empty cron spec disables the worker. The returned function stops the
// scheduler.
func StartSweepWorker(spec string, batchSize int, assigner *service.AssignmentService, logger *zap.Logger) (func(), error) {
	if spec == "" {
		return func() {}, nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		assigned, err := assigner.SweepUnassigned(ctx, batchSize)
		if err != nil {
			logger.Warn("sweep run failed", zap.Error(err))
			return
		}
		if assigned > 0 {
			logger.Info("sweep assigned stranded conversations", zap.Int("assigned", assigned))
		}
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	return func() {
		<-c.Stop().Done()
	}, nil
}

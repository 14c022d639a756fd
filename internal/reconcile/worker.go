package reconcile

import (
	"context"
	"fmt"
	"time"

	"buddysurf-chat/internal/config"
	"buddysurf-chat/internal/repository"
	"buddysurf-chat/pkg/logger"

	"github.com/hibiken/asynq"
)

// TaskSweepOrphans deletes conversations that ended up with no
// participant rows. The conversation-create path writes both in one
// transaction, so new orphans cannot appear; this sweep compensates for
// rows left behind by older two-step writers.
const TaskSweepOrphans = "conversations:sweep_orphans"

func NewSweepTask() *asynq.Task {
	return asynq.NewTask(TaskSweepOrphans, nil)
}

type Worker struct {
	conversations repository.ConversationRepository
	log           *logger.Logger
	// grace keeps freshly created conversations out of the sweep while
	// their participant writes may still be in flight.
	grace time.Duration
}

func NewWorker(conversations repository.ConversationRepository, grace time.Duration, log *logger.Logger) *Worker {
	return &Worker{conversations: conversations, grace: grace, log: log}
}

func (w *Worker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	cutoff := time.Now().Add(-w.grace)
	deleted, err := w.conversations.DeleteOrphaned(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("sweep orphaned conversations: %w", err)
	}
	if deleted > 0 {
		w.log.Infof("reconcile: deleted %d orphaned conversations", deleted)
	}
	return nil
}

// Runner bundles the asynq server that processes sweeps with the
// scheduler that enqueues them periodically.
type Runner struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	log       *logger.Logger
}

func NewRunner(redisCfg config.RedisConfig, reconcileCfg config.ReconcileConfig, worker *Worker, log *logger.Logger) (*Runner, error) {
	redisOpt := asynq.RedisClientOpt{
		Addr:     redisCfg.Addr,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 1,
		Queues:      map[string]int{"maintenance": 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.Errorf("reconcile task %s failed: %v", task.Type(), err)
		}),
	})

	mux := asynq.NewServeMux()
	mux.Handle(TaskSweepOrphans, worker)

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{})
	cronspec := fmt.Sprintf("@every %s", reconcileCfg.Interval)
	if _, err := scheduler.Register(cronspec, NewSweepTask(), asynq.Queue("maintenance")); err != nil {
		return nil, fmt.Errorf("register sweep schedule: %w", err)
	}

	return &Runner{server: server, scheduler: scheduler, mux: mux, log: log}, nil
}

func (r *Runner) Start() error {
	if err := r.server.Start(r.mux); err != nil {
		return err
	}
	if err := r.scheduler.Start(); err != nil {
		r.server.Shutdown()
		return err
	}
	return nil
}

func (r *Runner) Stop() {
	r.scheduler.Shutdown()
	r.server.Shutdown()
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/huangang/issuepulse/internal/config"
	"github.com/huangang/issuepulse/pkg/logger"
)

const (
	TaskTypeDetectPatterns = "patterns:detect"

	patternQueue = "patterns"
)

// PatternTask asks a worker to run pattern detection over one analysis text.
type PatternTask struct {
	AnalysisID uint      `json:"analysis_id,omitempty"`
	Text       string    `json:"text"`
	OccurredAt time.Time `json:"occurred_at"`
}

// TaskID is stable for stored analyses so a rescan never counts one twice.
func (t *PatternTask) TaskID() string {
	if t.AnalysisID != 0 {
		return fmt.Sprintf("detect-%d", t.AnalysisID)
	}
	return uuid.NewString()
}

// TaskProcessor handles a single pattern task.
type TaskProcessor func(context.Context, *PatternTask) error

// TaskQueue accepts pattern detection work.
type TaskQueue interface {
	// Enqueue hands off task and returns its id.
	Enqueue(ctx context.Context, task *PatternTask) (string, error)
	IsAsync() bool
	Close() error
}

// NewTaskQueue returns an asynq-backed queue when redis is enabled and
// reachable, and a SyncQueue otherwise.
func NewTaskQueue(cfg *config.RedisConfig) TaskQueue {
	if !cfg.Enabled {
		logger.Infof("[TaskQueue] Sync queue initialized (Redis disabled)")
		return NewSyncQueue()
	}
	queue, err := NewAsyncQueue(cfg)
	if err != nil {
		logger.Warnf("[TaskQueue] Redis unavailable, falling back to sync mode: %v", err)
		return NewSyncQueue()
	}
	logger.Infof("[TaskQueue] Async queue initialized with Redis at %s", cfg.Addr)
	return queue
}

func redisClientOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// AsyncQueue enqueues tasks into redis through asynq.
type AsyncQueue struct {
	client *asynq.Client
}

func NewAsyncQueue(cfg *config.RedisConfig) (*AsyncQueue, error) {
	redisOpt := redisClientOpt(cfg)

	inspector := asynq.NewInspector(redisOpt)
	defer inspector.Close()
	if _, err := inspector.Queues(); err != nil {
		return nil, err
	}

	return &AsyncQueue{client: asynq.NewClient(redisOpt)}, nil
}

func (q *AsyncQueue) Enqueue(ctx context.Context, task *PatternTask) (string, error) {
	payload, err := json.Marshal(task)
	if err != nil {
		return "", err
	}

	id := task.TaskID()
	info, err := q.client.EnqueueContext(ctx, asynq.NewTask(TaskTypeDetectPatterns, payload),
		asynq.Queue(patternQueue),
		asynq.TaskID(id),
		asynq.MaxRetry(3),
		asynq.Retention(24*time.Hour),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		logger.Debug().Str("task_id", id).Msg("[AsyncQueue] Task already queued")
		return id, nil
	}
	if err != nil {
		return "", err
	}

	logger.Debug().Str("task_id", info.ID).Str("queue", info.Queue).Msg("[AsyncQueue] Task enqueued")
	return info.ID, nil
}

func (q *AsyncQueue) IsAsync() bool { return true }

func (q *AsyncQueue) Close() error {
	return q.client.Close()
}

// ErrNoProcessor is returned by a SyncQueue that has nothing to run tasks with.
var ErrNoProcessor = errors.New("sync queue has no processor")

// SyncQueue runs tasks in-process when no redis is configured.
type SyncQueue struct {
	processor TaskProcessor
	timeout   time.Duration
}

func NewSyncQueue() *SyncQueue {
	return &SyncQueue{timeout: 30 * time.Second}
}

func (q *SyncQueue) SetProcessor(processor TaskProcessor) {
	q.processor = processor
}

// Enqueue processes the task in a goroutine detached from the caller's
// cancellation so the HTTP response is not held up.
func (q *SyncQueue) Enqueue(ctx context.Context, task *PatternTask) (string, error) {
	id := task.TaskID()
	if q.processor == nil {
		return "", ErrNoProcessor
	}

	go func() {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), q.timeout)
		defer cancel()
		if err := q.processor(runCtx, task); err != nil {
			logger.Errorf("[SyncQueue] Task %s failed: %v", id, err)
		}
	}()
	return id, nil
}

// Run processes task on the calling goroutine. The pattern scanner uses it
// so a scan finishes before its watermark moves.
func (q *SyncQueue) Run(ctx context.Context, task *PatternTask) error {
	if q.processor == nil {
		return ErrNoProcessor
	}
	return q.processor(ctx, task)
}

func (q *SyncQueue) IsAsync() bool { return false }

func (q *SyncQueue) Close() error { return nil }

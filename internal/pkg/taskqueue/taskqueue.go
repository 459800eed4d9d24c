// Package taskqueue is a small Redis-backed job queue: tasks are stored
// as JSON with a status, their ids pushed on a pending list, and a worker
// pops ids and dispatches them to handlers by task type.
package taskqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	redisc "github.com/sublimart/studio/internal/pkg/redis"
)

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// ErrTaskNotFound is returned for unknown or expired task ids.
var ErrTaskNotFound = errors.New("task not found")

// Task is a unit of background work stored in Redis.
type Task struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Status    TaskStatus      `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	DedupKey  string          `json:"dedupKey,omitempty"`
	Attempts  int             `json:"attempts"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Handler processes one task and returns a JSON-encodable result.
type Handler func(ctx context.Context, task *Task) (any, error)

const (
	taskTTL     = 7 * 24 * time.Hour
	popTimeout  = 5 * time.Second
	maxAttempts = 3
)

var (
	keyPending = redisc.Key("tasks", "pending")
	keyIndex   = redisc.Key("tasks", "index") // sorted set: score=created_at
)

func taskKey(id string) string       { return redisc.Key("task", id) }
func dedupKey(taskType string) string { return redisc.Key("tasks", "dedup", taskType) }

// Service manages the queue.
type Service struct {
	rc     *redisc.Client
	logger *zap.Logger
}

type ServiceOption func(*Service)

func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("TaskQueue")
		}
	}
}

func NewService(rc *redisc.Client, opts ...ServiceOption) *Service {
	s := &Service{rc: rc, logger: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Enqueue stores a pending task and pushes it for the worker. While a
// task with the same dedupKey is unfinished, that task is returned instead.
func (s *Service) Enqueue(ctx context.Context, taskType string, payload any, dedup string) (*Task, error) {
	if dedup != "" {
		existing, err := s.rc.Raw().HGet(ctx, dedupKey(taskType), dedup).Result()
		if err == nil && existing != "" {
			if task, err := s.GetByID(ctx, existing); err == nil {
				return task, nil
			}
		}
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	now := time.Now()
	task := &Task{
		ID:        uuid.New().String(),
		Type:      taskType,
		Payload:   payloadBytes,
		Status:    TaskPending,
		DedupKey:  dedup,
		CreatedAt: now,
		UpdatedAt: now,
	}
	data, err := json.Marshal(task)
	if err != nil {
		return nil, err
	}

	pipe := s.rc.Raw().TxPipeline()
	pipe.Set(ctx, taskKey(task.ID), data, taskTTL)
	pipe.ZAdd(ctx, keyIndex, redis.Z{Score: float64(now.UnixMilli()), Member: task.ID})
	if dedup != "" {
		pipe.HSet(ctx, dedupKey(taskType), dedup, task.ID)
		pipe.Expire(ctx, dedupKey(taskType), taskTTL)
	}
	pipe.LPush(ctx, keyPending, task.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return task, nil
}

// GetByID retrieves a task by its ID.
func (s *Service) GetByID(ctx context.Context, id string) (*Task, error) {
	var task Task
	if err := s.rc.GetJSON(ctx, taskKey(id), &task); err != nil {
		if errors.Is(err, redisc.ErrNil) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return &task, nil
}

func (s *Service) save(ctx context.Context, task *Task) error {
	task.UpdatedAt = time.Now()
	return s.rc.SetJSON(ctx, taskKey(task.ID), task, taskTTL)
}

func (s *Service) finish(ctx context.Context, task *Task, result any, runErr error) error {
	if runErr != nil {
		task.Error = runErr.Error()
		if task.Attempts < maxAttempts {
			task.Status = TaskPending
			if err := s.save(ctx, task); err != nil {
				return err
			}
			return s.rc.Raw().LPush(ctx, keyPending, task.ID).Err()
		}
		task.Status = TaskFailed
	} else {
		task.Status = TaskCompleted
		task.Error = ""
		if result != nil {
			task.Result, _ = json.Marshal(result)
		}
	}
	if task.DedupKey != "" {
		s.rc.Raw().HDel(ctx, dedupKey(task.Type), task.DedupKey)
	}
	return s.save(ctx, task)
}

// List returns tasks newest first, optionally filtered by type and status.
func (s *Service) List(ctx context.Context, page, size int, taskType string, status TaskStatus) ([]*Task, int64, error) {
	ids, err := s.rc.Raw().ZRevRange(ctx, keyIndex, 0, -1).Result()
	if err != nil {
		return nil, 0, err
	}
	var tasks []*Task
	for _, id := range ids {
		task, err := s.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, ErrTaskNotFound) {
				s.rc.Raw().ZRem(ctx, keyIndex, id)
			}
			continue
		}
		if (taskType != "" && task.Type != taskType) || (status != "" && task.Status != status) {
			continue
		}
		tasks = append(tasks, task)
	}

	total := int64(len(tasks))
	start := (page - 1) * size
	if start < 0 || start >= len(tasks) {
		return []*Task{}, total, nil
	}
	end := min(start+size, len(tasks))
	return tasks[start:end], total, nil
}

// Run pops tasks until ctx is done, dispatching each to the handler of
// its type. Tasks without a handler fail immediately.
func (s *Service) Run(ctx context.Context, handlers map[string]Handler) {
	for ctx.Err() == nil {
		res, err := s.rc.Raw().BRPop(ctx, popTimeout, keyPending).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				s.logger.Warn("pop failed", zap.Error(err))
				time.Sleep(time.Second)
			}
			continue
		}
		s.process(ctx, res[1], handlers)
	}
}

func (s *Service) process(ctx context.Context, id string, handlers map[string]Handler) {
	task, err := s.GetByID(ctx, id)
	if err != nil {
		s.logger.Warn("dropping task", zap.String("id", id), zap.Error(err))
		return
	}
	h, ok := handlers[task.Type]
	if !ok {
		task.Attempts = maxAttempts
		_ = s.finish(ctx, task, nil, fmt.Errorf("no handler for %q", task.Type))
		return
	}
	task.Status = TaskRunning
	task.Attempts++
	if err := s.save(ctx, task); err != nil {
		s.logger.Warn("mark running failed", zap.String("id", id), zap.Error(err))
	}

	result, runErr := h(ctx, task)
	if runErr != nil {
		s.logger.Warn("task failed", zap.String("id", id), zap.String("type", task.Type),
			zap.Int("attempt", task.Attempts), zap.Error(runErr))
	}
	if err := s.finish(ctx, task, result, runErr); err != nil {
		s.logger.Warn("store task result failed", zap.String("id", id), zap.Error(err))
	}
}

// DeleteFinished removes completed and failed tasks created before cutoff.
func (s *Service) DeleteFinished(ctx context.Context, cutoff time.Time) (int, error) {
	ids, err := s.rc.Raw().ZRangeByScore(ctx, keyIndex, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprint(cutoff.UnixMilli()),
	}).Result()
	if err != nil {
		return 0, err
	}
	removed := 0
	pipe := s.rc.Raw().TxPipeline()
	for _, id := range ids {
		task, err := s.GetByID(ctx, id)
		if err == nil && task.Status != TaskCompleted && task.Status != TaskFailed {
			continue
		}
		pipe.Del(ctx, taskKey(id))
		pipe.ZRem(ctx, keyIndex, id)
		removed++
	}
	if removed == 0 {
		return 0, nil
	}
	_, err = pipe.Exec(ctx)
	return removed, err
}

// DecodePayload unmarshals the task payload into v.
func (t *Task) DecodePayload(v any) error {
	if err := json.Unmarshal(t.Payload, v); err != nil {
		return fmt.Errorf("task %s payload: %w", t.ID, err)
	}
	return nil
}

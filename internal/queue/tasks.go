package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"docchat-service/internal/logger"
	"docchat-service/models"
)

const TaskLoadDocuments = "documents:load"

// loadQueue is the only queue the server polls.
const loadQueue = "documents"

var queueWeights = map[string]int{loadQueue: 1}

type LoadPayload struct {
	TenantID string `json:"tenant_id"`
}

// NewLoadTask creates a task that loads a tenant's documents.
func NewLoadTask(tenantID string) (*asynq.Task, error) {
	payload, err := json.Marshal(LoadPayload{TenantID: tenantID})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TaskLoadDocuments, payload, loadTaskOptions()...), nil
}

func loadTaskOptions() []asynq.Option {
	return []asynq.Option{
		asynq.MaxRetry(3),
		asynq.Timeout(10 * time.Minute),
		asynq.Queue(loadQueue),
	}
}

// Loader loads a tenant and starts its session.
type Loader interface {
	Load(ctx context.Context, tenantID string) (*models.LoadResult, error)
}

// TaskProcessor handles queued tasks.
type TaskProcessor struct {
	loader Loader
}

func NewTaskProcessor(loader Loader) *TaskProcessor {
	return &TaskProcessor{loader: loader}
}

func (p *TaskProcessor) ProcessLoad(ctx context.Context, t *asynq.Task) error {
	var payload LoadPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	logger.Info("Processing document load", "tenant_id", payload.TenantID)

	result, err := p.loader.Load(ctx, payload.TenantID)
	if err != nil {
		// Retrying will not stage documents or fix the tenant ID.
		if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrInvalidInput) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	logger.Info("Document load completed", "tenant_id", payload.TenantID,
		"chunks", result.Chunks, "index_built", result.IndexBuilt)
	return nil
}

// Queue runs load tasks through Redis with an in-process worker.
type Queue struct {
	client *asynq.Client
	server *asynq.Server
	mux    *asynq.ServeMux
}

// RedisConnOpt converts go-redis options for asynq.
func RedisConnOpt(opt *redis.Options) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Network:   opt.Network,
		Addr:      opt.Addr,
		Username:  opt.Username,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}
}

func NewQueue(redisOpt asynq.RedisConnOpt, processor *TaskProcessor, concurrency int) *Queue {
	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: concurrency,
			Queues:      queueWeights,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskLoadDocuments, processor.ProcessLoad)

	return &Queue{
		client: asynq.NewClient(redisOpt),
		server: server,
		mux:    mux,
	}
}

// Start runs the worker in the background.
func (q *Queue) Start() error {
	return q.server.Start(q.mux)
}

// EnqueueLoad schedules a load and returns the task ID.
func (q *Queue) EnqueueLoad(ctx context.Context, tenantID string) (string, error) {
	task, err := NewLoadTask(tenantID)
	if err != nil {
		return "", err
	}

	info, err := q.client.EnqueueContext(ctx, task)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue load: %w", err)
	}
	return info.ID, nil
}

// Shutdown stops the worker and closes the client.
func (q *Queue) Shutdown() error {
	q.server.Shutdown()
	return q.client.Close()
}

package tasks

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Alexjoshwa/agri-1.0/internal/services"
)

// TaskType defines the type of a background task.
const (
	TypePriceRefresh       = "prices:refresh"
	TypeOrderThreadsRepair = "orders:threads:repair"
)

// IAsynqClient is the part of *asynq.Client used to enqueue work.
type IAsynqClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// --- Task Client (Enqueuing tasks) ---

func redisOpt(rdb *redis.Client) asynq.RedisClientOpt {
	opts := rdb.Options()
	return asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}
}

func NewClient(rdb *redis.Client) *asynq.Client {
	return asynq.NewClient(redisOpt(rdb))
}

// NewPriceRefreshTask builds a price refresh task with a unique id so two
// explicit refresh intents are never collapsed into one.
func NewPriceRefreshTask() *asynq.Task {
	return asynq.NewTask(TypePriceRefresh, nil, asynq.TaskID(uuid.NewString()), asynq.MaxRetry(3))
}

// NewOrderThreadsRepairTask builds the sweep that gives every order its conversation.
func NewOrderThreadsRepairTask() *asynq.Task {
	return asynq.NewTask(TypeOrderThreadsRepair, nil, asynq.TaskID(uuid.NewString()), asynq.MaxRetry(3))
}

// --- Task Server (Processing tasks) ---

// TaskProcessor handles the processing of tasks.
// It holds dependencies needed by task handlers.
type TaskProcessor struct {
	priceService        services.IPriceService
	orderService        services.IOrderService
	conversationService services.IConversationService
	log                 *zap.SugaredLogger
}

func NewTaskProcessor(
	priceService services.IPriceService,
	orderService services.IOrderService,
	conversationService services.IConversationService,
	log *zap.SugaredLogger,
) *TaskProcessor {
	return &TaskProcessor{
		priceService:        priceService,
		orderService:        orderService,
		conversationService: conversationService,
		log:                 log,
	}
}

// SetupServer configures an Asynq server and its handler mux. It returns nil
// when the process does not run background work.
func SetupServer(rdb *redis.Client, processor *TaskProcessor, isBgWorker bool) (*asynq.Server, *asynq.ServeMux) {
	if !isBgWorker {
		processor.log.Infow("Running in API mode, no task server started")
		return nil, nil
	}

	srv := asynq.NewServer(
		redisOpt(rdb),
		asynq.Config{
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				processor.log.Errorw("Task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypePriceRefresh, processor.HandlePriceRefreshTask)
	mux.HandleFunc(TypeOrderThreadsRepair, processor.HandleOrderThreadsRepairTask)
	processor.log.Infow("Registered background task handlers", "types", []string{TypePriceRefresh, TypeOrderThreadsRepair})

	return srv, mux
}

// --- Task Handlers ---

// HandlePriceRefreshTask runs the price feed simulator once.
func (p *TaskProcessor) HandlePriceRefreshTask(ctx context.Context, t *asynq.Task) error {
	quotes, err := p.priceService.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("price refresh: %w", err)
	}
	p.log.Infow("Price refresh task processed", "count", len(quotes))
	return nil
}

// HandleOrderThreadsRepairTask ensures a conversation for every stored order.
// EnsureForOrder is idempotent, so orders that already have one are untouched.
func (p *TaskProcessor) HandleOrderThreadsRepairTask(ctx context.Context, t *asynq.Task) error {
	var failed int
	for _, order := range p.orderService.List(ctx) {
		if _, err := p.conversationService.EnsureForOrder(ctx, order, ""); err != nil {
			failed++
			p.log.Warnw("Could not ensure order conversation", "orderID", order.ID, "error", err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("order thread repair: %d orders failed", failed)
	}
	return nil
}

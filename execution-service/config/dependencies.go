package config

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/grupo99/execution-system/execution-service/application"
	"github.com/grupo99/execution-system/execution-service/domain"
	"github.com/grupo99/execution-system/execution-service/handlers"
	"github.com/grupo99/execution-system/execution-service/infrastructure"
	"github.com/grupo99/execution-system/shared/events"
	sharedinfra "github.com/grupo99/execution-system/shared/infrastructure"
	"github.com/grupo99/execution-system/shared/logging"
	"github.com/grupo99/execution-system/shared/resilience"
	"github.com/grupo99/execution-system/shared/saga"
	"github.com/grupo99/execution-system/shared/telemetry"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Dependencies struct {
	Logger *zap.SugaredLogger

	// Storage
	DB                  *sqlx.DB
	Redis               *redis.Client
	ExecutionRepository domain.ExecutionRepository

	// Outbound
	PublisherBreaker *resilience.CircuitBreaker
	EventPublisher   *infrastructure.ExecutionEventPublisher

	// Use Cases
	HandleOrderCreated   *application.HandleOrderCreated
	HandleOrderCancelled *application.HandleOrderCancelled
	HandleBudgetApproved *application.HandleBudgetApproved
	HandleBudgetRejected *application.HandleBudgetRejected
	UseCases             handlers.UseCases

	// HTTP Handlers
	ExecutionHandlers *handlers.ExecutionHandlers

	// Event Handlers
	ExecutionEventHandlers *handlers.ExecutionEventHandlers
	Router                 *saga.Router
	OrderSubscriber        *sharedinfra.SQSEventSubscriber
	BillingSubscriber      *sharedinfra.SQSEventSubscriber

	// Telemetry
	Telemetry         *telemetry.Telemetry
	TelemetryShutdown func(context.Context) error
}

func BuildDependencies(ctx context.Context, config *Config) (*Dependencies, error) {
	deps := &Dependencies{}

	logger, err := logging.New(config.ServiceName, config.Env, config.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	deps.Logger = logger

	// Initialize telemetry first
	if config.Telemetry.Enabled {
		telConfig := telemetry.ExecutionServiceConfig.
			WithOTLPEndpoint(config.Telemetry.OTLPEndpoint).
			WithEnvironment(config.Env).
			WithSampleRatio(config.Telemetry.SampleRatio)
		tel, telemetryShutdown, err := telemetry.InitTelemetry(ctx, telConfig)
		if err != nil {
			logger.Warnw("failed to initialize telemetry, continuing without it", "error", err)
		} else {
			deps.Telemetry = tel
			deps.TelemetryShutdown = telemetryShutdown
		}
	}

	if err := deps.buildStore(ctx, config); err != nil {
		_ = deps.Close()
		return nil, err
	}

	if err := deps.buildPublisher(ctx, config); err != nil {
		_ = deps.Close()
		return nil, err
	}

	deps.buildUseCases()

	if err := deps.buildConsumers(ctx, config); err != nil {
		_ = deps.Close()
		return nil, err
	}

	return deps, nil
}

func (d *Dependencies) buildStore(ctx context.Context, config *Config) error {
	if config.StoreDriver == StoreDriverMemory {
		d.Logger.Warnw("using in-memory execution store, data is lost on restart")
		d.ExecutionRepository = infrastructure.NewMemoryExecutionRepository()
		return nil
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", config.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	d.DB = db

	if config.Database.AutoMigrate {
		if err := infrastructure.Migrate(ctx, db); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	d.ExecutionRepository = infrastructure.NewPostgresExecutionRepository(db)
	return nil
}

func (d *Dependencies) buildPublisher(ctx context.Context, config *Config) error {
	snsClient, err := sharedinfra.NewSNSClient(ctx, sharedinfra.AWSClientConfig{
		Region:   config.AWS.Region,
		Endpoint: config.AWS.EndpointSNS,
	})
	if err != nil {
		return fmt.Errorf("failed to create SNS client: %w", err)
	}

	d.PublisherBreaker = resilience.NewCircuitBreaker("execution-events-publisher", config.Breaker(),
		resilience.WithStateChangeHook(func(name string, from, to resilience.State) {
			d.Logger.Warnw("circuit breaker state changed", "breaker", name, "from", from, "to", to)
		}),
	)

	resilient := resilience.NewResilientPublisher(
		sharedinfra.NewSNSEventPublisher(snsClient, config.AWS.ExecutionTopicArn),
		d.PublisherBreaker,
		config.PublisherRetry(),
		d.Logger,
		resilience.WithInformational(events.ExecutionDiagnosisCompletedEvent),
	)
	d.EventPublisher = infrastructure.NewExecutionEventPublisher(resilient)
	return nil
}

func (d *Dependencies) buildUseCases() {
	repo := d.ExecutionRepository

	d.HandleOrderCreated = application.NewHandleOrderCreated(repo, d.Logger)
	d.HandleOrderCancelled = application.NewHandleOrderCancelled(repo, d.EventPublisher, d.Logger)
	d.HandleBudgetApproved = application.NewHandleBudgetApproved(repo, d.Logger)
	d.HandleBudgetRejected = application.NewHandleBudgetRejected(repo, d.Logger)

	d.UseCases = handlers.UseCases{
		CreateExecution:  application.NewCreateExecution(repo, d.Logger),
		GetExecution:     application.NewGetExecution(repo),
		ListExecutions:   application.NewListExecutions(repo),
		StartExecution:   application.NewStartExecution(repo, d.Logger),
		FinishExecution:  application.NewFinishExecution(repo, d.EventPublisher, d.Logger),
		CancelExecution:  application.NewCancelExecution(repo, d.Logger),
		DeleteExecution:  application.NewDeleteExecution(repo, d.Logger),
		RecordDiagnosis:  application.NewRecordDiagnosis(repo, d.EventPublisher, d.Logger),
		AddTask:          application.NewAddTask(repo, d.Logger),
		ChangeTaskStatus: application.NewChangeTaskStatus(repo, d.Logger),
		AddPartUsage:     application.NewAddPartUsage(repo, d.Logger),
	}

	d.ExecutionHandlers = handlers.NewExecutionHandlers(d.UseCases, d.Logger)
	d.ExecutionEventHandlers = handlers.NewExecutionEventHandlers(
		d.HandleOrderCreated,
		d.HandleOrderCancelled,
		d.HandleBudgetApproved,
		d.HandleBudgetRejected,
	)
}

func (d *Dependencies) buildConsumers(ctx context.Context, config *Config) error {
	sqsClient, err := sharedinfra.NewSQSClient(ctx, sharedinfra.AWSClientConfig{
		Region:   config.AWS.Region,
		Endpoint: config.AWS.EndpointSQS,
	})
	if err != nil {
		return fmt.Errorf("failed to create SQS client: %w", err)
	}

	sink := sharedinfra.NewSQSDeadLetterSink(sqsClient, map[string]string{
		string(handlers.OrderEventsTopic.DeadLetter()):   config.AWS.OrderDLTQueueURL,
		string(handlers.BillingEventsTopic.DeadLetter()): config.AWS.BillingDLTQueueURL,
	})

	opts := []saga.RouterOption{
		saga.WithNonRetryable(domain.IsInvalidArgument),
		saga.WithNonRetryable(domain.IsStateConflict),
	}
	if config.Redis.Enabled {
		d.Redis = sharedinfra.NewRedisClient(config.Redis.Addr, config.Redis.Password, config.Redis.DB)
		if err := d.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		opts = append(opts, saga.WithInbox(sharedinfra.NewRedisInbox(d.Redis, config.ServiceName, config.Redis.TTL)))
	}

	d.Router = saga.NewRouter(saga.NewDeadLetterRouter(sink, d.Logger), config.RedeliveryPolicy(), d.Logger, opts...)
	d.ExecutionEventHandlers.Register(d.Router)

	d.OrderSubscriber = sharedinfra.NewSQSEventSubscriber(sqsClient, config.AWS.OrderQueueURL, d.Router, d.Logger,
		sharedinfra.WithChannel(handlers.OrderLifecycleChannel, handlers.OrderEventsTopic),
		sharedinfra.WithWorkers(config.Consumer.OrderWorkers),
		sharedinfra.WithVisibilityTimeout(config.Consumer.VisibilityTimeout),
		sharedinfra.WithWaitTime(config.Consumer.WaitTimeSeconds),
	)
	d.BillingSubscriber = sharedinfra.NewSQSEventSubscriber(sqsClient, config.AWS.BillingQueueURL, d.Router, d.Logger,
		sharedinfra.WithChannel(handlers.BillingLifecycleChannel, handlers.BillingEventsTopic),
		sharedinfra.WithWorkers(config.Consumer.BillingWorkers),
		sharedinfra.WithVisibilityTimeout(config.Consumer.VisibilityTimeout),
		sharedinfra.WithWaitTime(config.Consumer.WaitTimeSeconds),
	)

	return nil
}

// Close closes all dependencies
func (d *Dependencies) Close() error {
	var errs []error

	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
	}

	if d.TelemetryShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.TelemetryShutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to flush telemetry: %w", err))
		}
	}

	if d.Logger != nil {
		// stderr sync fails on some terminals
		if err := d.Logger.Sync(); err != nil {
			log.Printf("failed to sync logger: %v", err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing dependencies: %v", errs)
	}

	return nil
}

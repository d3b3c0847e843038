package app

import (
	"context"
	"fmt"
	"io"
	"net/http"

	server "github.com/admin/loventia/discover/internal/adapters/primary/http"
	discoverController "github.com/admin/loventia/discover/internal/adapters/primary/http/controllers/discover"
	entitlementsController "github.com/admin/loventia/discover/internal/adapters/primary/http/controllers/entitlements"
	healthcheckController "github.com/admin/loventia/discover/internal/adapters/primary/http/controllers/healthcheck"
	visibilityController "github.com/admin/loventia/discover/internal/adapters/primary/http/controllers/visibility"
	"github.com/admin/loventia/discover/internal/adapters/primary/http/middlewares"
	kafkaConsumerAdapter "github.com/admin/loventia/discover/internal/adapters/primary/kafka"
	kafkaHandlers "github.com/admin/loventia/discover/internal/adapters/primary/kafka/handlers"
	kafkaAdapter "github.com/admin/loventia/discover/internal/adapters/secondary/kafka"
	"github.com/admin/loventia/discover/internal/adapters/secondary/storage/inmemory"
	"github.com/admin/loventia/discover/internal/adapters/secondary/storage/pg"
	redisAdapter "github.com/admin/loventia/discover/internal/adapters/secondary/storage/redis"
	s3Adapter "github.com/admin/loventia/discover/internal/adapters/secondary/storage/s3"
	"github.com/admin/loventia/discover/internal/pkg/ratelimit"
	"github.com/admin/loventia/discover/internal/ports/cache"
	"github.com/admin/loventia/discover/internal/ports/kafka"
	"github.com/admin/loventia/discover/internal/ports/repository"
	"github.com/admin/loventia/discover/internal/ports/storage"
	actionRepo "github.com/admin/loventia/discover/internal/repository/action"
	userRepo "github.com/admin/loventia/discover/internal/repository/user"
	jobScheduler "github.com/admin/loventia/discover/internal/services/jobs"
	billingUsecase "github.com/admin/loventia/discover/internal/usecases/billing"
	discoverUsecase "github.com/admin/loventia/discover/internal/usecases/discover"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type Dependencies struct {
	// Closers закрываются при остановке в обратном порядке
	Closers        []namedCloser
	HTTPServer     *http.Server
	KafkaConsumers map[string]*kafkaConsumerAdapter.Consumer
	JobScheduler   *jobScheduler.Scheduler
}

type namedCloser struct {
	name   string
	closer io.Closer
}

// initDependencies инициализирует все зависимости приложения
func (a *App) initDependencies(ctx context.Context) (*Dependencies, error) {
	deps := &Dependencies{}

	repos, err := a.initRepositories(ctx, deps)
	if err != nil {
		return nil, fmt.Errorf("failed to init repositories: %w", err)
	}

	ext := a.initExternalServices(ctx, deps)

	producers := a.initKafkaProducers(deps)
	var publisher kafka.IActionPublisher
	if prod, ok := producers[kafkaAdapter.ActionsConfigName]; ok {
		publisher = kafkaAdapter.NewActionPublisher(prod)
	}

	discoverSvc := discoverUsecase.New(
		repos.User,
		repos.Action,
		ext.Cache,  // может быть nil
		publisher,  // может быть nil
		ext.Photos, // может быть nil
		discoverUsecase.Config{
			RewindMax:          a.Cfg.Discover.RewindMax,
			DefaultLimit:       a.Cfg.Discover.DefaultLimit,
			MaxLimit:           a.Cfg.Discover.MaxLimit,
			CandidateScanLimit: a.Cfg.Discover.CandidateScanLimit,
			IdempotencyTTL:     a.Cfg.Discover.IdempotencyTTL,
			Quota:              a.Cfg.Discover.QuotaPolicy(),
		},
		a.Log,
	)

	billingSvc := billingUsecase.New(repos.User, billingUsecase.Config{
		Quota:            a.Cfg.Discover.QuotaPolicy(),
		ExpiryBatch:      a.Cfg.Jobs.ExpiryBatch,
		ExpiryRatePerSec: a.Cfg.Jobs.ExpiryRatePerSec,
	}, a.Log)

	deps.KafkaConsumers = a.initKafkaConsumers(billingSvc)

	bucketStore := a.initBucketStore(ext.Redis)
	deps.HTTPServer, err = a.initHTTP(repos, ext, bucketStore, discoverSvc, billingSvc)
	if err != nil {
		return nil, fmt.Errorf("failed to init http: %w", err)
	}

	deps.JobScheduler = a.initJobScheduler(billingSvc, discoverSvc, bucketStore)

	return deps, nil
}

// repositories содержит инициализированные репозитории
type repositories struct {
	User   repository.IUserRepo
	Action repository.IActionRepo
	// Ping проверка хранилища для /ready; nil для in-memory
	Ping healthcheckController.Pinger
}

// initRepositories выбирает хранилище: postgres или in-memory
func (a *App) initRepositories(ctx context.Context, deps *Dependencies) (*repositories, error) {
	if a.Cfg.Storage == StorageMemory {
		a.Log.Warn("in-memory storage enabled - data is lost on restart")
		store := inmemory.NewStore()
		return &repositories{
			User:   inmemory.NewUserRepo(store, a.Log),
			Action: inmemory.NewActionRepo(store, a.Log),
		}, nil
	}

	db, err := a.Cfg.Postgres.NewConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	deps.Closers = append(deps.Closers, namedCloser{name: "postgres", closer: db})
	a.Log.Info("postgres connected successfully")

	if a.Cfg.Postgres.MigrateOnStart {
		if err := pg.RunMigrations(ctx, db, a.Log); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	persistenceLayer := pg.NewDB(db)
	return &repositories{
		User:   userRepo.New(persistenceLayer, a.Log),
		Action: actionRepo.New(persistenceLayer, a.Log),
		Ping:   persistenceLayer,
	}, nil
}

// externalServices содержит внешние сервисы (опциональные)
type externalServices struct {
	Redis  *redis.Client
	Cache  cache.Cache
	Photos storage.IPhotoURLResolver
}

// initExternalServices инициализирует Redis и S3; ошибки не фатальны
func (a *App) initExternalServices(ctx context.Context, deps *Dependencies) *externalServices {
	services := &externalServices{}

	// Redis - опциональный
	if a.Cfg.Redis != nil && a.Cfg.Redis.Enabled {
		rdb, err := a.Cfg.Redis.NewConnection(ctx)
		if err != nil {
			a.Log.Warn("failed to init redis, continuing without it", "error", err)
		} else {
			services.Redis = rdb
			services.Cache = redisAdapter.NewClient(rdb, a.Cfg.Redis.KeyPrefix)
			deps.Closers = append(deps.Closers, namedCloser{name: "redis", closer: rdb})
			a.Log.Info("redis connected successfully")
		}
	}

	// Без Redis ключи идемпотентности живут в памяти процесса
	if services.Cache == nil {
		services.Cache = inmemory.NewCache()
	}

	// S3 - опциональный
	if a.Cfg.S3 != nil && a.Cfg.S3.Enabled {
		minioClient, err := a.Cfg.S3.NewClient(ctx)
		if err != nil {
			a.Log.Warn("failed to init s3, serving plain upload paths", "error", err)
		} else {
			client := s3Adapter.NewClient(minioClient, a.Cfg.S3.Bucket, a.Log)
			services.Photos = s3Adapter.NewPhotoResolver(client, a.Cfg.S3.PresignTTL(), a.Log)
			a.Log.Info("s3 photo resolver enabled", "bucket", a.Cfg.S3.Bucket)
		}
	}

	return services
}

// initKafkaProducers создаёт producers для конфигов без consumer group
func (a *App) initKafkaProducers(deps *Dependencies) map[string]*kafkaAdapter.Producer {
	producers := make(map[string]*kafkaAdapter.Producer)

	for _, kafkaCfg := range a.Cfg.Kafka.List {
		if kafkaCfg.Config.ConsumerGroup != "" {
			continue
		}
		prod, err := kafkaAdapter.NewProducer(kafkaCfg.Config, a.Log)
		if err != nil {
			a.Log.Warn("failed to create kafka producer", "error", err, "name", kafkaCfg.Name)
			continue
		}
		producers[kafkaCfg.Name] = prod
		deps.Closers = append(deps.Closers, namedCloser{name: "kafka producer " + kafkaCfg.Name, closer: prod})
	}

	return producers
}

// initKafkaConsumers создаёт consumers для конфигов с consumer group
func (a *App) initKafkaConsumers(billing *billingUsecase.Service) map[string]*kafkaConsumerAdapter.Consumer {
	consumers := make(map[string]*kafkaConsumerAdapter.Consumer)

	for _, kafkaCfg := range a.Cfg.Kafka.List {
		if kafkaCfg.Config.ConsumerGroup == "" {
			continue
		}

		handler := a.createHandlerForTopic(kafkaCfg.Name, billing)
		if handler == nil {
			a.Log.Warn("no handler for kafka topic, skipping consumer", "name", kafkaCfg.Name)
			continue
		}

		consumer, err := kafkaConsumerAdapter.NewConsumer(kafkaCfg.Config, handler, a.Log)
		if err != nil {
			a.Log.Warn("failed to create kafka consumer", "error", err, "name", kafkaCfg.Name)
			continue
		}
		consumers[kafkaCfg.Name] = consumer
	}

	return consumers
}

// createHandlerForTopic создаёт handler для указанного топика Kafka
func (a *App) createHandlerForTopic(topicName string, billing *billingUsecase.Service) kafka.MessageHandler {
	switch topicName {
	case kafkaAdapter.BillingConfigName:
		return kafkaHandlers.NewBillingEventHandler(billing, a.Log)
	default:
		return nil
	}
}

// initBucketStore хранилище окон rate limit: redis (общий для реплик) или память процесса
func (a *App) initBucketStore(rdb *redis.Client) ratelimit.BucketStore {
	if a.Cfg.RateLimit.Backend == RateLimitBackendRedis {
		if rdb != nil {
			return redisAdapter.NewBucketStore(rdb, a.Cfg.Redis.KeyPrefix+"ratelimit:")
		}
		a.Log.Warn("redis unavailable, rate limit falls back to in-process buckets")
	}
	return ratelimit.NewMemoryStore()
}

// newRateLimit middleware для группы маршрутов; nil если лимит выключен
func (a *App) newRateLimit(scope string, limit int, store ratelimit.BucketStore, keyFunc ratelimit.KeyFunc) (gin.HandlerFunc, error) {
	if limit <= 0 {
		return nil, nil
	}
	limiter, err := ratelimit.New(ratelimit.Config{
		Scope:  scope,
		Limit:  limit,
		Window: a.Cfg.RateLimit.Window,
	}, store)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s rate limiter: %w", scope, err)
	}
	return middlewares.RateLimit(limiter, keyFunc, a.Log), nil
}

// initHTTP инициализирует HTTP сервер и контроллеры
func (a *App) initHTTP(
	repos *repositories,
	ext *externalServices,
	bucketStore ratelimit.BucketStore,
	discoverSvc *discoverUsecase.Service,
	billingSvc *billingUsecase.Service,
) (*http.Server, error) {
	keyFunc := ratelimit.DefaultKeyFunc(a.Cfg.RateLimit.KeyHeader, a.Cfg.RateLimit.TrustXFF)

	discoverLimit, err := a.newRateLimit("discover", a.Cfg.RateLimit.DiscoverLimit, bucketStore, keyFunc)
	if err != nil {
		return nil, err
	}
	actionsLimit, err := a.newRateLimit("actions", a.Cfg.RateLimit.ActionsLimit, bucketStore, keyFunc)
	if err != nil {
		return nil, err
	}
	visibilityLimit, err := a.newRateLimit("visibility", a.Cfg.RateLimit.VisibilityLimit, bucketStore, keyFunc)
	if err != nil {
		return nil, err
	}

	auth := middlewares.Auth(a.Cfg.Auth, a.Log)

	readiness := map[string]healthcheckController.Pinger{}
	if repos.Ping != nil {
		readiness["database"] = repos.Ping
	}
	if ext.Redis != nil {
		rdb := ext.Redis
		readiness["redis"] = healthcheckController.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}

	controllers := []server.Controller{
		healthcheckController.New(readiness, a.Log),
		discoverController.New(discoverSvc, auth, discoverLimit, actionsLimit, a.Log),
		visibilityController.New(discoverSvc, auth, visibilityLimit, a.Log),
		entitlementsController.New(billingSvc, auth, a.Log),
	}

	return server.NewHTTPServer(a.Cfg.Server, a.Log, controllers...), nil
}

// initJobScheduler инициализирует планировщик джоб
func (a *App) initJobScheduler(
	billingSvc *billingUsecase.Service,
	discoverSvc *discoverUsecase.Service,
	bucketStore ratelimit.BucketStore,
) *jobScheduler.Scheduler {
	if !a.Cfg.Jobs.Enabled {
		a.Log.Info("job scheduler disabled")
		return nil
	}

	scheduler := jobScheduler.NewScheduler(a.Log)

	scheduler.Register(jobScheduler.NewEntitlementExpirer(billingSvc, a.Cfg.Jobs.EntitlementExpiry, a.Log))
	a.Log.Info("entitlement expirer job registered")

	scheduler.Register(jobScheduler.NewVisibilityResumer(discoverSvc, a.Cfg.Jobs.VisibilityResume, a.Cfg.Jobs.VisibilityResumeBatch, a.Log))
	a.Log.Info("visibility resumer job registered")

	// Redis истекает ключи сам, чистить нужно только память процесса
	if _, ok := bucketStore.(*ratelimit.MemoryStore); ok {
		scheduler.Register(jobScheduler.NewBucketSweeper(bucketStore, a.Cfg.Jobs.RateLimitBucketSweeping, a.Log))
		a.Log.Info("rate limit bucket sweeper job registered")
	}

	return scheduler
}

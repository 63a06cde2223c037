package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"marketguard/internal/config"
	"marketguard/internal/constants"
	"marketguard/internal/fanout"
	"marketguard/internal/geocoding"
	"marketguard/internal/identity"
	"marketguard/internal/location"
	"marketguard/internal/logger"
	"marketguard/internal/messaging"
	"marketguard/internal/realtime"
	"marketguard/internal/redact"
	"marketguard/pkg/bootstrap"
	"marketguard/pkg/cel"
	"marketguard/pkg/health"
	"marketguard/pkg/metrics"
	"marketguard/pkg/middleware"
	"marketguard/pkg/ratelimit"
	"marketguard/pkg/tracing"
)

const serviceName = constants.ServiceNameRealtime

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	db             *sql.DB
	redisClient    *redis.Client
	mongoClient    *mongo.Client
	hub            *fanout.Hub
	relay          *fanout.RedisRelay
	gateway        *realtime.Gateway
	limiter        *ratelimit.IPLimiter
	health         *health.CheckerRegistry
	router         *gin.Engine
	server         *http.Server
	tracerProvider *tracing.TracerProvider
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	return &App{
		Base:        bootstrap.NewBase(cfg, log, serviceName),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
		health:      health.NewCheckerRegistry(),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	tp, err := tracing.Init(a.Config.Tracing, serviceName)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	metrics.RegisterRealtimeMetrics()
	metrics.RegisterGeocodingMetrics()
	metrics.RegisterBrokerMetrics()
	metrics.RegisterAPIMetrics()
	if a.Config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	if err := a.initDatabases(ctx); err != nil {
		return fmt.Errorf("failed to initialize databases: %w", err)
	}

	if err := a.InitProducer(); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	if err := a.initRouter(ctx); err != nil {
		return fmt.Errorf("failed to initialize router: %w", err)
	}

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  a.Config.Server.ReadTimeoutSeconds,
		WriteTimeout: a.Config.Server.WriteTimeoutSeconds,
	}

	return nil
}

func (a *App) initDatabases(ctx context.Context) error {
	initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	db, err := a.dbConnector.InitPostgreSQL(initCtx)
	if err != nil {
		return err
	}
	a.db = db
	a.health.Register(health.NewPostgreSQLChecker(db))

	mongoClient, err := a.dbConnector.InitMongoDB(initCtx)
	if err != nil {
		return err
	}
	if mongoClient == nil {
		return errors.New("database.mongodb.uri is required for pro locations")
	}
	a.mongoClient = mongoClient
	a.health.Register(health.NewMongoDBChecker(mongoClient))

	// Redis only backs the relay and the geocode cache.
	redisClient, err := a.dbConnector.InitRedis(initCtx)
	if err != nil {
		a.Logger.WarnwCtx(initCtx, "Redis connection failed, continuing without relay and geocode cache", "error", err)
	} else if redisClient != nil {
		a.redisClient = redisClient
		a.health.RegisterOptional(health.NewRedisChecker(redisClient))
	}

	if len(a.Config.Broker.Kafka.Brokers) > 0 {
		a.health.RegisterOptional(health.NewKafkaChecker(a.Config.Broker.Kafka.Brokers))
	}

	return nil
}

func (a *App) initRouter(ctx context.Context) error {
	redactor, err := redact.New(a.Config.Redaction.Redactor())
	if err != nil {
		return fmt.Errorf("failed to build redactor: %w", err)
	}

	evaluator, err := cel.NewEvaluator()
	if err != nil {
		return fmt.Errorf("failed to create CEL evaluator: %w", err)
	}
	policy, err := evaluator.Compile(a.Config.Redaction.ReviewExpression)
	if err != nil {
		return fmt.Errorf("failed to compile review expression: %w", err)
	}

	a.hub = fanout.NewHub(a.Logger)
	var dispatcher fanout.Dispatcher = a.hub
	if a.Config.Realtime.RelayEnabled {
		if a.redisClient == nil {
			a.Logger.WarnwCtx(ctx, "Fanout relay enabled but Redis is unavailable, delivering locally only")
		} else {
			a.relay = fanout.NewRedisRelay(a.redisClient, a.Config.Realtime.RelayChannel, a.hub, a.Logger)
			dispatcher = a.relay
		}
	}

	topics := a.Config.Broker.Kafka.Topics
	geocoder := geocoding.NewChain(
		geocoding.ChainOptionsFromConfig(a.Config.Geo.Geocoder, a.Config.CircuitBreaker),
		a.redisClient,
		a.Logger,
	)
	resolver := geocoding.NewResolver(geocoder, a.Config.Geo.Geocoder.ResolveTimeout, a.Logger)

	messageService := messaging.NewService(
		messaging.NewRepository(a.db),
		redactor,
		dispatcher,
		a.Logger,
		messaging.WithReviewPolicy(policy),
		messaging.WithViolationPublisher(messaging.NewViolationPublisher(a.Producer, topics.ContactViolations, serviceName)),
	)

	locationService := location.NewService(
		location.NewJobStore(a.db),
		location.NewBookingStateProvider(a.db),
		location.NewProStore(a.dbConnector.MongoDatabase(a.mongoClient)),
		a.Logger,
		location.WithResolver(resolver),
		location.WithGeocodeQueue(location.NewGeocodeQueue(a.Producer, topics.GeocodeRequests, serviceName)),
		location.WithObfuscationRadius(a.Config.Geo.ObfuscationRadiusMeters),
		location.WithMaxNearbyRadius(a.Config.Geo.MaxNearbyRadiusKm),
	)

	a.gateway = realtime.NewGateway(a.hub, identity.NewValidator(a.db), realtime.Options{
		WriteTimeout:   a.Config.Realtime.WriteTimeout,
		IdleTimeout:    a.Config.Realtime.IdleTimeout,
		PingInterval:   a.Config.Realtime.PingInterval,
		ReadLimit:      a.Config.Realtime.ReadLimit,
		AllowedOrigins: a.Config.Realtime.AllowedOrigins,
	}, a.Logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if a.Config.Tracing.Enabled {
		router.Use(tracing.GinMiddleware(serviceName))
	}
	router.Use(middleware.RecoveryMiddleware(a.Logger))
	router.Use(middleware.LoggerMiddleware(a.Logger))
	router.Use(middleware.RequestIDMiddleware())

	router.GET("/health", a.health.Handler())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if a.Config.Server.Swagger {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := router.Group("")
	if a.Config.RateLimit.Enabled {
		a.limiter = ratelimit.NewIPLimiter(ratelimit.FromConfig(a.Config.RateLimit))
		api.Use(a.limiter.Middleware())
		a.Logger.InfowCtx(ctx, "Rate limiting enabled", "rps", a.Config.RateLimit.RPS, "burst", a.Config.RateLimit.Burst)
	}

	messaging.NewHandler(messageService, a.Logger).RegisterRoutes(api)
	location.NewHandler(locationService, a.Logger).RegisterRoutes(api)
	a.gateway.RegisterRoutes(api)

	a.router = router
	return nil
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(ctx, "Server listening", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if a.relay != nil {
		g.Go(func() error {
			if err := a.relay.Run(gCtx); err != nil {
				a.Logger.ErrorwCtx(gCtx, "Fanout relay stopped, cross-instance delivery disabled", "error", err)
			}
			return nil
		})
	}

	if a.limiter != nil {
		g.Go(func() error {
			a.limiter.Run(gCtx)
			return nil
		})
	}

	g.Go(func() error {
		<-gCtx.Done()
		return a.Shutdown(context.Background())
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	return a.Base.Shutdown(ctx, func(ctx context.Context) []error {
		var errs []error

		if a.gateway != nil {
			a.gateway.Shutdown()
		}

		if a.server != nil {
			shutdownCtx, cancel := context.WithTimeout(ctx, constants.ShutdownTimeout)
			defer cancel()
			if err := a.server.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
			}
		}

		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
			}
		}

		errs = append(errs, a.dbConnector.ShutdownDatabases(ctx, a.redisClient, a.db, a.mongoClient)...)
		return errs
	})
}

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
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"marketguard/internal/config"
	"marketguard/internal/constants"
	"marketguard/internal/geocoding"
	"marketguard/internal/location"
	"marketguard/internal/logger"
	"marketguard/pkg/bootstrap"
	"marketguard/pkg/health"
	"marketguard/pkg/metrics"
	"marketguard/pkg/middleware"
	"marketguard/pkg/tracing"
)

const serviceName = constants.ServiceNameGeocoding

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	db             *sql.DB
	redisClient    *redis.Client
	mongoClient    *mongo.Client
	service        location.Service
	health         *health.CheckerRegistry
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

	metrics.RegisterGeocodingMetrics()
	metrics.RegisterBrokerMetrics()
	if a.Config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	if err := a.initDatabases(ctx); err != nil {
		return fmt.Errorf("failed to initialize databases: %w", err)
	}

	if err := a.InitConsumer(); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	geocoder := geocoding.NewChain(
		geocoding.ChainOptionsFromConfig(a.Config.Geo.Geocoder, a.Config.CircuitBreaker),
		a.redisClient,
		a.Logger,
	)
	a.service = location.NewService(
		location.NewJobStore(a.db),
		location.NewBookingStateProvider(a.db),
		location.NewProStore(a.dbConnector.MongoDatabase(a.mongoClient)),
		a.Logger,
		location.WithGeocoder(geocoder),
	)

	a.initHTTPServer()
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

	redisClient, err := a.dbConnector.InitRedis(initCtx)
	if err != nil {
		a.Logger.WarnwCtx(initCtx, "Redis connection failed, geocode cache disabled", "error", err)
	} else if redisClient != nil {
		a.redisClient = redisClient
		a.health.RegisterOptional(health.NewRedisChecker(redisClient))
	}

	if len(a.Config.Broker.Kafka.Brokers) > 0 {
		a.health.Register(health.NewKafkaChecker(a.Config.Broker.Kafka.Brokers))
	}
	return nil
}

// The worker has no public API; the server only exposes probes.
func (a *App) initHTTPServer() {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(a.Logger))

	router.GET("/health", a.health.Handler())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	a.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler: router,
	}
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(ctx, "HTTP server starting", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	topic := a.Config.Broker.Kafka.Topics.GeocodeRequests
	if topic == "" {
		topic = constants.DefaultGeocodeRequestTopic
	}

	g.Go(func() error {
		a.Logger.InfowCtx(gCtx, "Consuming geocode requests", "topic", topic)
		err := a.Consumer.Consume(gCtx, topic, a.service.HandleGeocodeRequest)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		return a.Shutdown(context.Background())
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	return a.Base.Shutdown(ctx, func(ctx context.Context) []error {
		var errs []error

		if a.server != nil {
			shutdownCtx, cancel := context.WithTimeout(ctx, constants.ShutdownTimeout)
			defer cancel()
			if err := a.server.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("HTTP server shutdown error: %w", err))
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

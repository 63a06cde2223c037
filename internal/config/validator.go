package config

import (
	"errors"
	"fmt"
	"strings"

	"marketguard/internal/redact"
	"marketguard/pkg/cel"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errs []error

	checks := []error{
		validateServer(cfg.Server),
		validateBroker(cfg.Broker),
		validateDatabase(cfg.Database),
		validateLogging(cfg.Logging),
		validateRedaction(cfg.Redaction),
		validateGeo(cfg.Geo),
		validateRealtime(cfg.Realtime),
		validateRateLimit(cfg.RateLimit),
		validateCircuitBreaker(cfg.CircuitBreaker),
	}
	for _, err := range checks {
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.ReadTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.read_timeout_seconds",
			Message: "read timeout must be positive",
		}
	}

	if cfg.WriteTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.write_timeout_seconds",
			Message: "write timeout must be positive",
		}
	}

	return nil
}

func validateBroker(cfg BrokerConfig) error {
	if cfg.Type == "" {
		return &ValidationError{
			Field:   "broker.type",
			Message: "broker type is required",
		}
	}

	switch cfg.Type {
	case "kafka":
		return validateKafka(cfg.Kafka)
	default:
		return &ValidationError{
			Field:   "broker.type",
			Message: fmt.Sprintf("unknown broker type: %s (supported: kafka)", cfg.Type),
		}
	}
}

func validateKafka(cfg KafkaConfig) error {
	if len(cfg.Brokers) == 0 {
		return &ValidationError{
			Field:   "broker.kafka.brokers",
			Message: "at least one Kafka broker is required",
		}
	}

	for i, broker := range cfg.Brokers {
		if broker == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("broker.kafka.brokers[%d]", i),
				Message: "broker address cannot be empty",
			}
		}
	}

	if cfg.GroupID == "" {
		return &ValidationError{
			Field:   "broker.kafka.group_id",
			Message: "Kafka consumer group ID is required",
		}
	}

	if cfg.Topics.ContactViolations == "" {
		return &ValidationError{
			Field:   "broker.kafka.topics.contact_violations",
			Message: "contact violation topic is required",
		}
	}

	if cfg.Topics.GeocodeRequests == "" {
		return &ValidationError{
			Field:   "broker.kafka.topics.geocode_requests",
			Message: "geocode request topic is required",
		}
	}

	if cfg.Retry.MaxAttempts < 0 {
		return &ValidationError{
			Field:   "broker.kafka.retry.max_attempts",
			Message: "max_attempts must be non-negative",
		}
	}

	if cfg.Retry.InitialInterval < 0 {
		return &ValidationError{
			Field:   "broker.kafka.retry.initial_interval",
			Message: "initial_interval must be non-negative",
		}
	}

	if cfg.Retry.MaxInterval < 0 {
		return &ValidationError{
			Field:   "broker.kafka.retry.max_interval",
			Message: "max_interval must be non-negative",
		}
	}

	if cfg.Retry.MaxInterval > 0 && cfg.Retry.InitialInterval > 0 && cfg.Retry.MaxInterval < cfg.Retry.InitialInterval {
		return &ValidationError{
			Field:   "broker.kafka.retry.max_interval",
			Message: "max_interval must be greater than or equal to initial_interval",
		}
	}

	if cfg.Retry.Multiplier <= 0 {
		return &ValidationError{
			Field:   "broker.kafka.retry.multiplier",
			Message: "multiplier must be positive",
		}
	}

	return nil
}

func validateDatabase(cfg DatabaseConfig) error {
	if cfg.Postgres.Host != "" || cfg.Postgres.Port > 0 {
		if err := validatePostgres(cfg.Postgres); err != nil {
			return err
		}
	}

	if cfg.Redis.Host != "" || cfg.Redis.Port > 0 {
		if err := validateRedis(cfg.Redis); err != nil {
			return err
		}
	}

	if cfg.MongoDB.URI != "" {
		if err := validateMongoDB(cfg.MongoDB); err != nil {
			return err
		}
	}

	return nil
}

func validatePostgres(cfg PostgresConfig) error {
	if cfg.Host == "" {
		return &ValidationError{
			Field:   "database.postgres.host",
			Message: "PostgreSQL host is required",
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "database.postgres.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.User == "" {
		return &ValidationError{
			Field:   "database.postgres.user",
			Message: "PostgreSQL user is required",
		}
	}

	if cfg.DBName == "" {
		return &ValidationError{
			Field:   "database.postgres.dbname",
			Message: "PostgreSQL database name is required",
		}
	}

	validSSLModes := map[string]bool{
		"disable": true, "allow": true, "prefer": true,
		"require": true, "verify-ca": true, "verify-full": true,
	}
	if cfg.SSLMode != "" && !validSSLModes[strings.ToLower(cfg.SSLMode)] {
		return &ValidationError{
			Field:   "database.postgres.sslmode",
			Message: fmt.Sprintf("invalid SSL mode: %s (valid: disable, allow, prefer, require, verify-ca, verify-full)", cfg.SSLMode),
		}
	}

	return nil
}

func validateRedis(cfg RedisConfig) error {
	if cfg.Host == "" {
		return &ValidationError{
			Field:   "database.redis.host",
			Message: "Redis host is required",
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "database.redis.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	return nil
}

func validateMongoDB(cfg MongoDBConfig) error {
	if cfg.URI == "" {
		return &ValidationError{
			Field:   "database.mongodb.uri",
			Message: "MongoDB URI is required",
		}
	}

	if !strings.HasPrefix(cfg.URI, "mongodb://") && !strings.HasPrefix(cfg.URI, "mongodb+srv://") {
		return &ValidationError{
			Field:   "database.mongodb.uri",
			Message: "MongoDB URI must start with mongodb:// or mongodb+srv://",
		}
	}

	if cfg.Database == "" {
		return &ValidationError{
			Field:   "database.mongodb.database",
			Message: "MongoDB database name is required",
		}
	}

	return nil
}

func validateLogging(cfg LoggingConfig) error {
	switch strings.ToLower(cfg.Level) {
	case "", "debug", "info", "warn", "warning", "error", "fatal":
	default:
		return &ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level: %s (valid: debug, info, warn, error, fatal)", cfg.Level),
		}
	}

	switch strings.ToLower(cfg.Format) {
	case "", "json", "console":
	default:
		return &ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format: %s (valid: json, console)", cfg.Format),
		}
	}

	return nil
}

func validateRedaction(cfg RedactionConfig) error {
	if _, err := redact.New(cfg.Redactor()); err != nil {
		return &ValidationError{
			Field:   "redaction",
			Message: err.Error(),
		}
	}

	if cfg.ReviewExpression == "" {
		return nil
	}

	evaluator, err := cel.NewEvaluator()
	if err != nil {
		return fmt.Errorf("failed to create review evaluator: %w", err)
	}
	if err := evaluator.ValidateExpression(cfg.ReviewExpression); err != nil {
		return &ValidationError{
			Field:   "redaction.review_expression",
			Message: err.Error(),
		}
	}

	return nil
}

func validateGeo(cfg GeoConfig) error {
	if cfg.ObfuscationRadiusMeters < 0 {
		return &ValidationError{
			Field:   "geo.obfuscation_radius_meters",
			Message: "obfuscation radius must be non-negative",
		}
	}

	if cfg.MaxNearbyRadiusKm < 0 {
		return &ValidationError{
			Field:   "geo.max_nearby_radius_km",
			Message: "max nearby radius must be non-negative",
		}
	}

	if cfg.Geocoder.BaseURL != "" && !strings.HasPrefix(cfg.Geocoder.BaseURL, "http://") && !strings.HasPrefix(cfg.Geocoder.BaseURL, "https://") {
		return &ValidationError{
			Field:   "geo.geocoder.base_url",
			Message: "geocoder base URL must start with http:// or https://",
		}
	}

	if cfg.Geocoder.Timeout < 0 || cfg.Geocoder.ResolveTimeout < 0 {
		return &ValidationError{
			Field:   "geo.geocoder.timeout",
			Message: "geocoder timeouts must be non-negative",
		}
	}

	if cfg.Geocoder.CacheTTL < 0 || cfg.Geocoder.MissTTL < 0 {
		return &ValidationError{
			Field:   "geo.geocoder.cache_ttl",
			Message: "cache TTLs must be non-negative",
		}
	}

	return nil
}

func validateRealtime(cfg RealtimeConfig) error {
	if cfg.WriteTimeout < 0 || cfg.IdleTimeout < 0 || cfg.PingInterval < 0 {
		return &ValidationError{
			Field:   "realtime",
			Message: "timeouts must be non-negative",
		}
	}

	if cfg.IdleTimeout > 0 && cfg.PingInterval >= cfg.IdleTimeout {
		return &ValidationError{
			Field:   "realtime.ping_interval",
			Message: "ping interval must be shorter than idle timeout",
		}
	}

	if cfg.ReadLimit < 0 {
		return &ValidationError{
			Field:   "realtime.read_limit",
			Message: "read limit must be non-negative",
		}
	}

	if cfg.RelayEnabled && cfg.RelayChannel == "" {
		return &ValidationError{
			Field:   "realtime.relay_channel",
			Message: "relay channel is required when the relay is enabled",
		}
	}

	return nil
}

func validateRateLimit(cfg RateLimitConfig) error {
	if !cfg.Enabled {
		return nil
	}

	if cfg.RPS <= 0 {
		return &ValidationError{
			Field:   "rate_limit.rps",
			Message: "rps must be positive",
		}
	}

	if cfg.Burst < 1 {
		return &ValidationError{
			Field:   "rate_limit.burst",
			Message: "burst must be at least 1",
		}
	}

	return nil
}

func validateCircuitBreaker(cfg CircuitBreakerConfig) error {
	if !cfg.Enabled {
		return nil
	}

	if cfg.FailureRatio < 0 || cfg.FailureRatio > 1 {
		return &ValidationError{
			Field:   "circuit_breaker.failure_ratio",
			Message: fmt.Sprintf("failure ratio must be between 0 and 1, got %v", cfg.FailureRatio),
		}
	}

	if cfg.Timeout < 0 || cfg.Interval < 0 {
		return &ValidationError{
			Field:   "circuit_breaker.timeout",
			Message: "timeout and interval must be non-negative",
		}
	}

	return nil
}

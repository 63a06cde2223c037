package config

import (
	"time"

	"marketguard/internal/redact"
)

type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Broker         BrokerConfig
	Logging        LoggingConfig
	Redaction      RedactionConfig
	Geo            GeoConfig
	Realtime       RealtimeConfig
	RateLimit      RateLimitConfig      `mapstructure:"rate_limit"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Tracing        TracingConfig
}

type ServerConfig struct {
	Port                int           `mapstructure:"port"`
	ReadTimeoutSeconds  time.Duration `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds time.Duration `mapstructure:"write_timeout_seconds"`
	Swagger             bool          `mapstructure:"swagger"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig
	Redis         RedisConfig
	MongoDB       MongoDBConfig
	RunMigrations bool `mapstructure:"run_migrations"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MongoDBConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type BrokerConfig struct {
	Type  string      `mapstructure:"type"`
	Kafka KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers  []string    `mapstructure:"brokers"`
	GroupID  string      `mapstructure:"group_id"`
	Topics   TopicConfig `mapstructure:"topics"`
	DLQTopic string      `mapstructure:"dlq_topic"`
	Retry    RetryConfig `mapstructure:"retry"`
}

type TopicConfig struct {
	ContactViolations string `mapstructure:"contact_violations"`
	GeocodeRequests   string `mapstructure:"geocode_requests"`
}

type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RedactionConfig tunes the contact-info detectors. Zero values fall back
// to the redactor defaults.
type RedactionConfig struct {
	MinPhoneDigits   int                 `mapstructure:"min_phone_digits"`
	MaxPhoneDigits   int                 `mapstructure:"max_phone_digits"`
	TriggerKeywords  []string            `mapstructure:"trigger_keywords"`
	MessagingApps    []string            `mapstructure:"messaging_apps"`
	TopLevelDomains  []string            `mapstructure:"top_level_domains"`
	MaxPasses        int                 `mapstructure:"max_passes"`
	CustomRules      []redact.CustomRule `mapstructure:"custom_rules"`
	ReviewExpression string              `mapstructure:"review_expression"`
}

// Redactor converts the section into the redactor's own config.
func (c RedactionConfig) Redactor() redact.Config {
	return redact.Config{
		MinPhoneDigits:  c.MinPhoneDigits,
		MaxPhoneDigits:  c.MaxPhoneDigits,
		TriggerKeywords: c.TriggerKeywords,
		MessagingApps:   c.MessagingApps,
		TopLevelDomains: c.TopLevelDomains,
		MaxPasses:       c.MaxPasses,
		CustomRules:     c.CustomRules,
	}
}

type GeoConfig struct {
	ObfuscationRadiusMeters float64        `mapstructure:"obfuscation_radius_meters"`
	MaxNearbyRadiusKm       float64        `mapstructure:"max_nearby_radius_km"`
	Geocoder                GeocoderConfig `mapstructure:"geocoder"`
}

type GeocoderConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	UserAgent      string        `mapstructure:"user_agent"`
	Email          string        `mapstructure:"email"`
	CountryCodes   []string      `mapstructure:"country_codes"`
	Timeout        time.Duration `mapstructure:"timeout"`
	ResolveTimeout time.Duration `mapstructure:"resolve_timeout"`
	CacheEnabled   bool          `mapstructure:"cache_enabled"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
	MissTTL        time.Duration `mapstructure:"miss_ttl"`
}

type RealtimeConfig struct {
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	ReadLimit      int64         `mapstructure:"read_limit"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	RelayEnabled   bool          `mapstructure:"relay_enabled"`
	RelayChannel   string        `mapstructure:"relay_channel"`
}

type RateLimitConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	RPS             float64 `mapstructure:"rps"`
	Burst           int     `mapstructure:"burst"`
	CleanupInterval int     `mapstructure:"cleanup_interval"`
	MaxAge          int     `mapstructure:"max_age"`
}

type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

type TracingConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	ServiceName string        `mapstructure:"service_name"`
	OTLP        OTLPConfig    `mapstructure:"otlp"`
	Sampler     SamplerConfig `mapstructure:"sampler"`
}

type OTLPConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

type SamplerConfig struct {
	Type  string  `mapstructure:"type"`
	Param float64 `mapstructure:"param"`
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}

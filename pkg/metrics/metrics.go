package metrics

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	RedactionMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redaction_messages_total",
			Help: "Total number of messages passed through the redactor (count)",
		},
		[]string{"result"},
	)

	RedactionFindingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redaction_findings_total",
			Help: "Total number of masked spans by rule (count)",
		},
		[]string{"rule", "category", "heuristic"},
	)

	RedactionReviewTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redaction_review_total",
			Help: "Total number of review policy evaluations (count)",
		},
		[]string{"result"},
	)

	MessagesProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "messages_processing_duration_ms",
			Help:    "Duration of the message send flow in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		},
		[]string{"status"},
	)

	FanoutDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanout_deliveries_total",
			Help: "Total number of event deliveries to live sessions (count)",
		},
		[]string{"event_type", "status"},
	)

	FanoutSessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fanout_sessions_active",
			Help: "Number of registered real-time sessions (count)",
		},
	)

	FanoutIdentitiesActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fanout_identities_active",
			Help: "Number of identities with at least one live session (count)",
		},
	)

	FanoutRelayTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanout_relay_total",
			Help: "Total number of envelopes published to or received from the relay channel (count)",
		},
		[]string{"direction", "status"},
	)

	WebsocketConnectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_connections_total",
			Help: "Total number of websocket connection attempts by outcome (count)",
		},
		[]string{"outcome"},
	)

	WebsocketSessionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "websocket_session_duration_seconds",
			Help:    "Lifetime of accepted websocket sessions in seconds",
			Buckets: []float64{1, 10, 60, 300, 900, 1800, 3600, 14400},
		},
	)

	GeocodeRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocode_requests_total",
			Help: "Total number of forward geocoding requests (count)",
		},
		[]string{"provider", "status"},
	)

	GeocodeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "geocode_duration_ms",
			Help:    "Duration of forward geocoding requests in milliseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"provider"},
	)

	GeocodeCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocode_cache_total",
			Help: "Total number of geocode cache lookups (count)",
		},
		[]string{"result"},
	)

	LocationQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "location_queries_total",
			Help: "Total number of location queries by kind and disclosure (count)",
		},
		[]string{"query", "disclosure"},
	)

	NearbyCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "location_nearby_candidates",
			Help:    "Bounding box candidates examined per nearby search (count)",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of retry attempts (count)",
		},
		[]string{"service", "topic"},
	)

	DLQMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlq_messages_total",
			Help: "Total number of messages sent to DLQ (count)",
		},
		[]string{"service", "topic", "reason"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by route and status (count)",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_ms",
			Help:    "Duration of HTTP requests in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"method", "route"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"status"},
	)

	KafkaMessagesReadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_read_total",
			Help: "Total number of messages read from Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessagesWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_written_total",
			Help: "Total number of messages written to Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessageSizeBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_message_size_bytes",
			Help:    "Size of Kafka messages in bytes",
			Buckets: []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000},
		},
		[]string{"service", "topic", "direction"},
	)

	KafkaConsumerLag = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kafka_consumer_lag",
			Help: "Kafka consumer lag (difference between latest offset and committed offset) (count)",
		},
		[]string{"service", "topic", "partition"},
	)

	KafkaReadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_read_duration_ms",
			Help:    "Duration of reading messages from Kafka in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"service", "topic"},
	)

	KafkaWriteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_write_duration_ms",
			Help:    "Duration of writing messages to Kafka in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"service", "topic"},
	)

	DatabaseQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "database_queries_total",
			Help: "Total number of database queries (count)",
		},
		[]string{"service", "database", "operation", "status"},
	)

	DatabaseQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "database_query_duration_ms",
			Help:    "Duration of database queries in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"service", "database", "operation"},
	)
)

var (
	realtimeOnce       sync.Once
	geocodingOnce      sync.Once
	brokerOnce         sync.Once
	circuitBreakerOnce sync.Once
	apiOnce            sync.Once
)

func RegisterRealtimeMetrics() {
	realtimeOnce.Do(func() {
		prometheus.MustRegister(RedactionMessagesTotal)
		prometheus.MustRegister(RedactionFindingsTotal)
		prometheus.MustRegister(RedactionReviewTotal)
		prometheus.MustRegister(MessagesProcessingDuration)
		prometheus.MustRegister(FanoutDeliveriesTotal)
		prometheus.MustRegister(FanoutSessionsActive)
		prometheus.MustRegister(FanoutIdentitiesActive)
		prometheus.MustRegister(FanoutRelayTotal)
		prometheus.MustRegister(WebsocketConnectionsTotal)
		prometheus.MustRegister(WebsocketSessionDuration)
		prometheus.MustRegister(LocationQueriesTotal)
		prometheus.MustRegister(NearbyCandidates)
	})
}

func RegisterGeocodingMetrics() {
	geocodingOnce.Do(func() {
		prometheus.MustRegister(GeocodeRequestsTotal)
		prometheus.MustRegister(GeocodeDuration)
		prometheus.MustRegister(GeocodeCacheTotal)
	})
}

func RegisterBrokerMetrics() {
	brokerOnce.Do(func() {
		prometheus.MustRegister(RetryAttemptsTotal)
		prometheus.MustRegister(DLQMessagesTotal)
		prometheus.MustRegister(KafkaMessagesReadTotal)
		prometheus.MustRegister(KafkaMessagesWrittenTotal)
		prometheus.MustRegister(KafkaMessageSizeBytes)
		prometheus.MustRegister(KafkaConsumerLag)
		prometheus.MustRegister(KafkaReadDuration)
		prometheus.MustRegister(KafkaWriteDuration)
	})
}

func RegisterCircuitBreakerMetrics() {
	circuitBreakerOnce.Do(func() {
		prometheus.MustRegister(CircuitBreakerState)
		prometheus.MustRegister(CircuitBreakerRequests)
		prometheus.MustRegister(CircuitBreakerFailures)
	})
}

func RegisterAPIMetrics() {
	apiOnce.Do(func() {
		prometheus.MustRegister(HTTPRequestsTotal)
		prometheus.MustRegister(HTTPRequestDuration)
		prometheus.MustRegister(RateLimitRequestsTotal)
		prometheus.MustRegister(DatabaseQueriesTotal)
		prometheus.MustRegister(DatabaseQueryDuration)
	})
}

func IncRedactedMessage(containsContactInfo bool) {
	result := "clean"
	if containsContactInfo {
		result = "redacted"
	}
	RedactionMessagesTotal.WithLabelValues(result).Inc()
}

func IncRedactionFinding(rule, category string, heuristic bool) {
	RedactionFindingsTotal.WithLabelValues(rule, category, fmt.Sprintf("%t", heuristic)).Inc()
}

func IncReviewDecision(result string) {
	RedactionReviewTotal.WithLabelValues(result).Inc()
}

func ObserveMessageDuration(duration time.Duration, status string) {
	MessagesProcessingDuration.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

func IncFanoutDelivery(eventType, status string) {
	FanoutDeliveriesTotal.WithLabelValues(eventType, status).Inc()
}

func SetFanoutSize(identities, sessions int) {
	FanoutIdentitiesActive.Set(float64(identities))
	FanoutSessionsActive.Set(float64(sessions))
}

func IncFanoutRelay(direction, status string) {
	FanoutRelayTotal.WithLabelValues(direction, status).Inc()
}

func IncWebsocketConnection(outcome string) {
	WebsocketConnectionsTotal.WithLabelValues(outcome).Inc()
}

func ObserveWebsocketSession(duration time.Duration) {
	WebsocketSessionDuration.Observe(duration.Seconds())
}

func IncGeocodeRequest(provider, status string) {
	GeocodeRequestsTotal.WithLabelValues(provider, status).Inc()
}

func ObserveGeocodeDuration(provider string, duration time.Duration) {
	GeocodeDuration.WithLabelValues(provider).Observe(float64(duration.Milliseconds()))
}

func IncGeocodeCache(result string) {
	GeocodeCacheTotal.WithLabelValues(result).Inc()
}

func IncLocationQuery(query, disclosure string) {
	LocationQueriesTotal.WithLabelValues(query, disclosure).Inc()
}

func ObserveNearbyCandidates(n int) {
	NearbyCandidates.Observe(float64(n))
}

func IncKafkaMessagesRead(service, topic string) {
	KafkaMessagesReadTotal.WithLabelValues(service, topic).Inc()
}

func IncKafkaMessagesWritten(service, topic string) {
	KafkaMessagesWrittenTotal.WithLabelValues(service, topic).Inc()
}

func ObserveKafkaMessageSize(service, topic, direction string, sizeBytes int) {
	KafkaMessageSizeBytes.WithLabelValues(service, topic, direction).Observe(float64(sizeBytes))
}

func SetKafkaConsumerLag(service, topic string, partition int, lag int64) {
	KafkaConsumerLag.WithLabelValues(service, topic, fmt.Sprintf("%d", partition)).Set(float64(lag))
}

func ObserveKafkaReadDuration(service, topic string, duration time.Duration) {
	KafkaReadDuration.WithLabelValues(service, topic).Observe(float64(duration.Milliseconds()))
}

func ObserveKafkaWriteDuration(service, topic string, duration time.Duration) {
	KafkaWriteDuration.WithLabelValues(service, topic).Observe(float64(duration.Milliseconds()))
}

func IncHTTPRequest(method, route string, status int) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

func ObserveHTTPRequestDuration(method, route string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route).Observe(float64(duration.Milliseconds()))
}

func IncRateLimit(status string) {
	RateLimitRequestsTotal.WithLabelValues(status).Inc()
}

func IncDatabaseQuery(service, database, operation, status string) {
	DatabaseQueriesTotal.WithLabelValues(service, database, operation, status).Inc()
}

func ObserveDatabaseQueryDuration(service, database, operation string, duration time.Duration) {
	DatabaseQueryDuration.WithLabelValues(service, database, operation).Observe(float64(duration.Milliseconds()))
}

package metrics

import (
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Claim outcomes. Every call to the booking engine ends in exactly one.
const (
	OutcomeBooked         = "booked"
	OutcomeHeld           = "held"
	OutcomeReleased       = "released"
	OutcomeAlreadyClaimed = "already_claimed"
	OutcomeNotFound       = "not_found"
	OutcomeInvalid        = "invalid"
	OutcomeHoldExpired    = "hold_expired"
	OutcomeUnavailable    = "unavailable"
	OutcomeError          = "error"
)

var (
	ClaimsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slotbook_claims_total",
			Help: "Slot claim attempts by operation and outcome",
		},
		[]string{"operation", "outcome"}, // claim|reserve|confirm|release
	)

	ClaimDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "slotbook_claim_duration_seconds",
			Help:    "Duration of slot claim operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	LocksReclaimedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "slotbook_locks_reclaimed_total",
			Help: "Stale slot holds returned to AVAILABLE by the reaper",
		},
	)

	ReaperSweepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slotbook_reaper_sweeps_total",
			Help: "Reaper sweeps by result",
		},
		[]string{"result"}, // success|failure
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slotbook_http_requests_total",
			Help: "HTTP requests by method and status code",
		},
		[]string{"method", "code"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "slotbook_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	RateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "slotbook_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
	)

	KafkaMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slotbook_kafka_messages_total",
			Help: "Kafka messages by direction and result",
		},
		[]string{"direction", "topic", "result"}, // produce|consume, success|failure
	)

	KafkaMessageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "slotbook_kafka_message_duration_seconds",
			Help:    "Time spent publishing or handling a Kafka message",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"direction"},
	)
)

func init() {
	prometheus.MustRegister(
		ClaimsTotal,
		ClaimDuration,
		LocksReclaimedTotal,
		ReaperSweepsTotal,
		HTTPRequestsTotal,
		HTTPRequestDuration,
		RateLimitedTotal,
		KafkaMessagesTotal,
		KafkaMessageDuration,
	)
}

func ObserveClaim(operation, outcome string, duration time.Duration) {
	ClaimsTotal.WithLabelValues(operation, outcome).Inc()
	ClaimDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func ObserveKafka(direction, topic string, err error, duration time.Duration) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	KafkaMessagesTotal.WithLabelValues(direction, topic, result).Inc()
	KafkaMessageDuration.WithLabelValues(direction).Observe(duration.Seconds())
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func RegisterRoutes(router *httprouter.Router) {
	router.Handler(http.MethodGet, "/metrics", Handler())
}

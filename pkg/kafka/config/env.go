package kafka_config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	EnvBrokers          = "KAFKA_BROKERS"
	EnvEnableMiddleware = "KAFKA_ENABLE_MIDDLEWARE"

	EnvBookingEventsTopic = "BOOKING_EVENTS_TOPIC"
	EnvSlotCommandsTopic  = "SLOT_COMMANDS_TOPIC"
	EnvSlotIngestGroup    = "SLOT_INGEST_GROUP"
	EnvDeadLetterTopic    = "DEAD_LETTER_TOPIC"

	EnvProducerMaxAttempts  = "KAFKA_PRODUCER_MAX_ATTEMPTS"
	EnvProducerBatchTimeout = "KAFKA_PRODUCER_BATCH_TIMEOUT"
	EnvProducerRequiredAcks = "KAFKA_PRODUCER_REQUIRE_ACKS"
	EnvProducerCompression  = "KAFKA_PRODUCER_COMPRESSION"
	EnvProducerAsync        = "KAFKA_PRODUCER_ASYNC"

	EnvConsumerStartOffset       = "KAFKA_CONSUMER_START_OFFSET"
	EnvConsumerMinBytes          = "KAFKA_CONSUMER_MIN_BYTES"
	EnvConsumerMaxBytes          = "KAFKA_CONSUMER_MAX_BYTES"
	EnvConsumerMaxWait           = "KAFKA_CONSUMER_MAX_WAIT"
	EnvConsumerCommitInterval    = "KAFKA_CONSUMER_COMMIT_INTERVAL"
	EnvConsumerHeartbeatInterval = "KAFKA_CONSUMER_HEARTBEAT_INTERVAL"
	EnvConsumerSessionTimeout    = "KAFKA_CONSUMER_SESSION_TIMEOUT"
	EnvConsumerRebalanceTimeout  = "KAFKA_CONSUMER_REBALANCE_TIMEOUT"
	EnvConsumerMaxRetries        = "KAFKA_CONSUMER_MAX_RETRIES"
)

// envReader reads variables and remembers the ones that failed to parse, so
// a typo in a deployment surfaces in Validate instead of silently becoming
// the default.
type envReader struct {
	lookup  func(string) (string, bool)
	invalid []string
}

func newEnvReader() *envReader {
	return &envReader{lookup: os.LookupEnv}
}

func (e *envReader) raw(key string) (string, bool) {
	value, ok := e.lookup(key)
	value = strings.TrimSpace(value)
	return value, ok && value != ""
}

func (e *envReader) fail(key, value string) {
	e.invalid = append(e.invalid, fmt.Sprintf("%s has an unparsable value %q", key, value))
}

func (e *envReader) str(key, fallback string) string {
	if value, ok := e.raw(key); ok {
		return value
	}
	return fallback
}

func (e *envReader) list(key, fallback string) []string {
	var out []string
	for _, part := range strings.Split(e.str(key, fallback), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (e *envReader) integer(key string, fallback int) int {
	value, ok := e.raw(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		e.fail(key, value)
		return fallback
	}
	return n
}

func (e *envReader) int64(key string, fallback int64) int64 {
	value, ok := e.raw(key)
	if !ok {
		return fallback
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		e.fail(key, value)
		return fallback
	}
	return n
}

func (e *envReader) boolean(key string, fallback bool) bool {
	value, ok := e.raw(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		e.fail(key, value)
		return fallback
	}
	return b
}

func (e *envReader) duration(key string, fallback time.Duration) time.Duration {
	value, ok := e.raw(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		e.fail(key, value)
		return fallback
	}
	return d
}

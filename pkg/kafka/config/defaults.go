package kafka_config

import "time"

const (
	DefaultBrokers          = "localhost:9092"
	DefaultEnableMiddleware = true

	DefaultBookingEventsTopic = "slotbook.bookings"
	DefaultSlotCommandsTopic  = "slotbook.slot-commands"
	DefaultSlotIngestGroup    = "slotbook-slot-ingest"
	DefaultDeadLetterTopic    = "slotbook.dlq"

	DefaultProducerMaxAttempts  = 3
	DefaultProducerBatchTimeout = 10 * time.Millisecond
	DefaultProducerRequiredAcks = AcksAll
	DefaultProducerCompression  = CompressionSnappy

	DefaultConsumerStartOffset       = OffsetOldest
	DefaultConsumerMinBytes          = 1
	DefaultConsumerMaxBytes          = 1 << 20
	DefaultConsumerMaxWait           = 500 * time.Millisecond
	DefaultConsumerCommitInterval    = time.Second
	DefaultConsumerHeartbeatInterval = 3 * time.Second
	DefaultConsumerSessionTimeout    = 10 * time.Second
	DefaultConsumerRebalanceTimeout  = 60 * time.Second
	DefaultConsumerMaxRetries        = 3
)

const (
	AcksAll    = -1
	AcksNone   = 0
	AcksLeader = 1

	OffsetNewest int64 = -1
	OffsetOldest int64 = -2

	CompressionNone   = "none"
	CompressionGzip   = "gzip"
	CompressionSnappy = "snappy"
	CompressionLz4    = "lz4"
	CompressionZstd   = "zstd"
)

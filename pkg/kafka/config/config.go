package kafka_config

import (
	"fmt"
	"slices"
	"slotbook/pkg/logger"
	"time"
)

// Topics names everything slotbook reads from or writes to.
type Topics struct {
	BookingEvents   string
	SlotCommands    string
	SlotIngestGroup string
	DeadLetter      string
}

type Producer struct {
	MaxAttempts  int
	BatchTimeout time.Duration
	RequiredAcks int
	Compression  string
	Async        bool
}

type Consumer struct {
	StartOffset       int64
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	CommitInterval    time.Duration
	HeartbeatInterval time.Duration
	SessionTimeout    time.Duration
	RebalanceTimeout  time.Duration
	MaxRetries        int
}

type Config struct {
	Brokers          []string
	Topics           Topics
	Producer         Producer
	Consumer         Consumer
	EnableMiddleware bool

	invalid []string
}

func Load() (*Config, error) {
	cfg := load(newEnvReader())
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kafka: %w", err)
	}
	return cfg, nil
}

func load(env *envReader) *Config {
	cfg := &Config{
		Brokers:          env.list(EnvBrokers, DefaultBrokers),
		EnableMiddleware: env.boolean(EnvEnableMiddleware, DefaultEnableMiddleware),
		Topics: Topics{
			BookingEvents:   env.str(EnvBookingEventsTopic, DefaultBookingEventsTopic),
			SlotCommands:    env.str(EnvSlotCommandsTopic, DefaultSlotCommandsTopic),
			SlotIngestGroup: env.str(EnvSlotIngestGroup, DefaultSlotIngestGroup),
			DeadLetter:      env.str(EnvDeadLetterTopic, DefaultDeadLetterTopic),
		},
		Producer: Producer{
			MaxAttempts:  env.integer(EnvProducerMaxAttempts, DefaultProducerMaxAttempts),
			BatchTimeout: env.duration(EnvProducerBatchTimeout, DefaultProducerBatchTimeout),
			RequiredAcks: env.integer(EnvProducerRequiredAcks, DefaultProducerRequiredAcks),
			Compression:  env.str(EnvProducerCompression, DefaultProducerCompression),
			Async:        env.boolean(EnvProducerAsync, false),
		},
		Consumer: Consumer{
			StartOffset:       env.int64(EnvConsumerStartOffset, DefaultConsumerStartOffset),
			MinBytes:          env.integer(EnvConsumerMinBytes, DefaultConsumerMinBytes),
			MaxBytes:          env.integer(EnvConsumerMaxBytes, DefaultConsumerMaxBytes),
			MaxWait:           env.duration(EnvConsumerMaxWait, DefaultConsumerMaxWait),
			CommitInterval:    env.duration(EnvConsumerCommitInterval, DefaultConsumerCommitInterval),
			HeartbeatInterval: env.duration(EnvConsumerHeartbeatInterval, DefaultConsumerHeartbeatInterval),
			SessionTimeout:    env.duration(EnvConsumerSessionTimeout, DefaultConsumerSessionTimeout),
			RebalanceTimeout:  env.duration(EnvConsumerRebalanceTimeout, DefaultConsumerRebalanceTimeout),
			MaxRetries:        env.integer(EnvConsumerMaxRetries, DefaultConsumerMaxRetries),
		},
	}
	cfg.invalid = env.invalid
	return cfg
}

var (
	compressions = []string{CompressionNone, CompressionGzip, CompressionSnappy, CompressionLz4, CompressionZstd}
	acks         = []int{AcksAll, AcksNone, AcksLeader}
)

func (cfg *Config) Validate() error {
	errs := append([]string(nil), cfg.invalid...)
	positive := func(name string, ok bool, value any) {
		if !ok {
			errs = append(errs, fmt.Sprintf("%s must be positive, got: %v", name, value))
		}
	}

	if len(cfg.Brokers) == 0 {
		errs = append(errs, "At least one Kafka broker is required")
	}

	t := cfg.Topics
	if t.BookingEvents == "" || t.SlotCommands == "" || t.DeadLetter == "" {
		errs = append(errs, "BookingEvents, SlotCommands and DeadLetter topics must all be set")
	}
	if t.SlotIngestGroup == "" {
		errs = append(errs, "SlotIngestGroup cannot be empty")
	}
	if t.BookingEvents != "" && t.BookingEvents == t.SlotCommands {
		errs = append(errs, fmt.Sprintf("booking events and slot commands share topic %q; the ingest consumer would read its own events", t.BookingEvents))
	}
	if t.DeadLetter != "" && (t.DeadLetter == t.BookingEvents || t.DeadLetter == t.SlotCommands) {
		errs = append(errs, fmt.Sprintf("DeadLetter topic %q must differ from the topics it guards", t.DeadLetter))
	}

	p := cfg.Producer
	positive("Producer.MaxAttempts", p.MaxAttempts > 0, p.MaxAttempts)
	positive("Producer.BatchTimeout", p.BatchTimeout > 0, p.BatchTimeout)
	if !slices.Contains(compressions, p.Compression) {
		errs = append(errs, fmt.Sprintf("Producer.Compression must be one of %v, got: %s", compressions, p.Compression))
	}
	if !slices.Contains(acks, p.RequiredAcks) {
		errs = append(errs, fmt.Sprintf("Producer.RequiredAcks must be -1, 0 or 1, got: %d", p.RequiredAcks))
	}

	c := cfg.Consumer
	if c.StartOffset != OffsetNewest && c.StartOffset != OffsetOldest {
		errs = append(errs, fmt.Sprintf("Consumer.StartOffset must be -1 (newest) or -2 (oldest), got: %d", c.StartOffset))
	}
	positive("Consumer.MinBytes", c.MinBytes > 0, c.MinBytes)
	if c.MaxBytes < c.MinBytes {
		errs = append(errs, fmt.Sprintf("Consumer.MaxBytes (%d) cannot be below MinBytes (%d)", c.MaxBytes, c.MinBytes))
	}
	positive("Consumer.MaxWait", c.MaxWait > 0, c.MaxWait)
	positive("Consumer.CommitInterval", c.CommitInterval > 0, c.CommitInterval)
	positive("Consumer.HeartbeatInterval", c.HeartbeatInterval > 0, c.HeartbeatInterval)
	if c.SessionTimeout <= c.HeartbeatInterval {
		errs = append(errs, fmt.Sprintf("Consumer.SessionTimeout (%s) must exceed HeartbeatInterval (%s)", c.SessionTimeout, c.HeartbeatInterval))
	}
	positive("Consumer.RebalanceTimeout", c.RebalanceTimeout > 0, c.RebalanceTimeout)
	if c.MaxRetries < 0 {
		errs = append(errs, fmt.Sprintf("Consumer.MaxRetries cannot be negative, got: %d", c.MaxRetries))
	}

	if len(errs) == 0 {
		return nil
	}
	msg := "Configuration validation failed:\n"
	for i, e := range errs {
		msg += fmt.Sprintf("  %d. %s\n", i+1, e)
	}
	return fmt.Errorf("%s", msg)
}

func (cfg *Config) LogConfiguration(log *logger.Logger) {
	log.Info("Kafka configuration loaded",
		"brokers", cfg.Brokers,
		"booking_events_topic", cfg.Topics.BookingEvents,
		"slot_commands_topic", cfg.Topics.SlotCommands,
		"slot_ingest_group", cfg.Topics.SlotIngestGroup,
		"dead_letter_topic", cfg.Topics.DeadLetter,
		"producer_required_acks", cfg.Producer.RequiredAcks,
		"producer_compression", cfg.Producer.Compression,
		"producer_async", cfg.Producer.Async,
		"consumer_start_offset", cfg.Consumer.StartOffset,
		"consumer_max_retries", cfg.Consumer.MaxRetries,
		"enable_middleware", cfg.EnableMiddleware,
	)
}

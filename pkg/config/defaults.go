package config

import "time"

const (
	StoreBackendMongo  = "mongo"
	StoreBackendMemory = "memory"
)

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "slotbook"
	DefaultMongoConnTimeout  = 10 * time.Second
	DefaultStoreBackend      = StoreBackendMongo

	DefaultPort     = "3000"
	DefaultLogLevel = "info"

	DefaultRateLimitRPS   = 20.0
	DefaultRateLimitBurst = 40

	DefaultRequestTimeout = 10 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 64 * 1024 // 64KB

	DefaultRedisDB = 0

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// Holds older than this are reclaimed by the reaper.
	DefaultLockTTL         = 2 * time.Minute
	DefaultReaperInterval  = 30 * time.Second
	DefaultReaperBatchSize = 100

	DefaultEventsEnabled = false
)

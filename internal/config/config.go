package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        string
	DatabaseURL string

	FloorPlanDBPath string

	DispatcherKind  string
	DispatcherURL   string
	DispatcherToken string
	SMSProvider     string
	EmailProvider   string

	WorkerInterval    time.Duration
	WorkerBatchSize   int
	WorkerMaxAttempts int

	RealtimePollInterval time.Duration
	RealtimeBatchSize    int

	BillingURL   string
	BillingToken string

	RateLimitPerMinute         int
	RateLimitBurst             int
	BusinessRateLimitPerMinute int
	BusinessRateLimitBurst     int
}

func Load() Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	floorPlanPath := os.Getenv("FLOORPLAN_DB_PATH")
	if floorPlanPath == "" {
		floorPlanPath = "floorplans.db"
	}

	return Config{
		Port:        port,
		DatabaseURL: os.Getenv("DB_DSN"),

		FloorPlanDBPath: floorPlanPath,

		DispatcherKind:  os.Getenv("DISPATCHER_KIND"),
		DispatcherURL:   os.Getenv("DISPATCHER_URL"),
		DispatcherToken: os.Getenv("DISPATCHER_TOKEN"),
		SMSProvider:     os.Getenv("SMS_PROVIDER"),
		EmailProvider:   os.Getenv("EMAIL_PROVIDER"),

		WorkerInterval:    readDurationSeconds("WORKER_INTERVAL_SECONDS", 5),
		WorkerBatchSize:   readInt("WORKER_BATCH_SIZE", 50),
		WorkerMaxAttempts: readInt("WORKER_MAX_ATTEMPTS", 3),

		RealtimePollInterval: readDurationSeconds("REALTIME_POLL_INTERVAL_SECONDS", 1),
		RealtimeBatchSize:    readInt("REALTIME_BATCH_SIZE", 100),

		BillingURL:   os.Getenv("BILLING_PROVIDER_URL"),
		BillingToken: os.Getenv("BILLING_PROVIDER_TOKEN"),

		RateLimitPerMinute:         readInt("RATE_LIMIT_PER_MIN", 120),
		RateLimitBurst:             readInt("RATE_LIMIT_BURST", 30),
		BusinessRateLimitPerMinute: readInt("BUSINESS_RATE_LIMIT_PER_MIN", 600),
		BusinessRateLimitBurst:     readInt("BUSINESS_RATE_LIMIT_BURST", 120),
	}
}

func readDurationSeconds(key string, fallback int) time.Duration {
	value := readInt(key, fallback)
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

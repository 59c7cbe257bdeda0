package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Storage. An empty DatabaseURL selects the in-memory store; an empty
	// RedisAddr disables the cache layer.
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string
	BatchSize    int

	// FIRMS satellite feed.
	FIRMSAPIKey   string
	FIRMSSource   string
	FIRMSArea     string
	FIRMSDayRange int
	FIRMSTimeout  time.Duration
	IngestCron    string

	// Detections outside this box are discarded before transform.
	IngestNorth float64
	IngestSouth float64
	IngestEast  float64
	IngestWest  float64

	ClusterRadius    float64
	ClusterMaxZoom   int
	ClusterMinPoints int

	// SnapshotPath, when set, persists the cluster index across restarts:
	// saved on shutdown, loaded on boot.
	SnapshotPath string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parseDuration("CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	firmsTimeout, err := parseDuration("FIRMS_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	redisDB, err := parseInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	batchSize, err := parseInt("BATCH_SIZE", 100)
	if err != nil {
		return nil, err
	}
	dayRange, err := parseInt("FIRMS_DAY_RANGE", 1)
	if err != nil {
		return nil, err
	}
	maxZoom, err := parseInt("CLUSTER_MAX_ZOOM", 16)
	if err != nil {
		return nil, err
	}
	minPoints, err := parseInt("CLUSTER_MIN_POINTS", 3)
	if err != nil {
		return nil, err
	}

	radius, err := parseFloat("CLUSTER_RADIUS", 60)
	if err != nil {
		return nil, err
	}
	north, err := parseFloat("INGEST_NORTH", 50)
	if err != nil {
		return nil, err
	}
	south, err := parseFloat("INGEST_SOUTH", 25)
	if err != nil {
		return nil, err
	}
	east, err := parseFloat("INGEST_EAST", -60)
	if err != nil {
		return nil, err
	}
	west, err := parseFloat("INGEST_WEST", -130)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,
		CacheTTL:      cacheTTL,

		KafkaBrokers: splitBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "fire-detections"),
		KafkaGroupID: envOrDefault("KAFKA_GROUP_ID", "wildfire-map-service"),
		BatchSize:    batchSize,

		FIRMSAPIKey:   os.Getenv("FIRMS_API_KEY"),
		FIRMSSource:   envOrDefault("FIRMS_SOURCE", "MODIS_NRT"),
		FIRMSArea:     envOrDefault("FIRMS_AREA", "world"),
		FIRMSDayRange: dayRange,
		FIRMSTimeout:  firmsTimeout,
		IngestCron:    envOrDefault("INGEST_CRON", "*/10 * * * *"),

		IngestNorth: north,
		IngestSouth: south,
		IngestEast:  east,
		IngestWest:  west,

		ClusterRadius:    radius,
		ClusterMaxZoom:   maxZoom,
		ClusterMinPoints: minPoints,

		SnapshotPath: os.Getenv("SNAPSHOT_PATH"),
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required")
	}
	if cfg.BatchSize <= 0 {
		return nil, errors.New("BATCH_SIZE must be positive")
	}
	if cfg.FIRMSDayRange < 1 || cfg.FIRMSDayRange > 10 {
		return nil, errors.New("FIRMS_DAY_RANGE must be between 1 and 10")
	}
	if cfg.IngestNorth <= cfg.IngestSouth {
		return nil, errors.New("INGEST_NORTH must be greater than INGEST_SOUTH")
	}
	if cfg.IngestEast <= cfg.IngestWest {
		return nil, errors.New("INGEST_EAST must be greater than INGEST_WEST")
	}
	if cfg.ClusterRadius <= 0 {
		return nil, errors.New("CLUSTER_RADIUS must be positive")
	}
	if cfg.ClusterMinPoints < 2 {
		return nil, errors.New("CLUSTER_MIN_POINTS must be at least 2")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return d, nil
}

func parseInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New("invalid " + key)
	}
	return n, nil
}

func parseFloat(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.New("invalid " + key)
	}
	return f, nil
}

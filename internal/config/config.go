package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Dataset source drivers.
const (
	SourceFile     = "file"
	SourceS3       = "s3"
	SourceDatabase = "database"
)

// HTTP holds HTTP server configuration.
type HTTP struct {
	Host      string
	Port      int
	// RateLimit is the sustained requests per second allowed per client on
	// the API routes. Zero disables limiting.
	RateLimit float64
	RateBurst int
}

// GRPC holds the optional gRPC health server configuration.
type GRPC struct {
	Enabled bool
	Host    string
	Port    int
}

// Dataset describes where the order spreadsheet lives and how it is read.
type Dataset struct {
	Source         string
	Path           string
	Sheet          string
	CancelledLabel string
	CheckInterval  time.Duration
	S3             S3
}

// S3 locates the spreadsheet in an S3 compatible bucket.
type S3 struct {
	Bucket   string
	Key      string
	Region   string
	Endpoint string
}

// Analysis holds the fixed statistical knobs used by every report.
type Analysis struct {
	Alpha           float64
	CancelTarget    float64
	DefaultLevel    float64
	MinLevel        float64
	MaxLevel        float64
	SampleSize      int
	MinorShareLimit float64
}

// Cache configures caching behavior and backend selection.
type Cache struct {
	Enabled    bool
	Driver     string
	DefaultTTL time.Duration
	Redis      Redis
}

// Redis contains redis-specific connection settings.
type Redis struct {
	Addr     string
	Password string
	DB       int
}

// Messaging configures the message bus used for dataset events.
type Messaging struct {
	Driver        string
	Enabled       bool
	Kafka         Kafka
	ConsumerGroup string
	Workers       Worker
}

// Kafka holds Kafka connection details.
type Kafka struct {
	Brokers        []string
	ClientID       string
	Topic          string
	CommitInterval time.Duration
	MinBytes       int
	MaxBytes       int
	ConnectTimeout time.Duration
}

// Worker configures background worker concurrency.
type Worker struct {
	Enabled     bool
	Concurrency int
}

// Database holds the order table connection settings.
type Database struct {
	Driver          string
	WriterDSN       string
	ReaderDSN       string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
}

// Observability contains logging, tracing, and metrics configuration.
type Observability struct {
	ServiceName     string
	Environment     string
	LogLevel        string
	LogEncoding     string
	EnableTracing   bool
	TraceExporter   string
	TraceEndpoint   string
	TraceInsecure   bool
	EnableMetrics   bool
	MetricsExporter string
	PrometheusPath  string
}

// Config wraps all application configuration knobs.
type Config struct {
	HTTP          HTTP
	GRPC          GRPC
	Dataset       Dataset
	Analysis      Analysis
	Cache         Cache
	Messaging     Messaging
	Database      Database
	Observability Observability
}

// Module wires the configuration loader into the Fx graph.
var Module = fx.Provide(New)

var loadEnvOnce sync.Once

// New builds a Config from environment variables or defaults.
func New() (Config, error) {
	loadEnvOnce.Do(func() {
		_ = godotenv.Load()
	})

	cfg := Config{
		HTTP: HTTP{
			Host:      getEnv("HTTP_HOST", "0.0.0.0"),
			Port:      getEnvAsInt("HTTP_PORT", 8080),
			RateLimit: getEnvAsFloat("HTTP_RATE_LIMIT", 0),
			RateBurst: getEnvAsInt("HTTP_RATE_BURST", 20),
		},
		GRPC: GRPC{
			Enabled: getEnvAsBool("GRPC_ENABLED", false),
			Host:    getEnv("GRPC_HOST", "0.0.0.0"),
			Port:    getEnvAsInt("GRPC_PORT", 9090),
		},
		Dataset: Dataset{
			Source:         getEnv("DATASET_SOURCE", SourceFile),
			Path:           getEnv("DATASET_PATH", "df_selecionado.xlsx"),
			Sheet:          getEnv("DATASET_SHEET", ""),
			CancelledLabel: getEnv("DATASET_CANCELLED_LABEL", "Cancelado"),
			CheckInterval:  getEnvAsDuration("DATASET_CHECK_INTERVAL", 5*time.Second),
			S3: S3{
				Bucket:   getEnv("DATASET_S3_BUCKET", ""),
				Key:      getEnv("DATASET_S3_KEY", ""),
				Region:   getEnv("AWS_REGION", ""),
				Endpoint: getEnv("AWS_S3_ENDPOINT", ""),
			},
		},
		Analysis: Analysis{
			Alpha:           getEnvAsFloat("ANALYSIS_ALPHA", 0.05),
			CancelTarget:    getEnvAsFloat("ANALYSIS_CANCEL_TARGET", 0.10),
			DefaultLevel:    getEnvAsFloat("ANALYSIS_DEFAULT_LEVEL", 0.95),
			MinLevel:        getEnvAsFloat("ANALYSIS_MIN_LEVEL", 0.80),
			MaxLevel:        getEnvAsFloat("ANALYSIS_MAX_LEVEL", 0.99),
			SampleSize:      getEnvAsInt("ANALYSIS_SAMPLE_SIZE", 5),
			MinorShareLimit: getEnvAsFloat("ANALYSIS_MINOR_SHARE", 0.05),
		},
		Cache: Cache{
			Enabled:    getEnvAsBool("CACHE_ENABLED", false),
			Driver:     getEnv("CACHE_DRIVER", "redis"),
			DefaultTTL: getEnvAsDuration("CACHE_DEFAULT_TTL", time.Minute*5),
			Redis: Redis{
				Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
				Password: getEnv("REDIS_PASSWORD", ""),
				DB:       getEnvAsInt("REDIS_DB", 0),
			},
		},
		Messaging: Messaging{
			Driver:  getEnv("MESSAGING_DRIVER", "kafka"),
			Enabled: getEnvAsBool("MESSAGING_ENABLED", false),
			Kafka: Kafka{
				Brokers:        getEnvAsStringSlice("KAFKA_BROKERS", []string{"127.0.0.1:9092"}),
				ClientID:       getEnv("KAFKA_CLIENT_ID", "salesboard"),
				Topic:          getEnv("KAFKA_TOPIC", "dataset.events"),
				CommitInterval: getEnvAsDuration("KAFKA_COMMIT_INTERVAL", time.Second),
				MinBytes:       getEnvAsInt("KAFKA_MIN_BYTES", 10e3),
				MaxBytes:       getEnvAsInt("KAFKA_MAX_BYTES", 10e6),
				ConnectTimeout: getEnvAsDuration("KAFKA_CONNECT_TIMEOUT", 5*time.Second),
			},
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "salesboard-worker"),
			Workers: Worker{
				Enabled:     getEnvAsBool("WORKER_ENABLED", true),
				Concurrency: getEnvAsInt("WORKER_CONCURRENCY", 1),
			},
		},
		Database: Database{
			Driver:          getEnv("DB_DRIVER", "postgres"),
			WriterDSN:       getEnv("DB_WRITER_DSN", ""),
			ReaderDSN:       getEnv("DB_READER_DSN", ""),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", time.Minute*5),
		},
		Observability: Observability{
			ServiceName:     getEnv("OBS_SERVICE_NAME", "salesboard"),
			Environment:     getEnv("OBS_ENVIRONMENT", "local"),
			LogLevel:        getEnv("OBS_LOG_LEVEL", "info"),
			LogEncoding:     getEnv("OBS_LOG_ENCODING", "json"),
			EnableTracing:   getEnvAsBool("OBS_ENABLE_TRACING", false),
			TraceExporter:   getEnv("OBS_TRACE_EXPORTER", "stdout"),
			TraceEndpoint:   getEnv("OBS_OTLP_ENDPOINT", "localhost:4317"),
			TraceInsecure:   getEnvAsBool("OBS_OTLP_INSECURE", true),
			EnableMetrics:   getEnvAsBool("OBS_ENABLE_METRICS", true),
			MetricsExporter: getEnv("OBS_METRICS_EXPORTER", "prometheus"),
			PrometheusPath:  getEnv("OBS_PROMETHEUS_PATH", "/metrics"),
		},
	}

	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg *Config) normalize() error {
	if cfg.HTTP.Port <= 0 {
		return fmt.Errorf("invalid HTTP port: %d", cfg.HTTP.Port)
	}
	if cfg.HTTP.RateLimit < 0 {
		return fmt.Errorf("HTTP_RATE_LIMIT must not be negative, got %v", cfg.HTTP.RateLimit)
	}
	if cfg.HTTP.RateLimit > 0 && cfg.HTTP.RateBurst < 1 {
		cfg.HTTP.RateBurst = 1
	}
	if cfg.GRPC.Enabled && cfg.GRPC.Port <= 0 {
		return fmt.Errorf("invalid gRPC port: %d", cfg.GRPC.Port)
	}

	cfg.Dataset.Source = strings.ToLower(strings.TrimSpace(cfg.Dataset.Source))
	switch cfg.Dataset.Source {
	case SourceFile:
		if cfg.Dataset.Path == "" {
			return fmt.Errorf("DATASET_PATH must be provided for the file source")
		}
	case SourceS3:
		if cfg.Dataset.S3.Bucket == "" || cfg.Dataset.S3.Key == "" {
			return fmt.Errorf("DATASET_S3_BUCKET and DATASET_S3_KEY must be provided for the s3 source")
		}
	case SourceDatabase:
		if cfg.Database.WriterDSN == "" {
			return fmt.Errorf("missing DB_WRITER_DSN for the database source")
		}
	default:
		return fmt.Errorf("unsupported dataset source: %s", cfg.Dataset.Source)
	}
	if strings.TrimSpace(cfg.Dataset.CancelledLabel) == "" {
		return fmt.Errorf("DATASET_CANCELLED_LABEL must not be empty")
	}
	if cfg.Dataset.CheckInterval < 0 {
		cfg.Dataset.CheckInterval = 0
	}

	a := &cfg.Analysis
	if a.Alpha <= 0 || a.Alpha >= 1 {
		return fmt.Errorf("ANALYSIS_ALPHA must be in (0,1), got %v", a.Alpha)
	}
	if a.MinLevel <= 0 || a.MaxLevel >= 1 || a.MinLevel > a.MaxLevel {
		return fmt.Errorf("invalid confidence level bounds [%v, %v]", a.MinLevel, a.MaxLevel)
	}
	if a.DefaultLevel < a.MinLevel || a.DefaultLevel > a.MaxLevel {
		return fmt.Errorf("ANALYSIS_DEFAULT_LEVEL %v outside [%v, %v]", a.DefaultLevel, a.MinLevel, a.MaxLevel)
	}
	if a.CancelTarget < 0 || a.CancelTarget > 1 {
		return fmt.Errorf("ANALYSIS_CANCEL_TARGET must be in [0,1], got %v", a.CancelTarget)
	}
	if a.SampleSize <= 0 {
		a.SampleSize = 5
	}
	if a.MinorShareLimit < 0 {
		a.MinorShareLimit = 0
	}

	if !cfg.Cache.Enabled {
		cfg.Cache.Driver = "noop"
	}
	switch cfg.Cache.Driver {
	case "redis", "memory", "noop":
	default:
		return fmt.Errorf("unsupported cache driver: %s", cfg.Cache.Driver)
	}
	if cfg.Cache.Driver == "redis" && cfg.Cache.Redis.Addr == "" {
		return fmt.Errorf("missing REDIS_ADDR for redis cache")
	}
	if cfg.Cache.DefaultTTL < 0 {
		cfg.Cache.DefaultTTL = time.Minute * 5
	}

	o := &cfg.Observability
	o.LogLevel = lowerOr(o.LogLevel, "info")
	o.LogEncoding = lowerOr(o.LogEncoding, "json")
	o.TraceExporter = lowerOr(o.TraceExporter, "stdout")
	o.MetricsExporter = lowerOr(o.MetricsExporter, "prometheus")
	if o.PrometheusPath == "" {
		o.PrometheusPath = "/metrics"
	} else if !strings.HasPrefix(o.PrometheusPath, "/") {
		o.PrometheusPath = "/" + o.PrometheusPath
	}

	if !cfg.Messaging.Enabled {
		cfg.Messaging.Driver = "noop"
	}
	switch cfg.Messaging.Driver {
	case "kafka", "memory", "noop":
	default:
		return fmt.Errorf("unsupported messaging driver: %s", cfg.Messaging.Driver)
	}
	if cfg.Messaging.Driver == "kafka" {
		if len(cfg.Messaging.Kafka.Brokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS must be provided")
		}
		if cfg.Messaging.Kafka.Topic == "" {
			return fmt.Errorf("KAFKA_TOPIC must be provided")
		}
		if cfg.Messaging.ConsumerGroup == "" {
			return fmt.Errorf("KAFKA_CONSUMER_GROUP must be provided")
		}
	}
	if cfg.Messaging.Workers.Concurrency <= 0 {
		cfg.Messaging.Workers.Concurrency = 1
	}

	if cfg.Database.ReaderDSN == "" {
		cfg.Database.ReaderDSN = cfg.Database.WriterDSN
	}
	return nil
}

func lowerOr(value, fallback string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return fallback
	}
	return value
}

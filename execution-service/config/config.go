package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/grupo99/execution-system/shared/resilience"
	"github.com/grupo99/execution-system/shared/saga"
	"github.com/spf13/viper"
)

// Store drivers
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	ServiceName string    `mapstructure:"service_name"`
	Env         string    `mapstructure:"env"`
	Port        string    `mapstructure:"port"`
	LogLevel    string    `mapstructure:"log_level"`
	StoreDriver string    `mapstructure:"store_driver"`
	Database    Database  `mapstructure:"database"`
	AWS         AWS       `mapstructure:"aws"`
	Consumer    Consumer  `mapstructure:"consumer"`
	Publisher   Publisher `mapstructure:"publisher"`
	Redis       Redis     `mapstructure:"redis"`
	Telemetry   Telemetry `mapstructure:"telemetry"`
}

type Database struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	Database    string `mapstructure:"database"`
	SSLMode     string `mapstructure:"ssl_mode"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

type AWS struct {
	Region             string `mapstructure:"region"`
	EndpointSNS        string `mapstructure:"endpoint_sns"`
	EndpointSQS        string `mapstructure:"endpoint_sqs"`
	ExecutionTopicArn  string `mapstructure:"execution_topic_arn"`
	OrderQueueURL      string `mapstructure:"order_queue_url"`
	BillingQueueURL    string `mapstructure:"billing_queue_url"`
	OrderDLTQueueURL   string `mapstructure:"order_dlt_queue_url"`
	BillingDLTQueueURL string `mapstructure:"billing_dlt_queue_url"`
}

// Consumer configures both inbound channels and their redelivery policy
type Consumer struct {
	OrderWorkers      int32         `mapstructure:"order_workers"`
	BillingWorkers    int32         `mapstructure:"billing_workers"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	MaxElapsed        time.Duration `mapstructure:"max_elapsed"`
	BackoffInitial    time.Duration `mapstructure:"backoff_initial"`
	BackoffMax        time.Duration `mapstructure:"backoff_max"`
	VisibilityTimeout int32         `mapstructure:"visibility_timeout"`
	WaitTimeSeconds   int32         `mapstructure:"wait_time_seconds"`
}

// Publisher configures retry and circuit breaking of outbound events
type Publisher struct {
	RetryAttempts        int           `mapstructure:"retry_attempts"`
	BackoffInitial       time.Duration `mapstructure:"backoff_initial"`
	BackoffMax           time.Duration `mapstructure:"backoff_max"`
	MaxElapsed           time.Duration `mapstructure:"max_elapsed"`
	BreakerWindow        int           `mapstructure:"breaker_window"`
	BreakerMinimumCalls  int           `mapstructure:"breaker_minimum_calls"`
	BreakerFailureRate   float64       `mapstructure:"breaker_failure_rate"`
	BreakerOpenDuration  time.Duration `mapstructure:"breaker_open_duration"`
	BreakerHalfOpenCalls int           `mapstructure:"breaker_half_open_calls"`
}

type Redis struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type Telemetry struct {
	Enabled      bool    `mapstructure:"enabled"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

func ReadConfig() (*Config, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return nil, fmt.Errorf("unable to get current file")
	}

	viper.SetConfigName(getConfigName())
	viper.SetConfigType("json")
	viper.AddConfigPath(filepath.Dir(filename))

	// EXECUTION_DATABASE_HOST overrides database.host
	viper.SetEnvPrefix("EXECUTION")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func getConfigName() string {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		return "local"
	}
	return env
}

func setDefaults() {
	viper.SetDefault("service_name", "execution-service")
	viper.SetDefault("env", getEnv("ENV", "local"))
	viper.SetDefault("port", getEnv("PORT", "8080"))
	viper.SetDefault("log_level", "info")
	viper.SetDefault("store_driver", StoreDriverPostgres)

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "password")
	viper.SetDefault("database.database", "execution_service")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.auto_migrate", true)

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		viper.Set("database.url", dbURL)
	}

	viper.SetDefault("aws.region", getEnv("AWS_DEFAULT_REGION", "us-east-1"))
	viper.SetDefault("aws.endpoint_sns", getEnv("AWS_ENDPOINT_URL_SNS", ""))
	viper.SetDefault("aws.endpoint_sqs", getEnv("AWS_ENDPOINT_URL_SQS", ""))
	viper.SetDefault("aws.execution_topic_arn", "arn:aws:sns:us-east-1:000000000000:execution-events.fifo")
	viper.SetDefault("aws.order_queue_url", "http://localhost:4566/000000000000/execution-os-events.fifo")
	viper.SetDefault("aws.billing_queue_url", "http://localhost:4566/000000000000/execution-billing-events.fifo")
	viper.SetDefault("aws.order_dlt_queue_url", "http://localhost:4566/000000000000/os-events-DLT")
	viper.SetDefault("aws.billing_dlt_queue_url", "http://localhost:4566/000000000000/billing-events-DLT")

	viper.SetDefault("consumer.order_workers", 3)
	viper.SetDefault("consumer.billing_workers", 2)
	viper.SetDefault("consumer.max_attempts", 4)
	viper.SetDefault("consumer.max_elapsed", "30s")
	viper.SetDefault("consumer.backoff_initial", "1s")
	viper.SetDefault("consumer.backoff_max", "16s")
	viper.SetDefault("consumer.visibility_timeout", 30)
	viper.SetDefault("consumer.wait_time_seconds", 20)

	viper.SetDefault("publisher.retry_attempts", 3)
	viper.SetDefault("publisher.backoff_initial", "500ms")
	viper.SetDefault("publisher.backoff_max", "4s")
	viper.SetDefault("publisher.max_elapsed", "10s")
	viper.SetDefault("publisher.breaker_window", 10)
	viper.SetDefault("publisher.breaker_minimum_calls", 5)
	viper.SetDefault("publisher.breaker_failure_rate", 50)
	viper.SetDefault("publisher.breaker_open_duration", "30s")
	viper.SetDefault("publisher.breaker_half_open_calls", 3)

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.ttl", "24h")

	viper.SetDefault("telemetry.enabled", true)
	viper.SetDefault("telemetry.otlp_endpoint", "localhost:4318")
	viper.SetDefault("telemetry.sample_ratio", 1.0)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Validate rejects settings the service cannot run with
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}

	if c.Consumer.OrderWorkers < 1 || c.Consumer.BillingWorkers < 1 {
		return fmt.Errorf("consumer workers must be at least 1")
	}
	if c.Consumer.MaxAttempts < 1 {
		return fmt.Errorf("consumer max attempts must be at least 1")
	}
	if c.Publisher.BreakerFailureRate <= 0 || c.Publisher.BreakerFailureRate > 100 {
		return fmt.Errorf("publisher breaker failure rate must be in (0, 100]")
	}
	return nil
}

// GetDatabaseURL constructs database URL from config
func (c *Config) GetDatabaseURL() string {
	if url := viper.GetString("database.url"); url != "" {
		return url
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// RedeliveryPolicy bounds how often a failing inbound message is redelivered
func (c *Config) RedeliveryPolicy() saga.RedeliveryPolicy {
	return saga.RedeliveryPolicy{
		MaxAttempts: c.Consumer.MaxAttempts,
		MaxElapsed:  c.Consumer.MaxElapsed,
		Backoff: resilience.RetryConfig{
			MaxAttempts:     c.Consumer.MaxAttempts,
			InitialInterval: c.Consumer.BackoffInitial,
			MaxInterval:     c.Consumer.BackoffMax,
		},
	}
}

// PublisherRetry is the in-process retry applied to each outbound event
func (c *Config) PublisherRetry() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:     c.Publisher.RetryAttempts,
		InitialInterval: c.Publisher.BackoffInitial,
		MaxInterval:     c.Publisher.BackoffMax,
		MaxElapsed:      c.Publisher.MaxElapsed,
	}
}

func (c *Config) Breaker() resilience.BreakerConfig {
	return resilience.BreakerConfig{
		WindowSize:           c.Publisher.BreakerWindow,
		MinimumCalls:         c.Publisher.BreakerMinimumCalls,
		FailureRateThreshold: c.Publisher.BreakerFailureRate,
		OpenDuration:         c.Publisher.BreakerOpenDuration,
		HalfOpenMaxCalls:     c.Publisher.BreakerHalfOpenCalls,
	}
}

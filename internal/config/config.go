package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/condohub/billing/internal/types"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Postgres   PostgresConfig   `validate:"required"`
	Cache      CacheConfig
	Redis      RedisConfig
	Billing    BillingConfig `validate:"required"`
	NFSe       NFSeConfig
	Stripe     StripeConfig
	PubSub     PubSubConfig
	Kafka      KafkaConfig
	S3         S3Config
	Sentry     SentryConfig
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
}

type ServerConfig struct {
	Address string `validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

type PostgresConfig struct {
	Host                   string
	Port                   int
	User                   string
	Password               string
	DBName                 string `mapstructure:"dbname"`
	SSLMode                string `mapstructure:"sslmode"`
	MaxOpenConns           int    `mapstructure:"max_open_conns"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes"`
	AutoMigrate            bool   `mapstructure:"auto_migrate"`
}

type CacheConfig struct {
	Enabled bool
	Backend types.CacheBackend
	TTL     time.Duration
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

type BillingConfig struct {
	DefaultCurrency    string `mapstructure:"default_currency" validate:"required,len=3"`
	InvoiceDueDays     int    `mapstructure:"invoice_due_days" validate:"gte=0"`
	GracePeriodDays    int    `mapstructure:"grace_period_days" validate:"gte=0"`
	DunningSchedule    string `mapstructure:"dunning_schedule"`
	DunningEnabled     bool   `mapstructure:"dunning_enabled"`
	EventsTopic        string `mapstructure:"events_topic"`
	PaymentGateway     string `mapstructure:"payment_gateway"`
	NFSeOnPaid         bool   `mapstructure:"nfse_on_paid"`
	ServiceDescription string `mapstructure:"service_description"`
}

type NFSeConfig struct {
	BaseURL          string  `mapstructure:"base_url"`
	APIKey           string  `mapstructure:"api_key"`
	WebhookSecret    string  `mapstructure:"webhook_secret"`
	EmitterCNPJ      string  `mapstructure:"emitter_cnpj"`
	MunicipalCode    string  `mapstructure:"municipal_code"`
	ServiceCode      string  `mapstructure:"service_code"`
	DefaultISSRate   string  `mapstructure:"default_iss_rate"`
	RequestsPerSec   float64 `mapstructure:"requests_per_second"`
	TimeoutSeconds   int     `mapstructure:"timeout_seconds"`
	MaxRetries       int     `mapstructure:"max_retries"`
	SignatureMaxSkew int     `mapstructure:"signature_max_skew_seconds"`
}

type StripeConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
}

type PubSubConfig struct {
	Type types.PubSubType
}

type KafkaConfig struct {
	Brokers       []string
	ConsumerGroup string `mapstructure:"consumer_group"`
}

type S3Config struct {
	Enabled bool
	Region  string
	Bucket  string
	Prefix  string
}

type SentryConfig struct {
	Enabled     bool
	DSN         string
	Environment string
	SampleRate  float64 `mapstructure:"sample_rate"`
}

func NewConfig() (*Configuration, error) {
	// .env is optional and only meant for local development
	_ = godotenv.Load()

	v := viper.New()

	// Modify config paths to ensure config.yaml is found
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/condohub-billing")

	// Set up environment variables support
	v.SetEnvPrefix("BILLING")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file if exists
	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", types.ModeLocal)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("logging.level", types.LogLevelInfo)
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_open_conns", 20)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("postgres.conn_max_lifetime_minutes", 30)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.backend", types.CacheBackendMemory)
	v.SetDefault("cache.ttl", 10*time.Minute)
	v.SetDefault("billing.default_currency", "BRL")
	v.SetDefault("billing.invoice_due_days", 5)
	v.SetDefault("billing.grace_period_days", 7)
	v.SetDefault("billing.dunning_schedule", "0 3 * * *")
	v.SetDefault("billing.dunning_enabled", true)
	v.SetDefault("billing.events_topic", "billing.events")
	v.SetDefault("billing.payment_gateway", "stripe")
	v.SetDefault("billing.service_description", "Licenca de uso de software de gestao condominial")
	v.SetDefault("nfse.default_iss_rate", "5.00")
	v.SetDefault("nfse.requests_per_second", 5)
	v.SetDefault("nfse.timeout_seconds", 30)
	v.SetDefault("nfse.max_retries", 3)
	v.SetDefault("nfse.signature_max_skew_seconds", 300)
	v.SetDefault("pubsub.type", types.MemoryPubSub)
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a default configuration for local development
// This is useful for running scripts or other non-web applications
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Server:     ServerConfig{Address: ":8080"},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Cache: CacheConfig{
			Enabled: true,
			Backend: types.CacheBackendMemory,
			TTL:     10 * time.Minute,
		},
		Billing: BillingConfig{
			DefaultCurrency: "BRL",
			InvoiceDueDays:  5,
			GracePeriodDays: 7,
			DunningSchedule: "0 3 * * *",
			EventsTopic:     "billing.events",
			PaymentGateway:  "stripe",
		},
		NFSe: NFSeConfig{
			DefaultISSRate: "5.00",
			RequestsPerSec: 5,
			TimeoutSeconds: 30,
			MaxRetries:     3,
		},
		PubSub: PubSubConfig{Type: types.MemoryPubSub},
	}
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User,
		c.Password,
		c.DBName,
		c.Host,
		c.Port,
		c.SSLMode,
	)
}

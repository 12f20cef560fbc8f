package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

var (
	ErrMissingDSN       = errors.New("postgres dsn is required")
	ErrMissingJWTSecret = errors.New("jwt secret is required")
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	MaxUploadMB  int64
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

// RedisConfig is optional. An empty Addr disables the task stream and the
// scheduler runs cleanup in-process instead.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	Group    string
	Consumer string
}

type StorageConfig struct {
	Endpoint   string
	PublicURL  string
	AccessKey  string
	SecretKey  string
	BucketName string
	UseSSL     bool
	Region     string
}

// Configured reports whether enough is set to talk to a real object store.
func (s StorageConfig) Configured() bool {
	return s.Endpoint != "" && s.AccessKey != "" && s.SecretKey != ""
}

type SecurityConfig struct {
	JWTSecret         string
	TokenTTL          time.Duration
	BcryptCost        int
	LegacyPlaintext   bool
	ResetTokenTTL     time.Duration
	OTPTTL            time.Duration
	SeedAdminEmail    string
	SeedAdminPassword string
	SeedAdminName     string
}

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (m MailConfig) Configured() bool {
	return m.Host != "" && m.Username != "" && m.Password != ""
}

type CronConfig struct {
	Secret          string
	CleanupSchedule string
	QueueTimeout    time.Duration
	ClaimInterval   time.Duration
}

type BookingConfig struct {
	EnforceTransitions bool
}

// EventsConfig configures the optional RabbitMQ publisher. DialTimeout
// bounds each connection attempt on the request path; after a failed attempt
// publishing is skipped for RetryBackoff.
type EventsConfig struct {
	AMQPURL      string
	Exchange     string
	DialTimeout  time.Duration
	RetryBackoff time.Duration
}

type AppConfig struct {
	Environment      string
	FrontendURL      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Security         SecurityConfig
	Mail             MailConfig
	Cron             CronConfig
	Bookings         BookingConfig
	Events           EventsConfig
	AllowCORSOrigins []string
}

func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

func Load() (*AppConfig, error) {
	// .env is a convenience for local runs; real deployments inject env vars.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("STUDIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		return ErrMissingDSN
	}
	if strings.TrimSpace(c.Security.JWTSecret) == "" {
		return ErrMissingJWTSecret
	}
	if c.Security.BcryptCost < 4 || c.Security.BcryptCost > 31 {
		return fmt.Errorf("security.bcryptcost out of range: %d", c.Security.BcryptCost)
	}
	c.FrontendURL = strings.TrimSuffix(c.FrontendURL, "/")
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("frontendurl", "http://localhost:3000")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "30s")
	v.SetDefault("http.writetimeout", "60s")
	v.SetDefault("http.idletimeout", "60s")
	v.SetDefault("http.maxuploadmb", 64)

	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 5)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.stream", "studio:tasks")
	v.SetDefault("redis.group", "studio-workers")
	v.SetDefault("redis.consumer", "worker-1")

	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.publicurl", "")
	v.SetDefault("storage.accesskey", "")
	v.SetDefault("storage.secretkey", "")
	v.SetDefault("storage.bucketname", "studio-galleries")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("security.jwtsecret", "")
	v.SetDefault("security.tokenttl", "24h")
	v.SetDefault("security.bcryptcost", 10)
	v.SetDefault("security.legacyplaintext", true)
	v.SetDefault("security.resettokenttl", "1h")
	v.SetDefault("security.otpttl", "10m")
	v.SetDefault("security.seedadminemail", "")
	v.SetDefault("security.seedadminpassword", "")
	v.SetDefault("security.seedadminname", "Studio Admin")

	v.SetDefault("mail.host", "")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "")

	v.SetDefault("cron.secret", "")
	v.SetDefault("cron.cleanupschedule", "0 0 * * * *") // hourly
	v.SetDefault("cron.queuetimeout", "5s")
	v.SetDefault("cron.claiminterval", "30s")

	v.SetDefault("bookings.enforcetransitions", true)

	v.SetDefault("events.amqpurl", "")
	v.SetDefault("events.exchange", "studio.events")
	v.SetDefault("events.dialtimeout", "2s")
	v.SetDefault("events.retrybackoff", "30s")

	v.SetDefault("allowcorsorigins", []string{})
}

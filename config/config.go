package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Env      string         `yaml:"env"`
	HTTP     HTTPConfig     `yaml:"http"`
	GRPC     GRPCConfig     `yaml:"grpc"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Auth     AuthConfig     `yaml:"auth"`
	Booking  BookingConfig  `yaml:"booking"`
	Receipts ReceiptsConfig `yaml:"receipts"`
	Worker   WorkerConfig   `yaml:"worker"`
}

type HTTPConfig struct {
	Address           string `yaml:"address"`
	SwaggerDir        string `yaml:"swagger_dir"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
}

type GRPCConfig struct {
	Address string `yaml:"address"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int32  `yaml:"max_conns"`
	Migrate  bool   `yaml:"migrate"`
}

func (d DatabaseConfig) DSN() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
	if d.MaxConns > 0 {
		dsn += fmt.Sprintf(" pool_max_conns=%d", d.MaxConns)
	}
	return dsn
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	JobsDB   int    `yaml:"jobs_db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	BookingEventsTopic string   `yaml:"booking_events_topic"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
}

type AuthConfig struct {
	JWTSecret     string `yaml:"jwt_secret"`
	TokenTTLHours int    `yaml:"token_ttl_hours"`
}

func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLHours) * time.Hour
}

type BookingConfig struct {
	FlightsCacheTTL int `yaml:"flights_cache_ttl_seconds"`
}

func (b BookingConfig) CacheTTL() time.Duration {
	return time.Duration(b.FlightsCacheTTL) * time.Second
}

// Receipt dispatch modes.
const (
	DispatchAsynq = "asynq"
	DispatchLocal = "local"
)

type ReceiptsConfig struct {
	Dir                string `yaml:"dir"`
	Dispatch           string `yaml:"dispatch"`
	GenerateTimeoutSec int    `yaml:"generate_timeout_seconds"`
}

func (r ReceiptsConfig) GenerateTimeout() time.Duration {
	return time.Duration(r.GenerateTimeoutSec) * time.Second
}

type WorkerConfig struct {
	Concurrency              int `yaml:"concurrency"`
	ReceiptSweepMinutes      int `yaml:"receipt_sweep_minutes"`
	ReceiptBackfillAfterMins int `yaml:"receipt_backfill_after_minutes"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Default returns the configuration used for keys missing from the file.
func Default() *Config {
	return &Config{
		Env: "development",
		HTTP: HTTPConfig{
			Address:           ":3000",
			SwaggerDir:        "docs",
			RequestsPerMinute: 600,
		},
		GRPC: GRPCConfig{Address: ":9090"},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    "postgres",
			Name:    "flight_booking",
			SSLMode: "disable",
		},
		Redis: RedisConfig{Addr: "localhost:6379", JobsDB: 1},
		Kafka: KafkaConfig{
			BookingEventsTopic: "booking-events",
			NotificationsTopic: "booking-notifications",
			GroupID:            "flight-booking-worker",
		},
		Auth:     AuthConfig{TokenTTLHours: 24},
		Booking:  BookingConfig{FlightsCacheTTL: 60},
		Receipts: ReceiptsConfig{Dir: "receipts", Dispatch: DispatchLocal, GenerateTimeoutSec: 30},
		Worker: WorkerConfig{
			Concurrency:              10,
			ReceiptSweepMinutes:      5,
			ReceiptBackfillAfterMins: 10,
		},
	}
}

func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv("DATABASE_PASSWORD"); ok {
		cfg.Database.Password = v
	}
	if v, ok := os.LookupEnv("JWT_SECRET"); ok {
		cfg.Auth.JWTSecret = v
	}
}

func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if c.Auth.TokenTTLHours <= 0 {
		return errors.New("auth.token_ttl_hours must be positive")
	}
	if c.Receipts.Dispatch != DispatchAsynq && c.Receipts.Dispatch != DispatchLocal {
		return fmt.Errorf("receipts.dispatch must be %q or %q", DispatchAsynq, DispatchLocal)
	}
	if c.Receipts.GenerateTimeoutSec <= 0 {
		return errors.New("receipts.generate_timeout_seconds must be positive")
	}
	if c.Worker.ReceiptSweepMinutes <= 0 {
		return errors.New("worker.receipt_sweep_minutes must be positive")
	}
	if c.Worker.ReceiptBackfillAfterMins <= 0 {
		return errors.New("worker.receipt_backfill_after_minutes must be positive")
	}
	if c.Booking.FlightsCacheTTL <= 0 {
		return errors.New("booking.flights_cache_ttl_seconds must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Package config loads application configuration from environment
// variables.  A .env file in the working directory is read first when
// present; real environment variables win over it.
package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Ledger and lock drivers.
const (
	DriverMySQL  = "mysql"
	DriverMemory = "memory"

	LockNone  = "none"
	LockLocal = "local"
	LockRedis = "redis"
)

// Config holds all runtime configuration values.
type Config struct {
	Env      string         // application environment (development, production)
	Port     string         // HTTP port to listen on
	Timezone *time.Location // theatre time zone; session dates and times are read in it
	LogLevel string

	DB      DBConfig
	JWT     JWTConfig
	Booking BookingConfig

	RabbitURL string // empty disables event publishing
	AuditDir  string // directory of the ticket event audit log; empty disables the consumer
	SeedFile  string // JSON catalogue loaded by the memory driver
}

// DBConfig is the MySQL connection.  Only read when the ledger driver is
// mysql.
type DBConfig struct {
	User string
	Pass string
	Host string
	Port string
	Name string

	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// JWTConfig signs and verifies access tokens.
type JWTConfig struct {
	Secret    string
	AccessTTL time.Duration
}

// BookingConfig selects the ledger and seat lock implementations.
type BookingConfig struct {
	LedgerDriver   string        // mysql or memory
	LockDriver     string        // none, local or redis
	LockWait       time.Duration // bounded wait for a seat lock
	LockTTL        time.Duration // expiry of a redis seat lock
	ReservationTTL time.Duration // zero keeps unpaid reservations forever
	SweepInterval  time.Duration
}

// Load reads the configuration.  Required variables are enforced by must()
// and missing values halt the program.
func Load() Config {
	// Missing .env is fine.
	_ = godotenv.Load()

	cfg := Config{
		Env:       envStr("APP_ENV", "development"),
		Port:      envStr("APP_PORT", "8080"),
		Timezone:  mustLocation("APP_TIMEZONE", "UTC"),
		LogLevel:  envStr("LOG_LEVEL", "info"),
		RabbitURL: os.Getenv("RABBITMQ_URL"),
		AuditDir:  os.Getenv("AUDIT_LOG_DIR"),
		SeedFile:  os.Getenv("SEED_FILE"),
		JWT: JWTConfig{
			Secret:    must("JWT_SECRET"),
			AccessTTL: time.Duration(envInt("ACCESS_TOKEN_TTL_MIN", 15)) * time.Minute,
		},
		Booking: BookingConfig{
			LedgerDriver:   strings.ToLower(envStr("LEDGER_DRIVER", DriverMySQL)),
			LockDriver:     strings.ToLower(envStr("LOCK_DRIVER", LockNone)),
			LockWait:       envDur("LOCK_WAIT", 2*time.Second),
			LockTTL:        envDur("LOCK_TTL", 5*time.Second),
			ReservationTTL: envDur("RESERVATION_TTL", 0),
			SweepInterval:  envDur("SWEEP_INTERVAL", time.Minute),
		},
	}
	if cfg.Booking.LedgerDriver == DriverMySQL {
		cfg.DB = DBConfig{
			User: must("DB_USER"),
			Pass: os.Getenv("DB_PASS"),
			Host: must("DB_HOST"),
			Port: must("DB_PORT"),
			Name: must("DB_NAME"),

			MaxOpenConns:    envInt("DB_MAX_OPEN_CONNS", 25),
			ConnMaxLifetime: envDur("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		}
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

// Validate rejects unknown drivers and nonsensical durations.
func (c Config) Validate() error {
	switch c.Booking.LedgerDriver {
	case DriverMySQL, DriverMemory:
	default:
		return fmt.Errorf("unknown LEDGER_DRIVER %q", c.Booking.LedgerDriver)
	}
	switch c.Booking.LockDriver {
	case LockNone, LockLocal, LockRedis:
	default:
		return fmt.Errorf("unknown LOCK_DRIVER %q", c.Booking.LockDriver)
	}
	if c.Booking.LockWait <= 0 {
		return fmt.Errorf("LOCK_WAIT must be positive, got %s", c.Booking.LockWait)
	}
	if c.Booking.ReservationTTL < 0 {
		return fmt.Errorf("RESERVATION_TTL must not be negative, got %s", c.Booking.ReservationTTL)
	}
	if c.JWT.AccessTTL <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_TTL_MIN must be positive")
	}
	return nil
}

// IsProduction reports whether Env names a production deployment.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production") || strings.EqualFold(c.Env, "prod")
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustLocation loads a time zone by IANA name.  An invalid name is fatal.
func mustLocation(key, def string) *time.Location {
	name := envStr(key, def)
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Fatalf("invalid time zone for %s: %q", key, name)
	}
	return loc
}

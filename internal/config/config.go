// Package config collects HyprCAT's environment-driven settings into a
// single record at startup. It follows the identity service's dotenv
// loading pattern, layered with viper so the full HYPRCAT_* environment
// surface gets defaults, env binding, and an optional YAML overlay in
// one place.
package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// init loads environment variables from .env files during package
// initialization. godotenv.Load does not override already-set
// environment variables, so OS env always wins over a checked-in file.
func init() {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to load .env file: %v\n", err)
		}
	}
	if _, err := os.Stat(".env.local"); err == nil {
		if err := godotenv.Load(".env.local"); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to load .env.local file: %v\n", err)
		}
	}
}

// StorageBackend enumerates the recognized resource store backends.
type StorageBackend string

const (
	StorageMemory   StorageBackend = "memory"
	StorageFile     StorageBackend = "file"
	StoragePostgres StorageBackend = "postgres"
)

// Config captures every environment-driven setting HyprCAT needs to
// start a gateway or agent process.
type Config struct {
	Env     string
	Port    string
	Host    string
	BaseURL string

	CORSOrigins []string

	RateLimitWindow time.Duration
	RateLimitMax    int

	EnableLogging         bool
	EnableSecurityHeaders bool
	EnableCompression     bool

	StorageBackend StorageBackend
	StorageDir     string
	DatabaseDSN    string

	JWTSecret     []byte
	PaymentSecret []byte

	SessionTTL time.Duration
	NonceTTL   time.Duration

	RequestTimeout time.Duration
}

// Load reads HYPRCAT_-prefixed environment variables, optionally
// overlaid by a YAML file at configFile, and produces a Config with
// every default filled in. Pass an empty configFile to skip the file
// overlay and rely on env and defaults alone.
func Load(configFile string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HYPRCAT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("env", "dev")
	v.SetDefault("port", "8080")
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("base_url", "http://localhost:8080")
	v.SetDefault("cors_origins", "*")
	v.SetDefault("rate_limit_window_seconds", 60)
	v.SetDefault("rate_limit_max", 120)
	v.SetDefault("enable_logging", true)
	v.SetDefault("enable_security_headers", true)
	v.SetDefault("enable_compression", false)
	v.SetDefault("storage_backend", "memory")
	v.SetDefault("storage_dir", "./data/resources")
	v.SetDefault("session_ttl_seconds", 3600)
	v.SetDefault("nonce_ttl_seconds", 300)
	v.SetDefault("request_timeout_seconds", 30)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", configFile, err)
		}
	}

	cfg := Config{
		Env:                   v.GetString("env"),
		Port:                  v.GetString("port"),
		Host:                  v.GetString("host"),
		BaseURL:               v.GetString("base_url"),
		CORSOrigins:           splitCSV(v.GetString("cors_origins")),
		RateLimitWindow:       time.Duration(v.GetInt("rate_limit_window_seconds")) * time.Second,
		RateLimitMax:          v.GetInt("rate_limit_max"),
		EnableLogging:         v.GetBool("enable_logging"),
		EnableSecurityHeaders: v.GetBool("enable_security_headers"),
		EnableCompression:     v.GetBool("enable_compression"),
		StorageBackend:        StorageBackend(v.GetString("storage_backend")),
		StorageDir:            v.GetString("storage_dir"),
		DatabaseDSN:           v.GetString("database_dsn"),
		SessionTTL:            time.Duration(v.GetInt("session_ttl_seconds")) * time.Second,
		NonceTTL:              time.Duration(v.GetInt("nonce_ttl_seconds")) * time.Second,
		RequestTimeout:        time.Duration(v.GetInt("request_timeout_seconds")) * time.Second,
	}

	switch cfg.StorageBackend {
	case StorageMemory, StorageFile, StoragePostgres:
	default:
		return Config{}, fmt.Errorf("config: unrecognized storage_backend %q", cfg.StorageBackend)
	}

	jwtSecret := v.GetString("jwt_secret")
	if jwtSecret == "" {
		generated, err := randomSecret()
		if err != nil {
			return Config{}, fmt.Errorf("config: generate jwt secret: %w", err)
		}
		cfg.JWTSecret = generated
	} else {
		cfg.JWTSecret = []byte(jwtSecret)
	}

	paymentSecret := v.GetString("payment_secret")
	if paymentSecret == "" {
		generated, err := randomSecret()
		if err != nil {
			return Config{}, fmt.Errorf("config: generate payment secret: %w", err)
		}
		cfg.PaymentSecret = generated
	} else {
		cfg.PaymentSecret = []byte(paymentSecret)
	}

	return cfg, nil
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func randomSecret() ([]byte, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	encoded := base64.RawURLEncoding.EncodeToString(buf)
	return []byte(encoded), nil
}

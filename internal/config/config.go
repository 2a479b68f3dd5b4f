// Package config assembles the service configuration from defaults, an optional
// JSON file, environment variables and command-line flags (in increasing priority).
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds every tunable of the bookstore service.
type Config struct {
	RunAddr             string        `env:"SERVER_ADDRESS" validate:"hostname_port"`
	GRPCAddr            string        `env:"GRPC_ADDRESS" validate:"omitempty,hostname_port"`
	LogLevel            string        `env:"LOG_LEVEL" validate:"loglevel"`
	SQLiteFile          string        `env:"SQLITE_FILE" validate:"omitempty,dbfile"`
	DatabaseDSN         string        `env:"DATABASE_DSN"`
	DBConnectionTimeout time.Duration `env:"DB_CONNECTION_TIMEOUT" validate:"gt=0"`
	JWTSecretKey        string        `env:"JWT_SECRET_KEY" validate:"required,min=16"`
	TokenTTL            time.Duration `env:"TOKEN_TTL" validate:"gt=0"`
	TrustedSubnet       string        `env:"TRUSTED_SUBNET" validate:"omitempty,cidr"`
	TrustedProxies      string        `env:"TRUSTED_PROXIES" validate:"omitempty,cidr"`
	AuthRateLimit       float64       `env:"AUTH_RATE_LIMIT" validate:"gte=0"`
	AuthRateBurst       int           `env:"AUTH_RATE_BURST" validate:"gte=0"`
	EnableGzip          bool          `env:"ENABLE_GZIP"`
	ConfigFile          string        `env:"CONFIG"`
}

// fileConfig mirrors Config for the JSON file, with durations as strings ("10s", "30m").
type fileConfig struct {
	RunAddr             string   `json:"server_address"`
	GRPCAddr            string   `json:"grpc_address"`
	LogLevel            string   `json:"log_level"`
	SQLiteFile          string   `json:"sqlite_file"`
	DatabaseDSN         string   `json:"database_dsn"`
	DBConnectionTimeout string   `json:"db_connection_timeout"`
	JWTSecretKey        string   `json:"jwt_secret_key"`
	TokenTTL            string   `json:"token_ttl"`
	TrustedSubnet       string   `json:"trusted_subnet"`
	TrustedProxies      string   `json:"trusted_proxies"`
	AuthRateLimit       *float64 `json:"auth_rate_limit"`
	AuthRateBurst       *int     `json:"auth_rate_burst"`
	EnableGzip          bool     `json:"enable_gzip"`
}

var defaultConfig = Config{
	RunAddr:             ":8080",
	LogLevel:            "info",
	DBConnectionTimeout: 10 * time.Second,
	JWTSecretKey:        "insecure-development-secret-key",
	TokenTTL:            30 * time.Minute,
	AuthRateLimit:       5,
	AuthRateBurst:       10,
}

var allowedLogLevels = map[string]bool{
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
	"fatal":   true,
}

func validateDBFile(fieldLevel validator.FieldLevel) bool {
	dir := filepath.Dir(fieldLevel.Field().String())
	info, err := os.Stat(dir)

	return err == nil && info.IsDir()
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	return allowedLogLevels[fieldLevel.Field().String()]
}

func (c *Config) validate() error {
	validate := validator.New()

	if err := validate.RegisterValidation("loglevel", validateLogLevel); err != nil {
		return err
	}

	if err := validate.RegisterValidation("dbfile", validateDBFile); err != nil {
		return err
	}

	return validate.Struct(c)
}

// rateLimitOverrides holds the rate limit settings a source gave explicitly.
// Zero is a real value for both: a zero AuthRateLimit disables limiting.
type rateLimitOverrides struct {
	limit *float64
	burst *int
}

func (o rateLimitOverrides) apply(dst *Config) {
	if o.limit != nil {
		dst.AuthRateLimit = *o.limit
	}
	if o.burst != nil {
		dst.AuthRateBurst = *o.burst
	}
}

func envRateLimitOverrides(fromEnv Config) rateLimitOverrides {
	var o rateLimitOverrides
	if value, ok := os.LookupEnv("AUTH_RATE_LIMIT"); ok && value != "" {
		o.limit = &fromEnv.AuthRateLimit
	}
	if value, ok := os.LookupEnv("AUTH_RATE_BURST"); ok && value != "" {
		o.burst = &fromEnv.AuthRateBurst
	}

	return o
}

// applyDefaults copies every non-zero field of src over dst. The rate limit
// fields go through rateLimitOverrides instead.
func applyDefaults(dst *Config, src Config) {
	if src.RunAddr != "" {
		dst.RunAddr = src.RunAddr
	}
	if src.GRPCAddr != "" {
		dst.GRPCAddr = src.GRPCAddr
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	if src.SQLiteFile != "" {
		dst.SQLiteFile = src.SQLiteFile
	}
	if src.DatabaseDSN != "" {
		dst.DatabaseDSN = src.DatabaseDSN
	}
	if src.DBConnectionTimeout != 0 {
		dst.DBConnectionTimeout = src.DBConnectionTimeout
	}
	if src.JWTSecretKey != "" {
		dst.JWTSecretKey = src.JWTSecretKey
	}
	if src.TokenTTL != 0 {
		dst.TokenTTL = src.TokenTTL
	}
	if src.TrustedSubnet != "" {
		dst.TrustedSubnet = src.TrustedSubnet
	}
	if src.TrustedProxies != "" {
		dst.TrustedProxies = src.TrustedProxies
	}
	if src.EnableGzip {
		dst.EnableGzip = true
	}
	if src.ConfigFile != "" {
		dst.ConfigFile = src.ConfigFile
	}
}

func loadFile(path string) (Config, rateLimitOverrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, rateLimitOverrides{}, fmt.Errorf("read config file %q: %w", path, err)
	}

	var raw fileConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return Config{}, rateLimitOverrides{}, fmt.Errorf("parse config file %q: %w", path, err)
	}

	result := Config{
		RunAddr:        raw.RunAddr,
		GRPCAddr:       raw.GRPCAddr,
		LogLevel:       raw.LogLevel,
		SQLiteFile:     raw.SQLiteFile,
		DatabaseDSN:    raw.DatabaseDSN,
		JWTSecretKey:   raw.JWTSecretKey,
		TrustedSubnet:  raw.TrustedSubnet,
		TrustedProxies: raw.TrustedProxies,
		EnableGzip:     raw.EnableGzip,
	}

	if raw.DBConnectionTimeout != "" {
		if result.DBConnectionTimeout, err = time.ParseDuration(raw.DBConnectionTimeout); err != nil {
			return Config{}, rateLimitOverrides{}, fmt.Errorf("parse db_connection_timeout: %w", err)
		}
	}

	if raw.TokenTTL != "" {
		if result.TokenTTL, err = time.ParseDuration(raw.TokenTTL); err != nil {
			return Config{}, rateLimitOverrides{}, fmt.Errorf("parse token_ttl: %w", err)
		}
	}

	return result, rateLimitOverrides{limit: raw.AuthRateLimit, burst: raw.AuthRateBurst}, nil
}

func parseFlags(args []string) (Config, error) {
	var values Config

	flags := flag.NewFlagSet("bookstore", flag.ContinueOnError)
	flags.StringVar(&values.RunAddr, "a", "", "address and port to run the HTTP server")
	flags.StringVar(&values.GRPCAddr, "g", "", "address and port to run the gRPC server")
	flags.StringVar(&values.LogLevel, "l", "", "logger level")
	flags.StringVar(&values.SQLiteFile, "f", "", "SQLite database file")
	flags.StringVar(&values.DatabaseDSN, "d", "", "PostgreSQL connection string")
	flags.StringVar(&values.JWTSecretKey, "k", "", "secret key used to sign access tokens")
	flags.DurationVar(&values.TokenTTL, "ttl", 0, "access token lifetime")
	flags.StringVar(&values.TrustedSubnet, "t", "", "trusted subnet (CIDR) for internal endpoints")
	flags.StringVar(&values.TrustedProxies, "p", "", "subnet (CIDR) of reverse proxies whose X-Real-IP/X-Forwarded-For are trusted")
	flags.BoolVar(&values.EnableGzip, "z", false, "enable gzip compression")
	flags.StringVar(&values.ConfigFile, "c", "", "path to the JSON configuration file")

	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}

	return values, nil
}

type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
}

// WithDisableFlagsParsing skips command-line flags, which is what tests want.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// New builds and validates the configuration.
// Priority: flags > environment > JSON file > defaults.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env file: %w", err)
	}

	var fromFlags Config
	if !options.disableFlagsParsing {
		var err error
		if fromFlags, err = parseFlags(os.Args[1:]); err != nil {
			return nil, err
		}
	}

	var fromEnv Config
	if err := env.Parse(&fromEnv); err != nil {
		return nil, err
	}

	values := defaultConfig

	configFile := fromFlags.ConfigFile
	if configFile == "" {
		configFile = fromEnv.ConfigFile
	}
	if configFile != "" {
		fromFile, fileRateLimits, err := loadFile(configFile)
		if err != nil {
			return nil, err
		}
		applyDefaults(&values, fromFile)
		fileRateLimits.apply(&values)
		values.ConfigFile = configFile
	}

	applyDefaults(&values, fromEnv)
	envRateLimitOverrides(fromEnv).apply(&values)
	applyDefaults(&values, fromFlags)

	if err := values.validate(); err != nil {
		return nil, err
	}

	return &values, nil
}

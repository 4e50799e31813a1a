package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const envPrefix = "USERMGMT_"

// Config is the backend configuration. Values come from defaults, then the
// YAML file named by USERMGMT_CONFIG, then USERMGMT_* environment variables.
type Config struct {
	HTTPAddr        string        `yaml:"http_addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// DBDSN selects Postgres. Empty means in-memory stores.
	DBDSN     string `yaml:"db_dsn"`
	SchemaDir string `yaml:"schema_dir"`
	UsersPath string `yaml:"users_path"`

	JWTSecret          string        `yaml:"jwt_secret"`
	TokenTTL           time.Duration `yaml:"token_ttl"`
	RateLimitPerMinute int           `yaml:"rate_limit_per_minute"`

	Environment   string   `yaml:"environment"`
	OllamaBaseURL string   `yaml:"ollama_base_url"`
	CORSOrigins   []string `yaml:"cors_origins"`
	// TrustProxyHeaders honours X-Forwarded-For and X-Real-IP. Only enable
	// it behind a reverse proxy that overwrites them.
	TrustProxyHeaders bool `yaml:"trust_proxy_headers"`

	AdminEmail    string `yaml:"admin_email"`
	AdminPassword string `yaml:"admin_password"`

	LogFormat string `yaml:"log_format"`
	LogLevel  string `yaml:"log_level"`
}

func defaults() Config {
	return Config{
		HTTPAddr:           ":8080",
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       30 * time.Second,
		ShutdownTimeout:    10 * time.Second,
		SchemaDir:          "sql",
		JWTSecret:          "dev-secret-change-me",
		TokenTTL:           60 * time.Minute,
		RateLimitPerMinute: 60,
		Environment:        "local",
		CORSOrigins: []string{
			"http://localhost:5173",
			"http://127.0.0.1:5173",
			"http://localhost:5174",
			"http://127.0.0.1:5174",
		},
		AdminEmail: "admin@example.com",
		LogFormat:  "auto",
		LogLevel:   "info",
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(envPrefix + key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	return n, nil
}

func getenvBool(key string, def bool) (bool, error) {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	return b, nil
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	return d, nil
}

func getenvList(key string, def []string) []string {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv(envPrefix + "CONFIG"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg.HTTPAddr = getenv("HTTP_ADDR", cfg.HTTPAddr)
	cfg.DBDSN = getenv("DB_DSN", cfg.DBDSN)
	cfg.SchemaDir = getenv("SCHEMA_DIR", cfg.SchemaDir)
	cfg.UsersPath = getenv("USERS_PATH", cfg.UsersPath)
	cfg.JWTSecret = getenv("JWT_SECRET", cfg.JWTSecret)
	cfg.Environment = getenv("ENVIRONMENT", cfg.Environment)
	cfg.OllamaBaseURL = getenv("OLLAMA_BASE_URL", cfg.OllamaBaseURL)
	cfg.CORSOrigins = getenvList("CORS_ORIGINS", cfg.CORSOrigins)
	cfg.AdminEmail = getenv("ADMIN_EMAIL", cfg.AdminEmail)
	cfg.AdminPassword = getenv("ADMIN_PASSWORD", cfg.AdminPassword)
	cfg.LogFormat = getenv("LOG_FORMAT", cfg.LogFormat)
	cfg.LogLevel = getenv("LOG_LEVEL", cfg.LogLevel)

	var err error
	if cfg.ReadTimeout, err = getenvDuration("READ_TIMEOUT", cfg.ReadTimeout); err != nil {
		return Config{}, err
	}
	if cfg.WriteTimeout, err = getenvDuration("WRITE_TIMEOUT", cfg.WriteTimeout); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownTimeout, err = getenvDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout); err != nil {
		return Config{}, err
	}
	if cfg.TokenTTL, err = getenvDuration("TOKEN_TTL", cfg.TokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitPerMinute, err = getenvInt("RATE_LIMIT_PER_MINUTE", cfg.RateLimitPerMinute); err != nil {
		return Config{}, err
	}
	if cfg.TrustProxyHeaders, err = getenvBool("TRUST_PROXY_HEADERS", cfg.TrustProxyHeaders); err != nil {
		return Config{}, err
	}

	if cfg.OllamaBaseURL == "" {
		cfg.OllamaBaseURL = DefaultOllamaBaseURL(cfg.Environment)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultOllamaBaseURL is the model server address for an environment.
func DefaultOllamaBaseURL(environment string) string {
	if environment == "prod" {
		return "http://ollama.default.svc.cluster.local:11434"
	}
	return "http://localhost:11434"
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c Config) validate() error {
	switch {
	case c.HTTPAddr == "":
		return fmt.Errorf("%sHTTP_ADDR must not be empty", envPrefix)
	case c.JWTSecret == "":
		return fmt.Errorf("%sJWT_SECRET must not be empty", envPrefix)
	case c.Environment == "prod" && c.JWTSecret == defaults().JWTSecret:
		return fmt.Errorf("%sJWT_SECRET must be set in prod", envPrefix)
	case c.TokenTTL <= 0:
		return fmt.Errorf("%sTOKEN_TTL must be > 0", envPrefix)
	case c.RateLimitPerMinute <= 0:
		return fmt.Errorf("%sRATE_LIMIT_PER_MINUTE must be > 0", envPrefix)
	case c.ReadTimeout <= 0 || c.WriteTimeout <= 0 || c.ShutdownTimeout <= 0:
		return fmt.Errorf("HTTP timeouts must be > 0")
	case c.AdminEmail == "" || !strings.Contains(c.AdminEmail, "@"):
		return fmt.Errorf("%sADMIN_EMAIL must be an email address", envPrefix)
	}
	return nil
}

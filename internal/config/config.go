package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	BackendDynamoDB = "dynamodb"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"

	FallbackHTTP   = "http"
	FallbackOpenAI = "openai"
	FallbackNone   = "none"
)

// Config is every setting the service reads from its environment. It is
// parsed once at startup and passed down by value.
type Config struct {
	StoreBackend string `env:"STORE_BACKEND" envDefault:"sqlite"`
	SupportTable string `env:"SUPPORT_TABLE"`
	DatabaseURL  string `env:"DATABASE_URL"`
	SQLitePath   string `env:"SQLITE_PATH" envDefault:"support.db"`
	SeedDemoData bool   `env:"SEED_DEMO_DATA" envDefault:"false"`

	ParamPrefix          string        `env:"PARAM_PREFIX"`
	FallbackProvider     string        `env:"FALLBACK_PROVIDER" envDefault:"none"`
	FallbackURL          string        `env:"FALLBACK_URL"`
	FallbackAPIKey       string        `env:"FALLBACK_API_KEY"`
	FallbackTokenParam   string        `env:"FALLBACK_TOKEN_PARAM"`
	FallbackTimeout      time.Duration `env:"FALLBACK_TIMEOUT" envDefault:"10s"`
	FallbackSystemPrompt string        `env:"FALLBACK_SYSTEM_PROMPT"`
	OpenAIBaseURL        string        `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	OpenAIModel          string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`

	MaxQueryLength int           `env:"MAX_QUERY_LENGTH" envDefault:"500"`
	CookieMaxAge   time.Duration `env:"COOKIE_MAX_AGE" envDefault:"720h"`
	CookieSecure   bool          `env:"COOKIE_SECURE" envDefault:"false"`

	BindAddr         string        `env:"APP_BIND_ADDR" envDefault:":8080"`
	ShutdownTimeout  time.Duration `env:"APP_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	AllowedOrigins   []string      `env:"APP_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	MetricsNamespace string        `env:"APP_METRICS_NAMESPACE" envDefault:"storefront_support"`

	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
}

// Load parses the process environment and validates the result.
func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadFrom is Load over an explicit environment instead of os.Environ.
func LoadFrom(environ map[string]string) (Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))
	cfg.FallbackProvider = strings.ToLower(strings.TrimSpace(cfg.FallbackProvider))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every inconsistent setting at once.
func (c Config) Validate() error {
	var errs []error

	switch c.StoreBackend {
	case BackendDynamoDB:
		if strings.TrimSpace(c.SupportTable) == "" {
			errs = append(errs, errors.New("SUPPORT_TABLE is required for the dynamodb backend"))
		}
	case BackendPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres backend"))
		}
	case BackendSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			errs = append(errs, errors.New("SQLITE_PATH must not be empty"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND %q is not one of dynamodb, postgres, sqlite", c.StoreBackend))
	}

	switch c.FallbackProvider {
	case FallbackNone:
	case FallbackHTTP:
		if strings.TrimSpace(c.FallbackURL) == "" {
			errs = append(errs, errors.New("FALLBACK_URL is required for the http fallback"))
		}
		errs = append(errs, c.requireFallbackKey()...)
	case FallbackOpenAI:
		if strings.TrimSpace(c.OpenAIModel) == "" {
			errs = append(errs, errors.New("OPENAI_MODEL must not be empty"))
		}
		errs = append(errs, c.requireFallbackKey()...)
	default:
		errs = append(errs, fmt.Errorf("FALLBACK_PROVIDER %q is not one of http, openai, none", c.FallbackProvider))
	}

	if c.FallbackTimeout <= 0 {
		errs = append(errs, errors.New("FALLBACK_TIMEOUT must be positive"))
	}
	if c.MaxQueryLength <= 0 {
		errs = append(errs, errors.New("MAX_QUERY_LENGTH must be positive"))
	}
	if c.CookieMaxAge <= 0 {
		errs = append(errs, errors.New("COOKIE_MAX_AGE must be positive"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("APP_SHUTDOWN_TIMEOUT must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func (c Config) requireFallbackKey() []error {
	if strings.TrimSpace(c.FallbackAPIKey) == "" && strings.TrimSpace(c.FallbackTokenParam) == "" {
		return []error{errors.New("one of FALLBACK_API_KEY or FALLBACK_TOKEN_PARAM is required")}
	}
	return nil
}

// TokenParameter is the SSM parameter holding the fallback key. Relative
// names are resolved under ParamPrefix.
func (c Config) TokenParameter() string {
	name := strings.TrimSpace(c.FallbackTokenParam)
	if name == "" || strings.HasPrefix(name, "/") || c.ParamPrefix == "" {
		return name
	}
	return path.Join(c.ParamPrefix, name)
}

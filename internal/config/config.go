package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ErrConfiguration marks a fatal startup error. The server must not accept
// traffic when LoadConfig returns it.
var ErrConfiguration = errors.New("configuration error")

const (
	defaultLifetimeMinutes = 60
	defaultLoginRateLimit  = 10
)

type AppConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DbConfig struct {
	DSN             string `validate:"required" env:"POSTGRES_DSN"`
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
}

type JWTConfig struct {
	Secret          string `validate:"required" env:"JWT_SECRET"`
	Issuer          string `validate:"required" env:"JWT_ISSUER"`
	Audience        string `validate:"required" env:"JWT_AUDIENCE"`
	LifetimeMinutes int    `validate:"gt=0" env:"JWT_LIFETIME_MINUTES"`
	// ClockSkew is the tolerance applied past exp. Zero rejects at exp.
	ClockSkew time.Duration `validate:"gte=0,lte=5m" env:"JWT_CLOCK_SKEW"`
}

func (c *JWTConfig) Lifetime() time.Duration {
	return time.Duration(c.LifetimeMinutes) * time.Minute
}

type SecurityConfig struct {
	AllowedOrigins []string
	LoginRateLimit int
	AdminUsername  string `env:"ADMIN_USERNAME"`
	AdminPassword  string `validate:"required_with=AdminUsername,omitempty,min=8,max=72" env:"ADMIN_PASSWORD"`
}

type Config struct {
	AppConfig      *AppConfig
	DbConfig       *DbConfig
	JWTConfig      *JWTConfig
	SecurityConfig *SecurityConfig
}

type WebConfig struct {
	Port         string
	APIBaseURL   string `validate:"required,url" env:"API_BASE_URL"`
	CookieSecure bool
	APITimeout   time.Duration
}

// LoadDotenv loads an optional .env file. A missing file is not an error;
// the process environment still applies.
func LoadDotenv(logger *zap.Logger, paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err == nil {
			logger.Debug("loaded env file", zap.String("path", p))
			return
		}
	}
	logger.Info("no .env file found, using process environment")
}

func LoadConfig(logger *zap.Logger) (*Config, error) {
	var errs error

	/** db config */
	maxOpenConns, err := intEnv("DB_MAX_OPEN_CONNS", 10)
	errs = multierr.Append(errs, err)
	maxIdleConns, err := intEnv("DB_MAX_IDLE_CONNS", 5)
	errs = multierr.Append(errs, err)
	maxConnLifetime, err := durationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute)
	errs = multierr.Append(errs, err)

	dbConfig := &DbConfig{
		DSN:             os.Getenv("POSTGRES_DSN"),
		MaxOpenConns:    maxOpenConns,
		MaxIdleConns:    maxIdleConns,
		MaxConnLifetime: maxConnLifetime,
	}

	/** app config */
	readTimeout, err := durationEnv("APP_READ_TIMEOUT", 10*time.Second)
	errs = multierr.Append(errs, err)
	writeTimeout, err := durationEnv("APP_WRITE_TIMEOUT", 10*time.Second)
	errs = multierr.Append(errs, err)
	idleTimeout, err := durationEnv("APP_IDLE_TIMEOUT", 60*time.Second)
	errs = multierr.Append(errs, err)

	appConfig := &AppConfig{
		Port:         stringEnv("APP_PORT", "8080"),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	/** jwt config */
	lifetime, err := intEnv("JWT_LIFETIME_MINUTES", defaultLifetimeMinutes)
	errs = multierr.Append(errs, err)
	skew, err := durationEnv("JWT_CLOCK_SKEW", 0)
	errs = multierr.Append(errs, err)

	jwtConfig := &JWTConfig{
		Secret:          os.Getenv("JWT_SECRET"),
		Issuer:          os.Getenv("JWT_ISSUER"),
		Audience:        os.Getenv("JWT_AUDIENCE"),
		LifetimeMinutes: lifetime,
		ClockSkew:       skew,
	}

	/** security config */
	rateLimit, err := intEnv("LOGIN_RATE_LIMIT", defaultLoginRateLimit)
	errs = multierr.Append(errs, err)

	securityConfig := &SecurityConfig{
		AllowedOrigins: listEnv("CORS_ALLOWED_ORIGINS"),
		LoginRateLimit: rateLimit,
		AdminUsername:  os.Getenv("ADMIN_USERNAME"),
		AdminPassword:  os.Getenv("ADMIN_PASSWORD"),
	}

	errs = multierr.Append(errs, validate(dbConfig))
	errs = multierr.Append(errs, validate(jwtConfig))
	errs = multierr.Append(errs, validate(securityConfig))
	if errs != nil {
		logger.Error("invalid configuration", zap.Error(errs))
		return nil, errs
	}

	return &Config{
		AppConfig:      appConfig,
		DbConfig:       dbConfig,
		JWTConfig:      jwtConfig,
		SecurityConfig: securityConfig,
	}, nil
}

func LoadWebConfig(logger *zap.Logger) (*WebConfig, error) {
	var errs error

	secure, err := boolEnv("WEB_COOKIE_SECURE", false)
	errs = multierr.Append(errs, err)
	timeout, err := durationEnv("WEB_API_TIMEOUT", 5*time.Second)
	errs = multierr.Append(errs, err)

	cfg := &WebConfig{
		Port:         stringEnv("WEB_PORT", "8081"),
		APIBaseURL:   os.Getenv("API_BASE_URL"),
		CookieSecure: secure,
		APITimeout:   timeout,
	}
	errs = multierr.Append(errs, validate(cfg))
	if errs != nil {
		logger.Error("invalid web configuration", zap.Error(errs))
		return nil, errs
	}
	return cfg, nil
}

var structValidator = validator.New(validator.WithRequiredStructEnabled())

// validate reports every failing field as its own ErrConfiguration, named by
// the env var that feeds it.
func validate(v any) error {
	err := structValidator.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	var errs error
	for _, fe := range verrs {
		name := fe.Field()
		if f, ok := fieldEnvName(v, fe.StructField()); ok {
			name = f
		}
		errs = multierr.Append(errs, fmt.Errorf("%w: %s failed %q", ErrConfiguration, name, fe.Tag()))
	}
	return errs
}

func fieldEnvName(v any, field string) (string, bool) {
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	f, ok := t.FieldByName(field)
	if !ok {
		return "", false
	}
	name := f.Tag.Get("env")
	return name, name != ""
}

func stringEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrConfiguration, key, err)
	}
	return n, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrConfiguration, key, err)
	}
	return d, nil
}

func boolEnv(key string, def bool) (bool, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrConfiguration, key, err)
	}
	return b, nil
}

func listEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

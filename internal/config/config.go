package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the API process.
// Values come from env (optionally seeded from a .env file by main) and are
// read once at startup; request handling never reads the environment.
type Config struct {
	App     AppConfig
	Retell  RetellConfig
	POS     POSConfig
	Booking BookingConfig
	DB      DBConfig
	Redis   RedisConfig
	Auth    AuthConfig
	HTTP    HTTPConfig
}

type AppConfig struct {
	Env  string
	Port int
}

type RetellConfig struct {
	// APIKey doubles as the webhook signing secret.
	APIKey string
}

type POSConfig struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	GroupID     int64

	// Timezone is the IANA zone used to render start/end times.
	// Empty means the process-local zone.
	Timezone string

	// MaxInflight caps concurrent POS bookings across instances (needs Redis).
	// Zero disables the cap.
	MaxInflight int
}

type BookingConfig struct {
	DefaultDurationMin int
	CustomerIDs        []int64
	StaffIDs           []int64
	ServiceIDs         []int64
}

// DBConfig is optional. When Host is empty function-call audit events are kept in memory.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// RedisConfig is optional. Without it the POS in-flight cap is disabled.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

// AuthConfig guards the operator API. Empty JWTSecret disables that API.
type AuthConfig struct {
	JWTSecret      string
	JWTIssuer      string
	JWTAudience    string
	AccessTokenTTL time.Duration
}

type HTTPConfig struct {
	CORSAllowOrigins []string
	RateLimitPerMin  int
}

const (
	defaultPOSBaseURL  = "https://api.ontiloo.com"
	defaultPOSGroupID  = 1656
	defaultDurationMin = 60
)

var (
	defaultCustomerIDs = []int64{137554, 137552, 137553}
	defaultStaffIDs    = []int64{1643, 1650, 1656}
	defaultServiceIDs  = []int64{6137, 6138}
)

func Load() (Config, error) {
	c := Config{}
	p := &envParser{}

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	c.App.Port = p.int("APP_PORT", 8080)

	c.Retell.APIKey = strings.TrimSpace(os.Getenv("RETELL_API_KEY"))

	c.POS.BaseURL = strings.TrimRight(envOr("POS_BASE_URL", defaultPOSBaseURL), "/")
	c.POS.APIKey = strings.TrimSpace(os.Getenv("POS_API_KEY"))
	c.POS.BearerToken = strings.TrimSpace(os.Getenv("POS_BEARER_TOKEN"))
	c.POS.GroupID = int64(p.int("POS_DEFAULT_GROUP_ID", defaultPOSGroupID))
	c.POS.Timezone = strings.TrimSpace(os.Getenv("POS_TIMEZONE"))
	c.POS.MaxInflight = p.int("POS_MAX_INFLIGHT", 0)

	c.Booking.DefaultDurationMin = p.int("BOOKING_DEFAULT_DURATION_MIN", defaultDurationMin)
	c.Booking.CustomerIDs = p.ids("BOOKING_DEFAULT_CUSTOMER_IDS", defaultCustomerIDs)
	c.Booking.StaffIDs = p.ids("BOOKING_DEFAULT_STAFF_IDS", defaultStaffIDs)
	c.Booking.ServiceIDs = p.ids("BOOKING_DEFAULT_SERVICE_IDS", defaultServiceIDs)

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	c.DB.Port = p.int("DB_PORT", 5432)
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	c.Redis.Port = p.int("REDIS_PORT", 6379)
	c.Redis.Password = os.Getenv("REDIS_PASSWORD")

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	c.Auth.AccessTokenTTL = optionalDuration("JWT_ACCESS_TTL")

	c.HTTP.CORSAllowOrigins = splitList(envOr("CORS_ALLOW_ORIGINS", "*"))
	c.HTTP.RateLimitPerMin = p.int("RATE_LIMIT_PER_MIN", 0)

	if err := joinErrors(p.errs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the config and fills derived defaults in place.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.POS.BaseURL == "" {
		c.POS.BaseURL = defaultPOSBaseURL
	}
	if !strings.HasPrefix(c.POS.BaseURL, "http://") && !strings.HasPrefix(c.POS.BaseURL, "https://") {
		errs = append(errs, fmt.Errorf("POS_BASE_URL must be an http(s) URL, got %q", c.POS.BaseURL))
	}
	if c.IsProduction() {
		if c.POS.APIKey == "" {
			errs = append(errs, errors.New("POS_API_KEY is required in production"))
		}
		if c.POS.BearerToken == "" {
			errs = append(errs, errors.New("POS_BEARER_TOKEN is required in production"))
		}
	}
	if c.POS.Timezone != "" {
		if _, err := time.LoadLocation(c.POS.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("POS_TIMEZONE is not a known zone: %q", c.POS.Timezone))
		}
	}
	if c.POS.MaxInflight < 0 {
		errs = append(errs, fmt.Errorf("POS_MAX_INFLIGHT must be >= 0, got %d", c.POS.MaxInflight))
	}
	if c.POS.MaxInflight > 0 && c.Redis.Host == "" {
		errs = append(errs, errors.New("POS_MAX_INFLIGHT requires REDIS_HOST"))
	}

	if c.Booking.DefaultDurationMin <= 0 {
		errs = append(errs, fmt.Errorf("BOOKING_DEFAULT_DURATION_MIN must be > 0, got %d", c.Booking.DefaultDurationMin))
	}

	if c.DB.Host != "" {
		if c.DB.Port <= 0 || c.DB.Port > 65535 {
			errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
		}
		if c.DB.User == "" {
			errs = append(errs, errors.New("DB_USER is required when DB_HOST is set"))
		}
		if c.DB.Name == "" {
			errs = append(errs, errors.New("DB_NAME is required when DB_HOST is set"))
		}
		if c.DB.SSLMode == "" {
			if c.IsProduction() {
				errs = append(errs, errors.New("DB_SSLMODE is required in production"))
			} else {
				c.DB.SSLMode = "disable"
			}
		}
		if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
			errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
		}
	}

	if c.Redis.Host != "" && (c.Redis.Port <= 0 || c.Redis.Port > 65535) {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 12 * time.Hour
	}
	if c.IsProduction() && c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 bytes in production"))
	}

	if c.HTTP.RateLimitPerMin < 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_PER_MIN must be >= 0, got %d", c.HTTP.RateLimitPerMin))
	}

	return joinErrors(errs)
}

// IsProduction reports whether webhook signatures are enforced.
func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) AuditDBEnabled() bool { return c.DB.Host != "" }

func (c Config) RedisEnabled() bool { return c.Redis.Host != "" }

func (c Config) OperatorAPIEnabled() bool { return c.Auth.JWTSecret != "" }

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// Location resolves POS.Timezone, falling back to time.Local.
func (c Config) Location() *time.Location {
	if c.POS.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.POS.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// envParser reads optional typed values and keeps every parse failure so
// Load can report them together.
type envParser struct {
	errs []error
}

func (p *envParser) int(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s must be an integer, got %q", key, v))
		return 0
	}
	return n
}

// ids parses a comma separated id pool. A value of "-" yields an empty pool,
// which disables defaulting for that field.
func (p *envParser) ids(key string, def []int64) []int64 {
	v := strings.TrimSpace(os.Getenv(key))
	switch v {
	case "":
		return append([]int64(nil), def...)
	case "-":
		return nil
	}
	out, err := ParseIDList(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return nil
	}
	return out
}

func optionalDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

// ParseIDList parses "1,2, 3" into ids. Blank entries are skipped.
func ParseIDList(s string) ([]int64, error) {
	var out []int64
	for _, part := range splitList(s) {
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		out = append(out, n)
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}

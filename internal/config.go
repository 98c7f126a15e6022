package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Environment   string              `mapstructure:"environment" validate:"omitempty,oneof=development staging production test"`
	Server        ServerConfig        `mapstructure:"http_server"`
	Store         StoreConfig         `mapstructure:"store"`
	Security      SecurityConfig      `mapstructure:"security"`
	Identity      IdentityConfig      `mapstructure:"identity"`
	Notification  NotificationConfig  `mapstructure:"notification"`
	Session       SessionConfig       `mapstructure:"session"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port" validate:"min=1,max=65535"`
	BaseURL           string        `mapstructure:"base_url" validate:"omitempty,url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	OpenAPIValidation bool          `mapstructure:"openapi_validation"`
	OpenAPIPath       string        `mapstructure:"openapi_path" validate:"required_if=OpenAPIValidation true"`
}

type StoreConfig struct {
	Remote   RemoteStoreConfig `mapstructure:"remote"`
	Database DatabaseConfig    `mapstructure:"database"`
}

// RemoteStoreConfig points at a hosted record store (Airtable-compatible REST API).
type RemoteStoreConfig struct {
	BaseURL        string        `mapstructure:"base_url" validate:"omitempty,url"`
	BaseID         string        `mapstructure:"base_id"`
	Token          string        `mapstructure:"token"`
	WritableTables []string      `mapstructure:"writable_tables"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" validate:"omitempty,oneof=postgres sqlite"`
	Source          string        `mapstructure:"source"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"min=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

type SecurityConfig struct {
	SessionSecret string        `mapstructure:"session_secret" validate:"required,min=32"`
	SessionTTL    time.Duration `mapstructure:"session_ttl" validate:"required,min=1m"`
	BCryptCost    int           `mapstructure:"bcrypt_cost" validate:"required,min=4,max=15"`
	LoginRate     time.Duration `mapstructure:"login_rate"`
	LoginBurst    int           `mapstructure:"login_burst" validate:"min=0"`
}

type IdentityConfig struct {
	AllowedDomains []string   `mapstructure:"allowed_domains"`
	OIDC           OIDCConfig `mapstructure:"oidc"`
}

type OIDCConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	IssuerURL    string `mapstructure:"issuer_url" validate:"required_if=Enabled true"`
	ClientID     string `mapstructure:"client_id" validate:"required_if=Enabled true"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url" validate:"omitempty,url"`
}

type NotificationConfig struct {
	Enabled       bool           `mapstructure:"enabled"`
	PortalBaseURL string         `mapstructure:"portal_base_url" validate:"omitempty,url"`
	Timeout       time.Duration  `mapstructure:"timeout"`
	MaxWorkers    int            `mapstructure:"max_workers" validate:"min=0"`
	QueueSize     int            `mapstructure:"queue_size" validate:"min=0"`
	Webhooks      WebhooksConfig `mapstructure:"webhooks"`
}

type WebhooksConfig struct {
	ToolRequest  string `mapstructure:"tool_request" validate:"omitempty,url"`
	LeaveRequest string `mapstructure:"leave_request" validate:"omitempty,url"`
	StatusUpdate string `mapstructure:"status_update" validate:"omitempty,url"`
	FinanceEvent string `mapstructure:"finance_event" validate:"omitempty,url"`
}

type SessionConfig struct {
	TokenPath string `mapstructure:"token_path"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"required_if=Enabled true"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// DefaultAllowedDomains is the delegated-login allow-list used when none is configured.
var DefaultAllowedDomains = []string{"creooglobal.com", "creoo.co", "gmail.com"}

// DefaultConfig holds the values applied before the config file and environment are read.
func DefaultConfig() map[string]any {
	return map[string]any{
		"environment":                       "development",
		"http_server.port":                  8080,
		"http_server.read_header_timeout":   "5s",
		"http_server.read_timeout":          "15s",
		"http_server.write_timeout":         "15s",
		"http_server.idle_timeout":          "60s",
		"http_server.request_timeout":       "20s",
		"http_server.openapi_path":          "./api/openapi.yml",
		"store.remote.base_url":             "https://api.airtable.com/v0",
		"store.database.driver":             "postgres",
		"store.database.max_open_conns":     10,
		"store.database.max_idle_conns":     5,
		"store.database.conn_max_lifetime":  "30m",
		"store.database.conn_max_idle_time": "5m",
		"security.session_ttl":              "12h",
		"security.bcrypt_cost":              10,
		"security.login_rate":               "2s",
		"security.login_burst":              5,
		"identity.allowed_domains":          DefaultAllowedDomains,
		"notification.timeout":              "10s",
		"notification.max_workers":          4,
		"notification.queue_size":           100,
		"session.token_path":                defaultTokenPath(),
		"observability.metrics.path":        "/metrics",
		"observability.logging.level":       "info",
		"observability.logging.format":      "text",
	}
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ops-portal-session"
	}
	return home + "/.ops-portal-session"
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

// ApplyLegacyEnv maps the record store variables used by earlier deployments
// (PORTAL_STORE_BASE_ID / PORTAL_STORE_TOKEN) onto the config when set.
func (c *Config) ApplyLegacyEnv() {
	c.Store.Remote.BaseID = getEnv("PORTAL_STORE_BASE_ID", c.Store.Remote.BaseID)
	c.Store.Remote.Token = getEnv("PORTAL_STORE_TOKEN", c.Store.Remote.Token)
	c.Server.Port = getEnvAsInt("PORT", c.Server.Port)
}

// ----------------- VALIDATION -----------------

var structValidator = validator.New(validator.WithRequiredStructEnabled())

func (c *Config) Validate() error {
	var errs []string

	if err := structValidator.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = append(errs, fmt.Sprintf("%s failed on %q", fe.Namespace(), fe.Tag()))
			}
		} else {
			errs = append(errs, err.Error())
		}
	}

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Store.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Identity.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("identity config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		for _, origin := range c.Origins() {
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

// Origins splits the comma separated allowed_origins value.
func (c *ServerConfig) Origins() []string {
	if strings.TrimSpace(c.AllowedOrigins) == "" {
		return nil
	}
	parts := strings.Split(c.AllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *IdentityConfig) Validate() error {
	for _, d := range c.AllowedDomains {
		if strings.Contains(d, "@") || strings.TrimSpace(d) == "" {
			return fmt.Errorf("invalid allowed domain %q", d)
		}
	}
	return nil
}

// Package config loads service settings from defaults, an optional config
// file, optional .env files and ACADEMIHUB_* environment variables, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "ACADEMIHUB"

type Config struct {
	Env      string
	LogLevel string
	HTTP     HTTP
	DB       DB
	Auth     Auth
	Mail     Mail
	Rollbar  Rollbar
	Jobs     Jobs
}

type HTTP struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxBodyBytes   int64
	CORSOrigins    []string
	// TrustedProxies are CIDRs or addresses allowed to set X-Forwarded-For.
	TrustedProxies []string
}

type DB struct {
	DSN         string
	MaxOpen     int
	MaxIdle     int
	AutoMigrate bool
}

type Auth struct {
	JWTSecret       string
	TokenTTL        time.Duration
	Issuer          string
	AdminSignupCode string
	GoogleClientID  string
	// RateLimit requests per RateWindow for each client on /v1/auth/*.
	RateLimit  int
	RateWindow time.Duration
}

type Mail struct {
	SendGridKey string
	FromEmail   string
	FromName    string
}

type Rollbar struct {
	Token string
}

type Jobs struct {
	Enabled          bool
	ReminderSchedule string
	ReminderWindow   time.Duration
	GaugeSchedule    string
}

// IsDev reports whether relaxed settings are acceptable.
func (c *Config) IsDev() bool {
	return c.Env == "dev" || c.Env == "test"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")
	v.SetDefault("log_level", "info")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("http.max_body_bytes", int64(1<<20))
	v.SetDefault("http.cors_origins", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("http.trusted_proxies", []string{})

	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)
	v.SetDefault("db.auto_migrate", false)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.issuer", "academihub")
	v.SetDefault("auth.admin_signup_code", "")
	v.SetDefault("auth.google_client_id", "")
	v.SetDefault("auth.rate_limit", 5)
	v.SetDefault("auth.rate_window", 15*time.Minute)

	v.SetDefault("mail.sendgrid_key", "")
	v.SetDefault("mail.from_email", "no-reply@academihub.org")
	v.SetDefault("mail.from_name", "AcademiHub")

	v.SetDefault("rollbar.token", "")

	v.SetDefault("jobs.enabled", true)
	v.SetDefault("jobs.reminder_schedule", "@hourly")
	v.SetDefault("jobs.reminder_window", 24*time.Hour)
	v.SetDefault("jobs.gauge_schedule", "@every 1m")
}

// Load reads the configuration. The environment name comes from
// ACADEMIHUB_ENV (default dev) and selects the .env.<env> file.
func Load() (*Config, error) {
	env := strings.TrimSpace(os.Getenv(envPrefix + "_ENV"))
	if env == "" {
		env = "dev"
	}
	for _, name := range []string{".env." + env, ".env"} {
		if err := godotenv.Load(name); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("academihub")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/academihub")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		Env:      v.GetString("env"),
		LogLevel: v.GetString("log_level"),
		HTTP: HTTP{
			Addr:           v.GetString("http.addr"),
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			MaxBodyBytes:   v.GetInt64("http.max_body_bytes"),
			CORSOrigins:    splitList(v.GetStringSlice("http.cors_origins")),
			TrustedProxies: splitList(v.GetStringSlice("http.trusted_proxies")),
		},
		DB: DB{
			DSN:         v.GetString("db.dsn"),
			MaxOpen:     v.GetInt("db.max_open"),
			MaxIdle:     v.GetInt("db.max_idle"),
			AutoMigrate: v.GetBool("db.auto_migrate"),
		},
		Auth: Auth{
			JWTSecret:       v.GetString("auth.jwt_secret"),
			TokenTTL:        v.GetDuration("auth.token_ttl"),
			Issuer:          v.GetString("auth.issuer"),
			AdminSignupCode: v.GetString("auth.admin_signup_code"),
			GoogleClientID:  v.GetString("auth.google_client_id"),
			RateLimit:       v.GetInt("auth.rate_limit"),
			RateWindow:      v.GetDuration("auth.rate_window"),
		},
		Mail: Mail{
			SendGridKey: v.GetString("mail.sendgrid_key"),
			FromEmail:   v.GetString("mail.from_email"),
			FromName:    v.GetString("mail.from_name"),
		},
		Rollbar: Rollbar{Token: v.GetString("rollbar.token")},
		Jobs: Jobs{
			Enabled:          v.GetBool("jobs.enabled"),
			ReminderSchedule: v.GetString("jobs.reminder_schedule"),
			ReminderWindow:   v.GetDuration("jobs.reminder_window"),
			GaugeSchedule:    v.GetString("jobs.gauge_schedule"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail late at request time.
func (c *Config) Validate() error {
	var problems []string
	secret := strings.TrimSpace(c.Auth.JWTSecret)
	switch {
	case secret == "":
		problems = append(problems, "auth.jwt_secret is required")
	case len(secret) < 32 && !c.IsDev():
		problems = append(problems, "auth.jwt_secret must be at least 32 bytes outside dev")
	}
	if c.Auth.TokenTTL <= 0 {
		problems = append(problems, "auth.token_ttl must be positive")
	}
	for _, p := range c.HTTP.TrustedProxies {
		if !validProxy(p) {
			problems = append(problems, fmt.Sprintf("http.trusted_proxies: %q is not an address or CIDR", p))
		}
	}
	if c.Auth.RateLimit <= 0 || c.Auth.RateWindow <= 0 {
		problems = append(problems, "auth.rate_limit and auth.rate_window must be positive")
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		problems = append(problems, "http.max_body_bytes must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// splitList accepts both real lists and a single comma separated env value.
func validProxy(s string) bool {
	if strings.Contains(s, "/") {
		_, err := netip.ParsePrefix(s)
		return err == nil
	}
	_, err := netip.ParseAddr(s)
	return err == nil
}

func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

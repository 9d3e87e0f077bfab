// Package config holds the runtime settings for the server. Values come
// from flags or TRACKIFY_* environment variables through the CLI.
package config

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/dukerupert/trackify/internal/auth"
	"github.com/dukerupert/trackify/internal/calendar"
	"github.com/dukerupert/trackify/internal/middleware"
)

type Config struct {
	Port           string   `help:"HTTP listen port." env:"TRACKIFY_PORT" default:"8080"`
	DBPath         string   `help:"SQLite database path." env:"TRACKIFY_DB_PATH" default:"trackify.db" name:"db-path"`
	JWTSecret      string   `help:"Secret used to sign bearer tokens (at least 10 characters)." env:"TRACKIFY_JWT_SECRET" name:"jwt-secret"`
	LogLevel       string   `help:"Log level: debug, info, warn, error." env:"TRACKIFY_LOG_LEVEL" default:"info"`
	LogFormat      string   `help:"Log format: text or json." env:"TRACKIFY_LOG_FORMAT" default:"text" enum:"text,json"`
	Timezone       string   `help:"IANA zone that defines day and week boundaries." env:"TRACKIFY_TIMEZONE" default:"UTC"`
	RedisURL       string   `help:"Redis URL for a shared rate limiter; in-memory when empty." env:"TRACKIFY_REDIS_URL" name:"redis-url"`
	AllowedOrigins []string `help:"Extra origins allowed to open websockets." env:"TRACKIFY_ALLOWED_ORIGINS"`
	TrustedProxies []string `help:"Proxy IPs or CIDRs whose forwarding headers name the client; none by default." env:"TRACKIFY_TRUSTED_PROXIES" name:"trusted-proxies"`
}

// Validate reports every problem with c at once.
func (c Config) Validate() error {
	var errs []error
	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %q", c.Port))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("database path is required"))
	}
	if len(c.JWTSecret) < auth.MinSecretLength {
		errs = append(errs, auth.ErrWeakSecret)
	}
	if _, err := calendar.Load(c.Timezone); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.ClientIP(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Calendar returns the calendar for the configured timezone.
func (c Config) Calendar() (calendar.Calendar, error) {
	return calendar.Load(c.Timezone)
}

// ClientIP returns the resolver for request addresses behind TrustedProxies.
func (c Config) ClientIP() (*middleware.ClientIP, error) {
	return middleware.NewClientIP(c.TrustedProxies)
}

func (c Config) Addr() string {
	return ":" + c.Port
}

package main

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dmitrymomot/notifyhub/pkg/environment"
	"github.com/dmitrymomot/notifyhub/pkg/notifications"
)

const (
	driverMemory   = "memory"
	driverPostgres = "postgres"
	driverMongo    = "mongo"
	driverRedis    = "redis"
	driverStatic   = "static"
	driverFile     = "file"

	authJWT    = "jwt"
	authHeader = "header"
)

var (
	ErrUnknownDriver    = errors.New("unknown driver")
	ErrUnknownAuthMode  = errors.New("unknown auth mode")
	ErrMissingJWTSecret = errors.New("JWT_SECRET is required when AUTH_MODE=jwt")
	ErrMissingDirectory = errors.New("DIRECTORY_FILE is required when DIRECTORY_DRIVER=file")
	ErrUnknownMode      = errors.New("unknown preference suppression mode")
	ErrTrustedAuth      = errors.New("AUTH_MODE=header is allowed only when APP_ENV=development")
)

// Config holds the service level settings. Backend settings live in the
// pg, redis and mongo packages and are loaded only for selected drivers.
type Config struct {
	AppName string `env:"APP_NAME" envDefault:"notifyhub"`
	AppEnv  string `env:"APP_ENV" envDefault:"development"`

	StorageDriver     string `env:"STORAGE_DRIVER" envDefault:"memory"`
	PreferencesDriver string `env:"PREFERENCES_DRIVER" envDefault:"memory"`

	DirectoryDriver string   `env:"DIRECTORY_DRIVER" envDefault:"static"`
	DirectoryFile   string   `env:"DIRECTORY_FILE"`
	DirectoryUsers  []string `env:"DIRECTORY_USERS" envSeparator:","`
	DirectoryQuery  string   `env:"DIRECTORY_QUERY"`

	StreamHeartbeat       time.Duration `env:"STREAM_HEARTBEAT" envDefault:"25s"`
	StreamBuffer          int           `env:"STREAM_BUFFER" envDefault:"64"`
	BroadcastConcurrency  int           `env:"BROADCAST_CONCURRENCY" envDefault:"8"`
	PreferenceSuppression string        `env:"PREFERENCE_SUPPRESSION" envDefault:"push"`
	PreferenceCacheSize   int           `env:"PREFERENCE_CACHE_SIZE" envDefault:"1024"`

	// AuthMode "header" trusts X-User-ID and X-User-Admin and is accepted
	// only in development.
	AuthMode  string `env:"AUTH_MODE" envDefault:"jwt"`
	JWTSecret string `env:"JWT_SECRET"`

	ReadinessTimeout time.Duration `env:"READINESS_TIMEOUT" envDefault:"2s"`
}

func (c Config) Validate() error {
	var errs []error

	if !oneOf(c.StorageDriver, driverMemory, driverPostgres, driverMongo) {
		errs = append(errs, fmt.Errorf("%w: STORAGE_DRIVER=%q", ErrUnknownDriver, c.StorageDriver))
	}
	if !oneOf(c.PreferencesDriver, driverMemory, driverPostgres, driverRedis) {
		errs = append(errs, fmt.Errorf("%w: PREFERENCES_DRIVER=%q", ErrUnknownDriver, c.PreferencesDriver))
	}
	switch c.DirectoryDriver {
	case driverStatic, driverPostgres:
	case driverFile:
		if c.DirectoryFile == "" {
			errs = append(errs, ErrMissingDirectory)
		}
	default:
		errs = append(errs, fmt.Errorf("%w: DIRECTORY_DRIVER=%q", ErrUnknownDriver, c.DirectoryDriver))
	}
	switch c.AuthMode {
	case authHeader:
		if environment.Parse(c.AppEnv) != environment.Development {
			errs = append(errs, ErrTrustedAuth)
		}
	case authJWT:
		if c.JWTSecret == "" {
			errs = append(errs, ErrMissingJWTSecret)
		}
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownAuthMode, c.AuthMode))
	}
	if _, err := c.Suppression(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Suppression maps PREFERENCE_SUPPRESSION to the gateway mode.
func (c Config) Suppression() (notifications.SuppressionMode, error) {
	switch c.PreferenceSuppression {
	case "", "push":
		return notifications.SuppressPush, nil
	case "all":
		return notifications.SuppressAll, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMode, c.PreferenceSuppression)
	}
}

// uses reports whether any driver setting selects backend.
func (c Config) uses(backend string) bool {
	return c.StorageDriver == backend || c.PreferencesDriver == backend || c.DirectoryDriver == backend
}

func oneOf(v string, allowed ...string) bool {
	return slices.Contains(allowed, v)
}

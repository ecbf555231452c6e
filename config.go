package onairos

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/onairos/onairos-go/pkg/api"
)

// DefaultBaseURL is used when Config.APIBaseURL is empty.
const DefaultBaseURL = "https://api.onairos.uk"

// Config is the flat set of options a host application supplies when
// constructing the SDK. The zero value is usable: Normalize fills in
// defaults and TestMode wiring.
type Config struct {
	// APIBaseURL is the backend root. Defaults to DefaultBaseURL.
	APIBaseURL string `env:"ONAIROS_API_BASE_URL"`

	// AppName identifies the host application in OAuth requests.
	AppName string `env:"ONAIROS_APP_NAME"`

	// URLScheme is the app's custom callback scheme, without "://".
	// Defaults to "onairos".
	URLScheme string `env:"ONAIROS_URL_SCHEME"`

	// Platforms restricts which providers the Connect step offers.
	// Empty means all known platforms.
	Platforms []api.Platform `env:"ONAIROS_PLATFORMS"`

	// TestMode runs the flow fully offline: it forces
	// AllowEmptyConnections and SimulateTraining and bypasses the
	// existing-account network check at startup.
	TestMode bool `env:"ONAIROS_TEST_MODE"`

	// DebugMode raises logging to verbose.
	DebugMode bool `env:"ONAIROS_DEBUG_MODE"`

	// AllowEmptyConnections lets the Connect step pass with no linked
	// platforms.
	AllowEmptyConnections bool `env:"ONAIROS_ALLOW_EMPTY_CONNECTIONS"`

	// SimulateTraining replaces the backend training-status poll with a
	// deterministic local ramp.
	SimulateTraining bool `env:"ONAIROS_SIMULATE_TRAINING"`

	// EnableSecureOAuth rejects non-https backend base URLs.
	EnableSecureOAuth bool `env:"ONAIROS_SECURE_OAUTH"`

	// LogLevel defaults to info; DebugMode overrides it to verbose.
	LogLevel api.LogLevel `env:"ONAIROS_LOG_LEVEL"`

	// RequestTimeout bounds each API attempt. Zero means the client
	// default.
	RequestTimeout time.Duration `env:"ONAIROS_REQUEST_TIMEOUT"`
}

// ConfigFromEnv builds a Config from ONAIROS_* environment variables.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, api.ErrInvalidConfig.WithCause(err)
	}
	return cfg, nil
}

// Normalize fills defaults and applies TestMode implications. It returns
// the normalized copy without mutating the receiver.
func (c Config) Normalize() Config {
	if c.APIBaseURL == "" {
		c.APIBaseURL = DefaultBaseURL
	}
	c.APIBaseURL = strings.TrimRight(c.APIBaseURL, "/")
	if c.URLScheme == "" {
		c.URLScheme = "onairos"
	}
	if len(c.Platforms) == 0 {
		c.Platforms = api.KnownPlatforms()
	}
	if c.TestMode {
		c.AllowEmptyConnections = true
		c.SimulateTraining = true
	}
	if c.LogLevel == "" {
		c.LogLevel = api.LogInfo
	}
	if c.DebugMode {
		c.LogLevel = api.LogVerbose
	}
	return c
}

// validate checks a normalized Config.
func (c Config) validate() error {
	u, err := url.ParseRequestURI(c.APIBaseURL)
	if err != nil {
		return api.ErrInvalidConfig.WithCause(err)
	}
	if c.EnableSecureOAuth && u.Scheme != "https" {
		return api.ErrInvalidConfig.WithCause(errors.New("onairos: EnableSecureOAuth requires an https APIBaseURL"))
	}
	if strings.ContainsAny(c.URLScheme, ":/") {
		return api.ErrInvalidConfig.WithCause(errors.New("onairos: URLScheme must not contain ':' or '/'"))
	}
	for _, p := range c.Platforms {
		if !p.Known() {
			return api.ErrInvalidConfig.WithCause(fmt.Errorf("onairos: unknown platform %q", p))
		}
	}
	return nil
}

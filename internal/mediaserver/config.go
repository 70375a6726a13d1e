package mediaserver

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config stores connectivity information for the media server control API.
type Config struct {
	// BaseURL points directly at the control endpoint. When set it takes
	// precedence over Host and APIPort.
	BaseURL    string
	Host       string
	APIPort    int
	Timeout    time.Duration
	HTTPClient *http.Client
}

// LoadConfigFromEnv initialises a Config from environment variables.
func LoadConfigFromEnv() (Config, error) {
	cfg := Config{
		BaseURL: strings.TrimSpace(os.Getenv("GBSTREAM_MEDIA_API")),
		Host:    strings.TrimSpace(os.Getenv("GBSTREAM_MEDIA_HOST")),
		Timeout: 5 * time.Second,
	}

	if port := strings.TrimSpace(os.Getenv("GBSTREAM_MEDIA_API_PORT")); port != "" {
		parsed, err := strconv.Atoi(port)
		if err != nil {
			return Config{}, fmt.Errorf("parse GBSTREAM_MEDIA_API_PORT: %w", err)
		}
		cfg.APIPort = parsed
	}

	if timeout := strings.TrimSpace(os.Getenv("GBSTREAM_MEDIA_TIMEOUT")); timeout != "" {
		parsed, err := time.ParseDuration(timeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse GBSTREAM_MEDIA_TIMEOUT: %w", err)
		}
		if parsed > 0 {
			cfg.Timeout = parsed
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Enabled reports whether enough configuration has been provided to reach a
// control API.
func (c Config) Enabled() bool {
	return c.BaseURL != "" || c.Host != ""
}

// Validate ensures the configuration is usable.
func (c Config) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if c.BaseURL == "" {
		if c.Host == "" {
			return errors.New("media server host required")
		}
		if c.APIPort <= 0 {
			return errors.New("media server API port required")
		}
	}
	if c.Timeout < 0 {
		return errors.New("media server timeout cannot be negative")
	}
	return nil
}

func (c Config) endpoint() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	return fmt.Sprintf("http://%s:%d/api2", c.Host, c.APIPort)
}

package memoclaw

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Defaults applied when neither an explicit option, an environment variable
// nor the config file supplies a value.
const (
	DefaultBaseURL    = "https://api.memoclaw.com"
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 1

	defaultBaseDelay  = 500 * time.Millisecond
	defaultMaxDelay   = 30 * time.Second
	defaultMultiplier = 2.0

	envPrefix = "MEMOCLAW_"
)

// settings holds values resolved from the environment and the local config
// file (~/.memoclaw/config.json, created by `memoclaw init`). Explicit
// options override these; these override defaults.
type settings struct {
	privateKey   string
	baseURL      string
	timeout      time.Duration
	maxRetries   *int
	maxIdleConns int
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".memoclaw", "config.json")
}

// loadSettings merges the config file (lowest) and environment variables
// (higher). A missing or malformed file is ignored rather than fatal, so a
// fully explicit construction never depends on local state.
func loadSettings(configPath string) settings {
	k := koanf.New(".")

	if configPath == "" {
		configPath = defaultConfigPath()
	}
	if configPath != "" {
		if content, err := os.ReadFile(configPath); err == nil {
			k.Load(rawbytes.Provider(content), kjson.Parser()) //nolint:errcheck
		}
	}

	// MEMOCLAW_PRIVATE_KEY -> private_key, MEMOCLAW_URL -> url, etc.
	k.Load(env.Provider(envPrefix, ".", func(s string) string { //nolint:errcheck
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil)

	var s settings
	s.privateKey = firstNonEmpty(
		k.String("private_key"),
		k.String("privateKey"),
	)
	s.baseURL = firstNonEmpty(
		k.String("url"),
		k.String("baseUrl"),
		k.String("base_url"),
	)
	if secs := k.Float64("timeout"); secs > 0 {
		s.timeout = time.Duration(secs * float64(time.Second))
	}
	if k.Exists("max_retries") {
		n := k.Int("max_retries")
		if n >= 0 {
			s.maxRetries = &n
		}
	}
	if n := k.Int("max_idle_conns"); n > 0 {
		s.maxIdleConns = n
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

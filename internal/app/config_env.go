package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides forcefully overrides cfg fields with environment variables
// when the corresponding env vars are set. Env thereby beats the config file
// while flags, applied last, stay highest precedence.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	if v := os.Getenv("CRAWLER_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("CRAWLER_ERROR_MAPPING"); v != "" {
		cfg.ErrorMapping = v
	}
	if v := os.Getenv("CRAWLER_USER_AGENT"); v != "" {
		cfg.UserAgent = v
	}
	if v := splitList(os.Getenv("CRAWLER_ALLOW_ORIGINS")); len(v) > 0 {
		cfg.AllowOrigins = v
	}
	if d := envDuration("CRAWLER_TIMEOUT"); d > 0 {
		cfg.Timeout = d
	}
	if n := envInt("CRAWLER_MAX_BODY_BYTES"); n > 0 {
		cfg.MaxBodyBytes = int64(n)
	}
	if n := envInt("CRAWLER_MAX_REDIRECTS"); n > 0 {
		cfg.MaxRedirects = n
	}
	if n := envInt("CRAWLER_MAX_CONCURRENT"); n > 0 {
		cfg.MaxConcurrent = n
	}
	if n := envInt("CRAWLER_MIN_TEXT_CHARS"); n > 0 {
		cfg.MinTextChars = n
	}

	// Booleans override when env present and truthy/falsey
	setBool := func(dst *bool, envKey string) {
		if v, ok := envBool(envKey); ok {
			*dst = v
		}
	}
	setBool(&cfg.FollowRedirects, "CRAWLER_FOLLOW_REDIRECTS")
	setBool(&cfg.AllowPrivateHosts, "CRAWLER_ALLOW_PRIVATE_HOSTS")
	setBool(&cfg.Verbose, "VERBOSE")
	setBool(&cfg.LogJSON, "LOG_JSON")
}

func envInt(key string) int {
	if s := strings.TrimSpace(os.Getenv(key)); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 0
}

// envDuration accepts Go durations ("15s") or a bare number of seconds.
func envDuration(key string) time.Duration {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return 0
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return 0
}

func envBool(key string) (value bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	}
	return false, false
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	list := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			list = append(list, v)
		}
	}
	return list
}

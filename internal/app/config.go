package app

import "time"

// Defaults applied by flag parsing and DefaultConfig.
const (
	DefaultAddr            = ":8080"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultErrorMapping    = "flat"
)

// Config holds runtime configuration for the application.
type Config struct {
	// Server
	Addr            string
	ErrorMapping    string
	AllowOrigins    []string
	ShutdownTimeout time.Duration

	// Fetch
	Timeout           time.Duration
	MaxBodyBytes      int64
	UserAgent         string
	FollowRedirects   bool
	MaxRedirects      int
	MaxConcurrent     int
	AllowPrivateHosts bool

	// Extraction
	MinTextChars int

	// Behavior
	// URL switches to one-shot mode: crawl it, print JSON, exit.
	URL        string
	ConfigPath string
	Verbose    bool
	LogJSON    bool
}

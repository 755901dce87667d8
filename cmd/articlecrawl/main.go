package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/articlecrawl/internal/app"
)

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := parseConfig(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if errors.Is(err, errVersion) {
		fmt.Printf("articlecrawl %s (%s, %s)\n", app.BuildVersion, app.BuildCommit, app.BuildDate)
		os.Exit(0)
	}
	if err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		os.Exit(2)
	}

	if cfg.LogJSON {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = log.Logger.WithContext(ctx)

	if err := run(ctx, cfg, os.Stdout); err != nil {
		log.Error().Err(err).Msg("run failed")
		stop()
		os.Exit(1)
	}
}

var errVersion = errors.New("version requested")

// parseConfig resolves configuration with precedence flags > env > config
// file > defaults. Dotenv files are loaded into the environment first.
func parseConfig(args []string) (app.Config, error) {
	def := app.DefaultConfig()
	fs := flag.NewFlagSet("articlecrawl", flag.ContinueOnError)

	var (
		addr            string
		targetURL       string
		configPath      string
		envFiles        string
		timeout         time.Duration
		shutdownTimeout time.Duration
		maxBodyBytes    int64
		userAgent       string
		followRedirects bool
		maxRedirects    int
		maxConcurrent   int
		minTextChars    int
		allowPrivate    bool
		errorMapping    string
		allowOrigins    string
		verbose         bool
		logJSON         bool
		version         bool
	)

	fs.StringVar(&addr, "addr", def.Addr, "HTTP listen address")
	fs.StringVar(&targetURL, "url", "", "Crawl a single URL, print the JSON result and exit")
	fs.StringVar(&configPath, "config", "", "Path to a YAML or JSON config file (default $CRAWLER_CONFIG)")
	fs.StringVar(&envFiles, "env", ".env", "Comma-separated dotenv files to load; later files win")
	fs.DurationVar(&timeout, "timeout", def.Timeout, "Per-fetch deadline covering connect, headers and body")
	fs.DurationVar(&shutdownTimeout, "shutdown.timeout", def.ShutdownTimeout, "Drain period for in-flight requests on shutdown")
	fs.Int64Var(&maxBodyBytes, "max.bodyBytes", def.MaxBodyBytes, "Maximum response body size in bytes")
	fs.StringVar(&userAgent, "ua", def.UserAgent, "User-Agent for outbound requests")
	fs.BoolVar(&followRedirects, "redirects.follow", def.FollowRedirects, "Follow HTTP redirects")
	fs.IntVar(&maxRedirects, "redirects.max", def.MaxRedirects, "Maximum redirects to follow")
	fs.IntVar(&maxConcurrent, "max.concurrent", def.MaxConcurrent, "Maximum concurrent outbound fetches (0 = unlimited)")
	fs.IntVar(&minTextChars, "min.textChars", def.MinTextChars, "Minimum extracted text length (0 = default)")
	fs.BoolVar(&allowPrivate, "allow.private", def.AllowPrivateHosts, "Allow loopback and private network targets")
	fs.StringVar(&errorMapping, "errors.mapping", def.ErrorMapping, "Crawl error status mapping: flat or typed")
	fs.StringVar(&allowOrigins, "cors.origins", "", "Comma-separated CORS origins (default any)")
	fs.BoolVar(&verbose, "v", false, "Verbose logging")
	fs.BoolVar(&logJSON, "log.json", false, "Emit JSON logs instead of console output")
	fs.BoolVar(&version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return app.Config{}, err
	}
	if version {
		return app.Config{}, errVersion
	}

	if err := app.LoadEnvFiles(strings.Split(envFiles, ",")...); err != nil {
		return app.Config{}, fmt.Errorf("load env files: %w", err)
	}
	if !isFlagSet(fs, "config") {
		configPath = os.Getenv("CRAWLER_CONFIG")
	}
	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		return app.Config{}, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = addr
		case "timeout":
			cfg.Timeout = timeout
		case "shutdown.timeout":
			cfg.ShutdownTimeout = shutdownTimeout
		case "max.bodyBytes":
			cfg.MaxBodyBytes = maxBodyBytes
		case "ua":
			cfg.UserAgent = userAgent
		case "redirects.follow":
			cfg.FollowRedirects = followRedirects
		case "redirects.max":
			cfg.MaxRedirects = maxRedirects
		case "max.concurrent":
			cfg.MaxConcurrent = maxConcurrent
		case "min.textChars":
			cfg.MinTextChars = minTextChars
		case "allow.private":
			cfg.AllowPrivateHosts = allowPrivate
		case "errors.mapping":
			cfg.ErrorMapping = errorMapping
		case "cors.origins":
			cfg.AllowOrigins = nil
			for _, o := range strings.Split(allowOrigins, ",") {
				if o = strings.TrimSpace(o); o != "" {
					cfg.AllowOrigins = append(cfg.AllowOrigins, o)
				}
			}
		case "v":
			cfg.Verbose = verbose
		case "log.json":
			cfg.LogJSON = logJSON
		}
	})
	cfg.URL = targetURL

	if err := app.ValidateConfig(cfg); err != nil {
		return app.Config{}, err
	}
	return cfg, nil
}

func isFlagSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// run serves HTTP, or crawls cfg.URL once and writes the JSON result to out.
func run(ctx context.Context, cfg app.Config, out io.Writer) error {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	if cfg.URL == "" {
		return a.Serve(ctx)
	}

	resp, err := a.CrawlOnce(ctx, cfg.URL)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

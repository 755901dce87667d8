package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// LoadEnvFiles reads KEY=VALUE pairs, including quoted values and comments.
func TestLoadEnvFiles_LoadsKeyValues(t *testing.T) {
	t.Setenv("FOO", "")
	t.Setenv("BAR", "")

	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env.test")
	content := "\n# sample dotenv file\nFOO=alpha\nBAR=\"beta gamma\"\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}

	if err := LoadEnvFiles(envPath); err != nil {
		t.Fatalf("LoadEnvFiles error: %v", err)
	}

	if got := os.Getenv("FOO"); got != "alpha" {
		t.Fatalf("FOO=%q, want alpha", got)
	}
	if got := os.Getenv("BAR"); got != "beta gamma" {
		t.Fatalf("BAR=%q, want 'beta gamma'", got)
	}
}

// Later files override earlier ones when loading multiple dotenv files.
func TestLoadEnvFiles_OverrideOrder(t *testing.T) {
	t.Setenv("K", "")
	dir := t.TempDir()
	a := filepath.Join(dir, ".env.a")
	b := filepath.Join(dir, ".env.b")
	if err := os.WriteFile(a, []byte("K=first\n"), 0o600); err != nil {
		t.Fatalf("write a: %v", err)
	}
	if err := os.WriteFile(b, []byte("K=second\n"), 0o600); err != nil {
		t.Fatalf("write b: %v", err)
	}

	if err := LoadEnvFiles(a, b); err != nil {
		t.Fatalf("LoadEnvFiles error: %v", err)
	}
	if got := os.Getenv("K"); got != "second" {
		t.Fatalf("override order failed: got %q, want second", got)
	}
}

func TestLoadEnvFiles_MissingFileIgnored(t *testing.T) {
	if err := LoadEnvFiles(filepath.Join(t.TempDir(), "nope.env"), ""); err != nil {
		t.Fatalf("missing file should be ignored, got %v", err)
	}
}

func TestApplyEnvOverrides_FromEnv(t *testing.T) {
	t.Setenv("CRAWLER_ADDR", ":9999")
	t.Setenv("CRAWLER_TIMEOUT", "3")
	t.Setenv("CRAWLER_MAX_BODY_BYTES", "1024")
	t.Setenv("CRAWLER_MAX_CONCURRENT", "4")
	t.Setenv("CRAWLER_ALLOW_PRIVATE_HOSTS", "yes")
	t.Setenv("CRAWLER_ALLOW_ORIGINS", "https://a.example, https://b.example")

	cfg := DefaultConfig()
	cfg.MaxConcurrent = 2
	ApplyEnvOverrides(&cfg)
	if cfg.Addr != ":9999" {
		t.Fatalf("Addr=%q", cfg.Addr)
	}
	if cfg.Timeout != 3*time.Second {
		t.Fatalf("Timeout=%v, want bare seconds to parse", cfg.Timeout)
	}
	if cfg.MaxBodyBytes != 1024 {
		t.Fatalf("MaxBodyBytes=%d", cfg.MaxBodyBytes)
	}
	if cfg.MaxConcurrent != 4 {
		t.Fatalf("env MaxConcurrent should win, got %d", cfg.MaxConcurrent)
	}
	if !cfg.AllowPrivateHosts {
		t.Fatalf("AllowPrivateHosts not set from env")
	}
	if len(cfg.AllowOrigins) != 2 || cfg.AllowOrigins[1] != "https://b.example" {
		t.Fatalf("AllowOrigins=%v", cfg.AllowOrigins)
	}
}

func TestApplyEnvOverrides_BooleansAndDurations(t *testing.T) {
	t.Setenv("CRAWLER_FOLLOW_REDIRECTS", "off")
	t.Setenv("CRAWLER_TIMEOUT", "1500ms")
	t.Setenv("CRAWLER_ERROR_MAPPING", "typed")
	t.Setenv("CRAWLER_MAX_REDIRECTS", "not-a-number")

	cfg := DefaultConfig()
	ApplyEnvOverrides(&cfg)
	if cfg.FollowRedirects {
		t.Fatalf("FollowRedirects should be disabled by env")
	}
	if cfg.Timeout != 1500*time.Millisecond {
		t.Fatalf("Timeout=%v", cfg.Timeout)
	}
	if cfg.ErrorMapping != "typed" {
		t.Fatalf("ErrorMapping=%q", cfg.ErrorMapping)
	}
	if cfg.MaxRedirects != DefaultConfig().MaxRedirects {
		t.Fatalf("invalid int should be ignored, got %d", cfg.MaxRedirects)
	}
}

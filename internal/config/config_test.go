package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestNewConfig verifies that NewConfig returns a Config with all expected default values.
// This test ensures that defaults are documented through tests and that changes
// to defaults are intentional.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default Timeout is 30 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 30*time.Second {
			t.Errorf("expected Timeout to be 30s, got %v", cfg.Timeout)
		}
	})

	t.Run("default MaxPages is unlimited", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxPages != 0 {
			t.Errorf("expected MaxPages to be 0, got %d", cfg.MaxPages)
		}
	})

	t.Run("default MaxBodyChars is one million", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxBodyChars != 1_000_000 {
			t.Errorf("expected MaxBodyChars to be 1000000, got %d", cfg.MaxBodyChars)
		}
	})

	t.Run("default UserAgent identifies sitecrawl", func(t *testing.T) {
		t.Parallel()
		if !strings.HasPrefix(cfg.UserAgent, "sitecrawl/") {
			t.Errorf("unexpected UserAgent %q", cfg.UserAgent)
		}
	})

	t.Run("reports and exports are off by default", func(t *testing.T) {
		t.Parallel()
		if cfg.JSONReport || cfg.MarkdownReport || cfg.ShouldSaveToDB() || cfg.MetricsFile != "" {
			t.Error("expected no optional outputs by default")
		}
	})

	t.Run("default scope is subtree", func(t *testing.T) {
		t.Parallel()
		if cfg.PrefixScope {
			t.Error("expected PrefixScope to be false")
		}
	})
}

// TestConfigValidate tests configuration validation.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		cfg := NewConfig()
		cfg.Target = "https://example.com"
		return cfg
	}

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{name: "valid config", modify: func(*Config) {}, wantErr: nil},
		{name: "missing target", modify: func(c *Config) { c.Target = "" }, wantErr: ErrNoTarget},
		{name: "zero timeout", modify: func(c *Config) { c.Timeout = 0 }, wantErr: ErrInvalidTimeout},
		{name: "negative timeout", modify: func(c *Config) { c.Timeout = -time.Second }, wantErr: ErrInvalidTimeout},
		{
			name:    "json and markdown together",
			modify:  func(c *Config) { c.JSONReport, c.MarkdownReport = true, true },
			wantErr: ErrConflictingReportFormats,
		},
		{name: "json alone", modify: func(c *Config) { c.JSONReport = true }, wantErr: nil},
		{name: "negative max pages", modify: func(c *Config) { c.MaxPages = -1 }, wantErr: ErrInvalidMaxPages},
		{name: "positive max pages", modify: func(c *Config) { c.MaxPages = 10 }, wantErr: nil},
		{name: "zero body limit", modify: func(c *Config) { c.MaxBodyChars = 0 }, wantErr: ErrInvalidMaxBodyChars},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

// TestDBPath tests database path resolution.
func TestDBPath(t *testing.T) {
	t.Parallel()

	t.Run("explicit path implies save", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.DBPath = "/tmp/crawls.db"

		if !cfg.ShouldSaveToDB() {
			t.Error("expected DBPath to enable saving")
		}
		if cfg.ResolvedDBPath() != "/tmp/crawls.db" {
			t.Errorf("unexpected path %q", cfg.ResolvedDBPath())
		}
	})

	t.Run("save without path uses XDG data dir", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.SaveToDB = true

		want := filepath.Join(XDGDataDir(), DefaultDBFile)
		if cfg.ResolvedDBPath() != want {
			t.Errorf("expected %q, got %q", want, cfg.ResolvedDBPath())
		}
	})
}

// TestFileGetSiteConfig tests site configuration merging.
func TestFileGetSiteConfig(t *testing.T) {
	t.Parallel()

	file := &File{
		Defaults: SiteConfig{
			Cookie:         "default=1",
			UserAgent:      "default-agent",
			Headers:        map[string]string{"Accept-Language": "en"},
			IgnorePatterns: []string{"*.pdf"},
		},
		Sites: map[string]SiteConfig{
			"example.com": {
				Cookie:   "session=xyz",
				MaxPages: 50,
				Headers:  map[string]string{"X-Team": "docs"},
			},
			"localhost:8080": {
				UserAgent:      "dev-agent",
				IgnorePatterns: []string{"/admin/*"},
			},
		},
	}

	t.Run("unknown host gets defaults", func(t *testing.T) {
		t.Parallel()

		got := file.GetSiteConfig("other.com")
		if got.Cookie != "default=1" || got.UserAgent != "default-agent" {
			t.Errorf("unexpected config %+v", got)
		}
	})

	t.Run("site values override defaults", func(t *testing.T) {
		t.Parallel()

		got := file.GetSiteConfig("example.com")
		if got.Cookie != "session=xyz" {
			t.Errorf("expected site cookie, got %q", got.Cookie)
		}
		if got.MaxPages != 50 {
			t.Errorf("expected MaxPages 50, got %d", got.MaxPages)
		}
		if got.UserAgent != "default-agent" {
			t.Errorf("expected default user agent, got %q", got.UserAgent)
		}
		if got.Headers["Accept-Language"] != "en" || got.Headers["X-Team"] != "docs" {
			t.Errorf("expected merged headers, got %v", got.Headers)
		}
		if len(got.IgnorePatterns) != 1 || got.IgnorePatterns[0] != "*.pdf" {
			t.Errorf("expected default ignore patterns, got %v", got.IgnorePatterns)
		}
	})

	t.Run("host with port", func(t *testing.T) {
		t.Parallel()

		got := file.GetSiteConfig("localhost:8080")
		if got.UserAgent != "dev-agent" {
			t.Errorf("expected dev-agent, got %q", got.UserAgent)
		}
		if len(got.IgnorePatterns) != 1 || got.IgnorePatterns[0] != "/admin/*" {
			t.Errorf("expected site ignore patterns, got %v", got.IgnorePatterns)
		}
	})

	t.Run("merging does not mutate defaults", func(t *testing.T) {
		t.Parallel()

		_ = file.GetSiteConfig("example.com")
		if _, ok := file.Defaults.Headers["X-Team"]; ok {
			t.Error("site headers leaked into defaults")
		}
	})
}

// TestLoadConfigFile tests YAML loading.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfigFile("/nonexistent/path/.sitecrawl")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if cfg != nil {
			t.Error("expected nil config when file not found")
		}
	})

	t.Run("loads valid YAML config", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".sitecrawl")
		content := `defaults:
  userAgent: "my-crawler/1.0"
  ignorePatterns:
    - "*.pdf"
sites:
  example.com:
    cookie: "session=xyz"
    maxPages: 200
    headers:
      Authorization: "Bearer token"
    ignorePatterns:
      - "/admin/*"
      - "/logout"
`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.Defaults.UserAgent != "my-crawler/1.0" {
			t.Errorf("expected default user agent, got %q", cfg.Defaults.UserAgent)
		}
		site, ok := cfg.Sites["example.com"]
		if !ok {
			t.Fatal("expected example.com in sites")
		}
		if site.MaxPages != 200 {
			t.Errorf("expected maxPages 200, got %d", site.MaxPages)
		}
		if site.Headers["Authorization"] != "Bearer token" {
			t.Error("expected Authorization header")
		}
		if len(site.IgnorePatterns) != 2 {
			t.Errorf("expected 2 ignore patterns, got %d", len(site.IgnorePatterns))
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".sitecrawl")
		if err := os.WriteFile(configPath, []byte(`invalid: yaml: content: [}`), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfigFile(configPath); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})

	t.Run("initializes nil Sites map", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".sitecrawl")
		if err := os.WriteFile(configPath, []byte("defaults:\n  maxPages: 5\n"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Sites == nil {
			t.Error("expected Sites map to be initialized")
		}
	})
}

// TestFindConfigFile tests the FindConfigFile function.
func TestFindConfigFile(t *testing.T) {
	t.Run("returns explicit path if exists", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(configPath, []byte("defaults: {}"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if result := FindConfigFile(configPath); result != configPath {
			t.Errorf("expected %q, got %q", configPath, result)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		if result := FindConfigFile("/nonexistent/path/config.yaml"); result != "" {
			t.Errorf("expected empty string, got %q", result)
		}
	})

	t.Run("finds file in current directory", func(t *testing.T) {
		dir := t.TempDir()
		configPath := filepath.Join(dir, DefaultConfigFile)
		if err := os.WriteFile(configPath, []byte("defaults: {}"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		t.Chdir(dir)

		result := FindConfigFile("")
		if filepath.Base(result) != DefaultConfigFile || filepath.Dir(result) != mustEvalSymlinks(t, dir) && filepath.Dir(result) != dir {
			t.Errorf("expected config in %q, got %q", dir, result)
		}
	})
}

func mustEvalSymlinks(t *testing.T, path string) string {
	t.Helper()

	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		t.Fatalf("failed to resolve %s: %v", path, err)
	}
	return resolved
}

// TestXDGDirs tests XDG directory functions.
func TestXDGDirs(t *testing.T) {
	t.Parallel()

	if !strings.HasSuffix(XDGDataDir(), AppName) {
		t.Errorf("unexpected XDG data dir %q", XDGDataDir())
	}
	if !strings.HasSuffix(XDGConfigDir(), AppName) {
		t.Errorf("unexpected XDG config dir %q", XDGConfigDir())
	}
}

package explorer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	t.Run("should write the defaults when no file exists", func(t *testing.T) {
		dir := t.TempDir()

		cfg, err := loadConfig(dir)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		defaults := DefaultConfig()
		if cfg.APIURL != defaults.APIURL || cfg.HistoryLimit != defaults.HistoryLimit ||
			cfg.RequestTimeout != defaults.RequestTimeout || cfg.DedupingInterval != defaults.DedupingInterval ||
			cfg.UserAgent != defaults.UserAgent {
			t.Fatalf("\nwanted:\n%+v\ngot:\n%+v", defaults, cfg)
		}
		if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err != nil {
			t.Fatalf("\nwanted:\nconfig.yaml to exist\ngot:\n%v", err)
		}
	})

	t.Run("should read values from an existing file", func(t *testing.T) {
		dir := t.TempDir()
		content := "api_url: https://catalog.example.com\nhistory_limit: 10\nrequest_timeout: 5s\ndeduping_interval: 0s\nlog_level: debug\n"
		if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0600); err != nil {
			t.Fatalf("writing config: %v", err)
		}

		cfg, err := loadConfig(dir)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if cfg.APIURL != "https://catalog.example.com" {
			t.Fatalf("\nwanted:\n%q\ngot:\n%q", "https://catalog.example.com", cfg.APIURL)
		}
		if cfg.HistoryLimit != 10 {
			t.Fatalf("\nwanted:\n10\ngot:\n%d", cfg.HistoryLimit)
		}
		if cfg.RequestTimeout != 5*time.Second {
			t.Fatalf("\nwanted:\n5s\ngot:\n%s", cfg.RequestTimeout)
		}
		if cfg.DedupingInterval != 0 {
			t.Fatalf("\nwanted:\n0s\ngot:\n%s", cfg.DedupingInterval)
		}
		if cfg.LogLevel != "debug" {
			t.Fatalf("\nwanted:\ndebug\ngot:\n%q", cfg.LogLevel)
		}
	})

	t.Run("should let environment variables override the file", func(t *testing.T) {
		t.Setenv("EXPLORER_API_URL", "http://127.0.0.1:9999")

		cfg, err := loadConfig(t.TempDir())
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if cfg.APIURL != "http://127.0.0.1:9999" {
			t.Fatalf("\nwanted:\n%q\ngot:\n%q", "http://127.0.0.1:9999", cfg.APIURL)
		}
	})

	t.Run("should read the user agent from the environment", func(t *testing.T) {
		t.Setenv("EXPLORER_USER_AGENT", "catalog-explorer/2.0")

		cfg, err := loadConfig(t.TempDir())
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if cfg.UserAgent != "catalog-explorer/2.0" {
			t.Fatalf("\nwanted:\n%q\ngot:\n%q", "catalog-explorer/2.0", cfg.UserAgent)
		}
	})

	t.Run("should reject an invalid history limit", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("history_limit: 0\n"), 0600); err != nil {
			t.Fatalf("writing config: %v", err)
		}

		_, err := loadConfig(dir)
		if err == nil || !strings.Contains(err.Error(), "history_limit") {
			t.Fatalf("\nwanted:\nhistory_limit error\ngot:\n%v", err)
		}
	})
}

func TestConfigSetters(t *testing.T) {
	t.Run("should persist a new api url", func(t *testing.T) {
		dir := t.TempDir()
		cfg, err := loadConfig(dir)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		if err := cfg.SetAPIURL("https://catalog.example.com"); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if cfg.APIURL != "https://catalog.example.com" {
			t.Fatalf("\nwanted:\n%q\ngot:\n%q", "https://catalog.example.com", cfg.APIURL)
		}

		reloaded, err := loadConfig(dir)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if reloaded.APIURL != "https://catalog.example.com" {
			t.Fatalf("\nwanted:\n%q\ngot:\n%q", "https://catalog.example.com", reloaded.APIURL)
		}
	})

	t.Run("should reject invalid values without saving", func(t *testing.T) {
		cfg, err := loadConfig(t.TempDir())
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		if err := cfg.SetAPIURL("ftp://catalog"); err == nil {
			t.Fatalf("\nwanted:\nerror\ngot:\nnil")
		}
		if err := cfg.SetHistoryLimit(0); err == nil {
			t.Fatalf("\nwanted:\nerror\ngot:\nnil")
		}
		if cfg.APIURL != DefaultConfig().APIURL || cfg.HistoryLimit != DefaultConfig().HistoryLimit {
			t.Fatalf("\nwanted:\ndefaults kept\ngot:\n%+v", cfg)
		}
	})

	t.Run("should fail on a config that is not backed by a file", func(t *testing.T) {
		if err := DefaultConfig().SetHistoryLimit(10); err == nil {
			t.Fatalf("\nwanted:\nerror\ngot:\nnil")
		}
	})
}

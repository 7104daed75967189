package explorer

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tfkr-ae/explorer/api"
	"github.com/tfkr-ae/explorer/cache"
	"github.com/tfkr-ae/explorer/db"
	"github.com/tfkr-ae/explorer/domain"
)

// WithConfigDir configures the explorer to use the specified configuration directory.
// It creates the directory if it doesn't exist and loads config.yaml from it using Viper.
// Unless a repository was already set, the SQLite database inside the directory is opened as well.
func WithConfigDir(appConfigDir string) func(*Explorer) error {
	return func(explorer *Explorer) error {
		_, err := os.ReadDir(appConfigDir)
		if err != nil {
			if !os.IsNotExist(err) {
				return fmt.Errorf("checking if directory exists %s: %w", appConfigDir, err)
			}
			explorer.Logger.Info("creating config dir", "path", appConfigDir)
			if err := os.MkdirAll(appConfigDir, 0700); err != nil {
				return fmt.Errorf("creating config dir %s: %w", appConfigDir, err)
			}
		}
		explorer.ConfigDir = appConfigDir

		cfg, err := loadConfig(appConfigDir)
		if err != nil {
			return err
		}
		explorer.Config = cfg

		if explorer.Repo != nil {
			return nil
		}
		repo, err := db.Open(filepath.Join(appConfigDir, db.DatabaseFile))
		if err != nil {
			return fmt.Errorf("opening database : %w", err)
		}
		explorer.Repo = repo
		return nil
	}
}

// WithRepo sets the repository, closing the one previously configured.
func WithRepo(repo Repository) func(*Explorer) error {
	return func(explorer *Explorer) error {
		if repo == nil {
			return errors.New("repository cannot be nil")
		}
		if explorer.Repo != nil {
			if err := explorer.Repo.Close(); err != nil {
				return err
			}
			explorer.Repo = nil
		}
		explorer.Repo = repo
		return nil
	}
}

// WithLogger sets the structured logger. A nil logger keeps the default one.
func WithLogger(logger *slog.Logger) func(*Explorer) error {
	return func(explorer *Explorer) error {
		if logger != nil {
			explorer.Logger = logger
		}
		return nil
	}
}

// WithAPIClient sets the client of the remote catalog service.
func WithAPIClient(client *api.Client) func(*Explorer) error {
	return func(explorer *Explorer) error {
		if client == nil {
			return errors.New("api client cannot be nil")
		}
		explorer.API = client
		return nil
	}
}

// WithAPIURL overrides the base URL of the remote catalog service for this run only.
// It must be applied after WithConfigDir to take precedence over the file.
func WithAPIURL(apiURL string) func(*Explorer) error {
	return func(explorer *Explorer) error {
		if err := validateAPIURL(apiURL); err != nil {
			return err
		}
		if explorer.Config == nil {
			explorer.Config = DefaultConfig()
		}
		explorer.Config.APIURL = apiURL
		return nil
	}
}

// WithCacheOptions appends options applied when the resource cache is created.
func WithCacheOptions(options ...func(*cache.Cache) error) func(*Explorer) error {
	return func(explorer *Explorer) error {
		explorer.cacheOptions = append(explorer.cacheOptions, options...)
		return nil
	}
}

// WithLogHandler sets the function to be ran on each diagnostic entry.
func WithLogHandler(handler func(log *domain.Log) error) func(*Explorer) error {
	return func(explorer *Explorer) error {
		explorer.OnLog = handler
		return nil
	}
}

// Package cmd implements the pipe CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pipenetwork/libpipe-go/auth"
	"github.com/pipenetwork/libpipe-go/client"
	"github.com/pipenetwork/libpipe-go/config"
	"github.com/pipenetwork/libpipe-go/discovery"
	"github.com/pipenetwork/libpipe-go/localstore"
)

var (
	flagConfig   string
	flagBaseURL  string
	flagDataDir  string
	flagDiscover string
)

var rootCmd = &cobra.Command{
	Use:           "pipe",
	Short:         "Client for the Pipe storage network",
	Long:          "Upload, download, and share files on the Pipe storage network, and manage the account's SOL/PIPE balances.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: ~/.pipe/config)")
	rootCmd.PersistentFlags().StringVar(&flagBaseURL, "base-url", "", "service gateway URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "local data directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagDiscover, "discover", "", "discover the gateway via this service domain's DNS records")
}

// loadConfig reads the config file and applies flag overrides. A missing
// config file is not an error; defaults apply.
func loadConfig() (config.Config, error) {
	path := flagConfig
	if path == "" {
		path = filepath.Join(config.DefaultConfig().DataDir, "config")
	}

	cfg, err := config.LoadConfig(path)
	if err != nil && !errors.Is(err, config.ErrConfigNotFound) {
		return cfg, err
	}

	if flagBaseURL != "" {
		cfg.BaseURL = flagBaseURL
	}
	if flagDataDir != "" {
		cfg.DataDir = flagDataDir
	}

	if flagDiscover != "" {
		resolver := discovery.NewResolver(cfg.DNSUpstream)
		gws, err := resolver.Gateways(context.Background(), flagDiscover)
		if err != nil {
			return cfg, fmt.Errorf("gateway discovery failed: %w", err)
		}
		cfg.BaseURL = gws[0].URL
		slog.Info("discovered gateway", "domain", flagDiscover, "url", cfg.BaseURL)
	}

	if err := config.ValidateConfig(cfg); err != nil {
		return cfg, err
	}

	setupLogging(cfg.LogLevel)
	return cfg, nil
}

func setupLogging(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

func openStore(cfg config.Config) (*localstore.Store, error) {
	return localstore.OpenStore(filepath.Join(cfg.DataDir, "pipe.db"))
}

func newClient(cfg config.Config) (*client.Client, error) {
	return client.NewClient(client.Config{
		BaseURL:         cfg.BaseURL,
		DownloadTimeout: cfg.DownloadTimeout,
	})
}

// appContext bundles the pieces every authenticated command needs.
type appContext struct {
	cfg    config.Config
	store  *localstore.Store
	client *client.Client
	sess   *auth.Session
}

// openApp loads config, store, client, and the stored account session.
func openApp() (*appContext, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	c, err := newClient(cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	account, err := store.Credentials("").Load()
	if err != nil || account == nil {
		_ = store.Close()
		return nil, errors.New("not logged in (run \"pipe login\" or \"pipe register\" first)")
	}
	return &appContext{
		cfg:    cfg,
		store:  store,
		client: c,
		sess:   c.NewSession(*account),
	}, nil
}

func (a *appContext) Close() error { return a.store.Close() }

// manifest returns the logged-in account's manifest store.
func (a *appContext) manifest() *localstore.ManifestStore {
	return a.store.Manifest(a.sess.Username(), a.cfg.ManifestCapacity)
}

// persistSession re-saves the account snapshot; any command that obtained
// headers may have refreshed tokens as a side effect.
func (a *appContext) persistSession() {
	if err := a.store.Credentials("").Save(a.sess.Snapshot()); err != nil {
		slog.Warn("could not persist refreshed credentials", "err", err)
	}
}

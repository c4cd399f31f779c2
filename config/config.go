// Package config holds client configuration: gateway location, local data
// directory, and operational limits. Configuration is persisted as a plain
// key=value file, one setting per line.
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Config is the full client configuration.
type Config struct {
	// BaseURL is the service gateway.
	BaseURL string

	// DataDir holds the local database and config file. Defaults to ~/.pipe.
	DataDir string

	// DownloadTimeout bounds a single download. Uploads are unbounded.
	DownloadTimeout time.Duration

	// ManifestCapacity caps the per-account upload manifest.
	ManifestCapacity int

	// DNSUpstream is the recursive resolver used for gateway discovery.
	DNSUpstream string

	// LogLevel is one of debug, info, warn, error.
	LogLevel string
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Config{
		BaseURL:          "https://api.pipenetwork.io",
		DataDir:          filepath.Join(home, ".pipe"),
		DownloadTimeout:  5 * time.Minute,
		ManifestCapacity: 1000,
		DNSUpstream:      "8.8.8.8:53",
		LogLevel:         "info",
	}
}

// LoadConfig reads a config file, overlaying values onto the defaults.
// Returns ErrConfigNotFound if the file does not exist.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, ErrConfigNotFound
		}
		return cfg, fmt.Errorf("config: open: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return cfg, fmt.Errorf("%w: line %d: %q", ErrInvalidConfigLine, lineNo, line)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "base_url":
			cfg.BaseURL = value
		case "data_dir":
			cfg.DataDir = value
		case "download_timeout":
			d, err := time.ParseDuration(value)
			if err != nil {
				return cfg, fmt.Errorf("%w: line %d: download_timeout: %w", ErrInvalidConfigLine, lineNo, err)
			}
			cfg.DownloadTimeout = d
		case "manifest_capacity":
			n, err := strconv.Atoi(value)
			if err != nil {
				return cfg, fmt.Errorf("%w: line %d: manifest_capacity: %w", ErrInvalidConfigLine, lineNo, err)
			}
			cfg.ManifestCapacity = n
		case "dns_upstream":
			cfg.DNSUpstream = value
		case "log_level":
			cfg.LogLevel = value
		default:
			return cfg, fmt.Errorf("%w: line %d: unknown key %q", ErrInvalidConfigLine, lineNo, key)
		}
	}
	if err := scanner.Err(); err != nil {
		return cfg, fmt.Errorf("config: read: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes the configuration to path, creating the parent directory
// if needed. Keys are written in a stable order.
func SaveConfig(path string, cfg Config) error {
	entries := map[string]string{
		"base_url":          cfg.BaseURL,
		"data_dir":          cfg.DataDir,
		"download_timeout":  cfg.DownloadTimeout.String(),
		"manifest_capacity": strconv.Itoa(cfg.ManifestCapacity),
		"dns_upstream":      cfg.DNSUpstream,
		"log_level":         cfg.LogLevel,
	}
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("# pipe client configuration\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s\n", k, entries[k])
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("config: write: %w", err)
	}
	return nil
}

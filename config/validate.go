package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// validLogLevels lists the accepted log level strings.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// ValidateConfig checks that all configuration values are within acceptable
// ranges and returns the first error encountered, or nil if valid.
func ValidateConfig(cfg Config) error {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: %q", ErrInvalidBaseURL, cfg.BaseURL)
	}

	if cfg.DataDir == "" {
		return ErrEmptyDataDir
	}

	if cfg.DownloadTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if cfg.ManifestCapacity <= 0 {
		return ErrInvalidCapacity
	}

	if err := validateAddr(cfg.DNSUpstream); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDNSUpstream, err)
	}

	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return ErrInvalidLogLevel
	}

	return nil
}

// validateAddr checks that addr is a valid host:port address.
func validateAddr(addr string) error {
	_, _, err := net.SplitHostPort(addr)
	return err
}

package config

import "errors"

var (
	// ErrInvalidBaseURL indicates the gateway URL is not an absolute http(s) URL.
	ErrInvalidBaseURL = errors.New("config: invalid base URL")

	// ErrInvalidLogLevel indicates the log level is not recognized.
	ErrInvalidLogLevel = errors.New("config: invalid log level (must be \"debug\", \"info\", \"warn\", or \"error\")")

	// ErrEmptyDataDir indicates the data directory path is empty.
	ErrEmptyDataDir = errors.New("config: data directory must not be empty")

	// ErrInvalidCapacity indicates the manifest capacity is not positive.
	ErrInvalidCapacity = errors.New("config: manifest capacity must be positive")

	// ErrInvalidTimeout indicates the download timeout is not positive.
	ErrInvalidTimeout = errors.New("config: download timeout must be positive")

	// ErrInvalidDNSUpstream indicates the DNS upstream address is malformed.
	ErrInvalidDNSUpstream = errors.New("config: invalid DNS upstream address")

	// ErrConfigNotFound indicates the configuration file does not exist.
	ErrConfigNotFound = errors.New("config: configuration file not found")

	// ErrInvalidConfigLine indicates a line in the config file is malformed.
	ErrInvalidConfigLine = errors.New("config: invalid configuration line")
)

// Package config reads the environment contract of the tool and the
// optional TOML defaults file.
package config

import (
	"fmt"
	"os"
	"time"
)

const (
	// EnvColor selects colour output: always, true, never, false, auto.
	EnvColor = "DEBSTRAP_COLOR"

	// EnvDebug enables debug output: true, yes, false, no.
	EnvDebug = "DEBSTRAP_DEBUG"

	// EnvDirectory overrides the workspace path. The directory must exist
	// and be empty.
	EnvDirectory = "DEBSTRAP_DIRECTORY"

	// EnvSources points at a default sources file or directory.
	EnvSources = "DEBSTRAP_SOURCES"

	// EnvHTTPTimeout configures the whole-request timeout for archive
	// downloads, as a duration string or a bare number of seconds.
	EnvHTTPTimeout = "DEBSTRAP_HTTP_TIMEOUT"

	// EnvConfigFile overrides the defaults file location.
	EnvConfigFile = "DEBSTRAP_CONFIG"

	// DefaultHTTPTimeout is the default whole-request timeout for a single
	// download (10 minutes).
	DefaultHTTPTimeout = 10 * time.Minute
)

// GetColorMode returns the colour mode from DEBSTRAP_COLOR. Unset defaults
// to auto; invalid values warn and fall back to auto.
func GetColorMode() string {
	envValue := os.Getenv(EnvColor)
	switch envValue {
	case "":
		return "auto"
	case "always", "true", "never", "false", "auto":
		return envValue
	}
	fmt.Fprintf(os.Stderr, "Warning: invalid %s value %q, using default auto\n", EnvColor, envValue)
	return "auto"
}

// GetDebug returns the debug switch from DEBSTRAP_DEBUG. Unset defaults to
// off; invalid values warn and fall back to off.
func GetDebug() bool {
	envValue := os.Getenv(EnvDebug)
	switch envValue {
	case "":
		return false
	case "true", "yes":
		return true
	case "false", "no":
		return false
	}
	fmt.Fprintf(os.Stderr, "Warning: invalid %s value %q, using default false\n", EnvDebug, envValue)
	return false
}

// GetWorkspaceOverride returns the workspace path from DEBSTRAP_DIRECTORY,
// or "" when the workspace should be created under the system temporary
// directory.
func GetWorkspaceOverride() string {
	return os.Getenv(EnvDirectory)
}

// GetSourcesPath returns the default sources location from
// DEBSTRAP_SOURCES, or "".
func GetSourcesPath() string {
	return os.Getenv(EnvSources)
}

// GetHTTPTimeout returns the download timeout from DEBSTRAP_HTTP_TIMEOUT.
// Accepts duration strings like "5m" or bare seconds like "300". If unset
// or invalid, returns DefaultHTTPTimeout.
func GetHTTPTimeout() time.Duration {
	envValue := os.Getenv(EnvHTTPTimeout)
	if envValue == "" {
		return DefaultHTTPTimeout
	}

	duration, err := time.ParseDuration(envValue)
	if err != nil {
		var seconds int
		if _, convErr := fmt.Sscanf(envValue, "%d", &seconds); convErr == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
		fmt.Fprintf(os.Stderr, "Warning: invalid %s value %q, using default %v\n",
			EnvHTTPTimeout, envValue, DefaultHTTPTimeout)
		return DefaultHTTPTimeout
	}

	if duration < time.Second {
		fmt.Fprintf(os.Stderr, "Warning: %s too low (%v), using minimum 1s\n", EnvHTTPTimeout, duration)
		return time.Second
	}
	return duration
}

// RequireRoot verifies the USER environment variable names root.
func RequireRoot() error {
	if os.Getenv("USER") != "root" {
		return &PermissionError{User: os.Getenv("USER")}
	}
	return nil
}

// PermissionError indicates the process is not running as root.
type PermissionError struct {
	User string
}

// Error implements the error interface.
func (e *PermissionError) Error() string {
	if e.User == "" {
		return "root privileges required"
	}
	return fmt.Sprintf("root privileges required, currently running as %q", e.User)
}

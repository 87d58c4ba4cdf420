package app

import (
	"testing"
)

// TestDetermineLogLevel tests the log level precedence logic.
func TestDetermineLogLevel(t *testing.T) {
	tests := []struct {
		name     string
		config   *Config
		expected string
	}{
		{
			name:     "default level when no flags set",
			config:   &Config{},
			expected: "info",
		},
		{
			name:     "verbose flag sets debug",
			config:   &Config{Verbose: true},
			expected: "debug",
		},
		{
			name:     "quiet flag sets warn",
			config:   &Config{Quiet: true},
			expected: "warn",
		},
		{
			name:     "explicit log-level overrides verbose",
			config:   &Config{LogLevel: "error", Verbose: true},
			expected: "error",
		},
		{
			name:     "explicit log-level overrides both flags",
			config:   &Config{LogLevel: "info", Verbose: true, Quiet: true},
			expected: "info",
		},
		{
			name:     "both verbose and quiet prefers quiet",
			config:   &Config{Verbose: true, Quiet: true},
			expected: "warn",
		},
		{
			name:     "env var LOG_LEVEL used without flags",
			config:   &Config{DefaultLogLevel: "debug"},
			expected: "debug",
		},
		{
			name:     "verbose overrides LOG_LEVEL",
			config:   &Config{DefaultLogLevel: "error", Verbose: true},
			expected: "debug",
		},
		{
			name:     "invalid log level falls back to info",
			config:   &Config{LogLevel: "invalid"},
			expected: "info",
		},
		{
			name:     "trace level supported",
			config:   &Config{LogLevel: "trace"},
			expected: "trace",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := determineLogLevel(tt.config)
			if result != tt.expected {
				t.Errorf("determineLogLevel() = %q, expected %q", result, tt.expected)
			}
		})
	}
}

// TestValidateLogLevel tests log level validation.
func TestValidateLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected string
	}{
		{level: "trace", expected: "trace"},
		{level: "debug", expected: "debug"},
		{level: "info", expected: "info"},
		{level: "warn", expected: "warn"},
		{level: "error", expected: "error"},
		{level: "fatal", expected: "info"},
		{level: "DEBUG", expected: "info"},
		{level: "", expected: "info"},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			if got := validateLogLevel(tt.level); got != tt.expected {
				t.Errorf("validateLogLevel(%q) = %q, expected %q", tt.level, got, tt.expected)
			}
		})
	}
}

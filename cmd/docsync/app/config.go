package app

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/docsync/internal/cmd/application"
	"github.com/agentstation/docsync/pkg/constants"
	"github.com/agentstation/docsync/pkg/errors"
)

// Config holds the application configuration loaded from various sources
// including config files, environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Superset connection
	SupersetURL  string
	Username     string
	Password     string
	AuthProvider string
	AccessToken  string
	CSRF         bool
	RateLimit    float64
	RateBurst    int

	// Logging configuration
	LogLevel        string // from --log-level
	DefaultLogLevel string // from LOG_LEVEL or the config file
	LogFormat       string
	LogOutput       string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables
// 3. .env files
// 4. Config file (--config, or ~/.docsync.yaml)
// 5. Defaults
func LoadConfig(configFile string) (*Config, error) {
	// Load .env files first (before Viper env binding)
	loadEnvFiles()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	v.SetDefault("superset.auth_provider", constants.DefaultAuthProvider)
	v.SetDefault("superset.rate_burst", 1)

	if err := bindEnv(v); err != nil {
		return nil, err
	}

	// Read the config file. A missing default file is not an error.
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewConfigError("config", "cannot read "+configFile, err)
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".docsync")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.NewConfigError("config", "cannot read config file", err)
			}
		}
	}

	config := &Config{
		Verbose: v.GetBool("verbose"),
		Quiet:   v.GetBool("quiet"),
		NoColor: v.GetBool("no_color"),
		Format:  v.GetString("format"),

		ConfigFile: v.ConfigFileUsed(),

		SupersetURL:  v.GetString("superset.url"),
		Username:     v.GetString("superset.username"),
		Password:     v.GetString("superset.password"),
		AuthProvider: v.GetString("superset.auth_provider"),
		AccessToken:  v.GetString("superset.access_token"),
		CSRF:         v.GetBool("superset.csrf"),
		RateLimit:    v.GetFloat64("superset.rate_limit"),
		RateBurst:    v.GetInt("superset.rate_burst"),

		DefaultLogLevel: v.GetString("log_level"),
		LogFormat:       getEnvOrDefault("LOG_FORMAT", "auto"),
		LogOutput:       getEnvOrDefault("LOG_OUTPUT", "stderr"),
	}

	return config, nil
}

// Connection returns the Superset connection settings.
func (c *Config) Connection() application.Connection {
	return application.Connection{
		URL:          c.SupersetURL,
		Username:     c.Username,
		Password:     c.Password,
		AuthProvider: c.AuthProvider,
		AccessToken:  c.AccessToken,
		CSRF:         c.CSRF,
		RateLimit:    c.RateLimit,
		RateBurst:    c.RateBurst,
	}
}

// UpdateFromFlags updates config values from parsed command flags.
// This should be called after cobra parses flags to ensure flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, logLevel string) {
	c.Verbose = c.Verbose || verbose
	c.Quiet = c.Quiet || quiet
	c.NoColor = c.NoColor || noColor
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// loadEnvFiles loads environment variables from .env files.
func loadEnvFiles() {
	// .env.local overrides .env
	envFiles := []string{
		".env.local",
		".env",
	}

	// godotenv never overrides variables that are already set, so the
	// file loaded first wins.
	for _, envFile := range envFiles {
		_ = godotenv.Load(envFile)
	}
}

// bindEnv binds config keys to their environment variable names.
func bindEnv(v *viper.Viper) error {
	bindings := map[string]string{
		"superset.url":           "SUPERSET_URL",
		"superset.username":      "SUPERSET_USERNAME",
		"superset.password":      "SUPERSET_PASSWORD",
		"superset.auth_provider": "SUPERSET_AUTH_PROVIDER",
		"superset.access_token":  "SUPERSET_ACCESS_TOKEN",
		"superset.csrf":          "SUPERSET_CSRF",
		"superset.rate_limit":    "SUPERSET_RATE_LIMIT",
		"superset.rate_burst":    "SUPERSET_RATE_BURST",
		"log_level":              "LOG_LEVEL",
		"format":                 "DOCSYNC_FORMAT",
		"no_color":               "NO_COLOR",
	}

	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return errors.NewConfigError("config", "cannot bind "+env, err)
		}
	}
	return nil
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

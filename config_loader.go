package structio

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadConfigFromEnvironment loads configuration from environment variables.
//
// Recognized variables, all optional:
//   - STRUCTIO_LOG_LEVEL: debug, info, warn or error (logging off when unset)
//   - STRUCTIO_LOG_FORMAT: json, text or console (default: json)
//   - STRUCTIO_XML_MODE: text or base64 (default: text)
//   - STRUCTIO_XML_INDENT: spaces per XML level (default: 2)
//   - STRUCTIO_STRICT_LENGTH: reject trailing bytes on binary loads (default: false)
//
// Returns an error if a variable holds an invalid value.
func LoadConfigFromEnvironment() (Config, error) {
	return loadConfig(os.LookupEnv)
}

// LoadConfigFromDotEnv loads configuration from a .env file. Variables set in
// the process environment take precedence over the file.
//
// Example usage:
//
//	cfg, err := structio.LoadConfigFromDotEnv(".env")
//	if err != nil {
//	    log.Fatal(err)
//	}
func LoadConfigFromDotEnv(path string) (Config, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: read %s: %w", ErrInvalidConfiguration, path, err)
	}
	return loadConfig(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := values[key]
		return v, ok
	})
}

func loadConfig(lookup func(string) (string, bool)) (Config, error) {
	cfg := Config{
		LogLevel:  getEnvOrDefault(lookup, EnvLogLevel, ""),
		LogFormat: getEnvOrDefault(lookup, EnvLogFormat, DefaultLogFormat),
		XMLMode:   getEnvOrDefault(lookup, EnvXMLMode, DefaultXMLMode),
		XMLIndent: DefaultXMLIndent,
	}

	if raw := getEnvOrDefault(lookup, EnvXMLIndent, ""); raw != "" {
		indent, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s must be an integer, got %q", ErrInvalidConfiguration, EnvXMLIndent, raw)
		}
		cfg.XMLIndent = indent
	}

	if raw := getEnvOrDefault(lookup, EnvStrictLength, ""); raw != "" {
		strict, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s must be a boolean, got %q", ErrInvalidConfiguration, EnvStrictLength, raw)
		}
		cfg.StrictLength = strict
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// getEnvOrDefault returns the value of key, or defaultValue when it is unset
// or empty.
func getEnvOrDefault(lookup func(string) (string, bool), key, defaultValue string) string {
	value, ok := lookup(key)
	if !ok || value == "" {
		return defaultValue
	}
	return value
}

package structio

import (
	"fmt"
	"io"
	"strings"

	"github.com/hengadev/errsx"

	"github.com/hengadev/structio/internal/monitoring"
)

// Config holds process wide defaults for encode and decode calls.
//
// Configuration is plain data. It can be loaded from the environment with
// LoadConfigFromEnvironment, from a .env file with LoadConfigFromDotEnv, or
// built in code, then turned into call options with Options.
//
// Example usage:
//
//	cfg, err := structio.LoadConfigFromEnvironment()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	opts, err := cfg.Options()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	doc, err := structio.DumpXML(value, opts...)
type Config struct {
	// LogLevel enables the logging observer: debug, info, warn or error.
	// Empty disables logging.
	LogLevel string

	// LogFormat is json, text or console.
	//
	// Optional field. Default: json
	LogFormat string

	// LogOutput receives log lines. Nil means stdout.
	LogOutput io.Writer

	// XMLMode is text or base64.
	//
	// Optional field. Default: text
	XMLMode string

	// XMLIndent is the number of spaces used to indent XML documents,
	// between 0 and MaxXMLIndent.
	XMLIndent int

	// StrictLength makes binary loads fail on trailing bytes.
	StrictLength bool
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		LogFormat: DefaultLogFormat,
		XMLMode:   DefaultXMLMode,
		XMLIndent: DefaultXMLIndent,
	}
}

// Validate checks every field and applies defaults to empty optional ones.
// All problems are reported together, keyed by field name.
func (c *Config) Validate() error {
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	if c.XMLMode == "" {
		c.XMLMode = DefaultXMLMode
	}

	var errs errsx.Map
	if c.LogLevel != "" {
		if _, err := monitoring.ParseLogLevel(c.LogLevel); err != nil {
			errs.Set("LogLevel", err)
		}
	}
	if _, err := monitoring.ParseLogFormat(c.LogFormat); err != nil {
		errs.Set("LogFormat", err)
	}
	switch strings.ToLower(c.XMLMode) {
	case "text", "base64":
	default:
		errs.Set("XMLMode", fmt.Errorf("unknown xml mode %q, want text or base64", c.XMLMode))
	}
	if c.XMLIndent < 0 || c.XMLIndent > MaxXMLIndent {
		errs.Set("XMLIndent", fmt.Errorf("must be between 0 and %d, got %d", MaxXMLIndent, c.XMLIndent))
	}

	if errs.IsEmpty() {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfiguration, errs.AsError())
}

// Options validates the configuration and returns the matching call options.
// A logging observer is included when LogLevel is set.
func (c Config) Options() ([]Option, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	opts := []Option{WithIndent(c.XMLIndent)}
	if strings.EqualFold(c.XMLMode, "base64") {
		opts = append(opts, WithBase64())
	}
	if c.StrictLength {
		opts = append(opts, WithStrictLength())
	}
	if c.LogLevel != "" {
		level, _ := monitoring.ParseLogLevel(c.LogLevel)
		format, _ := monitoring.ParseLogFormat(c.LogFormat)
		logger := NewStructuredLogger(LoggerConfig{
			Level:     level,
			Format:    format,
			Output:    c.LogOutput,
			Component: "codec",
		})
		opts = append(opts, WithObserver(NewLoggingObserver(logger)))
	}
	return opts, nil
}

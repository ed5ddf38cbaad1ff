package structio

// Environment variable names
const (
	// EnvLogLevel sets the level of the logging observer: debug, info, warn or
	// error. Logging is disabled when unset.
	EnvLogLevel = "STRUCTIO_LOG_LEVEL"

	// EnvLogFormat sets the log output format: json, text or console.
	// Default: json
	EnvLogFormat = "STRUCTIO_LOG_FORMAT"

	// EnvXMLMode selects how XML scalars are written: text or base64.
	// Default: text
	EnvXMLMode = "STRUCTIO_XML_MODE"

	// EnvXMLIndent is the number of spaces used to indent XML documents.
	// Default: 2
	EnvXMLIndent = "STRUCTIO_XML_INDENT"

	// EnvStrictLength makes binary loads fail on trailing bytes.
	// Default: false
	EnvStrictLength = "STRUCTIO_STRICT_LENGTH"
)

// Defaults
const (
	DefaultLogFormat = "json"
	DefaultXMLMode   = "text"
	DefaultXMLIndent = 2

	// MaxXMLIndent bounds the indent width accepted by the configuration.
	MaxXMLIndent = 16
)

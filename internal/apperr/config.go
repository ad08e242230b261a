package apperr

// Config controls how the error middleware logs, records, and renders caught
// errors. The three presets below cover the environments spec §4.E names
// explicitly; callers needing something else build a Config directly.
type Config struct {
	// LogErrors enables the console log line on every caught error.
	LogErrors bool

	// LogFilePath, when non-empty, receives one JSON line per caught error
	// (spec §4.E: "append a JSON-line to ./logs/requests.log").
	LogFilePath string

	// SanitizeServerErrors replaces 5xx Message bodies with a generic string
	// in the client-facing response, hiding internals in production while
	// still logging and recording the real message server-side.
	SanitizeServerErrors bool

	// CustomMessages overrides the outward Message for a given Kind,
	// regardless of the error's own Message field.
	CustomMessages map[Kind]string

	// Reporter, when non-nil, receives every 5xx error for best-effort
	// forwarding to a remote sink. Failures are never surfaced to the
	// client; the middleware fires this off without waiting.
	Reporter func(*Error)
}

// Development enables console logging and full error detail in responses,
// the shape a developer iterating locally expects. No file logging: a
// developer watches stdout, not a log file, while iterating.
func Development() Config {
	return Config{LogErrors: true, SanitizeServerErrors: false}
}

// Production enables file logging and analytics, sanitises 5xx messages
// outward, and leaves console logging off (the process supervisor captures
// stdout separately).
func Production(reporter func(*Error)) Config {
	return Config{
		LogErrors:            false,
		LogFilePath:          "./logs/requests.log",
		SanitizeServerErrors: true,
		Reporter:             reporter,
	}
}

// Minimal keeps the console silent and routes caught errors to the log
// file only; analytics and the mapped response remain. Suited to tests and
// short-lived tools that shouldn't spam stdout.
func Minimal() Config {
	return Config{LogFilePath: "./logs/requests.log"}
}

const genericServerMessage = "internal server error"

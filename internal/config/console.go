package config

// ConsoleConfig is the operator console's environment. Command-line flags
// override every field.
type ConsoleConfig struct {
	APIBase string
	// Token is an optional bearer token for one-shot commands.
	Token     string
	LogFormat string
	LogLevel  string
}

const DefaultAPIBase = "http://127.0.0.1:8080"

func LoadConsole() ConsoleConfig {
	return ConsoleConfig{
		APIBase:   getenv("API_BASE", DefaultAPIBase),
		Token:     getenv("TOKEN", ""),
		LogFormat: getenv("CONSOLE_LOG_FORMAT", "auto"),
		LogLevel:  getenv("CONSOLE_LOG_LEVEL", "warn"),
	}
}

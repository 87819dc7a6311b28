package utils

const (
	// ApplicationName is the binary and configuration namespace.
	ApplicationName = "reposum"
	// GlobalConfigDirectoryName is the directory under the user's home holding global configuration.
	GlobalConfigDirectoryName = ".reposum"
	// ConfigFileName is the configuration file name used locally and globally.
	ConfigFileName = "config.yaml"
	// EnvironmentFileName is the dotenv file loaded from the working directory.
	EnvironmentFileName = ".env"

	// LoggerInitializationFailedMessageFormat reports a logger construction failure.
	LoggerInitializationFailedMessageFormat = "initialize logger: %w"
	// ApplicationExecutionFailedMessage prefixes fatal command failures.
	ApplicationExecutionFailedMessage = "reposum failed"
)

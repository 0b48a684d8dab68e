package config

const (
	defaultSocketPath   = "/var/run/qubesd.sock"
	defaultTransport    = "auto"
	defaultQrexecClient = "qrexec-client-vm"
	defaultOutputFormat = "auto"
	defaultLogFormat    = "console"
	defaultLogLevel     = "warn"
)

// Default returns the repository default configuration.
func Default() Config {
	return Config{
		Daemon: Daemon{
			Socket:       defaultSocketPath,
			Transport:    defaultTransport,
			QrexecClient: defaultQrexecClient,
		},
		Output: Output{
			Format: defaultOutputFormat,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

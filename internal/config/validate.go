package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDaemon(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateDaemon() error {
	switch c.Daemon.Transport {
	case "auto", "local", "remote":
	default:
		return fmt.Errorf("daemon.transport must be auto, local, or remote (got %q)", c.Daemon.Transport)
	}
	if c.Daemon.Socket == "" {
		return errors.New("daemon.socket must be set")
	}
	if c.Daemon.QrexecClient == "" {
		return errors.New("daemon.qrexec_client must be set")
	}
	return nil
}

func (c *Config) validateOutput() error {
	switch c.Output.Format {
	case "auto", "table", "plain", "json":
		return nil
	default:
		return fmt.Errorf("output.format must be auto, table, plain, or json (got %q)", c.Output.Format)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error (got %q)", c.Logging.Level)
	}
}

package main

import (
	"strings"
	"sync"

	"qubesadm/internal/config"
	"qubesadm/internal/logging"
	"qubesadm/internal/qubes"
	"qubesadm/internal/transport"
)

// commandContext carries lazily constructed shared state between
// cobra commands: the loaded config and the application object with
// its transport selected once.
type commandContext struct {
	configFlag    *string
	socketFlag    *string
	transportFlag *string
	logLevelFlag  *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	appOnce sync.Once
	app     *qubes.App
	appErr  error
}

func newCommandContext(configFlag, socketFlag, transportFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:    configFlag,
		socketFlag:    socketFlag,
		transportFlag: transportFlag,
		logLevelFlag:  logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		applyFlagOverride(&cfg.Daemon.Socket, c.socketFlag)
		applyFlagOverride(&cfg.Daemon.Transport, c.transportFlag)
		applyFlagOverride(&cfg.Logging.Level, c.logLevelFlag)
		if err := cfg.Validate(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// ensureApp builds the application object once per invocation: logger
// from config, transport variant selected from config/environment,
// and the App (with its VM cache) on top.
func (c *commandContext) ensureApp() (*qubes.App, error) {
	c.appOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.appErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.appErr = err
			return
		}
		caller, err := transport.Select(cfg.Daemon.Transport, cfg.Daemon.Socket, cfg.Daemon.QrexecClient)
		if err != nil {
			c.appErr = err
			return
		}
		c.app = qubes.New(caller, logger)
	})
	return c.app, c.appErr
}

func applyFlagOverride(target *string, flag *string) {
	if flag == nil {
		return
	}
	if value := strings.TrimSpace(*flag); value != "" {
		*target = value
	}
}

package main

import (
	"strings"
	"sync"

	"agrovision/internal/config"
	"agrovision/internal/logger"
)

type commandContext struct {
	envFileFlag  *string
	logDirFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(envFileFlag, logDirFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		envFileFlag:  envFileFlag,
		logDirFlag:   logDirFlag,
		logLevelFlag: logLevelFlag,
	}
}

// ensureConfig loads .env and the environment once, then applies the
// persistent flags.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.envFileFlag != nil {
			path = strings.TrimSpace(*c.envFileFlag)
		}
		cfg, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logDirFlag != nil && *c.logDirFlag != "" {
			cfg.LogDirectory = *c.logDirFlag
		}
		if c.logLevelFlag != nil && *c.logLevelFlag != "" {
			cfg.LogLevel = *c.logLevelFlag
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) newLogger() (*logger.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logger.NewLogger(cfg)
}

package cli

import (
	"go.uber.org/zap"
	"scenario-solver-service/internal/config"
	"scenario-solver-service/internal/logger"
)

func newLogger(cfg config.Config) (*zap.Logger, error) {
	return logger.New(logger.Config{
		Level:    cfg.Log.Level,
		Encoding: cfg.Log.Encoding,
	})
}

// newConsoleLogger is for one-shot commands whose stdout carries results.
func newConsoleLogger() (*zap.Logger, error) {
	return logger.New(logger.Config{Level: "warn", Encoding: "console", OutputPath: "stderr"})
}

// newCommandLogger keeps the configured level and encoding but writes to
// stderr, leaving stdout to the command's reports.
func newCommandLogger(cfg config.Config) (*zap.Logger, error) {
	return logger.New(commandLoggerConfig(cfg))
}

func commandLoggerConfig(cfg config.Config) logger.Config {
	return logger.Config{
		Level:      cfg.Log.Level,
		Encoding:   cfg.Log.Encoding,
		OutputPath: "stderr",
	}
}

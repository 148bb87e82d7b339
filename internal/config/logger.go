package config

import (
	"io"

	"github.com/sirupsen/logrus"
)

var logLevels = map[string]logrus.Level{
	"silent": logrus.PanicLevel,
	"error":  logrus.ErrorLevel,
	"warn":   logrus.WarnLevel,
	"info":   logrus.InfoLevel,
	"debug":  logrus.DebugLevel,
}

// LogrusLogLevel maps the configured level name; unknown names fall back to error
func (s *Settings) LogrusLogLevel() logrus.Level {
	if lvl, ok := logLevels[s.LogLevel]; ok {
		return lvl
	}
	return logrus.ErrorLevel
}

// NewLogger builds a text logger writing to out at the configured level
func (s *Settings) NewLogger(out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(s.LogrusLogLevel())
	logger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})
	return logger
}

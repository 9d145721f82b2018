// Package logging sets up the application logger and the append-only
// SQL audit log: both structured JSON, the latter rotated to disk.
package logging

import (
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/sprakbanken/karp-s/internal/config"
)

// NewApp builds the application logger: structured JSON to stderr at
// the configured level.
func NewApp(cfg config.LoggingConfig) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(cfg.Level); err == nil {
		log.SetLevel(level)
	}
	return log
}

// NewSQLAudit builds the SQL audit sink: every query's text and timing,
// rotated to disk so a long-running process never grows the log file
// unbounded. It is thread-safe and append-only, matching the resource
// model's shared-logger guarantee.
func NewSQLAudit(cfg config.LoggingConfig) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(&lumberjack.Logger{
		Filename:   filepath.Join(cfg.Dir, "sql.log"),
		MaxSize:    cfg.MaxSize,
		MaxAge:     cfg.MaxAge,
		MaxBackups: cfg.Backups,
	})
	return log
}

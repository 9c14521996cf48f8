package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Config задает уровень и формат логов
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json или text
}

// New создает logrus логгер с полем service
func New(serviceName string, cfg Config) *logrus.Entry {
	return NewWithOutput(serviceName, cfg, os.Stdout)
}

// NewWithOutput то же, что New, но пишет в out
func NewWithOutput(serviceName string, cfg Config, out io.Writer) *logrus.Entry {
	log := logrus.New()
	log.SetOutput(out)
	log.SetLevel(ParseLevel(cfg.Level))

	if strings.EqualFold(cfg.Format, "text") {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	}

	return log.WithField("service", serviceName)
}

// ParseLevel переводит строку в уровень logrus, по умолчанию info
func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

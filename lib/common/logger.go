package common

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/rs/zerolog"
)

// Names of the package loggers used in this module.
const (
	LoggerDispatch = "dispatch"
	LoggerPool     = "pool"
	LoggerMapper   = "mapper"
	LoggerPerf     = "perf"
)

var loggerNames = []string{LoggerDispatch, LoggerPool, LoggerMapper, LoggerPerf}

// --------------------------------------------------------------------------
// Custom Logger (implements dragonboats logger.ILogger)
// --------------------------------------------------------------------------

// zeroLogger renders dragonboat log calls through zerolog
type zeroLogger struct {
	mu    sync.RWMutex
	level logger.LogLevel
	zl    zerolog.Logger
}

func (l *zeroLogger) SetLevel(level logger.LogLevel) {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

func (l *zeroLogger) enabled(level logger.LogLevel) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level >= level
}

func (l *zeroLogger) Debugf(format string, args ...interface{}) {
	if l.enabled(logger.DEBUG) {
		l.zl.Debug().Msgf(format, args...)
	}
}

func (l *zeroLogger) Infof(format string, args ...interface{}) {
	if l.enabled(logger.INFO) {
		l.zl.Info().Msgf(format, args...)
	}
}

func (l *zeroLogger) Warningf(format string, args ...interface{}) {
	if l.enabled(logger.WARNING) {
		l.zl.Warn().Msgf(format, args...)
	}
}

func (l *zeroLogger) Errorf(format string, args ...interface{}) {
	if l.enabled(logger.ERROR) {
		l.zl.Error().Msgf(format, args...)
	}
}

func (l *zeroLogger) Panicf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.zl.Error().Msg(msg)
	panic(msg)
}

// --------------------------------------------------------------------------
// Logger Factory
// --------------------------------------------------------------------------

// NewLoggerFactory returns a dragonboat logger factory writing to w.
// Format "json" writes one JSON object per line, anything else a human
// readable console format.
func NewLoggerFactory(w io.Writer, format string) logger.Factory {
	if w == nil {
		w = os.Stdout
	}
	if !strings.EqualFold(format, "json") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.DateTime, NoColor: true}
	}
	base := zerolog.New(w).With().Timestamp().Logger()

	return func(pkgName string) logger.ILogger {
		return &zeroLogger{
			level: logger.INFO,
			zl:    base.With().Str("pkg", pkgName).Logger(),
		}
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// ParseLogLevel converts a string level to logger.LogLevel
func ParseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG, nil
	case "info", "":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return logger.INFO, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

// --------------------------------------------------------------------------
// Logger initialization
// --------------------------------------------------------------------------

// InitLoggers installs the zerolog backed factory and applies the configured
// level to all loggers of this module.
func InitLoggers(config LogConfig) error {
	level, err := ParseLogLevel(config.Level)
	if err != nil {
		return err
	}

	logger.SetLoggerFactory(NewLoggerFactory(os.Stdout, config.Format))

	for _, name := range loggerNames {
		logger.GetLogger(name).SetLevel(level)
	}
	return nil
}

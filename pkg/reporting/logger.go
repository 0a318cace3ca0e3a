package reporting

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel is one of the harness's four logging levels, set by
// HarnessConfig.LogLevel, overridden by RUST_LOG (spec §6.1) or
// --verbose.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// zerologLevel defaults to Info for anything unrecognized, rather than
// failing a run over a typo in a config file or RUST_LOG spec.
func (l LogLevel) zerologLevel() zerolog.Level {
	switch l {
	case LogLevelDebug:
		return zerolog.DebugLevel
	case LogLevelWarn:
		return zerolog.WarnLevel
	case LogLevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// LogFormat selects the renderer, from the harness config's log_format:
// structured JSON lines ("json"), or zerolog's ConsoleWriter for an
// operator watching a terminal ("text").
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

func (f LogFormat) writer(out io.Writer) io.Writer {
	if f == LogFormatText {
		return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return out
}

// LoggerConfig configures a run's logger. Level and Format are resolved
// by the caller from HarnessConfig, RUST_LOG, and --verbose before
// reaching NewLogger.
type LoggerConfig struct {
	Level  LogLevel
	Format LogFormat
	Output io.Writer
}

// Logger wraps a zerolog.Logger with the key=value vocabulary the
// orchestrator's tick loop and the START/FINISH block formatter use —
// run, worker, seed, step — rather than an arbitrary fields map.
type Logger struct {
	logger zerolog.Logger
}

func NewLogger(cfg LoggerConfig) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	zlog := zerolog.New(cfg.Format.writer(cfg.Output)).
		With().Timestamp().Logger().
		Level(cfg.Level.zerologLevel())
	return &Logger{logger: zlog}
}

func (l *Logger) Debug(msg string, fields ...interface{}) { l.emit(l.logger.Debug(), msg, fields) }
func (l *Logger) Info(msg string, fields ...interface{})  { l.emit(l.logger.Info(), msg, fields) }
func (l *Logger) Warn(msg string, fields ...interface{})  { l.emit(l.logger.Warn(), msg, fields) }
func (l *Logger) Error(msg string, fields ...interface{}) { l.emit(l.logger.Error(), msg, fields) }
func (l *Logger) Fatal(msg string, fields ...interface{}) { l.emit(l.logger.Fatal(), msg, fields) }

func (l *Logger) emit(event *zerolog.Event, msg string, fields []interface{}) {
	addFields(event, fields...)
	event.Msg(msg)
}

// WithRun binds the run/worker/seed triple every log line emitted
// during a single run's execution carries (pkg/sim.Runner.Run), so
// call sites inside the tick loop stop repeating the same three
// key=value pairs on every call.
func (l *Logger) WithRun(runNumber, workerID int, seed uint64) *Logger {
	return &Logger{
		logger: l.logger.With().
			Int("run", runNumber).
			Int("worker", workerID).
			Uint64("seed", seed).
			Logger(),
	}
}

// WithField creates a child logger with an additional field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{logger: l.logger.With().Interface(key, value).Logger()}
}

// WithFields creates a child logger with additional fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	ctx := l.logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{logger: ctx.Logger()}
}

// addFields appends alternating key/value pairs to event, flagging a
// malformed call instead of panicking on it.
func addFields(event *zerolog.Event, fields ...interface{}) {
	if len(fields)%2 != 0 {
		event.Str("log_error", "odd number of fields")
		return
	}
	for i := 0; i < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			event.Str("log_error", fmt.Sprintf("field key at index %d is not a string", i))
			continue
		}
		event.Interface(key, fields[i+1])
	}
}

// GetZerologLogger returns the underlying zerolog.Logger, for code that
// needs to pass it to a library expecting one directly (e.g. an HTTP
// server's access-log middleware).
func (l *Logger) GetZerologLogger() zerolog.Logger { return l.logger }

// InitGlobalLogger points zerolog's package-level logger at cfg, for
// the Debug/Info/Warn/Error/Fatal functions below to use during process
// startup, before a run's own LoggerConfig has been resolved from the
// harness config file.
func InitGlobalLogger(cfg LoggerConfig) {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	log.Logger = zerolog.New(cfg.Format.writer(cfg.Output)).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(cfg.Level.zerologLevel())
}

// Debug logs a debug message on the global logger, before a scenario's
// own Logger exists.
func Debug(msg string) { log.Debug().Msg(msg) }

// Info logs an info message on the global logger.
func Info(msg string) { log.Info().Msg(msg) }

// Warn logs a warning on the global logger.
func Warn(msg string) { log.Warn().Msg(msg) }

// Error logs an error on the global logger — used by cmd/dst-runner's
// root command to report a cobra Execute failure before any scenario's
// LoggerConfig is built.
func Error(msg string) { log.Error().Msg(msg) }

// Fatal logs a fatal message on the global logger and exits.
func Fatal(msg string) { log.Fatal().Msg(msg) }

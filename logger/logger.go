// Package logger provides structured logging on zerolog. There is no
// process-wide logger: one is built in main and passed down explicitly.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config selects level and output of a logger.
type Config struct {
	Level      string `yaml:"level"`
	Debug      bool   `yaml:"debug"`
	Output     string `yaml:"output"` // stdout, stderr
	Console    bool   `yaml:"console"`
	TimeFormat string `yaml:"time_format"`
}

// Logger is the handle threaded through jobs, adapters and sessions.
type Logger interface {
	Trace() *zerolog.Event
	Debug() *zerolog.Event
	Info() *zerolog.Event
	Warn() *zerolog.Event
	Error() *zerolog.Event
	WithComponent(component string) Logger
	WithFields(fields map[string]interface{}) Logger
}

type zlog struct {
	z zerolog.Logger
}

// New builds a logger from cfg.
func New(cfg Config) (Logger, error) {
	var output io.Writer = os.Stdout
	if cfg.Output == "stderr" {
		output = os.Stderr
	}

	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	} else if cfg.Level != "" {
		var err error
		level, err = zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
	}

	timeFormat := time.RFC3339
	if cfg.TimeFormat != "" {
		timeFormat = cfg.TimeFormat
	}

	if cfg.Console {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: timeFormat}
	} else {
		zerolog.TimeFieldFormat = timeFormat
	}

	return NewWithWriter(output, level), nil
}

// NewWithWriter builds a JSON logger writing to w. Tests use it to capture output.
func NewWithWriter(w io.Writer, level zerolog.Level) Logger {
	return &zlog{z: zerolog.New(w).Level(level).With().Timestamp().Logger()}
}

// NewTestLogger returns a logger that discards everything.
func NewTestLogger() Logger {
	return &zlog{z: zerolog.Nop()}
}

func (l *zlog) Trace() *zerolog.Event { return l.z.Trace() }
func (l *zlog) Debug() *zerolog.Event { return l.z.Debug() }
func (l *zlog) Info() *zerolog.Event  { return l.z.Info() }
func (l *zlog) Warn() *zerolog.Event  { return l.z.Warn() }
func (l *zlog) Error() *zerolog.Event { return l.z.Error() }

func (l *zlog) WithComponent(component string) Logger {
	return &zlog{z: l.z.With().Str("component", component).Logger()}
}

func (l *zlog) WithFields(fields map[string]interface{}) Logger {
	ctx := l.z.With()
	for key, value := range fields {
		ctx = ctx.Interface(key, value)
	}
	return &zlog{z: ctx.Logger()}
}

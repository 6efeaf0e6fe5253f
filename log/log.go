package log

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is the severity of a log record.
type Level int8

const (
	DEBUG Level = iota
	INFO
	WARNING
	ERROR
	FATAL
)

var levelNames = [...]string{"DEBUG", "INFO", "WARNING", "ERROR", "FATAL"}

func (l Level) String() string {
	if l < DEBUG || l > FATAL {
		return fmt.Sprintf("Level(%d)", int8(l))
	}
	return levelNames[l]
}

// zapLevel maps a Level onto zap's severities. FATAL is written at zap's
// fatal severity, but Log never exits the process.
func (l Level) zapLevel() zapcore.Level {
	switch l {
	case DEBUG:
		return zapcore.DebugLevel
	case INFO:
		return zapcore.InfoLevel
	case WARNING:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	default:
		return zapcore.FatalLevel
	}
}

// ParseLevel accepts the level names case-insensitively. WARN is an alias of WARNING.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DEBUG, nil
	case "INFO":
		return INFO, nil
	case "WARNING", "WARN":
		return WARNING, nil
	case "ERROR":
		return ERROR, nil
	case "FATAL":
		return FATAL, nil
	}
	return DEBUG, fmt.Errorf("unknown log level %q", s)
}

// Options configures the process-wide sink.
type Options struct {
	Level Level
	// File redirects output from stderr to an append-only file.
	File string
}

var (
	Logger = zap.NewNop()
	level  = zap.NewAtomicLevelAt(zapcore.DebugLevel)
)

// Init replaces Logger with one writing to opts.File, or stderr.
func Init(opts Options) error {
	level.SetLevel(opts.Level.zapLevel())

	config := zap.NewProductionConfig()
	config.Level = level
	config.Encoding = "console"
	config.Sampling = nil
	config.DisableStacktrace = true
	config.EncoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Format(time.RFC3339))
	}
	config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	if opts.File != "" {
		// zap opens file sinks with O_APPEND|O_CREATE
		config.OutputPaths = []string{opts.File}
		config.ErrorOutputPaths = []string{opts.File}
	} else {
		config.OutputPaths = []string{"stderr"}
		if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
			config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
	}

	logger, err := config.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	Logger = logger
	return nil
}

// SetLevel changes the threshold below which records are dropped.
func SetLevel(l Level) {
	level.SetLevel(l.zapLevel())
}

// Enabled reports whether records at l currently pass the threshold.
func Enabled(l Level) bool {
	return level.Enabled(l.zapLevel())
}

// Log writes msg at the given level.
func Log(l Level, msg string, fields ...zap.Field) {
	if l == FATAL {
		// straight to the core: Logger.Check would attach zap's os.Exit hook
		ent := zapcore.Entry{Level: zapcore.FatalLevel, Time: time.Now(), Message: msg}
		if ce := Logger.Core().Check(ent, nil); ce != nil {
			ce.Write(fields...)
		}
		return
	}
	if ce := Logger.Check(l.zapLevel(), msg); ce != nil {
		ce.Write(fields...)
	}
}

func Sync() {
	_ = Logger.Sync()
}

package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"agrovision/internal/config"
)

// Level file names kept in the log directory.
const (
	InfoFile    = "info.log"
	WarningFile = "warning.log"
	ErrorFile   = "error.log"
)

// Logger provides leveled logging (debug/info/warning/error) to per-level
// files and stdout/stderr.
type Logger struct {
	sugar  *zap.SugaredLogger
	logDir string
	files  []*os.File
}

// NewLogger creates a Logger and ensures the log directory exists.
func NewLogger(cfg *config.Config) (*Logger, error) {
	if err := os.MkdirAll(cfg.LogDirectory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	minLevel := parseLevel(cfg.LogLevel)
	l := &Logger{logDir: cfg.LogDirectory}

	consoleConfig := encoderConfig()
	if isatty.IsTerminal(os.Stdout.Fd()) {
		consoleConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	consoleEncoder := zapcore.NewConsoleEncoder(consoleConfig)
	fileEncoder := zapcore.NewJSONEncoder(encoderConfig())

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stdout), levelRange(minLevel, zapcore.WarnLevel)),
		zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stderr), levelRange(zapcore.ErrorLevel, zapcore.FatalLevel)),
	}

	// Each file only receives its own level, like the console split above.
	perLevel := []struct {
		name     string
		min, max zapcore.Level
	}{
		{InfoFile, zapcore.InfoLevel, zapcore.InfoLevel},
		{WarningFile, zapcore.WarnLevel, zapcore.WarnLevel},
		{ErrorFile, zapcore.ErrorLevel, zapcore.FatalLevel},
	}
	for _, pl := range perLevel {
		file, err := l.openLogFile(filepath.Join(cfg.LogDirectory, pl.name))
		if err != nil {
			l.closeFiles()
			return nil, err
		}
		if pl.max < minLevel {
			continue
		}
		cores = append(cores, zapcore.NewCore(fileEncoder, zapcore.Lock(file), levelRange(pl.min, pl.max)))
	}

	base := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
	l.sugar = base.Sugar()
	return l, nil
}

// New wraps an existing zap core, mainly for tests.
func New(core zapcore.Core) *Logger {
	return &Logger{sugar: zap.New(core).Sugar()}
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar()}
}

// openLogFile opens or creates a log file for appending.
func (l *Logger) openLogFile(filename string) (*os.File, error) {
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", filename, err)
	}
	l.files = append(l.files, file)
	return file, nil
}

// With returns a child logger carrying the given key/value pairs.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{sugar: l.sugar.With(keysAndValues...), logDir: l.logDir}
}

// Debug writes a formatted debug-level log entry.
func (l *Logger) Debug(format string, v ...interface{}) {
	l.sugar.Debugf(format, v...)
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.sugar.Infof(format, v...)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.sugar.Warnf(format, v...)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.sugar.Errorf(format, v...)
}

// Dir returns the directory holding the level files.
func (l *Logger) Dir() string {
	return l.logDir
}

// CleanLogs truncates the specified log file.
func (l *Logger) CleanLogs(fileName string) error {
	if l.logDir == "" {
		return fmt.Errorf("logger has no log directory")
	}
	filePath := filepath.Join(l.logDir, filepath.Base(fileName))
	if err := os.Truncate(filePath, 0); err != nil {
		l.Error("Error truncating log file %s: %v", fileName, err)
		return err
	}

	l.Info("Log file %s has been cleared", fileName)
	return nil
}

// Sync flushes buffered entries and closes the level files.
func (l *Logger) Sync() error {
	err := l.sugar.Sync()
	l.closeFiles()
	return err
}

func (l *Logger) closeFiles() {
	for _, f := range l.files {
		f.Close()
	}
	l.files = nil
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "time"
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006/01/02 15:04:05")
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func levelRange(lo, hi zapcore.Level) zap.LevelEnablerFunc {
	return func(l zapcore.Level) bool {
		return l >= lo && l <= hi
	}
}

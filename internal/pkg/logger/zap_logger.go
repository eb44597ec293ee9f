package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type ILogger interface {
	Debug(module, message string, details map[string]interface{})
	Info(module, message string, details map[string]interface{})
	Warn(module, message string, details map[string]interface{})
	Error(module, message string, details map[string]interface{})
	Sync() error
}

// Detail keys copied to top-level fields so a whole diagnosis run can be found by one query.
var promotedKeys = []string{"session_id", "error"}

type ZapLogger struct {
	logger *zap.Logger
}

// NewZapLogger writes JSON lines to a rotated file and mirrors them to stdout. The file never
// records below info; level only lowers or raises the console.
func NewZapLogger(logFilePath, level string, isProd bool) *ZapLogger {
	fileEncoder := zapcore.NewJSONEncoder(fileEncoderConfig())

	consoleEncoder := fileEncoder
	if !isProd {
		consoleEncoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	}

	return newFromCore(zapcore.NewTee(
		zapcore.NewCore(fileEncoder, zapcore.AddSync(newRotator(logFilePath)), atLeastInfo(parseLevel(level))),
		zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stdout), parseLevel(level)),
	))
}

// NewIsolatedLogger writes only to its file. Used for per-frame progress chatter.
func NewIsolatedLogger(logFilePath string) *ZapLogger {
	return newFromCore(zapcore.NewCore(
		zapcore.NewJSONEncoder(fileEncoderConfig()),
		zapcore.AddSync(newRotator(logFilePath)),
		zap.InfoLevel,
	))
}

func NewNopLogger() *ZapLogger {
	return &ZapLogger{logger: zap.NewNop()}
}

func newFromCore(core zapcore.Core) *ZapLogger {
	return &ZapLogger{logger: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2))}
}

func parseLevel(level string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return zap.DebugLevel
	}
	return lvl
}

func atLeastInfo(l zapcore.Level) zapcore.Level {
	if l < zap.InfoLevel {
		return zap.InfoLevel
	}
	return l
}

func newRotator(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    20, // MB
		MaxBackups: 7,
		MaxAge:     14, // days
		Compress:   true,
	}
}

func fileEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.MessageKey = "message"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}

func (l *ZapLogger) Debug(module, message string, details map[string]interface{}) {
	l.write(zap.DebugLevel, module, message, details)
}

func (l *ZapLogger) Info(module, message string, details map[string]interface{}) {
	l.write(zap.InfoLevel, module, message, details)
}

func (l *ZapLogger) Warn(module, message string, details map[string]interface{}) {
	l.write(zap.WarnLevel, module, message, details)
}

func (l *ZapLogger) Error(module, message string, details map[string]interface{}) {
	l.write(zap.ErrorLevel, module, message, details)
}

func (l *ZapLogger) write(level zapcore.Level, module, message string, details map[string]interface{}) {
	ce := l.logger.Check(level, message)
	if ce == nil {
		return
	}
	if details == nil {
		details = map[string]interface{}{}
	}

	fields := make([]zap.Field, 0, 2+len(promotedKeys))
	fields = append(fields, zap.String("module", module), zap.Any("details", details))
	for _, key := range promotedKeys {
		if v, ok := details[key]; ok {
			fields = append(fields, zap.Any(key, v))
		}
	}
	ce.Write(fields...)
}

func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}

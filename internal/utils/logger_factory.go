package utils

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logLevelDebugStringConstant          = "debug"
	logLevelInfoStringConstant           = "info"
	logLevelWarnStringConstant           = "warn"
	logLevelErrorStringConstant          = "error"
	logFormatStructuredStringConstant    = "structured"
	logFormatConsoleStringConstant       = "console"
	jsonZapEncodingStringConstant        = "json"
	consoleZapEncodingStringConstant     = "console"
	unsupportedLogLevelTemplateConstant  = "unsupported log level: %s"
	unsupportedLogFormatTemplateConstant = "unsupported log format: %s"
	loggerBuildErrorTemplateConstant     = "failed to build logger: %w"
	defaultLogFileMaxSizeMegabytes       = 10
	defaultLogFileMaxBackups             = 3
	defaultLogFileMaxAgeDays             = 28
)

// LogLevel enumerates supported logging granularities.
type LogLevel string

// Exported log level constants for reuse across packages.
const (
	LogLevelDebug LogLevel = LogLevel(logLevelDebugStringConstant)
	LogLevelInfo  LogLevel = LogLevel(logLevelInfoStringConstant)
	LogLevelWarn  LogLevel = LogLevel(logLevelWarnStringConstant)
	LogLevelError LogLevel = LogLevel(logLevelErrorStringConstant)
)

// LogFormat enumerates supported logger output encodings.
type LogFormat string

// Exported log format constants for reuse across packages.
const (
	LogFormatStructured LogFormat = LogFormat(logFormatStructuredStringConstant)
	LogFormatConsole    LogFormat = LogFormat(logFormatConsoleStringConstant)
)

// LogFileSettings configures the optional rotating log file. An empty Path disables the file sink.
type LogFileSettings struct {
	Path             string
	MaxSizeMegabytes int
	MaxBackups       int
	MaxAgeDays       int
}

// LoggerFactory builds zap.Logger instances with consistent configuration.
type LoggerFactory struct{}

var logLevelMapping = map[LogLevel]zapcore.Level{
	LogLevelDebug: zapcore.DebugLevel,
	LogLevelInfo:  zapcore.InfoLevel,
	LogLevelWarn:  zapcore.WarnLevel,
	LogLevelError: zapcore.ErrorLevel,
}

var logFormatEncodingMapping = map[LogFormat]string{
	LogFormatStructured: jsonZapEncodingStringConstant,
	LogFormatConsole:    consoleZapEncodingStringConstant,
}

// NewLoggerFactory constructs a new logger factory.
func NewLoggerFactory() *LoggerFactory {
	return &LoggerFactory{}
}

// CreateLogger produces a stderr zap.Logger honoring the requested log level and format.
func (factory *LoggerFactory) CreateLogger(requestedLogLevel LogLevel, requestedLogFormat LogFormat) (*zap.Logger, error) {
	return factory.CreateLoggerWithFile(requestedLogLevel, requestedLogFormat, LogFileSettings{})
}

// CreateLoggerWithFile produces a zap.Logger that additionally writes JSON entries to a rotating
// file when fileSettings.Path is set.
func (factory *LoggerFactory) CreateLoggerWithFile(requestedLogLevel LogLevel, requestedLogFormat LogFormat, fileSettings LogFileSettings) (*zap.Logger, error) {
	zapLogLevel, levelExists := logLevelMapping[requestedLogLevel]
	if !levelExists {
		return nil, fmt.Errorf(unsupportedLogLevelTemplateConstant, requestedLogLevel)
	}

	encoding, formatExists := logFormatEncodingMapping[requestedLogFormat]
	if !formatExists {
		return nil, fmt.Errorf(unsupportedLogFormatTemplateConstant, requestedLogFormat)
	}

	configuration := zap.NewProductionConfig()
	configuration.Level = zap.NewAtomicLevelAt(zapLogLevel)
	configuration.Encoding = encoding

	logger, buildError := configuration.Build()
	if buildError != nil {
		return nil, fmt.Errorf(loggerBuildErrorTemplateConstant, buildError)
	}

	trimmedLogFilePath := strings.TrimSpace(fileSettings.Path)
	if len(trimmedLogFilePath) == 0 {
		return logger, nil
	}

	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(configuration.EncoderConfig),
		zapcore.AddSync(newRotatingFileWriter(trimmedLogFilePath, fileSettings)),
		configuration.Level,
	)

	return logger.WithOptions(zap.WrapCore(func(consoleCore zapcore.Core) zapcore.Core {
		return zapcore.NewTee(consoleCore, fileCore)
	})), nil
}

func newRotatingFileWriter(logFilePath string, fileSettings LogFileSettings) *lumberjack.Logger {
	maxSize := fileSettings.MaxSizeMegabytes
	if maxSize <= 0 {
		maxSize = defaultLogFileMaxSizeMegabytes
	}
	maxBackups := fileSettings.MaxBackups
	if maxBackups <= 0 {
		maxBackups = defaultLogFileMaxBackups
	}
	maxAge := fileSettings.MaxAgeDays
	if maxAge <= 0 {
		maxAge = defaultLogFileMaxAgeDays
	}
	return &lumberjack.Logger{
		Filename:   logFilePath,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
		MaxAge:     maxAge,
	}
}

package release

import (
	"os"

	"go.uber.org/zap"
)

// LoggerProvider yields a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// EnvironmentLookup reads a single environment variable.
type EnvironmentLookup func(name string) (string, bool)

func resolveLogger(provider LoggerProvider) *zap.Logger {
	if provider == nil {
		return zap.NewNop()
	}
	logger := provider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func resolveEnvironmentLookup(lookup EnvironmentLookup) EnvironmentLookup {
	if lookup == nil {
		return os.LookupEnv
	}
	return lookup
}

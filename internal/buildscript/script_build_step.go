// Package buildscript drives the external compiler for one build configuration at a time.
package buildscript

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/temirov/matrixbuild/internal/execshell"
	"github.com/temirov/matrixbuild/internal/releases"
	"github.com/temirov/matrixbuild/internal/repos/shared"
)

const (
	launchFailureExitCode                = -1
	programExecutorNotConfiguredMessage  = "build script executor not configured"
	fileSystemNotConfiguredMessage       = "build script file system not configured"
	buildCommandRequiredMessage          = "build command required"
	configurationVariableRequiredMessage = "configuration environment variable required"
	configurationRequiredMessage         = "build configuration required"
	launchBuildErrorTemplate             = "launch %s for %s: %w"
	pathSeparatorCharacters              = "/\\"
)

// ErrProgramExecutorNotConfigured indicates the build step was constructed without an executor.
var ErrProgramExecutorNotConfigured = errors.New(programExecutorNotConfiguredMessage)

// ErrFileSystemNotConfigured indicates the build step was constructed without a file system.
var ErrFileSystemNotConfigured = errors.New(fileSystemNotConfiguredMessage)

// ErrBuildCommandRequired indicates the build command setting is empty.
var ErrBuildCommandRequired = errors.New(buildCommandRequiredMessage)

// ErrConfigurationVariableRequired indicates the configuration environment variable setting is empty.
var ErrConfigurationVariableRequired = errors.New(configurationVariableRequiredMessage)

// ErrConfigurationRequired indicates a build was requested without a configuration name.
var ErrConfigurationRequired = errors.New(configurationRequiredMessage)

// ProgramExecutor runs an arbitrary executable.
type ProgramExecutor interface {
	ExecuteProgram(executionContext context.Context, programName string, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Settings names the build script and how the configuration is handed to it.
type Settings struct {
	Command                          string
	Arguments                        []string
	ConfigurationEnvironmentVariable string
}

// Dependencies collects collaborators for ScriptBuildStep.
type Dependencies struct {
	Executor     ProgramExecutor
	FileSystem   shared.FileSystem
	OutputWriter io.Writer
}

// ScriptBuildStep implements releases.BuildStep by running a build script with the configuration
// exported in an environment variable.
type ScriptBuildStep struct {
	executor     ProgramExecutor
	fileSystem   shared.FileSystem
	outputWriter io.Writer
	settings     Settings
}

// NewScriptBuildStep validates dependencies and settings.
func NewScriptBuildStep(dependencies Dependencies, settings Settings) (*ScriptBuildStep, error) {
	if dependencies.Executor == nil {
		return nil, ErrProgramExecutorNotConfigured
	}
	if dependencies.FileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}

	trimmedSettings := Settings{
		Command:                          strings.TrimSpace(settings.Command),
		Arguments:                        append([]string(nil), settings.Arguments...),
		ConfigurationEnvironmentVariable: strings.TrimSpace(settings.ConfigurationEnvironmentVariable),
	}
	if len(trimmedSettings.Command) == 0 {
		return nil, ErrBuildCommandRequired
	}
	if len(trimmedSettings.ConfigurationEnvironmentVariable) == 0 {
		return nil, ErrConfigurationVariableRequired
	}

	return &ScriptBuildStep{
		executor:     dependencies.Executor,
		fileSystem:   dependencies.FileSystem,
		outputWriter: dependencies.OutputWriter,
		settings:     trimmedSettings,
	}, nil
}

// Build runs the script once for invocation.Configuration. A script that ran and exited
// non-zero yields its exit code with a nil error; a script that could not be launched yields
// -1 and the launch error.
func (step *ScriptBuildStep) Build(executionContext context.Context, invocation releases.BuildInvocation) (int, error) {
	configuration := strings.TrimSpace(invocation.Configuration)
	if len(configuration) == 0 {
		return launchFailureExitCode, ErrConfigurationRequired
	}

	programName := step.resolveProgram(invocation.WorkingDirectory)
	commandDetails := execshell.CommandDetails{
		Arguments:            append([]string(nil), step.settings.Arguments...),
		WorkingDirectory:     invocation.WorkingDirectory,
		EnvironmentVariables: map[string]string{step.settings.ConfigurationEnvironmentVariable: configuration},
		OutputWriter:         step.outputWriter,
	}

	executionResult, executionError := step.executor.ExecuteProgram(executionContext, programName, commandDetails)
	if executionError == nil {
		return executionResult.ExitCode, nil
	}

	var commandFailure execshell.CommandFailedError
	if errors.As(executionError, &commandFailure) {
		return commandFailure.Result.ExitCode, nil
	}
	return launchFailureExitCode, fmt.Errorf(launchBuildErrorTemplate, step.settings.Command, configuration, executionError)
}

// resolveProgram anchors a bare script name to the working directory when the script lives
// there, since executable lookup only searches PATH.
func (step *ScriptBuildStep) resolveProgram(workingDirectory string) string {
	command := step.settings.Command
	if filepath.IsAbs(command) {
		return command
	}
	if strings.ContainsAny(command, pathSeparatorCharacters) {
		return filepath.Join(workingDirectory, command)
	}

	candidatePath := filepath.Join(workingDirectory, command)
	if candidateInfo, statError := step.fileSystem.Stat(candidatePath); statError == nil && candidateInfo.Mode().IsRegular() {
		return candidatePath
	}
	return command
}

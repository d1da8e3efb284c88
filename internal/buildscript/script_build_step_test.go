package buildscript_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/matrixbuild/internal/buildscript"
	"github.com/temirov/matrixbuild/internal/execshell"
	"github.com/temirov/matrixbuild/internal/releases"
	"github.com/temirov/matrixbuild/internal/repos/filesystem"
)

const (
	testBuildCommand          = "compile_solution.bat"
	testConfigurationVariable = "LaTeX2AI_build_type"
)

type recordedProgram struct {
	programName string
	details     execshell.CommandDetails
}

type stubProgramExecutor struct {
	result     execshell.ExecutionResult
	err        error
	recordings []recordedProgram
}

func (executor *stubProgramExecutor) ExecuteProgram(_ context.Context, programName string, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recordings = append(executor.recordings, recordedProgram{programName: programName, details: details})
	return executor.result, executor.err
}

func defaultSettings() buildscript.Settings {
	return buildscript.Settings{Command: testBuildCommand, ConfigurationEnvironmentVariable: testConfigurationVariable}
}

func TestNewScriptBuildStepValidation(testInstance *testing.T) {
	executor := &stubProgramExecutor{}
	testCases := []struct {
		name         string
		dependencies buildscript.Dependencies
		settings     buildscript.Settings
		expected     error
	}{
		{name: "executor", dependencies: buildscript.Dependencies{FileSystem: filesystem.OSFileSystem{}}, settings: defaultSettings(), expected: buildscript.ErrProgramExecutorNotConfigured},
		{name: "file_system", dependencies: buildscript.Dependencies{Executor: executor}, settings: defaultSettings(), expected: buildscript.ErrFileSystemNotConfigured},
		{name: "command", dependencies: buildscript.Dependencies{Executor: executor, FileSystem: filesystem.OSFileSystem{}}, settings: buildscript.Settings{ConfigurationEnvironmentVariable: testConfigurationVariable}, expected: buildscript.ErrBuildCommandRequired},
		{name: "variable", dependencies: buildscript.Dependencies{Executor: executor, FileSystem: filesystem.OSFileSystem{}}, settings: buildscript.Settings{Command: " " + testBuildCommand + " "}, expected: buildscript.ErrConfigurationVariableRequired},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtest *testing.T) {
			step, creationError := buildscript.NewScriptBuildStep(testCase.dependencies, testCase.settings)
			require.ErrorIs(subtest, creationError, testCase.expected)
			require.Nil(subtest, step)
		})
	}
}

func TestBuildPassesConfigurationThroughEnvironment(testInstance *testing.T) {
	scriptsDirectory := testInstance.TempDir()
	require.NoError(testInstance, os.WriteFile(filepath.Join(scriptsDirectory, testBuildCommand), []byte("@echo off\n"), 0o755))

	var output bytes.Buffer
	executor := &stubProgramExecutor{}
	settings := defaultSettings()
	settings.Arguments = []string{"/m"}
	step, creationError := buildscript.NewScriptBuildStep(buildscript.Dependencies{Executor: executor, FileSystem: filesystem.OSFileSystem{}, OutputWriter: &output}, settings)
	require.NoError(testInstance, creationError)

	exitCode, buildError := step.Build(context.Background(), releases.BuildInvocation{Configuration: "Debug", WorkingDirectory: scriptsDirectory})
	require.NoError(testInstance, buildError)
	require.Zero(testInstance, exitCode)

	require.Len(testInstance, executor.recordings, 1)
	recording := executor.recordings[0]
	require.Equal(testInstance, filepath.Join(scriptsDirectory, testBuildCommand), recording.programName)
	require.Equal(testInstance, scriptsDirectory, recording.details.WorkingDirectory)
	require.Equal(testInstance, []string{"/m"}, recording.details.Arguments)
	require.Equal(testInstance, map[string]string{testConfigurationVariable: "Debug"}, recording.details.EnvironmentVariables)
	require.Same(testInstance, &output, recording.details.OutputWriter)
}

func TestBuildResolvesProgram(testInstance *testing.T) {
	scriptsDirectory := testInstance.TempDir()
	absoluteCommand := filepath.Join(testInstance.TempDir(), "tools", "build.sh")

	testCases := []struct {
		name     string
		command  string
		expected string
	}{
		{name: "bare_name_not_in_directory_left_for_path_lookup", command: "msbuild", expected: "msbuild"},
		{name: "relative_path_joined", command: filepath.Join("tools", "build.sh"), expected: filepath.Join(scriptsDirectory, "tools", "build.sh")},
		{name: "absolute_path_kept", command: absoluteCommand, expected: absoluteCommand},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtest *testing.T) {
			executor := &stubProgramExecutor{}
			settings := defaultSettings()
			settings.Command = testCase.command
			step, creationError := buildscript.NewScriptBuildStep(buildscript.Dependencies{Executor: executor, FileSystem: filesystem.OSFileSystem{}}, settings)
			require.NoError(subtest, creationError)

			_, buildError := step.Build(context.Background(), releases.BuildInvocation{Configuration: "Release", WorkingDirectory: scriptsDirectory})
			require.NoError(subtest, buildError)
			require.Equal(subtest, testCase.expected, executor.recordings[0].programName)
		})
	}
}

func TestBuildReportsExitCodeAndLaunchFailures(testInstance *testing.T) {
	launchCause := errors.New("exec: file not found")
	testCases := []struct {
		name             string
		executor         *stubProgramExecutor
		expectedExitCode int
		expectedError    error
	}{
		{
			name: "non_zero_exit",
			executor: &stubProgramExecutor{err: execshell.CommandFailedError{
				Command: execshell.ShellCommand{Name: testBuildCommand},
				Result:  execshell.ExecutionResult{ExitCode: 2},
			}},
			expectedExitCode: 2,
		},
		{
			name:             "launch_failure",
			executor:         &stubProgramExecutor{err: execshell.CommandExecutionError{Command: execshell.ShellCommand{Name: testBuildCommand}, Cause: launchCause}},
			expectedExitCode: -1,
			expectedError:    launchCause,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtest *testing.T) {
			step, creationError := buildscript.NewScriptBuildStep(buildscript.Dependencies{Executor: testCase.executor, FileSystem: filesystem.OSFileSystem{}}, defaultSettings())
			require.NoError(subtest, creationError)

			exitCode, buildError := step.Build(context.Background(), releases.BuildInvocation{Configuration: "Release", WorkingDirectory: subtest.TempDir()})
			require.Equal(subtest, testCase.expectedExitCode, exitCode)
			if testCase.expectedError == nil {
				require.NoError(subtest, buildError)
				return
			}
			require.ErrorIs(subtest, buildError, testCase.expectedError)
		})
	}
}

func TestBuildRequiresConfiguration(testInstance *testing.T) {
	executor := &stubProgramExecutor{}
	step, creationError := buildscript.NewScriptBuildStep(buildscript.Dependencies{Executor: executor, FileSystem: filesystem.OSFileSystem{}}, defaultSettings())
	require.NoError(testInstance, creationError)

	exitCode, buildError := step.Build(context.Background(), releases.BuildInvocation{Configuration: " "})
	require.ErrorIs(testInstance, buildError, buildscript.ErrConfigurationRequired)
	require.Equal(testInstance, -1, exitCode)
	require.Empty(testInstance, executor.recordings)
}

// Package release builds the command that runs a LaTeX2AI release build.
package release

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/matrixbuild/internal/archive"
	"github.com/temirov/matrixbuild/internal/buildscript"
	"github.com/temirov/matrixbuild/internal/flock"
	"github.com/temirov/matrixbuild/internal/releases"
	"github.com/temirov/matrixbuild/internal/repos/dependencies"
	"github.com/temirov/matrixbuild/internal/repos/shared"
	"github.com/temirov/matrixbuild/internal/utils"
	pathutils "github.com/temirov/matrixbuild/internal/utils/path"
)

const (
	commandUseName             = "release"
	commandShortDescription    = "Build every configuration of every checkout and collect the archives"
	commandLongDescription     = "release pins each checkout to the version of the primary checkout, runs the build script once per configuration, zips the artifacts and moves the archives into the executables directory. Checkouts are read from the environment variable named by repositories_environment_variable (semicolon separated) or from the repositories setting; without either only the primary checkout is built."
	commandExampleTemplate     = "LATEX2AI_REPOSITORIES=\"C:\\sdk\\Adobe Illustrator 2021 SDK\\LaTeX2AI;C:\\sdk\\Adobe Illustrator CS6 SDK\\LaTeX2AI\" matrixbuild release"
	releaseSummaryTemplate     = "RELEASED: %s (%d archives) -> %s\n"
	manifestSummaryTemplate    = "MANIFEST: %s\n"
	acknowledgementPrompt      = "Press Enter to exit."
	readAcknowledgementMessage = "unable to read acknowledgement: %w"
	logMessageCheckoutsInScope = "release checkouts resolved"
	logFieldPrimaryRepository  = "primary_repository"
	logFieldCheckouts          = "checkouts"
	logFieldGitBackend         = "git_backend"
	logFieldEnvironmentSource  = "repositories_environment_variable"
)

// CommandBuilder assembles the release command.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() CommandConfiguration
	EnvironmentLookup            EnvironmentLookup
	GitExecutor                  shared.GitExecutor
	GitRepositoryManager         shared.GitRepositoryManager
	BuildStep                    releases.BuildStep
	FileSystem                   shared.FileSystem
	Locker                       releases.CheckoutLocker
	Clock                        shared.Clock
}

// Build constructs the release command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:     commandUseName,
		Short:   commandShortDescription,
		Long:    commandLongDescription,
		Example: commandExampleTemplate,
		Args:    cobra.NoArgs,
		RunE:    builder.Run,
	}
	return command, nil
}

// Run executes the release for the resolved configuration. The root command reuses it so that
// running the binary without a subcommand performs a release.
func (builder *CommandBuilder) Run(command *cobra.Command, _ []string) error {
	configuration := builder.resolveConfiguration()
	logger := resolveLogger(builder.LoggerProvider)
	humanReadable := false
	if builder.HumanReadableLoggingProvider != nil {
		humanReadable = builder.HumanReadableLoggingProvider()
	}

	homeExpander := pathutils.NewHomeExpander()
	primaryRepository := homeExpander.Expand(configuration.PrimaryRepository)
	checkouts := builder.resolveCheckouts(configuration, homeExpander)
	logger.Info(logMessageCheckoutsInScope,
		zap.String(logFieldPrimaryRepository, primaryRepository),
		zap.Strings(logFieldCheckouts, checkouts),
		zap.String(logFieldEnvironmentSource, configuration.RepositoriesEnvironmentVariable),
		zap.String(logFieldGitBackend, configuration.GitBackend),
	)

	aggregator, aggregatorError := builder.buildAggregator(command, configuration, logger, humanReadable)
	if aggregatorError != nil {
		return aggregatorError
	}

	executionContext := command.Context()
	runIdentifier, _ := utils.NewCommandContextAccessor().RunIdentifier(executionContext)

	result, releaseError := aggregator.Release(executionContext, releases.Options{
		PrimaryRepository:    primaryRepository,
		Repositories:         checkouts,
		ExecutablesDirectory: homeExpander.Expand(configuration.ExecutablesDirectory),
		ContinueOnError:      configuration.ContinueOnError,
		WriteManifest:        configuration.WriteManifest,
		RunID:                runIdentifier,
	})
	if releaseError != nil {
		return releaseError
	}

	output := command.OutOrStdout()
	fmt.Fprintf(output, releaseSummaryTemplate, result.Version, len(result.Archives), result.ExecutablesDirectory)
	if len(result.ManifestPath) > 0 {
		fmt.Fprintf(output, manifestSummaryTemplate, result.ManifestPath)
	}

	if shared.AcknowledgementPolicyFromBool(configuration.WaitForAcknowledgement).ShouldWait() {
		return waitForAcknowledgement(output, command.InOrStdin())
	}
	return nil
}

func (builder *CommandBuilder) buildAggregator(command *cobra.Command, configuration CommandConfiguration, logger *zap.Logger, humanReadable bool) (*releases.Aggregator, error) {
	fileSystem := dependencies.ResolveFileSystem(builder.FileSystem)
	profile := configuration.BuildProfile()

	repositoryManager := builder.GitRepositoryManager
	if repositoryManager == nil {
		var gitExecutor shared.GitExecutor
		if configuration.GitBackend != dependencies.GitBackendNative {
			resolvedExecutor, executorError := dependencies.ResolveGitExecutor(builder.GitExecutor, logger, humanReadable)
			if executorError != nil {
				return nil, executorError
			}
			gitExecutor = resolvedExecutor
		}
		resolvedManager, managerError := dependencies.ResolveGitRepositoryManager(nil, configuration.GitBackend, gitExecutor)
		if managerError != nil {
			return nil, managerError
		}
		repositoryManager = resolvedManager
	}

	buildStep := builder.BuildStep
	if buildStep == nil {
		programExecutor, executorError := dependencies.ResolveShellExecutor(logger, humanReadable)
		if executorError != nil {
			return nil, executorError
		}
		scriptBuildStep, buildStepError := buildscript.NewScriptBuildStep(buildscript.Dependencies{
			Executor:     programExecutor,
			FileSystem:   fileSystem,
			OutputWriter: utils.NewFlushingWriter(command.OutOrStdout()),
		}, buildscript.Settings{
			Command:                          profile.BuildCommand,
			Arguments:                        profile.BuildArguments,
			ConfigurationEnvironmentVariable: profile.ConfigurationEnvironmentVariable,
		})
		if buildStepError != nil {
			return nil, buildStepError
		}
		buildStep = scriptBuildStep
	}

	archiver, archiverError := archive.NewZipArchiver(fileSystem)
	if archiverError != nil {
		return nil, archiverError
	}

	locker := builder.Locker
	if locker == nil {
		locker = flock.NewLocker(configuration.LockDirectory)
	}

	return releases.NewAggregator(releases.AggregatorDependencies{
		RepositoryManager: repositoryManager,
		BuildStep:         buildStep,
		Archiver:          archiver,
		FileSystem:        fileSystem,
		Locker:            locker,
		Reporter:          shared.NewWriterReporter(command.OutOrStdout()),
		Clock:             builder.Clock,
		Logger:            logger,
	}, releases.AggregatorSettings{Profile: profile, RemoteName: configuration.RemoteName})
}

// resolveCheckouts prefers the environment variable over the configured list. Entries are
// trimmed, home-expanded and deduplicated.
func (builder *CommandBuilder) resolveCheckouts(configuration CommandConfiguration, homeExpander *pathutils.HomeExpander) []string {
	candidates := configuration.Repositories
	if variableName := configuration.RepositoriesEnvironmentVariable; len(variableName) > 0 {
		if rawValue, present := resolveEnvironmentLookup(builder.EnvironmentLookup)(variableName); present && len(strings.TrimSpace(rawValue)) > 0 {
			candidates = pathutils.SplitCheckoutList(rawValue)
		}
	}
	return pathutils.NewCheckoutPathSanitizerWithExpander(homeExpander).Sanitize(candidates)
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration().Sanitize()
	}
	return builder.ConfigurationProvider().Sanitize()
}

func waitForAcknowledgement(output io.Writer, input io.Reader) error {
	fmt.Fprintln(output, acknowledgementPrompt)
	if input == nil {
		return nil
	}
	if _, readError := bufio.NewReader(input).ReadString('\n'); readError != nil && !errors.Is(readError, io.EOF) {
		return fmt.Errorf(readAcknowledgementMessage, readError)
	}
	return nil
}

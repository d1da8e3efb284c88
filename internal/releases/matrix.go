package releases

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/temirov/matrixbuild/internal/repos/shared"
)

const (
	resolveCheckoutPathErrorTemplate = "resolve checkout path %s: %w"
	logMessageBuildingConfiguration  = "building configuration"
	logMessageConfigurationArchived  = "configuration archived"
	logMessageBuildFailed            = "configuration build failed"
	logMessagePartialArchiveKept     = "partial archive could not be removed"
	logFieldConfiguration            = "configuration"
	logFieldVersion                  = "version"
	logFieldProductTag               = "product_tag"
	logFieldArchivePath              = "archive"
	logFieldExitCode                 = "exit_code"
)

// BuildInvocation describes one run of the external build step.
type BuildInvocation struct {
	Configuration    string
	WorkingDirectory string
}

// BuildStep runs the external compiler for one configuration. A build that ran and failed
// reports a non-zero exit code with a nil error; an error means the build could not be launched.
type BuildStep interface {
	Build(executionContext context.Context, invocation BuildInvocation) (int, error)
}

// Archiver writes an archive containing members resolved relative to workingDirectory.
type Archiver interface {
	CreateArchive(archivePath string, workingDirectory string, members []string) error
}

// ArchiveRecord describes one produced archive.
type ArchiveRecord struct {
	CheckoutPath  string
	Configuration string
	Path          string
	Name          string
}

// MatrixRunnerDependencies collects collaborators for MatrixRunner.
type MatrixRunnerDependencies struct {
	BuildStep  BuildStep
	Archiver   Archiver
	FileSystem shared.FileSystem
	Logger     *zap.Logger
}

// MatrixRunner builds every configuration of a profile for a checkout and archives the results.
type MatrixRunner struct {
	buildStep  BuildStep
	archiver   Archiver
	fileSystem shared.FileSystem
	profile    BuildProfile
	logger     *zap.Logger
}

// NewMatrixRunner constructs a MatrixRunner for profile.
func NewMatrixRunner(dependencies MatrixRunnerDependencies, profile BuildProfile) (*MatrixRunner, error) {
	if dependencies.BuildStep == nil {
		return nil, ErrBuildStepNotConfigured
	}
	if dependencies.Archiver == nil {
		return nil, ErrArchiverNotConfigured
	}
	if dependencies.FileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}

	return &MatrixRunner{
		buildStep:  dependencies.BuildStep,
		archiver:   dependencies.Archiver,
		fileSystem: dependencies.FileSystem,
		profile:    profile.Sanitize(),
		logger:     resolveLogger(dependencies.Logger),
	}, nil
}

// RunMatrix builds each configuration in profile order and archives its artifacts under the
// name derived from version and the checkout's product tag. The product tag is resolved before
// any build runs. The first failing configuration stops the loop; the records produced before
// it are returned together with the error.
func (runner *MatrixRunner) RunMatrix(executionContext context.Context, checkoutPath string, version string) ([]ArchiveRecord, error) {
	absoluteCheckoutPath, absoluteError := runner.fileSystem.Abs(checkoutPath)
	if absoluteError != nil {
		return nil, fmt.Errorf(resolveCheckoutPathErrorTemplate, checkoutPath, absoluteError)
	}

	productTag, productTagError := runner.profile.ProductTagForPath(absoluteCheckoutPath)
	if productTagError != nil {
		return nil, productTagError
	}

	records := make([]ArchiveRecord, 0, len(runner.profile.Configurations))
	for _, configuration := range runner.profile.Configurations {
		if contextError := executionContext.Err(); contextError != nil {
			return records, contextError
		}

		record, buildError := runner.buildConfiguration(executionContext, absoluteCheckoutPath, configuration, version, productTag)
		if buildError != nil {
			runner.logger.Warn(logMessageBuildFailed,
				zap.String(logFieldCheckoutPath, absoluteCheckoutPath),
				zap.String(logFieldConfiguration, configuration),
				zap.Error(buildError),
			)
			return records, buildError
		}
		records = append(records, record)
	}

	return records, nil
}

func (runner *MatrixRunner) buildConfiguration(executionContext context.Context, checkoutPath string, configuration string, version string, productTag string) (ArchiveRecord, error) {
	runner.logger.Info(logMessageBuildingConfiguration,
		zap.String(logFieldCheckoutPath, checkoutPath),
		zap.String(logFieldConfiguration, configuration),
		zap.String(logFieldVersion, version),
		zap.String(logFieldProductTag, productTag),
	)

	invocation := BuildInvocation{
		Configuration:    configuration,
		WorkingDirectory: runner.profile.ScriptsDirectoryPath(checkoutPath),
	}
	exitCode, launchError := runner.buildStep.Build(executionContext, invocation)
	if launchError != nil || exitCode != 0 {
		return ArchiveRecord{}, &BuildFailureError{
			CheckoutPath:  checkoutPath,
			Configuration: configuration,
			Command:       runner.profile.BuildCommand,
			ExitCode:      exitCode,
			Cause:         launchError,
		}
	}

	artifactDirectory := runner.profile.ArtifactDirectoryPath(checkoutPath, configuration)
	archiveName := runner.profile.ArchiveName(version, configuration, productTag)
	archivePath := filepath.Join(artifactDirectory, archiveName)

	if archiveError := runner.archiver.CreateArchive(archivePath, artifactDirectory, runner.profile.Artifacts); archiveError != nil {
		if removeError := runner.fileSystem.RemoveAll(archivePath); removeError != nil {
			runner.logger.Debug(logMessagePartialArchiveKept,
				zap.String(logFieldArchivePath, archivePath),
				zap.Error(removeError),
			)
		}
		return ArchiveRecord{}, &BuildFailureError{
			CheckoutPath:  checkoutPath,
			Configuration: configuration,
			Command:       runner.profile.BuildCommand,
			Cause:         archiveError,
		}
	}

	runner.logger.Info(logMessageConfigurationArchived,
		zap.String(logFieldCheckoutPath, checkoutPath),
		zap.String(logFieldConfiguration, configuration),
		zap.String(logFieldArchivePath, archivePath),
	)

	return ArchiveRecord{
		CheckoutPath:  checkoutPath,
		Configuration: configuration,
		Path:          archivePath,
		Name:          archiveName,
	}, nil
}

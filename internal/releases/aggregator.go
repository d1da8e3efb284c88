package releases

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/temirov/matrixbuild/internal/flock"
	"github.com/temirov/matrixbuild/internal/repos/shared"
)

const (
	lockCheckoutErrorTemplate    = "%w: %s: %w"
	acquireLockErrorTemplate     = "acquire lock for %s: %w"
	resolveTargetErrorTemplate   = "resolve target version from %s: %w"
	resolvePrimaryErrorTemplate  = "resolve primary checkout %s: %w"
	releaseLockErrorTemplate     = "release lock of %s: %w"
	archivedReportTemplate       = "ARCHIVED: %s\n"
	logMessageReleaseStarted     = "release started"
	logMessageReleaseCompleted   = "release completed"
	logMessageCheckoutStarted    = "processing checkout"
	logMessageCheckoutSkipped    = "checkout skipped"
	logMessageCheckoutFailed     = "checkout failed"
	logMessageManifestWritten    = "release manifest written"
	logFieldRunIdentifier        = "run_id"
	logFieldCheckoutCount        = "checkouts"
	logFieldArchiveCount         = "archives"
	logFieldExecutablesDirectory = "executables_directory"
	logFieldManifestPath         = "manifest"
	logFieldSkippedCheckouts     = "skipped_checkouts"
)

// CheckoutLocker grants exclusive use of a checkout. The returned function releases it. A lock
// held by another process is reported with an error wrapping flock.ErrLocked.
type CheckoutLocker interface {
	LockCheckout(checkoutPath string) (func() error, error)
}

// AggregatorDependencies collects collaborators for Aggregator.
type AggregatorDependencies struct {
	RepositoryManager shared.GitRepositoryManager
	BuildStep         BuildStep
	Archiver          Archiver
	FileSystem        shared.FileSystem
	Locker            CheckoutLocker
	Reporter          shared.Reporter
	Clock             shared.Clock
	Logger            *zap.Logger
}

// AggregatorSettings configures what is built and where sources are fetched from.
type AggregatorSettings struct {
	Profile    BuildProfile
	RemoteName string
}

// Options configures a single release run.
type Options struct {
	// PrimaryRepository is built alone when Repositories is empty and otherwise supplies the
	// target version for every listed checkout.
	PrimaryRepository string
	Repositories      []string
	// ExecutablesDirectory receives the archives. Relative paths resolve against PrimaryRepository.
	ExecutablesDirectory string
	ContinueOnError      bool
	WriteManifest        bool
	// RunID labels logs and the manifest; a random identifier is used when empty.
	RunID string
}

// Result summarizes a release run.
type Result struct {
	RunID                string
	Version              string
	ExecutablesDirectory string
	Archives             []ArchiveRecord
	ManifestPath         string
	SkippedCheckouts     []string
}

// Aggregator runs the release across every checkout and collects the archives.
type Aggregator struct {
	fileSystem      shared.FileSystem
	locker          CheckoutLocker
	reporter        shared.Reporter
	logger          *zap.Logger
	profile         BuildProfile
	versionResolver *VersionResolver
	reconciler      *Reconciler
	matrixRunner    *MatrixRunner
	relocator       *Relocator
	manifestWriter  *ManifestWriter
}

// NewAggregator validates dependencies and assembles the release pipeline.
func NewAggregator(dependencies AggregatorDependencies, settings AggregatorSettings) (*Aggregator, error) {
	if dependencies.RepositoryManager == nil {
		return nil, ErrGitRepositoryManagerNotConfigured
	}
	if dependencies.FileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}
	if dependencies.Locker == nil {
		return nil, ErrCheckoutLockerNotConfigured
	}

	logger := resolveLogger(dependencies.Logger)
	profile := settings.Profile.Sanitize()

	versionResolver, resolverError := NewVersionResolver(dependencies.RepositoryManager)
	if resolverError != nil {
		return nil, resolverError
	}

	reconciler, reconcilerError := NewReconciler(ReconcilerDependencies{RepositoryManager: dependencies.RepositoryManager, Logger: logger}, settings.RemoteName)
	if reconcilerError != nil {
		return nil, reconcilerError
	}

	matrixRunner, runnerError := NewMatrixRunner(MatrixRunnerDependencies{
		BuildStep:  dependencies.BuildStep,
		Archiver:   dependencies.Archiver,
		FileSystem: dependencies.FileSystem,
		Logger:     logger,
	}, profile)
	if runnerError != nil {
		return nil, runnerError
	}

	relocator, relocatorError := NewRelocator(dependencies.FileSystem)
	if relocatorError != nil {
		return nil, relocatorError
	}

	manifestWriter, manifestError := NewManifestWriter(dependencies.FileSystem, dependencies.Clock)
	if manifestError != nil {
		return nil, manifestError
	}

	reporter := dependencies.Reporter
	if reporter == nil {
		reporter = shared.NewWriterReporter(nil)
	}

	return &Aggregator{
		fileSystem:      dependencies.FileSystem,
		locker:          dependencies.Locker,
		reporter:        reporter,
		logger:          logger,
		profile:         profile,
		versionResolver: versionResolver,
		reconciler:      reconciler,
		matrixRunner:    matrixRunner,
		relocator:       relocator,
		manifestWriter:  manifestWriter,
	}, nil
}

// Release builds every checkout in scope one after another and relocates the resulting
// archives into the executables directory.
//
// With ContinueOnError unset the first hard failure aborts the run and nothing is relocated.
// With it set, failures are collected, archives of the checkouts that succeeded are still
// relocated, and the combined error is returned. A checkout whose output directory cannot be
// cleared is skipped with a warning in both modes.
func (aggregator *Aggregator) Release(executionContext context.Context, options Options) (Result, error) {
	primaryRepository := strings.TrimSpace(options.PrimaryRepository)
	if len(primaryRepository) == 0 {
		return Result{}, ErrRepositoryPathRequired
	}
	absolutePrimaryRepository, absoluteError := aggregator.fileSystem.Abs(primaryRepository)
	if absoluteError != nil {
		return Result{}, fmt.Errorf(resolvePrimaryErrorTemplate, primaryRepository, absoluteError)
	}

	executablesDirectory := strings.TrimSpace(options.ExecutablesDirectory)
	if len(executablesDirectory) == 0 {
		return Result{}, ErrExecutablesDirectoryRequired
	}
	if !filepath.IsAbs(executablesDirectory) {
		executablesDirectory = filepath.Join(absolutePrimaryRepository, filepath.FromSlash(executablesDirectory))
	}

	runID := strings.TrimSpace(options.RunID)
	if len(runID) == 0 {
		runID = uuid.NewString()
	}
	runLogger := aggregator.logger.With(zap.String(logFieldRunIdentifier, runID))
	failurePolicy := shared.FailurePolicyFromBool(options.ContinueOnError)

	checkouts := []string{absolutePrimaryRepository}
	targetVersion := ""
	if len(options.Repositories) > 0 {
		checkouts = options.Repositories
		resolvedTarget, targetError := aggregator.versionResolver.ResolveVersion(executionContext, absolutePrimaryRepository)
		if targetError != nil {
			return Result{RunID: runID}, fmt.Errorf(resolveTargetErrorTemplate, absolutePrimaryRepository, targetError)
		}
		targetVersion = resolvedTarget
	}

	runLogger.Info(logMessageReleaseStarted,
		zap.Int(logFieldCheckoutCount, len(checkouts)),
		zap.String(logFieldTargetVersion, targetVersion),
		zap.String(logFieldExecutablesDirectory, executablesDirectory),
	)

	result := Result{RunID: runID, Version: targetVersion, ExecutablesDirectory: executablesDirectory}
	collected := make([]ArchiveRecord, 0)
	var aggregatedFailures *multierror.Error

	for _, checkout := range checkouts {
		runLogger.Info(logMessageCheckoutStarted, zap.String(logFieldCheckoutPath, checkout))

		checkoutVersion, records, checkoutError := aggregator.processCheckout(executionContext, checkout, targetVersion)
		var outputDirectoryError *OutputDirectoryError
		switch {
		case errors.As(checkoutError, &outputDirectoryError):
			runLogger.Warn(logMessageCheckoutSkipped, zap.String(logFieldCheckoutPath, checkout), zap.Error(checkoutError))
			result.SkippedCheckouts = append(result.SkippedCheckouts, checkout)
			continue
		case checkoutError != nil:
			runLogger.Error(logMessageCheckoutFailed, zap.String(logFieldCheckoutPath, checkout), zap.Error(checkoutError))
			if !failurePolicy.ShouldContinue() || executionContext.Err() != nil {
				return result, checkoutError
			}
			aggregatedFailures = multierror.Append(aggregatedFailures, checkoutError)
			continue
		}

		if len(result.Version) == 0 {
			result.Version = checkoutVersion
		}
		collected = append(collected, records...)
	}

	relocated, relocateError := aggregator.relocator.Relocate(collected, executablesDirectory)
	result.Archives = relocated
	for _, record := range relocated {
		aggregator.reporter.Printf(archivedReportTemplate, record.Path)
	}
	if relocateError != nil {
		return result, multierror.Append(aggregatedFailures, relocateError).ErrorOrNil()
	}

	if options.WriteManifest && len(relocated) > 0 {
		manifestPath, manifestError := aggregator.manifestWriter.Write(executablesDirectory, runID, result.Version, relocated)
		if manifestError != nil {
			return result, multierror.Append(aggregatedFailures, manifestError).ErrorOrNil()
		}
		result.ManifestPath = manifestPath
		runLogger.Info(logMessageManifestWritten, zap.String(logFieldManifestPath, manifestPath))
	}

	runLogger.Info(logMessageReleaseCompleted,
		zap.Int(logFieldArchiveCount, len(relocated)),
		zap.Strings(logFieldSkippedCheckouts, result.SkippedCheckouts),
	)
	return result, aggregatedFailures.ErrorOrNil()
}

// processCheckout locks checkout, clears its output directory, reconciles it to targetVersion
// and runs the build matrix. Archives of a checkout that fails part way are not returned.
func (aggregator *Aggregator) processCheckout(executionContext context.Context, checkout string, targetVersion string) (version string, records []ArchiveRecord, processError error) {
	releaseLock, lockError := aggregator.locker.LockCheckout(checkout)
	if lockError != nil {
		if errors.Is(lockError, flock.ErrLocked) {
			return "", nil, fmt.Errorf(lockCheckoutErrorTemplate, ErrCheckoutLocked, checkout, lockError)
		}
		return "", nil, fmt.Errorf(acquireLockErrorTemplate, checkout, lockError)
	}
	defer func() {
		if unlockError := releaseLock(); unlockError != nil && processError == nil {
			processError = fmt.Errorf(releaseLockErrorTemplate, checkout, unlockError)
		}
	}()

	outputDirectory := aggregator.profile.OutputDirectoryPath(checkout)
	if removeError := aggregator.fileSystem.RemoveAll(outputDirectory); removeError != nil {
		return "", nil, &OutputDirectoryError{CheckoutPath: checkout, OutputDirectory: outputDirectory, Cause: removeError}
	}

	reconciledVersion, reconcileError := aggregator.reconciler.Reconcile(executionContext, checkout, targetVersion)
	if reconcileError != nil {
		return "", nil, reconcileError
	}

	builtRecords, matrixError := aggregator.matrixRunner.RunMatrix(executionContext, checkout, reconciledVersion)
	if matrixError != nil {
		return reconciledVersion, nil, matrixError
	}
	return reconciledVersion, builtRecords, nil
}

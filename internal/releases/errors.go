package releases

import (
	"errors"
	"fmt"
	"strings"
)

const (
	dirtyRepositoryMessage             = "checkout has uncommitted changes"
	reconciliationMessage              = "checkout could not be moved to the target version"
	productTagNotFoundMessage          = "checkout path does not identify exactly one product"
	buildFailureMessage                = "build failed"
	outputDirectoryMessage             = "output directory could not be cleared"
	checkoutLockedMessage              = "checkout is locked by another release run"
	repositoryManagerMissingMessage    = "git repository manager not configured"
	buildStepMissingMessage            = "build step not configured"
	archiverMissingMessage             = "archiver not configured"
	fileSystemMissingMessage           = "file system not configured"
	checkoutLockerMissingMessage       = "checkout locker not configured"
	repositoryPathRequiredMessage      = "repository path required"
	executablesDirectoryMissingMessage = "executables directory required"
	dirtyRepositoryTemplate            = "%s: %s"
	reconciliationTemplate             = "%s: %s: wanted %s, found %s"
	reconciliationCauseTemplate        = "%s: %s: wanted %s: %v"
	productTagNotFoundTemplate         = "%s: %s (matched: %s)"
	buildFailureExitTemplate           = "%s: %s: %s (%s) exited with code %d"
	buildFailureCauseTemplate          = "%s: %s: %s: %v"
	outputDirectoryTemplate            = "%s: %s: %v"
	noMatchedTagsLabel                 = "none"
	matchedTagsSeparator               = ", "
)

// Error categories for errors.Is checks.
var (
	ErrDirtyRepository    = errors.New(dirtyRepositoryMessage)
	ErrReconciliation     = errors.New(reconciliationMessage)
	ErrProductTagNotFound = errors.New(productTagNotFoundMessage)
	ErrBuildFailure       = errors.New(buildFailureMessage)
	ErrOutputDirectory    = errors.New(outputDirectoryMessage)
	ErrCheckoutLocked     = errors.New(checkoutLockedMessage)
)

// Dependency and input validation errors.
var (
	ErrGitRepositoryManagerNotConfigured = errors.New(repositoryManagerMissingMessage)
	ErrBuildStepNotConfigured            = errors.New(buildStepMissingMessage)
	ErrArchiverNotConfigured             = errors.New(archiverMissingMessage)
	ErrFileSystemNotConfigured           = errors.New(fileSystemMissingMessage)
	ErrCheckoutLockerNotConfigured       = errors.New(checkoutLockerMissingMessage)
	ErrRepositoryPathRequired            = errors.New(repositoryPathRequiredMessage)
	ErrExecutablesDirectoryRequired      = errors.New(executablesDirectoryMissingMessage)
)

// DirtyRepositoryError reports a checkout with local modifications. Nothing was changed.
type DirtyRepositoryError struct {
	CheckoutPath string
}

// Error describes the dirty checkout.
func (dirtyError *DirtyRepositoryError) Error() string {
	return fmt.Sprintf(dirtyRepositoryTemplate, dirtyRepositoryMessage, dirtyError.CheckoutPath)
}

// Unwrap exposes ErrDirtyRepository.
func (dirtyError *DirtyRepositoryError) Unwrap() error {
	return ErrDirtyRepository
}

// ReconciliationError reports a checkout that could not be brought to the target version,
// either because fetch or checkout failed (Cause) or because the resolved version differs.
type ReconciliationError struct {
	CheckoutPath    string
	TargetVersion   string
	ObservedVersion string
	Cause           error
}

// Error describes the reconciliation failure.
func (reconciliationError *ReconciliationError) Error() string {
	if reconciliationError.Cause != nil {
		return fmt.Sprintf(reconciliationCauseTemplate, reconciliationMessage, reconciliationError.CheckoutPath, reconciliationError.TargetVersion, reconciliationError.Cause)
	}
	return fmt.Sprintf(reconciliationTemplate, reconciliationMessage, reconciliationError.CheckoutPath, reconciliationError.TargetVersion, reconciliationError.ObservedVersion)
}

// Unwrap exposes ErrReconciliation and the underlying cause.
func (reconciliationError *ReconciliationError) Unwrap() []error {
	return compactErrors(ErrReconciliation, reconciliationError.Cause)
}

// ProductTagNotFoundError reports a checkout path that matches no product directory, or
// matches directories of more than one product.
type ProductTagNotFoundError struct {
	CheckoutPath string
	MatchedTags  []string
}

// Error describes the unmatched path.
func (tagError *ProductTagNotFoundError) Error() string {
	matched := noMatchedTagsLabel
	if len(tagError.MatchedTags) > 0 {
		matched = strings.Join(tagError.MatchedTags, matchedTagsSeparator)
	}
	return fmt.Sprintf(productTagNotFoundTemplate, productTagNotFoundMessage, tagError.CheckoutPath, matched)
}

// Unwrap exposes ErrProductTagNotFound.
func (tagError *ProductTagNotFoundError) Unwrap() error {
	return ErrProductTagNotFound
}

// BuildFailureError reports a configuration whose build step exited non-zero, could not be
// launched, or did not produce every artifact.
type BuildFailureError struct {
	CheckoutPath  string
	Configuration string
	Command       string
	ExitCode      int
	Cause         error
}

// Error describes the failed build.
func (buildError *BuildFailureError) Error() string {
	if buildError.Cause != nil {
		return fmt.Sprintf(buildFailureCauseTemplate, buildFailureMessage, buildError.CheckoutPath, buildError.Configuration, buildError.Cause)
	}
	return fmt.Sprintf(buildFailureExitTemplate, buildFailureMessage, buildError.CheckoutPath, buildError.Command, buildError.Configuration, buildError.ExitCode)
}

// Unwrap exposes ErrBuildFailure and the underlying cause.
func (buildError *BuildFailureError) Unwrap() []error {
	return compactErrors(ErrBuildFailure, buildError.Cause)
}

// OutputDirectoryError reports an output directory that could not be removed before building.
// The aggregator treats it as a warning and skips the checkout.
type OutputDirectoryError struct {
	CheckoutPath    string
	OutputDirectory string
	Cause           error
}

// Error describes the output directory failure.
func (outputError *OutputDirectoryError) Error() string {
	return fmt.Sprintf(outputDirectoryTemplate, outputDirectoryMessage, outputError.OutputDirectory, outputError.Cause)
}

// Unwrap exposes ErrOutputDirectory and the underlying cause.
func (outputError *OutputDirectoryError) Unwrap() []error {
	return compactErrors(ErrOutputDirectory, outputError.Cause)
}

func compactErrors(candidates ...error) []error {
	compacted := make([]error, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate != nil {
			compacted = append(compacted, candidate)
		}
	}
	return compacted
}

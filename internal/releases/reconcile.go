package releases

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/matrixbuild/internal/repos/shared"
)

const (
	checkWorktreeErrorTemplate    = "check working tree of %s: %w"
	logMessageCheckoutAtTarget    = "checkout already at target version"
	logMessageCheckoutReconciling = "moving checkout to target version"
	logMessageCheckoutReconciled  = "checkout moved to target version"
	logFieldCheckoutPath          = "checkout"
	logFieldCurrentVersion        = "current_version"
	logFieldTargetVersion         = "target_version"
	logFieldRemoteName            = "remote"
)

// ReconcilerDependencies collects collaborators for Reconciler.
type ReconcilerDependencies struct {
	RepositoryManager shared.GitRepositoryManager
	Logger            *zap.Logger
}

// Reconciler brings a clean checkout to a required version.
type Reconciler struct {
	repositoryManager shared.GitRepositoryManager
	versionResolver   *VersionResolver
	remoteName        string
	logger            *zap.Logger
}

// NewReconciler constructs a Reconciler that fetches from remoteName, defaulting to origin.
func NewReconciler(dependencies ReconcilerDependencies, remoteName string) (*Reconciler, error) {
	versionResolver, resolverError := NewVersionResolver(dependencies.RepositoryManager)
	if resolverError != nil {
		return nil, resolverError
	}

	trimmedRemoteName := strings.TrimSpace(remoteName)
	if len(trimmedRemoteName) == 0 {
		trimmedRemoteName = shared.OriginRemoteNameConstant
	}

	return &Reconciler{
		repositoryManager: dependencies.RepositoryManager,
		versionResolver:   versionResolver,
		remoteName:        trimmedRemoteName,
		logger:            resolveLogger(dependencies.Logger),
	}, nil
}

// Reconcile returns the version checkoutPath ends up at. A dirty checkout fails with
// *DirtyRepositoryError before anything changes. An empty targetVersion, or one equal to the
// current version, returns the current version without fetching. Otherwise branches and tags
// are fetched, targetVersion is checked out and the resolved version must equal it; any
// failure along the way is a *ReconciliationError.
func (reconciler *Reconciler) Reconcile(executionContext context.Context, checkoutPath string, targetVersion string) (string, error) {
	clean, cleanError := reconciler.repositoryManager.CheckCleanWorktree(executionContext, checkoutPath)
	if cleanError != nil {
		return "", fmt.Errorf(checkWorktreeErrorTemplate, checkoutPath, cleanError)
	}
	if !clean {
		return "", &DirtyRepositoryError{CheckoutPath: checkoutPath}
	}

	currentVersion, versionError := reconciler.versionResolver.ResolveVersion(executionContext, checkoutPath)
	if versionError != nil {
		return "", versionError
	}

	trimmedTargetVersion := strings.TrimSpace(targetVersion)
	if len(trimmedTargetVersion) == 0 || trimmedTargetVersion == currentVersion {
		reconciler.logger.Debug(logMessageCheckoutAtTarget,
			zap.String(logFieldCheckoutPath, checkoutPath),
			zap.String(logFieldCurrentVersion, currentVersion),
		)
		return currentVersion, nil
	}

	reconciler.logger.Info(logMessageCheckoutReconciling,
		zap.String(logFieldCheckoutPath, checkoutPath),
		zap.String(logFieldCurrentVersion, currentVersion),
		zap.String(logFieldTargetVersion, trimmedTargetVersion),
		zap.String(logFieldRemoteName, reconciler.remoteName),
	)

	reconciliationFailure := func(cause error, observedVersion string) error {
		return &ReconciliationError{CheckoutPath: checkoutPath, TargetVersion: trimmedTargetVersion, ObservedVersion: observedVersion, Cause: cause}
	}

	if fetchError := reconciler.repositoryManager.FetchAllBranches(executionContext, checkoutPath, reconciler.remoteName); fetchError != nil {
		return "", reconciliationFailure(fetchError, currentVersion)
	}
	if fetchError := reconciler.repositoryManager.FetchAllTags(executionContext, checkoutPath, reconciler.remoteName); fetchError != nil {
		return "", reconciliationFailure(fetchError, currentVersion)
	}
	if checkoutError := reconciler.repositoryManager.Checkout(executionContext, checkoutPath, trimmedTargetVersion); checkoutError != nil {
		return "", reconciliationFailure(checkoutError, currentVersion)
	}

	reconciledVersion, reconciledError := reconciler.versionResolver.ResolveVersion(executionContext, checkoutPath)
	if reconciledError != nil {
		return "", reconciliationFailure(reconciledError, "")
	}
	if reconciledVersion != trimmedTargetVersion {
		return "", reconciliationFailure(nil, reconciledVersion)
	}

	stillClean, recheckError := reconciler.repositoryManager.CheckCleanWorktree(executionContext, checkoutPath)
	if recheckError != nil {
		return "", reconciliationFailure(recheckError, reconciledVersion)
	}
	if !stillClean {
		return "", reconciliationFailure(&DirtyRepositoryError{CheckoutPath: checkoutPath}, reconciledVersion)
	}

	reconciler.logger.Info(logMessageCheckoutReconciled,
		zap.String(logFieldCheckoutPath, checkoutPath),
		zap.String(logFieldTargetVersion, reconciledVersion),
	)
	return reconciledVersion, nil
}

func resolveLogger(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

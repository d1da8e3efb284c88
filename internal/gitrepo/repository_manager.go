package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/temirov/matrixbuild/internal/execshell"
	"github.com/temirov/matrixbuild/internal/repos/shared"
)

const (
	gitRevParseSubcommandConstant       = "rev-parse"
	gitHeadReferenceConstant            = "HEAD"
	gitShowRefSubcommandConstant        = "show-ref"
	gitTagsFlagConstant                 = "--tags"
	gitDereferenceFlagConstant          = "--dereference"
	gitStatusSubcommandConstant         = "status"
	gitPorcelainFlagConstant            = "--porcelain"
	gitFetchSubcommandConstant          = "fetch"
	gitCheckoutSubcommandConstant       = "checkout"
	gitTerminalPromptEnvironmentName    = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptDisabledValue      = "0"
	peeledReferenceSuffixConstant       = "^{}"
	showRefNoMatchExitCodeConstant      = 1
	gitExecutorNotConfiguredMessage     = "git executor not configured"
	repositoryPathRequiredMessage       = "repository path required"
	remoteNameRequiredMessage           = "remote name required"
	referenceRequiredMessage            = "checkout reference required"
	emptyRevisionMessage                = "git returned an empty revision"
	currentRevisionErrorTemplate        = "resolve current revision of %s: %w"
	listTagsErrorTemplate               = "list tags of %s: %w"
	malformedShowRefLineTemplate        = "unexpected show-ref line %q"
	worktreeStatusErrorTemplate         = "check working tree of %s: %w"
	fetchBranchesErrorTemplate          = "fetch branches from %s into %s: %w"
	fetchTagsErrorTemplate              = "fetch tags from %s into %s: %w"
	checkoutErrorTemplate               = "checkout %s in %s: %w"
	standardOutputLineSeparatorConstant = "\n"
)

// ErrGitExecutorNotConfigured indicates the repository manager was constructed without an executor.
var ErrGitExecutorNotConfigured = errors.New(gitExecutorNotConfiguredMessage)

// ErrRepositoryPathRequired indicates an operation was requested without a checkout path.
var ErrRepositoryPathRequired = errors.New(repositoryPathRequiredMessage)

// ErrRemoteNameRequired indicates a fetch was requested without a remote.
var ErrRemoteNameRequired = errors.New(remoteNameRequiredMessage)

// ErrReferenceRequired indicates a checkout was requested without a target reference.
var ErrReferenceRequired = errors.New(referenceRequiredMessage)

// RepositoryManager implements shared.GitRepositoryManager by running the git executable.
// Every invocation disables interactive credential prompts.
type RepositoryManager struct {
	executor shared.GitExecutor
}

// NewRepositoryManager constructs a RepositoryManager around the provided executor.
func NewRepositoryManager(executor shared.GitExecutor) (*RepositoryManager, error) {
	if executor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	return &RepositoryManager{executor: executor}, nil
}

// CurrentRevision returns the full commit identifier of HEAD.
func (manager *RepositoryManager) CurrentRevision(executionContext context.Context, repositoryPath string) (string, error) {
	executionResult, executionError := manager.executeGit(executionContext, repositoryPath, gitRevParseSubcommandConstant, gitHeadReferenceConstant)
	if executionError != nil {
		return "", fmt.Errorf(currentRevisionErrorTemplate, repositoryPath, executionError)
	}

	revision := strings.TrimSpace(executionResult.StandardOutput)
	if len(revision) == 0 {
		return "", fmt.Errorf(currentRevisionErrorTemplate, repositoryPath, errors.New(emptyRevisionMessage))
	}
	return revision, nil
}

// ListTagReferences returns every tag in show-ref order. Annotated tags report the commit
// they point at.
func (manager *RepositoryManager) ListTagReferences(executionContext context.Context, repositoryPath string) ([]shared.TagReference, error) {
	executionResult, executionError := manager.executeGit(executionContext, repositoryPath, gitShowRefSubcommandConstant, gitTagsFlagConstant, gitDereferenceFlagConstant)
	if executionError != nil {
		if isEmptyShowRefResult(executionError) {
			return nil, nil
		}
		return nil, fmt.Errorf(listTagsErrorTemplate, repositoryPath, executionError)
	}

	tagReferences, parseError := parseShowRefOutput(executionResult.StandardOutput)
	if parseError != nil {
		return nil, fmt.Errorf(listTagsErrorTemplate, repositoryPath, parseError)
	}
	return tagReferences, nil
}

// CheckCleanWorktree reports whether git status lists no changes, untracked files included.
func (manager *RepositoryManager) CheckCleanWorktree(executionContext context.Context, repositoryPath string) (bool, error) {
	executionResult, executionError := manager.executeGit(executionContext, repositoryPath, gitStatusSubcommandConstant, gitPorcelainFlagConstant)
	if executionError != nil {
		return false, fmt.Errorf(worktreeStatusErrorTemplate, repositoryPath, executionError)
	}
	return len(strings.TrimSpace(executionResult.StandardOutput)) == 0, nil
}

// FetchAllBranches fetches the configured branch refspecs of remoteName.
func (manager *RepositoryManager) FetchAllBranches(executionContext context.Context, repositoryPath string, remoteName string) error {
	trimmedRemoteName := strings.TrimSpace(remoteName)
	if len(trimmedRemoteName) == 0 {
		return ErrRemoteNameRequired
	}
	if _, executionError := manager.executeGit(executionContext, repositoryPath, gitFetchSubcommandConstant, trimmedRemoteName); executionError != nil {
		return fmt.Errorf(fetchBranchesErrorTemplate, trimmedRemoteName, repositoryPath, executionError)
	}
	return nil
}

// FetchAllTags fetches every tag of remoteName.
func (manager *RepositoryManager) FetchAllTags(executionContext context.Context, repositoryPath string, remoteName string) error {
	trimmedRemoteName := strings.TrimSpace(remoteName)
	if len(trimmedRemoteName) == 0 {
		return ErrRemoteNameRequired
	}
	if _, executionError := manager.executeGit(executionContext, repositoryPath, gitFetchSubcommandConstant, trimmedRemoteName, gitTagsFlagConstant); executionError != nil {
		return fmt.Errorf(fetchTagsErrorTemplate, trimmedRemoteName, repositoryPath, executionError)
	}
	return nil
}

// Checkout switches the working tree to reference.
func (manager *RepositoryManager) Checkout(executionContext context.Context, repositoryPath string, reference string) error {
	trimmedReference := strings.TrimSpace(reference)
	if len(trimmedReference) == 0 {
		return ErrReferenceRequired
	}
	if _, executionError := manager.executeGit(executionContext, repositoryPath, gitCheckoutSubcommandConstant, trimmedReference); executionError != nil {
		return fmt.Errorf(checkoutErrorTemplate, trimmedReference, repositoryPath, executionError)
	}
	return nil
}

func (manager *RepositoryManager) executeGit(executionContext context.Context, repositoryPath string, arguments ...string) (execshell.ExecutionResult, error) {
	trimmedRepositoryPath := strings.TrimSpace(repositoryPath)
	if len(trimmedRepositoryPath) == 0 {
		return execshell.ExecutionResult{}, ErrRepositoryPathRequired
	}

	commandDetails := execshell.CommandDetails{
		Arguments:            arguments,
		WorkingDirectory:     trimmedRepositoryPath,
		EnvironmentVariables: map[string]string{gitTerminalPromptEnvironmentName: gitTerminalPromptDisabledValue},
	}
	return manager.executor.ExecuteGit(executionContext, commandDetails)
}

// isEmptyShowRefResult detects the exit status show-ref uses for a repository without tags.
func isEmptyShowRefResult(executionError error) bool {
	var commandFailure execshell.CommandFailedError
	if !errors.As(executionError, &commandFailure) {
		return false
	}
	return commandFailure.Result.ExitCode == showRefNoMatchExitCodeConstant &&
		len(strings.TrimSpace(commandFailure.Result.StandardOutput)) == 0 &&
		len(strings.TrimSpace(commandFailure.Result.StandardError)) == 0
}

func parseShowRefOutput(standardOutput string) ([]shared.TagReference, error) {
	tagReferences := make([]shared.TagReference, 0)
	referenceIndexes := make(map[string]int)

	for _, line := range strings.Split(standardOutput, standardOutputLineSeparatorConstant) {
		trimmedLine := strings.TrimSpace(line)
		if len(trimmedLine) == 0 {
			continue
		}

		fields := strings.Fields(trimmedLine)
		if len(fields) != 2 {
			return nil, fmt.Errorf(malformedShowRefLineTemplate, trimmedLine)
		}
		revision, referenceName := fields[0], fields[1]

		peeled := strings.HasSuffix(referenceName, peeledReferenceSuffixConstant)
		referenceName = strings.TrimSuffix(referenceName, peeledReferenceSuffixConstant)

		existingIndex, seen := referenceIndexes[referenceName]
		if seen {
			if peeled {
				tagReferences[existingIndex].Revision = revision
			}
			continue
		}

		referenceIndexes[referenceName] = len(tagReferences)
		tagReferences = append(tagReferences, shared.TagReference{Revision: revision, Name: referenceName})
	}

	return tagReferences, nil
}

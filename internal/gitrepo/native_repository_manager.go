package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/temirov/matrixbuild/internal/repos/shared"
)

const (
	openRepositoryErrorTemplate = "open repository %s: %w"
	nativeCheckoutErrorTemplate = "checkout %s in %s: %w"
	peelTagErrorTemplate        = "peel tag %s: %w"
)

// NativeRepositoryManager implements shared.GitRepositoryManager with go-git, so no git
// executable needs to be installed. Fetches use the credentials go-git resolves on its own
// and never prompt.
type NativeRepositoryManager struct{}

// NewNativeRepositoryManager constructs a go-git backed repository manager.
func NewNativeRepositoryManager() *NativeRepositoryManager {
	return &NativeRepositoryManager{}
}

// CurrentRevision returns the full commit identifier of HEAD.
func (manager *NativeRepositoryManager) CurrentRevision(executionContext context.Context, repositoryPath string) (string, error) {
	repository, openError := manager.openRepository(executionContext, repositoryPath)
	if openError != nil {
		return "", fmt.Errorf(currentRevisionErrorTemplate, repositoryPath, openError)
	}

	headReference, headError := repository.Head()
	if headError != nil {
		return "", fmt.Errorf(currentRevisionErrorTemplate, repositoryPath, headError)
	}
	return headReference.Hash().String(), nil
}

// ListTagReferences returns every tag sorted by reference name, matching show-ref order.
// Annotated tags are peeled to the commit they point at.
func (manager *NativeRepositoryManager) ListTagReferences(executionContext context.Context, repositoryPath string) ([]shared.TagReference, error) {
	repository, openError := manager.openRepository(executionContext, repositoryPath)
	if openError != nil {
		return nil, fmt.Errorf(listTagsErrorTemplate, repositoryPath, openError)
	}

	tagIterator, tagsError := repository.Tags()
	if tagsError != nil {
		return nil, fmt.Errorf(listTagsErrorTemplate, repositoryPath, tagsError)
	}
	defer tagIterator.Close()

	tagReferences := make([]shared.TagReference, 0)
	iterationError := tagIterator.ForEach(func(reference *plumbing.Reference) error {
		revision, peelError := peelTagReference(repository, reference)
		if peelError != nil {
			return peelError
		}
		tagReferences = append(tagReferences, shared.TagReference{Revision: revision, Name: reference.Name().String()})
		return nil
	})
	if iterationError != nil {
		return nil, fmt.Errorf(listTagsErrorTemplate, repositoryPath, iterationError)
	}

	sort.SliceStable(tagReferences, func(first int, second int) bool {
		return tagReferences[first].Name < tagReferences[second].Name
	})
	return tagReferences, nil
}

// CheckCleanWorktree reports whether the working tree has no staged, modified or untracked files.
func (manager *NativeRepositoryManager) CheckCleanWorktree(executionContext context.Context, repositoryPath string) (bool, error) {
	repository, openError := manager.openRepository(executionContext, repositoryPath)
	if openError != nil {
		return false, fmt.Errorf(worktreeStatusErrorTemplate, repositoryPath, openError)
	}

	worktree, worktreeError := repository.Worktree()
	if worktreeError != nil {
		return false, fmt.Errorf(worktreeStatusErrorTemplate, repositoryPath, worktreeError)
	}

	status, statusError := worktree.Status()
	if statusError != nil {
		return false, fmt.Errorf(worktreeStatusErrorTemplate, repositoryPath, statusError)
	}
	return status.IsClean(), nil
}

// FetchAllBranches fetches the configured branch refspecs of remoteName.
func (manager *NativeRepositoryManager) FetchAllBranches(executionContext context.Context, repositoryPath string, remoteName string) error {
	trimmedRemoteName := strings.TrimSpace(remoteName)
	if len(trimmedRemoteName) == 0 {
		return ErrRemoteNameRequired
	}
	if fetchError := manager.fetch(executionContext, repositoryPath, &git.FetchOptions{RemoteName: trimmedRemoteName}); fetchError != nil {
		return fmt.Errorf(fetchBranchesErrorTemplate, trimmedRemoteName, repositoryPath, fetchError)
	}
	return nil
}

// FetchAllTags fetches every tag of remoteName.
func (manager *NativeRepositoryManager) FetchAllTags(executionContext context.Context, repositoryPath string, remoteName string) error {
	trimmedRemoteName := strings.TrimSpace(remoteName)
	if len(trimmedRemoteName) == 0 {
		return ErrRemoteNameRequired
	}
	if fetchError := manager.fetch(executionContext, repositoryPath, &git.FetchOptions{RemoteName: trimmedRemoteName, Tags: git.AllTags}); fetchError != nil {
		return fmt.Errorf(fetchTagsErrorTemplate, trimmedRemoteName, repositoryPath, fetchError)
	}
	return nil
}

// Checkout switches the working tree to reference. Local branch names are checked out as
// branches; tags and commits leave HEAD detached.
func (manager *NativeRepositoryManager) Checkout(executionContext context.Context, repositoryPath string, reference string) error {
	trimmedReference := strings.TrimSpace(reference)
	if len(trimmedReference) == 0 {
		return ErrReferenceRequired
	}

	repository, openError := manager.openRepository(executionContext, repositoryPath)
	if openError != nil {
		return fmt.Errorf(nativeCheckoutErrorTemplate, trimmedReference, repositoryPath, openError)
	}

	worktree, worktreeError := repository.Worktree()
	if worktreeError != nil {
		return fmt.Errorf(nativeCheckoutErrorTemplate, trimmedReference, repositoryPath, worktreeError)
	}

	checkoutOptions := &git.CheckoutOptions{}
	branchReferenceName := plumbing.NewBranchReferenceName(trimmedReference)
	if _, branchError := repository.Reference(branchReferenceName, false); branchError == nil {
		checkoutOptions.Branch = branchReferenceName
	} else {
		resolvedHash, resolveError := repository.ResolveRevision(plumbing.Revision(trimmedReference))
		if resolveError != nil {
			return fmt.Errorf(nativeCheckoutErrorTemplate, trimmedReference, repositoryPath, resolveError)
		}
		checkoutOptions.Hash = *resolvedHash
	}

	if checkoutError := worktree.Checkout(checkoutOptions); checkoutError != nil {
		return fmt.Errorf(nativeCheckoutErrorTemplate, trimmedReference, repositoryPath, checkoutError)
	}
	return nil
}

func (manager *NativeRepositoryManager) openRepository(executionContext context.Context, repositoryPath string) (*git.Repository, error) {
	trimmedRepositoryPath := strings.TrimSpace(repositoryPath)
	if len(trimmedRepositoryPath) == 0 {
		return nil, ErrRepositoryPathRequired
	}
	if contextError := executionContext.Err(); contextError != nil {
		return nil, contextError
	}

	repository, openError := git.PlainOpenWithOptions(trimmedRepositoryPath, &git.PlainOpenOptions{DetectDotGit: true})
	if openError != nil {
		return nil, fmt.Errorf(openRepositoryErrorTemplate, trimmedRepositoryPath, openError)
	}
	return repository, nil
}

func (manager *NativeRepositoryManager) fetch(executionContext context.Context, repositoryPath string, fetchOptions *git.FetchOptions) error {
	repository, openError := manager.openRepository(executionContext, repositoryPath)
	if openError != nil {
		return openError
	}

	fetchError := repository.FetchContext(executionContext, fetchOptions)
	if fetchError != nil && !errors.Is(fetchError, git.NoErrAlreadyUpToDate) {
		return fetchError
	}
	return nil
}

func peelTagReference(repository *git.Repository, reference *plumbing.Reference) (string, error) {
	tagObject, tagObjectError := repository.TagObject(reference.Hash())
	if errors.Is(tagObjectError, plumbing.ErrObjectNotFound) {
		return reference.Hash().String(), nil
	}
	if tagObjectError != nil {
		return "", fmt.Errorf(peelTagErrorTemplate, reference.Name().Short(), tagObjectError)
	}

	taggedCommit, commitError := tagObject.Commit()
	if commitError != nil {
		return "", fmt.Errorf(peelTagErrorTemplate, reference.Name().Short(), commitError)
	}
	return taggedCommit.Hash.String(), nil
}

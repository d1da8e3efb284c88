package releases

import (
	"context"
	"fmt"
	"strings"

	"github.com/temirov/matrixbuild/internal/repos/shared"
)

const (
	resolveRevisionErrorTemplate = "resolve version of %s: %w"
	listTagsErrorTemplate        = "list tags of %s: %w"
)

// VersionResolver derives the version identifier of a checkout: the name of a tag pointing at
// HEAD, or the short revision when no tag does.
type VersionResolver struct {
	repositoryManager shared.GitRepositoryManager
}

// NewVersionResolver constructs a VersionResolver.
func NewVersionResolver(repositoryManager shared.GitRepositoryManager) (*VersionResolver, error) {
	if repositoryManager == nil {
		return nil, ErrGitRepositoryManagerNotConfigured
	}
	return &VersionResolver{repositoryManager: repositoryManager}, nil
}

// ResolveVersion returns the leaf name of the first tag, in listing order, whose revision
// equals HEAD. Without such a tag it returns the first ShortRevisionLength characters of the
// revision. The result is computed on every call and never touches the network.
func (resolver *VersionResolver) ResolveVersion(executionContext context.Context, checkoutPath string) (string, error) {
	if len(strings.TrimSpace(checkoutPath)) == 0 {
		return "", ErrRepositoryPathRequired
	}

	currentRevision, revisionError := resolver.repositoryManager.CurrentRevision(executionContext, checkoutPath)
	if revisionError != nil {
		return "", fmt.Errorf(resolveRevisionErrorTemplate, checkoutPath, revisionError)
	}

	tagReferences, tagsError := resolver.repositoryManager.ListTagReferences(executionContext, checkoutPath)
	if tagsError != nil {
		return "", fmt.Errorf(listTagsErrorTemplate, checkoutPath, tagsError)
	}

	for _, tagReference := range tagReferences {
		if tagReference.Revision == currentRevision {
			return tagReference.LeafName(), nil
		}
	}

	if len(currentRevision) <= ShortRevisionLength {
		return currentRevision, nil
	}
	return currentRevision[:ShortRevisionLength], nil
}

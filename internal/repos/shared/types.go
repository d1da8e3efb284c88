package shared

import (
	"context"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/temirov/matrixbuild/internal/execshell"
)

const (
	// OriginRemoteNameConstant identifies the default remote fetched during reconciliation.
	OriginRemoteNameConstant   = "origin"
	tagReferencePrefixConstant = "refs/tags/"
	referencePathSeparator     = "/"
)

// Clock abstracts time acquisition for deterministic testing.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the system time source.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// FileSystem exposes the filesystem operations used while building and collecting release archives.
type FileSystem interface {
	Stat(path string) (fs.FileInfo, error)
	Rename(oldPath string, newPath string) error
	Abs(path string) (string, error)
	MkdirAll(path string, permissions fs.FileMode) error
	RemoveAll(path string) error
	Remove(path string) error
	Open(path string) (io.ReadCloser, error)
	Create(path string) (io.WriteCloser, error)
	WriteFile(path string, data []byte, permissions fs.FileMode) error
}

// GitExecutor exposes the subset of shell execution used by the git CLI backend.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// TagReference pairs a tag reference name with the commit it points at. Annotated tags
// carry the peeled commit rather than the tag object.
type TagReference struct {
	Revision string
	Name     string
}

// LeafName returns the last slash-separated component of the reference name, so
// refs/tags/release/v1.2.0 yields v1.2.0.
func (reference TagReference) LeafName() string {
	trimmedName := strings.TrimPrefix(strings.TrimSpace(reference.Name), tagReferencePrefixConstant)
	separatorIndex := strings.LastIndex(trimmedName, referencePathSeparator)
	if separatorIndex < 0 {
		return trimmedName
	}
	return trimmedName[separatorIndex+1:]
}

// GitRepositoryManager exposes the repository-level version control queries and mutations
// needed to pin a checkout to a release revision.
type GitRepositoryManager interface {
	CurrentRevision(executionContext context.Context, repositoryPath string) (string, error)
	ListTagReferences(executionContext context.Context, repositoryPath string) ([]TagReference, error)
	CheckCleanWorktree(executionContext context.Context, repositoryPath string) (bool, error)
	FetchAllBranches(executionContext context.Context, repositoryPath string, remoteName string) error
	FetchAllTags(executionContext context.Context, repositoryPath string, remoteName string) error
	Checkout(executionContext context.Context, repositoryPath string, reference string) error
}

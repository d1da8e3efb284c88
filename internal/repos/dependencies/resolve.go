// Package dependencies supplies default collaborators for commands that were not handed one.
package dependencies

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/matrixbuild/internal/execshell"
	"github.com/temirov/matrixbuild/internal/gitrepo"
	"github.com/temirov/matrixbuild/internal/repos/filesystem"
	"github.com/temirov/matrixbuild/internal/repos/shared"
	"github.com/temirov/matrixbuild/internal/ui"
)

const (
	// GitBackendCLI selects the git command-line backend.
	GitBackendCLI = "cli"
	// GitBackendNative selects the in-process go-git backend.
	GitBackendNative = "native"

	unknownGitBackendMessage  = "unknown git backend"
	unknownGitBackendTemplate = "%w: %q (expected %s or %s)"
)

// ErrUnknownGitBackend indicates a git backend name other than GitBackendCLI or GitBackendNative.
var ErrUnknownGitBackend = errors.New(unknownGitBackendMessage)

// ResolveFileSystem returns the provided filesystem or an OS-backed default.
func ResolveFileSystem(existing shared.FileSystem) shared.FileSystem {
	if existing != nil {
		return existing
	}
	return filesystem.OSFileSystem{}
}

// ResolveShellExecutor constructs a shell executor over the OS command runner. Console logging
// additionally renders every command as a human-readable event.
func ResolveShellExecutor(logger *zap.Logger, humanReadableLogging bool) (*execshell.ShellExecutor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var observer execshell.CommandEventObserver
	if humanReadableLogging {
		observer = ui.NewConsoleCommandEventLogger(logger)
	}
	return execshell.NewShellExecutorWithObserver(logger, execshell.NewOSCommandRunner(), observer)
}

// ResolveGitExecutor returns the provided executor or constructs a shell-backed default.
func ResolveGitExecutor(existing shared.GitExecutor, logger *zap.Logger, humanReadableLogging bool) (shared.GitExecutor, error) {
	if existing != nil {
		return existing, nil
	}
	shellExecutor, creationError := ResolveShellExecutor(logger, humanReadableLogging)
	if creationError != nil {
		return nil, creationError
	}
	return shellExecutor, nil
}

// ResolveGitRepositoryManager returns the provided repository manager or constructs the one named
// by backend. An empty backend selects GitBackendCLI, which requires executor.
func ResolveGitRepositoryManager(existing shared.GitRepositoryManager, backend string, executor shared.GitExecutor) (shared.GitRepositoryManager, error) {
	if existing != nil {
		return existing, nil
	}

	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", GitBackendCLI:
		manager, creationError := gitrepo.NewRepositoryManager(executor)
		if creationError != nil {
			return nil, creationError
		}
		return manager, nil
	case GitBackendNative:
		return gitrepo.NewNativeRepositoryManager(), nil
	default:
		return nil, fmt.Errorf(unknownGitBackendTemplate, ErrUnknownGitBackend, backend, GitBackendCLI, GitBackendNative)
	}
}

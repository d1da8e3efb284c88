package releases_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/matrixbuild/internal/flock"
	"github.com/temirov/matrixbuild/internal/releases"
	"github.com/temirov/matrixbuild/internal/repos/shared"
)

const (
	testRevisionReleaseConstant = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"
	testRevisionOtherConstant   = "1f2e3d4c5b6a79880011223344556677889900aa"
	testVersionConstant         = "v1.2.0"
	testIllustrator2021SDK      = "Adobe Illustrator 2021 SDK"
	testIllustratorCS6SDK       = "Adobe Illustrator CS6 SDK"
	testProductDirectory        = "LaTeX2AI"
)

var errFakeCheckoutUnknown = errors.New("unknown checkout")

type fakeCheckout struct {
	revision         string
	tags             []shared.TagReference
	dirty            bool
	references       map[string]string
	fetchError       error
	dirtyAfterSwitch bool
}

// fakeRepositoryManager keeps per-checkout git state in memory and records every call.
type fakeRepositoryManager struct {
	checkouts map[string]*fakeCheckout
	calls     []string
}

func newFakeRepositoryManager() *fakeRepositoryManager {
	return &fakeRepositoryManager{checkouts: make(map[string]*fakeCheckout)}
}

func (manager *fakeRepositoryManager) add(path string, checkout *fakeCheckout) {
	manager.checkouts[path] = checkout
}

func (manager *fakeRepositoryManager) lookup(operation string, path string) (*fakeCheckout, error) {
	manager.calls = append(manager.calls, operation+" "+path)
	checkout, exists := manager.checkouts[path]
	if !exists {
		return nil, fmt.Errorf("%w: %s", errFakeCheckoutUnknown, path)
	}
	return checkout, nil
}

func (manager *fakeRepositoryManager) CurrentRevision(_ context.Context, path string) (string, error) {
	checkout, lookupError := manager.lookup("rev-parse", path)
	if lookupError != nil {
		return "", lookupError
	}
	return checkout.revision, nil
}

func (manager *fakeRepositoryManager) ListTagReferences(_ context.Context, path string) ([]shared.TagReference, error) {
	checkout, lookupError := manager.lookup("tags", path)
	if lookupError != nil {
		return nil, lookupError
	}
	return checkout.tags, nil
}

func (manager *fakeRepositoryManager) CheckCleanWorktree(_ context.Context, path string) (bool, error) {
	checkout, lookupError := manager.lookup("status", path)
	if lookupError != nil {
		return false, lookupError
	}
	return !checkout.dirty, nil
}

func (manager *fakeRepositoryManager) FetchAllBranches(_ context.Context, path string, remote string) error {
	checkout, lookupError := manager.lookup("fetch "+remote, path)
	if lookupError != nil {
		return lookupError
	}
	return checkout.fetchError
}

func (manager *fakeRepositoryManager) FetchAllTags(_ context.Context, path string, remote string) error {
	checkout, lookupError := manager.lookup("fetch-tags "+remote, path)
	if lookupError != nil {
		return lookupError
	}
	return checkout.fetchError
}

func (manager *fakeRepositoryManager) Checkout(_ context.Context, path string, reference string) error {
	checkout, lookupError := manager.lookup("checkout "+reference, path)
	if lookupError != nil {
		return lookupError
	}
	revision, exists := checkout.references[reference]
	if !exists {
		return fmt.Errorf("pathspec %s did not match", reference)
	}
	checkout.revision = revision
	checkout.dirty = checkout.dirtyAfterSwitch
	return nil
}

func (manager *fakeRepositoryManager) countCalls(prefix string) int {
	count := 0
	for _, call := range manager.calls {
		if strings.HasPrefix(call, prefix) {
			count++
		}
	}
	return count
}

// fakeBuildStep writes the default artifact set for every configuration not listed in
// exitCodes and reports the listed exit code otherwise.
type fakeBuildStep struct {
	profile     releases.BuildProfile
	exitCodes   map[string]int
	launchError error
	invocations []releases.BuildInvocation
}

func (step *fakeBuildStep) Build(_ context.Context, invocation releases.BuildInvocation) (int, error) {
	step.invocations = append(step.invocations, invocation)
	if step.launchError != nil {
		return -1, step.launchError
	}
	if exitCode, exists := step.exitCodes[invocation.Configuration]; exists && exitCode != 0 {
		return exitCode, nil
	}

	checkoutPath := filepath.Dir(invocation.WorkingDirectory)
	artifactDirectory := step.profile.ArtifactDirectoryPath(checkoutPath, invocation.Configuration)
	if mkdirError := os.MkdirAll(artifactDirectory, 0o755); mkdirError != nil {
		return -1, mkdirError
	}
	for _, artifact := range step.profile.Artifacts {
		content := invocation.Configuration + ":" + artifact
		if writeError := os.WriteFile(filepath.Join(artifactDirectory, artifact), []byte(content), 0o644); writeError != nil {
			return -1, writeError
		}
	}
	return 0, nil
}

func (step *fakeBuildStep) configurations() []string {
	configurations := make([]string, 0, len(step.invocations))
	for _, invocation := range step.invocations {
		configurations = append(configurations, invocation.Configuration)
	}
	return configurations
}

// recordingReporter captures reporter output line by line.
type recordingReporter struct {
	lines []string
}

func (reporter *recordingReporter) Printf(format string, args ...any) {
	reporter.lines = append(reporter.lines, strings.TrimRight(fmt.Sprintf(format, args...), "\n"))
}

// recordingLocker grants every lock unless the checkout is listed in held or unavailable.
type recordingLocker struct {
	held        map[string]bool
	unavailable map[string]bool
	locked      []string
	released    []string
}

var (
	errFakeLockHeld        = fmt.Errorf("lock held: %w", flock.ErrLocked)
	errFakeLockUnavailable = errors.New("lock directory is read-only")
)

func (locker *recordingLocker) LockCheckout(checkoutPath string) (func() error, error) {
	if locker.held[checkoutPath] {
		return nil, errFakeLockHeld
	}
	if locker.unavailable[checkoutPath] {
		return nil, errFakeLockUnavailable
	}
	locker.locked = append(locker.locked, checkoutPath)
	return func() error {
		locker.released = append(locker.released, checkoutPath)
		return nil
	}, nil
}

// createCheckout creates <root>/<sdk>/<product>/scripts and returns the checkout path.
func createCheckout(testInstance *testing.T, root string, sdkDirectory string) string {
	testInstance.Helper()
	checkoutPath := filepath.Join(root, sdkDirectory, testProductDirectory)
	require.NoError(testInstance, os.MkdirAll(filepath.Join(checkoutPath, "scripts"), 0o755))
	return checkoutPath
}

func releaseTag(name string, revision string) shared.TagReference {
	return shared.TagReference{Name: "refs/tags/" + name, Revision: revision}
}

func listFileNames(testInstance *testing.T, directory string) []string {
	testInstance.Helper()
	entries, readError := os.ReadDir(directory)
	require.NoError(testInstance, readError)
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names
}

package releases_test

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/matrixbuild/internal/archive"
	"github.com/temirov/matrixbuild/internal/releases"
	"github.com/temirov/matrixbuild/internal/repos/filesystem"
	"github.com/temirov/matrixbuild/internal/repos/shared"
)

var errFakeAccessDenied = errors.New("access is denied")

// lockedOutputFileSystem refuses to remove the listed paths.
type lockedOutputFileSystem struct {
	filesystem.OSFileSystem
	locked map[string]bool
}

func (fileSystem lockedOutputFileSystem) RemoveAll(path string) error {
	if fileSystem.locked[path] {
		return errFakeAccessDenied
	}
	return fileSystem.OSFileSystem.RemoveAll(path)
}

type aggregatorFixture struct {
	root       string
	primary    string
	secondary  string
	manager    *fakeRepositoryManager
	step       *fakeBuildStep
	reporter   *recordingReporter
	locker     *recordingLocker
	fileSystem shared.FileSystem
	logger     *zap.Logger
}

// newAggregatorFixture creates a primary checkout tagged v1.2.0 under the 2021 SDK and a
// secondary checkout under the CS6 SDK sitting one commit behind.
func newAggregatorFixture(testInstance *testing.T) *aggregatorFixture {
	testInstance.Helper()
	root := testInstance.TempDir()
	primary := createCheckout(testInstance, root, testIllustrator2021SDK)
	secondary := createCheckout(testInstance, root, testIllustratorCS6SDK)

	manager := newFakeRepositoryManager()
	manager.add(primary, &fakeCheckout{
		revision: testRevisionReleaseConstant,
		tags:     []shared.TagReference{releaseTag(testVersionConstant, testRevisionReleaseConstant)},
	})
	manager.add(secondary, &fakeCheckout{
		revision:   testRevisionOtherConstant,
		tags:       []shared.TagReference{releaseTag(testVersionConstant, testRevisionReleaseConstant)},
		references: map[string]string{testVersionConstant: testRevisionReleaseConstant},
	})

	return &aggregatorFixture{
		root:       root,
		primary:    primary,
		secondary:  secondary,
		manager:    manager,
		step:       &fakeBuildStep{profile: releases.DefaultBuildProfile()},
		reporter:   &recordingReporter{},
		locker:     &recordingLocker{},
		fileSystem: filesystem.OSFileSystem{},
	}
}

func (fixture *aggregatorFixture) aggregator(testInstance *testing.T) *releases.Aggregator {
	testInstance.Helper()
	archiver, archiverError := archive.NewZipArchiver(fixture.fileSystem)
	require.NoError(testInstance, archiverError)

	aggregator, creationError := releases.NewAggregator(releases.AggregatorDependencies{
		RepositoryManager: fixture.manager,
		BuildStep:         fixture.step,
		Archiver:          archiver,
		FileSystem:        fixture.fileSystem,
		Locker:            fixture.locker,
		Reporter:          fixture.reporter,
		Logger:            fixture.logger,
	}, releases.AggregatorSettings{Profile: releases.DefaultBuildProfile()})
	require.NoError(testInstance, creationError)
	return aggregator
}

func (fixture *aggregatorFixture) executablesDirectory() string {
	return filepath.Join(fixture.root, "executables")
}

func TestNewAggregatorValidatesDependencies(testInstance *testing.T) {
	manager := newFakeRepositoryManager()
	step := &fakeBuildStep{}
	archiver, archiverError := archive.NewZipArchiver(filesystem.OSFileSystem{})
	require.NoError(testInstance, archiverError)

	testCases := []struct {
		name         string
		dependencies releases.AggregatorDependencies
		expected     error
	}{
		{
			name:         "repository_manager",
			dependencies: releases.AggregatorDependencies{BuildStep: step, Archiver: archiver, FileSystem: filesystem.OSFileSystem{}, Locker: &recordingLocker{}},
			expected:     releases.ErrGitRepositoryManagerNotConfigured,
		},
		{
			name:         "file_system",
			dependencies: releases.AggregatorDependencies{RepositoryManager: manager, BuildStep: step, Archiver: archiver, Locker: &recordingLocker{}},
			expected:     releases.ErrFileSystemNotConfigured,
		},
		{
			name:         "locker",
			dependencies: releases.AggregatorDependencies{RepositoryManager: manager, BuildStep: step, Archiver: archiver, FileSystem: filesystem.OSFileSystem{}},
			expected:     releases.ErrCheckoutLockerNotConfigured,
		},
		{
			name:         "build_step",
			dependencies: releases.AggregatorDependencies{RepositoryManager: manager, Archiver: archiver, FileSystem: filesystem.OSFileSystem{}, Locker: &recordingLocker{}},
			expected:     releases.ErrBuildStepNotConfigured,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtest *testing.T) {
			aggregator, creationError := releases.NewAggregator(testCase.dependencies, releases.AggregatorSettings{})
			require.ErrorIs(subtest, creationError, testCase.expected)
			require.Nil(subtest, aggregator)
		})
	}
}

func TestReleaseSingleCheckout(testInstance *testing.T) {
	fixture := newAggregatorFixture(testInstance)
	staleOutput := filepath.Join(fixture.root, testIllustrator2021SDK, "output", "stale.txt")
	require.NoError(testInstance, os.MkdirAll(filepath.Dir(staleOutput), 0o755))
	require.NoError(testInstance, os.WriteFile(staleOutput, []byte("old"), 0o644))

	result, releaseError := fixture.aggregator(testInstance).Release(context.Background(), releases.Options{
		PrimaryRepository:    fixture.primary,
		ExecutablesDirectory: fixture.executablesDirectory(),
		RunID:                "run-single",
	})
	require.NoError(testInstance, releaseError)

	require.Equal(testInstance, "run-single", result.RunID)
	require.Equal(testInstance, testVersionConstant, result.Version)
	require.Empty(testInstance, result.ManifestPath)
	require.Equal(testInstance, []string{
		"LaTeX2AI_v1.2.0_debug_Illustrator2021.zip",
		"LaTeX2AI_v1.2.0_release_Illustrator2021.zip",
	}, listFileNames(testInstance, fixture.executablesDirectory()))
	require.Equal(testInstance, []string{
		"ARCHIVED: " + filepath.Join(fixture.executablesDirectory(), "LaTeX2AI_v1.2.0_release_Illustrator2021.zip"),
		"ARCHIVED: " + filepath.Join(fixture.executablesDirectory(), "LaTeX2AI_v1.2.0_debug_Illustrator2021.zip"),
	}, fixture.reporter.lines)

	_, staleError := os.Stat(staleOutput)
	require.True(testInstance, errors.Is(staleError, fs.ErrNotExist))
	require.Zero(testInstance, fixture.manager.countCalls("fetch"))
	require.Equal(testInstance, []string{fixture.primary}, fixture.locker.locked)
	require.Equal(testInstance, []string{fixture.primary}, fixture.locker.released)
}

func TestReleaseMultipleCheckoutsFollowPrimaryVersion(testInstance *testing.T) {
	fixture := newAggregatorFixture(testInstance)

	result, releaseError := fixture.aggregator(testInstance).Release(context.Background(), releases.Options{
		PrimaryRepository:    fixture.primary,
		Repositories:         []string{fixture.primary, fixture.secondary},
		ExecutablesDirectory: fixture.executablesDirectory(),
		WriteManifest:        true,
	})
	require.NoError(testInstance, releaseError)

	require.Equal(testInstance, testVersionConstant, result.Version)
	require.Len(testInstance, result.Archives, 4)
	require.Equal(testInstance, []string{
		"LaTeX2AI_v1.2.0_debug_Illustrator2021.zip",
		"LaTeX2AI_v1.2.0_debug_IllustratorCS6.zip",
		"LaTeX2AI_v1.2.0_release_Illustrator2021.zip",
		"LaTeX2AI_v1.2.0_release_IllustratorCS6.zip",
		releases.ManifestFileName,
	}, listFileNames(testInstance, fixture.executablesDirectory()))
	require.Equal(testInstance, filepath.Join(fixture.executablesDirectory(), releases.ManifestFileName), result.ManifestPath)

	require.Equal(testInstance, 1, fixture.manager.countCalls("checkout "+testVersionConstant+" "+fixture.secondary))
	require.Zero(testInstance, fixture.manager.countCalls("checkout "+testVersionConstant+" "+fixture.primary))

	_, parseError := uuid.Parse(result.RunID)
	require.NoError(testInstance, parseError)
}

func TestReleaseRelativeExecutablesDirectory(testInstance *testing.T) {
	fixture := newAggregatorFixture(testInstance)

	result, releaseError := fixture.aggregator(testInstance).Release(context.Background(), releases.Options{
		PrimaryRepository:    fixture.primary,
		ExecutablesDirectory: "../../executables",
	})
	require.NoError(testInstance, releaseError)
	require.Len(testInstance, result.Archives, 2)
	for _, record := range result.Archives {
		require.Equal(testInstance, fixture.executablesDirectory(), filepath.Dir(record.Path))
	}
}

func TestReleaseDirtyCheckoutBuildsNothing(testInstance *testing.T) {
	fixture := newAggregatorFixture(testInstance)
	fixture.manager.checkouts[fixture.secondary].dirty = true

	result, releaseError := fixture.aggregator(testInstance).Release(context.Background(), releases.Options{
		PrimaryRepository:    fixture.primary,
		Repositories:         []string{fixture.secondary, fixture.primary},
		ExecutablesDirectory: fixture.executablesDirectory(),
	})
	require.ErrorIs(testInstance, releaseError, releases.ErrDirtyRepository)
	require.Empty(testInstance, fixture.step.invocations)
	require.Empty(testInstance, result.Archives)
	require.Zero(testInstance, fixture.manager.countCalls("checkout"))

	_, statError := os.Stat(fixture.executablesDirectory())
	require.True(testInstance, errors.Is(statError, fs.ErrNotExist))
}

func TestReleaseFailurePolicy(testInstance *testing.T) {
	testCases := []struct {
		name             string
		continueOnError  bool
		expectedArchives []string
	}{
		{
			name:             "abort_relocates_nothing",
			continueOnError:  false,
			expectedArchives: nil,
		},
		{
			name:            "continue_relocates_successful_checkouts",
			continueOnError: true,
			expectedArchives: []string{
				"LaTeX2AI_v1.2.0_debug_Illustrator2021.zip",
				"LaTeX2AI_v1.2.0_release_Illustrator2021.zip",
			},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtest *testing.T) {
			fixture := newAggregatorFixture(subtest)
			fixture.manager.checkouts[fixture.secondary].dirty = true

			result, releaseError := fixture.aggregator(subtest).Release(context.Background(), releases.Options{
				PrimaryRepository:    fixture.primary,
				Repositories:         []string{fixture.primary, fixture.secondary},
				ExecutablesDirectory: fixture.executablesDirectory(),
				ContinueOnError:      testCase.continueOnError,
			})
			require.ErrorIs(subtest, releaseError, releases.ErrDirtyRepository)

			if testCase.expectedArchives == nil {
				require.Empty(subtest, result.Archives)
				_, statError := os.Stat(fixture.executablesDirectory())
				require.True(subtest, errors.Is(statError, fs.ErrNotExist))
				return
			}
			require.Equal(subtest, testCase.expectedArchives, listFileNames(subtest, fixture.executablesDirectory()))
			require.Len(subtest, fixture.reporter.lines, len(testCase.expectedArchives))
		})
	}
}

func TestReleaseSkipsCheckoutWhoseOutputCannotBeCleared(testInstance *testing.T) {
	fixture := newAggregatorFixture(testInstance)
	profile := releases.DefaultBuildProfile()
	fixture.fileSystem = lockedOutputFileSystem{locked: map[string]bool{profile.OutputDirectoryPath(fixture.secondary): true}}
	observerCore, observedLogs := observer.New(zapcore.InfoLevel)
	fixture.logger = zap.New(observerCore)

	result, releaseError := fixture.aggregator(testInstance).Release(context.Background(), releases.Options{
		PrimaryRepository:    fixture.primary,
		Repositories:         []string{fixture.secondary, fixture.primary},
		ExecutablesDirectory: fixture.executablesDirectory(),
	})
	require.NoError(testInstance, releaseError)
	require.Equal(testInstance, []string{fixture.secondary}, result.SkippedCheckouts)
	require.Len(testInstance, result.Archives, 2)
	require.Zero(testInstance, fixture.manager.countCalls("fetch"))
	require.Equal(testInstance, []string{fixture.secondary, fixture.primary}, fixture.locker.released)

	completedEntries := observedLogs.FilterMessage("release completed").All()
	require.Len(testInstance, completedEntries, 1)
	require.Equal(testInstance, []interface{}{fixture.secondary}, completedEntries[0].ContextMap()["skipped_checkouts"])
}

func TestReleaseLockedCheckout(testInstance *testing.T) {
	fixture := newAggregatorFixture(testInstance)
	fixture.locker.held = map[string]bool{fixture.primary: true}

	_, releaseError := fixture.aggregator(testInstance).Release(context.Background(), releases.Options{
		PrimaryRepository:    fixture.primary,
		ExecutablesDirectory: fixture.executablesDirectory(),
	})
	require.ErrorIs(testInstance, releaseError, releases.ErrCheckoutLocked)
	require.ErrorIs(testInstance, releaseError, errFakeLockHeld)
	require.Empty(testInstance, fixture.step.invocations)
}

func TestReleaseLockFailureIsNotReportedAsContention(testInstance *testing.T) {
	fixture := newAggregatorFixture(testInstance)
	fixture.locker.unavailable = map[string]bool{fixture.primary: true}

	_, releaseError := fixture.aggregator(testInstance).Release(context.Background(), releases.Options{
		PrimaryRepository:    fixture.primary,
		ExecutablesDirectory: fixture.executablesDirectory(),
	})
	require.ErrorIs(testInstance, releaseError, errFakeLockUnavailable)
	require.NotErrorIs(testInstance, releaseError, releases.ErrCheckoutLocked)
	require.Contains(testInstance, releaseError.Error(), fixture.primary)
	require.Empty(testInstance, fixture.step.invocations)
}

func TestReleaseValidatesOptions(testInstance *testing.T) {
	fixture := newAggregatorFixture(testInstance)
	aggregator := fixture.aggregator(testInstance)

	_, missingPrimaryError := aggregator.Release(context.Background(), releases.Options{ExecutablesDirectory: fixture.executablesDirectory()})
	require.ErrorIs(testInstance, missingPrimaryError, releases.ErrRepositoryPathRequired)

	_, missingExecutablesError := aggregator.Release(context.Background(), releases.Options{PrimaryRepository: fixture.primary})
	require.ErrorIs(testInstance, missingExecutablesError, releases.ErrExecutablesDirectoryRequired)

	require.Empty(testInstance, fixture.manager.calls)
}

// Package archive packages build artifacts into zip files.
package archive

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/temirov/matrixbuild/internal/repos/shared"
)

const (
	fileSystemNotConfiguredMessage = "archive file system not configured"
	noMembersMessage               = "archive requires at least one member"
	memberNotFoundMessage          = "archive member not found"
	memberNotRegularFileMessage    = "archive member is not a regular file"
	memberMissingTemplate          = "%w: %s: %w"
	memberInvalidTemplate          = "%w: %s"
	createArchiveErrorTemplate     = "create archive %s: %w"
	addMemberErrorTemplate         = "add %s to archive %s: %w"
	finalizeArchiveErrorTemplate   = "finalize archive %s: %w"
)

// ErrFileSystemNotConfigured indicates the archiver was constructed without a file system.
var ErrFileSystemNotConfigured = errors.New(fileSystemNotConfiguredMessage)

// ErrNoMembers indicates an archive was requested without members.
var ErrNoMembers = errors.New(noMembersMessage)

// ErrMemberNotFound indicates a requested member does not exist. The returned error also
// matches fs.ErrNotExist.
var ErrMemberNotFound = errors.New(memberNotFoundMessage)

// ErrMemberNotRegularFile indicates a requested member is a directory or special file.
var ErrMemberNotRegularFile = errors.New(memberNotRegularFileMessage)

// ZipArchiver writes deflate-compressed zip archives.
type ZipArchiver struct {
	fileSystem shared.FileSystem
}

// NewZipArchiver constructs a ZipArchiver over the provided file system.
func NewZipArchiver(fileSystem shared.FileSystem) (*ZipArchiver, error) {
	if fileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}
	return &ZipArchiver{fileSystem: fileSystem}, nil
}

// CreateArchive writes archivePath containing members, each resolved relative to
// workingDirectory and stored under its relative name. Every member is checked before the
// archive is created, and a failure while writing removes the partial archive.
func (archiver *ZipArchiver) CreateArchive(archivePath string, workingDirectory string, members []string) error {
	if len(members) == 0 {
		return ErrNoMembers
	}

	for _, member := range members {
		memberPath := filepath.Join(workingDirectory, member)
		memberInfo, statError := archiver.fileSystem.Stat(memberPath)
		if statError != nil {
			return fmt.Errorf(memberMissingTemplate, ErrMemberNotFound, memberPath, statError)
		}
		if !memberInfo.Mode().IsRegular() {
			return fmt.Errorf(memberInvalidTemplate, ErrMemberNotRegularFile, memberPath)
		}
	}

	archiveFile, createError := archiver.fileSystem.Create(archivePath)
	if createError != nil {
		return fmt.Errorf(createArchiveErrorTemplate, archivePath, createError)
	}

	writeError := archiver.writeMembers(archiveFile, archivePath, workingDirectory, members)
	closeError := archiveFile.Close()
	if writeError == nil && closeError != nil {
		writeError = fmt.Errorf(finalizeArchiveErrorTemplate, archivePath, closeError)
	}
	if writeError != nil {
		_ = archiver.fileSystem.Remove(archivePath)
		return writeError
	}
	return nil
}

func (archiver *ZipArchiver) writeMembers(destination io.Writer, archivePath string, workingDirectory string, members []string) error {
	zipWriter := zip.NewWriter(destination)

	for _, member := range members {
		if addError := archiver.addMember(zipWriter, workingDirectory, member); addError != nil {
			_ = zipWriter.Close()
			return fmt.Errorf(addMemberErrorTemplate, member, archivePath, addError)
		}
	}

	if closeError := zipWriter.Close(); closeError != nil {
		return fmt.Errorf(finalizeArchiveErrorTemplate, archivePath, closeError)
	}
	return nil
}

func (archiver *ZipArchiver) addMember(zipWriter *zip.Writer, workingDirectory string, member string) error {
	memberPath := filepath.Join(workingDirectory, member)
	memberInfo, statError := archiver.fileSystem.Stat(memberPath)
	if statError != nil {
		return statError
	}

	header, headerError := zip.FileInfoHeader(memberInfo)
	if headerError != nil {
		return headerError
	}
	header.Name = strings.TrimPrefix(filepath.ToSlash(filepath.Clean(member)), "./")
	header.Method = zip.Deflate

	entryWriter, entryError := zipWriter.CreateHeader(header)
	if entryError != nil {
		return entryError
	}

	memberReader, openError := archiver.fileSystem.Open(memberPath)
	if openError != nil {
		return openError
	}
	defer memberReader.Close() //nolint:errcheck // read-only handle

	_, copyError := io.Copy(entryWriter, memberReader)
	return copyError
}

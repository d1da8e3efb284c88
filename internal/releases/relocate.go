package releases

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/temirov/matrixbuild/internal/repos/shared"
)

const (
	executablesDirectoryPermissions = 0o755
	createDirectoryErrorTemplate    = "create executables directory %s: %w"
	relocateErrorTemplate           = "move %s to %s: %w"
)

// Relocator moves archives into the executables directory, replacing same-named files.
type Relocator struct {
	fileSystem shared.FileSystem
}

// NewRelocator constructs a Relocator.
func NewRelocator(fileSystem shared.FileSystem) (*Relocator, error) {
	if fileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}
	return &Relocator{fileSystem: fileSystem}, nil
}

// Relocate moves every record into directory, creating it when absent, and returns the
// records with their new paths. Checkouts on another volume are copied and then removed.
func (relocator *Relocator) Relocate(records []ArchiveRecord, directory string) ([]ArchiveRecord, error) {
	if len(records) == 0 {
		return nil, nil
	}
	if mkdirError := relocator.fileSystem.MkdirAll(directory, executablesDirectoryPermissions); mkdirError != nil {
		return nil, fmt.Errorf(createDirectoryErrorTemplate, directory, mkdirError)
	}

	relocated := make([]ArchiveRecord, 0, len(records))
	for _, record := range records {
		destinationPath := filepath.Join(directory, record.Name)
		if moveError := relocator.move(record.Path, destinationPath); moveError != nil {
			return relocated, fmt.Errorf(relocateErrorTemplate, record.Path, destinationPath, moveError)
		}
		record.Path = destinationPath
		relocated = append(relocated, record)
	}
	return relocated, nil
}

func (relocator *Relocator) move(sourcePath string, destinationPath string) error {
	renameError := relocator.fileSystem.Rename(sourcePath, destinationPath)
	if renameError == nil {
		return nil
	}

	var linkError *os.LinkError
	if !errors.As(renameError, &linkError) {
		return renameError
	}
	if _, statError := relocator.fileSystem.Stat(sourcePath); statError != nil {
		return renameError
	}

	if copyError := relocator.copyFile(sourcePath, destinationPath); copyError != nil {
		return errors.Join(renameError, copyError)
	}
	return relocator.fileSystem.Remove(sourcePath)
}

func (relocator *Relocator) copyFile(sourcePath string, destinationPath string) error {
	source, openError := relocator.fileSystem.Open(sourcePath)
	if openError != nil {
		return openError
	}
	defer source.Close() //nolint:errcheck // read-only handle

	destination, createError := relocator.fileSystem.Create(destinationPath)
	if createError != nil {
		return createError
	}

	_, copyError := io.Copy(destination, source)
	closeError := destination.Close()
	if copyError != nil {
		return copyError
	}
	return closeError
}

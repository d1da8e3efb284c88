package releases

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/temirov/matrixbuild/internal/repos/shared"
)

const (
	// ManifestFileName is the name of the manifest written next to relocated archives.
	ManifestFileName        = "release-manifest.yaml"
	manifestFilePermissions = 0o644
	describeArchiveTemplate = "describe archive %s: %w"
	encodeManifestTemplate  = "encode release manifest: %w"
	writeManifestTemplate   = "write release manifest %s: %w"
)

// Manifest records what a release run produced.
type Manifest struct {
	RunID       string          `yaml:"run_id"`
	Version     string          `yaml:"version"`
	GeneratedAt time.Time       `yaml:"generated_at"`
	Archives    []ManifestEntry `yaml:"archives"`
}

// ManifestEntry describes one relocated archive.
type ManifestEntry struct {
	Name          string `yaml:"name"`
	Checkout      string `yaml:"checkout"`
	Configuration string `yaml:"configuration"`
	Size          int64  `yaml:"size"`
	SHA256        string `yaml:"sha256"`
}

// ManifestWriter builds and persists release manifests.
type ManifestWriter struct {
	fileSystem shared.FileSystem
	clock      shared.Clock
}

// NewManifestWriter constructs a ManifestWriter. A nil clock uses the system clock.
func NewManifestWriter(fileSystem shared.FileSystem, clock shared.Clock) (*ManifestWriter, error) {
	if fileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &ManifestWriter{fileSystem: fileSystem, clock: clock}, nil
}

// Write describes records, which must already sit at their final paths, and stores the
// manifest as ManifestFileName in directory. It returns the manifest path.
func (writer *ManifestWriter) Write(directory string, runID string, version string, records []ArchiveRecord) (string, error) {
	manifest := Manifest{
		RunID:       runID,
		Version:     version,
		GeneratedAt: writer.clock.Now().UTC(),
		Archives:    make([]ManifestEntry, 0, len(records)),
	}

	for _, record := range records {
		entry, describeError := writer.describe(record)
		if describeError != nil {
			return "", fmt.Errorf(describeArchiveTemplate, record.Path, describeError)
		}
		manifest.Archives = append(manifest.Archives, entry)
	}

	encoded, encodeError := yaml.Marshal(manifest)
	if encodeError != nil {
		return "", fmt.Errorf(encodeManifestTemplate, encodeError)
	}

	manifestPath := filepath.Join(directory, ManifestFileName)
	if writeError := writer.fileSystem.WriteFile(manifestPath, encoded, manifestFilePermissions); writeError != nil {
		return "", fmt.Errorf(writeManifestTemplate, manifestPath, writeError)
	}
	return manifestPath, nil
}

func (writer *ManifestWriter) describe(record ArchiveRecord) (ManifestEntry, error) {
	archiveInfo, statError := writer.fileSystem.Stat(record.Path)
	if statError != nil {
		return ManifestEntry{}, statError
	}

	archiveReader, openError := writer.fileSystem.Open(record.Path)
	if openError != nil {
		return ManifestEntry{}, openError
	}
	defer archiveReader.Close() //nolint:errcheck // read-only handle

	hasher := sha256.New()
	if _, copyError := io.Copy(hasher, archiveReader); copyError != nil {
		return ManifestEntry{}, copyError
	}

	return ManifestEntry{
		Name:          record.Name,
		Checkout:      record.CheckoutPath,
		Configuration: record.Configuration,
		Size:          archiveInfo.Size(),
		SHA256:        hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

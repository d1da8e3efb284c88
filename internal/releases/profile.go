package releases

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// ShortRevisionLength is the number of revision characters used when no tag names HEAD.
	ShortRevisionLength = 7

	// ConfigurationPlaceholder is replaced by the configuration name in ArtifactDirectoryTemplate.
	ConfigurationPlaceholder = "{configuration}"

	defaultProductName                      = "LaTeX2AI"
	defaultScriptsDirectory                 = "scripts"
	defaultBuildCommand                     = "compile_solution.bat"
	defaultConfigurationEnvironmentVariable = "LaTeX2AI_build_type"
	defaultOutputDirectory                  = "../output"
	defaultArtifactDirectoryTemplate        = "../output/win/x64/" + ConfigurationPlaceholder
	archiveNameTemplate                     = "%s_%s_%s_%s.zip"
	pathComponentSeparators                 = "/\\"
)

// ProductTagMapping maps a directory name that appears in a checkout path to the short tag
// embedded in archive names.
type ProductTagMapping struct {
	Directory string
	Tag       string
}

// BuildProfile describes the product being released: how to build it, where its artifacts
// land and how archives are named.
type BuildProfile struct {
	ProductName                      string
	ScriptsDirectory                 string
	BuildCommand                     string
	BuildArguments                   []string
	ConfigurationEnvironmentVariable string
	OutputDirectory                  string
	ArtifactDirectoryTemplate        string
	Configurations                   []string
	Artifacts                        []string
	ProductTags                      []ProductTagMapping
}

// DefaultBuildProfile returns the LaTeX2AI release profile.
func DefaultBuildProfile() BuildProfile {
	return BuildProfile{
		ProductName:                      defaultProductName,
		ScriptsDirectory:                 defaultScriptsDirectory,
		BuildCommand:                     defaultBuildCommand,
		ConfigurationEnvironmentVariable: defaultConfigurationEnvironmentVariable,
		OutputDirectory:                  defaultOutputDirectory,
		ArtifactDirectoryTemplate:        defaultArtifactDirectoryTemplate,
		Configurations:                   []string{"Release", "Debug"},
		Artifacts:                        []string{"LaTeX2AI.aip", "LaTeX2AIForms.exe"},
		ProductTags: []ProductTagMapping{
			{Directory: "Adobe Illustrator CS6 SDK", Tag: "IllustratorCS6"},
			{Directory: "Adobe Illustrator CC 2018 SDK", Tag: "IllustratorCC2018"},
			{Directory: "Adobe Illustrator 2021 SDK", Tag: "Illustrator2021"},
		},
	}
}

// Sanitize trims every field and fills empty ones from DefaultBuildProfile.
func (profile BuildProfile) Sanitize() BuildProfile {
	defaults := DefaultBuildProfile()

	sanitized := BuildProfile{
		ProductName:                      firstNonEmpty(profile.ProductName, defaults.ProductName),
		ScriptsDirectory:                 firstNonEmpty(profile.ScriptsDirectory, defaults.ScriptsDirectory),
		BuildCommand:                     firstNonEmpty(profile.BuildCommand, defaults.BuildCommand),
		BuildArguments:                   trimNonEmpty(profile.BuildArguments),
		ConfigurationEnvironmentVariable: firstNonEmpty(profile.ConfigurationEnvironmentVariable, defaults.ConfigurationEnvironmentVariable),
		OutputDirectory:                  firstNonEmpty(profile.OutputDirectory, defaults.OutputDirectory),
		ArtifactDirectoryTemplate:        firstNonEmpty(profile.ArtifactDirectoryTemplate, defaults.ArtifactDirectoryTemplate),
		Configurations:                   trimNonEmpty(profile.Configurations),
		Artifacts:                        trimNonEmpty(profile.Artifacts),
	}
	if len(sanitized.Configurations) == 0 {
		sanitized.Configurations = defaults.Configurations
	}
	if len(sanitized.Artifacts) == 0 {
		sanitized.Artifacts = defaults.Artifacts
	}

	for _, mapping := range profile.ProductTags {
		trimmedMapping := ProductTagMapping{Directory: strings.TrimSpace(mapping.Directory), Tag: strings.TrimSpace(mapping.Tag)}
		if len(trimmedMapping.Directory) == 0 || len(trimmedMapping.Tag) == 0 {
			continue
		}
		sanitized.ProductTags = append(sanitized.ProductTags, trimmedMapping)
	}
	if len(sanitized.ProductTags) == 0 {
		sanitized.ProductTags = defaults.ProductTags
	}

	return sanitized
}

// ScriptsDirectoryPath returns the directory the build command runs in.
func (profile BuildProfile) ScriptsDirectoryPath(checkoutPath string) string {
	return filepath.Join(checkoutPath, filepath.FromSlash(profile.ScriptsDirectory))
}

// OutputDirectoryPath returns the directory cleared before a checkout is built.
func (profile BuildProfile) OutputDirectoryPath(checkoutPath string) string {
	return filepath.Join(checkoutPath, filepath.FromSlash(profile.OutputDirectory))
}

// ArtifactDirectoryPath returns the directory holding the artifacts of configuration.
func (profile BuildProfile) ArtifactDirectoryPath(checkoutPath string, configuration string) string {
	relativeDirectory := strings.ReplaceAll(profile.ArtifactDirectoryTemplate, ConfigurationPlaceholder, configuration)
	return filepath.Join(checkoutPath, filepath.FromSlash(relativeDirectory))
}

// ArchiveName returns <product>_<version>_<configuration-lowercased>_<product-tag>.zip.
func (profile BuildProfile) ArchiveName(version string, configuration string, productTag string) string {
	return fmt.Sprintf(archiveNameTemplate, profile.ProductName, version, strings.ToLower(configuration), productTag)
}

// ProductTagForPath finds the product tag whose directory appears as a component of
// checkoutPath. Both slash and backslash separate components. The same tag matched twice is
// accepted; no match or two different tags yield *ProductTagNotFoundError.
func (profile BuildProfile) ProductTagForPath(checkoutPath string) (string, error) {
	pathComponents := strings.FieldsFunc(checkoutPath, func(character rune) bool {
		return strings.ContainsRune(pathComponentSeparators, character)
	})

	matchedTags := make(map[string]struct{})
	for _, component := range pathComponents {
		for _, mapping := range profile.ProductTags {
			if component == mapping.Directory {
				matchedTags[mapping.Tag] = struct{}{}
			}
		}
	}

	if len(matchedTags) == 1 {
		for tag := range matchedTags {
			return tag, nil
		}
	}

	sortedTags := make([]string, 0, len(matchedTags))
	for tag := range matchedTags {
		sortedTags = append(sortedTags, tag)
	}
	sort.Strings(sortedTags)
	return "", &ProductTagNotFoundError{CheckoutPath: checkoutPath, MatchedTags: sortedTags}
}

func firstNonEmpty(candidate string, fallback string) string {
	trimmedCandidate := strings.TrimSpace(candidate)
	if len(trimmedCandidate) == 0 {
		return fallback
	}
	return trimmedCandidate
}

func trimNonEmpty(values []string) []string {
	trimmedValues := make([]string, 0, len(values))
	for _, value := range values {
		trimmedValue := strings.TrimSpace(value)
		if len(trimmedValue) > 0 {
			trimmedValues = append(trimmedValues, trimmedValue)
		}
	}
	return trimmedValues
}

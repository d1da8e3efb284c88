package release

import (
	"strings"

	"github.com/temirov/matrixbuild/internal/releases"
	"github.com/temirov/matrixbuild/internal/repos/dependencies"
	"github.com/temirov/matrixbuild/internal/repos/shared"
)

const (
	defaultPrimaryRepositoryConstant               = "."
	defaultRepositoriesEnvironmentVariableConstant = "LATEX2AI_REPOSITORIES"
	defaultExecutablesDirectoryConstant            = "scripts/executables"

	configurationPrimaryRepositoryKeyConstant         = "primary_repository"
	configurationRepositoriesKeyConstant              = "repositories"
	configurationRepositoriesVariableKeyConstant      = "repositories_environment_variable"
	configurationExecutablesDirectoryKeyConstant      = "executables_directory"
	configurationRemoteKeyConstant                    = "remote"
	configurationGitBackendKeyConstant                = "git_backend"
	configurationContinueOnErrorKeyConstant           = "continue_on_error"
	configurationWaitForAcknowledgementKeyConstant    = "wait_for_acknowledgement"
	configurationWriteManifestKeyConstant             = "write_manifest"
	configurationLockDirectoryKeyConstant             = "lock_directory"
	configurationProfileKeyConstant                   = "profile"
	configurationProductNameKeyConstant               = "product_name"
	configurationScriptsDirectoryKeyConstant          = "scripts_directory"
	configurationBuildCommandKeyConstant              = "build_command"
	configurationBuildArgumentsKeyConstant            = "build_arguments"
	configurationConfigurationVariableKeyConstant     = "configuration_environment_variable"
	configurationOutputDirectoryKeyConstant           = "output_directory"
	configurationArtifactDirectoryTemplateKeyConstant = "artifact_directory_template"
	configurationConfigurationsKeyConstant            = "configurations"
	configurationArtifactsKeyConstant                 = "artifacts"
)

// CommandConfiguration captures the tools.release configuration section.
type CommandConfiguration struct {
	PrimaryRepository               string               `mapstructure:"primary_repository"`
	Repositories                    []string             `mapstructure:"repositories"`
	RepositoriesEnvironmentVariable string               `mapstructure:"repositories_environment_variable"`
	ExecutablesDirectory            string               `mapstructure:"executables_directory"`
	RemoteName                      string               `mapstructure:"remote"`
	GitBackend                      string               `mapstructure:"git_backend"`
	ContinueOnError                 bool                 `mapstructure:"continue_on_error"`
	WaitForAcknowledgement          bool                 `mapstructure:"wait_for_acknowledgement"`
	WriteManifest                   bool                 `mapstructure:"write_manifest"`
	LockDirectory                   string               `mapstructure:"lock_directory"`
	Profile                         ProfileConfiguration `mapstructure:"profile"`
}

// ProfileConfiguration describes the product being built. Empty values fall back to the
// LaTeX2AI profile.
type ProfileConfiguration struct {
	ProductName                      string                    `mapstructure:"product_name"`
	ScriptsDirectory                 string                    `mapstructure:"scripts_directory"`
	BuildCommand                     string                    `mapstructure:"build_command"`
	BuildArguments                   []string                  `mapstructure:"build_arguments"`
	ConfigurationEnvironmentVariable string                    `mapstructure:"configuration_environment_variable"`
	OutputDirectory                  string                    `mapstructure:"output_directory"`
	ArtifactDirectoryTemplate        string                    `mapstructure:"artifact_directory_template"`
	Configurations                   []string                  `mapstructure:"configurations"`
	Artifacts                        []string                  `mapstructure:"artifacts"`
	ProductTags                      []ProductTagConfiguration `mapstructure:"product_tags"`
}

// ProductTagConfiguration maps an SDK directory name to the tag used in archive names.
type ProductTagConfiguration struct {
	Directory string `mapstructure:"directory"`
	Tag       string `mapstructure:"tag"`
}

// DefaultCommandConfiguration returns the LaTeX2AI release settings.
func DefaultCommandConfiguration() CommandConfiguration {
	profile := releases.DefaultBuildProfile()
	productTags := make([]ProductTagConfiguration, 0, len(profile.ProductTags))
	for _, mapping := range profile.ProductTags {
		productTags = append(productTags, ProductTagConfiguration{Directory: mapping.Directory, Tag: mapping.Tag})
	}

	return CommandConfiguration{
		PrimaryRepository:               defaultPrimaryRepositoryConstant,
		Repositories:                    []string{},
		RepositoriesEnvironmentVariable: defaultRepositoriesEnvironmentVariableConstant,
		ExecutablesDirectory:            defaultExecutablesDirectoryConstant,
		RemoteName:                      shared.OriginRemoteNameConstant,
		GitBackend:                      dependencies.GitBackendCLI,
		ContinueOnError:                 false,
		WaitForAcknowledgement:          true,
		WriteManifest:                   true,
		Profile: ProfileConfiguration{
			ProductName:                      profile.ProductName,
			ScriptsDirectory:                 profile.ScriptsDirectory,
			BuildCommand:                     profile.BuildCommand,
			BuildArguments:                   []string{},
			ConfigurationEnvironmentVariable: profile.ConfigurationEnvironmentVariable,
			OutputDirectory:                  profile.OutputDirectory,
			ArtifactDirectoryTemplate:        profile.ArtifactDirectoryTemplate,
			Configurations:                   append([]string(nil), profile.Configurations...),
			Artifacts:                        append([]string(nil), profile.Artifacts...),
			ProductTags:                      productTags,
		},
	}
}

// DefaultConfigurationValues produces Viper defaults for the release section under rootKey.
// Product tags are left to the embedded configuration since Viper defaults cannot express
// lists of maps.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultCommandConfiguration()
	profileKey := rootKey + "." + configurationProfileKeyConstant
	return map[string]any{
		rootKey + "." + configurationPrimaryRepositoryKeyConstant:            defaults.PrimaryRepository,
		rootKey + "." + configurationRepositoriesKeyConstant:                 defaults.Repositories,
		rootKey + "." + configurationRepositoriesVariableKeyConstant:         defaults.RepositoriesEnvironmentVariable,
		rootKey + "." + configurationExecutablesDirectoryKeyConstant:         defaults.ExecutablesDirectory,
		rootKey + "." + configurationRemoteKeyConstant:                       defaults.RemoteName,
		rootKey + "." + configurationGitBackendKeyConstant:                   defaults.GitBackend,
		rootKey + "." + configurationContinueOnErrorKeyConstant:              defaults.ContinueOnError,
		rootKey + "." + configurationWaitForAcknowledgementKeyConstant:       defaults.WaitForAcknowledgement,
		rootKey + "." + configurationWriteManifestKeyConstant:                defaults.WriteManifest,
		rootKey + "." + configurationLockDirectoryKeyConstant:                defaults.LockDirectory,
		profileKey + "." + configurationProductNameKeyConstant:               defaults.Profile.ProductName,
		profileKey + "." + configurationScriptsDirectoryKeyConstant:          defaults.Profile.ScriptsDirectory,
		profileKey + "." + configurationBuildCommandKeyConstant:              defaults.Profile.BuildCommand,
		profileKey + "." + configurationBuildArgumentsKeyConstant:            defaults.Profile.BuildArguments,
		profileKey + "." + configurationConfigurationVariableKeyConstant:     defaults.Profile.ConfigurationEnvironmentVariable,
		profileKey + "." + configurationOutputDirectoryKeyConstant:           defaults.Profile.OutputDirectory,
		profileKey + "." + configurationArtifactDirectoryTemplateKeyConstant: defaults.Profile.ArtifactDirectoryTemplate,
		profileKey + "." + configurationConfigurationsKeyConstant:            defaults.Profile.Configurations,
		profileKey + "." + configurationArtifactsKeyConstant:                 defaults.Profile.Artifacts,
	}
}

// Sanitize trims values and restores defaults for empty required settings.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	defaults := DefaultCommandConfiguration()

	sanitized := configuration
	sanitized.PrimaryRepository = valueOrDefault(configuration.PrimaryRepository, defaults.PrimaryRepository)
	sanitized.Repositories = trimEntries(configuration.Repositories)
	sanitized.RepositoriesEnvironmentVariable = strings.TrimSpace(configuration.RepositoriesEnvironmentVariable)
	sanitized.ExecutablesDirectory = valueOrDefault(configuration.ExecutablesDirectory, defaults.ExecutablesDirectory)
	sanitized.RemoteName = valueOrDefault(configuration.RemoteName, defaults.RemoteName)
	sanitized.GitBackend = strings.ToLower(valueOrDefault(configuration.GitBackend, defaults.GitBackend))
	sanitized.LockDirectory = strings.TrimSpace(configuration.LockDirectory)
	return sanitized
}

// BuildProfile converts the profile section into a releases.BuildProfile.
func (configuration CommandConfiguration) BuildProfile() releases.BuildProfile {
	productTags := make([]releases.ProductTagMapping, 0, len(configuration.Profile.ProductTags))
	for _, mapping := range configuration.Profile.ProductTags {
		productTags = append(productTags, releases.ProductTagMapping{Directory: mapping.Directory, Tag: mapping.Tag})
	}

	return releases.BuildProfile{
		ProductName:                      configuration.Profile.ProductName,
		ScriptsDirectory:                 configuration.Profile.ScriptsDirectory,
		BuildCommand:                     configuration.Profile.BuildCommand,
		BuildArguments:                   configuration.Profile.BuildArguments,
		ConfigurationEnvironmentVariable: configuration.Profile.ConfigurationEnvironmentVariable,
		OutputDirectory:                  configuration.Profile.OutputDirectory,
		ArtifactDirectoryTemplate:        configuration.Profile.ArtifactDirectoryTemplate,
		Configurations:                   configuration.Profile.Configurations,
		Artifacts:                        configuration.Profile.Artifacts,
		ProductTags:                      productTags,
	}.Sanitize()
}

func valueOrDefault(value string, fallback string) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) == 0 {
		return fallback
	}
	return trimmed
}

func trimEntries(values []string) []string {
	trimmed := make([]string, 0, len(values))
	for _, value := range values {
		candidate := strings.TrimSpace(value)
		if len(candidate) == 0 {
			continue
		}
		trimmed = append(trimmed, candidate)
	}
	return trimmed
}

package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/temirov/matrixbuild/cmd/cli/release"
	"github.com/temirov/matrixbuild/internal/releases"
	"github.com/temirov/matrixbuild/internal/utils"
)

const testConfigurationFileName = "config.yaml"

func writeConfiguration(testInstance *testing.T, content string) string {
	testInstance.Helper()
	configurationPath := filepath.Join(testInstance.TempDir(), testConfigurationFileName)
	require.NoError(testInstance, os.WriteFile(configurationPath, []byte(content), 0o644))
	return configurationPath
}

func TestEmbeddedDefaultsMatchReleaseDefaults(testInstance *testing.T) {
	content, configurationType := EmbeddedDefaultConfiguration()
	require.Equal(testInstance, configurationTypeConstant, configurationType)

	var decoded struct {
		Tools struct {
			Release struct {
				Profile struct {
					ProductTags []struct {
						Directory string `yaml:"directory"`
						Tag       string `yaml:"tag"`
					} `yaml:"product_tags"`
				} `yaml:"profile"`
			} `yaml:"release"`
		} `yaml:"tools"`
	}
	require.NoError(testInstance, yaml.Unmarshal(content, &decoded))

	expectedTags := releases.DefaultBuildProfile().ProductTags
	require.Len(testInstance, decoded.Tools.Release.Profile.ProductTags, len(expectedTags))
	for index, mapping := range expectedTags {
		require.Equal(testInstance, mapping.Directory, decoded.Tools.Release.Profile.ProductTags[index].Directory)
		require.Equal(testInstance, mapping.Tag, decoded.Tools.Release.Profile.ProductTags[index].Tag)
	}
}

func TestApplicationInitializeConfiguration(testInstance *testing.T) {
	testCases := []struct {
		name          string
		configuration string
		environment   map[string]string
		arguments     []string
		assert        func(*testing.T, ApplicationConfiguration)
	}{
		{
			name:          "embedded_defaults",
			configuration: "common:\n  log_level: info\n",
			assert: func(subtest *testing.T, configuration ApplicationConfiguration) {
				require.Equal(subtest, string(utils.LogFormatConsole), configuration.Common.LogFormat)
				defaults := release.DefaultCommandConfiguration()
				sanitized := configuration.Tools.Release.Sanitize()
				require.Equal(subtest, defaults.PrimaryRepository, sanitized.PrimaryRepository)
				require.Equal(subtest, defaults.RepositoriesEnvironmentVariable, sanitized.RepositoriesEnvironmentVariable)
				require.Equal(subtest, defaults.ExecutablesDirectory, sanitized.ExecutablesDirectory)
				require.Equal(subtest, defaults.GitBackend, sanitized.GitBackend)
				require.Empty(subtest, sanitized.Repositories)
				require.True(subtest, sanitized.WaitForAcknowledgement)
				require.True(subtest, sanitized.WriteManifest)
				require.Equal(subtest, releases.DefaultBuildProfile().Sanitize(), configuration.Tools.Release.BuildProfile())
			},
		},
		{
			name: "file_overrides",
			configuration: "tools:\n  release:\n    git_backend: native\n    continue_on_error: true\n    repositories:\n      - /work/a\n      - /work/b\n" +
				"    profile:\n      configurations: [Release]\n",
			assert: func(subtest *testing.T, configuration ApplicationConfiguration) {
				require.Equal(subtest, "native", configuration.Tools.Release.GitBackend)
				require.True(subtest, configuration.Tools.Release.ContinueOnError)
				require.Equal(subtest, []string{"/work/a", "/work/b"}, configuration.Tools.Release.Repositories)
				require.Equal(subtest, []string{"Release"}, configuration.Tools.Release.Profile.Configurations)
				require.Len(subtest, configuration.Tools.Release.Profile.ProductTags, 3)
			},
		},
		{
			name:          "environment_list_split_on_semicolons",
			configuration: "common:\n  log_level: info\n",
			environment: map[string]string{
				"MATRIXBUILD_TOOLS_RELEASE_REPOSITORIES":             "/work/a;/work/b",
				"MATRIXBUILD_TOOLS_RELEASE_WAIT_FOR_ACKNOWLEDGEMENT": "false",
			},
			assert: func(subtest *testing.T, configuration ApplicationConfiguration) {
				require.Equal(subtest, []string{"/work/a", "/work/b"}, configuration.Tools.Release.Repositories)
				require.False(subtest, configuration.Tools.Release.WaitForAcknowledgement)
			},
		},
		{
			name:          "flags_override_logging",
			configuration: "common:\n  log_level: info\n  log_format: console\n",
			arguments:     []string{"--log-level", "debug", "--log-format", "structured"},
			assert: func(subtest *testing.T, configuration ApplicationConfiguration) {
				require.Equal(subtest, "debug", configuration.Common.LogLevel)
				require.Equal(subtest, "structured", configuration.Common.LogFormat)
			},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtest *testing.T) {
			for name, value := range testCase.environment {
				subtest.Setenv(name, value)
			}

			application := NewApplication()
			arguments := append([]string{"--config", writeConfiguration(subtest, testCase.configuration)}, testCase.arguments...)
			require.NoError(subtest, application.rootCommand.ParseFlags(arguments))
			require.NoError(subtest, application.initializeConfiguration(application.rootCommand))

			testCase.assert(subtest, application.configuration)
		})
	}
}

func TestApplicationAttachesRunIdentifier(testInstance *testing.T) {
	application := NewApplication()
	require.NoError(testInstance, application.rootCommand.ParseFlags([]string{"--config", writeConfiguration(testInstance, "common:\n  log_level: error\n")}))
	require.NoError(testInstance, application.initializeConfiguration(application.rootCommand))

	accessor := utils.NewCommandContextAccessor()
	runIdentifier, found := accessor.RunIdentifier(application.rootCommand.Context())
	require.True(testInstance, found)
	_, parseError := uuid.Parse(runIdentifier)
	require.NoError(testInstance, parseError)

	configurationPath, configurationFound := accessor.ConfigurationFilePath(application.rootCommand.Context())
	require.True(testInstance, configurationFound)
	require.Equal(testInstance, testConfigurationFileName, filepath.Base(configurationPath))
}

func TestApplicationRejectsInvalidLogLevel(testInstance *testing.T) {
	application := NewApplication()
	require.NoError(testInstance, application.rootCommand.ParseFlags([]string{"--config", writeConfiguration(testInstance, "common:\n  log_level: verbose\n")}))
	require.Error(testInstance, application.initializeConfiguration(application.rootCommand))
}

func TestApplicationRegistersReleaseCommand(testInstance *testing.T) {
	application := NewApplication()
	releaseCommand, _, findError := application.rootCommand.Find([]string{"release"})
	require.NoError(testInstance, findError)
	require.Equal(testInstance, "release", releaseCommand.Name())
	require.NotNil(testInstance, application.rootCommand.RunE)
	require.Error(testInstance, application.rootCommand.Args(application.rootCommand, []string{"extra"}))
}

func TestApplicationRejectsUnknownLogFormatFlag(testInstance *testing.T) {
	application := NewApplication()
	parseError := application.rootCommand.ParseFlags([]string{"--log-format", "xml"})
	require.Error(testInstance, parseError)
}

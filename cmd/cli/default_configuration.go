package cli

import _ "embed"

// embeddedDefaultConfigurationContent holds the LaTeX2AI release defaults, including the
// product tag table that Viper defaults cannot express.
//
//go:embed default_config.yaml
var embeddedDefaultConfigurationContent []byte

// EmbeddedDefaultConfiguration returns a copy of the embedded defaults and their format.
func EmbeddedDefaultConfiguration() ([]byte, string) {
	return append([]byte(nil), embeddedDefaultConfigurationContent...), configurationTypeConstant
}

// Package utils holds the ambient plumbing shared by the matrixbuild commands.
//
// ConfigurationLoader layers embedded defaults, configuration files and
// environment overrides through Viper. LoggerFactory builds zap loggers with an
// optional rotating file sink. CommandContextAccessor carries per-run values
// such as the configuration path and the release run identifier.
package utils

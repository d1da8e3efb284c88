// Package cli constructs the matrixbuild command-line interface, wiring the Cobra command
// hierarchy, the configuration loader and structured logging. Running the root command without
// a subcommand performs a release.
package cli

// Package execshell provides structured helpers for invoking external tools.
//
// It wraps os/exec with logging via ShellExecutor, exposes OSCommandRunner for
// default process execution, and defines the abstractions matrixbuild uses to
// run git and the external build scripts in a testable manner.
package execshell

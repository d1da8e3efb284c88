package execshell

// CommandEventObserver receives lifecycle notifications for git and build-script commands run by
// ShellExecutor.
type CommandEventObserver interface {
	// CommandStarted is called before the process is launched.
	CommandStarted(command ShellCommand)
	// CommandCompleted is called once the process exited, whatever its exit code.
	CommandCompleted(command ShellCommand, result ExecutionResult)
	// CommandExecutionFailed is called when the process could not be launched or waited on, so
	// no ExecutionResult exists.
	CommandExecutionFailed(command ShellCommand, failure error)
}

// noopCommandEventObserver is installed when ShellExecutor is built without an observer.
type noopCommandEventObserver struct{}

// CommandStarted ignores the event.
func (noopCommandEventObserver) CommandStarted(ShellCommand) {}

// CommandCompleted ignores the event.
func (noopCommandEventObserver) CommandCompleted(ShellCommand, ExecutionResult) {}

// CommandExecutionFailed ignores the event.
func (noopCommandEventObserver) CommandExecutionFailed(ShellCommand, error) {}

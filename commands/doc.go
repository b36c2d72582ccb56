// Package commands registers and runs the user-invocable buf actions.
//
// Every tool command has the same three steps:
//
//  1. Precondition: the lifecycle context must hold a tool descriptor,
//     otherwise ToolNotFound is reported and no process is started.
//  2. Invoke: buf runs with the command's fixed argv in the workspace root,
//     stdout and stderr captured in full.
//  3. Classify: a launch failure is ExecutionFailed, any stderr text is
//     ToolReportedError (whatever the exit code), anything else is success.
//
// Exactly one outcome line reaches the Log sink per invocation and no error
// escapes Execute for a registered command.
package commands

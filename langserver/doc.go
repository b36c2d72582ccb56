// Package langserver drives the `buf lsp serve` process.
//
// The Manager is the only writer of the lifecycle context's server status:
//
//	Stopped -> Starting -> Running -> Stopped        (Start, then Stop)
//	Stopped -> Starting -> Errored                   (initialize failed)
//	Running -> Errored -> Starting -> Running        (crash, rate-limited restart)
//	any     -> Disabled                              (server.enabled = false)
//
// Server stderr and window/logMessage notifications are forwarded to the
// context's server output channel. Documents opened through the Manager are
// recorded as tracked files together with their owning buf module.
package langserver

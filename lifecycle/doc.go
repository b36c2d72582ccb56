// Package lifecycle holds the state shared between the language server
// manager, the command dispatcher and any status display: the server status,
// a busy flag, the detected buf installation and the files the server knows
// about.
//
// Every change is announced to subscribers synchronously, in registration
// order, before the mutating call returns. Subscribers receive no payload and
// re-read whatever they need from the Context.
//
//	ctx := lifecycle.New(lifecycle.WithServerOutput(f))
//	defer ctx.Close()
//
//	unsubscribe := ctx.Subscribe(func() {
//	    render(ctx.Status(), ctx.Busy(), ctx.Tool())
//	})
//	defer unsubscribe()
package lifecycle

package lifecycle

import (
	"io"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/teranos/bufkit/logger"
)

// ServerOutputName is the logger name of the language server's output channel.
const ServerOutputName = "buf-server"

// Context is the shared lifecycle state. One instance lives for the whole
// editor session; the dispatcher and the language server manager hold
// non-owning pointers to it.
//
// State is guarded by a mutex, but subscriber callbacks always run outside it
// on the goroutine that made the change, so a subscriber may read or even
// mutate the Context. Notification order is guaranteed per mutating goroutine.
type Context struct {
	mu     sync.Mutex
	status ServerStatus
	busy   bool
	tool   *ToolDescriptor
	files  map[string]TrackedFile

	subscribers []subscription
	nextSubID   uint64

	output       *zap.SugaredLogger
	outputCloser io.Closer
	log          *zap.SugaredLogger

	closeOnce sync.Once
	closed    bool
}

type subscription struct {
	id uint64
	fn func()
}

// Option configures a Context.
type Option func(*Context)

// WithServerOutput directs the language server's output channel to w.
// The Context takes ownership: w is closed by Close when it is an io.Closer.
func WithServerOutput(w io.Writer) Option {
	return func(c *Context) {
		c.output = logger.NewWriterLogger(ServerOutputName, w)
		if closer, ok := w.(io.Closer); ok {
			c.outputCloser = closer
		}
	}
}

// WithLogger sets the logger used to report misbehaving subscribers.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Context) {
		c.log = l
	}
}

// New creates a Context in the Stopped state with no tool detected.
func New(opts ...Option) *Context {
	c := &Context{
		status: StatusStopped,
		files:  make(map[string]TrackedFile),
		log:    logger.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.output == nil {
		c.output = logger.NewWriterLogger(ServerOutputName, io.Discard)
	}
	return c
}

// Status returns the current server status.
func (c *Context) Status() ServerStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// SetStatus updates the server status, notifying subscribers only when the
// value changes. Undeclared statuses are logged and ignored.
func (c *Context) SetStatus(status ServerStatus) {
	if !status.Valid() {
		c.log.Warnw("Ignoring unknown server status", "status", int(status))
		return
	}

	c.mu.Lock()
	if c.status == status {
		c.mu.Unlock()
		return
	}
	c.status = status
	c.mu.Unlock()

	c.notify()
}

// Busy reports whether a long-running operation is in progress.
func (c *Context) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// SetBusy updates the busy flag and always notifies subscribers, even when
// the value is unchanged: each call is an activity signal.
func (c *Context) SetBusy(busy bool) {
	c.mu.Lock()
	c.busy = busy
	c.mu.Unlock()

	c.notify()
}

// Tool returns the detected buf installation, or nil if none.
func (c *Context) Tool() *ToolDescriptor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tool
}

// SetTool replaces the detected installation. Subscribers are notified only
// when the new descriptor differs from the current one, so re-detecting the
// same installation is silent.
func (c *Context) SetTool(tool *ToolDescriptor) {
	c.mu.Lock()
	if c.tool.Equal(tool) {
		c.mu.Unlock()
		return
	}
	c.tool = tool
	c.mu.Unlock()

	c.notify()
}

// Subscribe registers fn to be called after every change. The returned
// function removes the subscription; calling it more than once, or from
// inside a notification, is safe.
func (c *Context) Subscribe(fn func()) (unsubscribe func()) {
	c.mu.Lock()
	c.nextSubID++
	id := c.nextSubID
	// Copy-on-write so that in-flight notifications keep iterating their snapshot
	subs := make([]subscription, len(c.subscribers), len(c.subscribers)+1)
	copy(subs, c.subscribers)
	c.subscribers = append(subs, subscription{id: id, fn: fn})
	c.mu.Unlock()

	return func() {
		c.unsubscribe(id)
	}
}

func (c *Context) unsubscribe(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, sub := range c.subscribers {
		if sub.id == id {
			subs := make([]subscription, 0, len(c.subscribers)-1)
			subs = append(subs, c.subscribers[:i]...)
			subs = append(subs, c.subscribers[i+1:]...)
			c.subscribers = subs
			return
		}
	}
}

// SubscriberCount returns the number of active subscriptions.
func (c *Context) SubscriberCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subscribers)
}

func (c *Context) notify() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	snapshot := c.subscribers
	c.mu.Unlock()

	for _, sub := range snapshot {
		c.deliver(sub)
	}
}

func (c *Context) deliver(sub subscription) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Errorw("Lifecycle subscriber panicked", "subscription", sub.id, "panic", r)
		}
	}()
	sub.fn()
}

// TrackFile records a file known to the language server, replacing any
// previous entry for the same path. It does not notify subscribers.
func (c *Context) TrackFile(file TrackedFile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files[file.Path] = file
}

// UntrackFile forgets path. It reports whether the path was tracked.
func (c *Context) UntrackFile(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.files[path]
	delete(c.files, path)
	return ok
}

// File returns the tracked entry for path.
func (c *Context) File(path string) (TrackedFile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.files[path]
	return f, ok
}

// Files returns a copy of the tracked files sorted by path.
func (c *Context) Files() []TrackedFile {
	c.mu.Lock()
	files := make([]TrackedFile, 0, len(c.files))
	for _, f := range c.files {
		files = append(files, f)
	}
	c.mu.Unlock()

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files
}

// ClearFiles drops every tracked file, typically when the server stops.
func (c *Context) ClearFiles() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files = make(map[string]TrackedFile)
}

// ServerOutput returns the language server's output channel. It is owned by
// the Context and must not be closed by callers.
func (c *Context) ServerOutput() *zap.SugaredLogger {
	return c.output
}

// Closed reports whether Close has been called.
func (c *Context) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close releases the server output channel. It is idempotent; after Close,
// mutations still update state but no longer notify subscribers.
func (c *Context) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.subscribers = nil
		c.mu.Unlock()

		_ = c.output.Sync()
		if c.outputCloser != nil {
			err = c.outputCloser.Close()
		}
	})
	return err
}

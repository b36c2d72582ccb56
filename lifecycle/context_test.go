package lifecycle

import (
	"bytes"
	"sync"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func counter(c *Context) *int {
	n := 0
	c.Subscribe(func() { n++ })
	return &n
}

func mustTool(t *testing.T, path, rng, version string) *ToolDescriptor {
	t.Helper()
	tool, err := ParseToolDescriptor(path, rng, version)
	require.NoError(t, err)
	return tool
}

func TestNewDefaults(t *testing.T) {
	c := New()
	defer c.Close()

	assert.Equal(t, StatusStopped, c.Status())
	assert.False(t, c.Busy())
	assert.Nil(t, c.Tool())
	assert.Empty(t, c.Files())
	assert.NotNil(t, c.ServerOutput())
}

func TestSetStatusIdempotent(t *testing.T) {
	c := New()
	defer c.Close()
	n := counter(c)

	c.SetStatus(StatusStopped)
	assert.Equal(t, 0, *n, "setting the current status must not notify")

	c.SetStatus(StatusRunning)
	assert.Equal(t, 1, *n)
	assert.Equal(t, StatusRunning, c.Status())

	c.SetStatus(StatusRunning)
	assert.Equal(t, 1, *n)
}

func TestStatusTransitionsArePermissive(t *testing.T) {
	c := New()
	defer c.Close()

	for _, s := range []ServerStatus{StatusErrored, StatusDisabled, StatusRunning, StatusStarting, StatusStopped} {
		c.SetStatus(s)
		assert.Equal(t, s, c.Status())
	}
}

func TestSetStatusIgnoresUnknownValues(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	c := New(WithLogger(zap.New(core).Sugar()))
	defer c.Close()
	n := counter(c)

	c.SetStatus(ServerStatus(42))
	assert.Equal(t, StatusStopped, c.Status())
	assert.Equal(t, 0, *n)
	assert.Equal(t, 1, logs.FilterMessage("Ignoring unknown server status").Len())
}

func TestSetBusyAlwaysNotifies(t *testing.T) {
	c := New()
	defer c.Close()
	n := counter(c)

	c.SetBusy(false)
	c.SetBusy(false)
	c.SetBusy(true)
	c.SetBusy(true)

	assert.Equal(t, 4, *n)
	assert.True(t, c.Busy())
}

func TestSetToolNotifiesOnChange(t *testing.T) {
	c := New()
	defer c.Close()
	n := counter(c)

	c.SetTool(nil)
	assert.Equal(t, 0, *n)

	c.SetTool(mustTool(t, "/usr/local/bin/buf", ">=1.40.0", "1.47.2"))
	assert.Equal(t, 1, *n)

	// Re-detection of the same installation is silent
	c.SetTool(mustTool(t, "/usr/local/bin/buf", ">=1.40.0", "1.47.2"))
	assert.Equal(t, 1, *n)

	c.SetTool(mustTool(t, "/usr/local/bin/buf", ">=1.40.0", "1.48.0"))
	assert.Equal(t, 2, *n)

	c.SetTool(nil)
	assert.Equal(t, 3, *n)
	assert.Nil(t, c.Tool())
}

func TestNotificationOrder(t *testing.T) {
	c := New()
	defer c.Close()

	var order []string
	c.Subscribe(func() { order = append(order, "first") })
	c.Subscribe(func() { order = append(order, "second") })
	c.Subscribe(func() { order = append(order, "third") })

	c.SetBusy(true)
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestSubscriberSeesNewState(t *testing.T) {
	c := New()
	defer c.Close()

	var seen ServerStatus
	c.Subscribe(func() { seen = c.Status() })

	c.SetStatus(StatusStarting)
	assert.Equal(t, StatusStarting, seen)
}

func TestUnsubscribeDuringNotification(t *testing.T) {
	c := New()
	defer c.Close()

	var first, second int
	var unsubFirst func()
	unsubFirst = c.Subscribe(func() {
		first++
		unsubFirst()
	})
	c.Subscribe(func() { second++ })

	c.SetBusy(true)
	assert.Equal(t, 1, first)
	assert.Equal(t, 1, second, "remaining subscriber must receive the in-flight notification")

	c.SetBusy(false)
	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
	assert.Equal(t, 1, c.SubscriberCount())
}

func TestUnsubscribeOtherDuringNotification(t *testing.T) {
	c := New()
	defer c.Close()

	var second int
	var unsubSecond func()
	c.Subscribe(func() { unsubSecond() })
	unsubSecond = c.Subscribe(func() { second++ })

	// The snapshot taken before delivery still includes the second subscriber
	c.SetBusy(true)
	assert.Equal(t, 1, second)

	c.SetBusy(true)
	assert.Equal(t, 1, second)
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	c := New()
	defer c.Close()

	unsub := c.Subscribe(func() {})
	n := counter(c)

	unsub()
	unsub()
	assert.Equal(t, 1, c.SubscriberCount())

	c.SetBusy(true)
	assert.Equal(t, 1, *n)
}

func TestSubscribeDuringNotification(t *testing.T) {
	c := New()
	defer c.Close()

	var late int
	registered := false
	c.Subscribe(func() {
		if !registered {
			registered = true
			c.Subscribe(func() { late++ })
		}
	})

	c.SetBusy(true)
	assert.Equal(t, 0, late, "subscribers added mid-notification wait for the next one")

	c.SetBusy(true)
	assert.Equal(t, 1, late)
}

func TestReentrantMutation(t *testing.T) {
	c := New()
	defer c.Close()

	var statuses []ServerStatus
	c.Subscribe(func() {
		statuses = append(statuses, c.Status())
		if c.Status() == StatusStarting {
			c.SetStatus(StatusRunning)
		}
	})

	c.SetStatus(StatusStarting)
	assert.Equal(t, []ServerStatus{StatusStarting, StatusRunning}, statuses)
}

func TestPanickingSubscriberIsIsolated(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	c := New(WithLogger(zap.New(core).Sugar()))
	defer c.Close()

	c.Subscribe(func() { panic("boom") })
	n := counter(c)

	assert.NotPanics(t, func() { c.SetBusy(true) })
	assert.Equal(t, 1, *n)
	assert.Equal(t, 1, logs.FilterMessage("Lifecycle subscriber panicked").Len())
}

type closeCounter struct {
	bytes.Buffer
	closed int
}

func (w *closeCounter) Close() error {
	w.closed++
	return nil
}

func TestCloseIdempotent(t *testing.T) {
	sink := &closeCounter{}
	c := New(WithServerOutput(sink))

	require.NoError(t, c.Close())
	assert.NotPanics(t, func() { _ = c.Close() })
	assert.Equal(t, 1, sink.closed, "owned sink must be released exactly once")
	assert.True(t, c.Closed())
}

func TestNotificationsAfterCloseAreDropped(t *testing.T) {
	c := New()
	n := counter(c)
	require.NoError(t, c.Close())

	assert.NotPanics(t, func() {
		c.SetBusy(true)
		c.SetStatus(StatusRunning)
	})
	assert.Equal(t, 0, *n)
	assert.Equal(t, StatusRunning, c.Status())
}

func TestServerOutputWritesToSink(t *testing.T) {
	var buf bytes.Buffer
	c := New(WithServerOutput(&buf))
	defer c.Close()

	c.ServerOutput().Info("buf lsp serve started")
	assert.Contains(t, buf.String(), ServerOutputName)
	assert.Contains(t, buf.String(), "buf lsp serve started")
}

func TestFileRegistry(t *testing.T) {
	c := New()
	defer c.Close()
	n := counter(c)

	c.TrackFile(TrackedFile{Path: "/ws/proto/b.proto", Module: "buf.build/acme/b"})
	c.TrackFile(TrackedFile{Path: "/ws/proto/a.proto", Module: "buf.build/acme/a"})
	c.TrackFile(TrackedFile{Path: "/ws/proto/a.proto", Module: "buf.build/acme/a2"})

	f, ok := c.File("/ws/proto/a.proto")
	require.True(t, ok)
	assert.Equal(t, "buf.build/acme/a2", f.Module)

	files := c.Files()
	require.Len(t, files, 2)
	assert.Equal(t, "/ws/proto/a.proto", files[0].Path)

	// Copies do not alias the registry
	files[0].Module = "mutated"
	f, _ = c.File("/ws/proto/a.proto")
	assert.Equal(t, "buf.build/acme/a2", f.Module)

	assert.True(t, c.UntrackFile("/ws/proto/a.proto"))
	assert.False(t, c.UntrackFile("/ws/proto/a.proto"))

	c.ClearFiles()
	assert.Empty(t, c.Files())
	assert.Equal(t, 0, *n, "registry changes do not notify")
}

func TestConcurrentAccess(t *testing.T) {
	c := New()
	defer c.Close()

	var mu sync.Mutex
	total := 0
	c.Subscribe(func() {
		mu.Lock()
		total++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				c.SetBusy(j%2 == 0)
				_ = c.Status()
				_ = c.Tool()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 400, total)
}

func TestToolDescriptorValidation(t *testing.T) {
	rng, err := semver.NewConstraint(">=1.40.0")
	require.NoError(t, err)

	_, err = NewToolDescriptor("buf", rng, nil)
	assert.Error(t, err, "relative path")

	_, err = NewToolDescriptor("/usr/bin/buf", nil, nil)
	assert.Error(t, err, "missing range")

	_, err = ParseToolDescriptor("/usr/bin/buf", "not a range", "")
	assert.Error(t, err)

	_, err = ParseToolDescriptor("/usr/bin/buf", ">=1.40.0", "garbage")
	assert.Error(t, err)
}

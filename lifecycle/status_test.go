package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServerStatusString(t *testing.T) {
	assert.Equal(t, "disabled", StatusDisabled.String())
	assert.Equal(t, "starting", StatusStarting.String())
	assert.Equal(t, "running", StatusRunning.String())
	assert.Equal(t, "stopped", StatusStopped.String())
	assert.Equal(t, "errored", StatusErrored.String())
	assert.Equal(t, "unknown", ServerStatus(42).String())

	assert.True(t, StatusErrored.Valid())
	assert.False(t, ServerStatus(-1).Valid())
}

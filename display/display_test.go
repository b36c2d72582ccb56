package display

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "status"}
	cmd.Flags().BoolP("json", "j", false, "")
	return cmd
}

func TestShouldOutputJSON(t *testing.T) {
	t.Setenv(OutputEnv, "")

	cmd := newCmd()
	assert.False(t, ShouldOutputJSON(cmd))
	assert.False(t, ShouldOutputJSON(nil))

	require.NoError(t, cmd.Flags().Set("json", "true"))
	assert.True(t, ShouldOutputJSON(cmd))
}

func TestShouldOutputJSON_Environment(t *testing.T) {
	t.Setenv(OutputEnv, "json")
	assert.True(t, ShouldOutputJSON(newCmd()))
	assert.True(t, ShouldOutputJSON(nil))

	cmd := newCmd()
	require.NoError(t, cmd.Flags().Set("json", "false"))
	assert.False(t, ShouldOutputJSON(cmd), "explicit flag overrides the environment")

	assert.True(t, ShouldOutputJSON(&cobra.Command{Use: "bare"}), "commands without the flag follow the environment")
}

func TestOutputJSON(t *testing.T) {
	t.Setenv(OutputEnv, "")
	var buf bytes.Buffer
	require.NoError(t, OutputJSON(&buf, map[string]int{"restarts": 2}))
	assert.Equal(t, "{\n  \"restarts\": 2\n}\n", buf.String())

	t.Setenv(OutputEnv, "json")
	buf.Reset()
	require.NoError(t, OutputJSON(&buf, map[string]int{"restarts": 2}))
	assert.Equal(t, "{\"restarts\":2}\n", buf.String())
}

package display

import (
	"encoding/json"
	"os"
)

// MarshalJSON pretty-prints for terminals and emits compact JSON when
// BUFKIT_OUTPUT=json, where output is consumed by programs.
func MarshalJSON(v interface{}) ([]byte, error) {
	if os.Getenv(OutputEnv) == "json" {
		return json.Marshal(v)
	}
	return json.MarshalIndent(v, "", "  ")
}

package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfoString(t *testing.T) {
	info := Info{CommitHash: "0123456789abcdef", BuildTime: "2024-05-01", Version: "v1.2.3"}

	assert.Equal(t, "bufkit v1.2.3 (commit 0123456, built 2024-05-01)", info.String())
	assert.Equal(t, "0123456", info.Short())
}

func TestShortWithShortHash(t *testing.T) {
	assert.Equal(t, "dev", Info{CommitHash: "dev"}.Short())
}

func TestServerInfoVersion(t *testing.T) {
	original := Version
	defer func() { Version = original }()

	Version = "dev"
	assert.Equal(t, "0.0.0-dev", ServerInfoVersion())

	Version = "v0.4.0"
	assert.Equal(t, "v0.4.0", ServerInfoVersion())
}

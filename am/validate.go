package am

import (
	"github.com/Masterminds/semver/v3"

	"github.com/teranos/bufkit/errors"
)

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.Buf.VersionRange != "" {
		if _, err := semver.NewConstraint(c.Buf.VersionRange); err != nil {
			return errors.Wrapf(err, "buf.version_range %q is not a valid semver constraint", c.Buf.VersionRange)
		}
	}

	if c.Server.MaxRestartsPerMinute < 0 {
		return errors.Newf("server.max_restarts_per_minute must be >= 0, got %d", c.Server.MaxRestartsPerMinute)
	}

	if c.Server.Enabled && len(c.Server.Args) == 0 {
		return errors.New("server.args must not be empty when the language server is enabled")
	}

	switch c.Log.Theme {
	case "", "everforest", "gruvbox":
	default:
		return errors.WithHint(
			errors.Newf("log.theme %q is not supported", c.Log.Theme),
			"use everforest or gruvbox",
		)
	}

	return nil
}

package lifecycle

import (
	"path/filepath"

	"github.com/Masterminds/semver/v3"

	"github.com/teranos/bufkit/errors"
)

// ToolDescriptor describes a detected buf installation. It is immutable:
// re-detection produces a new descriptor that replaces the old one.
type ToolDescriptor struct {
	path         string
	versionRange *semver.Constraints
	version      *semver.Version
}

// NewToolDescriptor builds a descriptor for the binary at path. versionRange
// is the accepted range; version is the detected version and may be nil when
// detection could not determine it.
func NewToolDescriptor(path string, versionRange *semver.Constraints, version *semver.Version) (*ToolDescriptor, error) {
	if !filepath.IsAbs(path) {
		return nil, errors.NewInvalidRequestError("tool path must be absolute, got %q", path)
	}
	if versionRange == nil {
		return nil, errors.NewInvalidRequestError("tool descriptor for %s requires a version range", path)
	}
	return &ToolDescriptor{
		path:         path,
		versionRange: versionRange,
		version:      version,
	}, nil
}

// ParseToolDescriptor is NewToolDescriptor with textual range and version.
// An empty versionText leaves the version unknown.
func ParseToolDescriptor(path, rangeText, versionText string) (*ToolDescriptor, error) {
	rng, err := semver.NewConstraint(rangeText)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid version range %q", rangeText)
	}

	var v *semver.Version
	if versionText != "" {
		v, err = semver.NewVersion(versionText)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid version %q", versionText)
		}
	}

	return NewToolDescriptor(path, rng, v)
}

// Path is the absolute path of the buf binary.
func (t *ToolDescriptor) Path() string { return t.path }

// VersionRange is the accepted version range.
func (t *ToolDescriptor) VersionRange() *semver.Constraints { return t.versionRange }

// Version is the detected version, or nil if unknown.
func (t *ToolDescriptor) Version() *semver.Version { return t.version }

// Satisfied reports whether the detected version falls inside the accepted
// range. An unknown version is never satisfied.
func (t *ToolDescriptor) Satisfied() bool {
	if t == nil || t.version == nil {
		return false
	}
	return t.versionRange.Check(t.version)
}

// Equal reports whether two descriptors describe the same installation.
// Two nil descriptors are equal.
func (t *ToolDescriptor) Equal(other *ToolDescriptor) bool {
	if t == other {
		return true
	}
	if t == nil || other == nil {
		return false
	}
	if t.path != other.path || t.versionRange.String() != other.versionRange.String() {
		return false
	}
	if t.version == nil || other.version == nil {
		return t.version == nil && other.version == nil
	}
	return t.version.Equal(other.version)
}

// String renders the descriptor for logs and status displays.
func (t *ToolDescriptor) String() string {
	if t == nil {
		return "buf (not installed)"
	}
	if t.version == nil {
		return "buf (unknown version) at " + t.path
	}
	return "buf " + t.version.String() + " at " + t.path
}

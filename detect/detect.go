// Package detect locates the buf binary and checks its version against the
// accepted range before handing a ToolDescriptor to the lifecycle context.
package detect

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"go.uber.org/zap"

	"github.com/teranos/bufkit/errors"
	"github.com/teranos/bufkit/lifecycle"
	"github.com/teranos/bufkit/logger"
	"github.com/teranos/bufkit/runner"
)

const (
	// DefaultVersionRange is the oldest buf that ships `buf lsp serve`.
	DefaultVersionRange = ">=1.40.0"

	// VersionCheckTimeout bounds `buf --version`.
	VersionCheckTimeout = 5 * time.Second
)

var versionPattern = regexp.MustCompile(`v?(\d+\.\d+\.\d+(?:-[0-9A-Za-z.-]+)?)`)

// Config configures a Detector.
type Config struct {
	// Path is an explicit binary path that skips PATH search.
	Path string
	// VersionRange is the accepted semver range. Empty means DefaultVersionRange.
	VersionRange string
	Executor     runner.Executor
	Logger       *zap.SugaredLogger

	// LookPath and CommonPaths are overridable for tests.
	LookPath    func(string) (string, error)
	CommonPaths []string
}

// Detector finds buf.
type Detector struct {
	cfg Config
	rng *semver.Constraints
	log *zap.SugaredLogger
}

// New validates cfg and returns a Detector.
func New(cfg Config) (*Detector, error) {
	if cfg.VersionRange == "" {
		cfg.VersionRange = DefaultVersionRange
	}
	rng, err := semver.NewConstraint(cfg.VersionRange)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid buf version range %q", cfg.VersionRange)
	}
	if cfg.Executor == nil {
		cfg.Executor = runner.NewOS(nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.ComponentLogger("detect")
	}
	if cfg.LookPath == nil {
		cfg.LookPath = runner.LookPath
	}
	if cfg.CommonPaths == nil {
		cfg.CommonPaths = defaultCommonPaths()
	}
	return &Detector{cfg: cfg, rng: rng, log: cfg.Logger}, nil
}

func defaultCommonPaths() []string {
	paths := []string{"/usr/local/bin/buf", "/opt/homebrew/bin/buf"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, "go", "bin", "buf"),
			filepath.Join(home, ".local", "bin", "buf"),
		)
	}
	return paths
}

// Detect returns a descriptor for an installed buf within the accepted range.
// Any failure is marked ErrToolNotFound so callers can treat the tool as absent.
func (d *Detector) Detect(ctx context.Context) (*lifecycle.ToolDescriptor, error) {
	path, err := d.find()
	if err != nil {
		return nil, err
	}

	version, err := d.version(ctx, path)
	if err != nil {
		return nil, errors.Mark(err, errors.ErrToolNotFound)
	}

	tool, err := lifecycle.NewToolDescriptor(path, d.rng, version)
	if err != nil {
		return nil, errors.Mark(err, errors.ErrToolNotFound)
	}
	if !tool.Satisfied() {
		err := errors.Newf("buf %s at %s does not satisfy %s", version, path, d.cfg.VersionRange)
		err = errors.WithHint(err, "upgrade buf: https://buf.build/docs/installation")
		return nil, errors.Mark(err, errors.ErrToolNotFound)
	}

	d.log.Infow("Detected buf",
		logger.FieldBinary, path,
		logger.FieldVersion, version.String(),
		logger.FieldVersionRange, d.cfg.VersionRange)
	return tool, nil
}

func (d *Detector) find() (string, error) {
	if d.cfg.Path != "" {
		path, err := filepath.Abs(d.cfg.Path)
		if err != nil {
			return "", errors.Wrapf(err, "invalid buf.path %q", d.cfg.Path)
		}
		info, err := os.Stat(path)
		if err != nil {
			d.log.Debugw("Configured buf path not found", logger.FieldPath, path)
			return "", errors.Mark(
				errors.WithHint(errors.Newf("buf.path %s does not exist", path), "fix buf.path in bufkit.toml or unset it to search PATH"),
				errors.ErrToolNotFound)
		}
		if info.IsDir() {
			return "", errors.Mark(
				errors.WithHint(errors.Newf("buf.path %s is a directory", path), "point buf.path at the buf binary itself"),
				errors.ErrToolNotFound)
		}
		return path, nil
	}

	if path, err := d.cfg.LookPath("buf"); err == nil {
		abs, absErr := filepath.Abs(path)
		if absErr == nil {
			return abs, nil
		}
	}

	searched := []string{"$PATH"}
	for _, candidate := range d.cfg.CommonPaths {
		searched = append(searched, candidate)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	d.log.Debugw("buf not found", "searched", searched)
	return "", errors.WithDetailf(
		errors.WithHint(errors.ErrToolNotFound, "install buf: https://buf.build/docs/installation"),
		"searched: %s", strings.Join(searched, ", "))
}

func (d *Detector) version(ctx context.Context, path string) (*semver.Version, error) {
	ctx, cancel := context.WithTimeout(ctx, VersionCheckTimeout)
	defer cancel()

	res, err := d.cfg.Executor.Execute(ctx, path, []string{"--version"}, runner.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to run %s --version", path)
	}
	if res.Failed() {
		return nil, errors.Newf("%s --version exited with status %d: %s", path, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return ParseVersion(res.Stdout + res.Stderr)
}

// ParseVersion extracts the first semantic version from `buf --version`
// output. Older releases print the version on stderr.
func ParseVersion(output string) (*semver.Version, error) {
	m := versionPattern.FindStringSubmatch(output)
	if m == nil {
		return nil, errors.Newf("no version in %q", strings.TrimSpace(output))
	}
	v, err := semver.NewVersion(m[1])
	if err != nil {
		return nil, errors.Wrapf(err, "invalid buf version %q", m[1])
	}
	return v, nil
}

// Refresh runs Detect and stores the result (or its absence) in lc. SetTool
// deduplicates, so refreshing an unchanged install does not notify.
func (d *Detector) Refresh(ctx context.Context, lc *lifecycle.Context) (*lifecycle.ToolDescriptor, error) {
	tool, err := d.Detect(ctx)
	if err != nil {
		d.log.Warnw("buf unavailable", logger.FieldError, err.Error())
		lc.SetTool(nil)
		return nil, err
	}
	lc.SetTool(tool)
	return tool, nil
}

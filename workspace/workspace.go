// Package workspace resolves the workspace root and maps source files to the
// buf module that owns them, from buf.yaml (v1 and v2) and buf.work.yaml.
package workspace

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/teranos/bufkit/errors"
)

const (
	BufYAML     = "buf.yaml"
	BufWorkYAML = "buf.work.yaml"
)

// Module is one buf module inside the workspace.
type Module struct {
	// Dir is the absolute module directory.
	Dir string
	// Name is the BSR name, or the directory relative to the root when unnamed.
	Name string
}

// Workspace is a parsed buf workspace.
type Workspace struct {
	Root    string
	Version string
	Modules []Module
}

type bufConfig struct {
	Version string `yaml:"version"`
	Name    string `yaml:"name"`
	Modules []struct {
		Path string `yaml:"path"`
		Name string `yaml:"name"`
	} `yaml:"modules"`
}

type bufWorkConfig struct {
	Version     string   `yaml:"version"`
	Directories []string `yaml:"directories"`
}

// ResolveRoot turns a configured root into an absolute directory. Empty or
// "." means the current working directory.
func ResolveRoot(configured string) (string, error) {
	if configured == "" {
		configured = "."
	}
	if strings.HasPrefix(configured, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "failed to resolve home directory")
		}
		configured = filepath.Join(home, configured[2:])
	}
	root, err := filepath.Abs(configured)
	if err != nil {
		return "", errors.Wrapf(err, "invalid workspace root %q", configured)
	}
	info, err := os.Stat(root)
	if err != nil {
		return "", errors.Wrapf(err, "workspace root %s", root)
	}
	if !info.IsDir() {
		return "", errors.NewInvalidRequestError("workspace root %s is not a directory", root)
	}
	return root, nil
}

// FindRoot walks up from start looking for buf.work.yaml, then for the
// outermost buf.yaml. It returns start itself when neither exists.
func FindRoot(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", errors.Wrapf(err, "invalid path %q", start)
	}

	var outermost string
	for {
		if exists(filepath.Join(dir, BufWorkYAML)) {
			return dir, nil
		}
		if exists(filepath.Join(dir, BufYAML)) {
			outermost = dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	if outermost != "" {
		return outermost, nil
	}
	return filepath.Abs(start)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Load parses the buf configuration at root. A root without any buf
// configuration is a valid, module-less workspace.
func Load(root string) (*Workspace, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid workspace root %q", root)
	}
	ws := &Workspace{Root: root}

	workPath := filepath.Join(root, BufWorkYAML)
	if exists(workPath) {
		var work bufWorkConfig
		if err := readYAML(workPath, &work); err != nil {
			return nil, err
		}
		ws.Version = work.Version
		for _, dir := range work.Directories {
			modDir := filepath.Join(root, filepath.FromSlash(dir))
			name := ""
			if exists(filepath.Join(modDir, BufYAML)) {
				var cfg bufConfig
				if err := readYAML(filepath.Join(modDir, BufYAML), &cfg); err != nil {
					return nil, err
				}
				name = cfg.Name
			}
			ws.add(modDir, name)
		}
		return ws, nil
	}

	bufPath := filepath.Join(root, BufYAML)
	if !exists(bufPath) {
		return ws, nil
	}
	var cfg bufConfig
	if err := readYAML(bufPath, &cfg); err != nil {
		return nil, err
	}
	ws.Version = cfg.Version

	switch cfg.Version {
	case "v2":
		if len(cfg.Modules) == 0 {
			ws.add(root, cfg.Name)
		}
		for _, m := range cfg.Modules {
			ws.add(filepath.Join(root, filepath.FromSlash(m.Path)), m.Name)
		}
	case "", "v1", "v1beta1":
		ws.add(root, cfg.Name)
	default:
		return nil, errors.NewInvalidRequestError("unsupported %s version %q", bufPath, cfg.Version)
	}
	return ws, nil
}

func readYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", path)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "failed to parse %s", path)
	}
	return nil
}

func (w *Workspace) add(dir, name string) {
	dir = filepath.Clean(dir)
	if name == "" {
		rel, err := filepath.Rel(w.Root, dir)
		if err != nil || rel == "." {
			rel = filepath.Base(dir)
		}
		name = filepath.ToSlash(rel)
	}
	w.Modules = append(w.Modules, Module{Dir: dir, Name: name})
	// Deepest directory first so ModuleFor picks the most specific module
	sort.SliceStable(w.Modules, func(i, j int) bool {
		return len(w.Modules[i].Dir) > len(w.Modules[j].Dir)
	})
}

// ModuleFor returns the module containing path.
func (w *Workspace) ModuleFor(path string) (Module, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Module{}, false
	}
	for _, m := range w.Modules {
		rel, err := filepath.Rel(m.Dir, abs)
		if err != nil {
			continue
		}
		if rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))) {
			return m, true
		}
	}
	return Module{}, false
}

// ModuleName returns the owning module's name, or "" when path is outside
// every module.
func (w *Workspace) ModuleName(path string) string {
	m, _ := w.ModuleFor(path)
	return m.Name
}

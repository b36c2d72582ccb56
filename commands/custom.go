package commands

import (
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/kballard/go-shellquote"

	"github.com/teranos/bufkit/errors"
)

// customFile is the on-disk shape of the custom commands file:
//
//	[[command]]
//	name = "breaking"
//	args = "breaking --against '.git#branch=main'"
//	error_prefix = "Breaking change detected"
type customFile struct {
	Command []customEntry `toml:"command"`
}

type customEntry struct {
	Name        string `toml:"name"`
	Description string `toml:"description"`
	Args        string `toml:"args"`
	ErrorPrefix string `toml:"error_prefix"`
	Busy        bool   `toml:"busy"`
}

// LoadCustomFile reads custom tool commands from a TOML file.
func LoadCustomFile(path string) ([]Command, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read custom commands file %s", path)
	}
	cmds, err := ParseCustom(string(data))
	if err != nil {
		return nil, errors.Wrapf(err, "in %s", path)
	}
	return cmds, nil
}

// ParseCustom decodes custom tool commands from TOML text. Each entry's args
// string is split with shell quoting rules.
func ParseCustom(text string) ([]Command, error) {
	var file customFile
	md, err := toml.Decode(text, &file)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode custom commands")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.NewInvalidRequestError("unknown keys in custom commands: %v", undecoded)
	}

	seen := make(map[string]bool, len(file.Command))
	cmds := make([]Command, 0, len(file.Command))
	for i, entry := range file.Command {
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			return nil, errors.NewInvalidRequestError("command #%d has no name", i+1)
		}
		if seen[name] {
			return nil, errors.NewConflictError("command %q is defined twice", name)
		}
		seen[name] = true

		args, err := shellquote.Split(entry.Args)
		if err != nil {
			return nil, errors.Wrapf(err, "command %q: invalid args", name)
		}
		if len(args) > 0 && args[0] == "buf" {
			args = args[1:]
		}
		if len(args) == 0 {
			return nil, errors.NewInvalidRequestError("command %q has no args", name)
		}

		prefix := entry.ErrorPrefix
		if prefix == "" {
			prefix = "Error running buf " + args[0]
		}
		desc := entry.Description
		if desc == "" {
			desc = "buf " + shellquote.Join(args...)
		}

		cmds = append(cmds, &ToolCommand{
			CommandName: name,
			Summary:     desc,
			Args:        args,
			ErrorPrefix: prefix,
			Busy:        entry.Busy,
		})
	}
	return cmds, nil
}

package logger

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

const (
	colorReset = "\x1b[0m"
	colorBold  = "\x1b[1m"
)

type palette struct {
	time      string
	component string
	key       string
	warn      string
	warnBg    string
	err       string
	errBg     string
}

var palettes = map[string]palette{
	// Everforest Dark
	"everforest": {
		time:      "\x1b[38;5;107m",
		component: "\x1b[38;5;208m",
		key:       "\x1b[38;5;109m",
		warn:      "\x1b[38;5;179m",
		warnBg:    "\x1b[48;5;58m",
		err:       "\x1b[38;5;167m",
		errBg:     "\x1b[48;5;52m",
	},
	// Gruvbox Dark
	"gruvbox": {
		time:      "\x1b[38;5;108m",
		component: "\x1b[38;5;214m",
		key:       "\x1b[38;5;109m",
		warn:      "\x1b[38;5;214m",
		warnBg:    "\x1b[48;5;58m",
		err:       "\x1b[38;5;167m",
		errBg:     "\x1b[48;5;88m",
	},
}

var currentTheme = "everforest"

// SetTheme configures the color scheme for console log output.
// Unknown themes are ignored.
func SetTheme(theme string) {
	if _, ok := palettes[theme]; ok {
		currentTheme = theme
	}
}

var bufferPool = buffer.NewPool()

// minimalEncoder renders one compact line per entry:
//
//	13:04:35  ERROR  commands  Error generating buf: exit status 1  command=generate
//
// Context fields added through With() and per-entry fields are all rendered
// as sorted key=value pairs; nothing is dropped.
type minimalEncoder struct {
	*zapcore.MapObjectEncoder
	color bool
}

func newMinimalEncoder(color bool) *minimalEncoder {
	return &minimalEncoder{
		MapObjectEncoder: zapcore.NewMapObjectEncoder(),
		color:            color,
	}
}

func (enc *minimalEncoder) Clone() zapcore.Encoder {
	clone := newMinimalEncoder(enc.color)
	for k, v := range enc.Fields {
		clone.Fields[k] = v
	}
	return clone
}

func (enc *minimalEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	p := palettes[currentTheme]
	line := bufferPool.Get()

	enc.paint(line, p.time, ent.Time.Format("15:04:05"))

	if ent.Level != zapcore.InfoLevel {
		line.AppendString("  ")
		enc.appendLevel(line, p, ent.Level)
	}

	if ent.LoggerName != "" {
		line.AppendString("  ")
		enc.paint(line, p.component, ent.LoggerName)
	}

	line.AppendString("  ")
	line.AppendString(ent.Message)

	all := zapcore.NewMapObjectEncoder()
	for k, v := range enc.Fields {
		all.Fields[k] = v
	}
	for _, f := range fields {
		f.AddTo(all)
	}

	if len(all.Fields) > 0 {
		keys := make([]string, 0, len(all.Fields))
		for k := range all.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			line.AppendString("  ")
			enc.paint(line, p.key, k)
			line.AppendString("=")
			line.AppendString(formatValue(all.Fields[k]))
		}
	}

	line.AppendString("\n")
	return line, nil
}

func (enc *minimalEncoder) paint(line *buffer.Buffer, color, text string) {
	if !enc.color {
		line.AppendString(text)
		return
	}
	line.AppendString(color)
	line.AppendString(text)
	line.AppendString(colorReset)
}

func (enc *minimalEncoder) appendLevel(line *buffer.Buffer, p palette, level zapcore.Level) {
	name := level.CapitalString()
	if !enc.color {
		line.AppendString(name)
		return
	}
	switch level {
	case zapcore.WarnLevel:
		line.AppendString(colorBold + p.warnBg + p.warn + name + colorReset)
	case zapcore.DebugLevel:
		line.AppendString(name)
	default:
		line.AppendString(colorBold + p.errBg + p.err + name + colorReset)
	}
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		if strings.ContainsAny(val, " \t\n") {
			return fmt.Sprintf("%q", val)
		}
		return val
	case []interface{}:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = formatValue(item)
		}
		return "[" + strings.Join(parts, ",") + "]"
	default:
		return fmt.Sprintf("%v", val)
	}
}

// Package logging builds the root logger. Logs go to stderr by default
// because stdout carries the MCP protocol or rendered PNG bytes.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// Name is the root logger's name; components derive named sub-loggers.
const Name = "texgen"

// Options configures New.
type Options struct {
	// Level is one of trace, debug, info, warn, error or off. Empty means info.
	Level string
	// Output defaults to os.Stderr.
	Output io.Writer
	// JSON switches to JSON lines.
	JSON bool
}

// ParseLevel validates a level name, case-insensitively.
func ParseLevel(name string) (hclog.Level, error) {
	if strings.TrimSpace(name) == "" {
		return hclog.Info, nil
	}
	level := hclog.LevelFromString(name)
	if level == hclog.NoLevel {
		return hclog.NoLevel, fmt.Errorf("unknown log level %q", name)
	}
	return level, nil
}

// New creates the root logger.
func New(opts Options) (hclog.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       Name,
		Output:     out,
		Level:      level,
		JSONFormat: opts.JSON,
	}), nil
}

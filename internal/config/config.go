// Package config loads unistore configuration from CUE.
//
// A config file is unified with the embedded #Config schema, so every
// field is optional and falls back to its default, and unknown fields are
// rejected. An example:
//
//	log: level: "debug"
//	journal: path: "/var/lib/unistore/journal.db"
//	engine: max_steps: 200
//	shell: {
//		center_view: "orders"
//		panels: chat: true
//	}
package config

import (
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/unistore/internal/shell"
)

//go:embed schema.cue
var schemaCUE string

// Config is the decoded configuration.
type Config struct {
	Log     LogConfig     `json:"log"`
	Journal JournalConfig `json:"journal"`
	Engine  EngineConfig  `json:"engine"`
	Shell   shell.State   `json:"shell"`
}

// LogConfig selects the slog level and handler.
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// JournalConfig locates the journal database.
type JournalConfig struct {
	Path string `json:"path"`
}

// EngineConfig tunes the dispatch engine.
type EngineConfig struct {
	MaxSteps int `json:"max_steps"`
}

// Default returns the configuration with every field at its default.
func Default() *Config {
	cfg, err := Parse("default.cue", nil)
	if err != nil {
		panic(fmt.Sprintf("config: embedded schema is invalid: %v", err))
	}
	return cfg
}

// Load reads and parses the CUE file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(path, data)
}

// Parse unifies src with the schema and decodes the result. name is used
// in error positions.
func Parse(name string, src []byte) (*Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	user := ctx.CompileBytes(src, cue.Filename(name))
	if err := user.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(user)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return nil, formatCUEError(err)
	}

	if cfg.Shell.Expanded == nil {
		cfg.Shell.Expanded = []string{}
	}
	slices.Sort(cfg.Shell.Expanded)
	if err := cfg.Shell.Validate(); err != nil {
		return nil, &Error{Field: "shell", Message: err.Error(), Pos: user.LookupPath(cue.ParsePath("shell")).Pos()}
	}
	return &cfg, nil
}

// Level maps Log.Level onto a slog level.
func (c *Config) Level() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger builds a logger writing to w at the configured level and format.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.Level()}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

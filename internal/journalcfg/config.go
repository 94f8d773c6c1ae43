// Package journalcfg is the on-disk, YAML-decoded configuration for an
// amcjournal server: the storage root, sealing thresholds, buffer depth,
// and drain deadline that internal/journal.Config needs to construct a
// Controller. Grounded on the teacher's config package: defaults are
// applied once, after decode, before anything is constructed. The file
// can be watched for changes with the same fsnotify Write/Create
// filtering the teacher's cert manager uses to pick up a rotated
// certificate, here driving live per-component log level reload instead.
package journalcfg

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Config is the declarative shape of a journal server's configuration
// file.
type Config struct {
	StorageRoot        string        `yaml:"storage_root"`
	MaxChunkBytes      int64         `yaml:"max_chunk_bytes"`
	MaxChunkAge        time.Duration `yaml:"max_chunk_age"`
	MaxBufferedChunks  int           `yaml:"max_buffered_chunks"`
	FinishDrainTimeout time.Duration `yaml:"finish_drain_timeout"`
	HTTPAddr           string        `yaml:"http_addr"`

	// LogLevels maps a component name (as logged under the "component"
	// attribute) to a minimum log level ("debug", "info", "warn", "error").
	// Reloaded live by Watch, so verbosity for one component can be raised
	// without restarting the server.
	LogLevels map[string]string `yaml:"log_levels"`
}

// WithDefaults returns a copy of c with zero-valued fields replaced by the
// server's defaults, mirroring internal/journal.Config.withDefaults so the
// two stay in lockstep without journalcfg importing journal.
func (c Config) WithDefaults() Config {
	if c.StorageRoot == "" {
		c.StorageRoot = "./amcjournal-data"
	}
	if c.MaxChunkBytes <= 0 {
		c.MaxChunkBytes = 64 * 1024
	}
	if c.MaxChunkAge <= 0 {
		c.MaxChunkAge = 5 * time.Second
	}
	if c.MaxBufferedChunks <= 0 {
		c.MaxBufferedChunks = 64
	}
	if c.FinishDrainTimeout <= 0 {
		c.FinishDrainTimeout = 10 * time.Second
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8089"
	}
	return c
}

// ParseLevel maps a config log level string to its slog.Level. An empty
// string is treated as "info", matching WithDefaults leaving the field
// unset.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("journalcfg: unknown log level %q", s)
	}
}

// Load reads and decodes a YAML config file at path, applying defaults to
// whatever the file left unset.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("journalcfg: read %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("journalcfg: decode %s: %w", path, err)
	}
	return c.WithDefaults(), nil
}

// Save encodes c back to path, for the few tools (not the server itself)
// that write configuration rather than only read it.
func Save(path string, c Config) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("journalcfg: encode: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("journalcfg: write %s: %w", path, err)
	}
	return nil
}

// Watch calls onChange every time path is rewritten on disk, decoding the
// new contents first. The returned io.Closer (the watcher itself) must be
// closed by the caller to stop watching.
func Watch(path string, onChange func(Config)) (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("journalcfg: new watcher: %w", err)
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return nil, fmt.Errorf("journalcfg: watch %s: %w", path, err)
	}

	go func() {
		for event := range w.Events {
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load(path)
			if err != nil {
				continue // a half-written file will settle; next event retries
			}
			onChange(cfg)
		}
	}()

	return w, nil
}

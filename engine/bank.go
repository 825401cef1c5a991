package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/meterbridge/jamdeck"
)

// Bank is a directory of presets, one .yml file each. It is a collaborator
// of the engine rather than part of it: the engine snapshots and restores,
// the bank persists. Reload re-walks the directory, which is how fsnotify
// driven hot reload works in the CLI.
type Bank struct {
	dir     string
	log     *zap.Logger
	presets []jamdeck.Preset
}

// LoadBank walks dir for preset files. Unreadable or invalid files are
// skipped with a warning, never fatal: one broken preset must not take the
// whole bank down. A missing directory yields an empty bank.
func LoadBank(dir string, log *zap.Logger) *Bank {
	if log == nil {
		log = zap.NewNop()
	}
	b := &Bank{dir: dir, log: log}
	b.Reload()
	return b
}

// Reload re-walks the directory, replacing the in-memory set.
func (b *Bank) Reload() {
	b.presets = b.presets[:0]
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			b.log.Warn("cannot read preset directory", zap.String("dir", b.dir), zap.Error(err))
		}
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yml" && ext != ".yaml" {
			continue
		}
		path := filepath.Join(b.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			b.log.Warn("skipping unreadable preset", zap.String("file", path), zap.Error(err))
			continue
		}
		var preset jamdeck.Preset
		if err := yaml.Unmarshal(data, &preset); err != nil {
			b.log.Warn("skipping invalid preset", zap.String("file", path), zap.Error(err))
			continue
		}
		if preset.Name == "" {
			preset.Name = strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		}
		b.presets = append(b.presets, preset)
	}
	sort.Slice(b.presets, func(i, j int) bool {
		return b.presets[i].Name < b.presets[j].Name
	})
	b.log.Debug("preset bank loaded", zap.String("dir", b.dir), zap.Int("count", len(b.presets)))
}

// Save writes the preset as <name>.yml into the bank directory, creating the
// directory if needed, and adds it to the in-memory set.
func (b *Bank) Save(preset jamdeck.Preset) error {
	if err := os.MkdirAll(b.dir, 0755); err != nil {
		return fmt.Errorf("creating preset directory: %w", err)
	}
	data, err := yaml.Marshal(&preset)
	if err != nil {
		return fmt.Errorf("marshaling preset %q: %w", preset.Name, err)
	}
	path := filepath.Join(b.dir, sanitizeFilename(preset.Name)+".yml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing preset %q: %w", preset.Name, err)
	}
	b.presets = append(b.presets, preset.Copy())
	sort.Slice(b.presets, func(i, j int) bool {
		return b.presets[i].Name < b.presets[j].Name
	})
	b.log.Debug("preset written", zap.String("file", path))
	return nil
}

// Find returns the first preset with the given name.
func (b *Bank) Find(name string) (jamdeck.Preset, bool) {
	for i := range b.presets {
		if b.presets[i].Name == name {
			return b.presets[i].Copy(), true
		}
	}
	return jamdeck.Preset{}, false
}

// Names lists the preset names in sorted order.
func (b *Bank) Names() []string {
	names := make([]string, len(b.presets))
	for i := range b.presets {
		names[i] = b.presets[i].Name
	}
	return names
}

// Len returns the number of loaded presets.
func (b *Bank) Len() int { return len(b.presets) }

// Dir returns the directory the bank persists into.
func (b *Bank) Dir() string { return b.dir }

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9_ .-]`)

// sanitizeFilename keeps preset names from escaping the bank directory or
// tripping the filesystem.
func sanitizeFilename(name string) string {
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, ". ")
	if name == "" {
		name = "preset"
	}
	return name
}

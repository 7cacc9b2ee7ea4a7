package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/venkat7568/tradego/scheduler"
)

// FileSettings reads scheduler settings from a JSON file. The file is
// re-read only when its mtime changes, so the per-cycle poll is cheap.
// Operators flip trading_enabled or tune limits without a restart.
type FileSettings struct {
	path string

	mu      sync.Mutex
	cached  scheduler.Settings
	modTime time.Time
	loaded  bool
}

func NewFileSettings(path string) *FileSettings {
	return &FileSettings{path: path}
}

func (f *FileSettings) Load(context.Context) (scheduler.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	info, err := os.Stat(f.path)
	if err != nil {
		return scheduler.Settings{}, fmt.Errorf("stat settings: %w", err)
	}
	if f.loaded && info.ModTime().Equal(f.modTime) {
		return f.cached, nil
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return scheduler.Settings{}, fmt.Errorf("read settings: %w", err)
	}

	var settings scheduler.Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return scheduler.Settings{}, fmt.Errorf("parse settings: %w", err)
	}
	if err := settings.Limits.Validate(); err != nil {
		return scheduler.Settings{}, fmt.Errorf("settings limits: %w", err)
	}

	f.cached = settings
	f.modTime = info.ModTime()
	f.loaded = true
	return settings, nil
}

// WriteDefault creates a settings file with trading disabled and default
// limits, if one does not already exist.
func WriteDefault(path string, settings scheduler.Settings) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

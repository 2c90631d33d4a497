package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/teamsites/pkg/observability"
)

// FileConfig holds the settings that can change without a restart
type FileConfig struct {
	ReservedSubdomains []string `yaml:"reserved_subdomains"`
	AllowedOrigins     []string `yaml:"allowed_origins"`
}

// LoadFile reads and parses a YAML config file
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &cfg, nil
}

// Watcher reloads a YAML config file when it changes on disk
type Watcher struct {
	path     string
	logger   *observability.Logger
	onChange func(*FileConfig)
}

// NewWatcher creates a watcher that calls onChange with every successfully
// parsed version of the file.
func NewWatcher(path string, logger *observability.Logger, onChange func(*FileConfig)) *Watcher {
	return &Watcher{path: path, logger: logger, onChange: onChange}
}

// Run watches until ctx is done. The parent directory is watched so that
// editors which replace the file by rename are picked up.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.path, err)
	}

	target := filepath.Clean(w.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.WithError(err).Warn("Config watcher error")
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := LoadFile(w.path)
	if err != nil {
		// Keep the previous settings; a half-written file parses again on the next event.
		w.logger.WithError(err).Warn("Ignoring invalid config file")
		return
	}
	w.logger.WithField("path", w.path).Info("Config file reloaded")
	w.onChange(cfg)
}

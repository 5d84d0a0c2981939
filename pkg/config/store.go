package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const mainConfigFile = "prowl.yaml"

// Store persists small key/value settings to a YAML file, with optional
// per-plugin configuration files alongside it.
type Store struct {
	dir        string
	mainFile   string
	pluginDir  string
	log        *logrus.Logger

	mu      sync.RWMutex
	values  map[string]any
	watcher *fsnotify.Watcher
}

// NewStore opens (or creates) the configuration directory and loads the
// main file. A corrupt or missing file yields an empty store, not an error.
func NewStore(dir string, log *logrus.Logger) (*Store, error) {
	if log == nil {
		log = logrus.New()
	}

	s := &Store{
		dir:       dir,
		mainFile:  filepath.Join(dir, mainConfigFile),
		pluginDir: filepath.Join(dir, "plugins"),
		log:       log,
		values:    make(map[string]any),
	}

	if err := os.MkdirAll(s.pluginDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	s.reload()
	return s, nil
}

// Get returns the value for key, or defaultValue when absent.
func (s *Store) Get(key string, defaultValue any) any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if v, ok := s.values[key]; ok {
		return v
	}
	return defaultValue
}

// GetString is Get with a string coercion.
func (s *Store) GetString(key, defaultValue string) string {
	if v, ok := s.Get(key, defaultValue).(string); ok {
		return v
	}
	return defaultValue
}

// Set stores a value and writes the file through immediately.
func (s *Store) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return s.save()
}

// Delete removes a key and writes the file through.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return s.save()
}

// PluginConfig loads the per-plugin YAML file for name. A missing file
// yields an empty map.
func (s *Store) PluginConfig(name string) map[string]any {
	data, err := os.ReadFile(filepath.Join(s.pluginDir, name+".yaml"))
	if err != nil {
		return map[string]any{}
	}

	cfg := make(map[string]any)
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		s.log.WithError(err).WithField("plugin", name).Warn("Ignoring malformed plugin config")
		return map[string]any{}
	}
	return cfg
}

// SetPluginConfig writes the per-plugin YAML file for name.
func (s *Store) SetPluginConfig(name string, cfg map[string]any) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode plugin config: %w", err)
	}
	return os.WriteFile(filepath.Join(s.pluginDir, name+".yaml"), data, 0o644)
}

// Watch reloads the main file when it is written by another process. Close
// stops the watcher.
func (s *Store) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch config directory: %w", err)
	}

	s.mu.Lock()
	s.watcher = watcher
	s.mu.Unlock()

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 &&
					strings.HasSuffix(event.Name, mainConfigFile) {
					s.mu.Lock()
					s.reloadLocked()
					s.mu.Unlock()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.log.WithError(err).Warn("Config watcher error")
			}
		}
	}()

	return nil
}

// Close stops the file watcher, if started.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watcher != nil {
		err := s.watcher.Close()
		s.watcher = nil
		return err
	}
	return nil
}

func (s *Store) reload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reloadLocked()
}

func (s *Store) reloadLocked() {
	data, err := os.ReadFile(s.mainFile)
	if err != nil {
		return
	}

	values := make(map[string]any)
	if err := yaml.Unmarshal(data, &values); err != nil {
		s.log.WithError(err).Warn("Ignoring malformed config file")
		return
	}
	s.values = values
}

// save writes the current values. Callers hold the write lock.
func (s *Store) save() error {
	data, err := yaml.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(s.mainFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"tamperscan/internal/timeline"
)

// Load reads, env-overrides, and validates a TOML configuration file.
// Keys absent from the file keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides applies TAMPERSCAN_* environment overrides on top
// of the file values.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("TAMPERSCAN_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("TAMPERSCAN_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("TAMPERSCAN_DB_PATH"); v != "" {
		c.Storage.DatabasePath = v
	}
}

// Loader loads a configuration file and optionally hot-reloads it when
// the file changes on disk.
type Loader struct {
	path     string
	config   *Config
	mu       sync.RWMutex
	watcher  *fsnotify.Watcher
	onChange []func(*Config)
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewLoader creates a loader for path.
func NewLoader(path string) *Loader {
	ctx, cancel := context.WithCancel(context.Background())
	return &Loader{path: path, ctx: ctx, cancel: cancel}
}

// Load reads and validates the configuration file.
func (l *Loader) Load() (*Config, error) {
	cfg, err := Load(l.path)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.config = cfg
	l.mu.Unlock()
	return cfg, nil
}

// Config returns the most recently loaded configuration.
func (l *Loader) Config() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config
}

// OnChange registers a callback invoked after each successful reload.
func (l *Loader) OnChange(fn func(*Config)) {
	l.mu.Lock()
	l.onChange = append(l.onChange, fn)
	l.mu.Unlock()
}

// Watch starts watching the configuration file for changes. Reload
// failures keep the previous configuration.
func (l *Loader) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// Watch the directory: editors replace the file rather than write
	// in place.
	if err := watcher.Add(filepath.Dir(l.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}
	l.watcher = watcher
	go l.watchLoop()
	return nil
}

func (l *Loader) watchLoop() {
	var debounce *time.Timer
	const debounceDelay = 100 * time.Millisecond

	for {
		select {
		case <-l.ctx.Done():
			return

		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(l.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, l.reload)

		case _, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (l *Loader) reload() {
	cfg, err := Load(l.path)
	if err != nil {
		return
	}
	l.mu.Lock()
	l.config = cfg
	callbacks := make([]func(*Config), len(l.onChange))
	copy(callbacks, l.onChange)
	l.mu.Unlock()

	for _, fn := range callbacks {
		fn(cfg)
	}
}

// Close stops watching.
func (l *Loader) Close() error {
	l.cancel()
	if l.watcher != nil {
		return l.watcher.Close()
	}
	return nil
}

// actorRegistryFile is the YAML shape of an authorized-actor registry:
//
//	artifacts:
//	  doc-001: [alice, bob]
type actorRegistryFile struct {
	Artifacts map[string][]string `yaml:"artifacts"`
}

// LoadActorRegistry parses a YAML authorized-actor registry into the
// lookup the timeline rules consume.
func LoadActorRegistry(path string) (timeline.AuthorizedActors, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read actor registry: %w", err)
	}
	var file actorRegistryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse actor registry %s: %w", path, err)
	}

	byArtifact := make(map[string]map[string]bool, len(file.Artifacts))
	for artifact, actors := range file.Artifacts {
		set := make(map[string]bool, len(actors))
		for _, a := range actors {
			set[a] = true
		}
		byArtifact[artifact] = set
	}
	return func(artifactID string) map[string]bool {
		return byArtifact[artifactID]
	}, nil
}

// templateAllowListFile is the YAML shape of a template allow-list:
//
//	templates:
//	  - 3b4f...
type templateAllowListFile struct {
	Templates []string `yaml:"templates"`
}

// LoadTemplateAllowList parses a YAML list of structural hashes to
// exclude from template-fraud detection.
func LoadTemplateAllowList(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template allow-list: %w", err)
	}
	var file templateAllowListFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse template allow-list %s: %w", path, err)
	}
	return file.Templates, nil
}

package testsystem

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const manifestFilename = "manifest.yaml"

// Registry holds discovered test systems indexed by name.
type Registry struct {
	systems map[string]*TestSystem
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		systems: make(map[string]*TestSystem),
	}
}

// Get retrieves a test system by name.
func (r *Registry) Get(name string) (*TestSystem, bool) {
	ts, ok := r.systems[name]
	return ts, ok
}

// All returns all registered test systems.
func (r *Registry) All() map[string]*TestSystem {
	return r.systems
}

// Add registers a test system.
func (r *Registry) Add(ts *TestSystem) error {
	if _, exists := r.systems[ts.Name]; exists {
		return fmt.Errorf("test system %q already registered", ts.Name)
	}
	r.systems[ts.Name] = ts
	return nil
}

// Discover scans dir for directories holding a manifest.yaml and validates
// each. Invalid manifests are logged and skipped; duplicate names keep the
// first discovered system.
func Discover(dir string, logger func(level, msg string, args ...any)) (*Registry, error) {
	if logger == nil {
		logger = func(level, msg string, args ...any) {}
	}
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("test systems directory is required")
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve test systems directory %q: %w", dir, err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("test systems directory does not exist: %s", absDir)
		}
		return nil, fmt.Errorf("stat test systems directory %s: %w", absDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("test systems path is not a directory: %s", absDir)
	}

	registry := NewRegistry()
	err = filepath.WalkDir(absDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || d.Name() != manifestFilename {
			return nil
		}

		systemDir := filepath.Dir(path)
		ts, err := load(systemDir)
		if err != nil {
			logger("warn", "failed to load test system", "path", systemDir, "error", err.Error())
			return nil
		}

		if err := registry.Add(ts); err != nil {
			if existing, ok := registry.Get(ts.Name); ok {
				logger("warn", "duplicate test system ignored (keeping first discovered)",
					"name", ts.Name, "ignored_path", ts.Path, "kept_path", existing.Path)
			}
			return nil
		}

		logger("info", "loaded test system", "name", ts.Name, "path", ts.Path, "version", ts.Version)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan test systems directory %s: %w", absDir, err)
	}

	return registry, nil
}

func load(dir string) (*TestSystem, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFilename))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse manifest YAML: %w", err)
	}
	if err := validateManifest(&manifest); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}

	command := resolveCommand(manifest.Command, dir)
	if strings.ContainsRune(command[0], filepath.Separator) {
		info, err := os.Stat(command[0])
		if err != nil {
			return nil, fmt.Errorf("executable %q not found: %w", command[0], err)
		}
		if info.Mode()&0o111 == 0 {
			return nil, fmt.Errorf("executable %q is not executable", command[0])
		}
	}

	return &TestSystem{
		Name:        strings.TrimSpace(manifest.Name),
		Path:        dir,
		Version:     manifest.Version,
		Description: manifest.Description,
		Command:     command,
	}, nil
}

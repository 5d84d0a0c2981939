package target

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const metadataFile = "metadata.yaml"

// categoryDirs are the fixed artifact subdirectories created per target.
var categoryDirs = []string{"recon", "scan", "exploit", "report"}

var (
	// ErrTargetExists is returned when adding a target that already has a workspace
	ErrTargetExists = errors.New("target already exists")

	// ErrTargetNotFound is returned when a target has no workspace
	ErrTargetNotFound = errors.New("target not found")
)

// Metadata is the persisted record for a target.
type Metadata struct {
	Domain string    `yaml:"domain"`
	Added  time.Time `yaml:"added"`
	Notes  string    `yaml:"notes"`
	Scope  []string  `yaml:"scope"`
}

// Workspace manages target directories under a data root.
type Workspace struct {
	root string
}

// NewWorkspace creates a workspace rooted at dir (typically "data/targets").
func NewWorkspace(dir string) (*Workspace, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create targets directory: %w", err)
	}
	return &Workspace{root: dir}, nil
}

// Root returns the workspace root directory.
func (w *Workspace) Root() string { return w.root }

// Add creates the directory tree and metadata record for a new target.
func (w *Workspace) Add(domain string) error {
	if domain == "" {
		return errors.New("target domain cannot be empty")
	}

	dir := filepath.Join(w.root, domain)
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("%w: %s", ErrTargetExists, domain)
	}

	for _, category := range categoryDirs {
		if err := os.MkdirAll(filepath.Join(dir, category), 0o755); err != nil {
			return fmt.Errorf("failed to create target directory: %w", err)
		}
	}

	return w.SaveMetadata(domain, &Metadata{
		Domain: domain,
		Added:  time.Now().UTC(),
		Scope:  []string{},
	})
}

// List returns the domains that have a workspace directory.
func (w *Workspace) List() ([]string, error) {
	entries, err := os.ReadDir(w.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read targets directory: %w", err)
	}

	var targets []string
	for _, entry := range entries {
		if entry.IsDir() {
			targets = append(targets, entry.Name())
		}
	}
	return targets, nil
}

// Exists reports whether a target has a workspace.
func (w *Workspace) Exists(domain string) bool {
	info, err := os.Stat(filepath.Join(w.root, domain))
	return err == nil && info.IsDir()
}

// Metadata loads a target's metadata record.
func (w *Workspace) Metadata(domain string) (*Metadata, error) {
	data, err := os.ReadFile(filepath.Join(w.root, domain, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrTargetNotFound, domain)
		}
		return nil, fmt.Errorf("failed to read target metadata: %w", err)
	}

	var meta Metadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse target metadata: %w", err)
	}
	return &meta, nil
}

// SaveMetadata writes a target's metadata record.
func (w *Workspace) SaveMetadata(domain string, meta *Metadata) error {
	data, err := yaml.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to encode target metadata: %w", err)
	}
	return os.WriteFile(filepath.Join(w.root, domain, metadataFile), data, 0o644)
}

// ArtifactDir returns (creating if needed) the artifact directory for a
// target and plugin category.
func (w *Workspace) ArtifactDir(domain, category string) (string, error) {
	if !w.Exists(domain) {
		return "", fmt.Errorf("%w: %s", ErrTargetNotFound, domain)
	}

	dir := filepath.Join(w.root, domain, category)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create artifact directory: %w", err)
	}
	return dir, nil
}

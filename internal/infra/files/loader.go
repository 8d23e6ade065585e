// Package files loads scenario definitions authored as YAML or JSON files.
package files

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync"

	"go.uber.org/zap"
	"scenario-solver-service/internal/domain"
)

//go:embed samples/*.yaml
var samples embed.FS

// Samples returns the bundled example scenarios.
func Samples() fs.FS {
	sub, err := fs.Sub(samples, "samples")
	if err != nil {
		panic(err)
	}
	return sub
}

// ParseFile decodes a definition, picking the format from the file extension.
func ParseFile(name string, data []byte) (domain.ScenarioDefinition, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		return domain.ParseDefinitionYAML(data)
	case ".json":
		return domain.ParseDefinitionJSON(data)
	default:
		return domain.ScenarioDefinition{}, fmt.Errorf("unsupported scenario file %q", name)
	}
}

// ReadFile reads and parses one definition from the local file system.
func ReadFile(name string) (domain.ScenarioDefinition, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return domain.ScenarioDefinition{}, err
	}
	return ParseFile(name, data)
}

// Loader serves definitions from a file tree. Files are indexed by the id
// inside them on first use; each load re-reads the file so edits show up
// once the scenario cache expires.
type Loader struct {
	fsys   fs.FS
	logger *zap.Logger

	mu      sync.Mutex
	indexed bool
	paths   map[string]string
	broken  map[string]error
}

func NewLoader(fsys fs.FS, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{fsys: fsys, logger: logger.Named("files")}
}

// NewDirLoader reads definitions below dir.
func NewDirLoader(dir string, logger *zap.Logger) *Loader {
	return NewLoader(os.DirFS(dir), logger)
}

func (l *Loader) LoadDefinition(_ context.Context, scenarioID string) (domain.ScenarioDefinition, error) {
	if err := l.index(); err != nil {
		return domain.ScenarioDefinition{}, err
	}
	l.mu.Lock()
	name, ok := l.paths[scenarioID]
	brokenErr := l.broken[scenarioID]
	l.mu.Unlock()

	if brokenErr != nil {
		return domain.ScenarioDefinition{}, brokenErr
	}
	if !ok {
		return domain.ScenarioDefinition{}, domain.ErrScenarioNotFound
	}
	def, err := l.read(name)
	if err != nil {
		return domain.ScenarioDefinition{}, err
	}
	if def.ID != scenarioID {
		// The file was edited to carry another id; force a re-index next time.
		l.Reset()
		return domain.ScenarioDefinition{}, domain.ErrScenarioNotFound
	}
	return def, nil
}

// LoadAll parses every definition in the tree, stopping at the first error.
func (l *Loader) LoadAll() ([]domain.ScenarioDefinition, error) {
	names, err := l.names()
	if err != nil {
		return nil, err
	}
	defs := make([]domain.ScenarioDefinition, 0, len(names))
	for _, name := range names {
		def, err := l.read(name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// Reset drops the id index so the next load rescans the tree.
func (l *Loader) Reset() {
	l.mu.Lock()
	l.indexed = false
	l.mu.Unlock()
}

func (l *Loader) index() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.indexed {
		return nil
	}

	names, err := l.names()
	if err != nil {
		return err
	}
	paths := make(map[string]string, len(names))
	broken := make(map[string]error)
	for _, name := range names {
		def, err := l.read(name)
		if err != nil {
			id := stem(name)
			var malformed *domain.MalformedDefinitionError
			if errors.As(err, &malformed) && malformed.ScenarioID != "" {
				id = malformed.ScenarioID
			}
			l.logger.Warn("Skipping unreadable scenario file", zap.String("file", name), zap.Error(err))
			broken[id] = fmt.Errorf("%s: %w", name, err)
			continue
		}
		if prev, dup := paths[def.ID]; dup {
			return fmt.Errorf("scenario %q defined in both %s and %s", def.ID, prev, name)
		}
		paths[def.ID] = name
	}

	l.paths = paths
	l.broken = broken
	l.indexed = true
	l.logger.Debug("Indexed scenario files", zap.Int("scenarios", len(paths)), zap.Int("broken", len(broken)))
	return nil
}

func (l *Loader) names() ([]string, error) {
	var names []string
	err := fs.WalkDir(l.fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(path.Ext(name)) {
		case ".yaml", ".yml", ".json":
			names = append(names, name)
		}
		return nil
	})
	return names, err
}

func (l *Loader) read(name string) (domain.ScenarioDefinition, error) {
	data, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		return domain.ScenarioDefinition{}, err
	}
	return ParseFile(name, data)
}

func stem(name string) string {
	base := path.Base(name)
	return strings.TrimSuffix(base, path.Ext(base))
}

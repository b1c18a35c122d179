package preset

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"clipforge/internal/logging"
	"clipforge/internal/services"
)

// Store namespaces. System is read-only through the store API.
const (
	NamespaceSystem   = "system"
	NamespaceUser     = "user"
	NamespaceImported = "imported"
)

const fileSuffix = ".preset.json"

var namespaces = []string{NamespaceSystem, NamespaceUser, NamespaceImported}

// Store persists presets as one JSON document per preset under
// <root>/<namespace>/. It keeps an in-memory cache keyed namespace/name;
// the cache is never invalidated by external file changes, so the store
// assumes it is the only writer for the life of a run.
type Store struct {
	root   string
	logger *slog.Logger

	mu    sync.RWMutex
	cache map[string]*Preset

	now func() time.Time
}

// NewStore creates the namespace directories and idempotently seeds the
// system namespace from the built-in templates. Existing system files are
// never overwritten.
func NewStore(root string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Store{
		root:   root,
		logger: logging.NewComponentLogger(logger, "preset-store"),
		cache:  make(map[string]*Preset),
		now:    time.Now,
	}
	for _, ns := range namespaces {
		if err := os.MkdirAll(filepath.Join(root, ns), 0o755); err != nil {
			return nil, fmt.Errorf("create preset namespace %s: %w", ns, err)
		}
	}
	if err := s.seedSystem(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) seedSystem() error {
	seeded := 0
	for _, tpl := range SystemTemplates() {
		path, err := s.pathFor(tpl.Name, NamespaceSystem)
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil {
			continue
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("stat system preset: %w", err)
		}
		tpl.CreatedAt = s.now().UTC()
		tpl.ModifiedAt = tpl.CreatedAt
		if err := s.writeFile(tpl, path); err != nil {
			return fmt.Errorf("seed system preset %q: %w", tpl.Name, err)
		}
		seeded++
	}
	if seeded > 0 {
		s.logger.Info("seeded system presets",
			logging.String(logging.FieldEventType, "preset_system_seeded"),
			logging.Int("count", seeded))
	}
	return nil
}

// SanitizeName strips characters outside [A-Za-z0-9 _-] from a preset name
// for use as a filename stem.
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

func validNamespace(ns string) bool {
	switch ns {
	case NamespaceSystem, NamespaceUser, NamespaceImported:
		return true
	}
	return false
}

func (s *Store) pathFor(name, namespace string) (string, error) {
	if !validNamespace(namespace) {
		return "", services.Wrap(services.ErrValidation, "preset-store", "path",
			fmt.Sprintf("unknown namespace %q", namespace), nil)
	}
	stem := SanitizeName(name)
	if stem == "" {
		return "", services.Wrap(services.ErrValidation, "preset-store", "path",
			fmt.Sprintf("preset name %q sanitizes to nothing", name), nil)
	}
	return filepath.Join(s.root, namespace, stem+fileSuffix), nil
}

func cacheKey(namespace, name string) string { return namespace + "/" + SanitizeName(name) }

// Save writes the preset into the namespace, overwriting any existing file
// of the same name. Saving into the system namespace is refused.
func (s *Store) Save(p *Preset, namespace string) error {
	if namespace == NamespaceSystem {
		return services.Wrap(services.ErrValidation, "preset-store", "save", "system presets are read-only", nil)
	}
	return s.save(p, namespace, true)
}

// SaveUnique writes the preset without overwriting: on a name collision the
// stored name gains a timestamp suffix. It returns the name actually stored.
func (s *Store) SaveUnique(p *Preset, namespace string) (string, error) {
	if namespace == NamespaceSystem {
		return "", services.Wrap(services.ErrValidation, "preset-store", "save", "system presets are read-only", nil)
	}
	path, err := s.pathFor(p.Name, namespace)
	if err != nil {
		return "", err
	}
	if _, statErr := os.Stat(path); statErr == nil {
		stamped := p.Clone()
		stamped.Name = fmt.Sprintf("%s %s", p.Name, s.now().Format("20060102-150405"))
		if err := s.save(stamped, namespace, true); err != nil {
			return "", err
		}
		return stamped.Name, nil
	} else if !errors.Is(statErr, fs.ErrNotExist) {
		return "", fmt.Errorf("stat preset file: %w", statErr)
	}
	if err := s.save(p, namespace, true); err != nil {
		return "", err
	}
	return p.Name, nil
}

func (s *Store) save(p *Preset, namespace string, overwrite bool) error {
	path, err := s.pathFor(p.Name, namespace)
	if err != nil {
		return err
	}
	stored := p.Clone()
	stored.upgrade()
	now := s.now().UTC()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.ModifiedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeFile(stored, path); err != nil {
		return err
	}
	s.cache[cacheKey(namespace, stored.Name)] = stored
	s.logger.Debug("saved preset",
		logging.String("name", stored.Name),
		logging.String("namespace", namespace),
		logging.Int("operations", len(stored.Operations)))
	return nil
}

func (s *Store) writeFile(p *Preset, path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal preset: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Load returns the named preset from the namespace. Documents with schema
// version 1.0 load with 2.0 fields filled from defaults.
func (s *Store) Load(name, namespace string) (*Preset, error) {
	key := cacheKey(namespace, name)

	s.mu.RLock()
	if cached, ok := s.cache[key]; ok {
		s.mu.RUnlock()
		return cached.Clone(), nil
	}
	s.mu.RUnlock()

	path, err := s.pathFor(name, namespace)
	if err != nil {
		return nil, err
	}
	p, err := readFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "preset-store", "load",
				fmt.Sprintf("preset %q not found in %s", name, namespace), nil)
		}
		return nil, err
	}

	s.mu.Lock()
	s.cache[key] = p
	s.mu.Unlock()
	return p.Clone(), nil
}

func readFile(path string) (*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p Preset
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse preset file %s: %w", filepath.Base(path), err)
	}
	p.upgrade()
	return &p, nil
}

// List returns summaries from the given namespace, or from all namespaces
// when namespace is empty, sorted by namespace then name.
func (s *Store) List(namespace string) ([]Summary, error) {
	var targets []string
	if namespace == "" {
		targets = namespaces
	} else {
		if !validNamespace(namespace) {
			return nil, services.Wrap(services.ErrValidation, "preset-store", "list",
				fmt.Sprintf("unknown namespace %q", namespace), nil)
		}
		targets = []string{namespace}
	}

	var out []Summary
	for _, ns := range targets {
		entries, err := os.ReadDir(filepath.Join(s.root, ns))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read namespace %s: %w", ns, err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileSuffix) {
				continue
			}
			p, err := readFile(filepath.Join(s.root, ns, entry.Name()))
			if err != nil {
				s.logger.Warn("skipping unreadable preset file",
					logging.String("file", entry.Name()),
					logging.String("namespace", ns),
					logging.Error(err))
				continue
			}
			out = append(out, Summary{
				Name:           p.Name,
				Namespace:      ns,
				Description:    p.Description,
				Author:         p.Author,
				Category:       p.Category,
				OperationCount: len(p.Operations),
				ModifiedAt:     p.ModifiedAt,
				Tags:           p.Tags,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Namespace != out[j].Namespace {
			return out[i].Namespace < out[j].Namespace
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Delete removes a preset. System presets are refused.
func (s *Store) Delete(name, namespace string) error {
	if namespace == NamespaceSystem {
		return services.Wrap(services.ErrValidation, "preset-store", "delete", "system presets cannot be deleted", nil)
	}
	path, err := s.pathFor(name, namespace)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return services.Wrap(services.ErrNotFound, "preset-store", "delete",
				fmt.Sprintf("preset %q not found in %s", name, namespace), nil)
		}
		return fmt.Errorf("delete preset file: %w", err)
	}
	delete(s.cache, cacheKey(namespace, name))
	s.logger.Debug("deleted preset",
		logging.String("name", name),
		logging.String("namespace", namespace))
	return nil
}

// Duplicate copies an existing preset under a new name. Duplicates of system
// presets land in the user namespace; everything else stays in place.
func (s *Store) Duplicate(name, namespace, newName string) error {
	src, err := s.Load(name, namespace)
	if err != nil {
		return err
	}
	target := namespace
	if namespace == NamespaceSystem {
		target = NamespaceUser
	}
	dup := src.Clone()
	dup.Name = newName
	dup.CreatedAt = time.Time{}
	dup.Author = DefaultAuthor
	return s.Save(dup, target)
}

// Move relocates a preset between namespaces. Moves touching the system
// namespace on either end are refused.
func (s *Store) Move(name, fromNS, toNS string) error {
	if fromNS == NamespaceSystem || toNS == NamespaceSystem {
		return services.Wrap(services.ErrValidation, "preset-store", "move", "system presets cannot be moved", nil)
	}
	p, err := s.Load(name, fromNS)
	if err != nil {
		return err
	}
	if err := s.Save(p, toNS); err != nil {
		return err
	}
	return s.Delete(name, fromNS)
}

// ExportToFile writes the named preset as standalone JSON at path.
func (s *Store) ExportToFile(name, namespace, path string) error {
	p, err := s.Load(name, namespace)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal preset: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	return nil
}

// ImportFromFile reads a preset document and stores it in the namespace
// without overwriting: collisions get a timestamp suffix. Returns the stored
// name.
func (s *Store) ImportFromFile(path, namespace string) (string, error) {
	p, err := readFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", services.Wrap(services.ErrNotFound, "preset-store", "import",
				fmt.Sprintf("no preset file at %s", path), nil)
		}
		return "", err
	}
	if strings.TrimSpace(p.Name) == "" {
		return "", services.Wrap(services.ErrValidation, "preset-store", "import", "imported preset has no name", nil)
	}
	return s.SaveUnique(p, namespace)
}

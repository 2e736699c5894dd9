package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/artyomia/marketingganttai/internal/model"
)

// DefaultYAMLPath is used when no store path is configured.
const DefaultYAMLPath = "~/.marketingganttai/tasks.yaml"

// yamlFile is the document layout on disk.
type yamlFile struct {
	Tasks []Record `yaml:"tasks"`
}

// YAMLStore keeps every record in a single YAML document.
type YAMLStore struct {
	path string
	mu   sync.RWMutex
	now  func() time.Time
}

// NewYAMLStore opens the document at path, creating its directory if needed.
// The file itself is created on the first write.
func NewYAMLStore(path string) (*YAMLStore, error) {
	if path == "" {
		path = DefaultYAMLPath
	}
	path, err := expandHome(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &YAMLStore{path: path, now: time.Now}, nil
}

// Path returns the resolved file location.
func (s *YAMLStore) Path() string {
	return s.path
}

// List returns all tasks ordered by creation time.
func (s *YAMLStore) List(ctx context.Context) ([]model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		return createdAt(records[i]).Before(createdAt(records[j]))
	})
	return Tasks(records), nil
}

// Create appends a record with a fresh id.
func (s *YAMLStore) Create(ctx context.Context, draft Draft) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return model.Task{}, err
	}

	r := NewRecord(draft)
	r.ID = uuid.NewString()
	created := s.now().UTC()
	r.CreatedAt = &created

	records = append(records, r)
	if err := s.save(records); err != nil {
		return model.Task{}, err
	}
	return r.Task(), nil
}

// Update replaces the record with task.ID, keeping its creation time.
func (s *YAMLStore) Update(ctx context.Context, task model.Task) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return model.Task{}, err
	}

	for i, existing := range records {
		if existing.ID != task.ID {
			continue
		}
		r := RecordOf(task)
		r.CreatedAt = existing.CreatedAt
		records[i] = r
		if err := s.save(records); err != nil {
			return model.Task{}, err
		}
		return r.Task(), nil
	}
	return model.Task{}, fmt.Errorf("%w: %s", ErrNotFound, task.ID)
}

// Delete removes the record with id.
func (s *YAMLStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}

	kept := make([]Record, 0, len(records))
	found := false
	for _, r := range records {
		if r.ID == id {
			found = true
			continue
		}
		kept = append(kept, r)
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.save(kept)
}

// Close is a no-op; every write is flushed immediately.
func (s *YAMLStore) Close() error {
	return nil
}

// load reads the document. A missing or empty file is an empty table.
func (s *YAMLStore) load() ([]Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Record{}, nil
		}
		return nil, fmt.Errorf("failed to read task file: %w", err)
	}
	if len(data) == 0 {
		return []Record{}, nil
	}

	var doc yamlFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse task file %s: %w", s.path, err)
	}
	return doc.Tasks, nil
}

// save writes the document through a temp file and rename.
func (s *YAMLStore) save(records []Record) error {
	data, err := yaml.Marshal(yamlFile{Tasks: records})
	if err != nil {
		return fmt.Errorf("failed to encode task file: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write task file: %w", err)
	}
	return os.Rename(tmpPath, s.path)
}

func createdAt(r Record) time.Time {
	if r.CreatedAt == nil {
		return time.Time{}
	}
	return *r.CreatedAt
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}

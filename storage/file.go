package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/ellevenagent/project-dashboard/domain"
)

// DefaultFilePath is where the fallback backend keeps the board when
// TASKS_FILE is not set.
const DefaultFilePath = "tasks.json"

// fileDoc is the on-disk shape: the whole collection as one document.
// nextId persists so ids survive deletes and restarts without reuse.
type fileDoc struct {
	NextID int64         `json:"nextId"`
	Tasks  []domain.Task `json:"tasks"`
}

// FileStore is the local fallback backend. All document access is
// serialized under the mutex; List returns tasks in document order, which
// differs from the postgres ordering and is a known wrinkle of the system,
// not a contract.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore uses the given path, or DefaultFilePath when empty.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultFilePath
	}
	return &FileStore{path: path}
}

func (s *FileStore) Kind() string { return KindFile }

func (s *FileStore) load() (fileDoc, error) {
	doc := fileDoc{NextID: 1, Tasks: []domain.Task{}}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return doc, fmt.Errorf("read %s: %w", s.path, err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("parse %s: %w", s.path, err)
	}
	if doc.NextID < 1 {
		doc.NextID = 1
	}
	for _, t := range doc.Tasks {
		if t.ID >= doc.NextID {
			doc.NextID = t.ID + 1
		}
	}
	if doc.Tasks == nil {
		doc.Tasks = []domain.Task{}
	}
	return doc, nil
}

func (s *FileStore) save(doc fileDoc) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.path, err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

func (s *FileStore) List(ctx context.Context) ([]domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return doc.Tasks, nil
}

func (s *FileStore) Upsert(ctx context.Context, patch domain.TaskPatch) (domain.Task, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return domain.Task{}, false, err
	}

	if patch.IsUpdate() {
		for i := range doc.Tasks {
			if doc.Tasks[i].ID != patch.ID {
				continue
			}
			patch.Apply(&doc.Tasks[i], domain.NextTimestamp())
			if err := s.save(doc); err != nil {
				return domain.Task{}, false, err
			}
			return doc.Tasks[i], false, nil
		}
		// Missing row: reported as success, same as delete.
		return domain.Task{}, false, nil
	}

	t := patch.NewTask(domain.NextTimestamp())
	t.ID = doc.NextID
	doc.NextID++
	doc.Tasks = append(doc.Tasks, t)
	if err := s.save(doc); err != nil {
		return domain.Task{}, false, err
	}
	return t, true, nil
}

func (s *FileStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return err
	}
	kept := doc.Tasks[:0]
	removed := false
	for _, t := range doc.Tasks {
		if t.ID == id {
			removed = true
			continue
		}
		kept = append(kept, t)
	}
	if !removed {
		return nil
	}
	doc.Tasks = kept
	return s.save(doc)
}

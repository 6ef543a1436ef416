package sched

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	logx "postbot/pkg/logx"
)

// fileStore persists the pending set as a single JSON document.
//
// Save rewrites the whole file; it is deliberately not atomic (a crash
// mid-write can corrupt the file, which Load then treats as empty).
type fileStore struct {
	log  logx.Logger
	path string

	mu     sync.Mutex
	closed bool
}

type fileDoc struct {
	Jobs []Job `json:"jobs"`
}

func openFileStore(path string, log logx.Logger) (Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &fileStore{log: log, path: path}, nil
}

func (s *fileStore) Load(ctx context.Context) ([]Job, uint64, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, 0, errors.New("file store closed")
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			// First run: initialize an empty state on disk.
			if err := s.saveLocked(nil); err != nil {
				return nil, 0, err
			}
			return nil, 0, nil
		}
		return nil, 0, err
	}

	var doc fileDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		// Malformed file: start empty rather than refusing to start.
		s.log.Error("job file is malformed; starting with empty state",
			logx.String("path", s.path), logx.Err(err))
		return nil, 0, nil
	}

	var maxID uint64
	for _, j := range doc.Jobs {
		if j.ID > maxID {
			maxID = j.ID
		}
	}
	return doc.Jobs, maxID, nil
}

func (s *fileStore) Save(ctx context.Context, jobs []Job) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("file store closed")
	}
	return s.saveLocked(jobs)
}

func (s *fileStore) saveLocked(jobs []Job) error {
	if jobs == nil {
		jobs = []Job{}
	}
	data, err := json.MarshalIndent(fileDoc{Jobs: jobs}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

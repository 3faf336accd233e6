// Package file persists checkpoint logs as JSON files on the local
// filesystem, one log per thread. It suits single-process CLI use where
// conversations should survive restarts without an external store.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harmonyshop/cadenza/pkg/domain"
)

// Store implements ports.CheckpointStore on a directory of JSON files.
type Store struct {
	basePath string
	mu       sync.Mutex
}

// New creates a Store rooted at basePath. An empty basePath defaults to
// ".cadenza/threads".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".cadenza", "threads")
	}
	return &Store{basePath: basePath}
}

func (s *Store) path(threadID string) string {
	return filepath.Join(s.basePath, threadID+".json")
}

// Load returns the latest checkpoint for the thread.
func (s *Store) Load(ctx context.Context, threadID string) (*domain.Checkpoint, error) {
	if threadID == "" {
		return nil, fmt.Errorf("threadID cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	log, err := s.readLog(threadID)
	if err != nil {
		return nil, err
	}
	if len(log) == 0 {
		return nil, domain.ErrThreadNotFound
	}
	return log[len(log)-1], nil
}

// Append writes the state as the next checkpoint in the thread's log. The
// whole log is rewritten through a temp file and an atomic rename, so a
// crash mid-write never leaves a truncated log behind.
func (s *Store) Append(ctx context.Context, threadID string, state *domain.State) (*domain.Checkpoint, error) {
	if threadID == "" {
		return nil, fmt.Errorf("threadID cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	log, err := s.readLog(threadID)
	if err != nil && err != domain.ErrThreadNotFound {
		return nil, err
	}

	cp := &domain.Checkpoint{
		ThreadID:  threadID,
		Seq:       int64(len(log)) + 1,
		State:     state.Clone(),
		CreatedAt: time.Now().UTC(),
	}
	log = append(log, cp)

	if err := s.writeLog(threadID, log); err != nil {
		return nil, err
	}
	return cp, nil
}

// Delete removes the thread's log file.
func (s *Store) Delete(ctx context.Context, threadID string) error {
	if threadID == "" {
		return fmt.Errorf("threadID cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(threadID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete thread log: %w", err)
	}
	return nil
}

// List returns all thread ids with a log file.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("list threads: %w", err)
	}

	var threads []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".json" {
			threads = append(threads, strings.TrimSuffix(entry.Name(), ".json"))
		}
	}
	return threads, nil
}

func (s *Store) readLog(threadID string) ([]*domain.Checkpoint, error) {
	data, err := os.ReadFile(s.path(threadID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrThreadNotFound
		}
		return nil, fmt.Errorf("read thread log: %w", err)
	}

	var log []*domain.Checkpoint
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("unmarshal thread log: %w", err)
	}
	return log, nil
}

// writeLog writes the log via temp file, fsync and rename. Temp and
// destination share a directory so the rename stays on one filesystem.
func (s *Store) writeLog(threadID string, log []*domain.Checkpoint) error {
	if err := os.MkdirAll(s.basePath, 0o755); err != nil {
		return fmt.Errorf("ensure thread directory: %w", err)
	}

	data, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal thread log: %w", err)
	}

	tmpFile, err := os.CreateTemp(s.basePath, "tmp-"+threadID+"-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("fsync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path(threadID)); err != nil {
		return fmt.Errorf("rename temp file into log: %w", err)
	}
	return nil
}

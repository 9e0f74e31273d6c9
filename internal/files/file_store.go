package files

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const ackFileName = "acks.json"

// ackRecord is one entry of the JSON file.
type ackRecord struct {
	Key            string    `json:"key"`
	AcknowledgedAt time.Time `json:"acknowledged_at"`
}

// FileAckStore keeps flags in a small JSON file. Every call re-reads the file so that separate
// processes sharing it see each other's writes.
type FileAckStore struct {
	filePath string
	mu       sync.RWMutex
}

// NewFileAckStore opens the store at path. A directory path gets acks.json inside it; an empty
// path uses the user's config directory.
func NewFileAckStore(path string) (*FileAckStore, error) {
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("locate config dir: %w", err)
		}
		path = filepath.Join(dir, "forgaile")
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, ackFileName)
	} else if filepath.Ext(path) == "" {
		path = filepath.Join(path, ackFileName)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ack dir: %w", err)
	}

	store := &FileAckStore{filePath: path}
	if _, err := store.load(); err != nil {
		return nil, err
	}
	return store, nil
}

// Path is the JSON file backing the store.
func (s *FileAckStore) Path() string { return s.filePath }

func (s *FileAckStore) Acknowledged(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, err := s.load()
	if err != nil {
		return false, err
	}
	for _, r := range records {
		if r.Key == key {
			return true, nil
		}
	}
	return false, nil
}

func (s *FileAckStore) SetAcknowledged(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	for _, r := range records {
		if r.Key == key {
			return nil
		}
	}
	records = append(records, ackRecord{Key: key, AcknowledgedAt: time.Now().UTC()})
	return s.save(records)
}

func (s *FileAckStore) Reset(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	kept := records[:0]
	for _, r := range records {
		if r.Key != key {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(records) {
		return nil
	}
	return s.save(kept)
}

func (s *FileAckStore) Close() error { return nil }

// load reads every record. A missing file is an empty store.
func (s *FileAckStore) load() ([]ackRecord, error) {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read ack file: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var records []ackRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode ack file %s: %w", s.filePath, err)
	}
	return records, nil
}

// save writes through a temp file so a crash never leaves half a file behind.
func (s *FileAckStore) save(records []ackRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write ack file: %w", err)
	}
	if err := os.Rename(tmp, s.filePath); err != nil {
		return fmt.Errorf("replace ack file: %w", err)
	}
	return nil
}

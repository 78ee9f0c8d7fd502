package storage

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/IshaanNene/dhscrape/internal/types"
)

// JSONLStorage appends records to a file, one JSON object per line. The
// file is opened on the first non-empty batch, so an empty crawl leaves
// the file untouched.
type JSONLStorage struct {
	path   string
	file   *os.File
	mu     sync.Mutex
	count  int
	logger *slog.Logger
}

// NewJSONLStorage creates a JSONL storage appending to outputPath.
func NewJSONLStorage(outputPath string, logger *slog.Logger) *JSONLStorage {
	return &JSONLStorage{
		path:   outputPath,
		logger: logger.With("component", "jsonl_storage"),
	}
}

func (s *JSONLStorage) Name() string { return "jsonl" }

// Path returns the output file path.
func (s *JSONLStorage) Path() string { return s.path }

func (s *JSONLStorage) open() error {
	if s.file != nil {
		return nil
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	s.file = f
	return nil
}

// Store writes the batch as newline-joined records in a single write.
func (s *JSONLStorage) Store(records []Record) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.open(); err != nil {
		return &types.StorageError{Backend: s.Name(), Err: err}
	}

	var buf bytes.Buffer
	for _, r := range records {
		buf.Write(r.Data)
		buf.WriteByte('\n')
	}
	if _, err := s.file.Write(buf.Bytes()); err != nil {
		return &types.StorageError{Backend: s.Name(), Err: fmt.Errorf("write JSONL: %w", err)}
	}

	s.count += len(records)
	s.logger.Debug("batch written", "count", len(records), "total", s.count)
	return nil
}

func (s *JSONLStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	s.logger.Info("JSONL written", "path", s.path, "records", s.count)
	err := s.file.Close()
	s.file = nil
	return err
}

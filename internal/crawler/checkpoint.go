package crawler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// checkpointData is the serializable crawl state.
type checkpointData struct {
	Timestamp  time.Time `json:"timestamp"`
	Language   string    `json:"language,omitempty"`
	VisitedIDs []string  `json:"visited_ids"`
}

// SaveCheckpoint writes the visited ids to path. The file is replaced
// atomically so an interrupted save keeps the previous checkpoint.
func SaveCheckpoint(path, language string, visited *VisitedSet) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}

	data := checkpointData{
		Timestamp:  time.Now().UTC(),
		Language:   language,
		VisitedIDs: visited.Export(),
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create checkpoint file: %w", err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		f.Close()
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close checkpoint file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename checkpoint file: %w", err)
	}
	return nil
}

// LoadCheckpoint marks every id saved at path in visited and returns how
// many were restored. A missing checkpoint restores nothing.
func LoadCheckpoint(path string, visited *VisitedSet) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("open checkpoint: %w", err)
	}
	defer f.Close()

	var data checkpointData
	if err := json.NewDecoder(f).Decode(&data); err != nil {
		return 0, fmt.Errorf("decode checkpoint: %w", err)
	}
	visited.Import(data.VisitedIDs)
	return len(data.VisitedIDs), nil
}

// RemoveCheckpoint deletes the checkpoint at path, if any.
func RemoveCheckpoint(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

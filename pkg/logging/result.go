package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ResultLog accumulates final aggregate metrics across runs in a plain-text
// append-only file. Entries are never rewritten; each run appends one block.
type ResultLog struct {
	path string
	mu   sync.Mutex
}

// NewResultLog creates the result log's parent directory if needed.
func NewResultLog(path string) (*ResultLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("logging: create result log directory: %w", err)
	}
	return &ResultLog{path: path}, nil
}

// Append writes one block to the result log.
func (r *ResultLog) Append(block string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("logging: open result log: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(block); err != nil {
		return fmt.Errorf("logging: append result log: %w", err)
	}
	return nil
}

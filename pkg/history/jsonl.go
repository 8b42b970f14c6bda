package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// JSONL is an append-only JSON-lines recorder for CLI runs. One record per
// line, so partial files from interrupted runs stay parseable.
type JSONL struct {
	mu    sync.Mutex
	f     *os.File
	runID string
}

// NewJSONL opens (or creates) the file at path for appending. Records written
// without a RunID are stamped with runID.
func NewJSONL(path, runID string) (*JSONL, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open history file: %w", err)
	}
	return &JSONL{f: f, runID: runID}, nil
}

// Record appends one record as a JSON line.
func (j *JSONL) Record(ctx context.Context, rec Record) error {
	stamp(&rec, j.runID)

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal history record: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err := j.f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write history record: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (j *JSONL) Close(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.f.Close()
}

var _ Recorder = (*JSONL)(nil)

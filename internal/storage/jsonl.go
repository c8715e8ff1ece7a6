package storage

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"uniclaw/internal/model"
)

const maxLineBytes = 10 * 1024 * 1024

// JsonlStorage appends records to a JSONL file.
type JsonlStorage struct {
	path string
	mu   sync.Mutex
}

func NewJsonlStorage(path string) *JsonlStorage {
	return &JsonlStorage{path: path}
}

// PutDecisions appends a batch of gate decisions as JSON lines.
func (s *JsonlStorage) PutDecisions(ctx context.Context, decisions []model.GateDecision) error {
	return appendLines(s, len(decisions), func(i int) interface{} { return decisions[i] })
}

// PutSnapshots appends a batch of pool snapshots as JSON lines.
func (s *JsonlStorage) PutSnapshots(ctx context.Context, snapshots []model.PoolSnapshot) error {
	return appendLines(s, len(snapshots), func(i int) interface{} { return snapshots[i] })
}

func appendLines(s *JsonlStorage, n int, item func(int) interface{}) error {
	if n == 0 {
		return nil
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for i := 0; i < n; i++ {
		line, err := json.Marshal(item(i))
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}

// LineError reports a JSONL line that could not be decoded.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// ScanJSONL decodes each non-empty line of path into a fresh T and passes it
// to fn. Lines that fail to decode go to onError when it is set; otherwise
// the scan stops with a *LineError.
func ScanJSONL[T any](path string, fn func(line int, value T) error, onError func(*LineError)) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var value T
		if err := json.Unmarshal(line, &value); err != nil {
			lineErr := &LineError{Line: lineNo, Err: err}
			if onError == nil {
				return lineErr
			}
			onError(lineErr)
			continue
		}
		if err := fn(lineNo, value); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}
	return nil
}

package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"botledger/internal/ledger"
)

// FileJournal appends entries as JSON lines.
type FileJournal struct {
	path string
	file *os.File
	mu   sync.Mutex
	seq  int64
}

var _ Journal = (*FileJournal)(nil)

func NewFileJournal(path string) (*FileJournal, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}
	j := &FileJournal{path: path, file: f}
	entries, err := j.readAll()
	if err != nil {
		f.Close()
		return nil, err
	}
	if n := len(entries); n > 0 {
		j.seq = entries[n-1].Seq
	}
	return j, nil
}

func (j *FileJournal) Append(_ context.Context, e *Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	e.Seq = j.seq + 1
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}
	data = append(data, '\n')
	if _, err := j.file.Write(data); err != nil {
		return fmt.Errorf("failed to write entry: %w", err)
	}
	j.seq = e.Seq
	return nil
}

func (j *FileJournal) LoadAll(_ context.Context) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.readAll()
}

func (j *FileJournal) List(_ context.Context, authority ledger.PublicKey, limit int) ([]Entry, error) {
	j.mu.Lock()
	all, err := j.readAll()
	j.mu.Unlock()
	if err != nil {
		return nil, err
	}
	var out []Entry
	for i := len(all) - 1; i >= 0; i-- {
		if !matches(all[i], authority) {
			continue
		}
		out = append(out, all[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// readAll must be called with mu held.
func (j *FileJournal) readAll() ([]Entry, error) {
	if _, err := j.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek to start: %w", err)
	}
	defer j.file.Seek(0, io.SeekEnd)

	var entries []Entry
	scanner := bufio.NewScanner(j.file)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal line %d: %w", lineNum, err)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner error: %w", err)
	}
	return entries, nil
}

func (j *FileJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.file.Close()
}

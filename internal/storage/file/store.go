// Package file implements a JSON-lines storage backend. Every record kind is
// appended to its own file under one directory.
package file

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/samijaber1/aegis-watch/internal/model"
	"github.com/samijaber1/aegis-watch/internal/storage"
)

// File names inside the storage directory
const (
	ResultsFile      = "monitoring_results.jsonl"
	MetricsFile      = "sla_metrics.jsonl"
	AlertsFile       = "alerts.jsonl"
	OutageStatesFile = "outage_states.jsonl"
	OutageEventsFile = "outage_events.jsonl"
)

const maxLineBytes = 4 << 20

// Store appends records to JSONL files
type Store struct {
	dir string

	mu    sync.Mutex
	files map[string]*os.File
}

var (
	_ storage.Sink    = (*Store)(nil)
	_ storage.Querier = (*Store)(nil)
)

// NewStore creates the directory if needed
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &Store{dir: dir, files: make(map[string]*os.File)}, nil
}

func (s *Store) StoreResult(_ context.Context, r model.ProbeResult) error {
	return s.append(ResultsFile, r)
}

func (s *Store) StoreMetrics(_ context.Context, m model.SLAMetrics) error {
	return s.append(MetricsFile, m)
}

func (s *Store) StoreAlert(_ context.Context, a model.Alert) error {
	return s.append(AlertsFile, a)
}

func (s *Store) StoreOutageState(_ context.Context, state model.OutageState) error {
	return s.append(OutageStatesFile, state)
}

func (s *Store) StoreOutageEvent(_ context.Context, e model.OutageEvent) error {
	return s.append(OutageEventsFile, e)
}

func (s *Store) append(name string, record any) error {
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record for %s: %w", name, err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.file(name)
	if err != nil {
		return err
	}
	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// file returns the open handle for name; callers hold s.mu
func (s *Store) file(name string) (*os.File, error) {
	if f, ok := s.files[name]; ok {
		return f, nil
	}
	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	s.files[name] = f
	return f, nil
}

// QueryResults scans the results file, newest first
func (s *Store) QueryResults(ctx context.Context, filter storage.ResultFilter) ([]model.ProbeResult, error) {
	f, err := os.Open(filepath.Join(s.dir, ResultsFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open results: %w", err)
	}
	defer f.Close()

	var matched []model.ProbeResult
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var r model.ProbeResult
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			// a torn trailing line from a crash is skipped
			continue
		}
		if filter.Match(r) {
			matched = append(matched, r)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read results: %w", err)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	if filter.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[filter.Offset:]
	if limit := filter.EffectiveLimit(); len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// Close closes every open file
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for name, f := range s.files {
		if err := f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
		delete(s.files, name)
	}
	return errors.Join(errs...)
}

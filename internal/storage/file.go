package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	logx "w3feed/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Files:
//   - <prefix>.state.json (last publish date, rewritten atomically)
//   - <prefix>.runs.jsonl (append-only JSON Lines run audit)
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	statePath string
	state     fileState

	runsFile *os.File
}

type fileState struct {
	LastRunDate string `json:"last_run_date,omitempty"`
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	statePath := prefix + ".state.json"
	runsPath := prefix + ".runs.jsonl"

	var st fileState
	if b, err := os.ReadFile(statePath); err == nil {
		// A corrupt state file degrades to "never ran"; worst case is one
		// duplicate publish, same as running without storage.
		if err := json.Unmarshal(b, &st); err != nil {
			log.Warn("state file unreadable; starting empty", logx.String("path", statePath), logx.Err(err))
			st = fileState{}
		}
	}

	rf, err := os.OpenFile(runsPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}

	return &fileStore{
		log:       log,
		statePath: statePath,
		state:     st,
		runsFile:  rf,
	}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runsFile != nil {
		err := s.runsFile.Close()
		s.runsFile = nil
		return err
	}
	return nil
}

func (s *fileStore) LastRunDate(ctx context.Context) (string, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.LastRunDate == "" {
		return "", false, nil
	}
	return s.state.LastRunDate, true, nil
}

func (s *fileStore) SetLastRunDate(ctx context.Context, date string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LastRunDate = date
	return s.writeStateLocked()
}

// writeStateLocked rewrites the state file via a temp file + rename so a
// crash mid-write never leaves a truncated state behind.
func (s *fileStore) writeStateLocked() error {
	b, err := json.Marshal(s.state)
	if err != nil {
		return err
	}
	tmp := s.statePath + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.statePath)
}

func (s *fileStore) AppendRun(ctx context.Context, e RunEntry) error {
	_ = ctx
	if e.At.IsZero() {
		e.At = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runsFile == nil {
		return errors.New("runs file closed")
	}
	enc := json.NewEncoder(s.runsFile)
	return enc.Encode(e)
}

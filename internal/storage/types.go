package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free file backend (state JSON + runs JSONL)
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// RunEntry records one triggered publish run.
// Keep it compact and schema-stable.
type RunEntry struct {
	At           time.Time
	Date         string // calendar date of the run, "2006-01-02"
	Players      int
	TelegramSent bool
	DiscordState string
	DiscordCode  int
	Error        string
	TookMS       int64
}

package storage

import (
	"context"
	"errors"
	"strings"

	logx "w3feed/pkg/logx"
)

// Store is the minimal persistence API used by the feed.
type Store interface {
	// LastRunDate returns the stored publish date ("2006-01-02"), if any.
	LastRunDate(ctx context.Context) (date string, ok bool, err error)
	SetLastRunDate(ctx context.Context, date string) error

	AppendRun(ctx context.Context, e RunEntry) error
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}

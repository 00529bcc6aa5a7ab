package storage

// Package storage provides a minimal persistence layer used by the feed.
//
// It currently supports:
//   - The last successful publish date (so the daily gate survives restarts)
//   - Run audit appends (one record per triggered run)

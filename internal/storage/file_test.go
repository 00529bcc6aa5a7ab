package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	logx "w3feed/pkg/logx"
)

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"", "none", " NONE "} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil {
			t.Fatalf("Open(%q) error: %v", driver, err)
		}
		if st != nil {
			t.Fatalf("Open(%q) = %v, want nil store", driver, st)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "redis"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "w3feed_store")

	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}

	ctx := context.Background()
	if _, ok, err := st.LastRunDate(ctx); err != nil || ok {
		t.Fatalf("fresh store LastRunDate = ok=%t err=%v, want empty", ok, err)
	}

	if err := st.SetLastRunDate(ctx, "2026-08-23"); err != nil {
		t.Fatalf("SetLastRunDate error: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	// Reopen: the date must survive the restart.
	st2, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer st2.Close()

	date, ok, err := st2.LastRunDate(ctx)
	if err != nil || !ok || date != "2026-08-23" {
		t.Fatalf("LastRunDate after reopen = (%q, %t, %v)", date, ok, err)
	}
}

func TestFileStoreAppendRun(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "w3feed_store")
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	entries := []RunEntry{
		{At: time.Now(), Date: "2026-08-22", Players: 2, TelegramSent: true, DiscordState: "sent", TookMS: 1200},
		{At: time.Now(), Date: "2026-08-23", Players: 2, DiscordState: "exhausted", DiscordCode: 500},
	}
	for _, e := range entries {
		if err := st.AppendRun(ctx, e); err != nil {
			t.Fatalf("AppendRun error: %v", err)
		}
	}

	f, err := os.Open(path + ".runs.jsonl")
	if err != nil {
		t.Fatalf("open runs file: %v", err)
	}
	defer f.Close()

	var got []RunEntry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e RunEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("bad JSONL line: %v", err)
		}
		got = append(got, e)
	}
	if len(got) != 2 || got[0].Date != "2026-08-22" || got[1].DiscordCode != 500 {
		t.Fatalf("unexpected audit entries: %+v", got)
	}
}

func TestFileStoreCorruptState(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "w3feed_store")
	if err := os.WriteFile(path+".state.json", []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer st.Close()

	if _, ok, err := st.LastRunDate(context.Background()); err != nil || ok {
		t.Fatalf("corrupt state must degrade to empty, got ok=%t err=%v", ok, err)
	}
}

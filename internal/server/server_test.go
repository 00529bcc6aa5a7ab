package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"w3feed/internal/feed"
	"w3feed/internal/transport/discord"
	logx "w3feed/pkg/logx"
)

type stubRunner struct {
	sum feed.RunSummary
	err error
}

func (s *stubRunner) Run(ctx context.Context) (feed.RunSummary, error) { return s.sum, s.err }

func newTestServer(t *testing.T, r Runner) *httptest.Server {
	t.Helper()
	srv := New(Config{Enabled: true}, r, logx.Nop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b)
}

func TestLiveness(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, &stubRunner{})
	code, body := get(t, ts.URL+"/")
	if code != http.StatusOK || !strings.Contains(body, "alive") {
		t.Fatalf("GET / = %d %q", code, body)
	}

	if code, _ := get(t, ts.URL+"/nope"); code != http.StatusNotFound {
		t.Fatalf("GET /nope = %d, want 404", code)
	}
}

func TestRunPosted(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, &stubRunner{sum: feed.RunSummary{
		Date:         "2026-08-23",
		Players:      2,
		TelegramSent: true,
		Discord:      discord.Result{State: discord.StateSent, Code: 204},
	}})

	code, body := get(t, ts.URL+"/run")
	if code != http.StatusOK {
		t.Fatalf("GET /run = %d, want 200", code)
	}
	for _, want := range []string{"posted for 2026-08-23", "players=2", "telegram=true", "discord=sent"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q: %q", want, body)
		}
	}
}

func TestRunAlreadySent(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, &stubRunner{sum: feed.RunSummary{AlreadySent: true, Date: "2026-08-23"}})
	code, body := get(t, ts.URL+"/run")
	if code != http.StatusOK || !strings.Contains(body, "already sent for 2026-08-23") {
		t.Fatalf("GET /run = %d %q", code, body)
	}
}

func TestRunFailure(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, &stubRunner{err: errors.New("players file unreadable")})
	code, body := get(t, ts.URL+"/run")
	if code != http.StatusInternalServerError || !strings.Contains(body, "players file unreadable") {
		t.Fatalf("GET /run = %d %q", code, body)
	}
}

func TestRunMethodNotAllowed(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, &stubRunner{})
	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/run", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("DELETE /run = %d, want 405", resp.StatusCode)
	}
}

func TestStartStopLifecycle(t *testing.T) {
	t.Parallel()
	srv := New(Config{Enabled: true, Addr: "127.0.0.1:0"}, &stubRunner{}, logx.Nop())
	if err := srv.Start(); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	addr := srv.Addr()
	if addr == "" {
		t.Fatal("expected a bound address")
	}

	code, _ := get(t, "http://"+addr+"/")
	if code != http.StatusOK {
		t.Fatalf("GET / on live server = %d", code)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	srv.Stop(ctx)

	if _, err := http.Get("http://" + addr + "/"); err == nil {
		t.Fatal("expected connection failure after Stop")
	}
}

func TestDisabledServerDoesNotListen(t *testing.T) {
	t.Parallel()
	srv := New(Config{Enabled: false, Addr: "127.0.0.1:0"}, &stubRunner{}, logx.Nop())
	if err := srv.Start(); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if srv.Addr() != "" {
		t.Fatal("disabled server must not bind")
	}
}

package stats

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	logx "w3feed/pkg/logx"
)

func TestNormalizeCanonicalizesCase(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/players/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("search"); got != "foo" {
			t.Errorf("search = %q, want foo", got)
		}
		fmt.Fprint(w, `{"players":[{"battleTag":"Bar#999"},{"battleTag":"Foo#123"}]}`)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, logx.Nop())
	if got := c.Normalize(context.Background(), "foo#123"); got != "Foo#123" {
		t.Fatalf("Normalize = %q, want Foo#123", got)
	}
}

func TestNormalizeFallsBackOnError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, logx.Nop())
	if got := c.Normalize(context.Background(), "foo#123"); got != "foo#123" {
		t.Fatalf("Normalize = %q, want input back", got)
	}

	// No '#' means nothing to resolve.
	if got := c.Normalize(context.Background(), "plainname"); got != "plainname" {
		t.Fatalf("Normalize = %q, want input back", got)
	}
}

func TestMatchesQueryAndDecode(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("playerId") != "Foo#123" || q.Get("season") != "22" || q.Get("gateway") != "20" || q.Get("pageSize") != "100" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		fmt.Fprint(w, `{"matches":[{"teams":[{"won":true,"players":[{"battleTag":"Foo#123","race":1}]}]}]}`)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, logx.Nop())
	matches, err := c.Matches(context.Background(), "Foo#123")
	if err != nil {
		t.Fatalf("Matches error: %v", err)
	}
	if len(matches) != 1 || !matches[0].Teams[0].Won {
		t.Fatalf("unexpected matches: %+v", matches)
	}
}

func TestMatchesRetriesServerErrors(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"matches":[]}`)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, logx.Nop())
	if _, err := c.Matches(context.Background(), "Foo#123"); err != nil {
		t.Fatalf("Matches error after retries: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
}

func TestMatchesClientErrorIsUnrecoverable(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, logx.Nop())
	if _, err := c.Matches(context.Background(), "Foo#123"); err == nil {
		t.Fatal("expected error for 400")
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1 (no retries on 4xx)", calls.Load())
	}
}

func TestSummarizeCarriesSeason(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"matches":[]}`)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Season: 23}, logx.Nop())
	s, err := c.Summarize(context.Background(), "Foo#123")
	if err != nil {
		t.Fatalf("Summarize error: %v", err)
	}
	if s.Season != 23 {
		t.Fatalf("Season = %d, want 23", s.Season)
	}
}

package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	logx "w3feed/pkg/logx"
)

const matchesPage = `<html><body>
<table class="MuiTable-root">
<tbody>
<tr>
  <td>Twisted Meadows</td><td>ladder</td><td>HU vs NE</td>
  <td><span class="PlayerName--win">Foo</span></td>
  <td>14:02</td><td>23.08.2026</td>
</tr>
<tr>
  <td>Echo Isles</td><td>ladder</td><td>HU vs UD</td>
  <td><span class="PlayerName--loss">Foo</span></td>
  <td>09:45</td><td>22.08.2026</td>
</tr>
<tr>
  <td>Last Refuge</td><td>ladder</td><td>HU vs OR</td>
  <td><span class="SomethingElse">Foo</span></td>
  <td>20:11</td><td>21.08.2026</td>
</tr>
</tbody>
</table>
</body></html>`

func TestRecentMatchesParsesRows(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if want := "/player/Foo%23123/matches"; r.URL.EscapedPath() != want {
			t.Errorf("path = %s, want %s", r.URL.EscapedPath(), want)
		}
		if ua := r.Header.Get("User-Agent"); !strings.Contains(ua, "Mozilla") {
			t.Errorf("expected browser user agent, got %q", ua)
		}
		fmt.Fprint(w, matchesPage)
	}))
	defer srv.Close()

	s := New(Config{BaseURL: srv.URL}, logx.Nop())
	lines := s.RecentMatches(context.Background(), "Foo#123")

	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3: %v", len(lines), lines)
	}
	if want := "- 23.08.2026 — Twisted Meadows — HU vs NE — ✅ Win (14:02)"; lines[0] != want {
		t.Fatalf("line[0] = %q, want %q", lines[0], want)
	}
	if !strings.Contains(lines[1], "❌ Loss") {
		t.Fatalf("line[1] = %q, want a loss", lines[1])
	}
	if !strings.Contains(lines[2], "— ? —") {
		t.Fatalf("line[2] = %q, want unknown result", lines[2])
	}
}

func TestRecentMatchesLimit(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, matchesPage)
	}))
	defer srv.Close()

	s := New(Config{BaseURL: srv.URL, MatchesFromSite: 2}, logx.Nop())
	if lines := s.RecentMatches(context.Background(), "Foo#123"); len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
}

func TestRecentMatchesDegradesOnErrors(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	s := New(Config{BaseURL: srv.URL}, logx.Nop())
	if lines := s.RecentMatches(context.Background(), "Foo#123"); lines != nil {
		t.Fatalf("expected nil on non-OK status, got %v", lines)
	}

	// No table on the page.
	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body><p>maintenance</p></body></html>")
	}))
	defer empty.Close()

	s2 := New(Config{BaseURL: empty.URL}, logx.Nop())
	if lines := s2.RecentMatches(context.Background(), "Foo#123"); len(lines) != 0 {
		t.Fatalf("expected no lines for missing table, got %v", lines)
	}
}

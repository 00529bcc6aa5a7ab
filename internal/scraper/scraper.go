// Package scraper pulls a player's recent matches off the public
// w3champions.com matches page.
//
// The page is a rendered table; we read map, matchup, outcome, duration and
// date per row. Scraping is best-effort: any failure degrades to an empty
// list so a markup change on the site never blocks the daily report.
package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	logx "w3feed/pkg/logx"
)

const defaultBaseURL = "https://www.w3champions.com"

type Config struct {
	BaseURL string

	MatchesFromSite int

	Timeout time.Duration
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.BaseURL) == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.MatchesFromSite <= 0 {
		c.MatchesFromSite = 5
	}
	if c.Timeout <= 0 {
		c.Timeout = 20 * time.Second
	}
	return c
}

type Scraper struct {
	mu  sync.Mutex
	cfg Config

	http *http.Client
	log  logx.Logger
}

func New(cfg Config, log logx.Logger) *Scraper {
	cfg = cfg.withDefaults()
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Scraper{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log,
	}
}

// Apply swaps the scraper settings (used on hot reload).
func (s *Scraper) Apply(cfg Config) {
	s.mu.Lock()
	s.cfg = cfg.withDefaults()
	s.mu.Unlock()
}

func (s *Scraper) config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// RecentMatches returns formatted summary lines for the player's latest
// matches. On any failure it logs and returns nil.
func (s *Scraper) RecentMatches(ctx context.Context, battleTag string) []string {
	cfg := s.config()

	pageURL := fmt.Sprintf("%s/player/%s/matches", cfg.BaseURL, url.PathEscape(battleTag))
	s.log.Debug("fetching site matches", logx.String("url", pageURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		s.log.Warn("site matches request failed", logx.String("player", battleTag), logx.Err(err))
		return nil
	}
	// Plain Go user agents get bot-blocked; look like a browser.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.http.Do(req)
	if err != nil {
		s.log.Warn("site matches fetch failed", logx.String("player", battleTag), logx.Err(err))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.log.Warn("site matches fetch returned non-OK status",
			logx.String("player", battleTag), logx.Int("status", resp.StatusCode))
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		s.log.Warn("site matches parse failed", logx.String("player", battleTag), logx.Err(err))
		return nil
	}

	lines := parseMatchRows(doc, cfg.MatchesFromSite)
	if len(lines) == 0 {
		s.log.Warn("no match rows found on site page", logx.String("player", battleTag))
	}
	return lines
}

// parseMatchRows walks the matches table. Column layout:
// 0 map, 2 matchup, 3 result (win/loss class on a span), 4 duration, 5 date.
func parseMatchRows(doc *goquery.Document, limit int) []string {
	var lines []string
	doc.Find("table.MuiTable-root tbody tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if len(lines) >= limit {
			return false
		}
		cols := row.Find("td")
		if cols.Length() < 6 {
			return true
		}

		mapName := cellText(cols, 0)
		matchup := cellText(cols, 2)
		duration := cellText(cols, 4)
		date := cellText(cols, 5)

		result := "?"
		if span := cols.Eq(3).Find("span").First(); span.Length() > 0 {
			class, _ := span.Attr("class")
			switch {
			case strings.Contains(class, "PlayerName--win"):
				result = "✅ Win"
			case strings.Contains(class, "PlayerName--loss"):
				result = "❌ Loss"
			}
		}

		lines = append(lines, fmt.Sprintf("- %s — %s — %s — %s (%s)",
			date, mapName, matchup, result, duration))
		return true
	})
	return lines
}

func cellText(cols *goquery.Selection, i int) string {
	return strings.TrimSpace(cols.Eq(i).Text())
}

// Package stats fetches and aggregates a player's ladder matches from the
// W3Champions statistics API.
package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/retry"

	logx "w3feed/pkg/logx"
)

const defaultBaseURL = "https://website-backend.w3champions.com"

type Config struct {
	BaseURL string

	Season  int
	Gateway int

	MatchesToFetch   int
	MatchesToAnalyze int

	Timeout time.Duration
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.BaseURL) == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.Season <= 0 {
		c.Season = 22
	}
	if c.Gateway <= 0 {
		c.Gateway = 20
	}
	if c.MatchesToFetch <= 0 {
		c.MatchesToFetch = 100
	}
	if c.MatchesToAnalyze <= 0 {
		c.MatchesToAnalyze = 10
	}
	if c.Timeout <= 0 {
		c.Timeout = 20 * time.Second
	}
	return c
}

type Client struct {
	mu  sync.Mutex
	cfg Config

	http *http.Client
	log  logx.Logger
}

func New(cfg Config, log logx.Logger) *Client {
	cfg = cfg.withDefaults()
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log,
	}
}

// Apply swaps the API settings (used on hot reload).
func (c *Client) Apply(cfg Config) {
	c.mu.Lock()
	c.cfg = cfg.withDefaults()
	c.mu.Unlock()
}

func (c *Client) config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// Normalize resolves the canonical casing of a battle tag via the player
// search endpoint. Lookup failures are non-fatal: the input is returned as-is.
func (c *Client) Normalize(ctx context.Context, battleTag string) string {
	cfg := c.config()

	name, suffix, ok := strings.Cut(battleTag, "#")
	if !ok {
		return battleTag
	}

	u := fmt.Sprintf("%s/api/players/search?search=%s", cfg.BaseURL, url.QueryEscape(name))
	var resp searchResponse
	if err := c.getJSON(ctx, u, &resp); err != nil {
		c.log.Warn("battle tag lookup failed; using as-is",
			logx.String("player", battleTag), logx.Err(err))
		return battleTag
	}

	for _, p := range resp.Players {
		if strings.HasSuffix(p.BattleTag, "#"+suffix) {
			if p.BattleTag != battleTag {
				c.log.Info("battle tag normalized",
					logx.String("from", battleTag), logx.String("to", p.BattleTag))
			}
			return p.BattleTag
		}
	}

	c.log.Warn("battle tag not found in search; using as-is", logx.String("player", battleTag))
	return battleTag
}

// Matches fetches the player's recent matches for the configured season and
// gateway, newest first.
func (c *Client) Matches(ctx context.Context, battleTag string) ([]Match, error) {
	cfg := c.config()

	u := fmt.Sprintf("%s/api/matches/search?playerId=%s&gateway=%d&offset=0&pageSize=%d&season=%d",
		cfg.BaseURL, url.QueryEscape(battleTag), cfg.Gateway, cfg.MatchesToFetch, cfg.Season)

	var resp matchesResponse
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("fetch matches for %s: %w", battleTag, err)
	}
	return resp.Matches, nil
}

// Summarize fetches the player's matches and aggregates the analysis window.
func (c *Client) Summarize(ctx context.Context, battleTag string) (Summary, error) {
	cfg := c.config()

	matches, err := c.Matches(ctx, battleTag)
	if err != nil {
		return Summary{Season: cfg.Season}, err
	}
	s := Analyze(matches, battleTag, cfg.MatchesToAnalyze)
	s.Season = cfg.Season
	return s, nil
}

// getJSON fetches and decodes one API response, retrying transient failures.
func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("Accept", "application/json")

			resp, err := c.http.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				err := fmt.Errorf("HTTP %d", resp.StatusCode)
				if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
					return retry.Unrecoverable(err)
				}
				return err
			}

			b, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
			if err != nil {
				return err
			}
			if err := json.Unmarshal(b, out); err != nil {
				return retry.Unrecoverable(fmt.Errorf("decode response: %w", err))
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.MaxDelay(5*time.Second),
		retry.MaxJitter(500*time.Millisecond),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.log.Warn("stats fetch retry", logx.Int("attempt", int(n)+1), logx.Err(err))
		}),
	)
}

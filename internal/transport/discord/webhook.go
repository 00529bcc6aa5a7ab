// Package discord delivers report batches to a Discord webhook.
//
// The client owns the channel's failure-handling contract: bounded attempts,
// server-advised waits on rate limits, and exponential backoff with a ceiling
// for everything else. Persistent outages surface as a non-success Result,
// never as a raised error, so the caller decides whether the run is fatal.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"w3feed/internal/transport"
	logx "w3feed/pkg/logx"
)

// State is the terminal outcome of one Deliver call.
type State string

const (
	// StateSkipped means the channel is administratively disabled or has no
	// webhook URL. A deliberate no-op, distinct from success and failure.
	StateSkipped State = "skipped"
	// StateEmpty means there was nothing to send.
	StateEmpty State = "empty"
	StateSent  State = "sent"
	// StateExhausted means every attempt failed; Result carries the last
	// observed status code and a body excerpt.
	StateExhausted State = "exhausted"
)

// Result reports how a Deliver call ended.
type Result struct {
	State State
	Code  int    // last HTTP status (0 for skipped/empty)
	Body  string // response body excerpt on exhaustion, short note otherwise
}

const (
	maxAttempts      = 5
	MaxEmbedsPerCall = 10
	callTimeout      = 20 * time.Second

	backoffStart = 1 * time.Second
	backoffCeil  = 8 * time.Second
	// jitterStep is multiplied by the zero-based attempt index and added to
	// every sleep, so consecutive failures never retry in lockstep.
	jitterStep = 200 * time.Millisecond

	bodyExcerptLimit = 600

	// descriptionLimit is Discord's embed description cap. Truncation keeps
	// room for the ellipsis: limit-5 runes + "…".
	descriptionLimit = 4000

	embedColor  = 0xF1C40F
	footerText  = "W3Champions AutoFeed"
	defaultName = "WC3 Stats"
)

type Config struct {
	Disabled   bool
	WebhookURL string
	Username   string
}

// Client posts embed batches to one webhook endpoint.
type Client struct {
	mu   sync.Mutex
	cfg  Config
	http *http.Client
	log  logx.Logger

	// sleep is swappable in tests; it must honor ctx cancellation.
	sleep func(ctx context.Context, d time.Duration) error
}

func New(cfg Config, log logx.Logger) *Client {
	if strings.TrimSpace(cfg.Username) == "" {
		cfg.Username = defaultName
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{
		cfg:   cfg,
		http:  &http.Client{Timeout: callTimeout},
		log:   log,
		sleep: sleepCtx,
	}
}

// Apply swaps the destination config (used on hot reload).
func (c *Client) Apply(cfg Config) {
	if strings.TrimSpace(cfg.Username) == "" {
		cfg.Username = defaultName
	}
	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()
}

func (c *Client) config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	URL         string       `json:"url,omitempty"`
	Timestamp   string       `json:"timestamp"`
	Color       int          `json:"color"`
	Footer      *embedFooter `json:"footer,omitempty"`
}

type embedFooter struct {
	Text string `json:"text"`
}

type webhookPayload struct {
	Username string  `json:"username"`
	Embeds   []embed `json:"embeds"`
}

// Deliver sends one batch (at most 10 messages) to the webhook.
//
// Outcomes:
//   - disabled or unset URL: StateSkipped, no network call
//   - empty batch: StateEmpty, no network call
//   - 200/204: StateSent
//   - after 5 failed attempts: StateExhausted with the last status and a
//     <=600-byte body excerpt
//
// A 429 sleeps the server-advised duration (falling back to the current
// backoff) plus jitter and does not grow the backoff; any other failure
// sleeps the current backoff plus jitter, then doubles it up to the ceiling.
func (c *Client) Deliver(ctx context.Context, batch transport.Batch) Result {
	cfg := c.config()
	if cfg.Disabled {
		c.log.Info("discord disabled; skipping delivery")
		return Result{State: StateSkipped, Body: "discord disabled"}
	}
	if strings.TrimSpace(cfg.WebhookURL) == "" {
		c.log.Info("discord webhook url not set; skipping delivery")
		return Result{State: StateSkipped, Body: "webhook_url is not set"}
	}
	if len(batch) == 0 {
		return Result{State: StateEmpty, Body: "no embeds to send"}
	}

	if len(batch) > MaxEmbedsPerCall {
		batch = batch[:MaxEmbedsPerCall]
	}
	payload := webhookPayload{Username: cfg.Username, Embeds: make([]embed, 0, len(batch))}
	for _, m := range batch {
		payload.Embeds = append(payload.Embeds, buildEmbed(m))
	}
	body, err := json.Marshal(payload)
	if err != nil {
		// Embeds are plain strings; this only fires on programmer error.
		return Result{State: StateExhausted, Body: "encode payload: " + err.Error()}
	}

	backoff := backoffStart
	var lastCode int
	var lastBody string

	for attempt := 0; attempt < maxAttempts; attempt++ {
		code, respBody, err := c.post(ctx, cfg.WebhookURL, body)
		if err != nil {
			// Transport-level failure (timeout, DNS, cancelled context).
			if ctx.Err() != nil {
				return Result{State: StateExhausted, Code: lastCode, Body: ctx.Err().Error()}
			}
			lastCode, lastBody = 0, excerpt(err.Error())
		} else {
			lastCode, lastBody = code, excerpt(respBody)
			if code == http.StatusOK || code == http.StatusNoContent {
				c.log.Info("discord batch delivered",
					logx.Int("attempt", attempt+1), logx.Int("embeds", len(payload.Embeds)))
				return Result{State: StateSent, Code: code, Body: "OK"}
			}
		}

		jitter := time.Duration(attempt) * jitterStep

		if lastCode == http.StatusTooManyRequests {
			// Server-directed wait: does not advance the backoff window.
			wait, ok := parseRetryAfter(lastBody)
			if !ok {
				wait = backoff
			}
			sleepFor := wait + jitter
			c.log.Warn("discord rate limited",
				logx.Int("attempt", attempt+1), logx.Duration("sleep", sleepFor))
			if err := c.sleep(ctx, sleepFor); err != nil {
				return Result{State: StateExhausted, Code: lastCode, Body: lastBody}
			}
			continue
		}

		if isCloudflareBlock(lastCode, lastBody) {
			c.log.Warn("cloudflare block detected for discord.com; backing off")
		}

		if attempt == maxAttempts-1 {
			c.log.Warn("discord delivery failed; attempts exhausted",
				logx.Int("attempt", attempt+1), logx.Int("status", lastCode))
			break
		}
		sleepFor := backoff + jitter
		c.log.Warn("discord delivery failed",
			logx.Int("attempt", attempt+1), logx.Int("status", lastCode),
			logx.Duration("sleep", sleepFor))
		if err := c.sleep(ctx, sleepFor); err != nil {
			return Result{State: StateExhausted, Code: lastCode, Body: lastBody}
		}
		backoff *= 2
		if backoff > backoffCeil {
			backoff = backoffCeil
		}
	}

	return Result{State: StateExhausted, Code: lastCode, Body: lastBody}
}

func (c *Client) post(ctx context.Context, url string, body []byte) (int, string, error) {
	cctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(cctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	// Only an excerpt is ever surfaced; don't slurp unbounded bodies.
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return resp.StatusCode, string(b), nil
}

func buildEmbed(m transport.Message) embed {
	title := m.Title
	if title == "" {
		title = "Update"
	}
	desc := TruncateDescription(m.Body)
	if desc == "" {
		desc = "\u200b" // Discord rejects empty descriptions
	}
	at := m.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return embed{
		Title:       title,
		Description: desc,
		URL:         m.URL,
		Timestamp:   at.UTC().Format(time.RFC3339),
		Color:       embedColor,
		Footer:      &embedFooter{Text: footerText},
	}
}

// TruncateDescription enforces the embed description cap: anything longer
// than the limit is cut to limit-5 runes plus a single ellipsis rune.
func TruncateDescription(s string) string {
	runes := []rune(s)
	if len(runes) <= descriptionLimit {
		return s
	}
	return string(runes[:descriptionLimit-5]) + "…"
}

// parseRetryAfter extracts the advised wait from a 429 body, e.g.
// {"retry_after": 1.52}. Discord reports seconds as a float.
func parseRetryAfter(body string) (time.Duration, bool) {
	var v struct {
		RetryAfter float64 `json:"retry_after"`
	}
	if err := json.Unmarshal([]byte(body), &v); err != nil || v.RetryAfter <= 0 {
		return 0, false
	}
	return time.Duration(v.RetryAfter * float64(time.Second)), true
}

func isCloudflareBlock(code int, body string) bool {
	if code != http.StatusForbidden && code != http.StatusServiceUnavailable {
		return false
	}
	b := strings.ToLower(body)
	return strings.Contains(b, "cloudflare") || strings.Contains(b, "access denied")
}

// excerpt caps a body at the limit without splitting a rune; Discord error
// bodies can carry non-ASCII text.
func excerpt(s string) string {
	if len(s) <= bodyExcerptLimit {
		return s
	}
	cut := bodyExcerptLimit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

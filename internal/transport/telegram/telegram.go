// Package telegram posts the daily report to a Telegram channel.
//
// Long reports are split into chunks under the platform message limit and
// paced to one chunk per second. Flood-wait errors from the Bot API sleep the
// advised duration and retry, mirroring the webhook channel's rate-limit
// handling so both channels share one retry policy.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"
	"golang.org/x/time/rate"

	logx "w3feed/pkg/logx"
	"w3feed/pkg/tghtml"
)

// ErrNotConfigured is returned by New when token or channel is missing.
// Callers treat it as "channel disabled", not a startup failure.
var ErrNotConfigured = errors.New("telegram not configured")

type Config struct {
	Token   string
	Channel string // numeric chat id or @channelname

	SendTimeout    time.Duration // per-chunk call bound; default 20s
	MessagesPerSec int           // chunk pacing; default 1
	RetryMax       int           // retries per chunk after the first attempt; default 2

	// Offline skips the Bot API handshake; used by tests.
	Offline bool
}

// Sender posts chunked HTML messages to a single chat.
type Sender struct {
	cfg Config
	log logx.Logger

	bot *tele.Bot
	to  tele.Recipient

	limiter *rate.Limiter

	sleep func(ctx context.Context, d time.Duration) error
}

// recipient adapts a raw chat id or @channel name to telebot.
type recipient string

func (r recipient) Recipient() string { return string(r) }

func New(cfg Config, log logx.Logger) (*Sender, error) {
	if strings.TrimSpace(cfg.Token) == "" || strings.TrimSpace(cfg.Channel) == "" {
		return nil, ErrNotConfigured
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 20 * time.Second
	}
	if cfg.MessagesPerSec <= 0 {
		cfg.MessagesPerSec = 1
	}
	if cfg.RetryMax == 0 {
		cfg.RetryMax = 2
	}
	if cfg.RetryMax < 0 {
		// Explicit "no retries".
		cfg.RetryMax = 0
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	bot, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		Offline: cfg.Offline,
		Client:  &http.Client{Timeout: cfg.SendTimeout},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}

	var to tele.Recipient
	ch := strings.TrimSpace(cfg.Channel)
	if id, err := strconv.ParseInt(ch, 10, 64); err == nil {
		to = tele.ChatID(id)
	} else {
		to = recipient(ch)
	}

	return &Sender{
		cfg:     cfg,
		log:     log,
		bot:     bot,
		to:      to,
		limiter: rate.NewLimiter(rate.Limit(cfg.MessagesPerSec), 1),
		sleep:   sleepCtx,
	}, nil
}

// SendReport splits text into <=4000-rune chunks and sends them in order.
// The first failing chunk aborts the remainder; earlier chunks stay posted.
func (s *Sender) SendReport(ctx context.Context, text string) error {
	chunks := tghtml.Chunk(text, tghtml.MaxMessageRunes)
	if len(chunks) == 0 {
		return nil
	}

	for i, chunk := range chunks {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		if err := s.sendChunk(ctx, chunk); err != nil {
			return fmt.Errorf("telegram chunk %d/%d: %w", i+1, len(chunks), err)
		}
		s.log.Info("telegram chunk sent", logx.Int("part", i+1), logx.Int("parts", len(chunks)))
	}
	return nil
}

func (s *Sender) sendChunk(ctx context.Context, chunk string) error {
	opts := &tele.SendOptions{
		ParseMode:             tele.ModeHTML,
		DisableWebPagePreview: true,
	}

	var lastErr error
	for attempt := 0; attempt <= s.cfg.RetryMax; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, err := s.bot.Send(s.to, chunk, opts)
		if err == nil {
			return nil
		}
		lastErr = err

		var flood tele.FloodError
		if errors.As(err, &flood) && flood.RetryAfter > 0 {
			// Server-advised wait, same treatment as the webhook 429 path.
			wait := time.Duration(flood.RetryAfter) * time.Second
			s.log.Warn("telegram flood wait", logx.Duration("sleep", wait), logx.Int("attempt", attempt+1))
			if serr := s.sleep(ctx, wait); serr != nil {
				return serr
			}
			continue
		}

		if attempt == s.cfg.RetryMax {
			break
		}
		wait := time.Duration(attempt+1) * time.Second
		s.log.Warn("telegram send failed; retrying",
			logx.Err(err), logx.Int("attempt", attempt+1), logx.Duration("sleep", wait))
		if serr := s.sleep(ctx, wait); serr != nil {
			return serr
		}
	}
	return lastErr
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

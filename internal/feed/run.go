package feed

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"w3feed/internal/stats"
	"w3feed/internal/storage"
	"w3feed/internal/transport"
	"w3feed/internal/transport/discord"
	logx "w3feed/pkg/logx"
)

// StatSource provides ladder data for one player.
type StatSource interface {
	Normalize(ctx context.Context, battleTag string) string
	Summarize(ctx context.Context, battleTag string) (stats.Summary, error)
}

// PageScraper provides best-effort match lines from the public site.
type PageScraper interface {
	RecentMatches(ctx context.Context, battleTag string) []string
}

// ChatSender posts the combined HTML report to the chat channel.
type ChatSender interface {
	SendReport(ctx context.Context, text string) error
}

// BatchDeliverer posts one embed batch to the webhook channel.
type BatchDeliverer interface {
	Deliver(ctx context.Context, batch transport.Batch) discord.Result
}

const (
	playerPause = 300 * time.Millisecond
	batchPause  = 1 * time.Second
)

// RunSummary reports what one publish run did.
type RunSummary struct {
	AlreadySent bool
	Date        string

	Players      int
	TelegramSent bool
	Discord      discord.Result

	Took time.Duration
}

// Publisher runs the daily report: gather, format, deliver, mark done.
// Runs are serialized; concurrent triggers queue behind runMu and the
// second one exits through the gate.
type Publisher struct {
	runMu sync.Mutex

	gate    *Gate
	stats   StatSource
	scraper PageScraper
	chat    ChatSender
	webhook BatchDeliverer

	// PlayersFn resolves the tracked battle tags at run time, so config
	// reloads and players-file edits take effect without a restart.
	players func() ([]string, error)

	profileBase string

	store storage.Store
	log   logx.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// Options bundles the publisher's collaborators. Gate, Stats and PlayersFn
// are required; Scraper, Chat, Webhook and Store may be nil and degrade to
// no-ops for their part of the run.
type Options struct {
	Gate    *Gate
	Stats   StatSource
	Scraper PageScraper
	Chat    ChatSender
	Webhook BatchDeliverer

	PlayersFn func() ([]string, error)

	// ProfileBase is the public site root used for embed links.
	ProfileBase string

	Store storage.Store
	Log   logx.Logger
}

func NewPublisher(opts Options) *Publisher {
	log := opts.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	if strings.TrimSpace(opts.ProfileBase) == "" {
		opts.ProfileBase = "https://www.w3champions.com"
	}
	return &Publisher{
		gate:        opts.Gate,
		stats:       opts.Stats,
		scraper:     opts.Scraper,
		chat:        opts.Chat,
		webhook:     opts.Webhook,
		players:     opts.PlayersFn,
		profileBase: strings.TrimSuffix(opts.ProfileBase, "/"),
		store:       opts.Store,
		log:         log,
		now:         time.Now,
		sleep:       sleepCtx,
	}
}

// Run executes one publish attempt. It returns an error only for
// orchestration failures (players unresolvable); per-player and per-channel
// failures are logged, recorded in the summary, and do not fail the run.
func (p *Publisher) Run(ctx context.Context) (RunSummary, error) {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	started := p.now()
	today := started.Format(DateLayout)
	sum := RunSummary{Date: today}

	if !p.gate.TryBegin(today) {
		p.log.Info("report already published today; skipping", logx.String("date", today))
		sum.AlreadySent = true
		return sum, nil
	}

	tags, err := p.players()
	if err != nil {
		p.log.Error("players list unavailable; run aborted", logx.Err(err))
		p.audit(ctx, sum, err)
		return sum, err
	}
	sum.Players = len(tags)
	p.log.Info("publish run started",
		logx.String("date", today), logx.Int("players", len(tags)))

	report, batch := p.collect(ctx, today, tags)

	if p.chat != nil {
		if err := p.chat.SendReport(ctx, report); err != nil {
			p.log.Error("telegram send failed", logx.Err(err))
		} else {
			sum.TelegramSent = true
		}
	}

	sum.Discord = p.deliverBatches(ctx, batch)

	// A cancelled trigger is not a handled delivery failure: the channels
	// never got their full chance, so the day stays open for a retrigger.
	if err := ctx.Err(); err != nil {
		p.log.Warn("publish run interrupted; leaving the day open",
			logx.String("date", today), logx.Err(err))
		sum.Took = p.now().Sub(started)
		p.audit(ctx, sum, err)
		return sum, fmt.Errorf("run interrupted: %w", err)
	}

	// Every channel had its chance; the day is spent either way.
	p.gate.MarkComplete(ctx, today)

	sum.Took = p.now().Sub(started)
	p.log.Info("publish run finished",
		logx.String("date", today),
		logx.Bool("telegram_sent", sum.TelegramSent),
		logx.String("discord", string(sum.Discord.State)),
		logx.Duration("took", sum.Took))
	p.audit(ctx, sum, nil)
	return sum, nil
}

// collect gathers per-player stats and builds both channel payloads. A
// player whose API fetch fails still gets a section, with zeroed totals.
func (p *Publisher) collect(ctx context.Context, today string, tags []string) (string, transport.Batch) {
	var report strings.Builder
	report.WriteString(BuildHeader(today))

	var batch transport.Batch
	at := p.now().UTC()

	for i, tag := range tags {
		if i > 0 {
			if err := p.sleep(ctx, playerPause); err != nil {
				p.log.Warn("collection interrupted", logx.Err(err))
				break
			}
		}

		tag = p.stats.Normalize(ctx, tag)

		s, err := p.stats.Summarize(ctx, tag)
		if err != nil {
			p.log.Warn("stats fetch failed; reporting empty totals",
				logx.String("player", tag), logx.Err(err))
		}

		var siteLines []string
		if p.scraper != nil {
			siteLines = p.scraper.RecentMatches(ctx, tag)
		}

		section := BuildPlayerSection(tag, s, siteLines)
		report.WriteString(section)
		if i < len(tags)-1 {
			report.WriteString(sectionRule)
			report.WriteString("\n\n")
		}

		batch = append(batch, transport.Message{
			Title: PlayerTitle(tag, s.Season),
			Body:  HTMLToMarkdown(section),
			URL:   ProfileURL(p.profileBase, tag),
			At:    at,
		})
	}

	return report.String(), batch
}

// deliverBatches splits the messages into webhook-sized calls. The last
// result wins; one exhausted batch marks the channel exhausted for the run.
func (p *Publisher) deliverBatches(ctx context.Context, batch transport.Batch) discord.Result {
	if p.webhook == nil {
		return discord.Result{State: discord.StateSkipped, Body: "webhook channel not configured"}
	}

	last := discord.Result{State: discord.StateEmpty}
	for start := 0; start < len(batch); start += discord.MaxEmbedsPerCall {
		end := start + discord.MaxEmbedsPerCall
		if end > len(batch) {
			end = len(batch)
		}
		if start > 0 {
			if err := p.sleep(ctx, batchPause); err != nil {
				return last
			}
		}
		last = p.webhook.Deliver(ctx, batch[start:end])
		if last.State == discord.StateSkipped {
			return last
		}
	}
	if len(batch) == 0 {
		return p.webhook.Deliver(ctx, nil)
	}
	return last
}

func (p *Publisher) audit(ctx context.Context, sum RunSummary, runErr error) {
	if p.store == nil {
		return
	}
	entry := storage.RunEntry{
		At:           p.now().UTC(),
		Date:         sum.Date,
		Players:      sum.Players,
		TelegramSent: sum.TelegramSent,
		DiscordState: string(sum.Discord.State),
		DiscordCode:  sum.Discord.Code,
		TookMS:       sum.Took.Milliseconds(),
	}
	if runErr != nil {
		entry.Error = runErr.Error()
	}
	// Audit even when the run was cancelled; interrupted runs are the ones
	// worth finding in the log later.
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := p.store.AppendRun(cctx, entry); err != nil {
		p.log.Warn("run audit append failed", logx.Err(err))
	}
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

// Package app wires the configuration, channels, and trigger surfaces into
// one runnable service.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"w3feed/internal/config"
	"w3feed/internal/feed"
	"w3feed/internal/observability/pprof"
	"w3feed/internal/scheduler"
	"w3feed/internal/scraper"
	"w3feed/internal/server"
	"w3feed/internal/stats"
	"w3feed/internal/storage"
	"w3feed/internal/transport/discord"
	"w3feed/internal/transport/telegram"
	logx "w3feed/pkg/logx"
)

type App struct {
	cfgm *config.Manager

	logs *logx.Service
	log  logx.Logger

	store storage.Store

	stats   *stats.Client
	scraper *scraper.Scraper
	discord *discord.Client
	tg      *telegram.Sender

	pub   *feed.Publisher
	srv   *server.Server
	sched *scheduler.Scheduler
	prof  *pprof.Service

	watchCancel context.CancelFunc
	watchDone   chan struct{}
	cfgSub      chan *config.Config
}

func New(ctx context.Context, cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	logs, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	a := &App{cfgm: cfgm, logs: logs, log: log}

	if cfg.Storage != nil {
		storeCfg, err := storageConfig(*cfg.Storage)
		if err != nil {
			return nil, err
		}
		store, err := storage.Open(storeCfg, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		a.store = store
	}

	statsCfg, err := statsConfig(cfg.Stats)
	if err != nil {
		return nil, err
	}
	a.stats = stats.New(statsCfg, log.With(logx.String("comp", "stats")))

	scrCfg, err := scraperConfig(cfg.Scraper)
	if err != nil {
		return nil, err
	}
	a.scraper = scraper.New(scrCfg, log.With(logx.String("comp", "scraper")))

	a.discord = discord.New(discordConfig(cfg.Discord), log.With(logx.String("comp", "discord")))

	tgCfg, err := telegramConfig(cfg.Telegram)
	if err != nil {
		return nil, err
	}
	tg, err := telegram.New(tgCfg, log.With(logx.String("comp", "telegram")))
	switch {
	case errors.Is(err, telegram.ErrNotConfigured):
		log.Warn("telegram not configured; chat channel disabled")
	case err != nil:
		return nil, err
	default:
		a.tg = tg
	}

	gate := feed.NewGate(ctx, a.store, log.With(logx.String("comp", "gate")))

	opts := feed.Options{
		Gate:    gate,
		Stats:   a.stats,
		Scraper: a.scraper,
		Webhook: a.discord,
		PlayersFn: func() ([]string, error) {
			return feed.LoadPlayers(cfgm.Get().Players)
		},
		ProfileBase: cfg.Scraper.BaseURL,
		Store:       a.store,
		Log:         log.With(logx.String("comp", "feed")),
	}
	if a.tg != nil {
		opts.Chat = a.tg
	}
	a.pub = feed.NewPublisher(opts)

	srvCfg, err := serverConfig(cfg.Server)
	if err != nil {
		return nil, err
	}
	a.srv = server.New(srvCfg, a.pub, log)

	a.sched = scheduler.New(func(ctx context.Context) error {
		_, err := a.pub.Run(ctx)
		return err
	}, log)

	a.prof = pprof.New(log)

	return a, nil
}

// Start brings up the trigger surfaces and the config watcher.
func (a *App) Start(ctx context.Context) error {
	cfg := a.cfgm.Get()

	if err := a.srv.Start(); err != nil {
		return err
	}
	if err := a.sched.Start(scheduler.Config{
		Enabled:  cfg.Scheduler.Enabled,
		Spec:     cfg.Scheduler.Spec,
		Timezone: cfg.Scheduler.Timezone,
	}); err != nil {
		a.srv.Stop(ctx)
		return err
	}
	a.prof.Apply(ctx, pprof.Config{Enabled: cfg.Pprof.Enabled, Addr: cfg.Pprof.Addr})

	wctx, cancel := context.WithCancel(context.Background())
	a.watchCancel = cancel
	a.watchDone = make(chan struct{})
	a.cfgSub = a.cfgm.Subscribe(1)

	go func() {
		defer close(a.watchDone)
		_ = a.cfgm.Watch(wctx)
	}()
	go a.reloadLoop(wctx)

	a.log.Info("w3feed started",
		logx.Bool("server", cfg.Server.Enabled),
		logx.Bool("scheduler", cfg.Scheduler.Enabled),
		logx.Bool("telegram", a.tg != nil),
		logx.Bool("storage", a.store != nil))
	return nil
}

// Publisher exposes the run entry point for out-of-band triggers.
func (a *App) Publisher() *feed.Publisher { return a.pub }

// reloadLoop re-applies hot-reloadable settings when the config file changes.
// Telegram credentials and the listen surfaces need a restart; everything
// else takes effect live.
func (a *App) reloadLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-a.cfgSub:
			if !ok {
				return
			}
			a.applyConfig(ctx, cfg)
		}
	}
}

func (a *App) applyConfig(ctx context.Context, cfg *config.Config) {
	a.logs.Apply(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})

	if statsCfg, err := statsConfig(cfg.Stats); err != nil {
		a.log.Warn("reload: bad stats config; keeping previous", logx.Err(err))
	} else {
		a.stats.Apply(statsCfg)
	}

	if scrCfg, err := scraperConfig(cfg.Scraper); err != nil {
		a.log.Warn("reload: bad scraper config; keeping previous", logx.Err(err))
	} else {
		a.scraper.Apply(scrCfg)
	}

	a.discord.Apply(discordConfig(cfg.Discord))
	a.prof.Apply(ctx, pprof.Config{Enabled: cfg.Pprof.Enabled, Addr: cfg.Pprof.Addr})

	a.log.Info("config re-applied")
}

// Stop shuts everything down in reverse start order.
func (a *App) Stop(ctx context.Context) {
	if a.watchCancel != nil {
		a.watchCancel()
	}
	if a.cfgSub != nil {
		a.cfgm.Unsubscribe(a.cfgSub)
	}

	a.sched.Stop(ctx)
	a.srv.Stop(ctx)
	a.prof.Stop(ctx)

	if a.watchDone != nil {
		select {
		case <-a.watchDone:
		case <-ctx.Done():
		}
	}

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("storage close failed", logx.Err(err))
		}
	}

	a.log.Info("w3feed stopped")
	_ = a.logs.Close()
}

// ---- config mapping ----

func statsConfig(c config.StatsConfig) (stats.Config, error) {
	timeout, err := config.ParseDurationOrDefault("stats.timeout", c.Timeout, 20*time.Second)
	if err != nil {
		return stats.Config{}, err
	}
	return stats.Config{
		BaseURL:          c.BaseURL,
		Season:           c.Season,
		Gateway:          c.Gateway,
		MatchesToFetch:   c.MatchesToFetch,
		MatchesToAnalyze: c.MatchesToAnalyze,
		Timeout:          timeout,
	}, nil
}

func scraperConfig(c config.ScraperConfig) (scraper.Config, error) {
	timeout, err := config.ParseDurationOrDefault("scraper.timeout", c.Timeout, 20*time.Second)
	if err != nil {
		return scraper.Config{}, err
	}
	return scraper.Config{
		BaseURL:         c.BaseURL,
		MatchesFromSite: c.MatchesFromSite,
		Timeout:         timeout,
	}, nil
}

func discordConfig(c config.DiscordConfig) discord.Config {
	return discord.Config{
		Disabled:   c.Disabled,
		WebhookURL: c.WebhookURL,
		Username:   c.Username,
	}
}

func telegramConfig(c config.TelegramConfig) (telegram.Config, error) {
	timeout, err := config.ParseDurationOrDefault("telegram.send_timeout", c.SendTimeout, 20*time.Second)
	if err != nil {
		return telegram.Config{}, err
	}
	return telegram.Config{
		Token:          c.Token,
		Channel:        c.Channel,
		SendTimeout:    timeout,
		MessagesPerSec: c.MessagesPerSec,
		RetryMax:       c.RetryMax,
	}, nil
}

func serverConfig(c config.ServerConfig) (server.Config, error) {
	read, err := config.ParseDurationOrDefault("server.read_timeout", c.ReadTimeout, 10*time.Second)
	if err != nil {
		return server.Config{}, err
	}
	write, err := config.ParseDurationOrDefault("server.write_timeout", c.WriteTimeout, 5*time.Minute)
	if err != nil {
		return server.Config{}, err
	}
	idle, err := config.ParseDurationOrDefault("server.idle_timeout", c.IdleTimeout, time.Minute)
	if err != nil {
		return server.Config{}, err
	}
	return server.Config{
		Enabled:      c.Enabled,
		Addr:         c.Addr,
		ReadTimeout:  read,
		WriteTimeout: write,
		IdleTimeout:  idle,
	}, nil
}

func storageConfig(c config.StorageConfig) (storage.Config, error) {
	busy, err := config.ParseDurationField("storage.busy_timeout", c.BusyTimeout)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{
		Driver:      c.Driver,
		Path:        c.Path,
		BusyTimeout: busy,
	}, nil
}

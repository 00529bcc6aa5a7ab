package config

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Discord  DiscordConfig  `json:"discord"`

	Stats   StatsConfig   `json:"stats"`
	Scraper ScraperConfig `json:"scraper"`
	Players PlayersConfig `json:"players"`

	Logging   LoggingConfig   `json:"logging"`
	Server    ServerConfig    `json:"server"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Pprof     PprofConfig     `json:"pprof,omitempty"`

	// Storage enables the optional persisted run state (last publish date +
	// run audit records). If omitted, the daily gate is in-memory only and a
	// restart may re-publish for the same day.
	Storage *StorageConfig `json:"storage,omitempty"`
}

// TelegramConfig configures the chat channel.
// An empty token or channel disables the channel (a documented no-op, not an error).
type TelegramConfig struct {
	Token   string `json:"token"`
	Channel string `json:"channel"` // numeric chat id or @channelname

	// SendTimeout bounds a single sendMessage call. Go duration string; default "20s".
	SendTimeout string `json:"send_timeout,omitempty"`
	// MessagesPerSec paces chunked sends. Default 1 (one chunk per second).
	MessagesPerSec int `json:"messages_per_sec,omitempty"`
	// RetryMax is the number of retries per chunk after the first attempt. Default 2.
	RetryMax int `json:"retry_max,omitempty"`
}

// DiscordConfig configures the webhook channel.
type DiscordConfig struct {
	// Disabled administratively turns the channel off while keeping the URL configured.
	Disabled   bool   `json:"disabled,omitempty"`
	WebhookURL string `json:"webhook_url"`
	Username   string `json:"username,omitempty"` // default "WC3 Stats"
}

// StatsConfig configures the W3Champions statistics API client.
type StatsConfig struct {
	BaseURL string `json:"base_url,omitempty"` // default https://website-backend.w3champions.com

	Season  int `json:"season"`  // default 22
	Gateway int `json:"gateway"` // default 20

	MatchesToFetch   int `json:"matches_to_fetch,omitempty"`   // default 100
	MatchesToAnalyze int `json:"matches_to_analyze,omitempty"` // default 10

	// Timeout bounds a single API call. Go duration string; default "20s".
	Timeout string `json:"timeout,omitempty"`
}

// ScraperConfig configures the player matches page scraper.
type ScraperConfig struct {
	BaseURL string `json:"base_url,omitempty"` // default https://www.w3champions.com

	MatchesFromSite int `json:"matches_from_site,omitempty"` // default 5

	Timeout string `json:"timeout,omitempty"` // default "20s"
}

// PlayersConfig lists the tracked battle tags.
// If File is set it takes precedence over List (one tag per line, blanks skipped).
type PlayersConfig struct {
	List []string `json:"list,omitempty"`
	File string   `json:"file,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// ServerConfig controls the HTTP trigger surface ("/" liveness, "/run").
type ServerConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default ":5000"

	// Server timeouts (Go duration strings). WriteTimeout must cover a full
	// run (fetch + retries), so it defaults to 0 (disabled).
	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
	IdleTimeout  string `json:"idle_timeout,omitempty"`
}

// SchedulerConfig controls the optional in-process trigger. When disabled,
// publishing only happens via the HTTP /run endpoint (external cron).
type SchedulerConfig struct {
	Enabled bool `json:"enabled"`

	// Spec is a cron expression (5- or 6-field) or descriptor like "@daily".
	Spec     string `json:"spec,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// PprofConfig controls the optional pprof HTTP server.
//
// Security note: prefer binding to localhost (e.g. "127.0.0.1:6060").
type PprofConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default "127.0.0.1:6060"
}

// StorageConfig controls the optional persistence layer.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./w3feed_store" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

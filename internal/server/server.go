// Package server exposes the HTTP trigger surface: a liveness root and a
// /run endpoint that fires one publish attempt.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"w3feed/internal/feed"
	logx "w3feed/pkg/logx"
)

// Runner is the publish entry point the trigger calls into.
type Runner interface {
	Run(ctx context.Context) (feed.RunSummary, error)
}

type Config struct {
	Enabled bool
	Addr    string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.Addr) == "" {
		c.Addr = ":5000"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		// A run fetches every player synchronously; give it room.
		c.WriteTimeout = 5 * time.Minute
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 60 * time.Second
	}
	return c
}

// Server owns the trigger listener lifecycle.
type Server struct {
	mu   sync.Mutex
	cfg  Config
	log  logx.Logger
	run  Runner
	srv  *http.Server
	ln   net.Listener
	addr string
}

func New(cfg Config, run Runner, log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Server{
		cfg: cfg.withDefaults(),
		log: log.With(logx.String("comp", "server")),
		run: run,
	}
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cfg.Enabled || s.srv != nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("trigger listen on %s: %w", s.cfg.Addr, err)
	}

	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}
	s.srv = srv
	s.ln = ln
	s.addr = ln.Addr().String()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("trigger server error", logx.String("addr", s.addr), logx.Err(err))
		}
	}()
	s.log.Info("trigger server started", logx.String("addr", s.addr))
	return nil
}

// Stop gracefully shuts the listener down.
func (s *Server) Stop(ctx context.Context) {
	s.mu.Lock()
	srv, ln, addr := s.srv, s.ln, s.addr
	s.srv, s.ln, s.addr = nil, nil, ""
	s.mu.Unlock()

	if srv == nil {
		return
	}
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Warn("trigger shutdown error", logx.String("addr", addr), logx.Err(err))
	}
	if ln != nil {
		_ = ln.Close()
	}
	s.log.Info("trigger server stopped", logx.String("addr", addr))
}

// Addr reports the bound address, useful when Addr was ":0".
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Handler builds the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/run", s.handleRun)
	return mux
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "w3feed is alive")
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sum, err := s.run.Run(r.Context())
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	switch {
	case err != nil:
		s.log.Error("triggered run failed", logx.Err(err))
		http.Error(w, "run failed: "+err.Error(), http.StatusInternalServerError)
	case sum.AlreadySent:
		fmt.Fprintf(w, "already sent for %s\n", sum.Date)
	default:
		fmt.Fprintf(w, "posted for %s: players=%d telegram=%t discord=%s\n",
			sum.Date, sum.Players, sum.TelegramSent, sum.Discord.State)
	}
}

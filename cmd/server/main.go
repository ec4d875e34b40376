package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gyaneshwarpardhi/dlgedit/internal/api"
	"github.com/gyaneshwarpardhi/dlgedit/internal/config"
	"github.com/gyaneshwarpardhi/dlgedit/internal/dialog"
	"github.com/gyaneshwarpardhi/dlgedit/internal/event"
	"github.com/gyaneshwarpardhi/dlgedit/internal/tlk"
	"github.com/gyaneshwarpardhi/dlgedit/internal/trash"
	"github.com/gyaneshwarpardhi/dlgedit/internal/workspace"
)

func main() {
	addr := flag.String("addr", "", "HTTP listen address (overrides server.addr)")
	cfgPath := flag.String("config", "", "Path to editor YAML config (defaults apply when empty)")
	debug := flag.Bool("debug", false, "Log at debug level")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// ── Load config ──────────────────────────────────────────────────────────
	var loader *config.Loader
	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		loader, err = config.NewLoader(*cfgPath)
		if err != nil {
			slog.Error("failed to load config", "err", err)
			os.Exit(1)
		}
		cfg = loader.Config()
	}
	if err := config.Validate(cfg); err != nil {
		slog.Error("config validation failed", "err", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	// ── Collaborators ─────────────────────────────────────────────────────────
	store, err := trash.Open(cfg.Trash.Driver, cfg.Trash.Path)
	if err != nil {
		slog.Error("failed to open trash store", "err", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("trash store ready", "driver", cfg.Trash.Driver, "path", cfg.Trash.Path)

	var resolver dialog.TextResolver
	if cfg.TLK.Path != "" || cfg.TLK.InMemory {
		tc := tlk.DefaultConfig(cfg.TLK.Path)
		if cfg.TLK.InMemory {
			tc = tlk.InMemoryConfig()
		}
		tc.Logger = logger.With("component", "tlk")
		table, err := tlk.Open(tc)
		if err != nil {
			slog.Error("failed to open string table", "err", err)
			os.Exit(1)
		}
		defer table.Close()
		if n, err := table.Len(); err == nil {
			slog.Info("string table ready", "entries", n)
		}
		resolver = table
	}

	// ── Workspace ─────────────────────────────────────────────────────────────
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ws := workspace.New(ctx, cfg.Editor, store, resolver, logger)
	ws.OnChange(func(c event.Change) {
		slog.Debug("dialog changed", "dialog", c.DialogID, "op", c.Op, "label", c.Label)
	})
	for _, p := range flag.Args() {
		id, err := ws.Open(p)
		if err != nil {
			slog.Warn("could not open dialog", "path", p, "err", err)
			continue
		}
		slog.Info("dialog ready", "id", id, "path", p)
	}

	// ── Hot-reload watcher ────────────────────────────────────────────────────
	if loader != nil {
		loader.OnChange(func(newCfg *config.Config) {
			if err := config.Validate(newCfg); err != nil {
				slog.Warn("hot-reload skipped: config invalid", "err", err)
				return
			}
			ws.SetConfig(newCfg.Editor)
		})
		stopWatch, err := loader.Watch()
		if err != nil {
			slog.Warn("config watcher unavailable (hot-reload disabled)", "err", err)
		} else {
			defer stopWatch()
		}
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	handler, err := api.New(ws, loader, cfg.Server.DialogRoot)
	if err != nil {
		slog.Error("failed to build HTTP handler", "err", err)
		os.Exit(1)
	}
	slog.Info("serving dialog files", "root", cfg.Server.DialogRoot)
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutMs) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutMs) * time.Millisecond,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down…")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	ws.Shutdown()
	cancel() // stop worker pool
	slog.Info("goodbye")
}

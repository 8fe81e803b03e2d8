package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/cwrk-planet/voice-testbench/internal/activity"
	"github.com/cwrk-planet/voice-testbench/internal/app/catalog"
	"github.com/cwrk-planet/voice-testbench/internal/app/control"
	"github.com/cwrk-planet/voice-testbench/internal/app/livekit"
	"github.com/cwrk-planet/voice-testbench/internal/app/logs"
	"github.com/cwrk-planet/voice-testbench/internal/config"
	"github.com/cwrk-planet/voice-testbench/internal/metrics"
	httpserver "github.com/cwrk-planet/voice-testbench/internal/server/http"
	transport "github.com/cwrk-planet/voice-testbench/internal/transport/http"
	"github.com/cwrk-planet/voice-testbench/internal/transport/ws"
	"github.com/cwrk-planet/voice-testbench/pkg/errs"
	"github.com/cwrk-planet/voice-testbench/pkg/logger"
	"github.com/cwrk-planet/voice-testbench/web"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to config.yaml (default: $CONFIG_PATH or config/config.yaml)")
	pflag.Parse()

	// 1) load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		println("failed to load config:", err.Error())
		os.Exit(1)
	}

	// 2) init logger (set.Default)
	logger.Init(logger.Config{
		Env:       logger.ParseEnv(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Level:     logger.ParseLevel(cfg.Logging.Level),
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting voice-testbench", "version", cfg.Logging.Version, "addr", cfg.HTTP.Addr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// 3) upstream clients; ненастроенный клиент остаётся nil
	lk, err := livekit.New(livekit.Options{
		URL:       cfg.LiveKit.URL,
		APIKey:    cfg.LiveKit.APIKey,
		APISecret: cfg.LiveKit.APISecret,
		Timeout:   cfg.LiveKit.Timeout,
		Metrics:   m,
	})
	if err != nil {
		if !errors.Is(err, errs.ErrNotConfigured) {
			slog.Error("livekit client init failed", "err", err)
			os.Exit(1)
		}
		slog.Warn("livekit not configured, rooms are disabled")
	}

	ctl, err := control.New(control.Options{
		BaseURL: cfg.ControlAPI.URL,
		Timeout: cfg.ControlAPI.Timeout,
		Metrics: m,
	})
	if err != nil {
		if !errors.Is(err, errs.ErrNotConfigured) {
			slog.Error("control api client init failed", "err", err)
			os.Exit(1)
		}
		slog.Warn("control api not configured, calls and configs are disabled")
	}

	cw := logs.NewCloudWatch(logs.NewAWSClient, m)
	local := logs.NewLocal(logs.LocalOptions{
		Dir:          cfg.LocalLogs.Dir,
		Command:      cfg.LocalLogs.Command,
		ComposeFiles: cfg.LocalLogs.ComposeFile,
		Timeout:      cfg.LocalLogs.Timeout,
		MaxBytes:     cfg.LocalLogs.MaxBytes,
		Metrics:      m,
	})

	// 4) activity log: store + рассылка в дашборды и NATS
	store, err := activity.Open(ctx, cfg.State.Backend, cfg.State.DSN)
	if err != nil {
		slog.Error("activity store init failed", "backend", cfg.State.Backend, "err", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	hub := ws.NewHub()
	pubs := activity.MultiPublisher{hub}
	if cfg.Events.NatsURL != "" {
		np, err := activity.NewNATSPublisher(cfg.Events.NatsURL, cfg.Events.SubjectPrefix)
		if err != nil {
			slog.Error("nats connect failed", "err", err)
			os.Exit(1)
		}
		defer np.Close()
		pubs = append(pubs, np)
	}
	journal := activity.NewLog(store, activity.Options{
		Cap:       cfg.State.MaxEntries,
		Publisher: pubs,
		Metrics:   m,
	})

	var rooms ws.RoomLister
	if lk != nil {
		rooms = lk
	}
	live := ws.NewServer(hub, rooms, ws.Options{Interval: cfg.Live.Interval, Metrics: m})

	// 5) router init
	router := transport.NewRouter(transport.Deps{
		Config:     cfg,
		LiveKit:    lk,
		Control:    ctl,
		CloudWatch: cw,
		Local:      local,
		Activity:   journal,
		Catalog:    catalog.Default(),
		Metrics:    m,
		LiveRooms:  live.HandleRooms,
		Static:     web.Static(),
		LookupEnv:  os.LookupEnv,
	})

	// 6) server init
	srv := httpserver.New(httpserver.Config{
		Addr:         cfg.HTTP.Addr,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}, router)
	srv.OnShutdown(hub.CloseAll)

	// 7) graceful shutdown
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("server stopped with error", "err", err)
		os.Exit(1)
	}

	slog.Info("voice-testbench stopped")
}

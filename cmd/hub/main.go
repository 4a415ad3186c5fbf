package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/OmarEhab007/notification-hub/internal/adminapi"
	"github.com/OmarEhab007/notification-hub/internal/config"
	"github.com/OmarEhab007/notification-hub/internal/hub"
	"github.com/OmarEhab007/notification-hub/internal/natsadapter"
	"github.com/OmarEhab007/notification-hub/internal/serialadapter"
	"github.com/OmarEhab007/notification-hub/internal/wsclient"
	"github.com/OmarEhab007/notification-hub/internal/wsserver"
)

func main() {
	// Load .env file if present (development convenience).
	_ = godotenv.Load()             // .env in the working directory
	_ = godotenv.Load("../.env")    // one directory up
	_ = godotenv.Load("../../.env") // two directories up: the repository root when running from cmd/hub/

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)
	slog.Info("starting notification hub", "env", cfg.Environment)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := hub.New(slog.Default())

	if cfg.SerialPort != "" {
		handle, err := os.OpenFile(cfg.SerialPort, os.O_RDWR, 0)
		if err != nil {
			slog.Error("failed to open serial port", "port", cfg.SerialPort, "error", err)
			os.Exit(1)
		}
		slog.Info("attaching serial adapter", "port", cfg.SerialPort, "baud", cfg.SerialBaud)
		manager.Add(serialadapter.Open(cfg.SerialPort, handle, slog.Default()))
	}

	if cfg.PipePath != "" {
		writePipe, err := os.OpenFile(cfg.PipePath+".out", os.O_WRONLY, 0)
		if err != nil {
			slog.Error("failed to open outbound pipe", "path", cfg.PipePath, "error", err)
			os.Exit(1)
		}
		readPipe, err := os.OpenFile(cfg.PipePath+".in", os.O_RDONLY, 0)
		if err != nil {
			slog.Error("failed to open inbound pipe", "path", cfg.PipePath, "error", err)
			os.Exit(1)
		}
		slog.Info("attaching pipe adapter", "path", cfg.PipePath)
		manager.Add(serialadapter.OpenPipe(cfg.PipePath, writePipe, readPipe, slog.Default()))
	}

	for _, url := range cfg.WSClientURLs {
		wsAdapter, err := wsclient.New(ctx, url, slog.Default())
		if err != nil {
			slog.Warn("failed to attach websocket client adapter; skipping", "url", url, "error", err)
			continue
		}
		slog.Info("attaching websocket client adapter", "url", url)
		manager.Add(wsAdapter)
	}

	if cfg.NATSURL != "" {
		natsAdapter, err := natsadapter.Connect(cfg.NATSURL, slog.Default())
		if err != nil {
			slog.Warn("failed to attach NATS adapter; skipping", "url", cfg.NATSURL, "error", err)
		} else {
			slog.Info("attaching NATS adapter", "url", cfg.NATSURL)
			manager.Add(natsAdapter)
		}
	}

	if err := manager.Start(ctx); err != nil {
		slog.Error("failed to start hub manager", "error", err)
		os.Exit(1)
	}
	started := true

	wsSrv := wsserver.New(manager, slog.Default())
	wsHTTPSrv := &http.Server{
		Addr:         cfg.WSListenAddr,
		Handler:      wsSrv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	adminRouter := adminapi.NewRouter(adminapi.Config{
		Hub:            manager,
		AllowedOrigins: []string{"*"},
		Started:        func() bool { return started },
	})
	adminSrv := &http.Server{
		Addr:         cfg.AdminAddr,
		Handler:      adminRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		slog.Info("websocket pub/sub server listening", "addr", wsHTTPSrv.Addr)
		errCh <- wsHTTPSrv.ListenAndServe()
	}()
	go func() {
		slog.Info("admin HTTP server listening", "addr", adminSrv.Addr)
		errCh <- adminSrv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := wsHTTPSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("websocket server shutdown error", "error", err)
	}
	if err := adminSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("admin server shutdown error", "error", err)
	}

	slog.Info("notification hub stopped")
}

func setupLogger(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}

package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"

	"pokerserver/aiadapter"
	"pokerserver/internal/config"
	"pokerserver/internal/httpapi"
	"pokerserver/room"
)

var CLI struct {
	Addr     string `short:"a" long:"addr" help:"Server address to bind to (overrides SERVER_ADDR)"`
	LogLevel string `short:"l" long:"log-level" default:"info" help:"Log level: debug, info, warn, error"`
	MaxRooms int    `short:"m" long:"max-rooms" help:"Maximum concurrent rooms (overrides MAX_ROOMS)"`
}

func main() {
	kong.Parse(&CLI)

	logger := log.New(os.Stderr)
	logger.SetColorProfile(termenv.TrueColor)
	switch CLI.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Fatal("failed to load config", "error", err)
	}
	if CLI.Addr != "" {
		cfg.ServerAddr = CLI.Addr
	}
	if CLI.MaxRooms > 0 {
		cfg.MaxRooms = CLI.MaxRooms
	}
	if cfg.DeepSeekAPIKey == "" {
		logger.Warn("no DeepSeek API key configured, automated seats will use fallback play only")
	}

	aiClient := aiadapter.New(aiadapter.Config{
		APIKey:  cfg.DeepSeekAPIKey,
		Model:   cfg.DeepSeekModel,
		URL:     cfg.DeepSeekURL,
		Timeout: cfg.DeepSeekTimeout,
	}, logger.With("component", "aiadapter"))

	registry := room.NewRegistry(cfg.MaxRooms, aiClient, logger.With("component", "room"))
	server := httpapi.NewServer(registry, logger.With("component", "httpapi"))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /", handleIndex)
	server.RegisterRoutes(mux)

	if info, err := os.Stat("web"); err == nil && info.IsDir() {
		mux.Handle("GET /assets/", http.StripPrefix("/assets/", http.FileServer(http.Dir("web"))))
	}

	logger.Info("starting poker server", "addr", cfg.ServerAddr, "max_rooms", cfg.MaxRooms)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: httpapi.WithCORS(mux),
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-shutdown
		logger.Info("shutting down")
		os.Exit(0)
	}()

	if err := srv.ListenAndServe(); err != nil {
		logger.Fatal("server failed", "error", err)
	}
}

func handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintln(w, `{"service":"pokerserver","status":"ok"}`)
}

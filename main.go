package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"spedify/pkg/cache"
	"spedify/pkg/config"
	"spedify/pkg/fetch"
	"spedify/pkg/logger"
	"spedify/pkg/scheduler"
	"spedify/pkg/scrapers/generative"
	"spedify/pkg/search"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	cfg := config.Load()

	zl, err := logger.New(cfg.Server.Env, cfg.Server.LogFile)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zl.Sync()

	store, err := cache.New(cfg.Cache.DBPath, cfg.Cache.TTL, zl.Named("cache"))
	if err != nil {
		zl.Fatal("failed to initialize cache", zap.Error(err))
	}
	defer store.Close()
	zl.Info("cache initialized", zap.String("path", cfg.Cache.DBPath), zap.Duration("ttl", cfg.Cache.TTL))

	var fetcher fetch.Fetcher = fetch.NewCollyFetcher(cfg.Scraper.FetchTimeout, zl.Named("fetch"))
	if cfg.Scraper.RenderedFetch {
		fetcher = fetch.NewFallbackFetcher(zl.Named("fetch"),
			fetcher,
			fetch.NewRenderedFetcher(cfg.Scraper.FetchTimeout, zl.Named("rendered")),
		)
	}

	var gen generative.Generator
	if groq, err := generative.NewGroqGenerator(cfg.Scraper.GroqAPIKey); err == nil {
		gen = groq
	} else {
		zl.Info("generative extraction disabled", zap.Error(err))
	}

	orchestrator := search.New(fetcher, gen, search.Options{
		FetchTimeout: cfg.Scraper.FetchTimeout,
		ProbeTimeout: cfg.Scraper.ProbeTimeout,
		Parallelism:  cfg.Scraper.Parallelism,
	}, zl.Named("search"))

	checker := scheduler.NewPriceChecker(cfg.Scheduler.TrackSchedule, orchestrator, store, zl.Named("scheduler"))
	if err := checker.Start(); err != nil {
		zl.Error("failed to schedule price checker", zap.Error(err))
	}
	defer checker.Stop()

	srv := newServer(orchestrator, store, zl)
	port := cfg.Server.Port

	if ip := LocalIP(); ip != nil {
		zl.Info("listening", zap.String("network_url", fmt.Sprintf("http://%s:%s", ip, port)))
	}
	zl.Info("listening",
		zap.String("url", "http://localhost:"+port),
		zap.String("docs", "http://localhost:"+port+"/"),
	)

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           srv.routes(cfg.Server.AllowedOrigins),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zl.Error("graceful shutdown failed", zap.Error(err))
	}
}

// LocalIP returns the address other hosts on the network reach this machine by, or nil.
func LocalIP() net.IP {
	// UDP dial sends nothing; it only selects the outgoing interface
	if conn, err := net.Dial("udp", "8.8.8.8:80"); err == nil {
		defer conn.Close()
		if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
			return addr.IP
		}
	}

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil
	}
	return firstLANAddress(addrs)
}

func firstLANAddress(addrs []net.Addr) net.IP {
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		if v4 := ipnet.IP.To4(); v4 != nil {
			return v4
		}
	}
	return nil
}

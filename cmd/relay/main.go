package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"tankarena/internal/config"
	"tankarena/internal/relay"
	"tankarena/internal/store"
)

func main() {
	if err := config.LoadEnv(); err != nil {
		log.WithError(err).Warn("ignoring .env")
	}
	cfg, err := config.LoadRelay(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if err := config.SetupLogging(cfg.LogLevel); err != nil {
		log.Fatal(err)
	}

	db, err := store.OpenDB(cfg.DBPath)
	if err != nil {
		log.WithError(err).Warn("running without database")
		db = nil
	}
	analytics := store.NewAnalytics(db)

	hub := relay.NewHub(db, analytics, relay.Options{
		MaxConnsPerIP: cfg.MaxConnsPerIP,
		PublicURL:     cfg.PublicURL,
	})
	go hub.Run()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	server := &http.Server{Addr: cfg.Addr, Handler: relay.SetupRoutes(hub)}

	go func() {
		log.WithField("addr", cfg.Addr).Info("relay starting")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	<-stop
	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	server.Shutdown(ctx)
	hub.Stop()
	analytics.Stop()
	if db != nil {
		db.Close()
	}
}

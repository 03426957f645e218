package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mailtrack/internal/api"
	"mailtrack/internal/config"
	"mailtrack/internal/console"
	"mailtrack/internal/logging"
)

func main() {
	// 1. Load Configuration
	cfg := config.LoadConfig()

	if err := logging.Initialize(cfg.Logging); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.Shutdown()

	log.Println("Starting Mailtrack Console...")

	// 2. Build the mail view against the remote service
	client := api.NewClient(cfg.API)
	view := console.NewMailView(client, cfg.Console, console.LogNotifier{})

	mountCtx, mountCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer mountCancel()
	if err := view.Mount(mountCtx); err != nil {
		log.Fatalf("Failed to mount mail view: %v", err)
	}

	// 3. Start the live feed
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	source, closeSource, err := console.NewEventSource(bgCtx, cfg.Feed, "mail")
	if err != nil {
		log.Fatalf("Failed to start feed source: %v", err)
	}
	defer closeSource()

	view.Watch(bgCtx, source)

	// 4. Serve the console
	server := &http.Server{
		Addr:         cfg.Console.Listen,
		Handler:      console.NewHandler(view),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("Console listening on %s", cfg.Console.Listen)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Console server failed: %v", err)
		}
	}()

	// 5. Wait for Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Stop the feed first so no mutation races the drain
	bgCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Console server shutdown: %v", err)
	}

	log.Println("Stopped.")
}

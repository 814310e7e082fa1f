// cmd/server/main.go
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

	"github.com/salazarbot/salazar/internal/api"
	"github.com/salazarbot/salazar/internal/app"
	"github.com/salazarbot/salazar/internal/config"
)

func main() {
	log.Println("Starting Salazar...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	application, err := app.Initialize(cfg)
	if err != nil {
		log.Fatalf("initialize: %v", err)
	}
	defer application.Shutdown()

	router, err := api.SetupRouter(cfg.DebugMode)
	if err != nil {
		log.Fatalf("setup router: %v", err)
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Printf("Metadata API listening on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server: %v", err)
		}
	}()

	if err := application.Start(); err != nil {
		log.Fatalf("discord start: %v", err)
	}
	log.Println("Connected to Discord")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"rgbmonitor/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApp()
	if err != nil {
		log.Fatalf("Failed to initialise server: %v", err)
	}

	if err := application.Run(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/GoSim-25-26J-441/marketplace-core/config"
	"github.com/GoSim-25-26J-441/marketplace-core/internal/bootstrap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	bootstrap.SetGinMode(cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	infra, err := openInfra(ctx, cfg)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}
	defer infra.Close()

	// a forced auth reset tears the runtime down and builds a fresh one
	for {
		reset, err := run(ctx, cfg, infra)
		if err != nil {
			log.Printf("[error] component=main operation=run error=%v", err)
			return
		}
		if !reset {
			log.Println("[info] component=main operation=shutdown stopped")
			return
		}
		log.Println("[info] component=main operation=reload rebuilding runtime after auth reset")
	}
}

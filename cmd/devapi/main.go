package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/dealerclient/internal/devapi"
	"github.com/dmitrijs2005/dealerclient/internal/logging"
)

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := devapi.LoadConfig(os.Args[1:], os.LookupEnv)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, true)

	srv, err := devapi.NewServer(cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := srv.Start(ctx); err != nil {
		log.Fatalf("%v", err)
	}

}

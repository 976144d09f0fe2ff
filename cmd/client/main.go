package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/dealerclient/internal/client/cli"
	"github.com/dmitrijs2005/dealerclient/internal/client/config"
	"github.com/dmitrijs2005/dealerclient/internal/logging"
)

func main() {

	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(os.Stderr, cfg.LogLevel, false)

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)

}

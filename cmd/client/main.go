package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/whisperbox/internal/client/cli"
	"github.com/dmitrijs2005/whisperbox/internal/client/config"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("config: %v", err)
		os.Exit(2)
	}

	app, err := cli.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)
}

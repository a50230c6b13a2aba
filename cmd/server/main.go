package main

import (
	"context"
	"log"

	"github.com/PhoenixRFA/backlogapp/internal/server"
	"github.com/PhoenixRFA/backlogapp/internal/server/config"
)

func main() {
	cfg := config.LoadConfig()

	app, err := server.NewApp(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(context.Background()); err != nil {
		log.Fatalf("%v", err)
	}
}

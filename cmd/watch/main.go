package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/wristnote/internal/watch"
	"github.com/dmitrijs2005/wristnote/internal/watch/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig(os.Args[1:])
	app, err := watch.NewApp(ctx, cfg, os.Stderr, os.Stdout)

	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(ctx, os.Stdin); err != nil {
		log.Fatalf("%v", err)
	}

}

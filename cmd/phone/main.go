package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/wristnote/internal/phone"
	"github.com/dmitrijs2005/wristnote/internal/phone/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig(os.Args[1:])

	if cfg.AccessToken == "" {
		tok, err := phone.PromptToken(os.Stdin, os.Stderr)
		if err != nil {
			log.Printf("reading access token: %v", err)
		}
		cfg.AccessToken = tok
	}

	app, err := phone.NewApp(cfg, os.Stderr)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}

}

package main

import (
	"log"

	"storefront/config"
	"storefront/internal/ingest"
)

func main() {
	cfg, err := config.NewIngestConfig()
	if err != nil {
		log.Fatalf("Config error: %s", err)
	}
	ingest.Run(cfg)
}

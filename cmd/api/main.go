package main

import (
	"log"
	"net/http"

	"streamscribe/internal/api"
	"streamscribe/internal/config"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	h := api.NewServer(cfg)
	log.Printf("streamscribe api listening on %s transcribe_providers=%q embed_providers=%q", cfg.APIAddr, cfg.TranscribeProviders, cfg.EmbedProviders)
	if err := http.ListenAndServe(cfg.APIAddr, h.Routes()); err != nil {
		log.Fatal(err)
	}
}

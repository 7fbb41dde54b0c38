package main

import (
	"context"
	"log"
	"time"

	"streamscribe/internal/activities"
	"streamscribe/internal/config"
	"streamscribe/internal/media"
	"streamscribe/internal/providers"
	"streamscribe/internal/storage"
	"streamscribe/internal/workflows"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	c, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		log.Fatal(err)
	}
	defer c.Close()

	w := worker.New(c, cfg.TemporalTaskQueue, worker.Options{})
	workflows.Register(w)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	if err := db.Migrate(ctx, cfg.EmbedDim); err != nil {
		log.Fatal(err)
	}

	store, err := media.NewLocalStore(cfg.MediaRoot)
	if err != nil {
		log.Fatal(err)
	}
	pm, err := providers.NewManager(cfg)
	if err != nil {
		log.Fatal(err)
	}
	activities.Register(w, activities.New(cfg, db, store, pm))

	log.Printf("streamscribe worker listening on %s queue=%s transcribe_providers=%q embed_providers=%q embed_model=%s",
		cfg.TemporalAddress, cfg.TemporalTaskQueue, cfg.TranscribeProviders, cfg.EmbedProviders, cfg.EmbedModel)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatal(err)
	}
}

package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/painscope/opportunity-engine/internal/api"
	"github.com/painscope/opportunity-engine/internal/config"
	"github.com/painscope/opportunity-engine/internal/db"
	"github.com/painscope/opportunity-engine/internal/llm"
	"github.com/painscope/opportunity-engine/internal/pipeline"
	"github.com/painscope/opportunity-engine/internal/source"
)

func main() {
	log.Println("Starting PainScope Opportunity Engine (Microservice: pain-mining-pipeline)...")

	cfg := config.Load()

	store, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("FATAL: Failed to connect to PostgreSQL: %v", err)
	}
	defer store.Close()
	if err := store.InitSchema(); err != nil {
		log.Fatalf("FATAL: DB schema init failed: %v", err)
	}

	reddit := source.NewRedditClient(cfg.UserAgent, time.Duration(cfg.RedditRateMs)*time.Millisecond)
	hn := source.NewHNClient(cfg.UserAgent, time.Duration(cfg.HNRateMs)*time.Millisecond)
	llmClient := llm.NewClient(cfg.OpenAIAPIKey, cfg.ChatModel, cfg.EmbeddingModel)

	pipe := pipeline.New(store, reddit, hn, llmClient, cfg)

	// Setup WebSocket Hub for live alert streaming
	wsHub := api.NewHub()
	go wsHub.Run()
	pipe.SetNotifier(api.BroadcastAlert(wsHub))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go pipe.RunForever(ctx)

	// Setup the Gin Router
	r := api.SetupRouter(store, pipe, wsHub, cfg)

	log.Printf("Engine running on :%s (cron every %s)\n", cfg.Port, cfg.CronInterval)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

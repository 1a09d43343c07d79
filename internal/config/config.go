package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config is the explicit configuration record handed to every pipeline
// phase. Defaults match the tuned production values; only the entries with
// an env key are expected to change between deployments.
type Config struct {
	DatabaseURL    string
	OpenAIAPIKey   string
	ChatModel      string
	EmbeddingModel string
	UserAgent      string
	Port           string
	AllowedOrigins string

	CronInterval time.Duration
	TickDeadline time.Duration

	// Batch sizes and thresholds. See the clusterer and synthesizer for
	// how the thresholds are applied.
	BinaryFilterBatch int
	EmbedBatch        int
	ClusterThreshold  float64
	MergeThreshold    float64
	SynthBatch        int
	SynthMemberFloor  int
	SynthGrowth       float64

	// Upstream pacing.
	RedditRateMs    int
	HNRateMs        int
	CommentDepthMax int

	// Concurrency budgets.
	RedditWorkers int
	LLMWorkers    int

	// Cron modulos for the optional sub-phases.
	CompetitorEvery int
	MergeEvery      int
	MarketEvery     int
	FeaturesEvery   int
}

// Load assembles the configuration from the environment. Secrets have no
// fallback; tunables default to production values.
func Load() Config {
	return Config{
		DatabaseURL:    requireEnv("DATABASE_URL"),
		OpenAIAPIKey:   requireEnv("OPENAI_API_KEY"),
		ChatModel:      getEnvOrDefault("CHAT_MODEL", "gpt-4o-mini"),
		EmbeddingModel: getEnvOrDefault("EMBEDDING_MODEL", "text-embedding-3-small"),
		UserAgent:      getEnvOrDefault("REDDIT_USER_AGENT", "painscope-engine/1.0 (opportunity research)"),
		Port:           getEnvOrDefault("PORT", "5340"),
		AllowedOrigins: os.Getenv("ALLOWED_ORIGINS"),

		CronInterval: time.Duration(getEnvInt("CRON_INTERVAL_MIN", 30)) * time.Minute,
		TickDeadline: time.Duration(getEnvInt("TICK_DEADLINE_MIN", 25)) * time.Minute,

		BinaryFilterBatch: 200,
		EmbedBatch:        20,
		ClusterThreshold:  0.65,
		MergeThreshold:    0.85,
		SynthBatch:        10,
		SynthMemberFloor:  5,
		SynthGrowth:       0.10,

		RedditRateMs:    300,
		HNRateMs:        200,
		CommentDepthMax: 5,

		RedditWorkers: 3,
		LLMWorkers:    8,

		CompetitorEvery: 3,
		MergeEvery:      6,
		MarketEvery:     2,
		FeaturesEvery:   2,
	}
}

// requireEnv reads a required environment variable and exits if it is not
// set. Prevents the engine from starting with missing critical config.
func requireEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		log.Fatalf("FATAL: Required environment variable %s is not set", key)
	}
	return val
}

// getEnvOrDefault returns the env var value or a safe default for
// non-secret settings.
func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			return n
		}
		log.Printf("Ignoring invalid %s=%q, using %d", key, val, fallback)
	}
	return fallback
}

package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/NatesHonor/apisite/internal/config"
	"github.com/NatesHonor/apisite/internal/database"
	"github.com/NatesHonor/apisite/internal/store"
	"github.com/redis/go-redis/v9"
)

// Smoke-checks the backing dependencies: loads config, opens the
// database, runs migrations, and pings Redis. Useful when wiring up a
// new deployment before starting the API.
func main() {
	configPath := flag.String("config", "app.yml", "path to config file")
	flag.Parse()

	log.Printf("Testing dependency initialization...")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Printf("Config loaded - driver: %s, redis: %s", cfg.Database.Driver, cfg.Redis.Addr)

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	accounts := store.NewAccountStore(db, cfg.Database.Driver)
	count, err := accounts.Count(ctx)
	if err != nil {
		log.Fatalf("Failed to query account table: %v", err)
	}
	log.Printf("Database connection test successful! %d accounts registered", count)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to ping Redis: %v", err)
	}
	log.Printf("Redis connection test successful!")
}

package main

import (
	"flag"
	"log"

	"github.com/NatesHonor/apisite/internal/api"
	"github.com/NatesHonor/apisite/internal/config"
	"github.com/NatesHonor/apisite/internal/database"
	"github.com/NatesHonor/apisite/internal/mail"
	"github.com/NatesHonor/apisite/internal/store"
	"github.com/redis/go-redis/v9"
)

const version = "1.0.0"

func initializeAPI(configPath string) (*api.Api, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	mailer := mail.NewSMTPMailer(cfg.Mail.Host, cfg.Mail.Port,
		cfg.Mail.Username, cfg.Mail.Password, cfg.Mail.From)

	accounts := store.NewAccountStore(db, cfg.Database.Driver)

	return api.NewApi(*cfg, accounts, rdb, mailer)
}

func main() {
	configPath := flag.String("config", "app.yml", "Path to configuration file")
	flag.Parse()

	log.Printf("Starting apisite API v%s with config: %s", version, *configPath)

	api, err := initializeAPI(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	api.Serve()
}

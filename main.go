package main

import (
	"context"
	"log"

	"github.com/s0930s44/BINGO/config"
	"github.com/s0930s44/BINGO/game"
	"github.com/s0930s44/BINGO/logger"
	"github.com/s0930s44/BINGO/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger.SetDebug(cfg.Debug)

	store, err := storage.New(context.Background(), cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	persister := game.NewPersister(store)
	defer persister.Close()

	hub := game.NewHub(game.HubConfig{
		ReconcileInterval: cfg.ReconcileInterval,
		RoomGrace:         cfg.RoomGrace,
		LockOnStart:       cfg.LockOnStart,
	}, game.NewSecretVerifier(cfg.AdminSecret), persister, game.NewTickerGen())

	hubStarted := make(chan struct{})
	go hub.Run(hubStarted)
	<-hubStarted
	defer hub.Stop()

	r := CreateServer(cfg.AllowedOrigins)
	r.GET("/ws", game.NewWSHandler(hub).Serve)

	logger.Infof("listening on :%s (storage: %s)", cfg.Port, cfg.StorageBackend)
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatalf("server stopped: %v", err)
	}
}

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"gasflow/config"
	"gasflow/engine"
	"gasflow/messaging"
	"gasflow/store"
	"gasflow/www"
)

var Version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "gasflow.yaml", "path to config file")
	flag.Parse()

	if *showVersion {
		fmt.Println("gasflow", Version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	config.SetupLogger(cfg.Log)

	// Database
	db, err := store.Open(&cfg.Database)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	log.Printf("gasflow: database open (%s)", cfg.Database.Driver)

	// Redis backs the stock cache and the cross-process locks. Without it the
	// engine falls back to SQL reads and in-process locks.
	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		rc := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rc.Ping(ctx).Err(); err != nil {
			log.Printf("gasflow: redis not available (%v), running without cache", err)
			rc.Close()
		} else {
			log.Printf("gasflow: redis connected (%s)", cfg.Redis.Address)
			redisClient = rc
			defer rc.Close()
		}
		cancel()
	}

	// Messaging client
	msgClient := messaging.NewClient(&cfg.Messaging)
	if msgClient.Enabled() {
		if err := msgClient.Connect(); err != nil {
			log.Printf("gasflow: messaging connect failed (%v)", err)
		} else {
			log.Printf("gasflow: messaging connected (%s)", cfg.Messaging.Backend)
		}
	} else {
		log.Printf("gasflow: messaging disabled")
	}
	defer msgClient.Close()

	// Engine
	eng := engine.New(engine.Config{
		AppConfig:  cfg,
		ConfigPath: *configPath,
		DB:         db,
		Redis:      redisClient,
		MsgClient:  msgClient,
	})
	eng.Start()
	defer eng.Stop()

	// Web server
	handler, stopWeb := www.NewRouter(eng)

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		log.Printf("gasflow: web server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("web server: %v", err)
		}
	}()

	log.Printf("gasflow: ready")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Printf("gasflow: shutting down...")
	stopWeb()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)

	log.Printf("gasflow: stopped")
}

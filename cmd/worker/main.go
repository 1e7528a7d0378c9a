package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"transportal/internal/appointment"
	"transportal/internal/config"
	"transportal/internal/queue"
	"transportal/internal/store"
)

// Worker keeps the today-summary cache warm: it refreshes on every accepted
// shift scan and on a periodic tick, so dashboard polling mostly hits redis.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "")
	}

	appts := appointment.NewRepository(db.Client)
	loc := cfg.Location()

	refresh := func() {
		day := time.Now().In(loc).Format("2006-01-02")
		tickCtx, tickCancel := context.WithTimeout(ctx, 10*time.Second)
		defer tickCancel()

		summary, err := appts.Today(tickCtx, day)
		if err != nil {
			log.Printf("today summary refresh failed: %v", err)
			return
		}
		payload, err := json.Marshal(summary)
		if err != nil {
			log.Printf("today summary marshal failed: %v", err)
			return
		}
		if err := redisClient.SetTodaySummary(tickCtx, day, payload, cfg.TodayCacheTTL); err != nil {
			log.Printf("today cache write failed: %v", err)
		}
	}

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	ticker := time.NewTicker(cfg.TodayCacheTTL)
	defer ticker.Stop()

	log.Println("worker started, waiting for messages...")
	refresh()
	for {
		select {
		case <-ctx.Done():
			log.Println("worker stopped")
			return
		case <-ticker.C:
			refresh()
		case msg, ok := <-messages:
			if !ok {
				log.Println("worker stopped")
				return
			}
			if msg.Type != queue.TypeShiftScan {
				continue
			}
			log.Printf("scan %s accepted, refreshing summary", string(msg.Body))
			refresh()
		}
	}
}

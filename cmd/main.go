package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smartpay/payment-service-go/internal/db"
	"github.com/smartpay/payment-service-go/internal/events"
	httpapi "github.com/smartpay/payment-service-go/internal/http"
	"github.com/smartpay/payment-service-go/internal/payment"
	"github.com/smartpay/payment-service-go/internal/sequence"
)

func main() {
	port := getEnv("PORT", "8084")

	logger := log.New(os.Stdout, "[payment-service] ", log.LstdFlags|log.Lshortfile)

	// DB
	dsn := db.GetDSN()
	if err := db.RunMigrations(dsn, logger); err != nil {
		logger.Fatalf("migrations: %v", err)
	}
	database := db.MustOpen()
	defer database.Close()

	repo := payment.NewRepository(database)

	// RabbitMQ
	rabbitConn := events.MustDialRabbit()
	defer rabbitConn.Close()

	seqRepo := sequence.NewRepository(database)
	publisher, err := events.NewPublisher(rabbitConn, seqRepo, "payment-service")
	if err != nil {
		logger.Fatalf("create publisher: %v", err)
	}
	defer publisher.Close()

	svc := payment.NewService(repo, publisher, logger)

	// HTTP
	handler := httpapi.NewHandler(svc)
	router := httpapi.NewRouter(handler)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Printf("payment-service listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Println("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/workout_journal/internal/config"
	"github.com/Skotchmaster/workout_journal/internal/es"
	"github.com/Skotchmaster/workout_journal/internal/events"
	"github.com/Skotchmaster/workout_journal/internal/handlers"
	"github.com/Skotchmaster/workout_journal/internal/logging"
	loggingmw "github.com/Skotchmaster/workout_journal/internal/middleware/logging"
	"github.com/Skotchmaster/workout_journal/internal/store"
	httpserver "github.com/Skotchmaster/workout_journal/internal/transport/http"
)

const notesIndex = "notes"

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	config.MustNonEmpty(configuration.JWTSecret, "JWT_SECRET")
	config.MustNonEmpty(configuration.DatabaseURL, "DATABASE_URL")

	logger := logging.New(configuration.LogLevel)
	slog.SetDefault(logger)

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	jwtSecret := []byte(configuration.JWTSecret)

	var producer *events.Producer
	if configuration.KafkaAddress != "" {
		producer = events.NewProducer([]string{configuration.KafkaAddress})
	}

	var esClient *elasticsearch.Client
	if configuration.ESURL != "" {
		esClient, err = es.NewClient(configuration)
		if err != nil {
			log.Fatalf("es init error: %v", err)
		}
	}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), loggingmw.RequestLogger(logger))

	credStore := store.NewGormStore(db)

	deps := httpserver.Deps{
		AuthHandler:   &handlers.AuthHandler{Store: credStore, JWTSecret: jwtSecret, Producer: producer},
		NoteHandler:   &handlers.NoteHandler{DB: db, Producer: producer, ES: esClient, Index: notesIndex},
		TagHandler:    &handlers.TagHandler{DB: db},
		SearchHandler: &handlers.SearchHandler{ES: esClient, Index: notesIndex},
		JWTSecret:     jwtSecret,
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":" + configuration.ServerPort,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if err := producer.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gnemet/crudgrid"
	"github.com/gnemet/crudgrid/database/connpool"
	"github.com/gnemet/crudgrid/internal/config"
	"github.com/gnemet/crudgrid/internal/console"
	"github.com/gnemet/crudgrid/internal/logger"
	"github.com/gnemet/crudgrid/render"
)

func main() {
	cfg := config.Load()

	loggerLevel := cfg.LogLevel

	switch cfg.Environment {
	case config.DebugMode:
		loggerLevel = logger.LevelDebug
		gin.SetMode(gin.DebugMode)
	case config.TestMode:
		loggerLevel = logger.LevelDebug
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	log := logger.NewLogger(cfg.ServiceName, loggerLevel)
	defer logger.Cleanup(log)

	dbOpts, err := cfg.Database()
	if err != nil {
		log.Panic("cfg.Database", logger.Error(err))
	}

	registry := crudgrid.DefaultRegistry()
	if cfg.RegistryPath != "" {
		registry, err = crudgrid.LoadRegistryFile(cfg.RegistryPath)
		if err != nil {
			log.Panic("crudgrid.LoadRegistryFile", logger.Error(err))
		}
	}

	db, err := connpool.Open(context.Background(), dbOpts, log)
	if err != nil {
		log.Panic("connpool.Open", logger.Error(err))
	}
	defer db.Close()

	renderer, err := render.NewRenderer()
	if err != nil {
		log.Panic("render.NewRenderer", logger.Error(err))
	}

	store := crudgrid.NewStore(db, dbOpts.Dialect, registry, log.With(logger.String("component", "store")))

	router := gin.New()
	router.Use(logger.GinLogger(log), gin.Recovery())

	crudgrid.NewHandler(store, log).Register(router)
	console.New(store, registry, renderer, log).Register(router)

	server := http.Server{
		Addr:              cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Panic("server.ListenAndServe", logger.Error(err))
		}
	}()
	log.Info("HTTP: Server being started...", logger.String("port", cfg.HTTPPort))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info("Server shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("server.Shutdown", logger.Error(err))
	}
}

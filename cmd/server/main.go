package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/ifta-backend-go/internal/api"
	"github.com/jengzang/ifta-backend-go/internal/app"
	"github.com/jengzang/ifta-backend-go/internal/config"
	"github.com/jengzang/ifta-backend-go/internal/database"
	"github.com/jengzang/ifta-backend-go/internal/logger"
	"github.com/jengzang/ifta-backend-go/internal/transport/mqtt"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fallback := logger.New(logger.Config{})
		fallback.Fatal().Err(err).Msg("Failed to load config")
	}
	log := logger.New(cfg.Log)
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化数据库
	if err := database.Init(database.Config{Path: cfg.Database.Path}, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer database.Close()

	db := database.GetDB()
	if err := database.NewMigrationManager(db, log).RunMigrations(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}
	if n, err := database.SeedDefaultRates(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed tax rates")
	} else if n > 0 {
		log.Info().Int("rates", n).Msg("Seeded default tax rates")
	}

	application, err := app.New(cfg, db, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if trip, err := application.Services.Tracking.Restore(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to restore tracking session")
	} else if trip != nil {
		log.Info().Str("trip_id", trip.ID).Msg("Resumed active trip")
	}

	// 设备 MQTT 通道
	if cfg.MQTT.Broker != "" {
		client, err := mqtt.Connect(cfg.MQTT, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to MQTT broker")
		}
		defer client.Disconnect(250)

		sub := mqtt.NewFixSubscriber(client, application.Services.Tracking, cfg.MQTT.Topic, cfg.MQTT.QoS, log)
		if err := sub.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to subscribe to fixes")
		}
		defer sub.Stop()
	}

	// 初始化路由
	router := api.SetupRouter(cfg, application.Services, log)
	srv := &http.Server{
		Addr:    cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", cfg.Server.Port).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
}

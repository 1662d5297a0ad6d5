package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"estate-data/internal/config"
	"estate-data/internal/database"
	httpapi "estate-data/internal/http"
	"estate-data/internal/logger"
	"estate-data/internal/repository"
	"estate-data/internal/service"
	"estate-data/internal/store"
	"estate-data/internal/stream"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "estate-data")
	if err != nil {
		log, _ = zap.NewProduction()
	}
	defer log.Sync()

	// Redis：楼层列表缓存 + 同步事件流；连不上时降级为无缓存运行
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	var kv store.KV
	var events service.EventPublisher
	{
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := redisClient.Ping(ctx).Err(); err == nil {
			kv = store.NewRedisKV(redisClient)
			events = stream.NewPublisher(redisClient, 0)
		} else {
			log.Warn("redis unavailable, running without cache and event stream", zap.Error(err))
		}
	}

	// Optional DB-backed inventory; if DB is not available, fall back to the
	// in-memory inventory so the floor-plan pages still work with plain `go run`.
	var db *sql.DB
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			log.Info("DB enabled for estate-data")
		} else {
			log.Warn("DB enabled but connection failed, falling back to memory inventory", zap.Error(err))
		}
	}

	var (
		buildings  repository.BuildingsRepository
		rooms      repository.RoomsRepository
		occupancy  repository.OccupancyRepository
		floorPlans repository.FloorPlansRepository
	)
	if db != nil {
		buildings = repository.NewPostgresBuildingsRepository(db)
		rooms = repository.NewPostgresRoomsRepository(db)
		occupancy = repository.NewPostgresOccupancyRepository(db)
		floorPlans = repository.NewPostgresFloorPlansRepository(db)
	} else {
		mem := repository.NewMemoryInventory()
		// Dev bootstrap: one building to draw floor plans against.
		if os.Getenv("SEED_DEMO_BUILDING") != "false" {
			id := mem.AddBuilding("00000000-0000-0000-0000-000000000001", "Demo Building")
			log.Info("seeded demo building", zap.String("building_id", id))
		}
		buildings, rooms, occupancy, floorPlans = mem, mem, mem, mem
	}

	var listing *service.ListingClient
	if cfg.Listing.Enabled {
		listing = service.NewListingClient(
			cfg.Listing.BaseURL,
			cfg.Listing.APIKey,
			time.Duration(cfg.Listing.Timeout)*time.Second,
			log,
		)
	}

	floorPlanService := service.NewFloorPlanService(
		buildings, rooms, occupancy, floorPlans,
		kv, events, listing,
		cfg.Layout.PxPerMeter,
		log,
	)
	exporter := service.NewInventoryExporter(rooms, occupancy)

	router := httpapi.NewRouter(log)
	router.RegisterFloorPlanRoutes(httpapi.NewFloorPlanHandler(floorPlanService, exporter, log))

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("estate-data listening", zap.String("addr", cfg.HTTP.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("http server shutdown failed", zap.Error(err))
	}
	if db != nil {
		_ = database.Close(db)
	}
	_ = redisClient.Close()
	log.Info("estate-data stopped")
}

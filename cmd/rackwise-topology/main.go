package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"rackwise-topology/internal/cache"
	"rackwise-topology/internal/config"
	"rackwise-topology/internal/database"
	"rackwise-topology/internal/evaluator"
	"rackwise-topology/internal/gateway"
	httpapi "rackwise-topology/internal/http"
	"rackwise-topology/internal/logger"
	"rackwise-topology/internal/mqtt"
	"rackwise-topology/internal/repository"
	"rackwise-topology/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "rackwise-topology")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Redis 不可用时降级为无缓存直算
	var cacheManager *cache.Manager
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Warn("Redis unavailable, capacity caching disabled", zap.Error(err))
		_ = redisClient.Close()
		redisClient = nil
	} else {
		cacheManager = cache.NewManager(cfg, redisClient, log)
		defer redisClient.Close()
	}

	// 告警通知通道（MQTT / 消息网关，均可选）
	var notifiers []evaluator.Notifier
	if cfg.MQTT.Enabled {
		notifier, err := mqtt.NewNotifier(&cfg.MQTT, log)
		if err != nil {
			log.Warn("MQTT broker unavailable, MQTT notifications disabled", zap.Error(err))
		} else {
			notifiers = append(notifiers, notifier)
			defer notifier.Disconnect()
		}
	}
	if cfg.Gateway.Enabled {
		notifiers = append(notifiers, gateway.NewClient(&cfg.Gateway, log))
	}

	locations := repository.NewLocationsRepository(db, log)
	racks := repository.NewRacksRepository(db, log)
	equipment := repository.NewEquipmentRepository(db, log)
	ports := repository.NewPortsRepository(db, log)
	connections := repository.NewConnectionsRepository(db, log)
	alerts := repository.NewAlertsRepository(db, log)

	svc := service.NewTopologyService(
		cfg, log,
		locations, racks, equipment, ports, connections, alerts,
		cacheManager,
		notifiers...,
	)

	handler := httpapi.NewTopologyHandler(svc, log)
	router := httpapi.NewRouter(log)
	router.RegisterTopologyRoutes(handler)

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 周期容量评估
	if cfg.Capacity.EvalIntervalSeconds > 0 {
		go func() {
			ticker := time.NewTicker(time.Duration(cfg.Capacity.EvalIntervalSeconds) * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if _, err := svc.EvaluateCapacity(ctx); err != nil {
						log.Error("periodic capacity evaluation failed", zap.Error(err))
					}
				}
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		cancel()
	case err := <-errCh:
		log.Error("HTTP server exited", zap.Error(err))
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

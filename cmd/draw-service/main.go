package main

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	dcache "github.com/tiempospro/tiempos-core/internal/draw-service/cache"
	dhttp "github.com/tiempospro/tiempos-core/internal/draw-service/http"
	"github.com/tiempospro/tiempos-core/internal/draw-service/producer"
	drepo "github.com/tiempospro/tiempos-core/internal/draw-service/repo"
	"github.com/tiempospro/tiempos-core/internal/draw-service/schedule"
	"github.com/tiempospro/tiempos-core/internal/draw-service/ws"
	"github.com/tiempospro/tiempos-core/internal/shared/cache"
	"github.com/tiempospro/tiempos-core/internal/shared/config"
	"github.com/tiempospro/tiempos-core/internal/shared/db"
	"github.com/tiempospro/tiempos-core/internal/shared/kafka"
	"github.com/tiempospro/tiempos-core/internal/shared/logger"
	"github.com/tiempospro/tiempos-core/internal/shared/metrics"
)

func main() {
	cfg := config.Load()

	log, err := logger.New("draw-service", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("service", "draw-service"), zap.String("env", cfg.Env))

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	// Redis: cache de exposición para el panel y Pub/Sub hacia el hub WebSocket
	redisClient, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	// Producer de eventos draw_settled (comisiones y broadcast corren en el worker)
	writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicDrawSettled)
	defer writer.Close()
	publ := producer.NewKafkaPublisher(writer, cfg.TopicDrawSettled)

	repo := drepo.NewPostgres(pg)
	expo := dcache.NewExposureCache(redisClient, 24*time.Hour)

	// Hub WebSocket alimentado vía Redis Pub/Sub
	hub := ws.NewHub(func(r *http.Request) bool { return true }) // CORS abierto en el POC
	ctx, cancelSub := context.WithCancel(context.Background())
	defer cancelSub()
	go ws.StartRedisSubscriber(ctx, redisClient, hub)

	// Cron que pasa cada franja a VERIFYING al llegar su hora de corte
	cr := schedule.Start(log, repo)
	defer cr.Stop()

	api := dhttp.NewServer(log, repo, expo, hub, cfg.AdminConfirmPhrase, publ)

	metrics.StartMetricsServer(cfg.MetricsPort, func(hctx context.Context) error {
		if err := pg.PingContext(hctx); err != nil {
			return err
		}
		return redisClient.Ping(hctx).Err()
	})
	log.Info("metrics/health listening", zap.String("port", cfg.MetricsPort))

	apiSrv := &http.Server{
		Addr:    ":" + cfg.HTTPPort, // ej: 8084
		Handler: api.Router(),
	}
	log.Info("api listening", zap.String("addr", apiSrv.Addr))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api srv", zap.Error(err))
	}
}

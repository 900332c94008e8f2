package main

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	bhttp "github.com/tiempospro/tiempos-core/internal/bet-service/http"
	"github.com/tiempospro/tiempos-core/internal/bet-service/producer"
	brepo "github.com/tiempospro/tiempos-core/internal/bet-service/repo"
	"github.com/tiempospro/tiempos-core/internal/shared/config"
	"github.com/tiempospro/tiempos-core/internal/shared/db"
	"github.com/tiempospro/tiempos-core/internal/shared/kafka"
	"github.com/tiempospro/tiempos-core/internal/shared/logger"
	"github.com/tiempospro/tiempos-core/internal/shared/metrics"
)

func main() {
	cfg := config.Load()

	log, err := logger.New("bet-service", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("service", "bet-service"), zap.String("env", cfg.Env))

	// Postgres: la colocación es una única transacción (débito + apuesta + auditoría)
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	// Producer de eventos bet_accepted (consumidos por el settlement-worker)
	writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetAccepted)
	defer writer.Close()
	publ := producer.NewKafkaPublisher(writer, cfg.TopicBetAccepted)

	repo := brepo.NewPostgres(pg)
	api := bhttp.NewServer(log, repo, publ)

	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return pg.PingContext(ctx)
	})
	log.Info("metrics/health listening", zap.String("port", cfg.MetricsPort))

	apiSrv := &http.Server{
		Addr:    ":" + cfg.HTTPPort, // ej: 8083
		Handler: api.Router(),
	}
	log.Info("api listening", zap.String("addr", apiSrv.Addr))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api srv", zap.Error(err))
	}
}

package main

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/tiempospro/tiempos-core/internal/shared/config"
	"github.com/tiempospro/tiempos-core/internal/shared/db"
	"github.com/tiempospro/tiempos-core/internal/shared/logger"
	"github.com/tiempospro/tiempos-core/internal/shared/metrics"
	whttp "github.com/tiempospro/tiempos-core/internal/wallet-service/http"
	wrepo "github.com/tiempospro/tiempos-core/internal/wallet-service/repo"
)

func main() {
	cfg := config.Load()

	// Inicializa logger estructurado
	log, err := logger.New("wallet-service", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("service", "wallet-service"), zap.String("env", cfg.Env))

	// Conexión con Postgres para operaciones de billetera
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	// Instancia repositorio y servidor HTTP de wallet
	repo := wrepo.NewPostgres(pg)
	api := whttp.NewServer(log, repo)

	// Servidor de métricas y health check en goroutine separada
	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return pg.PingContext(ctx)
	})
	log.Info("metrics/health listening", zap.String("port", cfg.MetricsPort))

	// Servidor HTTP público (API de wallet)
	apiSrv := &http.Server{
		Addr:    ":" + cfg.HTTPPort, // ej: 8082
		Handler: api.Router(),
	}
	log.Info("api listening", zap.String("addr", apiSrv.Addr))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api srv", zap.Error(err))
	}
}

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	dcache "github.com/tiempospro/tiempos-core/internal/draw-service/cache"
	"github.com/tiempospro/tiempos-core/internal/draw-service/ws"
	"github.com/tiempospro/tiempos-core/internal/settlement-worker/commission"
	wrepo "github.com/tiempospro/tiempos-core/internal/settlement-worker/repo"
	sharedcache "github.com/tiempospro/tiempos-core/internal/shared/cache"
	"github.com/tiempospro/tiempos-core/internal/shared/config"
	"github.com/tiempospro/tiempos-core/internal/shared/db"
	"github.com/tiempospro/tiempos-core/internal/shared/kafka"
	"github.com/tiempospro/tiempos-core/internal/shared/logger"
	ev "github.com/tiempospro/tiempos-core/pkg/contracts/events"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Postgres para totales de vendedores y pago de comisiones
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg connect", zap.Error(err))
	}
	defer pg.Close()

	redisClient, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	// Consumers: apuestas aceptadas (cache de exposición) y sorteos liquidados
	betReader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicBetAccepted, "settlement-worker")
	defer betReader.Close()
	settledReader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicDrawSettled, "settlement-worker")
	defer settledReader.Close()

	var dlqWriter *kafkago.Writer
	if cfg.TopicDrawSettledDLQ != "" {
		dlqWriter = kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicDrawSettledDLQ)
		defer dlqWriter.Close()
	}

	// Métricas Prometheus del worker
	betsConsumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_bets_consumed_total", Help: "eventos bet_accepted consumidos"})
	drawsProcessed := prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_draws_processed_total", Help: "eventos draw_settled procesados"})
	commissionsPaid := prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_commissions_paid_total", Help: "comisiones de vendedor acreditadas"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "settlement_errors_total", Help: "errores por etapa"}, []string{"stage"})
	prometheus.MustRegister(betsConsumed, drawsProcessed, commissionsPaid, errorsBy)

	expo := dcache.NewExposureCache(redisClient, 24*time.Hour)
	repo := wrepo.NewPostgres(pg)

	// Servidor HTTP para métricas y health check
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
			defer cancel()
			if err := pg.PingContext(ctx); err != nil {
				http.Error(w, "pg", http.StatusServiceUnavailable)
				return
			}
			if err := redisClient.Ping(ctx).Err(); err != nil {
				http.Error(w, "redis", http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		addr := ":" + cfg.MetricsPort
		log.Info("metrics/health", zap.String("addr", addr))
		_ = http.ListenAndServe(addr, mux)
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("settlement-worker started",
		zap.String("consume", cfg.TopicBetAccepted+","+cfg.TopicDrawSettled),
	)

	// Loop 1: apuestas aceptadas -> contadores de exposición en Redis.
	// Solo alimenta paneles; la colocación recalcula siempre contra Postgres.
	go func() {
		for {
			msg, err := betReader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Warn("kafka read bet_accepted", zap.Error(err))
				errorsBy.WithLabelValues("bet_read").Inc()
				time.Sleep(time.Second)
				continue
			}
			var accepted ev.BetAccepted
			if jerr := json.Unmarshal(msg.Value, &accepted); jerr != nil {
				log.Error("unmarshal bet_accepted", zap.Error(jerr))
				errorsBy.WithLabelValues("bet_decode").Inc()
				continue
			}
			betsConsumed.Inc()
			if err := expo.Add(ctx, accepted.DrawDate, accepted.DrawSlot, accepted.Number, accepted.AmountCents); err != nil {
				log.Warn("exposure cache add", zap.String("betId", accepted.BetID), zap.Error(err))
				errorsBy.WithLabelValues("bet_cache").Inc()
			}
		}
	}()

	// Loop principal: sorteos liquidados -> comisiones + broadcast + limpieza
	for {
		msg, err := settledReader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Warn("kafka read draw_settled", zap.Error(err))
			errorsBy.WithLabelValues("draw_read").Inc()
			time.Sleep(time.Second)
			continue
		}
		var settled ev.DrawSettled
		if jerr := json.Unmarshal(msg.Value, &settled); jerr != nil {
			log.Error("unmarshal draw_settled", zap.Error(jerr))
			errorsBy.WithLabelValues("draw_decode").Inc()
			continue
		}

		if err := processSettled(ctx, log, repo, expo, redisPublish(redisClient, cfg.RedisPubSubChannel), commissionsPaid, &settled); err != nil {
			log.Error("process draw_settled", zap.String("resultId", settled.ResultID), zap.Error(err))
			errorsBy.WithLabelValues("draw_process").Inc()
			if dlqWriter != nil {
				_ = kafka.WriteJSON(ctx, dlqWriter, settled.ResultID, mustJSON(settled))
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}
		drawsProcessed.Inc()
	}

	log.Info("settlement-worker stopped")
}

// processSettled ejecuta el post-procesamiento de una liquidación:
// 1. Acredita la comisión de cada vendedor (idempotente por resultado)
// 2. Publica el resultado en Redis Pub/Sub para el hub WebSocket
// 3. Limpia los contadores de exposición de la franja liquidada
func processSettled(
	ctx context.Context,
	log *zap.Logger,
	repo *wrepo.Postgres,
	expo *dcache.ExposureCache,
	broadcast func(context.Context, []byte) error,
	commissionsPaid prometheus.Counter,
	settled *ev.DrawSettled,
) error {
	rateBp, err := repo.CommissionRateBp(ctx)
	if err != nil {
		return err
	}

	if rateBp > 0 {
		totals, err := repo.VendorTotals(ctx, settled.DrawDate, settled.DrawSlot)
		if err != nil {
			return err
		}
		// Reintento simple por vendedor; un vendedor fallido no bloquea al resto
		for vendor, total := range totals {
			amount := commission.Amount(total, rateBp)
			var paid bool
			var perr error
			for i := 0; i < 3; i++ {
				if paid, perr = repo.PayCommission(ctx, vendor, settled.ResultID, amount); perr == nil {
					break
				}
				time.Sleep(time.Duration(300*(i+1)) * time.Millisecond)
			}
			if perr != nil {
				return perr
			}
			if paid {
				commissionsPaid.Inc()
				log.Info("commission paid",
					zap.String("vendorId", vendor),
					zap.String("resultId", settled.ResultID),
					zap.Int64("amountCents", amount),
				)
			}
		}
	}

	upd := ws.ResultUpdate{DrawSlot: settled.DrawSlot, Payload: settled}
	if err := broadcast(ctx, mustJSON(upd)); err != nil {
		log.Warn("result broadcast publish failed", zap.Error(err))
		// el broadcast es cosmético; no vale un reprocesamiento completo
	}

	if err := expo.Clear(ctx, settled.DrawDate, settled.DrawSlot); err != nil {
		log.Warn("exposure cache clear", zap.Error(err))
	}
	return nil
}

// redisPublish devuelve el publicador hacia el canal Pub/Sub del hub WebSocket
func redisPublish(r *redis.Client, channel string) func(context.Context, []byte) error {
	return func(ctx context.Context, payload []byte) error {
		return r.Publish(ctx, channel, payload).Err()
	}
}

func mustJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}

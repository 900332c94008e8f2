package schedule

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/tiempospro/tiempos-core/internal/shared/domain"
)

// Closer marca una franja como en verificación al llegar su hora de corte.
type Closer interface {
	MarkVerifying(ctx context.Context, slot string) error
}

// Start programa el cierre diario de cada franja (12:55, 16:30, 19:30 hora
// de Costa Rica). El corte duro lo aplica igual el bet-service contra el
// reloj; este job deja el estado VERIFYING visible para los paneles.
func Start(log *zap.Logger, repo Closer) *cron.Cron {
	c := cron.New(cron.WithLocation(domain.Timezone()))

	for _, slot := range domain.Slots {
		slot := slot
		_, err := c.AddFunc(domain.CronSpec(slot), func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := repo.MarkVerifying(ctx, slot); err != nil {
				log.Warn("mark verifying failed", zap.String("slot", slot), zap.Error(err))
				return
			}
			log.Info("draw slot closed for betting", zap.String("slot", slot))
		})
		if err != nil {
			log.Error("cron schedule failed", zap.String("slot", slot), zap.Error(err))
		}
	}

	c.Start()
	return c
}

package mail

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/logistica-sv/freight-backoffice/pkg/logger"
)

// Scheduler dispara pasadas del poller según el intervalo configurado. El
// intervalo se relee en cada disparo: un cambio de configuración reprograma
// la siguiente corrida sin reiniciar el proceso.
type Scheduler struct {
	poller *Poller
	cron   *cron.Cron
	log    *logger.Logger

	entryID  cron.EntryID
	interval time.Duration
}

// NewScheduler construye el planificador.
func NewScheduler(poller *Poller, log *logger.Logger) *Scheduler {
	return &Scheduler{poller: poller, cron: cron.New(), log: log}
}

// Start programa el poller y arranca el reloj. El contexto limita cada pasada.
func (s *Scheduler) Start(ctx context.Context) error {
	cfg, err := s.poller.config.Get(ctx)
	if err != nil {
		return err
	}
	interval := time.Minute
	if cfg != nil {
		cfg.Clamp()
		interval = time.Duration(cfg.CheckIntervalMinutes) * time.Minute
	}
	s.schedule(ctx, interval)
	s.cron.Start()
	s.log.Info().Dur("intervalo", interval).Msg("poller de correo programado")
	return nil
}

// Stop detiene el reloj y espera la pasada en curso.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) schedule(ctx context.Context, interval time.Duration) {
	s.interval = interval
	s.entryID = s.cron.Schedule(cron.Every(interval), cron.FuncJob(func() {
		runCtx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()

		if _, err := s.poller.RunOnce(runCtx); err != nil {
			s.log.Error().Err(err).Msg("pasada de correo falló")
		}
		s.maybeReschedule(ctx)
	}))
}

// maybeReschedule aplica un cambio de intervalo hecho desde la UI.
func (s *Scheduler) maybeReschedule(ctx context.Context) {
	cfg, err := s.poller.config.Get(ctx)
	if err != nil || cfg == nil {
		return
	}
	cfg.Clamp()
	next := time.Duration(cfg.CheckIntervalMinutes) * time.Minute
	if next == s.interval {
		return
	}
	s.cron.Remove(s.entryID)
	s.schedule(ctx, next)
	s.log.Info().Dur("intervalo", next).Msg("intervalo del poller actualizado")
}

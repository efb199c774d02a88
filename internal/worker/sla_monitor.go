package worker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pvflow/internal/dto"
	"pvflow/internal/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	alertKeyPrefix  = "sla:alerted:"
	defaultAlertTTL = 24 * time.Hour
)

var overdueRecords = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "pvflow_sla_overdue_records",
	Help: "Records past their SLA target, by current stage.",
}, []string{"stage"})

// OverdueSource lists the records that are RED at now.
type OverdueSource interface {
	Overdue(ctx context.Context, now time.Time) ([]dto.UrgencyResponse, error)
}

// SLAMonitorConfig holds the dependencies of the SLA monitor goroutine.
type SLAMonitorConfig struct {
	SLA        OverdueSource
	RDB        *redis.Client
	Dispatcher *Dispatcher
	Recipients []string
	Interval   time.Duration
	AlertTTL   time.Duration
	Now        func() time.Time
}

// StartSLAMonitor ticks every cfg.Interval, refreshes the overdue gauge and
// enqueues one alert mail per record and stage.
func StartSLAMonitor(ctx context.Context, cfg SLAMonitorConfig) {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()

		log.Info().Dur("interval", cfg.Interval).Msg("sla_monitor: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("sla_monitor: shutting down")
				return
			case <-ticker.C:
				if _, err := checkOverdue(ctx, cfg); err != nil {
					log.Error().Err(err).Msg("sla_monitor: check failed")
				}
			}
		}
	}()
}

// checkOverdue runs one pass and returns how many alerts it enqueued.
func checkOverdue(ctx context.Context, cfg SLAMonitorConfig) (int, error) {
	now := time.Now()
	if cfg.Now != nil {
		now = cfg.Now()
	}
	ttl := cfg.AlertTTL
	if ttl <= 0 {
		ttl = defaultAlertTTL
	}

	overdue, err := cfg.SLA.Overdue(ctx, now)
	if err != nil {
		return 0, err
	}

	counts := make(map[model.Stage]int)
	for _, u := range overdue {
		counts[u.Stage]++
	}
	for _, s := range model.StageOrder {
		overdueRecords.WithLabelValues(string(s)).Set(float64(counts[s]))
	}

	if len(cfg.Recipients) == 0 || cfg.Dispatcher == nil {
		return 0, nil
	}

	sent := 0
	for _, u := range overdue {
		key := alertKeyPrefix + u.RecordID + ":" + string(u.Stage)
		first, err := cfg.RDB.SetNX(ctx, key, now.Unix(), ttl).Result()
		if err != nil {
			return sent, fmt.Errorf("sla_monitor: dedupe %s: %w", key, err)
		}
		if !first {
			continue
		}
		if err := cfg.Dispatcher.EnqueueEmail(ctx, alertMail(u, cfg.Recipients)); err != nil {
			// let the next tick try again
			cfg.RDB.Del(ctx, key)
			return sent, fmt.Errorf("sla_monitor: enqueue %s: %w", u.RecordID, err)
		}
		sent++
	}
	if sent > 0 {
		log.Info().Int("alerts", sent).Int("overdue", len(overdue)).Msg("sla_monitor: alerts enqueued")
	}
	return sent, nil
}

func alertMail(u dto.UrgencyResponse, to []string) EmailJobPayload {
	var b strings.Builder
	fmt.Fprintf(&b, "O processo %s (%s) ultrapassou o SLA da etapa %s.\n\n", u.PVCode, u.Client, u.Stage)
	fmt.Fprintf(&b, "Inicio da etapa: %s\n", u.StageStart.Format(time.RFC3339))
	fmt.Fprintf(&b, "Meta: %.0fh\n", u.TargetHours)
	fmt.Fprintf(&b, "Decorrido: %s\n", u.Elapsed)
	fmt.Fprintf(&b, "Restante: %s\n", u.Remaining)
	return EmailJobPayload{
		To:      to,
		Subject: fmt.Sprintf("[SLA] %s atrasado em %s", u.PVCode, u.Stage),
		Body:    b.String(),
	}
}

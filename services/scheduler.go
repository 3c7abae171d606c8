package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartReconcileScheduler периодически сверяет кешированные счётчики
// незавершённых турниров с живыми бронированиями. Возвращает планировщик,
// чтобы вызывающая сторона могла остановить его при завершении.
func (s *TournamentService) StartReconcileScheduler(interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()
			if err := s.ReconcileAll(ctx); err != nil {
				s.logger.Error("counter reconciliation run failed", slog.Any("error", err))
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	return sched, nil
}

package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/admin/loventia/discover/internal/ports/jobs"
)

// defaultRetries паузы перед повторами: now + 10s + 1m + 5m
var defaultRetries = []time.Duration{
	10 * time.Second,
	1 * time.Minute,
	5 * time.Minute,
}

// Scheduler управляет запуском периодических джоб
type Scheduler struct {
	jobs    []jobs.Job
	retries []time.Duration
	log     *slog.Logger
}

// NewScheduler создаёт новый планировщик джоб
func NewScheduler(log *slog.Logger) *Scheduler {
	return &Scheduler{
		jobs:    make([]jobs.Job, 0),
		retries: defaultRetries,
		log:     log,
	}
}

// WithRetries заменяет паузы между повторами
func (s *Scheduler) WithRetries(retries ...time.Duration) *Scheduler {
	s.retries = retries
	return s
}

// Register регистрирует джобу в планировщике
func (s *Scheduler) Register(job jobs.Job) {
	s.jobs = append(s.jobs, job)
	s.log.Debug("job registered", "job_name", job.Name(), "total_jobs", len(s.jobs))
}

// Start запускает все зарегистрированные джобы и ждёт отмены ctx
func (s *Scheduler) Start(ctx context.Context) error {
	if len(s.jobs) == 0 {
		s.log.Warn("no jobs registered, scheduler not started")
		<-ctx.Done()
		return nil
	}

	s.log.Info("starting job scheduler", "jobs_count", len(s.jobs))

	done := make(chan struct{}, len(s.jobs))
	for _, job := range s.jobs {
		job := job
		go func() {
			defer func() { done <- struct{}{} }()
			s.runJob(ctx, job)
		}()
	}

	for range s.jobs {
		<-done
	}
	s.log.Info("job scheduler stopped")
	return nil
}

// runJob запускает отдельную джобу в цикле
func (s *Scheduler) runJob(ctx context.Context, job jobs.Job) {
	jobName := job.Name()
	for {
		now := time.Now()
		timer := time.NewTimer(job.NextRun(now).Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			s.log.Info("job stopped by context", "job_name", jobName)
			return
		case <-timer.C:
			if err := s.executeJobWithRetry(ctx, job); err != nil {
				if ctx.Err() != nil {
					return
				}
				s.log.Error("job failed after all retries",
					"job_name", jobName,
					"error", err,
				)
			} else {
				s.log.Debug("job executed successfully", "job_name", jobName)
			}
		}
	}
}

// executeJobWithRetry выполняет джобу с повторами при ошибках.
// Итоговая ошибка содержит ошибки всех попыток.
func (s *Scheduler) executeJobWithRetry(ctx context.Context, job jobs.Job) error {
	jobName := job.Name()

	err := job.Run(ctx)
	if err == nil {
		return nil
	}
	attemptErrors := []error{fmt.Errorf("attempt 1: %w", err)}
	s.log.Warn("job execution failed, will retry",
		"job_name", jobName,
		"attempt", 1,
		"retries_remaining", len(s.retries),
		"error", err,
	)

	for i, retryDelay := range s.retries {
		attemptNum := i + 2
		timer := time.NewTimer(retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(append(attemptErrors, ctx.Err())...)
		case <-timer.C:
		}

		err := job.Run(ctx)
		if err == nil {
			return nil
		}
		attemptErrors = append(attemptErrors, fmt.Errorf("attempt %d: %w", attemptNum, err))
		s.log.Warn("job retry failed",
			"job_name", jobName,
			"attempt", attemptNum,
			"retries_remaining", len(s.retries)-i-1,
			"error", err,
		)
	}

	return errors.Join(attemptErrors...)
}

// everyInterval следующий запуск на границе интервала
func everyInterval(now time.Time, interval time.Duration) time.Time {
	next := now.Truncate(interval).Add(interval)
	if !next.After(now) {
		next = next.Add(interval)
	}
	return next
}

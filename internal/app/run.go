package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func (a *App) runServices(ctx context.Context, deps *Dependencies) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Log.Info("starting http server",
			"host", a.Cfg.Server.Host,
			"port", a.Cfg.Server.Port)

		err := deps.HTTPServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	// Запускаем все Kafka consumers
	for name, consumer := range deps.KafkaConsumers {
		name, consumer := name, consumer
		g.Go(func() error {
			a.Log.Info("starting kafka consumer", "name", name)
			if err := consumer.Start(gCtx); err != nil {
				return fmt.Errorf("kafka consumer %s: %w", name, err)
			}
			return nil
		})
	}

	// Планировщик блокирует до отмены контекста
	if deps.JobScheduler != nil {
		g.Go(func() error {
			a.Log.Info("starting job scheduler")
			return deps.JobScheduler.Start(gCtx)
		})
	}

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.Log.Info("received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := deps.HTTPServer.Shutdown(shutdownCtx); err != nil {
			a.Log.Error("failed to shutdown http server", "error", err)
		}

		for i := len(deps.Closers) - 1; i >= 0; i-- {
			c := deps.Closers[i]
			if err := c.closer.Close(); err != nil {
				a.Log.Error("failed to close dependency", "error", err, "name", c.name)
			}
		}

		a.Log.Info("application shutdown completed")
		return nil
	})

	if err := g.Wait(); err != nil {
		a.Log.Error("application error", "error", err)
		return err
	}

	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"doc-markup/internal/app"
	"doc-markup/internal/httputil"
	"doc-markup/internal/queue"
	"doc-markup/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := app.Build(ctx, "exporter")
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer deps.Close()
	deps.Log.Info("exporter worker starting")

	g, ctx := errgroup.WithContext(ctx)

	// Run queue worker
	g.Go(func() error {
		return deps.Queue.Worker(ctx, queue.TaskTypeExport, exportHandler(deps))
	})

	// Run health check server
	g.Go(func() error {
		return httputil.ServeHealth(ctx, deps.Log, fmt.Sprintf(":%d", deps.Config.Port), "exporter")
	})

	// Wait for either to fail
	if err := g.Wait(); err != nil {
		deps.Log.Error("exporter stopped", "err", err)
	}
}

// exportHandler persists one session's annotation set. Tasks that can never
// succeed are dropped instead of returned for redelivery.
func exportHandler(deps app.Deps) queue.Handler {
	return func(ctx context.Context, task queue.Task) error {
		log := deps.Log.With("task_id", task.ID, "attempt", task.Attempts)
		p, err := queue.DecodeExport(task)
		if err != nil {
			log.Error("dropping malformed export task", "err", err)
			return nil
		}
		log = log.With("document_id", p.DocumentID, "session_id", p.SessionID)

		err = deps.Store.SaveAnnotations(ctx, p.DocumentID, p.SessionID, p.Annotations)
		switch {
		case err == nil:
			log.Info("annotations exported", "count", len(p.Annotations))
			return nil
		case errors.Is(err, store.ErrDocumentNotFound):
			log.Warn("document deleted before export; dropping task")
			return nil
		case errors.Is(err, store.ErrInvalidAnnotation):
			log.Error("export carries an invalid annotation; dropping task", "err", err)
			return nil
		default:
			log.Error("export failed", "err", err)
			return err
		}
	}
}

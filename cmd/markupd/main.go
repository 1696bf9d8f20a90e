package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"doc-markup/internal/app"
	"doc-markup/internal/auth"
	"doc-markup/internal/httputil"
	"doc-markup/internal/render"
	"doc-markup/internal/session"
	"doc-markup/internal/textlayout"
)

const reapInterval = time.Minute

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := app.Build(ctx, "markupd")
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer deps.Close()

	measurer, err := textlayout.New()
	if err != nil {
		deps.Log.Error("failed to load fonts", "err", err)
		os.Exit(1)
	}
	tokens, err := auth.NewIssuer(deps.Config.SessionSecret, deps.Config.TokenTTL())
	if err != nil {
		deps.Log.Error("failed to initialize session tokens", "err", err)
		os.Exit(1)
	}
	if deps.Config.SessionSecret == "" {
		deps.Log.Warn("SESSION_SECRET not set; session tokens will not survive a restart")
	}

	sessions := session.NewManager(deps.Log, render.New(deps.Log, measurer), deps.Config.MinScreenSize)
	a := &api{deps: deps, sessions: sessions, tokens: tokens}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", deps.Config.Port),
		Handler:           a.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httputil.Serve(ctx, deps.Log, srv, "markupd")
	})
	g.Go(func() error {
		return sessions.RunReaper(ctx, reapInterval, deps.Config.IdleTimeout())
	})

	if err := g.Wait(); err != nil {
		deps.Log.Error("markupd stopped", "err", err)
	}
}

package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/codam/web-greeter/internal/greeter"
	"github.com/codam/web-greeter/internal/greeter/auth"
	"github.com/codam/web-greeter/pkg/config"
	"github.com/codam/web-greeter/pkg/logger"
)

func main() {
	cfg, err := config.LoadClient(os.Args[1:])
	if err != nil {
		log.Fatalf("failed to load settings: %v", err)
	}

	logr, err := logger.New(cfg.Env, cfg.Log)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	renderer := greeter.NewLogRenderer(logr)

	fetcher := greeter.NewDataFetcher(greeter.FetcherConfig{
		URL:      dataURL(cfg.DataURL, cfg.Hostname),
		Interval: cfg.DataFetchInterval,
		Logger:   logr.Named("data"),
		Debug:    renderer.Debug,
	})

	// Without a display manager there is no PAM conversation; the exam
	// account is the only one that can log in.
	provider := auth.NewStaticProvider(map[string]string{cfg.ExamUsername: cfg.ExamPassword})
	authenticator := auth.New(provider, auth.Options{
		Logger: logr.Named("auth"),
		Debug:  renderer.Debug,
	})

	var lock *greeter.LockScreen
	if cfg.LockedUser != "" {
		lock = greeter.NewLockScreen(authenticator, renderer, greeter.LockScreenConfig{
			User:         cfg.LockedUser,
			LockedAt:     cfg.LockedSince,
			ExamUsername: cfg.ExamUsername,
			ExamPassword: cfg.ExamPassword,
		})
	}

	controller := greeter.NewExamModeController(greeter.ControllerConfig{
		Login: greeter.NewLoginScreen(authenticator, renderer),
		Exam: greeter.NewExamScreen(authenticator, renderer, greeter.ExamScreenConfig{
			Username: cfg.ExamUsername,
			Password: cfg.ExamPassword,
		}),
		Lock:             lock,
		Auth:             authenticator,
		Source:           fetcher,
		Renderer:         renderer,
		Logger:           logr.Named("exam-mode"),
		CheckInterval:    cfg.ExamModeCheckInterval,
		LeadTime:         time.Duration(cfg.ExamModeMinutesBeforeBegin) * time.Minute,
		ExamModeDisabled: cfg.ExamModeDisabled,
	})

	// SIGUSR1 is the administrator override for exam mode.
	overrides := make(chan os.Signal, 1)
	signal.Notify(overrides, syscall.SIGUSR1)
	defer signal.Stop(overrides)

	logr.Info("greeter client starting",
		zap.String("hostname", cfg.Hostname),
		zap.String("data_url", cfg.DataURL),
		zap.Bool("lock_screen", lock != nil),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return fetcher.Run(gctx) })
	g.Go(func() error { return authenticator.Run(gctx) })
	g.Go(func() error { return controller.Run(gctx) })
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-overrides:
				controller.Override()
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logr.Fatal("greeter client stopped", zap.Error(err))
	}
	logr.Info("greeter client stopped")
}

// dataURL appends the hostname to the backend config endpoint. Other URLs
// are used as given.
func dataURL(raw, hostname string) string {
	if strings.HasPrefix(raw, "file://") {
		return raw
	}
	trimmed := strings.TrimRight(raw, "/")
	if strings.HasSuffix(trimmed, "/api/config") && hostname != "" {
		return trimmed + "/" + hostname
	}
	return raw
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/codam/web-greeter/api/swagger"
	"github.com/codam/web-greeter/internal/handler"
	"github.com/codam/web-greeter/internal/middleware"
	"github.com/codam/web-greeter/internal/repository"
	"github.com/codam/web-greeter/internal/service"
	"github.com/codam/web-greeter/pkg/cache"
	"github.com/codam/web-greeter/pkg/config"
	"github.com/codam/web-greeter/pkg/hostname"
	"github.com/codam/web-greeter/pkg/logger"
	corsmiddleware "github.com/codam/web-greeter/pkg/middleware/cors"
	reqidmiddleware "github.com/codam/web-greeter/pkg/middleware/requestid"
)

// @title Codam Web Greeter API
// @version 1.0.0
// @description Schedule and exam-mode data for campus login screens
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg.Env, cfg.Log)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	metricsSvc := service.NewMetricsService()
	cacheRepo, closeCache := newCacheRepository(ctx, cfg, logr)
	defer closeCache()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr)

	params := service.SchedulingServiceParams{
		Cache:            cacheSvc,
		Resolver:         newResolver(cfg.Hostname),
		Messages:         repository.NewMessagesRepository(cfg.MessagesFile, logr),
		Metrics:          metricsSvc,
		Logger:           logr,
		TTL:              cfg.Cache.TTL,
		ExamModeHostsTTL: cfg.Cache.ExamModeHostsTTL,
		ExamModeDisabled: !cfg.ExamMode.Enabled,
	}
	if cfg.Intra.Configured() {
		params.Source = repository.NewIntraRepository(ctx, repository.IntraRepositoryConfig{
			BaseURL:      cfg.Intra.APIURL,
			ClientID:     cfg.Intra.ClientID,
			ClientSecret: cfg.Intra.ClientSecret,
			CampusID:     cfg.Intra.CampusID,
			RateLimit:    cfg.Intra.RateLimit,
			Timeout:      cfg.Intra.Timeout,
		}, logr)
	} else {
		logr.Warn("intra credentials missing, serving cached data only")
	}
	schedulingSvc := service.NewSchedulingService(params)

	refresher := service.NewRefresher(schedulingSvc, service.RefresherConfig{
		Interval:   cfg.RefreshInterval,
		Warmup:     cfg.Warmup,
		RetryDelay: 5 * time.Second,
		Logger:     logr,
	})
	refresher.Start(ctx)
	defer refresher.Stop()

	greeterHandler := handler.NewGreeterHandler(schedulingSvc, schedulingSvc.Resolver())
	metricsHandler := handler.NewMetricsHandler(metricsSvc, schedulingSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc, "/metrics"))

	r.GET("/", greeterHandler.Root)
	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group("/api")
	api.GET("/config", greeterHandler.Config)
	api.GET("/config/:hostname", greeterHandler.Config)
	api.GET("/exam_mode_hosts", greeterHandler.ExamModeHosts)
	api.GET("/user/:login/.face", greeterHandler.UserFace)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "cache", cfg.Cache.Driver, "resolver", cfg.Hostname.Resolver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}

func newResolver(cfg config.HostnameConfig) hostname.Resolver {
	if cfg.Resolver == config.HostResolverDNS {
		return hostname.NewDNS(2 * time.Second)
	}
	return hostname.NewFormula(hostname.Tokens{
		Cluster: cfg.Cluster,
		Row:     cfg.Row,
		Seat:    cfg.Seat,
		Suffix:  cfg.Suffix,
	})
}

// newCacheRepository picks the configured store, falling back to memory when
// Redis is unreachable.
func newCacheRepository(ctx context.Context, cfg *config.Config, logr *zap.Logger) (service.CacheRepository, func()) {
	if cfg.Cache.Driver == config.CacheDriverRedis {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err == nil {
			repo := repository.NewCacheRepository(client, "greeter:", logr)
			return repo, func() { _ = repo.Close() }
		}
		logr.Warn("redis unavailable, using in-memory cache", zap.Error(err))
	}
	repo := repository.NewMemoryCacheRepository()
	return repo, func() { _ = repo.Close() }
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/school-hub-api/api/swagger"
	"github.com/noah-isme/school-hub-api/internal/handler"
	"github.com/noah-isme/school-hub-api/internal/period"
	"github.com/noah-isme/school-hub-api/internal/repository"
	"github.com/noah-isme/school-hub-api/internal/service"
	"github.com/noah-isme/school-hub-api/internal/skolae"
	"github.com/noah-isme/school-hub-api/pkg/cache"
	"github.com/noah-isme/school-hub-api/pkg/config"
	"github.com/noah-isme/school-hub-api/pkg/database"
	"github.com/noah-isme/school-hub-api/pkg/export"
	"github.com/noah-isme/school-hub-api/pkg/logger"
	"github.com/noah-isme/school-hub-api/pkg/secrets"
)

const shutdownTimeout = 15 * time.Second

// @title School Hub API
// @version 1.0.0
// @description Unified grades, timetable and homework API over school information systems
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	sealer, err := secrets.NewSealer(cfg.Credentials.Secret)
	if err != nil {
		return fmt.Errorf("credential sealer: %w", err)
	}

	loc := cfg.School.Location()
	metrics := service.NewMetricsService()
	validate := validator.New()

	skolaeClient := skolae.NewClient(cfg.Skolae, metrics, logr.Named("skolae"))
	normalizer := skolae.NewNormalizer(loc, logr.Named("skolae"), metrics)
	plugins := service.NewPluginRegistry(skolae.NewPlugin(skolaeClient, normalizer, loc, logr.Named("skolae")))

	accountRepo := repository.NewAccountRepository(db)
	homeworkRepo := repository.NewHomeworkRepository(db)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.GradesTTL, logr, cfg.Cache.Enabled)
	accountSvc := service.NewAccountService(accountRepo, plugins, cacheRepo, sealer, cacheSvc, validate, logr, service.AccountConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
	})
	schoolSvc := service.NewSchoolService(accountSvc, cacheSvc, period.NewSelector(logr), service.SchoolTTL{
		Periods:   cfg.Cache.PeriodsTTL,
		Grades:    cfg.Cache.GradesTTL,
		Timetable: cfg.Cache.TimetableTTL,
	}, loc, logr)
	homeworkSvc := service.NewHomeworkService(homeworkRepo, accountRepo, validate, logr)
	exportSvc := service.NewExportService(schoolSvc, export.NewCSVExporter(';'), export.NewPDFExporter(4, 2, 2, 1), logr)
	syncSvc := service.NewSyncService(schoolSvc, accountRepo, metrics, service.SyncConfig{
		Enabled:    cfg.Sync.Enabled,
		Workers:    cfg.Sync.Workers,
		Retries:    cfg.Sync.Retries,
		RetryDelay: cfg.Sync.RetryDelay,
		Interval:   cfg.Sync.Interval,
	}, logr.Named("sync"))
	syncSvc.Start(ctx)
	defer syncSvc.Stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	health := handler.NewHealthHandler(metrics, map[string]handler.Check{
		"postgres": db.PingContext,
		"redis":    cacheRepo.Ping,
	})
	r := newRouter(cfg, logr, routes{
		accounts:   handler.NewAccountHandler(accountSvc),
		grades:     handler.NewGradeHandler(schoolSvc, exportSvc),
		timetable:  handler.NewTimetableHandler(schoolSvc),
		homework:   handler.NewHomeworkHandler(homeworkSvc),
		sync:       handler.NewSyncHandler(syncSvc),
		health:     health,
		metrics:    metrics,
		tokens:     accountSvc,
		homeworkOn: cfg.Homework.Enabled,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", server.Addr), zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logr.Info("server exited")
	return nil
}

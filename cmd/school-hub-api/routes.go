package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/school-hub-api/internal/handler"
	"github.com/noah-isme/school-hub-api/internal/middleware"
	"github.com/noah-isme/school-hub-api/internal/service"
	"github.com/noah-isme/school-hub-api/pkg/config"
	"github.com/noah-isme/school-hub-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/school-hub-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/school-hub-api/pkg/middleware/requestid"
)

type routes struct {
	accounts   *handler.AccountHandler
	grades     *handler.GradeHandler
	timetable  *handler.TimetableHandler
	homework   *handler.HomeworkHandler
	sync       *handler.SyncHandler
	health     *handler.HealthHandler
	metrics    *service.MetricsService
	tokens     *service.AccountService
	homeworkOn bool
}

func newRouter(cfg *config.Config, logr *zap.Logger, h routes) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, middleware.ContextAccountIDKey))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(middleware.Metrics(h.metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", h.health.Health)
	r.GET("/ready", h.health.Ready)
	r.GET("/metrics", h.health.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/accounts/link", h.accounts.Link)
	api.GET("/metrics/summary", h.health.Summary)

	secured := api.Group("")
	secured.Use(middleware.JWT(h.tokens))
	secured.GET("/accounts/me", h.accounts.Me)
	secured.DELETE("/accounts/me", h.accounts.Unlink)

	grades := secured.Group("/grades/periods")
	grades.GET("", h.grades.Periods)
	grades.GET("/current", h.grades.CurrentPeriod)
	grades.GET("/:id", h.grades.Report)
	grades.GET("/:id/export", h.grades.Export)

	secured.GET("/timetable/weeks/:week", h.timetable.Week)

	homework := secured.Group("/homework")
	homework.Use(middleware.RequireFeature(h.homeworkOn, "homework"))
	homework.GET("", h.homework.List)
	homework.POST("", h.homework.Create)
	homework.GET("/:id", h.homework.Get)
	homework.PUT("/:id", h.homework.Update)
	homework.DELETE("/:id", h.homework.Delete)
	homework.PATCH("/:id/done", h.homework.SetDone)

	secured.POST("/sync", h.sync.Trigger)

	return r
}

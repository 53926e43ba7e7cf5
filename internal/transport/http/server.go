package http

import (
	"github.com/gin-gonic/gin"

	"resume-ragger/internal/bootstrap"
	"resume-ragger/internal/transport/http/handler"
	"resume-ragger/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app.Config.App.Name, app.Config.App.Env, app.StartedAt, app.HealthChecks())
	router.GET("/healthz", healthHandler.Check)

	var runs handler.RunLister
	if app.Runs != nil {
		runs = app.Runs
	}
	resumeHandler := handler.NewResumeHandler(app.Index, app.Ingest, runs, app.Config.Resume.SearchLimit)

	v1 := router.Group("/api/v1")
	resumeGroup := v1.Group("/resume")
	resumeGroup.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))
	resumeGroup.POST("/search", resumeHandler.Search)
	resumeGroup.POST("/upload", resumeHandler.Upload)
	resumeGroup.GET("/stats", resumeHandler.Stats)
	resumeGroup.GET("/runs", resumeHandler.Runs)

	return router
}

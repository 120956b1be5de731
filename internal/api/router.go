package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/lumoxuan/CodeMentor-API/internal/api/handlers"
	"github.com/lumoxuan/CodeMentor-API/internal/api/middleware"
	"github.com/lumoxuan/CodeMentor-API/internal/backend"
	"github.com/lumoxuan/CodeMentor-API/internal/events"
	"github.com/lumoxuan/CodeMentor-API/internal/invoker"
	"github.com/lumoxuan/CodeMentor-API/internal/knowledge"
	"github.com/lumoxuan/CodeMentor-API/internal/modelstore"
	"github.com/lumoxuan/CodeMentor-API/internal/quality"
	"github.com/lumoxuan/CodeMentor-API/internal/query"
	"github.com/lumoxuan/CodeMentor-API/internal/scraper"
	"github.com/lumoxuan/CodeMentor-API/internal/stats"
	"github.com/lumoxuan/CodeMentor-API/internal/token"
	"github.com/lumoxuan/CodeMentor-API/internal/trainer"
)

// Deps 路由依赖集合
// 所有服务由 main 构造后注入，路由层不自行创建依赖
type Deps struct {
	DB          *gorm.DB
	Invoker     *invoker.Invoker
	Detector    quality.Detector
	Analyzer    *quality.CodeAnalyzer
	Queries     *query.Service
	Knowledge   *knowledge.Repository
	StatsRepo   *stats.Repository
	Counter     *stats.RequestCounter
	Trainer     *trainer.Service
	TrainerRepo *trainer.Repository
	Events      *events.Service
	Store       *modelstore.Store
	Registry    *backend.Registry
	Tokens      *token.Service
	Processor   *scraper.Processor
	Scrapers    []scraper.Scraper
	Jobs        handlers.JobLister
	Reloader    trainer.ModelReloader
	AdminToken  string
	KeepBackups int
}

// SetupRouter 配置路由
func SetupRouter(deps Deps) *gin.Engine {
	router := gin.Default()
	router.Use(cors.Default())

	askHandler := handlers.NewAskHandler(deps.Invoker, deps.Detector, deps.Analyzer, deps.Queries)
	knowledgeHandler := handlers.NewKnowledgeHandler(deps.Knowledge)
	statusHandler := handlers.NewStatusHandler(deps.DB, deps.Registry, deps.Store,
		deps.Trainer, deps.TrainerRepo, deps.Knowledge, deps.Queries, deps.StatsRepo, deps.Counter)
	adminHandler := handlers.NewAdminHandler(deps.Processor, deps.Scrapers, deps.Trainer,
		deps.Store, deps.Events, deps.Reloader, deps.KeepBackups)
	schedulerHandler := handlers.NewSchedulerHandler(deps.Jobs)
	tokenHandler := handlers.NewTokenHandler(deps.Tokens)

	// 健康检查端点（不计入请求统计，不需要认证）
	router.GET("/health", statusHandler.Health)

	apiGroup := router.Group("/api")
	apiGroup.Use(middleware.RequestCounterMiddleware(deps.Counter))
	{
		// 问答端点
		apiGroup.POST("/ask", askHandler.Ask)
		apiGroup.POST("/generate-code", askHandler.GenerateCode)
		apiGroup.POST("/debug-code", askHandler.DebugCode)
		apiGroup.POST("/analyze-code", askHandler.AnalyzeCode)
		apiGroup.POST("/learn-concept", askHandler.LearnConcept)
		apiGroup.POST("/feedback", askHandler.Feedback)

		// 查询端点
		apiGroup.GET("/knowledge/search", knowledgeHandler.Search)
		apiGroup.GET("/status", statusHandler.Status)
		apiGroup.GET("/analytics", statusHandler.Analytics)
		apiGroup.GET("/scheduler/jobs", schedulerHandler.ListJobs)

		// 管理端点，需要 Token 认证
		adminGroup := apiGroup.Group("/admin")
		adminGroup.Use(middleware.TokenAuthMiddleware(deps.Tokens, deps.AdminToken))
		{
			adminGroup.POST("/collect", adminHandler.Collect)
			adminGroup.POST("/train", adminHandler.Train)
			adminGroup.GET("/backups", adminHandler.ListBackups)
			adminGroup.POST("/backups/:version/restore", adminHandler.RestoreBackup)
			adminGroup.POST("/backups/prune", adminHandler.PruneBackups)
			adminGroup.GET("/events", adminHandler.ListEvents)

			tokens := adminGroup.Group("/tokens")
			{
				tokens.POST("", tokenHandler.CreateToken)
				tokens.GET("", tokenHandler.ListTokens)
				tokens.GET("/:id", tokenHandler.GetToken)
				tokens.DELETE("/:id", tokenHandler.DeleteToken)
				tokens.POST("/:id/enable", tokenHandler.EnableToken)
				tokens.POST("/:id/disable", tokenHandler.DisableToken)
			}
		}
	}

	return router
}

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

	"github.com/lumoxuan/CodeMentor-API/internal/api"
	"github.com/lumoxuan/CodeMentor-API/internal/backend"
	"github.com/lumoxuan/CodeMentor-API/internal/config"
	"github.com/lumoxuan/CodeMentor-API/internal/db"
	"github.com/lumoxuan/CodeMentor-API/internal/events"
	"github.com/lumoxuan/CodeMentor-API/internal/invoker"
	"github.com/lumoxuan/CodeMentor-API/internal/knowledge"
	"github.com/lumoxuan/CodeMentor-API/internal/modelstore"
	"github.com/lumoxuan/CodeMentor-API/internal/quality"
	"github.com/lumoxuan/CodeMentor-API/internal/query"
	"github.com/lumoxuan/CodeMentor-API/internal/scheduler"
	"github.com/lumoxuan/CodeMentor-API/internal/scraper"
	"github.com/lumoxuan/CodeMentor-API/internal/selector"
	"github.com/lumoxuan/CodeMentor-API/internal/stats"
	"github.com/lumoxuan/CodeMentor-API/internal/token"
	"github.com/lumoxuan/CodeMentor-API/internal/trainer"
)

const (
	// Version 项目版本
	Version = "1.0.0"
	// AppName 应用名称
	AppName = "CodeMentor-API"
)

func main() {
	log.Printf("=== %s v%s ===", AppName, Version)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config.yaml"
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("❌ 加载配置失败: %v", err)
	}

	if err := run(cfg); err != nil {
		log.Fatalf("❌ 服务退出: %v", err)
	}
}

func run(cfg *config.Config) error {
	// 1. 数据库
	database, err := db.InitDatabase(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.CloseDatabase(database)

	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(database); err != nil {
			return err
		}
	}

	// 2. 模型目录与后端
	store := modelstore.NewStore(cfg.Model.BaseDir)
	local := backend.NewLocalExpert(store)
	registry := backend.NewRegistry(
		local,
		backend.NewOpenAI(cfg.Backends.OpenAI, cfg.Backends.RequestTimeout),
		backend.NewDeepSeek(cfg.Backends.DeepSeek, cfg.Backends.RequestTimeout),
	)
	log.Printf("📊 可用后端: %v", registry.Available())

	// 3. 仓库与服务
	statsRepo := stats.NewRepository(database)
	kb := knowledge.NewRepository(database)
	trainerRepo := trainer.NewRepository(database)
	eventsSvc := events.NewService(database)
	queries := query.NewService(database)
	tokens := token.NewService(token.NewRepository(database))

	estimator := quality.NewHeuristicEstimator()
	trainerSvc := trainer.NewService(trainerRepo, store,
		trainer.NewEvaluator(estimator), eventsSvc, local, cfg.Training, cfg.Model.KeepBackups)

	sel, err := selector.NewPreferenceSelector(selector.DefaultPreferences(), statsRepo, registry)
	if err != nil {
		return err
	}
	inv := invoker.NewInvoker(registry, sel, estimator, statsRepo, cfg.Backends.DualTimeout)

	// 4. 数据采集流水线
	client := scraper.NewClient(&cfg.Scraper)
	scrapers := []scraper.Scraper{
		scraper.NewStackOverflowScraper(client, &cfg.Scraper),
		scraper.NewGitHubScraper(client, &cfg.Scraper),
		scraper.NewDocsScraper(client, &cfg.Scraper),
	}
	processor := scraper.NewProcessor(database, kb, trainerRepo, eventsSvc, cfg.Training.MinQualityScore)

	// 5. 定时任务
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(scheduler.Deps{
			DB:        database,
			Processor: processor,
			Scrapers:  scrapers,
			Trainer:   trainerSvc,
			Knowledge: kb,
			Query:     queries,
			Events:    eventsSvc,
			Store:     store,
			Registry:  registry,
		}, cfg.Scheduler, cfg.Model.KeepBackups)
		sched.Start()
		defer sched.Stop()
	} else {
		log.Println("⚠️  定时任务已禁用")
	}

	// 6. 路由
	deps := api.Deps{
		DB:          database,
		Invoker:     inv,
		Detector:    quality.NewKeywordDetector(),
		Analyzer:    quality.NewCodeAnalyzer(),
		Queries:     queries,
		Knowledge:   kb,
		StatsRepo:   statsRepo,
		Counter:     stats.NewRequestCounter(time.Minute),
		Trainer:     trainerSvc,
		TrainerRepo: trainerRepo,
		Events:      eventsSvc,
		Store:       store,
		Registry:    registry,
		Tokens:      tokens,
		Processor:   processor,
		Scrapers:    scrapers,
		Reloader:    local,
		AdminToken:  cfg.Server.AdminToken,
		KeepBackups: cfg.Model.KeepBackups,
	}
	if sched != nil {
		deps.Jobs = sched
	}
	router := api.SetupRouter(deps)

	// 7. HTTP 服务与优雅退出
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("✅ 服务已启动: http://localhost:%d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("🔄 收到退出信号，开始优雅关闭...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("关闭 HTTP 服务失败: %w", err)
	}

	log.Println("👋 服务已退出")
	return nil
}

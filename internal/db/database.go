package db

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/lumoxuan/CodeMentor-API/internal/config"
	"github.com/lumoxuan/CodeMentor-API/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDatabase 初始化数据库连接
func InitDatabase(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	// 确保数据目录存在
	dbDir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("创建数据目录失败: %w", err)
	}

	// 配置 GORM 日志级别
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	// 连接数据库
	db, err := gorm.Open(sqlite.Open(cfg.Path), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	// 获取底层 SQL DB 以配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取 SQL DB 失败: %w", err)
	}

	// 配置连接池参数
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	log.Printf("✅ 数据库连接成功: %s", cfg.Path)

	return db, nil
}

// AutoMigrate 自动迁移所有数据模型
func AutoMigrate(db *gorm.DB) error {
	log.Println("🔄 开始数据库迁移...")

	// 迁移所有模型
	err := db.AutoMigrate(
		&models.KnowledgeItem{},
		&models.TrainingSample{},
		&models.InvocationRecord{},
		&models.ComparisonRecord{},
		&models.ModelVersion{},
		&models.UserQuery{},
		&models.ScrapeLog{},
		&models.SystemEvent{},
		&models.Token{},
	)

	if err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}

	log.Println("✅ 数据库迁移完成")

	// 初始化默认数据
	if err := initDefaultData(db); err != nil {
		return fmt.Errorf("初始化默认数据失败: %w", err)
	}

	return nil
}

// initDefaultData 初始化默认数据
// 本地后端在任何训练发生之前依靠内置规则专家回答，
// 这里登记一条 baseline 版本记录，保证版本历史从不为空。
func initDefaultData(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.ModelVersion{}).Count(&count).Error; err != nil {
		return fmt.Errorf("统计模型版本失败: %w", err)
	}

	// 已有数据则跳过
	if count > 0 {
		return nil
	}

	baseline := &models.ModelVersion{
		Version: "baseline",
		State:   models.ModelStateCurrent,
		Notes:   "内置规则专家，未经训练",
	}

	if err := db.Create(baseline).Error; err != nil {
		return fmt.Errorf("创建 baseline 版本失败: %w", err)
	}

	log.Println("📊 已登记 baseline 模型版本")

	return nil
}

// CloseDatabase 关闭数据库连接
func CloseDatabase(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("获取 SQL DB 失败: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("关闭数据库失败: %w", err)
	}

	log.Println("👋 数据库连接已关闭")
	return nil
}

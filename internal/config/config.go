package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig 服务器配置
type ServerConfig struct {
	Port       int    `yaml:"port"`
	LogLevel   string `yaml:"log_level"`
	AdminToken string `yaml:"-"` // 管理端引导令牌，仅环境变量注入
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Path            string        `yaml:"path"`              // 数据库文件路径
	MaxOpenConns    int           `yaml:"max_open_conns"`    // 最大连接数
	MaxIdleConns    int           `yaml:"max_idle_conns"`    // 最大空闲连接数
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"` // 连接最大生命周期
	AutoMigrate     bool          `yaml:"auto_migrate"`      // 是否自动迁移
}

// BackendConfig 单个供应商后端配置
// APIKey 为空表示该后端不可用
type BackendConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"-"` // 仅通过环境变量注入，不落盘
}

// BackendsConfig 所有后端配置
type BackendsConfig struct {
	OpenAI         BackendConfig `yaml:"openai"`
	DeepSeek       BackendConfig `yaml:"deepseek"`
	RequestTimeout time.Duration `yaml:"request_timeout"` // 供应商 HTTP 客户端超时
	DualTimeout    time.Duration `yaml:"dual_timeout"`    // 双后端对比模式共享的超时预算
}

// ModelConfig 本地模型配置
type ModelConfig struct {
	BaseDir     string `yaml:"base_dir"`     // 模型根目录（current/ 和 backups/ 所在）
	KeepBackups int    `yaml:"keep_backups"` // 备份保留数量
}

// TrainingConfig 训练与晋升配置
type TrainingConfig struct {
	MinSamples       int     `yaml:"min_samples"`       // 触发训练的最少样本数
	MaxSamples       int     `yaml:"max_samples"`       // 单次训练最多消费的样本数
	MinQualityScore  float64 `yaml:"min_quality_score"` // 样本入选的最低质量分
	Epochs           int     `yaml:"epochs"`            // 微调轮数
	MinAccuracy      float64 `yaml:"min_accuracy"`      // 晋升的最低准确率
	MinSuccessRate   float64 `yaml:"min_success_rate"`  // 晋升的最低成功率
	ImprovementDelta float64 `yaml:"improvement_delta"` // 相对上一版本的最小提升幅度
}

// ScraperConfig 数据采集配置
type ScraperConfig struct {
	Delay             time.Duration `yaml:"delay"`           // 请求间隔
	RequestTimeout    time.Duration `yaml:"request_timeout"` // 单请求超时
	MaxQuestions      int           `yaml:"max_questions"`   // Stack Overflow 单次最多抓取问题数
	MaxFilesPerRepo   int           `yaml:"max_files_per_repo"`
	MinContentLength  int           `yaml:"min_content_length"`
	StackOverflowTags []string      `yaml:"stackoverflow_tags"`
	GitHubRepos       []string      `yaml:"github_repos"`
	DocURLs           []string      `yaml:"doc_urls"`
	GitHubToken       string        `yaml:"-"` // 环境变量注入
	StackOverflowKey  string        `yaml:"-"` // 环境变量注入
}

// SchedulerConfig 定时任务配置
type SchedulerConfig struct {
	Enabled             bool `yaml:"enabled"`
	CollectionHours     int  `yaml:"collection_hours"`     // 数据采集间隔（小时）
	TrainingHours       int  `yaml:"training_hours"`       // 模型训练间隔（小时）
	ScrapeLogKeepDays   int  `yaml:"scrape_log_keep_days"` // 采集日志保留天数
	UserQueryKeepDays   int  `yaml:"user_query_keep_days"` // 用户提问保留天数
	SystemEventKeepDays int  `yaml:"system_event_keep_days"`
}

// Config 应用配置
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Backends  BackendsConfig  `yaml:"backends"`
	Model     ModelConfig     `yaml:"model"`
	Training  TrainingConfig  `yaml:"training"`
	Scraper   ScraperConfig   `yaml:"scraper"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:     8080,
			LogLevel: "info",
		},
		Database: DatabaseConfig{
			Path:            "./data/codementor.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
			AutoMigrate:     true,
		},
		Backends: BackendsConfig{
			OpenAI: BackendConfig{
				BaseURL: "https://api.openai.com/v1",
				Model:   "gpt-4o",
			},
			DeepSeek: BackendConfig{
				BaseURL: "https://api.deepseek.com/v1",
				Model:   "deepseek-coder",
			},
			RequestTimeout: 30 * time.Second,
			DualTimeout:    45 * time.Second,
		},
		Model: ModelConfig{
			BaseDir:     "./models",
			KeepBackups: 5,
		},
		Training: TrainingConfig{
			MinSamples:       100,
			MaxSamples:       1000,
			MinQualityScore:  0.5,
			Epochs:           3,
			MinAccuracy:      0.4,
			MinSuccessRate:   0.7,
			ImprovementDelta: 0.05,
		},
		Scraper: ScraperConfig{
			Delay:             time.Second,
			RequestTimeout:    30 * time.Second,
			MaxQuestions:      50,
			MaxFilesPerRepo:   10,
			MinContentLength:  100,
			StackOverflowTags: []string{"python", "javascript", "go"},
			GitHubRepos:       []string{"python/cpython", "pallets/flask"},
			DocURLs: []string{
				"https://docs.python.org/3/tutorial/datastructures.html",
				"https://docs.python.org/3/tutorial/errors.html",
			},
		},
		Scheduler: SchedulerConfig{
			Enabled:             true,
			CollectionHours:     24,
			TrainingHours:       72,
			ScrapeLogKeepDays:   30,
			UserQueryKeepDays:   90,
			SystemEventKeepDays: 30,
		},
	}
}

// LoadConfig 加载配置
// 顺序：默认值 → YAML 文件（可选）→ 环境变量覆盖 → 校验
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// 读取 YAML 配置文件（不存在则跳过，使用默认值）
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("解析配置文件失败: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvOverrides 应用环境变量覆盖
// 密钥类配置只能通过环境变量注入
func applyEnvOverrides(cfg *Config) {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if dbPath := os.Getenv("DATABASE_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if dir := os.Getenv("MODEL_BASE_DIR"); dir != "" {
		cfg.Model.BaseDir = dir
	}

	cfg.Server.AdminToken = os.Getenv("ADMIN_TOKEN")
	cfg.Backends.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	cfg.Backends.DeepSeek.APIKey = os.Getenv("DEEPSEEK_API_KEY")
	cfg.Scraper.GitHubToken = os.Getenv("GITHUB_TOKEN")
	cfg.Scraper.StackOverflowKey = os.Getenv("STACKOVERFLOW_KEY")

	if v := os.Getenv("MIN_TRAINING_SAMPLES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Training.MinSamples = n
		}
	}
}

// Validate 校验配置
// 在加载时显式失败，避免运行期才暴露非法配置
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("非法端口: %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("数据库路径不能为空")
	}
	if c.Model.KeepBackups < 1 {
		return fmt.Errorf("备份保留数量至少为 1，当前: %d", c.Model.KeepBackups)
	}
	if c.Training.MinSamples <= 0 {
		return fmt.Errorf("最少训练样本数必须大于 0")
	}
	if c.Training.MaxSamples < c.Training.MinSamples {
		return fmt.Errorf("max_samples (%d) 不能小于 min_samples (%d)",
			c.Training.MaxSamples, c.Training.MinSamples)
	}
	if c.Training.MinQualityScore < 0 || c.Training.MinQualityScore > 1 {
		return fmt.Errorf("样本质量阈值必须在 [0,1] 区间: %f", c.Training.MinQualityScore)
	}
	if c.Training.MinAccuracy < 0 || c.Training.MinAccuracy > 1 {
		return fmt.Errorf("晋升准确率阈值必须在 [0,1] 区间: %f", c.Training.MinAccuracy)
	}
	if c.Training.MinSuccessRate < 0 || c.Training.MinSuccessRate > 1 {
		return fmt.Errorf("晋升成功率阈值必须在 [0,1] 区间: %f", c.Training.MinSuccessRate)
	}
	if c.Training.ImprovementDelta < 0 {
		return fmt.Errorf("提升幅度阈值不能为负: %f", c.Training.ImprovementDelta)
	}
	if c.Backends.RequestTimeout <= 0 {
		return fmt.Errorf("后端请求超时必须大于 0")
	}
	if c.Backends.DualTimeout <= 0 {
		return fmt.Errorf("双后端超时预算必须大于 0")
	}
	return nil
}

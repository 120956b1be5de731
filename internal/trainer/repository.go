package trainer

import (
	"errors"

	"github.com/lumoxuan/CodeMentor-API/internal/models"
	"gorm.io/gorm"
)

// ErrVersionNotFound 模型版本记录不存在
var ErrVersionNotFound = errors.New("model version not found")

// Repository 训练样本与模型版本数据访问层
type Repository struct {
	db *gorm.DB
}

// NewRepository 创建 Repository 实例
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateSample 写入一条训练样本
func (r *Repository) CreateSample(sample *models.TrainingSample) error {
	return r.db.Create(sample).Error
}

// SampleExistsByURL 判断来源 URL 是否已有样本
func (r *Repository) SampleExistsByURL(url string) (bool, error) {
	var count int64
	err := r.db.Model(&models.TrainingSample{}).Where("source_url = ?", url).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CollectSamples 收集未使用且质量达标的训练样本
// 质量分倒序取前 maxSamples 条
func (r *Repository) CollectSamples(maxSamples int, minQuality float64) ([]models.TrainingSample, error) {
	var samples []models.TrainingSample
	err := r.db.
		Where("used_for_training = ? AND quality_score >= ?", false, minQuality).
		Order("quality_score DESC").
		Limit(maxSamples).
		Find(&samples).Error
	if err != nil {
		return nil, err
	}
	return samples, nil
}

// CountSamples 训练样本总数与未使用数
func (r *Repository) CountSamples() (total int64, unused int64, err error) {
	if err = r.db.Model(&models.TrainingSample{}).Count(&total).Error; err != nil {
		return 0, 0, err
	}
	err = r.db.Model(&models.TrainingSample{}).Where("used_for_training = ?", false).Count(&unused).Error
	return total, unused, err
}

// MarkSamplesUsed 批量翻转 used_for_training 标记
func (r *Repository) MarkSamplesUsed(ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.Model(&models.TrainingSample{}).
		Where("id IN ?", ids).
		Update("used_for_training", true).Error
}

// CreateVersion 写入模型版本记录
func (r *Repository) CreateVersion(version *models.ModelVersion) error {
	return r.db.Create(version).Error
}

// CurrentVersion 取当前对外服务的模型版本记录
func (r *Repository) CurrentVersion() (*models.ModelVersion, error) {
	var version models.ModelVersion
	err := r.db.Where("state = ?", models.ModelStateCurrent).
		Order("created_at DESC").
		First(&version).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVersionNotFound
		}
		return nil, err
	}
	return &version, nil
}

// DemoteCurrent 把所有 current 状态的版本改为 backed-up
// 晋升新版本前调用，保证 current 至多一个
func (r *Repository) DemoteCurrent() error {
	return r.db.Model(&models.ModelVersion{}).
		Where("state = ?", models.ModelStateCurrent).
		Update("state", models.ModelStateBackedUp).Error
}

// ListVersions 按创建时间倒序列出版本记录
func (r *Repository) ListVersions(limit int) ([]*models.ModelVersion, error) {
	if limit <= 0 {
		limit = 20
	}
	var versions []*models.ModelVersion
	err := r.db.Order("created_at DESC").Limit(limit).Find(&versions).Error
	if err != nil {
		return nil, err
	}
	return versions, nil
}

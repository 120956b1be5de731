package knowledge

import (
	"errors"

	"github.com/lumoxuan/CodeMentor-API/internal/models"
	"gorm.io/gorm"
)

// maxSearchLimit 单次检索返回条数上限
const maxSearchLimit = 50

// ErrItemNotFound 知识条目不存在
var ErrItemNotFound = errors.New("knowledge item not found")

// Repository 知识库数据访问层
type Repository struct {
	db *gorm.DB
}

// NewRepository 创建 Repository 实例
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create 创建知识条目
func (r *Repository) Create(item *models.KnowledgeItem) error {
	return r.db.Create(item).Error
}

// FindByID 根据 ID 查找知识条目
func (r *Repository) FindByID(id uint) (*models.KnowledgeItem, error) {
	var item models.KnowledgeItem
	err := r.db.First(&item, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

// ExistsByURL 判断来源 URL 是否已收录
func (r *Repository) ExistsByURL(url string) (bool, error) {
	var count int64
	err := r.db.Model(&models.KnowledgeItem{}).Where("source_url = ?", url).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Search 按关键词检索标题和正文
// 质量分倒序返回，limit 超过上限时收敛到上限
func (r *Repository) Search(query string, limit int) ([]*models.KnowledgeItem, error) {
	if limit <= 0 || limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	pattern := "%" + query + "%"

	var items []*models.KnowledgeItem
	err := r.db.
		Where("title LIKE ? OR content LIKE ?", pattern, pattern).
		Order("quality_score DESC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	return items, nil
}

// Count 知识条目总数
func (r *Repository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.KnowledgeItem{}).Count(&count).Error
	return count, err
}

// SourceStat 按来源的统计结果
type SourceStat struct {
	SourceType string `json:"source_type"`
	Count      int64  `json:"count"`
}

// LanguageStat 按语言的统计结果
type LanguageStat struct {
	Language string `json:"language"`
	Count    int64  `json:"count"`
}

// StatsBySource 按来源类型统计条目数
func (r *Repository) StatsBySource() ([]SourceStat, error) {
	var rows []SourceStat
	err := r.db.Model(&models.KnowledgeItem{}).
		Select("source_type, COUNT(*) AS count").
		Group("source_type").
		Order("count DESC").
		Find(&rows).Error
	return rows, err
}

// StatsByLanguage 按语言统计条目数
func (r *Repository) StatsByLanguage() ([]LanguageStat, error) {
	var rows []LanguageStat
	err := r.db.Model(&models.KnowledgeItem{}).
		Select("language, COUNT(*) AS count").
		Group("language").
		Order("count DESC").
		Find(&rows).Error
	return rows, err
}

// DeleteDuplicates 清理重复条目
// 同一 source_url 只保留质量分最高的一条，返回删除数量
func (r *Repository) DeleteDuplicates() (int64, error) {
	result := r.db.Exec(`
		DELETE FROM knowledge_items
		WHERE source_url != ''
		  AND id NOT IN (
			SELECT keep_id FROM (
				SELECT id AS keep_id,
				       ROW_NUMBER() OVER (PARTITION BY source_url ORDER BY quality_score DESC, id ASC) AS rn
				FROM knowledge_items
				WHERE source_url != ''
			) ranked
			WHERE rn = 1
		  )`)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

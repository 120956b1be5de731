package query

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lumoxuan/CodeMentor-API/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrQueryNotFound 提问记录不存在
	ErrQueryNotFound = errors.New("query not found")
	// ErrInvalidRating 评分必须在 1-5 之间
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
)

// goodRatingThreshold 评分达到该值的问答转化为训练样本
const goodRatingThreshold = 4

// Service 用户提问记录服务
// 记录每次问答交互；高评分的交互回流为训练样本
type Service struct {
	db *gorm.DB
}

// NewService 创建 Service 实例
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Record 保存一次问答交互，返回对外暴露的 query_id
func (s *Service) Record(q *models.UserQuery) (string, error) {
	q.QueryID = uuid.New().String()

	if err := s.db.Create(q).Error; err != nil {
		return "", fmt.Errorf("保存提问记录失败: %w", err)
	}

	return q.QueryID, nil
}

// FindByQueryID 根据对外 ID 查找提问记录
func (s *Service) FindByQueryID(queryID string) (*models.UserQuery, error) {
	var q models.UserQuery
	err := s.db.Where("query_id = ?", queryID).First(&q).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQueryNotFound
		}
		return nil, err
	}
	return &q, nil
}

// SubmitFeedback 提交评分
// 评分达到阈值的问答自动生成训练样本，来源标记为 user_query
func (s *Service) SubmitFeedback(queryID string, rating int) error {
	if rating < 1 || rating > 5 {
		return ErrInvalidRating
	}

	q, err := s.FindByQueryID(queryID)
	if err != nil {
		return err
	}

	if err := s.db.Model(q).Update("rating", rating).Error; err != nil {
		return fmt.Errorf("更新评分失败: %w", err)
	}

	if rating >= goodRatingThreshold {
		sample := &models.TrainingSample{
			Question:     q.Question,
			Answer:       q.Answer,
			Language:     q.Language,
			Category:     q.TaskType,
			SourceType:   "user_query",
			QualityScore: q.QualityScore,
		}
		if err := s.db.Create(sample).Error; err != nil {
			// 样本回流失败不影响评分本身
			log.Printf("⚠️  高分问答转训练样本失败: %v", err)
		}
	}

	return nil
}

// CountQueries 提问记录总数
func (s *Service) CountQueries() (int64, error) {
	var count int64
	err := s.db.Model(&models.UserQuery{}).Count(&count).Error
	return count, err
}

// CleanupOldQueries 清理超过保留天数的提问记录，返回删除数量
func (s *Service) CleanupOldQueries(days int) (int64, error) {
	cutoffTime := time.Now().AddDate(0, 0, -days)

	result := s.db.Where("created_at < ?", cutoffTime).Delete(&models.UserQuery{})
	if result.Error != nil {
		return 0, fmt.Errorf("清理提问记录失败: %w", result.Error)
	}

	return result.RowsAffected, nil
}

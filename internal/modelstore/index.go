package modelstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// indexFileName 模型目录中的索引文件名
const indexFileName = "index.json"

// BackupInfo 备份元信息
type BackupInfo struct {
	Version   string    `json:"version"`
	Path      string    `json:"path"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// IndexEntry 索引中的一条问答知识
type IndexEntry struct {
	Question     string  `json:"question"`
	Answer       string  `json:"answer"`
	Language     string  `json:"language"`
	Category     string  `json:"category"`
	QualityScore float64 `json:"quality_score"`
}

// Index 本地专家模型的回答索引
// 模型目录的核心内容就是这份索引，训练 = 重建索引
type Index struct {
	Version     string       `json:"version"`
	BuiltAt     time.Time    `json:"built_at"`
	Epochs      int          `json:"epochs"`
	SampleCount int          `json:"sample_count"`
	Entries     []IndexEntry `json:"entries"`
}

// LoadIndex 从模型目录读取索引
func LoadIndex(dir string) (*Index, error) {
	data, err := os.ReadFile(filepath.Join(dir, indexFileName))
	if err != nil {
		return nil, fmt.Errorf("读取索引文件失败: %w", err)
	}

	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("解析索引文件失败: %w", err)
	}

	return &idx, nil
}

// SaveIndex 将索引写入模型目录
func SaveIndex(dir string, idx *Index) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("创建模型目录失败: %w", err)
	}

	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化索引失败: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, indexFileName), data, 0644); err != nil {
		return fmt.Errorf("写入索引文件失败: %w", err)
	}

	return nil
}

// CurrentInfo 读取当前模型的索引元信息
// 当前模型不存在或索引缺失时返回 ErrNoCurrentModel
func (s *Store) CurrentInfo() (*Index, error) {
	if !s.HasCurrent() {
		return nil, ErrNoCurrentModel
	}

	idx, err := LoadIndex(s.CurrentDir())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoCurrentModel
		}
		return nil, err
	}

	return idx, nil
}

package selector

import (
	"errors"
	"fmt"
	"log"

	"github.com/lumoxuan/CodeMentor-API/internal/models"
)

var (
	// ErrNoBackendAvailable 没有任何后端可用
	ErrNoBackendAvailable = errors.New("no backend available")
)

// Selector 后端选择器
// 决定一个问题交给哪个后端回答，实现可替换
type Selector interface {
	// Select 选出最合适的后端
	Select(taskType models.TaskType, language string) (models.BackendID, error)
}

// History 历史表现查询
// 由调用记录仓库实现
type History interface {
	// BestBackend 返回历史表现达标的最佳后端，ok=false 表示无达标记录
	BestBackend(taskType models.TaskType, language string) (models.BackendID, bool, error)
}

// Availability 后端可用性查询
type Availability interface {
	// Available 当前可用的后端标识列表
	Available() []models.BackendID
}

// Preference 单个 (任务类型, 语言) 桶的主备后端
type Preference struct {
	Primary  models.BackendID
	Fallback models.BackendID
}

// PreferenceTable 静态偏好表
// 外层键为任务类型，内层键为语言；"general" 和 "all" 是语言级兜底桶
type PreferenceTable map[models.TaskType]map[string]Preference

// DefaultPreferences 默认偏好表
// 经验规则：OpenAI 长于生成和讲解，DeepSeek 长于 Python 调试和 JS 生成
func DefaultPreferences() PreferenceTable {
	return PreferenceTable{
		models.TaskCodeGeneration: {
			"python":     {Primary: models.BackendOpenAI, Fallback: models.BackendDeepSeek},
			"javascript": {Primary: models.BackendDeepSeek, Fallback: models.BackendOpenAI},
			"react":      {Primary: models.BackendOpenAI, Fallback: models.BackendDeepSeek},
			"general":    {Primary: models.BackendOpenAI, Fallback: models.BackendDeepSeek},
		},
		models.TaskDebugging: {
			"python":     {Primary: models.BackendDeepSeek, Fallback: models.BackendOpenAI},
			"javascript": {Primary: models.BackendOpenAI, Fallback: models.BackendDeepSeek},
			"general":    {Primary: models.BackendDeepSeek, Fallback: models.BackendOpenAI},
		},
		models.TaskLearning: {
			"all": {Primary: models.BackendOpenAI, Fallback: models.BackendDeepSeek},
		},
		models.TaskArchitecture: {
			"all": {Primary: models.BackendOpenAI, Fallback: models.BackendDeepSeek},
		},
		models.TaskGeneral: {
			"all": {Primary: models.BackendOpenAI, Fallback: models.BackendDeepSeek},
		},
	}
}

// Validate 校验偏好表
// 每个任务类型必须有 "general" 或 "all" 兜底桶，且所有后端标识合法
func (t PreferenceTable) Validate() error {
	if len(t) == 0 {
		return errors.New("preference table is empty")
	}

	for taskType, langs := range t {
		if !taskType.Valid() {
			return fmt.Errorf("unknown task type in preference table: %s", taskType)
		}

		if _, ok := langs["general"]; !ok {
			if _, ok := langs["all"]; !ok {
				return fmt.Errorf("task type %s has no general/all fallback bucket", taskType)
			}
		}

		for lang, pref := range langs {
			if !pref.Primary.Valid() {
				return fmt.Errorf("task %s lang %s: invalid primary backend %q", taskType, lang, pref.Primary)
			}
			if !pref.Fallback.Valid() {
				return fmt.Errorf("task %s lang %s: invalid fallback backend %q", taskType, lang, pref.Fallback)
			}
		}
	}

	return nil
}

// lookup 按语言取桶，依次尝试精确语言、general、all
func (t PreferenceTable) lookup(taskType models.TaskType, language string) (Preference, bool) {
	langs, ok := t[taskType]
	if !ok {
		langs, ok = t[models.TaskGeneral]
		if !ok {
			return Preference{}, false
		}
	}

	if pref, ok := langs[language]; ok {
		return pref, true
	}
	if pref, ok := langs["general"]; ok {
		return pref, true
	}
	if pref, ok := langs["all"]; ok {
		return pref, true
	}

	return Preference{}, false
}

// PreferenceSelector 历史优选 + 静态偏好表的选择器
type PreferenceSelector struct {
	table        PreferenceTable
	history      History
	availability Availability
}

// NewPreferenceSelector 创建选择器，偏好表在此处校验
func NewPreferenceSelector(table PreferenceTable, history History, availability Availability) (*PreferenceSelector, error) {
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("偏好表校验失败: %w", err)
	}

	return &PreferenceSelector{
		table:        table,
		history:      history,
		availability: availability,
	}, nil
}

// Select 选出最合适的后端
// 顺序：历史表现达标的后端 → 偏好表主选 → 偏好表备选 → 任意可用后端
func (s *PreferenceSelector) Select(taskType models.TaskType, language string) (models.BackendID, error) {
	available := s.availability.Available()
	if len(available) == 0 {
		return "", ErrNoBackendAvailable
	}

	availableSet := make(map[models.BackendID]bool, len(available))
	for _, id := range available {
		availableSet[id] = true
	}

	// 1. 历史表现优先
	if best, ok, err := s.history.BestBackend(taskType, language); err != nil {
		// 历史查询失败不阻断选择，退回偏好表
		log.Printf("⚠️  历史表现查询失败: %v", err)
	} else if ok && availableSet[best] {
		return best, nil
	}

	// 2. 静态偏好表
	if pref, ok := s.table.lookup(taskType, language); ok {
		if availableSet[pref.Primary] {
			return pref.Primary, nil
		}
		if availableSet[pref.Fallback] {
			return pref.Fallback, nil
		}
	}

	// 3. 任意可用后端
	return available[0], nil
}

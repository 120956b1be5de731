package quality

import (
	"strings"

	"github.com/lumoxuan/CodeMentor-API/internal/models"
)

// Detector 问题意图识别器
// 从问题文本推断编程语言和任务类型，供选择器和提示词模板使用
type Detector interface {
	// DetectLanguage 推断编程语言，无法识别时返回 "general"
	DetectLanguage(question string) string
	// DetectTaskType 推断任务类型，无法识别时返回 TaskGeneral
	DetectTaskType(question string) models.TaskType
}

// KeywordDetector 基于关键词的识别器
type KeywordDetector struct{}

// NewKeywordDetector 创建关键词识别器
func NewKeywordDetector() *KeywordDetector {
	return &KeywordDetector{}
}

// languageKeywords 按优先级排列的语言关键词规则
// 框架类关键词优先于通用语言关键词，顺序不可调换
var languageKeywords = []struct {
	language string
	words    []string
}{
	{"react", []string{"react", "jsx", "usestate", "useeffect"}},
	{"vue", []string{"vue", "vuejs", "nuxt"}},
	{"go", []string{"golang", "goroutine", "go module"}},
	{"python", []string{"python", "django", "flask", "fastapi", "pandas", "numpy", "pip"}},
	{"javascript", []string{"javascript", "node", "express", "npm", "es6"}},
	{"css", []string{"css", "styling", "layout", "flexbox", "grid"}},
	{"html", []string{"html", "markup", "semantic"}},
}

// DetectLanguage 推断编程语言
func (d *KeywordDetector) DetectLanguage(question string) string {
	lower := strings.ToLower(question)

	for _, rule := range languageKeywords {
		if containsAny(lower, rule.words) {
			return rule.language
		}
	}

	return "general"
}

// taskKeywords 任务类型关键词规则
var taskKeywords = []struct {
	taskType models.TaskType
	words    []string
}{
	{models.TaskDebugging, []string{"error", "bug", "fix", "debug", "troubleshoot", "exception"}},
	{models.TaskCodeGeneration, []string{"create", "generate", "build", "implement", "write a"}},
	{models.TaskLearning, []string{"learn", "what is", "explain", "how does", "tutorial"}},
	{models.TaskArchitecture, []string{"architecture", "design pattern", "structure", "refactor"}},
}

// DetectTaskType 推断任务类型
func (d *KeywordDetector) DetectTaskType(question string) models.TaskType {
	lower := strings.ToLower(question)

	for _, rule := range taskKeywords {
		if containsAny(lower, rule.words) {
			return rule.taskType
		}
	}

	return models.TaskGeneral
}

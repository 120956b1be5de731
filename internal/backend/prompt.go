package backend

import (
	"fmt"
	"strings"

	"github.com/lumoxuan/CodeMentor-API/internal/models"
)

// basePrompt 所有任务共享的系统提示词前缀
const basePrompt = "You are an expert programmer and AI assistant specializing in comprehensive software development."

// taskPrompts 各任务类型的系统提示词片段，%s 为编程语言
var taskPrompts = map[models.TaskType]string{
	models.TaskCodeGeneration: "Focus on generating clean, efficient, and well-documented %s code with proper error handling and best practices.",
	models.TaskDebugging:      "Analyze code issues systematically and provide step-by-step debugging solutions for %s problems.",
	models.TaskLearning:       "Explain %s concepts clearly with practical examples and progressive complexity.",
	models.TaskArchitecture:   "Design scalable and maintainable software architectures using %s and related technologies.",
}

// SamplingParams 采样参数
type SamplingParams struct {
	Temperature float64
	MaxTokens   int
}

// taskSampling 各任务类型的采样参数
// 调试任务用低温度换取确定性，教学和生成任务给更大的输出空间
var taskSampling = map[models.TaskType]SamplingParams{
	models.TaskCodeGeneration: {Temperature: 0.6, MaxTokens: 3000},
	models.TaskDebugging:      {Temperature: 0.3, MaxTokens: 2500},
	models.TaskLearning:       {Temperature: 0.7, MaxTokens: 3000},
	models.TaskArchitecture:   {Temperature: 0.7, MaxTokens: 2500},
	models.TaskGeneral:        {Temperature: 0.7, MaxTokens: 2000},
}

// SamplingFor 返回任务类型对应的采样参数，未知类型落入通用参数
func SamplingFor(taskType models.TaskType) SamplingParams {
	if p, ok := taskSampling[taskType]; ok {
		return p
	}
	return taskSampling[models.TaskGeneral]
}

// BuildSystemPrompt 构建系统提示词
func BuildSystemPrompt(taskType models.TaskType, language string) string {
	if tmpl, ok := taskPrompts[taskType]; ok {
		return basePrompt + " " + fmt.Sprintf(tmpl, language)
	}
	return basePrompt + " Provide comprehensive programming assistance."
}

// BuildUserPrompt 构建用户提示词，附带语言、任务类型和上下文
func BuildUserPrompt(req *ChatRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Query: %s\n", req.Question)
	fmt.Fprintf(&b, "Programming Language: %s\n", req.Language)
	fmt.Fprintf(&b, "Task Type: %s\n", req.TaskType)

	if req.Context != "" {
		fmt.Fprintf(&b, "Context: %s\n", req.Context)
	}

	b.WriteString("\nPlease provide a comprehensive response including:")
	b.WriteString("\n1. Direct answer to the query")
	b.WriteString("\n2. Code examples with explanations")
	b.WriteString("\n3. Best practices and common pitfalls")
	b.WriteString("\n4. Testing recommendations")
	b.WriteString("\n5. Related concepts and next steps")

	return b.String()
}

package models

// BackendID 后端标识
// 系统中所有可用的 AI 回答后端：本地模型 + 两个外部供应商
type BackendID string

const (
	// BackendLocal 本地专家模型
	BackendLocal BackendID = "local"
	// BackendOpenAI OpenAI 供应商
	BackendOpenAI BackendID = "openai"
	// BackendDeepSeek DeepSeek 供应商
	BackendDeepSeek BackendID = "deepseek"
)

// AllBackends 所有已知后端（顺序固定，供遍历使用）
var AllBackends = []BackendID{BackendLocal, BackendOpenAI, BackendDeepSeek}

// Valid 判断后端标识是否合法
func (b BackendID) Valid() bool {
	switch b {
	case BackendLocal, BackendOpenAI, BackendDeepSeek:
		return true
	}
	return false
}

// TaskType 任务类型
// 未知类型会落入通用助手模板，不做强校验
type TaskType string

const (
	TaskCodeGeneration TaskType = "code_generation"
	TaskDebugging      TaskType = "debugging"
	TaskLearning       TaskType = "learning"
	TaskArchitecture   TaskType = "architecture"
	TaskGeneral        TaskType = "general"
)

// Valid 判断任务类型是否为已知类型
func (t TaskType) Valid() bool {
	switch t {
	case TaskCodeGeneration, TaskDebugging, TaskLearning, TaskArchitecture, TaskGeneral:
		return true
	}
	return false
}

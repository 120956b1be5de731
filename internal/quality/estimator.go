package quality

import "strings"

// Estimator 回答质量评估器
// 抽象为接口，便于替换启发式实现或接入真实评估模型
type Estimator interface {
	// Score 评估回答质量，返回 [0.0, 1.0] 区间的分数
	Score(text string, taskType string) float64
}

// HeuristicEstimator 基于文本特征的启发式评估器
// 纯函数实现，相同输入必定得到相同分数
type HeuristicEstimator struct{}

// NewHeuristicEstimator 创建启发式评估器
func NewHeuristicEstimator() *HeuristicEstimator {
	return &HeuristicEstimator{}
}

// connectorWords 解释性连接词，出现任意一个即认为回答包含推理过程
var connectorWords = []string{"because", "since", "this is", "explanation"}

// practiceWords 最佳实践提示词
var practiceWords = []string{"best practice", "recommended"}

// Score 评估回答质量
// 基础分 0.5，命中以下特征各加 0.1，上限 1.0：
//  1. 包含代码块（``` 围栏）
//  2. 包含解释性连接词
//  3. 提及最佳实践
//  4. 包含示例
//  5. 长度超过 500 字符
//
// 空文本直接返回 0.0
func (e *HeuristicEstimator) Score(text string, taskType string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0.0
	}

	score := 0.5
	lower := strings.ToLower(text)

	// 1. 代码块
	if strings.Contains(text, "```") {
		score += 0.1
	}

	// 2. 解释性连接词
	if containsAny(lower, connectorWords) {
		score += 0.1
	}

	// 3. 最佳实践
	if containsAny(lower, practiceWords) {
		score += 0.1
	}

	// 4. 示例
	if strings.Contains(lower, "example") {
		score += 0.1
	}

	// 5. 长度
	if len(text) > 500 {
		score += 0.1
	}

	if score > 1.0 {
		score = 1.0
	}

	return score
}

// containsAny 判断文本是否包含词表中的任意一个词
func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

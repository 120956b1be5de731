package trainer

import (
	"strings"
	"time"

	"github.com/lumoxuan/CodeMentor-API/internal/backend"
	"github.com/lumoxuan/CodeMentor-API/internal/models"
	"github.com/lumoxuan/CodeMentor-API/internal/modelstore"
	"github.com/lumoxuan/CodeMentor-API/internal/quality"
)

// holdoutLimit 常规评估使用的样本上限
const holdoutLimit = 50

// fullRetrainHoldoutLimit 全量重训时的评估样本上限
const fullRetrainHoldoutLimit = 100

// minValidAnswerLength 回答计入成功所需的最小长度
const minValidAnswerLength = 10

// Evaluation 评估结果
type Evaluation struct {
	AccuracyScore float64
	SuccessRate   float64
	AvgLatencyMs  int64
	SampleCount   int
}

// Evaluator 候选模型评估器
// 在留出样本上用候选索引生成回答，以启发式质量分衡量表现
type Evaluator struct {
	estimator quality.Estimator
}

// NewEvaluator 创建评估器
func NewEvaluator(estimator quality.Estimator) *Evaluator {
	return &Evaluator{estimator: estimator}
}

// Evaluate 评估候选索引
// 取样本列表的前若干条作为留出集：accuracy = 生成回答的平均质量分，
// success_rate = 非空且长度达标的回答占比
func (e *Evaluator) Evaluate(idx *modelstore.Index, samples []models.TrainingSample, fullRetrain bool) *Evaluation {
	limit := holdoutLimit
	if fullRetrain {
		limit = fullRetrainHoldoutLimit
	}
	if len(samples) < limit {
		limit = len(samples)
	}

	eval := &Evaluation{SampleCount: limit}
	if limit == 0 {
		return eval
	}

	var totalQuality float64
	var totalLatency int64
	successes := 0

	for i := 0; i < limit; i++ {
		sample := &samples[i]

		startTime := time.Now()
		answer := backend.MatchIndex(idx, sample.Question)
		totalLatency += time.Since(startTime).Milliseconds()

		totalQuality += e.estimator.Score(answer, sample.Category)

		if len(strings.TrimSpace(answer)) > minValidAnswerLength {
			successes++
		}
	}

	eval.AccuracyScore = totalQuality / float64(limit)
	eval.SuccessRate = float64(successes) / float64(limit)
	eval.AvgLatencyMs = totalLatency / int64(limit)

	return eval
}

package backend

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/lumoxuan/CodeMentor-API/internal/models"
	"github.com/lumoxuan/CodeMentor-API/internal/modelstore"
)

// LocalExpert 本地专家模型后端
// 回答来自两层：当前模型目录的问答索引（训练产物），
// 以及内置的主题知识库（无模型时的兜底）。
type LocalExpert struct {
	store *modelstore.Store

	mu    sync.RWMutex
	index *modelstore.Index
}

// NewLocalExpert 创建本地专家后端并尝试加载当前模型索引
func NewLocalExpert(store *modelstore.Store) *LocalExpert {
	e := &LocalExpert{store: store}

	if err := e.Reload(); err != nil {
		log.Printf("⚠️  本地模型索引加载失败，仅使用内置知识: %v", err)
	}

	return e
}

// ID 后端标识
func (e *LocalExpert) ID() models.BackendID {
	return models.BackendLocal
}

// Available 本地后端始终可用，内置知识保证能产出回答
func (e *LocalExpert) Available() bool {
	return true
}

// Reload 重新加载当前模型索引
// 模型晋升或恢复后调用，使新索引立即生效
func (e *LocalExpert) Reload() error {
	idx, err := e.store.CurrentInfo()
	if err != nil {
		if errors.Is(err, modelstore.ErrNoCurrentModel) {
			e.mu.Lock()
			e.index = nil
			e.mu.Unlock()
			return nil
		}
		return err
	}

	e.mu.Lock()
	e.index = idx
	e.mu.Unlock()

	log.Printf("📊 本地模型索引已加载: version=%s entries=%d", idx.Version, len(idx.Entries))
	return nil
}

// Version 当前索引版本，未加载时返回 "baseline"
func (e *LocalExpert) Version() string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.index == nil || e.index.Version == "" {
		return "baseline"
	}
	return e.index.Version
}

// Chat 生成回答
// 依次尝试索引最佳匹配、内置主题知识，最后按任务类型兜底
func (e *LocalExpert) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	startTime := time.Now()
	lower := strings.ToLower(req.Question)

	text := e.matchIndex(lower)
	if text == "" {
		text = matchTopics(lower)
	}
	if text == "" {
		text = fallbackResponse(req.TaskType)
	}

	return &ChatResult{
		Text:      text,
		LatencyMs: time.Since(startTime).Milliseconds(),
	}, nil
}

// matchIndex 在当前模型索引中查找匹配条目
func (e *LocalExpert) matchIndex(question string) string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return MatchIndex(e.index, question)
}

// MatchIndex 在索引中查找与问题词重叠最多的条目
// 重叠低于 2 个关键词视为不匹配，返回空串
// 训练评估阶段也用这份逻辑对候选索引取答案
func MatchIndex(idx *modelstore.Index, question string) string {
	if idx == nil || len(idx.Entries) == 0 {
		return ""
	}

	words := significantWords(strings.ToLower(question))
	if len(words) == 0 {
		return ""
	}

	bestScore := 0
	bestQuality := 0.0
	bestAnswer := ""

	for i := range idx.Entries {
		entry := &idx.Entries[i]
		entryText := strings.ToLower(entry.Question)

		score := 0
		for w := range words {
			if strings.Contains(entryText, w) {
				score++
			}
		}

		// 同分时偏向质量分更高的条目
		if score > bestScore || (score == bestScore && score > 0 && entry.QualityScore > bestQuality) {
			bestScore = score
			bestQuality = entry.QualityScore
			bestAnswer = entry.Answer
		}
	}

	if bestScore < 2 {
		return ""
	}

	return bestAnswer
}

// stopWords 匹配时忽略的常见词
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"how": true, "do": true, "i": true, "to": true, "in": true,
	"of": true, "for": true, "what": true, "my": true, "with": true,
	"can": true, "you": true, "and": true, "this": true, "it": true,
}

// significantWords 提取问题中的有效关键词
func significantWords(question string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.Fields(question) {
		w = strings.Trim(w, "?.,!:;\"'()")
		if len(w) < 2 || stopWords[w] {
			continue
		}
		words[w] = true
	}
	return words
}

// matchTopics 在内置主题知识中做子串计数匹配
func matchTopics(question string) string {
	bestScore := 0
	bestAnswer := ""

	for topic, answer := range builtinTopics {
		if !strings.Contains(question, topic) {
			continue
		}
		score := strings.Count(question, topic)
		if score > bestScore {
			bestScore = score
			bestAnswer = answer
		}
	}

	return bestAnswer
}

// fallbackResponse 按任务类型兜底
func fallbackResponse(taskType models.TaskType) string {
	switch taskType {
	case models.TaskDebugging:
		return debuggingHelpResponse
	case models.TaskLearning:
		return generalHelpResponse
	default:
		return defaultResponse
	}
}

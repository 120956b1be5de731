package scraper

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"

	"github.com/lumoxuan/CodeMentor-API/internal/config"
)

const (
	stackExchangeAPI = "https://api.stackexchange.com/2.3"
	soSite           = "stackoverflow"
	soMinQuestionLen = 50
	soMinAnswerLen   = 30
)

// StackOverflowScraper 通过 StackExchange API 采集高票问答
type StackOverflowScraper struct {
	client  *Client
	cleaner *Cleaner
	baseURL string
	tags    []string
	maxQ    int
	apiKey  string
}

// NewStackOverflowScraper 创建 Stack Overflow 爬虫
func NewStackOverflowScraper(client *Client, cfg *config.ScraperConfig) *StackOverflowScraper {
	return &StackOverflowScraper{
		client:  client,
		cleaner: NewCleaner(),
		baseURL: stackExchangeAPI,
		tags:    cfg.StackOverflowTags,
		maxQ:    cfg.MaxQuestions,
		apiKey:  cfg.StackOverflowKey,
	}
}

// Name 数据源名称
func (s *StackOverflowScraper) Name() string {
	return "stackoverflow"
}

type soQuestion struct {
	QuestionID int      `json:"question_id"`
	Title      string   `json:"title"`
	Body       string   `json:"body"`
	Score      int      `json:"score"`
	ViewCount  int      `json:"view_count"`
	Link       string   `json:"link"`
	Tags       []string `json:"tags"`
}

type soAnswer struct {
	Body       string `json:"body"`
	Score      int    `json:"score"`
	IsAccepted bool   `json:"is_accepted"`
}

type soQuestionList struct {
	Items []soQuestion `json:"items"`
}

type soAnswerList struct {
	Items []soAnswer `json:"items"`
}

// Scrape 按配置的标签抓取高票问题及最佳答案
func (s *StackOverflowScraper) Scrape(ctx context.Context) ([]*Item, error) {
	if len(s.tags) == 0 {
		return nil, nil
	}
	perTag := s.maxQ / len(s.tags)
	if perTag < 1 {
		perTag = 1
	}

	var items []*Item
	var lastErr error
	for _, tag := range s.tags {
		questions, err := s.fetchQuestions(ctx, tag, perTag)
		if err != nil {
			log.Printf("⚠️ 抓取标签 %s 失败: %v", tag, err)
			lastErr = err
			continue
		}
		for _, q := range questions {
			if err := s.client.Throttle(ctx); err != nil {
				return items, err
			}
			item, err := s.buildItem(ctx, q, tag)
			if err != nil {
				log.Printf("⚠️ 处理问题 %d 失败: %v", q.QuestionID, err)
				continue
			}
			if item != nil {
				items = append(items, item)
			}
		}
	}
	if len(items) == 0 && lastErr != nil {
		return nil, lastErr
	}
	log.Printf("📊 Stack Overflow 采集完成，共 %d 条", len(items))
	return items, nil
}

func (s *StackOverflowScraper) fetchQuestions(ctx context.Context, tag string, limit int) ([]soQuestion, error) {
	if limit > 100 {
		limit = 100
	}
	query := url.Values{
		"site":     {soSite},
		"tagged":   {tag},
		"sort":     {"votes"},
		"order":    {"desc"},
		"pagesize": {strconv.Itoa(limit)},
		"filter":   {"withbody"},
	}
	if s.apiKey != "" {
		query.Set("key", s.apiKey)
	}

	var list soQuestionList
	if err := s.client.GetJSON(ctx, s.baseURL+"/questions", query, nil, &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

func (s *StackOverflowScraper) fetchAnswers(ctx context.Context, questionID int) ([]soAnswer, error) {
	query := url.Values{
		"site":   {soSite},
		"sort":   {"votes"},
		"order":  {"desc"},
		"filter": {"withbody"},
	}
	if s.apiKey != "" {
		query.Set("key", s.apiKey)
	}

	var list soAnswerList
	endpoint := fmt.Sprintf("%s/questions/%d/answers", s.baseURL, questionID)
	if err := s.client.GetJSON(ctx, endpoint, query, nil, &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

func (s *StackOverflowScraper) buildItem(ctx context.Context, q soQuestion, tag string) (*Item, error) {
	question := s.cleaner.HTMLToText(q.Title + "\n\n" + q.Body)
	if len(question) < soMinQuestionLen {
		return nil, nil
	}

	answers, err := s.fetchAnswers(ctx, q.QuestionID)
	if err != nil {
		return nil, err
	}
	best, ok := bestAnswer(answers)
	if !ok {
		return nil, nil
	}
	answer := s.cleaner.HTMLToText(best.Body)
	if len(answer) < soMinAnswerLen {
		return nil, nil
	}

	return &Item{
		Title:        q.Title,
		Question:     question,
		Answer:       answer,
		SourceType:   "stackoverflow",
		SourceURL:    q.Link,
		Language:     tag,
		Category:     strings.Join(q.Tags, ","),
		QualityScore: stackOverflowQuality(q.Score, best.Score, q.ViewCount, question, answer),
	}, nil
}

// bestAnswer 选取已采纳答案，否则取票数最高且为正的答案
func bestAnswer(answers []soAnswer) (soAnswer, bool) {
	if len(answers) == 0 {
		return soAnswer{}, false
	}
	for _, a := range answers {
		if a.IsAccepted {
			return a, true
		}
	}
	best := answers[0]
	for _, a := range answers[1:] {
		if a.Score > best.Score {
			best = a
		}
	}
	if best.Score > 0 {
		return best, true
	}
	return soAnswer{}, false
}

// stackOverflowQuality 基于票数、浏览量和内容特征打分
func stackOverflowQuality(questionScore, answerScore, viewCount int, question, answer string) float64 {
	score := 0.0

	if questionScore > 0 {
		score += minFloat(float64(questionScore)*0.1, 0.3)
	}
	if answerScore > 0 {
		score += minFloat(float64(answerScore)*0.1, 0.4)
	}

	switch {
	case viewCount > 1000:
		score += 0.2
	case viewCount > 100:
		score += 0.1
	}

	lowerQ := strings.ToLower(question)
	lowerA := strings.ToLower(answer)
	if containsAny(lowerQ, "def ", "class ", "import ", "func ", "function") {
		score += 0.1
	}
	if containsAny(lowerA, "def ", "class ", "import ", "func ", "```") {
		score += 0.2
	}

	if len(question) >= 100 && len(question) <= 2000 && len(answer) >= 50 && len(answer) <= 3000 {
		score += 0.1
	}
	return minFloat(score, 1.0)
}

func containsAny(text string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

package scraper

import "context"

// Item 单条采集结果
// 问答形态（Question/Answer 均非空）进入训练样本表，
// 其余作为知识库条目保存
type Item struct {
	Title        string
	Question     string
	Answer       string
	Content      string
	SourceType   string
	SourceURL    string
	Language     string
	Category     string
	QualityScore float64
}

// IsQA 是否为可直接用于训练的问答对
func (it *Item) IsQA() bool {
	return it.Question != "" && it.Answer != ""
}

// Scraper 数据源爬虫
type Scraper interface {
	Name() string
	Scrape(ctx context.Context) ([]*Item, error)
}

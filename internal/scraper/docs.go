package scraper

import (
	"context"
	"log"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lumoxuan/CodeMentor-API/internal/config"
)

const docsMinLineLength = 10

// 正文容器的候选选择器，按优先级排列
var mainContentSelectors = []string{"main", "article", "#content", ".body", ".document"}

// DocsScraper 采集配置的官方文档页面
type DocsScraper struct {
	client    *Client
	cleaner   *Cleaner
	urls      []string
	minLength int
}

// NewDocsScraper 创建文档爬虫
func NewDocsScraper(client *Client, cfg *config.ScraperConfig) *DocsScraper {
	minLength := cfg.MinContentLength
	if minLength <= 0 {
		minLength = 100
	}
	return &DocsScraper{
		client:    client,
		cleaner:   NewCleaner(),
		urls:      cfg.DocURLs,
		minLength: minLength,
	}
}

// Name 数据源名称
func (d *DocsScraper) Name() string {
	return "docs"
}

// Scrape 逐页抓取文档正文
func (d *DocsScraper) Scrape(ctx context.Context) ([]*Item, error) {
	var items []*Item
	var lastErr error

	for _, pageURL := range d.urls {
		doc, err := d.client.GetHTML(ctx, pageURL)
		if err != nil {
			log.Printf("⚠️ 抓取文档 %s 失败: %v", pageURL, err)
			lastErr = err
			continue
		}

		title, content := d.extract(doc)
		if len(content) < d.minLength {
			log.Printf("⚠️ 文档 %s 正文过短（%d 字符），跳过", pageURL, len(content))
			continue
		}

		items = append(items, &Item{
			Title:        title,
			Content:      content,
			SourceType:   "docs",
			SourceURL:    pageURL,
			Language:     languageForDocURL(pageURL),
			Category:     categoryForDocURL(pageURL),
			QualityScore: docQuality(content),
		})

		if err := d.client.Throttle(ctx); err != nil {
			return items, err
		}
	}
	if len(items) == 0 && lastErr != nil {
		return nil, lastErr
	}
	log.Printf("📊 文档采集完成，共 %d 条", len(items))
	return items, nil
}

// extract 提取页面标题与正文
// 优先取常见正文容器，找不到时退回整个 body
func (d *DocsScraper) extract(doc *goquery.Document) (title, content string) {
	title = strings.TrimSpace(doc.Find("h1").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").Text())
	}
	if title == "" {
		title = "Untitled Content"
	}

	var section *goquery.Selection
	for _, sel := range mainContentSelectors {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			section = s
			break
		}
	}
	if section == nil {
		section = doc.Find("body")
	}

	html, err := goquery.OuterHtml(section)
	if err != nil {
		return title, ""
	}
	text := d.cleaner.HTMLToText(html)
	return title, d.cleaner.FilterNoise(text, docsMinLineLength)
}

func categoryForDocURL(pageURL string) string {
	lower := strings.ToLower(pageURL)
	switch {
	case strings.Contains(lower, "/tutorial"):
		return "tutorial"
	case strings.Contains(lower, "/library"):
		return "library_reference"
	case strings.Contains(lower, "/reference"):
		return "language_reference"
	case strings.Contains(lower, "/howto"):
		return "howto_guide"
	case strings.Contains(lower, "/faq"):
		return "faq"
	default:
		return "general_documentation"
	}
}

func languageForDocURL(pageURL string) string {
	lower := strings.ToLower(pageURL)
	switch {
	case strings.Contains(lower, "python"):
		return "python"
	case strings.Contains(lower, "golang") || strings.Contains(lower, "go.dev"):
		return "go"
	case strings.Contains(lower, "developer.mozilla") || strings.Contains(lower, "javascript"):
		return "javascript"
	case strings.Contains(lower, "react"):
		return "react"
	default:
		return "python"
	}
}

// docQuality 基于长度、关键词密度和代码示例打分
func docQuality(content string) float64 {
	score := 0.0

	length := len(content)
	switch {
	case length >= 500 && length <= 5000:
		score += 0.3
	case (length >= 200 && length < 500) || (length > 5000 && length <= 10000):
		score += 0.2
	case length >= 100 && length < 200:
		score += 0.1
	}

	lower := strings.ToLower(content)
	keywords := []string{"function", "class", "import", "variable", "method", "example", "return", "loop"}
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			hits++
		}
	}
	score += minFloat(float64(hits)*0.05, 0.3)

	if containsAny(content, "def ", "import ", "func ", ">>>", "```") {
		score += 0.2
	}

	sentences := 0
	for _, s := range strings.Split(content, ".") {
		if len(strings.TrimSpace(s)) > 10 {
			sentences++
		}
	}
	if sentences >= 3 {
		score += 0.2
	}
	return minFloat(score, 1.0)
}

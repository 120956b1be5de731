package scraper

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	spaceRuns   = regexp.MustCompile(`[ \t]+`)
	newlineRuns = regexp.MustCompile(`\n{3,}`)
)

// 导航类噪声行的特征词
var noiseWords = []string{"navigation", "menu", "footer", "header", "sidebar", "cookie", "sign in"}

// Cleaner 将采集到的 HTML 清洗为可读文本
// 代码块转为围栏格式保留，其余标签剥离
type Cleaner struct{}

// NewCleaner 创建清洗器
func NewCleaner() *Cleaner {
	return &Cleaner{}
}

// HTMLToText 剥离 HTML 标签，pre/code 块转为 ``` 围栏
func (c *Cleaner) HTMLToText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		// 解析失败时退回原文，至少不丢内容
		return strings.TrimSpace(html)
	}

	doc.Find("script, style, nav, footer, aside").Remove()

	// pre 内往往嵌套 code，先处理外层避免重复加围栏
	doc.Find("pre").Each(func(_ int, s *goquery.Selection) {
		code := strings.TrimRight(s.Text(), "\n")
		s.SetText("\n```\n" + code + "\n```\n")
	})
	doc.Find("code").Each(func(_ int, s *goquery.Selection) {
		text := s.Text()
		if strings.Contains(text, "```") {
			return
		}
		if strings.Contains(text, "\n") {
			s.SetText("\n```\n" + strings.TrimRight(text, "\n") + "\n```\n")
		} else {
			s.SetText("`" + text + "`")
		}
	})

	text := doc.Text()
	text = spaceRuns.ReplaceAllString(text, " ")
	text = newlineRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// FilterNoise 逐行过滤导航类噪声
// 过短的行和含导航特征词的行被丢弃
func (c *Cleaner) FilterNoise(text string, minLineLength int) string {
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	inFence := false

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			kept = append(kept, trimmed)
			continue
		}
		if inFence {
			kept = append(kept, line)
			continue
		}
		if len(trimmed) < minLineLength {
			continue
		}
		if isNoiseLine(trimmed) {
			continue
		}
		kept = append(kept, trimmed)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func isNoiseLine(line string) bool {
	lower := strings.ToLower(line)
	for _, word := range noiseWords {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

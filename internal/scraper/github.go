package scraper

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/lumoxuan/CodeMentor-API/internal/config"
)

const (
	githubAPI          = "https://api.github.com"
	githubMinFileSize  = 100
	githubMaxFileSize  = 50000
	githubMinCodeChars = 50
)

// 代码搜索覆盖的扩展名及对应语言
var searchExtensions = []struct {
	ext      string
	language string
}{
	{"py", "python"},
	{"go", "go"},
	{"js", "javascript"},
}

// GitHubScraper 从配置的仓库采集源码并生成讲解型知识条目
type GitHubScraper struct {
	client  *Client
	baseURL string
	repos   []string
	maxPer  int
	token   string
}

// NewGitHubScraper 创建 GitHub 爬虫
func NewGitHubScraper(client *Client, cfg *config.ScraperConfig) *GitHubScraper {
	return &GitHubScraper{
		client:  client,
		baseURL: githubAPI,
		repos:   cfg.GitHubRepos,
		maxPer:  cfg.MaxFilesPerRepo,
		token:   cfg.GitHubToken,
	}
}

// Name 数据源名称
func (g *GitHubScraper) Name() string {
	return "github"
}

type ghRepoInfo struct {
	FullName string `json:"full_name"`
	Stars    int    `json:"stargazers_count"`
}

type ghCodeFile struct {
	Path string `json:"path"`
	Name string `json:"name"`
	SHA  string `json:"sha"`
}

type ghCodeSearch struct {
	Items []ghCodeFile `json:"items"`
}

type ghFileContent struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	Size     int    `json:"size"`
}

func (g *GitHubScraper) headers() http.Header {
	h := http.Header{}
	h.Set("Accept", "application/vnd.github.v3+json")
	if g.token != "" {
		h.Set("Authorization", "token "+g.token)
	}
	return h
}

// Scrape 遍历配置仓库，搜索源码文件并生成知识条目
// 403 视为限流，跳过当前仓库而不中断整轮采集
func (g *GitHubScraper) Scrape(ctx context.Context) ([]*Item, error) {
	var items []*Item
	var lastErr error

	for _, repo := range g.repos {
		info, err := g.repoInfo(ctx, repo)
		if err != nil {
			if IsRateLimited(err) {
				log.Printf("⚠️ GitHub 限流，跳过仓库 %s", repo)
				continue
			}
			log.Printf("⚠️ 获取仓库 %s 信息失败: %v", repo, err)
			lastErr = err
			continue
		}

		files, err := g.searchFiles(ctx, repo)
		if err != nil {
			if IsRateLimited(err) {
				log.Printf("⚠️ GitHub 搜索限流，跳过仓库 %s", repo)
				continue
			}
			lastErr = err
			continue
		}

		for _, file := range files {
			if err := g.client.Throttle(ctx); err != nil {
				return items, err
			}
			content, err := g.fileContent(ctx, repo, file.Path)
			if err != nil || content == "" {
				continue
			}
			if item := g.buildItem(repo, file, content, info); item != nil {
				items = append(items, item)
			}
		}
	}
	if len(items) == 0 && lastErr != nil {
		return nil, lastErr
	}
	log.Printf("📊 GitHub 采集完成，共 %d 条", len(items))
	return items, nil
}

func (g *GitHubScraper) repoInfo(ctx context.Context, repo string) (*ghRepoInfo, error) {
	var info ghRepoInfo
	endpoint := fmt.Sprintf("%s/repos/%s", g.baseURL, repo)
	if err := g.client.GetJSON(ctx, endpoint, nil, g.headers(), &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (g *GitHubScraper) searchFiles(ctx context.Context, repo string) ([]ghCodeFile, error) {
	limit := g.maxPer
	if limit <= 0 {
		limit = 20
	}

	var files []ghCodeFile
	for _, se := range searchExtensions {
		if len(files) >= limit {
			break
		}
		query := url.Values{
			"q":        {fmt.Sprintf("repo:%s extension:%s", repo, se.ext)},
			"sort":     {"indexed"},
			"per_page": {strconv.Itoa(limit)},
		}
		var result ghCodeSearch
		endpoint := g.baseURL + "/search/code"
		if err := g.client.GetJSON(ctx, endpoint, query, g.headers(), &result); err != nil {
			return files, err
		}
		for _, f := range result.Items {
			if len(files) >= limit {
				break
			}
			if isRelevantSourceFile(f.Path) {
				files = append(files, f)
			}
		}
		if err := g.client.Throttle(ctx); err != nil {
			return files, err
		}
	}
	return files, nil
}

func (g *GitHubScraper) fileContent(ctx context.Context, repo, filePath string) (string, error) {
	var fc ghFileContent
	endpoint := fmt.Sprintf("%s/repos/%s/contents/%s", g.baseURL, repo, filePath)
	if err := g.client.GetJSON(ctx, endpoint, nil, g.headers(), &fc); err != nil {
		return "", err
	}
	if fc.Encoding != "base64" {
		return "", nil
	}
	// GitHub 返回的 base64 带换行
	raw := strings.ReplaceAll(fc.Content, "\n", "")
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return "", fmt.Errorf("解码文件内容失败: %w", err)
	}
	if fc.Size > githubMaxFileSize || len(decoded) < githubMinFileSize {
		return "", nil
	}
	return string(decoded), nil
}

// isRelevantSourceFile 过滤测试文件和构建产物
func isRelevantSourceFile(filePath string) bool {
	lower := strings.ToLower(filePath)
	skipPatterns := []string{
		"test_", "tests/", "/test/", "_test.",
		"__pycache__", "setup.py", "conftest.py", "migration", "vendor/", "node_modules/",
	}
	for _, p := range skipPatterns {
		if strings.Contains(lower, p) {
			return false
		}
	}
	return true
}

func (g *GitHubScraper) buildItem(repo string, file ghCodeFile, content string, info *ghRepoInfo) *Item {
	if len(content) < githubMinCodeChars {
		return nil
	}
	analysis := analyzeSource(content)
	if !analysis.meaningful() {
		return nil
	}

	language := languageForPath(file.Path)
	quality := githubQuality(content, analysis, info.Stars)

	return &Item{
		Title:        titleFromPath(file.Path),
		Content:      documentationFromCode(content, analysis, language),
		SourceType:   "github",
		SourceURL:    fmt.Sprintf("https://github.com/%s/blob/main/%s", repo, file.Path),
		Language:     language,
		Category:     "code_example",
		QualityScore: quality,
	}
}

// codeAnalysis 源码的轻量结构分析结果
type codeAnalysis struct {
	functions []string
	types     []string
	comments  []string
}

func (a codeAnalysis) meaningful() bool {
	return len(a.functions) > 0 || len(a.types) > 0 || len(a.comments) > 0
}

// analyzeSource 按行提取函数、类型定义和文档注释
// 不做完整语法解析，足够支撑讲解文本的生成
func analyzeSource(code string) codeAnalysis {
	var a codeAnalysis
	for _, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "def "):
			a.functions = append(a.functions, identAfter(trimmed, "def "))
		case strings.HasPrefix(trimmed, "func "):
			a.functions = append(a.functions, identAfter(trimmed, "func "))
		case strings.HasPrefix(trimmed, "function "):
			a.functions = append(a.functions, identAfter(trimmed, "function "))
		case strings.HasPrefix(trimmed, "class "):
			a.types = append(a.types, identAfter(trimmed, "class "))
		case strings.HasPrefix(trimmed, "type ") && strings.Contains(trimmed, "struct"):
			a.types = append(a.types, identAfter(trimmed, "type "))
		case strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "//"):
			comment := strings.TrimSpace(strings.TrimLeft(trimmed, "#/"))
			if len(comment) > 20 {
				a.comments = append(a.comments, comment)
			}
		}
	}
	return a
}

func identAfter(line, prefix string) string {
	rest := strings.TrimPrefix(line, prefix)
	for i, r := range rest {
		if r == '(' || r == ' ' || r == ':' || r == '{' {
			return rest[:i]
		}
	}
	return rest
}

func titleFromPath(filePath string) string {
	base := path.Base(filePath)
	if idx := strings.LastIndex(base, "."); idx > 0 {
		base = base[:idx]
	}
	title := strings.NewReplacer("_", " ", "-", " ").Replace(base)

	dir := path.Base(path.Dir(filePath))
	if dir != "." && dir != "/" && dir != "src" && dir != "lib" {
		title = strings.ReplaceAll(dir, "_", " ") + " - " + title
	}
	return titleCase(title)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func languageForPath(filePath string) string {
	switch strings.ToLower(path.Ext(filePath)) {
	case ".py":
		return "python"
	case ".go":
		return "go"
	case ".js", ".jsx":
		return "javascript"
	case ".ts", ".tsx":
		return "typescript"
	default:
		return "python"
	}
}

// documentationFromCode 把代码分析结果组织为讲解文本
func documentationFromCode(code string, a codeAnalysis, language string) string {
	var parts []string

	if len(a.types) > 0 {
		parts = append(parts, fmt.Sprintf("本模块定义了 %d 个类型: %s", len(a.types), strings.Join(a.types, ", ")))
	}
	if len(a.functions) > 0 {
		parts = append(parts, fmt.Sprintf("本模块包含 %d 个函数: %s", len(a.functions), strings.Join(a.functions, ", ")))
	}
	if len(a.comments) > 0 {
		parts = append(parts, "关键说明:")
		limit := len(a.comments)
		if limit > 3 {
			limit = 3
		}
		for _, c := range a.comments[:limit] {
			parts = append(parts, "- "+c)
		}
	}

	lines := strings.Split(code, "\n")
	if len(lines) > 40 {
		lines = lines[:40]
	}
	parts = append(parts, "代码示例:", "```"+language+"\n"+strings.Join(lines, "\n")+"\n```")
	return strings.Join(parts, "\n")
}

// githubQuality 基于仓库热度和代码结构打分
func githubQuality(code string, a codeAnalysis, stars int) float64 {
	score := 0.0

	switch {
	case stars > 1000:
		score += 0.3
	case stars > 100:
		score += 0.2
	case stars > 10:
		score += 0.1
	}

	if a.meaningful() {
		score += 0.2
	}
	if len(a.functions) > 0 {
		score += 0.1
	}
	if len(a.types) > 0 {
		score += 0.1
	}
	if len(a.comments) > 0 {
		score += 0.2
	}
	if len(code) >= 200 && len(code) <= 5000 {
		score += 0.1
	}
	return minFloat(score, 1.0)
}

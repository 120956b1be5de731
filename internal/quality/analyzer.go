package quality

import (
	"regexp"
	"strings"
)

// CodeAnalysis 代码分析结果
type CodeAnalysis struct {
	Language        string   `json:"language"`
	Patterns        []string `json:"patterns_detected"`
	PotentialIssues []string `json:"potential_issues"`
	Suggestions     []string `json:"suggestions"`
}

// CodeAnalyzer 本地启发式代码分析器
// 不依赖外部后端，按语言特征做模式识别和问题检查
type CodeAnalyzer struct{}

// NewCodeAnalyzer 创建分析器
func NewCodeAnalyzer() *CodeAnalyzer {
	return &CodeAnalyzer{}
}

var (
	bareExceptPattern = regexp.MustCompile(`except\s*:`)
	appendLoopPattern = regexp.MustCompile(`\.append\(.*\).*for.*in`)
	varInFuncPattern  = regexp.MustCompile(`function.*\{[\s\S]*var `)
)

// Analyze 分析一段代码
func (a *CodeAnalyzer) Analyze(code, language string) *CodeAnalysis {
	analysis := &CodeAnalysis{
		Language:        language,
		Patterns:        []string{},
		PotentialIssues: []string{},
		Suggestions:     []string{},
	}

	switch strings.ToLower(language) {
	case "python":
		a.analyzePython(code, analysis)
	case "javascript", "js", "react", "typescript":
		a.analyzeJavaScript(code, analysis)
	case "html", "css":
		a.analyzeWeb(code, analysis)
	case "go":
		a.analyzeGo(code, analysis)
	}
	return analysis
}

func (a *CodeAnalyzer) analyzePython(code string, analysis *CodeAnalysis) {
	if strings.Contains(code, "import pandas") || strings.Contains(code, "import numpy") {
		analysis.Patterns = append(analysis.Patterns, "data_science")
	}
	if strings.Contains(code, "from sklearn") || strings.Contains(code, "import torch") {
		analysis.Patterns = append(analysis.Patterns, "machine_learning")
	}
	if strings.Contains(code, "@app.route") || strings.Contains(code, "from flask") {
		analysis.Patterns = append(analysis.Patterns, "web_development")
	}

	if bareExceptPattern.MatchString(code) {
		analysis.PotentialIssues = append(analysis.PotentialIssues, "Bare except clause - specify exception types")
	}
	if strings.Contains(code, "eval(") {
		analysis.PotentialIssues = append(analysis.PotentialIssues, "eval() usage detected - security risk")
	}
	if appendLoopPattern.MatchString(code) {
		analysis.Suggestions = append(analysis.Suggestions, "Consider using list comprehension for better performance")
	}
}

func (a *CodeAnalyzer) analyzeJavaScript(code string, analysis *CodeAnalysis) {
	if strings.Contains(code, "useState") || strings.Contains(code, "useEffect") {
		analysis.Patterns = append(analysis.Patterns, "react_hooks")
	}
	if strings.Contains(code, "fetch(") || strings.Contains(code, "axios") {
		analysis.Patterns = append(analysis.Patterns, "api_calls")
	}
	if strings.Contains(code, "addEventListener") {
		analysis.Patterns = append(analysis.Patterns, "event_handling")
	}

	if strings.Contains(code, "==") && !strings.Contains(code, "===") {
		analysis.Suggestions = append(analysis.Suggestions, "Use strict equality (===) instead of loose equality (==)")
	}
	if varInFuncPattern.MatchString(code) {
		analysis.Suggestions = append(analysis.Suggestions, "Consider using const/let instead of var")
	}
	if strings.Contains(code, "innerHTML") {
		analysis.PotentialIssues = append(analysis.PotentialIssues, "innerHTML usage - potential XSS vulnerability")
	}
}

func (a *CodeAnalyzer) analyzeWeb(code string, analysis *CodeAnalysis) {
	if strings.Contains(code, "display: grid") || strings.Contains(code, "grid-template") {
		analysis.Patterns = append(analysis.Patterns, "css_grid")
	}
	if strings.Contains(code, "display: flex") {
		analysis.Patterns = append(analysis.Patterns, "flexbox")
	}
	if strings.Contains(code, "@media") {
		analysis.Patterns = append(analysis.Patterns, "responsive_design")
	}

	if strings.Contains(code, "<img") && !strings.Contains(code, "alt=") {
		analysis.PotentialIssues = append(analysis.PotentialIssues, "Images missing alt attributes")
	}
	if strings.Contains(code, "onclick=") {
		analysis.Suggestions = append(analysis.Suggestions, "Consider using addEventListener instead of inline event handlers")
	}
}

func (a *CodeAnalyzer) analyzeGo(code string, analysis *CodeAnalysis) {
	if strings.Contains(code, "go func") || strings.Contains(code, "chan ") {
		analysis.Patterns = append(analysis.Patterns, "concurrency")
	}
	if strings.Contains(code, "http.HandleFunc") || strings.Contains(code, "gin.") {
		analysis.Patterns = append(analysis.Patterns, "web_development")
	}

	if strings.Contains(code, "panic(") {
		analysis.Suggestions = append(analysis.Suggestions, "Prefer returning errors over panic in library code")
	}
	if strings.Contains(code, "_ = err") || strings.Contains(code, "_, _ =") {
		analysis.PotentialIssues = append(analysis.PotentialIssues, "Ignored error value")
	}
}

// Package reportexport renders an analysis and its reports as Markdown or HTML
// and archives the rendered copies in object storage.
package reportexport

import (
	"bytes"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"patent-backend/internal/analyses"
)

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

var sectionTitles = map[string]string{
	analyses.ReportNovelty:       "新颖性分析",
	analyses.ReportInventiveness: "创造性分析",
	analyses.ReportUtility:       "实用性分析",
	analyses.ReportComprehensive: "综合报告",
}

var statusLabels = map[string]string{
	analyses.StatusPending:    "等待中",
	analyses.StatusProcessing: "分析中",
	analyses.StatusCompleted:  "已完成",
	analyses.StatusFailed:     "失败",
}

// Markdown renders the analysis and its reports.
func Markdown(awr analyses.AnalysisWithReports) string {
	a := awr.Analysis
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", oneLine(a.Title))
	fmt.Fprintf(&b, "- 分析编号：`%s`\n", a.ID)
	fmt.Fprintf(&b, "- 状态：%s\n", label(statusLabels, a.Status))
	if a.Metadata.TechnicalField != "" {
		fmt.Fprintf(&b, "- 技术领域：%s\n", oneLine(a.Metadata.TechnicalField))
	}
	fmt.Fprintf(&b, "- 创建时间：%s\n", a.CreatedAt.UTC().Format(time.RFC3339))
	if a.CompletedAt != nil {
		fmt.Fprintf(&b, "- 完成时间：%s\n", a.CompletedAt.UTC().Format(time.RFC3339))
	}
	if a.ErrorMessage != nil {
		fmt.Fprintf(&b, "- 错误信息：%s\n", oneLine(*a.ErrorMessage))
	}
	b.WriteString("\n")

	if a.Description != "" {
		b.WriteString("## 发明描述\n\n")
		b.WriteString(strings.TrimSpace(a.Description))
		b.WriteString("\n\n")
	}

	if len(awr.Reports) > 0 {
		b.WriteString("## 评分概览\n\n")
		b.WriteString("| 维度 | 评分 |\n")
		b.WriteString("| --- | ---: |\n")
		for _, r := range awr.Reports {
			fmt.Fprintf(&b, "| %s | %s |\n", label(sectionTitles, r.Type), strconv.FormatFloat(r.ScorePercent(), 'f', -1, 64))
		}
		b.WriteString("\n")
	}

	for _, r := range awr.Reports {
		fmt.Fprintf(&b, "## %s\n\n", label(sectionTitles, r.Type))
		b.WriteString(strings.TrimSpace(r.Content))
		b.WriteString("\n\n")
		if r.Summary != "" && r.Type != analyses.ReportComprehensive {
			fmt.Fprintf(&b, "**要点**：%s\n\n", oneLine(r.Summary))
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// HTML converts Markdown output to a standalone HTML document. Raw HTML in the
// source is not passed through.
func HTML(title, markdown string) (string, error) {
	var body bytes.Buffer
	if err := md.Convert([]byte(markdown), &body); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html lang=\"zh-CN\">\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(oneLine(title)))
	b.WriteString("</head>\n<body>\n")
	b.Write(body.Bytes())
	b.WriteString("</body>\n</html>\n")
	return b.String(), nil
}

func label(labels map[string]string, key string) string {
	if v, ok := labels[key]; ok {
		return v
	}
	return key
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

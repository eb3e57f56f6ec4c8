package scoring

import (
	"strings"
	"text/template"

	"patent-backend/internal/priorart"
)

var (
	noveltyTemplate = template.Must(template.New(StageNovelty).Parse(`作为专利审查专家，请分析以下发明的新颖性：

发明标题：{{.Title}}
技术领域：{{.TechnicalField}}
技术内容：{{.TechnicalContent}}

现有技术：
{{- range .PriorArt}}
- {{.Title}}: {{.Snippet}}
{{- else}}
（未检索到相关现有技术）
{{- end}}

请给出：
1. 新颖性分析（200字）
2. 新颖性评分（0-100分）
3. 主要创新点

返回JSON格式：{"analysis": "...", "score": 85, "innovations": ["...", "..."]}`))

	inventivenessTemplate = template.Must(template.New(StageInventiveness).Parse(`基于新颖性分析结果，评估发明的创造性：

发明：{{.Title}}
新颖性得分：{{.NoveltyScore}}

请评估：
1. 技术方案是否显而易见
2. 是否具有预料不到的技术效果
3. 创造性评分（0-100分）

返回JSON格式：{"analysis": "...", "score": 80, "non_obvious": true}`))

	utilityTemplate = template.Must(template.New(StageUtility).Parse(`评估发明的实用性：

发明：{{.Title}}
技术内容：{{.TechnicalContent}}

请评估：
1. 是否能够产业化
2. 是否解决实际问题
3. 实用性评分（0-100分）

返回JSON格式：{"analysis": "...", "score": 90, "industrial_applicability": true}`))
)

// NoveltyPrompt renders the novelty prompt for inv and its prior art.
func NoveltyPrompt(inv Invention, items []priorart.Item) (string, error) {
	return render(noveltyTemplate, struct {
		Invention
		PriorArt []priorart.Item
	}{inv, items})
}

// InventivenessPrompt renders the inventiveness prompt from the novelty score.
func InventivenessPrompt(title string, noveltyScore float64) (string, error) {
	return render(inventivenessTemplate, struct {
		Title        string
		NoveltyScore string
	}{title, formatScore(noveltyScore)})
}

// UtilityPrompt renders the utility prompt.
func UtilityPrompt(title, technicalContent string) (string, error) {
	return render(utilityTemplate, struct {
		Title            string
		TechnicalContent string
	}{title, technicalContent})
}

func render(t *template.Template, data any) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}

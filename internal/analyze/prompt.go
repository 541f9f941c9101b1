// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyze

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/pdiddy/research-agent/pkg/types"
)

var funcs = template.FuncMap{"join": strings.Join}

// analysisPromptTmpl asks for a single JSON object describing one paper.
var analysisPromptTmpl = template.Must(template.New("analysis").Funcs(funcs).Parse(`You are an expert AI research analyst. Analyze the following research paper and provide a comprehensive analysis.

Paper Information:
Title: {{.Paper.Title}}
Authors: {{join .Paper.Authors ", "}}
Abstract: {{.Paper.Abstract}}
Categories: {{join .Paper.Categories ", "}}
arXiv ID: {{.Paper.ID}}

Please analyze this paper and provide the following information in JSON format:

{
    "relevance_score": <float 0-1 indicating how relevant this is to current AI trends>,
    "significance_score": <float 0-1 indicating potential significance to the field>,
    "novelty_score": <float 0-1 indicating how novel/groundbreaking this work is>,
    "summary": "<2-3 sentence summary of the main contribution>",
    "key_insights": ["<insight 1>", "<insight 2>", "<insight 3>"],
    "technical_details": "<technical explanation for experts>",
    "potential_impact": "<assessment of potential real-world impact>",
    "implementation_difficulty": "<assessment: Easy/Medium/Hard/Expert and why>",
    "business_relevance": "<how this could affect commercial AI applications>",
    "connections_to_other_work": ["<related paper/concept 1>", "<related paper/concept 2>"],
    "recommended_for": ["<audience type 1>", "<audience type 2>"],
    "tags": ["<tag1>", "<tag2>", "<tag3>"]
}

Focus on:
1. What makes this work novel or significant
2. How it advances the state of the art
3. Practical implications and applications
4. Technical innovations and methodologies
5. Potential limitations or concerns

Be concise but thorough. Provide honest assessments of significance and relevance.
{{- if .Interests}}

User's research interests: {{join .Interests ", "}}
Consider relevance to these specific interests in your analysis.
{{- end}}
`))

var trendsPromptTmpl = template.Must(template.New("trends").Parse(`You are an expert AI research analyst reviewing multiple papers to identify trends and highlight the most important work.

Papers to analyze:
{{.Papers}}

Please provide:
1. Overall trends and themes you notice across these papers
2. Rank the top 5 most significant papers and explain why
3. Identify any breakthrough or paradigm-shifting work
4. Note any concerning developments or limitations
5. Predict future research directions based on these papers

Format your response as structured analysis focusing on actionable insights for AI researchers and practitioners.
`))

var insightsPromptTmpl = template.Must(template.New("insights").Parse(`Create a daily AI research insights summary for {{.Date}}.

Data: {{.Data}}

Please create a well-formatted daily digest including:
1. Executive summary of key developments
2. Highlight the most significant papers with brief explanations
3. Emerging trends or patterns
4. Key takeaways for AI practitioners
5. Notable quotes or insights

Keep it engaging and actionable. Format in markdown.
`))

func renderAnalysisPrompt(p types.Paper, interests []string) (string, error) {
	return render(analysisPromptTmpl, struct {
		Paper     types.Paper
		Interests []string
	}{p, interests})
}

func renderTrendsPrompt(papersJSON string) (string, error) {
	return render(trendsPromptTmpl, struct{ Papers string }{papersJSON})
}

func renderInsightsPrompt(date, dataJSON string) (string, error) {
	return render(insightsPromptTmpl, struct{ Date, Data string }{date, dataJSON})
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

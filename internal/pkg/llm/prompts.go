package llm

import (
	"bytes"
	"text/template"
)

// Prompt template names.
const (
	PromptAnalyzePaper       = "analyze_paper"
	PromptAnalyzeAbstract    = "analyze_abstract"
	PromptSearchQueries      = "search_queries"
	PromptWritingSuggestions = "writing_suggestions"
)

// Limits applied to text inlined into prompts.
const (
	MaxPaperChars    = 8000
	MaxAbstractChars = 1000
)

const researcherPersona = `You are an expert research assistant helping with a PhD in Information Systems
focusing on AI, LLM hallucinations, developer workflows, and quality assurance.`

var prompts = template.Must(template.New("prompts").Parse(`
{{define "analyze_paper"}}Analyze this academic paper and provide:
1. A concise title (if you can identify it)
2. A 2-3 sentence summary
3. 3-5 key concepts or contributions
4. Research gaps or limitations identified
5. The primary research methodology used
6. Which theme it best fits: AI, LLM Hallucinations, Developer Workflows, QA, or General
{{if .Context}}
Current research context: {{.Context}}
{{end}}
Paper text (first pages):
{{.Text}}

Respond in JSON format with keys: title, summary, key_concepts (array),
research_gaps, methodology, suggested_theme{{end}}

{{define "analyze_abstract"}}Analyze this paper abstract and provide:
1. 3-5 key concepts
2. Research methodology (if mentioned)
3. Which theme it fits: AI, LLM Hallucinations, Developer Workflows, QA, or General

Title: {{.Title}}
Abstract: {{.Text}}

Respond in JSON format with keys: key_concepts (array), methodology, theme{{end}}

{{define "search_queries"}}Generate 3 specific search queries to find papers addressing this research gap:
Gap: {{.Gaps}}
Concepts: {{.Concepts}}

Return only the 3 queries, one per line.{{end}}

{{define "writing_suggestions"}}Based on the current research status, provide specific, actionable
writing suggestions for advancing this PhD paper.

Current status: {{.Status}}
Recent notes: {{.Notes}}

Focus on:
1. Next logical sections to write
2. Key arguments to develop
3. Evidence or examples needed
4. Methodological considerations
5. Quality assurance checkpoints

Be specific and practical.{{end}}
`))

// PromptData feeds the prompt templates; unused fields are ignored.
type PromptData struct {
	Title    string
	Text     string
	Context  string
	Gaps     string
	Concepts string
	Status   string
	Notes    string
}

// Persona is the system prompt shared by every research request.
func Persona() string { return researcherPersona }

// Render executes the named prompt template.
func Render(name string, data PromptData) (string, error) {
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

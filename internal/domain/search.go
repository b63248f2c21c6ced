package domain

// 学术检索结果
type SearchPaper struct {
	Title          string   `json:"title"`
	Authors        []string `json:"authors"`
	Year           int      `json:"year,omitempty"`
	Date           string   `json:"date,omitempty"`
	Abstract       string   `json:"abstract"`
	URL            string   `json:"url"`
	PDFURL         string   `json:"pdf_url,omitempty"`
	Source         string   `json:"source"`
	RelevanceScore int      `json:"relevance_score"`
}

const (
	SearchSuccess = "success"
	SearchError   = "error"
)

// SourceResult is the outcome of querying one academic database.
type SourceResult struct {
	Status string        `json:"status"`
	Papers []SearchPaper `json:"papers"`
	Error  string        `json:"error,omitempty"`
}

// PaperDetail is what we learn about an external paper from its landing page.
type PaperDetail struct {
	Title       string   `json:"title"`
	Abstract    string   `json:"abstract,omitempty"`
	Authors     []string `json:"authors,omitempty"`
	URL         string   `json:"url"`
	PDFURL      string   `json:"pdf_url,omitempty"`
	Summary     string   `json:"summary"`
	KeyConcepts []string `json:"key_concepts,omitempty"`
	Methodology string   `json:"methodology,omitempty"`
	Theme       string   `json:"theme,omitempty"`
}

// GapResult is the answer of the research gap agent.
type GapResult struct {
	Papers        []SearchPaper `json:"papers"`
	Summary       string        `json:"summary"`
	SearchQueries []string      `json:"search_queries"`
}

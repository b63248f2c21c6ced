package domain

// ResearchUpdate is the periodic digest pushed to Discord.
type ResearchUpdate struct {
	PapersUpdated      []string `json:"papers_updated"`
	NewLiterature      []string `json:"new_literature,omitempty"`
	WritingSuggestions string   `json:"writing_suggestions"`
	NextMilestones     []string `json:"next_milestones"`
}

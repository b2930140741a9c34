package model

// AnalysisResult is the structured interpretation of an analyzer response.
type AnalysisResult struct {
	Summary      string
	App          string
	Detail       string
	HasIssue     bool
	IssueType    string
	IssueMessage string
	Suggestion   string
	Confidence   float64
}

// Action derives the record action from the issue flag.
func (r *AnalysisResult) Action() Action {
	if r.HasIssue {
		return ActionIssue
	}
	return ActionActive
}

// IssueText returns the issue message, falling back to the summary.
func (r *AnalysisResult) IssueText() string {
	if r.IssueMessage != "" {
		return r.IssueMessage
	}
	return r.Summary
}

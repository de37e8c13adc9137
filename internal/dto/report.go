package dto

// RepoReportSection is the per-repository data set of a repository-scoped
// report. Section order is the resolution order of the repository list.
type RepoReportSection struct {
	Repo         string        `json:"repo"`
	Commits      []Commit      `json:"commits"`
	Issues       []Issue       `json:"issues"`
	PullRequests []PullRequest `json:"prs"`
}

// HasContent reports whether the repository retained any activity.
func (s RepoReportSection) HasContent() bool {
	return len(s.Commits) > 0 || len(s.Issues) > 0 || len(s.PullRequests) > 0
}

// ActivityReportSection groups a user's feed events by repository. Detailed
// commits are a follow-up listing for repositories with push events; they
// drive the commit count while the rendered commit lines come from the
// events' embedded payloads.
type ActivityReportSection struct {
	Repo            string          `json:"repo"`
	Events          []ActivityEvent `json:"activities"`
	DetailedCommits []Commit        `json:"detailed_commits"`
}

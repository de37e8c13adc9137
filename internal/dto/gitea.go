package dto

import (
	"encoding/json"
	"time"
)

// GiteaUser is the wire shape of GET /user and of the author objects
// embedded in commits and issues.
type GiteaUser struct {
	ID       int64  `json:"id"`
	Login    string `json:"login"`
	FullName string `json:"full_name"`
}

// DisplayName prefers the account full name, falling back to the login.
func (u GiteaUser) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Login
}

type GiteaRepo struct {
	FullName string `json:"full_name"`
}

type GiteaCommitItem struct {
	SHA     string `json:"sha"`
	HTMLURL string `json:"html_url"`
	Commit  struct {
		Message string `json:"message"`
		Author  struct {
			Name string    `json:"name"`
			Date time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
	// Author is the resolved Gitea account, nil when the commit email does
	// not map to one.
	Author *GiteaUser `json:"author"`
}

type GiteaIssueItem struct {
	Number  int64     `json:"number"`
	Title   string    `json:"title"`
	HTMLURL string    `json:"html_url"`
	User    GiteaUser `json:"user"`
}

type GiteaActivityItem struct {
	OpType    string    `json:"op_type"`
	ActUserID int64     `json:"act_user_id"`
	Repo      GiteaRepo `json:"repo"`
	Index     int64     `json:"index"`
	Content   string    `json:"content"`
	Created   time.Time `json:"created"`
}

// Normalized types produced by the Gitea repository.

type Commit struct {
	Repo    string    `json:"repo"`
	Author  string    `json:"author"`
	Message string    `json:"message"`
	SHA     string    `json:"sha"`
	URL     string    `json:"url"`
	Date    time.Time `json:"date"`
}

type Issue struct {
	Number int64  `json:"id"`
	Title  string `json:"title"`
	URL    string `json:"url"`
	User   string `json:"user"`
}

type PullRequest struct {
	Number int64  `json:"id"`
	Title  string `json:"title"`
	URL    string `json:"url"`
	User   string `json:"user"`
}

type OpType string

const (
	OpCommitRepo         OpType = "commit_repo"
	OpPushRepo           OpType = "push_repo"
	OpCreateIssue        OpType = "create_issue"
	OpCloseIssue         OpType = "close_issue"
	OpCreatePullRequest  OpType = "create_pull_request"
	OpMergePullRequest   OpType = "merge_pull_request"
	OpCommentIssue       OpType = "comment_issue"
	OpCommentPullRequest OpType = "comment_pull_request"
)

// ActivityEvent is one item of a user's activity feed, normalized to the
// caller's time zone.
type ActivityEvent struct {
	OpType  OpType    `json:"op_type"`
	Repo    string    `json:"repo"`
	Index   int64     `json:"index"`
	Content string    `json:"content"`
	Created time.Time `json:"created"`
}

// IsPush reports whether the event carries an embedded commit list.
func (e ActivityEvent) IsPush() bool {
	return e.OpType == OpCommitRepo || e.OpType == OpPushRepo
}

// PushCommit is one entry of the JSON-encoded commit list a push event
// carries in its content field.
type PushCommit struct {
	SHA     string `json:"Sha1"`
	Message string `json:"Message"`
}

type pushContent struct {
	Commits []PushCommit `json:"Commits"`
}

// PushCommits decodes the embedded commit list of a push event. A malformed
// payload yields nil, matching the tolerant behavior expected of feed data.
func (e ActivityEvent) PushCommits() []PushCommit {
	if !e.IsPush() || e.Content == "" {
		return nil
	}
	var content pushContent
	if err := json.Unmarshal([]byte(e.Content), &content); err != nil {
		return nil
	}
	return content.Commits
}

package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"gitea-reporter/internal/dto"
	"gitea-reporter/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

type fakeGitea struct {
	self       dto.GiteaUser
	repos      []string
	commits    map[string][]dto.Commit
	issues     map[string][]dto.Issue
	prs        map[string][]dto.PullRequest
	activities []dto.ActivityEvent

	mu             sync.Mutex
	gotScope       model.ScopeType
	commitsFetched []string
	repoListCalls  int
}

func (f *fakeGitea) GetSelf(ctx context.Context) dto.GiteaUser { return f.self }

func (f *fakeGitea) ListRepositories(ctx context.Context, scope model.ScopeType) []string {
	f.repoListCalls++
	f.gotScope = scope
	return f.repos
}

// ListCommits is hit concurrently by the repository fan-out.
func (f *fakeGitea) ListCommits(ctx context.Context, repo string, since, until time.Time) []dto.Commit {
	f.mu.Lock()
	f.commitsFetched = append(f.commitsFetched, repo)
	f.mu.Unlock()
	return f.commits[repo]
}

func (f *fakeGitea) ListOpenIssues(ctx context.Context, repo string) []dto.Issue {
	return f.issues[repo]
}

func (f *fakeGitea) ListOpenPRs(ctx context.Context, repo string) []dto.PullRequest {
	return f.prs[repo]
}

func (f *fakeGitea) ListUserActivities(ctx context.Context, username string, since time.Time, actorID int64) []dto.ActivityEvent {
	return f.activities
}

func TestBuild_SpecificScopeUsesTargetRepos(t *testing.T) {
	gitea := &fakeGitea{
		commits: map[string][]dto.Commit{
			"org/app": {{Message: "fix", Author: "Alice"}, {Message: "feat", Author: "Bob"}},
		},
		issues: map[string][]dto.Issue{
			"org/lib": {{Number: 1, Title: "stale", User: "Carol"}},
		},
	}
	task := &model.ReportTask{
		ID:          1,
		ScopeType:   model.ScopeSpecific,
		ReportDays:  1,
		TargetRepos: datatypes.JSON(`["org/app","org/lib","org/quiet"]`),
	}

	builder := NewReportBuilder(testLogger(t))
	result, err := builder.Build(context.Background(), task, gitea)
	require.NoError(t, err)

	assert.Equal(t, 0, gitea.repoListCalls, "specific scope never lists repositories")
	assert.ElementsMatch(t, []string{"org/app", "org/lib", "org/quiet"}, gitea.commitsFetched)

	assert.Equal(t, 2, result.CommitCount)
	assert.Contains(t, result.Markdown, "#### 📦 org/app")
	assert.Contains(t, result.Markdown, "#### 📦 org/lib")
	assert.NotContains(t, result.Markdown, "org/quiet", "empty repositories are dropped from the report")
	assert.Contains(t, result.Markdown, "**活跃概览: 2 提交**")
	assert.Contains(t, string(result.RawData), `"repo_data"`)
}

func TestBuild_InvalidTargetReposFails(t *testing.T) {
	task := &model.ReportTask{
		ScopeType:   model.ScopeSpecific,
		ReportDays:  1,
		TargetRepos: datatypes.JSON(`{"not":"a list"}`),
	}

	builder := NewReportBuilder(testLogger(t))
	_, err := builder.Build(context.Background(), task, &fakeGitea{})
	assert.Error(t, err)
}

func TestBuild_AllScopeListsRepositories(t *testing.T) {
	gitea := &fakeGitea{repos: []string{"org/app"}}
	task := &model.ReportTask{ScopeType: model.ScopeAll, ReportDays: 1}

	builder := NewReportBuilder(testLogger(t))
	result, err := builder.Build(context.Background(), task, gitea)
	require.NoError(t, err)

	assert.Equal(t, model.ScopeAll, gitea.gotScope)
	assert.Contains(t, result.Markdown, "此时间段内无活跃记录。")
}

func TestBuild_EmptyTargetReposRendersEmptyReport(t *testing.T) {
	task := &model.ReportTask{ScopeType: model.ScopeSpecific, ReportDays: 1}

	builder := NewReportBuilder(testLogger(t))
	result, err := builder.Build(context.Background(), task, &fakeGitea{})
	require.NoError(t, err)

	assert.Equal(t, 0, result.CommitCount)
	assert.Contains(t, result.Markdown, "此时间段内无活跃记录。")
}

func TestBuild_UserScope(t *testing.T) {
	gitea := &fakeGitea{
		self: dto.GiteaUser{ID: 42, Login: "alice", FullName: "Alice Zhang"},
		activities: []dto.ActivityEvent{
			{OpType: dto.OpCommitRepo, Repo: "org/app", Content: `{"Commits":[{"Sha1":"abc","Message":"fix: login"}]}`},
			{OpType: dto.OpCreateIssue, Repo: "org/lib", Index: 5, Content: "found a bug"},
		},
		commits: map[string][]dto.Commit{
			"org/app": {
				{Message: "fix: login", Author: "Alice Zhang"},
				{Message: "by login name", Author: "alice"},
				{Message: "not mine", Author: "Bob"},
			},
		},
	}
	task := &model.ReportTask{ScopeType: model.ScopeUser, ReportDays: 1}

	builder := NewReportBuilder(testLogger(t))
	result, err := builder.Build(context.Background(), task, gitea)
	require.NoError(t, err)

	assert.Equal(t, []string{"org/app"}, gitea.commitsFetched, "only repositories with push events get a detailed listing")
	assert.Equal(t, 2, result.CommitCount, "count matches the user's own commits, by full name or login")

	assert.Contains(t, result.Markdown, "### 📝 Alice Zhang 的个人活动轨迹")
	assert.Contains(t, result.Markdown, "- fix: login")
	assert.Contains(t, result.Markdown, "- 创建了 Issue #5 found a bug")
	assert.Contains(t, string(result.RawData), `"activities"`)
}

func TestBuild_UserScopeWithoutActivity(t *testing.T) {
	gitea := &fakeGitea{self: dto.GiteaUser{ID: 42, Login: "alice"}}
	task := &model.ReportTask{ScopeType: model.ScopeUser, ReportDays: 1}

	builder := NewReportBuilder(testLogger(t))
	result, err := builder.Build(context.Background(), task, gitea)
	require.NoError(t, err)

	assert.Equal(t, 0, result.CommitCount)
	assert.Contains(t, result.Markdown, "此时间段内无活动轨迹。")
}

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gitea-reporter/internal/dto"
	"gitea-reporter/internal/model"
	"gitea-reporter/internal/report"
	"gitea-reporter/internal/repository"
	"gitea-reporter/pkg/logger"
	"gitea-reporter/pkg/utils"

	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
)

// maxConcurrentRepoFetch bounds the per-repository fan-out so a large
// account does not flood the source host.
const maxConcurrentRepoFetch = 10

// BuildResult is the outcome of one aggregation+render pass.
type BuildResult struct {
	Markdown    string
	CommitCount int
	RawData     datatypes.JSON
}

type ReportBuilder interface {
	Build(ctx context.Context, task *model.ReportTask, gitea repository.GiteaRepository) (*BuildResult, error)
}

type reportBuilder struct {
	log *logger.Logger
}

func NewReportBuilder(log *logger.Logger) ReportBuilder {
	return &reportBuilder{log: log}
}

func (b *reportBuilder) Build(ctx context.Context, task *model.ReportTask, gitea repository.GiteaRepository) (*BuildResult, error) {
	// One window per run, shared by every sub-fetch.
	since, until := utils.ReportWindow(time.Now(), task.ReportDays)

	if task.ScopeType == model.ScopeUser {
		return b.buildActivityReport(ctx, gitea, since, until)
	}
	return b.buildRepoReport(ctx, task, gitea, since, until)
}

func (b *reportBuilder) buildRepoReport(ctx context.Context, task *model.ReportTask, gitea repository.GiteaRepository, since, until time.Time) (*BuildResult, error) {
	var repos []string
	switch task.ScopeType {
	case model.ScopeAll, model.ScopeOwner:
		repos = gitea.ListRepositories(ctx, task.ScopeType)
	default:
		if len(task.TargetRepos) > 0 {
			if err := json.Unmarshal(task.TargetRepos, &repos); err != nil {
				return nil, fmt.Errorf("invalid target repository list: %w", err)
			}
		}
	}

	b.log.DebugContext(ctx, "Aggregating repository activity",
		logger.IntField("task_id", int(task.ID)),
		logger.IntField("repo_count", len(repos)),
	)

	sections := make([]dto.RepoReportSection, len(repos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentRepoFetch)
	for i, repo := range repos {
		g.Go(func() error {
			sections[i] = dto.RepoReportSection{
				Repo:         repo,
				Commits:      gitea.ListCommits(gctx, repo, since, until),
				Issues:       gitea.ListOpenIssues(gctx, repo),
				PullRequests: gitea.ListOpenPRs(gctx, repo),
			}
			return nil
		})
	}
	// Fetches report failures as empty sections, the group only orders the
	// writes.
	_ = g.Wait()

	retained := make([]dto.RepoReportSection, 0, len(sections))
	totalCommits := 0
	byRepo := make(map[string]dto.RepoReportSection)
	for _, section := range sections {
		if !section.HasContent() {
			continue
		}
		retained = append(retained, section)
		byRepo[section.Repo] = section
		totalCommits += len(section.Commits)
	}

	rawData, err := json.Marshal(map[string]interface{}{"repo_data": byRepo})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize aggregated data: %w", err)
	}

	return &BuildResult{
		Markdown:    report.RenderRepoReport(since, retained),
		CommitCount: totalCommits,
		RawData:     rawData,
	}, nil
}

func (b *reportBuilder) buildActivityReport(ctx context.Context, gitea repository.GiteaRepository, since, until time.Time) (*BuildResult, error) {
	self := gitea.GetSelf(ctx)
	events := gitea.ListUserActivities(ctx, self.Login, since, self.ID)

	// Group events by repository, preserving feed order.
	var sections []dto.ActivityReportSection
	index := make(map[string]int)
	for _, event := range events {
		i, ok := index[event.Repo]
		if !ok {
			i = len(sections)
			index[event.Repo] = i
			sections = append(sections, dto.ActivityReportSection{Repo: event.Repo})
		}
		sections[i].Events = append(sections[i].Events, event)
	}

	// The feed's push payloads carry hashes but unreliable messages; a
	// follow-up commit listing recovers the real ones and drives the count.
	totalCommits := 0
	for i := range sections {
		hasPush := false
		for _, event := range sections[i].Events {
			if event.IsPush() {
				hasPush = true
				break
			}
		}
		if !hasPush {
			continue
		}

		all := gitea.ListCommits(ctx, sections[i].Repo, since, until)
		mine := make([]dto.Commit, 0, len(all))
		for _, c := range all {
			if c.Author == self.FullName || c.Author == self.Login {
				mine = append(mine, c)
			}
		}
		sections[i].DetailedCommits = mine
		totalCommits += len(mine)
	}

	rawData, err := json.Marshal(map[string]interface{}{"activities": events})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize aggregated data: %w", err)
	}

	return &BuildResult{
		Markdown:    report.RenderActivityReport(since, sections, self.DisplayName()),
		CommitCount: totalCommits,
		RawData:     rawData,
	}, nil
}

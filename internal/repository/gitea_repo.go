package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gitea-reporter/config"
	"gitea-reporter/internal/dto"
	"gitea-reporter/internal/model"
	"gitea-reporter/pkg/cache"
	"gitea-reporter/pkg/httpclient"
	"gitea-reporter/pkg/logger"
	"gitea-reporter/pkg/utils"

	"golang.org/x/time/rate"
)

const (
	giteaPageSize = 50

	// defaultMaxRequestPerMin backs the shared limiter when the configured
	// value is zero or negative.
	defaultMaxRequestPerMin = 300
)

// GiteaRepository wraps one Gitea base URL + token. Listing calls never
// return an error: any transport failure or non-success status yields an
// empty result, so callers treat "empty" as "no data found".
type GiteaRepository interface {
	GetSelf(ctx context.Context) dto.GiteaUser
	ListRepositories(ctx context.Context, scope model.ScopeType) []string
	ListCommits(ctx context.Context, repoFullName string, since, until time.Time) []dto.Commit
	ListOpenIssues(ctx context.Context, repoFullName string) []dto.Issue
	ListOpenPRs(ctx context.Context, repoFullName string) []dto.PullRequest
	ListUserActivities(ctx context.Context, username string, since time.Time, actorID int64) []dto.ActivityEvent
}

// GiteaRepositoryFactory builds a repository for a task's stored host
// config. All instances share one outbound rate limiter and the identity
// cache.
type GiteaRepositoryFactory func(baseURL, token string) GiteaRepository

func NewGiteaRepositoryFactory(cfg *config.Config, log *logger.Logger, inmemCache cache.Cache) GiteaRepositoryFactory {
	maxRequestPerMin := cfg.Gitea.MaxRequestPerMin
	if maxRequestPerMin <= 0 {
		maxRequestPerMin = defaultMaxRequestPerMin
	}
	requestLimiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(maxRequestPerMin)), 1)

	return func(baseURL, token string) GiteaRepository {
		apiRoot := strings.TrimRight(baseURL, "/") + "/api/v1"
		return &giteaRepository{
			httpClient:     httpclient.New(log, apiRoot, cfg.Gitea.BaseTimeout, ""),
			baseURL:        apiRoot,
			token:          token,
			cfg:            cfg,
			logger:         log,
			cache:          inmemCache,
			requestLimiter: requestLimiter,
		}
	}
}

type giteaRepository struct {
	httpClient     httpclient.HTTPClient
	baseURL        string
	token          string
	cfg            *config.Config
	logger         *logger.Logger
	cache          cache.Cache
	requestLimiter *rate.Limiter
}

// Gitea expects "Authorization: token <token>", not the Bearer scheme.
func (r *giteaRepository) authHeaders() map[string]string {
	return map[string]string{"Authorization": "token " + r.token}
}

func (r *giteaRepository) get(ctx context.Context, endpoint string, queryParams map[string]string, result interface{}) (*httpclient.BaseResponse, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.httpClient.Get(ctx, endpoint, queryParams, r.authHeaders(), result)
}

func (r *giteaRepository) GetSelf(ctx context.Context) dto.GiteaUser {
	// The cache is process-shared and repositories are built per
	// (baseURL, token); two configs for the same host may carry different
	// tokens, so the token is part of the key.
	cacheKey := "gitea:self:" + r.baseURL + ":" + r.token
	if cached, found := r.cache.Get(cacheKey); found {
		if user, ok := cached.(dto.GiteaUser); ok {
			return user
		}
	}

	var user dto.GiteaUser
	resp, err := r.get(ctx, "/user", nil, &user)
	if err != nil || !resp.IsSuccess() {
		r.logger.WarnContext(ctx, "Failed to fetch Gitea identity", logger.ErrorField(err))
		return dto.GiteaUser{}
	}

	r.cache.Set(cacheKey, user, r.cfg.Cache.DefaultExpiration)
	return user
}

func (r *giteaRepository) ListRepositories(ctx context.Context, scope model.ScopeType) []string {
	// "all" asks for every repository visible to the token; any other
	// repo-listing scope asks for owned ones. The exact semantics of the
	// type filter are host-defined, it is passed through untouched.
	giteaType := "individual"
	if scope == model.ScopeAll {
		giteaType = "all"
	}

	var repos []string
	for page := 1; utils.ShouldContinue(ctx, r.logger); page++ {
		var items []dto.GiteaRepo
		resp, err := r.get(ctx, "/user/repos", map[string]string{
			"page":  strconv.Itoa(page),
			"limit": strconv.Itoa(giteaPageSize),
			"type":  giteaType,
		}, &items)
		if err != nil || !resp.IsSuccess() || len(items) == 0 {
			break
		}
		for _, item := range items {
			repos = append(repos, item.FullName)
		}
	}
	return repos
}

func (r *giteaRepository) ListCommits(ctx context.Context, repoFullName string, since, until time.Time) []dto.Commit {
	var items []dto.GiteaCommitItem
	resp, err := r.get(ctx, fmt.Sprintf("/repos/%s/commits", repoFullName), map[string]string{
		"since": since.Format(time.RFC3339),
		"stat":  "false",
	}, &items)
	if err != nil || !resp.IsSuccess() {
		r.logger.WarnContext(ctx, "Failed to list commits",
			logger.StringField("repo", repoFullName),
			logger.ErrorField(err),
		)
		return nil
	}

	commits := make([]dto.Commit, 0, len(items))
	for _, item := range items {
		// The host only bounds the listing from below, re-filter to the
		// inclusive [since, until] window here.
		if !utils.WithinWindow(item.Commit.Author.Date, since, until) {
			continue
		}
		author := item.Commit.Author.Name
		if item.Author != nil && item.Author.FullName != "" {
			author = item.Author.FullName
		}
		commits = append(commits, dto.Commit{
			Repo:    repoFullName,
			Author:  author,
			Message: utils.FirstLine(item.Commit.Message),
			SHA:     shortSHA(item.SHA),
			URL:     item.HTMLURL,
			Date:    item.Commit.Author.Date,
		})
	}
	return commits
}

func (r *giteaRepository) ListOpenIssues(ctx context.Context, repoFullName string) []dto.Issue {
	items := r.listOpenItems(ctx, fmt.Sprintf("/repos/%s/issues", repoFullName), map[string]string{
		"state": "open",
		"type":  "issues",
	})
	issues := make([]dto.Issue, 0, len(items))
	for _, item := range items {
		issues = append(issues, dto.Issue{
			Number: item.Number,
			Title:  item.Title,
			URL:    item.HTMLURL,
			User:   item.User.DisplayName(),
		})
	}
	return issues
}

func (r *giteaRepository) ListOpenPRs(ctx context.Context, repoFullName string) []dto.PullRequest {
	items := r.listOpenItems(ctx, fmt.Sprintf("/repos/%s/pulls", repoFullName), map[string]string{
		"state": "open",
	})
	prs := make([]dto.PullRequest, 0, len(items))
	for _, item := range items {
		prs = append(prs, dto.PullRequest{
			Number: item.Number,
			Title:  item.Title,
			URL:    item.HTMLURL,
			User:   item.User.DisplayName(),
		})
	}
	return prs
}

func (r *giteaRepository) listOpenItems(ctx context.Context, endpoint string, queryParams map[string]string) []dto.GiteaIssueItem {
	var items []dto.GiteaIssueItem
	resp, err := r.get(ctx, endpoint, queryParams, &items)
	if err != nil || !resp.IsSuccess() {
		r.logger.WarnContext(ctx, "Failed to list open items",
			logger.StringField("endpoint", endpoint),
			logger.ErrorField(err),
		)
		return nil
	}
	return items
}

func (r *giteaRepository) ListUserActivities(ctx context.Context, username string, since time.Time, actorID int64) []dto.ActivityEvent {
	var events []dto.ActivityEvent
	for page := 1; utils.ShouldContinue(ctx, r.logger); page++ {
		var items []dto.GiteaActivityItem
		resp, err := r.get(ctx, fmt.Sprintf("/users/%s/activities/feeds", username), map[string]string{
			"page":  strconv.Itoa(page),
			"limit": strconv.Itoa(giteaPageSize),
		}, &items)
		if err != nil || !resp.IsSuccess() || len(items) == 0 {
			break
		}

		// Stop paging at the first item older than the window. This assumes
		// the feed is newest-first; items behind an out-of-order stale one
		// on a later page are missed, matching the host's documented feed
		// ordering.
		finished := false
		for _, item := range items {
			if actorID != 0 && item.ActUserID != actorID {
				continue
			}
			created := item.Created.In(since.Location())
			if created.Before(since) {
				finished = true
				break
			}
			events = append(events, dto.ActivityEvent{
				OpType:  dto.OpType(item.OpType),
				Repo:    item.Repo.FullName,
				Index:   item.Index,
				Content: item.Content,
				Created: created,
			})
		}

		if finished || len(items) < giteaPageSize {
			break
		}
	}
	return events
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

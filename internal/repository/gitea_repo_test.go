package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gitea-reporter/config"
	"gitea-reporter/internal/dto"
	"gitea-reporter/internal/model"
	"gitea-reporter/pkg/httpclient"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type fakeCache struct {
	values map[string]interface{}
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: make(map[string]interface{})}
}

func (c *fakeCache) Set(key string, value interface{}, _ time.Duration) { c.values[key] = value }
func (c *fakeCache) Get(key string) (interface{}, bool) {
	v, ok := c.values[key]
	return v, ok
}
func (c *fakeCache) Delete(key string) { delete(c.values, key) }
func (c *fakeCache) Flush()            { c.values = make(map[string]interface{}) }

func newTestGiteaRepository(t *testing.T, serverURL string) *giteaRepository {
	t.Helper()
	log := testLogger(t)
	cfg := &config.Config{}
	cfg.Cache.DefaultExpiration = time.Minute

	apiRoot := serverURL + "/api/v1"
	return &giteaRepository{
		httpClient:     httpclient.New(log, apiRoot, 5*time.Second, ""),
		baseURL:        apiRoot,
		token:          "secret",
		cfg:            cfg,
		logger:         log,
		cache:          newFakeCache(),
		requestLimiter: rate.NewLimiter(rate.Inf, 1),
	}
}

func writeJSON(t *testing.T, w http.ResponseWriter, v interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestGetSelf(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/api/v1/user", r.URL.Path)
		assert.Equal(t, "token secret", r.Header.Get("Authorization"))
		writeJSON(t, w, dto.GiteaUser{ID: 42, Login: "alice", FullName: "Alice Zhang"})
	}))
	defer server.Close()

	repo := newTestGiteaRepository(t, server.URL)
	ctx := context.Background()

	user := repo.GetSelf(ctx)
	assert.Equal(t, int64(42), user.ID)
	assert.Equal(t, "alice", user.Login)

	// The identity is cached per base URL.
	repo.GetSelf(ctx)
	assert.Equal(t, 1, calls)
}

func TestGetSelf_CachePerToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("Authorization") {
		case "token alice-token":
			writeJSON(t, w, dto.GiteaUser{ID: 1, Login: "alice"})
		case "token bob-token":
			writeJSON(t, w, dto.GiteaUser{ID: 2, Login: "bob"})
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer server.Close()

	cfg := &config.Config{}
	cfg.Gitea.BaseTimeout = 5 * time.Second
	cfg.Gitea.MaxRequestPerMin = 6000
	cfg.Cache.DefaultExpiration = time.Minute

	// One factory, one shared cache: two configs for the same host with
	// different tokens must not see each other's identity.
	factory := NewGiteaRepositoryFactory(cfg, testLogger(t), newFakeCache())
	alice := factory(server.URL, "alice-token")
	bob := factory(server.URL, "bob-token")

	ctx := context.Background()
	assert.Equal(t, "alice", alice.GetSelf(ctx).Login)
	assert.Equal(t, "bob", bob.GetSelf(ctx).Login)
	assert.Equal(t, "alice", alice.GetSelf(ctx).Login, "cached entry stays bound to its token")
}

func TestNewGiteaRepositoryFactory_ZeroRateLimitFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, dto.GiteaUser{ID: 1, Login: "alice"})
	}))
	defer server.Close()

	cfg := &config.Config{}
	cfg.Gitea.BaseTimeout = 5 * time.Second
	cfg.Gitea.MaxRequestPerMin = 0

	factory := NewGiteaRepositoryFactory(cfg, testLogger(t), newFakeCache())
	repo := factory(server.URL, "tok")
	assert.Equal(t, "alice", repo.GetSelf(context.Background()).Login)
}

func TestGetSelf_FailureYieldsZeroUser(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	repo := newTestGiteaRepository(t, server.URL)
	assert.Equal(t, dto.GiteaUser{}, repo.GetSelf(context.Background()))
}

func TestListRepositories(t *testing.T) {
	var gotTypes []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/user/repos", r.URL.Path)
		gotTypes = append(gotTypes, r.URL.Query().Get("type"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))

		page := r.URL.Query().Get("page")
		switch page {
		case "1":
			repos := make([]dto.GiteaRepo, giteaPageSize)
			for i := range repos {
				repos[i] = dto.GiteaRepo{FullName: fmt.Sprintf("org/repo-%d", i)}
			}
			writeJSON(t, w, repos)
		case "2":
			writeJSON(t, w, []dto.GiteaRepo{{FullName: "org/last"}})
		default:
			writeJSON(t, w, []dto.GiteaRepo{})
		}
	}))
	defer server.Close()

	repo := newTestGiteaRepository(t, server.URL)
	repos := repo.ListRepositories(context.Background(), model.ScopeAll)

	assert.Len(t, repos, giteaPageSize+1)
	assert.Equal(t, "org/last", repos[giteaPageSize])
	for _, typ := range gotTypes {
		assert.Equal(t, "all", typ)
	}
}

func TestListRepositories_OwnerScopeAsksForIndividual(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "individual", r.URL.Query().Get("type"))
		writeJSON(t, w, []dto.GiteaRepo{})
	}))
	defer server.Close()

	repo := newTestGiteaRepository(t, server.URL)
	assert.Empty(t, repo.ListRepositories(context.Background(), model.ScopeOwner))
}

func TestListCommits(t *testing.T) {
	since := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
	until := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	commitItem := func(sha, message string, date time.Time) dto.GiteaCommitItem {
		var item dto.GiteaCommitItem
		item.SHA = sha
		item.Commit.Message = message
		item.Commit.Author.Name = "raw name"
		item.Commit.Author.Date = date
		return item
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/repos/org/app/commits", r.URL.Path)
		assert.Equal(t, since.Format(time.RFC3339), r.URL.Query().Get("since"))
		assert.Equal(t, "false", r.URL.Query().Get("stat"))

		resolved := commitItem("aaaaaaaabbbbbbbb", "fix: token refresh\n\nlong body", since.Add(time.Hour))
		resolved.Author = &dto.GiteaUser{Login: "alice", FullName: "Alice Zhang"}
		writeJSON(t, w, []dto.GiteaCommitItem{
			resolved,
			commitItem("lowerbound", "at since", since),
			commitItem("upperbound", "at until", until),
			commitItem("toolate", "after window", until.Add(time.Second)),
			commitItem("tooearly", "before window", since.Add(-time.Second)),
		})
	}))
	defer server.Close()

	repo := newTestGiteaRepository(t, server.URL)
	commits := repo.ListCommits(context.Background(), "org/app", since, until)

	require.Len(t, commits, 3, "window bounds are inclusive, outside them excluded")

	assert.Equal(t, "aaaaaaa", commits[0].SHA, "hash is shortened to 7 chars")
	assert.Equal(t, "fix: token refresh", commits[0].Message, "only the first message line is kept")
	assert.Equal(t, "Alice Zhang", commits[0].Author, "resolved account full name wins")
	assert.Equal(t, "org/app", commits[0].Repo)

	assert.Equal(t, "raw name", commits[1].Author, "unresolved commit falls back to the raw author name")
}

func TestListCommits_FailureYieldsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	repo := newTestGiteaRepository(t, server.URL)
	now := time.Now()
	assert.Empty(t, repo.ListCommits(context.Background(), "org/gone", now.Add(-time.Hour), now))
}

func TestListOpenIssuesAndPRs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/repos/org/app/issues":
			assert.Equal(t, "open", r.URL.Query().Get("state"))
			assert.Equal(t, "issues", r.URL.Query().Get("type"))
			writeJSON(t, w, []dto.GiteaIssueItem{
				{Number: 7, Title: "crash", User: dto.GiteaUser{Login: "bob"}},
			})
		case "/api/v1/repos/org/app/pulls":
			assert.Equal(t, "open", r.URL.Query().Get("state"))
			writeJSON(t, w, []dto.GiteaIssueItem{
				{Number: 12, Title: "retries", User: dto.GiteaUser{Login: "bob", FullName: "Bob Li"}},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	repo := newTestGiteaRepository(t, server.URL)
	ctx := context.Background()

	issues := repo.ListOpenIssues(ctx, "org/app")
	require.Len(t, issues, 1)
	assert.Equal(t, int64(7), issues[0].Number)
	assert.Equal(t, "bob", issues[0].User, "missing full name falls back to login")

	prs := repo.ListOpenPRs(ctx, "org/app")
	require.Len(t, prs, 1)
	assert.Equal(t, "Bob Li", prs[0].User)
}

func TestListUserActivities_StopsOnFirstStale(t *testing.T) {
	since := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
	var pagesServed int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/users/alice/activities/feeds", r.URL.Path)
		pagesServed++
		require.Equal(t, 1, pagesServed, "paging must stop at the first stale item")

		items := make([]dto.GiteaActivityItem, giteaPageSize)
		for i := range items {
			items[i] = dto.GiteaActivityItem{
				OpType:    "create_issue",
				ActUserID: 42,
				Repo:      dto.GiteaRepo{FullName: "org/app"},
				Index:     int64(i),
				Created:   since.Add(time.Hour),
			}
		}
		// A stale item mid-page cuts the scan; items after it are dropped.
		items[3].Created = since.Add(-time.Minute)
		writeJSON(t, w, items)
	}))
	defer server.Close()

	repo := newTestGiteaRepository(t, server.URL)
	events := repo.ListUserActivities(context.Background(), "alice", since, 42)

	assert.Len(t, events, 3)
}

func TestListUserActivities_FiltersActorAndStopsOnShortPage(t *testing.T) {
	since := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
	var pagesServed int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pagesServed++
		writeJSON(t, w, []dto.GiteaActivityItem{
			{OpType: "create_issue", ActUserID: 42, Repo: dto.GiteaRepo{FullName: "org/app"}, Index: 1, Created: since.Add(time.Hour)},
			{OpType: "close_issue", ActUserID: 99, Repo: dto.GiteaRepo{FullName: "org/app"}, Index: 2, Created: since.Add(time.Hour)},
		})
	}))
	defer server.Close()

	repo := newTestGiteaRepository(t, server.URL)
	events := repo.ListUserActivities(context.Background(), "alice", since, 42)

	assert.Equal(t, 1, pagesServed, "a short page ends the feed")
	require.Len(t, events, 1, "other actors' items are skipped")
	assert.Equal(t, dto.OpCreateIssue, events[0].OpType)
	assert.Equal(t, int64(1), events[0].Index)
}

func TestListUserActivities_NormalizesToWindowLocation(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*60*60)
	since := time.Date(2024, 3, 14, 0, 0, 0, 0, loc)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []dto.GiteaActivityItem{
			{OpType: "create_issue", ActUserID: 42, Repo: dto.GiteaRepo{FullName: "org/app"}, Created: since.Add(time.Hour).UTC()},
		})
	}))
	defer server.Close()

	repo := newTestGiteaRepository(t, server.URL)
	events := repo.ListUserActivities(context.Background(), "alice", since, 42)

	require.Len(t, events, 1)
	assert.Equal(t, loc.String(), events[0].Created.Location().String())
}

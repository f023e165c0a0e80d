package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/klimeurt/repo-harvester/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// Searcher runs keyword searches against the GitHub search API and filters
// the results.
type Searcher struct {
	ghClient *github.Client
	filter   *Filter
	language string
	limiter  *rate.Limiter
}

// NewSearcher creates a new Searcher instance
func NewSearcher(cfg *config.Config, filter *Filter) *Searcher {
	// Create GitHub client with OAuth2 token
	ctx := context.Background()
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: cfg.GitHubToken},
	)
	tc := oauth2.NewClient(ctx, ts)
	tc.Timeout = 30 * time.Second
	ghClient := github.NewClient(tc)

	return &Searcher{
		ghClient: ghClient,
		filter:   filter,
		language: cfg.Language,
		limiter:  rate.NewLimiter(rate.Every(cfg.SearchDelay), 1),
	}
}

// Search queries GitHub for repositories matching the keyword in the
// configured language, sorted by stars descending, and returns the full
// names of suitable candidates up to limit. Only the first response page is
// examined; later pages are deliberately left to other keywords so no
// single query dominates the sample. The rate limiter spaces consecutive
// searches apart regardless of outcome.
func (s *Searcher) Search(ctx context.Context, keyword string, limit int) ([]string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("%s language:%s", keyword, s.language)
	opts := &github.SearchOptions{
		Sort:        "stars",
		Order:       "desc",
		ListOptions: github.ListOptions{PerPage: 100},
	}

	result, _, err := s.ghClient.Search.Repositories(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("search for %q failed: %w", keyword, err)
	}

	// An empty or absent item list is a degenerate response, not an error
	var found []string
	for _, repo := range result.Repositories {
		if len(found) >= limit {
			break
		}
		if s.filter.Suitable(repo) {
			found = append(found, repo.GetFullName())
		}
	}

	return found, nil
}

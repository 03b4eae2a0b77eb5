// Package gateway provides the adapters to GitHub, Slack and the registry file,
// abstracting away the underlying REST, GraphQL and storage clients.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/shurcooL/githubv4"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/naka-gawa/ctrl/internal/domain"
)

// CodeHost defines the pull request actions the bot performs on GitHub.
type CodeHost interface {
	AddAssignees(ctx context.Context, repo string, number int, assignees []string) error
	RequestReviewers(ctx context.Context, repo string, number int, reviewers []string) error
	CreateComment(ctx context.Context, repo string, number int, body string) error
	Merge(ctx context.Context, repo string, number int, message string) error
	ListContributors(ctx context.Context, repo string) ([]string, error)
	DefaultBranch(ctx context.Context, repo string) (string, error)
}

// GitHubGateway is the concrete implementation of the CodeHost interface.
type GitHubGateway struct {
	restClient    *github.Client
	graphqlClient *githubv4.Client
	logger        *zap.Logger
}

// defaultBranchQuery fetches the name of the repository's default branch.
type defaultBranchQuery struct {
	Repository struct {
		DefaultBranchRef struct {
			Name string
		}
	} `graphql:"repository(owner: $owner, name: $name)"`
}

// NewGitHubGateway is a constructor that creates a new instance of GitHubGateway.
func NewGitHubGateway(token string, logger *zap.Logger) (*GitHubGateway, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(5*time.Minute, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: ts,
		},
	}
	return &GitHubGateway{
		restClient:    github.NewClient(httpClient),
		graphqlClient: githubv4.NewClient(httpClient),
		logger:        logger,
	}, nil
}

func splitRepo(repo string) (string, string, error) {
	owner, name, ok := domain.SplitRepository(repo)
	if !ok {
		return "", "", fmt.Errorf("%w: %q", domain.ErrInvalidRepository, repo)
	}
	return owner, name, nil
}

// remoteError tags a GitHub client error as a failed remote action.
func remoteError(op string, err error) error {
	return fmt.Errorf("failed to %s: %w", op, errors.Join(domain.ErrRemoteAction, err))
}

func (g *GitHubGateway) AddAssignees(ctx context.Context, repo string, number int, assignees []string) error {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return err
	}
	g.logger.Debug("Adding assignees", zap.String("repo", repo), zap.Int("number", number), zap.Strings("assignees", assignees))
	if _, _, err := g.restClient.Issues.AddAssignees(ctx, owner, name, number, assignees); err != nil {
		return remoteError("add assignees", err)
	}
	return nil
}

func (g *GitHubGateway) RequestReviewers(ctx context.Context, repo string, number int, reviewers []string) error {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return err
	}
	g.logger.Debug("Requesting reviewers", zap.String("repo", repo), zap.Int("number", number), zap.Strings("reviewers", reviewers))
	req := github.ReviewersRequest{Reviewers: reviewers}
	if _, _, err := g.restClient.PullRequests.RequestReviewers(ctx, owner, name, number, req); err != nil {
		return remoteError("request reviewers", err)
	}
	return nil
}

func (g *GitHubGateway) CreateComment(ctx context.Context, repo string, number int, body string) error {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return err
	}
	g.logger.Debug("Creating comment", zap.String("repo", repo), zap.Int("number", number))
	if _, _, err := g.restClient.Issues.CreateComment(ctx, owner, name, number, &github.IssueComment{Body: github.String(body)}); err != nil {
		return remoteError("create comment", err)
	}
	return nil
}

func (g *GitHubGateway) Merge(ctx context.Context, repo string, number int, message string) error {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return err
	}
	g.logger.Info("Merging pull request", zap.String("repo", repo), zap.Int("number", number))
	result, _, err := g.restClient.PullRequests.Merge(ctx, owner, name, number, message, nil)
	if err != nil {
		return remoteError("merge pull request", err)
	}
	if !result.GetMerged() {
		return remoteError("merge pull request", errors.New(result.GetMessage()))
	}
	return nil
}

// ListContributors returns the logins of every contributor, following pagination.
func (g *GitHubGateway) ListContributors(ctx context.Context, repo string) ([]string, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}
	opts := &github.ListContributorsOptions{ListOptions: github.ListOptions{PerPage: 100}}
	logins := []string{}
	for {
		contributors, resp, err := g.restClient.Repositories.ListContributors(ctx, owner, name, opts)
		if err != nil {
			return nil, remoteError("list contributors", err)
		}
		for _, c := range contributors {
			if login := c.GetLogin(); login != "" {
				logins = append(logins, login)
			}
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
		g.logger.Debug("Fetching next page of contributors", zap.String("repo", repo))
	}
	return logins, nil
}

// DefaultBranch asks the GraphQL API for the repository's default branch name.
func (g *GitHubGateway) DefaultBranch(ctx context.Context, repo string) (string, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return "", err
	}
	variables := map[string]interface{}{
		"owner": githubv4.String(owner),
		"name":  githubv4.String(name),
	}
	var q defaultBranchQuery
	if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
		return "", remoteError("query default branch", err)
	}
	return q.Repository.DefaultBranchRef.Name, nil
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/naka-gawa/ctrl/internal/domain"
	"github.com/naka-gawa/ctrl/internal/gateway"
	"github.com/naka-gawa/ctrl/internal/metrics"
)

// ReactorConfig controls the pull request automation.
type ReactorConfig struct {
	// ProtectedBranches never get automatic review requests or merges.
	ProtectedBranches []string
	// ProtectDefaultBranch also protects the repository's default branch.
	ProtectDefaultBranch bool
	// FilterContributors drops reviewer candidates who never contributed to the repository.
	FilterContributors bool
	// CallTimeout bounds every GitHub call.
	CallTimeout time.Duration
}

// Reactor reacts to pull request and review webhooks.
// Each event is handled statelessly from its payload and the current registry.
type Reactor struct {
	host    gateway.CodeHost
	store   *Store
	cfg     ReactorConfig
	metrics *metrics.Recorder
	logger  *zap.Logger
}

// NewReactor creates a new Reactor instance.
func NewReactor(host gateway.CodeHost, store *Store, cfg ReactorConfig, rec *metrics.Recorder, logger *zap.Logger) *Reactor {
	if cfg.ProtectedBranches == nil {
		cfg.ProtectedBranches = domain.DefaultProtectedBranches
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 10 * time.Second
	}
	return &Reactor{host: host, store: store, cfg: cfg, metrics: rec, logger: logger}
}

// call runs one GitHub operation under the configured timeout.
func (r *Reactor) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
	defer cancel()
	start := time.Now()
	err := fn(ctx)
	r.metrics.ObserveRemoteCall(op, err, time.Since(start))
	if err != nil && errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, domain.ErrRemoteAction) {
		err = fmt.Errorf("%s timed out: %w", op, errors.Join(domain.ErrRemoteAction, err))
	}
	return err
}

func (r *Reactor) comment(ctx context.Context, repo string, number int, body string) error {
	return r.call(ctx, "create_comment", func(ctx context.Context) error {
		return r.host.CreateComment(ctx, repo, number, body)
	})
}

func mentionAll(usernames []string) string {
	out := make([]string, len(usernames))
	for i, u := range usernames {
		out[i] = "@" + u
	}
	return strings.Join(out, ", ")
}

// trackedProject finds the project for repo, or nil when the repository is not tracked.
func (r *Reactor) trackedProject(ctx context.Context, repo string) (*domain.Project, *domain.Registry, error) {
	reg, err := r.store.Snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	project := domain.ProjectByRepository(reg, repo)
	if project == nil {
		r.logger.Info("No project found for GitHub repo", zap.String("repo", repo))
		return nil, reg, nil
	}
	return project, reg, nil
}

// ReviewerCandidates returns (owners ∪ managers) − {author}, de-duplicated in order.
// When contributors is non-nil the result is further limited to contributors.
func ReviewerCandidates(owners, managers []string, author string, contributors []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, u := range slices.Concat(owners, managers) {
		if u == "" || strings.EqualFold(u, author) || seen[strings.ToLower(u)] {
			continue
		}
		if contributors != nil && !slices.ContainsFunc(contributors, func(c string) bool { return strings.EqualFold(c, u) }) {
			continue
		}
		seen[strings.ToLower(u)] = true
		out = append(out, u)
	}
	return out
}

// enrichment is what the reactor learns about a repository before acting.
type enrichment struct {
	contributors  []string
	defaultBranch string
}

// enrich fetches the optional contributor list and default branch concurrently.
// Failures are logged and the corresponding enrichment is skipped.
func (r *Reactor) enrich(ctx context.Context, repo string) enrichment {
	var e enrichment
	eg, egCtx := errgroup.WithContext(ctx)

	if r.cfg.FilterContributors {
		eg.Go(func() error {
			err := r.call(egCtx, "list_contributors", func(ctx context.Context) error {
				var err error
				e.contributors, err = r.host.ListContributors(ctx, repo)
				return err
			})
			if err != nil {
				e.contributors = nil
				r.logger.Warn("Failed to list contributors, not filtering reviewers", zap.String("repo", repo), zap.Error(err))
			}
			return nil
		})
	}

	if r.cfg.ProtectDefaultBranch {
		eg.Go(func() error {
			err := r.call(egCtx, "default_branch", func(ctx context.Context) error {
				var err error
				e.defaultBranch, err = r.host.DefaultBranch(ctx, repo)
				return err
			})
			if err != nil {
				e.defaultBranch = ""
				r.logger.Warn("Failed to fetch default branch", zap.String("repo", repo), zap.Error(err))
			}
			return nil
		})
	}

	_ = eg.Wait()
	return e
}

func (r *Reactor) protected(branch, defaultBranch string) bool {
	if domain.IsProtectedBranch(branch, r.cfg.ProtectedBranches) {
		return true
	}
	return defaultBranch != "" && branch == defaultBranch
}

// HandlePullRequest assigns the author and requests reviews for newly opened pull requests.
func (r *Reactor) HandlePullRequest(ctx context.Context, ev domain.PullRequestEvent) error {
	logger := r.logger.With(zap.String("repo", ev.Repository), zap.Int("number", ev.Number), zap.String("action", ev.Action))
	switch ev.Action {
	case domain.ActionOpened, domain.ActionReopened, domain.ActionReadyForReview:
	default:
		logger.Debug("Ignoring pull request action")
		r.metrics.ObserveEvent(gateway.EventPullRequest, ev.Action, "ignored")
		return nil
	}

	project, reg, err := r.trackedProject(ctx, ev.Repository)
	if err != nil {
		return err
	}
	if project == nil {
		r.metrics.ObserveEvent(gateway.EventPullRequest, ev.Action, "untracked")
		return nil
	}
	repo := project.Repository

	extra := r.enrich(ctx, repo)
	reviewers := ReviewerCandidates(project.Owners, reg.Managers, ev.Author, extra.contributors)
	logger.Info("Handling pull request", zap.String("author", ev.Author), zap.Strings("reviewers", reviewers))

	err = r.call(ctx, "add_assignees", func(ctx context.Context) error {
		return r.host.AddAssignees(ctx, repo, ev.Number, []string{ev.Author})
	})
	if err != nil {
		r.metrics.ObserveEvent(gateway.EventPullRequest, ev.Action, "error")
		return fmt.Errorf("failed to assign %s: %w", ev.Author, err)
	}

	if r.protected(ev.BaseBranch, extra.defaultBranch) {
		body := fmt.Sprintf("🤖 Thanks @%s. This PR targets `%s`, so I'm not requesting reviews automatically. Please add reviewers manually if needed.", ev.Author, ev.BaseBranch)
		if err := r.comment(ctx, repo, ev.Number, body); err != nil {
			r.metrics.ObserveEvent(gateway.EventPullRequest, ev.Action, "error")
			return err
		}
		r.metrics.ObserveEvent(gateway.EventPullRequest, ev.Action, "protected")
		return nil
	}

	var reviewErr error
	if len(reviewers) == 0 {
		reviewErr = errors.New("no reviewer candidates")
	} else {
		reviewErr = r.call(ctx, "request_reviewers", func(ctx context.Context) error {
			return r.host.RequestReviewers(ctx, repo, ev.Number, reviewers)
		})
	}

	var body string
	outcome := "reviewers_requested"
	if reviewErr == nil {
		body = fmt.Sprintf("🤖 Thanks @%s. Reviews have been requested from the following project managers: %s", ev.Author, mentionAll(reviewers))
	} else {
		logger.Warn("Could not request reviews, falling back to a comment", zap.Error(reviewErr))
		outcome = "manual_review"
		body = fmt.Sprintf("🤖 Thanks @%s. I was unable to automatically assign reviews for this PR. Please add them manually", ev.Author)
		if len(reviewers) > 0 {
			body += ": " + mentionAll(reviewers)
		} else {
			body += "."
		}
	}
	if err := r.comment(ctx, repo, ev.Number, body); err != nil {
		r.metrics.ObserveEvent(gateway.EventPullRequest, ev.Action, "error")
		return err
	}
	r.metrics.ObserveEvent(gateway.EventPullRequest, ev.Action, outcome)
	return nil
}

// HandleReview merges approved pull requests and nudges authors on requested changes.
func (r *Reactor) HandleReview(ctx context.Context, ev domain.ReviewEvent) error {
	logger := r.logger.With(zap.String("repo", ev.Repository), zap.Int("number", ev.Number), zap.String("state", ev.State()))
	if ev.Action != domain.ActionSubmitted {
		r.metrics.ObserveEvent(gateway.EventPullRequestReview, ev.Action, "ignored")
		return nil
	}

	project, _, err := r.trackedProject(ctx, ev.Repository)
	if err != nil {
		return err
	}
	if project == nil {
		r.metrics.ObserveEvent(gateway.EventPullRequestReview, ev.Action, "untracked")
		return nil
	}
	repo := project.Repository

	switch ev.State() {
	case domain.ReviewApproved:
		var defaultBranch string
		if r.cfg.ProtectDefaultBranch {
			defaultBranch = r.enrich(ctx, repo).defaultBranch
		}
		if r.protected(ev.BaseBranch, defaultBranch) {
			body := fmt.Sprintf("🤖 Approved by @%s. This PR targets `%s`, so it will not be merged automatically.", ev.Reviewer, ev.BaseBranch)
			if err := r.comment(ctx, repo, ev.Number, body); err != nil {
				r.metrics.ObserveEvent(gateway.EventPullRequestReview, ev.State(), "error")
				return err
			}
			r.metrics.ObserveEvent(gateway.EventPullRequestReview, ev.State(), "protected")
			return nil
		}

		message := fmt.Sprintf("Merge branch %s into %s.\n\n🤖 Approved by %s and automatically merged.", ev.HeadBranch, ev.BaseBranch, ev.Reviewer)
		err := r.call(ctx, "merge", func(ctx context.Context) error {
			return r.host.Merge(ctx, repo, ev.Number, message)
		})
		if err != nil {
			r.metrics.ObserveEvent(gateway.EventPullRequestReview, ev.State(), "error")
			return fmt.Errorf("failed to merge #%d: %w", ev.Number, err)
		}
		logger.Info("Pull request merged", zap.String("reviewer", ev.Reviewer))
		body := fmt.Sprintf("🤖 Approved by @%s and automatically merged `%s` into `%s`.", ev.Reviewer, ev.HeadBranch, ev.BaseBranch)
		if err := r.comment(ctx, repo, ev.Number, body); err != nil {
			r.metrics.ObserveEvent(gateway.EventPullRequestReview, ev.State(), "error")
			return err
		}
		r.metrics.ObserveEvent(gateway.EventPullRequestReview, ev.State(), "merged")

	case domain.ReviewChangesRequested:
		body := fmt.Sprintf("🤖 @%s, @%s requested changes on this PR. Please address the feedback and push an update.", ev.Author, ev.Reviewer)
		if err := r.comment(ctx, repo, ev.Number, body); err != nil {
			r.metrics.ObserveEvent(gateway.EventPullRequestReview, ev.State(), "error")
			return err
		}
		r.metrics.ObserveEvent(gateway.EventPullRequestReview, ev.State(), "changes_requested")

	default:
		logger.Debug("Ignoring review state")
		r.metrics.ObserveEvent(gateway.EventPullRequestReview, ev.State(), "ignored")
	}
	return nil
}

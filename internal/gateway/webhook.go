package gateway

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v62/github"

	"github.com/naka-gawa/ctrl/internal/domain"
)

// Webhook event names handled by the bot.
const (
	EventPullRequest       = "pull_request"
	EventPullRequestReview = "pull_request_review"
)

var (
	// ErrMissingEventHeader is returned when X-GitHub-Event is absent.
	ErrMissingEventHeader = errors.New("missing X-GitHub-Event header")
	// ErrUnsupportedEvent is returned for events the bot ignores.
	ErrUnsupportedEvent = errors.New("unsupported webhook event")
	// ErrInvalidPayload is returned when a payload fails validation or decoding.
	ErrInvalidPayload = errors.New("invalid webhook payload")
)

// Webhook is a decoded GitHub webhook. Exactly one of PullRequest or Review is set.
type Webhook struct {
	Event       string
	DeliveryID  string
	PullRequest *domain.PullRequestEvent
	Review      *domain.ReviewEvent
}

// DecodeWebhook validates and decodes a GitHub webhook request into a typed event.
// When secret is empty the signature is not checked.
func DecodeWebhook(r *http.Request, secret []byte) (*Webhook, error) {
	eventType := github.WebHookType(r)
	if eventType == "" {
		return nil, ErrMissingEventHeader
	}

	var (
		payload []byte
		err     error
	)
	if len(secret) > 0 {
		payload, err = github.ValidatePayload(r, secret)
	} else {
		payload, err = github.ValidatePayloadFromBody(r.Header.Get("Content-Type"), r.Body, "", nil)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	wh := &Webhook{Event: eventType, DeliveryID: github.DeliveryID(r)}
	switch eventType {
	case EventPullRequest, EventPullRequestReview:
	default:
		return wh, ErrUnsupportedEvent
	}

	event, err := github.ParseWebHook(eventType, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	switch e := event.(type) {
	case *github.PullRequestEvent:
		ev, err := normalizePullRequest(e)
		if err != nil {
			return nil, err
		}
		wh.PullRequest = ev
	case *github.PullRequestReviewEvent:
		ev, err := normalizeReview(e)
		if err != nil {
			return nil, err
		}
		wh.Review = ev
	default:
		return wh, ErrUnsupportedEvent
	}
	return wh, nil
}

// prRepository prefers the head repository, matching how projects are registered,
// and falls back to the event's repository for PRs from deleted forks.
func prRepository(pr *github.PullRequest, repo *github.Repository) string {
	if name := pr.GetHead().GetRepo().GetFullName(); name != "" {
		return name
	}
	return repo.GetFullName()
}

func normalizePullRequest(e *github.PullRequestEvent) (*domain.PullRequestEvent, error) {
	pr := e.GetPullRequest()
	ev := &domain.PullRequestEvent{
		Action:     e.GetAction(),
		Repository: prRepository(pr, e.GetRepo()),
		Number:     pr.GetNumber(),
		Author:     pr.GetUser().GetLogin(),
		BaseBranch: pr.GetBase().GetRef(),
		HeadBranch: pr.GetHead().GetRef(),
	}
	if ev.Action == "" || ev.Repository == "" || ev.Number == 0 || ev.Author == "" {
		return nil, fmt.Errorf("%w: pull_request event is missing required fields", ErrInvalidPayload)
	}
	return ev, nil
}

func normalizeReview(e *github.PullRequestReviewEvent) (*domain.ReviewEvent, error) {
	pr := e.GetPullRequest()
	review := e.GetReview()
	ev := &domain.ReviewEvent{
		Action:      e.GetAction(),
		Repository:  prRepository(pr, e.GetRepo()),
		Number:      pr.GetNumber(),
		Author:      pr.GetUser().GetLogin(),
		BaseBranch:  pr.GetBase().GetRef(),
		HeadBranch:  pr.GetHead().GetRef(),
		ReviewState: review.GetState(),
		Reviewer:    review.GetUser().GetLogin(),
	}
	if ev.Action == "" || ev.Repository == "" || ev.Number == 0 || ev.ReviewState == "" {
		return nil, fmt.Errorf("%w: pull_request_review event is missing required fields", ErrInvalidPayload)
	}
	return ev, nil
}

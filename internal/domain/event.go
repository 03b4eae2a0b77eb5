package domain

import "strings"

// Pull request actions the reactor responds to.
const (
	ActionOpened         = "opened"
	ActionReopened       = "reopened"
	ActionReadyForReview = "ready_for_review"
	ActionSubmitted      = "submitted"
)

// Review states as delivered by GitHub webhooks.
const (
	ReviewApproved         = "approved"
	ReviewChangesRequested = "changes_requested"
	ReviewCommented        = "commented"
)

// PullRequestEvent is the normalized subset of a pull_request webhook.
type PullRequestEvent struct {
	Action     string
	Repository string
	Number     int
	Author     string
	BaseBranch string
	HeadBranch string
}

// ReviewEvent is the normalized subset of a pull_request_review webhook.
type ReviewEvent struct {
	Action      string
	Repository  string
	Number      int
	Author      string
	BaseBranch  string
	HeadBranch  string
	ReviewState string
	Reviewer    string
}

// State returns the review state in lower case.
func (e ReviewEvent) State() string {
	return strings.ToLower(e.ReviewState)
}

// DefaultProtectedBranches are never auto-reviewed or auto-merged.
var DefaultProtectedBranches = []string{"master", "main"}

// IsProtectedBranch reports whether branch is in protected.
func IsProtectedBranch(branch string, protected []string) bool {
	for _, p := range protected {
		if p != "" && p == branch {
			return true
		}
	}
	return false
}

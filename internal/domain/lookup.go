package domain

import "strings"

// The lookups below are linear scans; a registry holds tens of projects.
// Where several entries match, the one with the smallest key wins.

// ProjectByName returns the project stored under name.
func ProjectByName(r *Registry, name string) *Project {
	return r.Projects[name]
}

// ProjectByChannel returns the first project bound to the Slack channel.
func ProjectByChannel(r *Registry, channel string) *Project {
	for _, name := range r.ProjectNames() {
		if p := r.Projects[name]; p.ChatChannel == channel {
			return p
		}
	}
	return nil
}

// ProjectByRepository returns the first project whose repository is repo.
// Projects without a repository never match.
func ProjectByRepository(r *Registry, repo string) *Project {
	if repo == "" {
		return nil
	}
	for _, name := range r.ProjectNames() {
		p := r.Projects[name]
		if p.Repository != "" && strings.EqualFold(p.Repository, repo) {
			return p
		}
	}
	return nil
}

// ProjectByIssueTracker returns the first project linked to the Jira key.
func ProjectByIssueTracker(r *Registry, key string) *Project {
	if key == "" {
		return nil
	}
	for _, name := range r.ProjectNames() {
		if p := r.Projects[name]; p.IssueTrackerProject == key {
			return p
		}
	}
	return nil
}

// ProfileByChatUser returns the profile of a Slack user.
func ProfileByChatUser(r *Registry, id string) *Profile {
	return r.Profiles[id]
}

// ProfileByCodeHostUsername returns the first profile linked to a GitHub username.
func ProfileByCodeHostUsername(r *Registry, username string) *Profile {
	if id, ok := ChatUserByCodeHostUsername(r, username); ok {
		return r.Profiles[id]
	}
	return nil
}

// ChatUserByCodeHostUsername returns the Slack user id linked to a GitHub username.
func ChatUserByCodeHostUsername(r *Registry, username string) (string, bool) {
	for _, id := range r.ProfileIDs() {
		if r.Profiles[id].CodeHostUsername == username {
			return id, true
		}
	}
	return "", false
}

// ParseMention extracts the user id from a Slack mention token.
// Both "<@U123>" and "<@U123|name>" are accepted.
func ParseMention(token string) (string, bool) {
	if !strings.HasPrefix(token, "<@") || !strings.HasSuffix(token, ">") {
		return "", false
	}
	inner := token[2 : len(token)-1]
	id, _, _ := strings.Cut(inner, "|")
	if id == "" || strings.ContainsAny(id, "<>@ ") {
		return "", false
	}
	return id, true
}

// ResolveMention returns the profile referenced by a Slack mention token.
func ResolveMention(r *Registry, token string) *Profile {
	id, ok := ParseMention(token)
	if !ok {
		return nil
	}
	return ProfileByChatUser(r, id)
}

// FormatMention renders a Slack user id as a mention.
func FormatMention(id string) string {
	return "<@" + id + ">"
}

// SplitRepository splits "owner/name" into its parts.
func SplitRepository(repo string) (owner, name string, ok bool) {
	owner, name, found := strings.Cut(repo, "/")
	if !found || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", false
	}
	return owner, name, true
}

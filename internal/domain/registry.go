// Package domain contains the core data structures and domain logic for the application.
package domain

import (
	"slices"
	"sort"
)

// DefaultConfiguredProject is the placeholder written into a fresh registry.
const DefaultConfiguredProject = "ctrl"

// Project binds a Slack channel to an optional GitHub repository and a set of owners.
// The project name is the key in Registry.Projects and is mirrored into Name after loading.
type Project struct {
	Name                string   `yaml:"-" json:"name"`
	ChatChannel         string   `yaml:"slack_channel" json:"chat_channel"`
	Repository          string   `yaml:"github_repo,omitempty" json:"repository,omitempty"`
	Owners              []string `yaml:"project_owners" json:"owners"`
	IssueTrackerProject string   `yaml:"jira_project,omitempty" json:"issue_tracker_project,omitempty"`
}

// HasOwner reports whether username is one of the project owners.
func (p *Project) HasOwner(username string) bool {
	return slices.Contains(p.Owners, username)
}

// Profile links a Slack user to a GitHub username.
type Profile struct {
	CodeHostUsername string `yaml:"github_username" json:"code_host_username"`
}

// Registry is the aggregate root holding every project, profile and global manager.
type Registry struct {
	Projects          map[string]*Project `yaml:"projects" json:"projects"`
	Managers          []string            `yaml:"managers" json:"managers"`
	ConfiguredProject string              `yaml:"configured_project" json:"configured_project"`
	Profiles          map[string]*Profile `yaml:"profiles" json:"profiles"`
}

// NewRegistry returns the registry used on first run.
func NewRegistry() *Registry {
	return &Registry{
		Projects:          make(map[string]*Project),
		Managers:          []string{},
		ConfiguredProject: DefaultConfiguredProject,
		Profiles:          make(map[string]*Profile),
	}
}

// Normalize fills nil collections and copies map keys into Project.Name.
// It is called after decoding so the rest of the code never sees a nil map.
func (r *Registry) Normalize() {
	if r.Projects == nil {
		r.Projects = make(map[string]*Project)
	}
	if r.Profiles == nil {
		r.Profiles = make(map[string]*Profile)
	}
	if r.Managers == nil {
		r.Managers = []string{}
	}
	if r.ConfiguredProject == "" {
		r.ConfiguredProject = DefaultConfiguredProject
	}
	for name, p := range r.Projects {
		if p == nil {
			delete(r.Projects, name)
			continue
		}
		p.Name = name
		if p.Owners == nil {
			p.Owners = []string{}
		}
	}
	for id, p := range r.Profiles {
		if p == nil {
			delete(r.Profiles, id)
		}
	}
}

// Clone returns a deep copy of the registry.
func (r *Registry) Clone() *Registry {
	out := &Registry{
		Projects:          make(map[string]*Project, len(r.Projects)),
		Managers:          slices.Clone(r.Managers),
		ConfiguredProject: r.ConfiguredProject,
		Profiles:          make(map[string]*Profile, len(r.Profiles)),
	}
	if out.Managers == nil {
		out.Managers = []string{}
	}
	for name, p := range r.Projects {
		cp := *p
		cp.Owners = slices.Clone(p.Owners)
		if cp.Owners == nil {
			cp.Owners = []string{}
		}
		out.Projects[name] = &cp
	}
	for id, p := range r.Profiles {
		cp := *p
		out.Profiles[id] = &cp
	}
	return out
}

// ProjectNames returns the project keys in ascending order.
func (r *Registry) ProjectNames() []string {
	names := make([]string, 0, len(r.Projects))
	for name := range r.Projects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ProfileIDs returns the profile keys in ascending order.
func (r *Registry) ProfileIDs() []string {
	ids := make([]string, 0, len(r.Profiles))
	for id := range r.Profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// AddManager appends username to the global managers unless already present.
func (r *Registry) AddManager(username string) bool {
	if slices.Contains(r.Managers, username) {
		return false
	}
	r.Managers = append(r.Managers, username)
	return true
}

// RemoveManager drops username from the global managers.
func (r *Registry) RemoveManager(username string) bool {
	idx := slices.Index(r.Managers, username)
	if idx < 0 {
		return false
	}
	r.Managers = slices.Delete(r.Managers, idx, idx+1)
	return true
}

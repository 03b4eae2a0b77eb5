package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/naka-gawa/ctrl/internal/domain"
)

// Invocation identifies who ran a command and where.
type Invocation struct {
	UserID    string
	ChannelID string
}

// Executor applies parsed commands to the registry.
type Executor struct {
	store  *Store
	logger *zap.Logger
}

// NewExecutor creates a new Executor instance.
func NewExecutor(store *Store, logger *zap.Logger) *Executor {
	return &Executor{store: store, logger: logger}
}

// Execute runs cmd on behalf of inv. Validation failures are returned as
// *domain.CommandError and leave the registry untouched.
func (e *Executor) Execute(ctx context.Context, inv Invocation, cmd domain.Command) (domain.Result, error) {
	e.logger.Debug("Executing command",
		zap.String("verb", string(cmd.Verb)),
		zap.String("user", inv.UserID),
		zap.String("channel", inv.ChannelID))

	switch cmd.Verb {
	case domain.VerbHelp:
		return domain.Result{Kind: domain.ResultHelp, Text: domain.HelpText}, nil
	case domain.VerbList:
		return e.list(ctx)
	case domain.VerbCreate:
		return e.create(ctx, inv, cmd.ProjectName)
	case domain.VerbDelete:
		return e.delete(ctx, cmd.ProjectName)
	case domain.VerbAdd:
		return e.add(ctx, inv, cmd.Mention)
	case domain.VerbRemove:
		return e.remove(ctx, inv, cmd.Mention)
	case domain.VerbGitHub:
		return e.github(ctx, inv, cmd.Repository)
	case domain.VerbMeGitHub:
		return e.meGitHub(ctx, inv, cmd.Username)
	}
	return domain.Result{}, domain.ErrCommandNotFound
}

func (e *Executor) list(ctx context.Context) (domain.Result, error) {
	r, err := e.store.Snapshot(ctx)
	if err != nil {
		return domain.Result{}, err
	}
	summaries := make([]domain.ProjectSummary, 0, len(r.Projects))
	for _, name := range r.ProjectNames() {
		p := r.Projects[name]
		owners := make([]string, 0, len(p.Owners))
		for _, username := range p.Owners {
			if id, ok := domain.ChatUserByCodeHostUsername(r, username); ok {
				owners = append(owners, domain.FormatMention(id))
			} else {
				owners = append(owners, username)
			}
		}
		summaries = append(summaries, domain.ProjectSummary{
			Name:       name,
			Channel:    p.ChatChannel,
			Repository: p.Repository,
			Owners:     owners,
		})
	}
	return domain.Result{Kind: domain.ResultProjectList, Projects: summaries}, nil
}

func (e *Executor) create(ctx context.Context, inv Invocation, name string) (domain.Result, error) {
	err := e.store.Update(ctx, func(r *domain.Registry) error {
		if _, ok := r.Projects[name]; ok {
			return domain.NewCommandError(domain.ErrAlreadyExists, "Project `%s` already exists.", name)
		}
		r.Projects[name] = &domain.Project{
			Name:        name,
			ChatChannel: inv.ChannelID,
			Owners:      []string{},
		}
		return nil
	})
	if err != nil {
		return domain.Result{}, err
	}
	e.logger.Info("Project created", zap.String("project", name), zap.String("channel", inv.ChannelID))
	return domain.TextResult(fmt.Sprintf("Project `%s` created.", name)), nil
}

func (e *Executor) delete(ctx context.Context, name string) (domain.Result, error) {
	err := e.store.Update(ctx, func(r *domain.Registry) error {
		if _, ok := r.Projects[name]; !ok {
			return domain.NewCommandError(domain.ErrProjectNotFound, "Project `%s` does not exist.", name)
		}
		delete(r.Projects, name)
		return nil
	})
	if err != nil {
		return domain.Result{}, err
	}
	e.logger.Info("Project deleted", zap.String("project", name))
	return domain.TextResult(fmt.Sprintf("Project `%s` deleted.", name)), nil
}

// resolveOwnerChange finds the channel's project and the GitHub username behind mention.
func resolveOwnerChange(r *domain.Registry, channel, mention string) (*domain.Project, string, error) {
	project := domain.ProjectByChannel(r, channel)
	if project == nil {
		return nil, "", domain.NewCommandError(domain.ErrProjectNotFound, "This channel has no project. Use `/ctrl create <project_name>` first.")
	}
	if _, ok := domain.ParseMention(mention); !ok {
		return nil, "", domain.NewCommandError(domain.ErrInvalidMention, "`%s` is not a user mention. Mention the user with `@`.", mention)
	}
	profile := domain.ResolveMention(r, mention)
	if profile == nil {
		return nil, "", domain.ErrUserNotLinked
	}
	return project, profile.CodeHostUsername, nil
}

func (e *Executor) add(ctx context.Context, inv Invocation, mention string) (domain.Result, error) {
	var projectName string
	err := e.store.Update(ctx, func(r *domain.Registry) error {
		project, username, err := resolveOwnerChange(r, inv.ChannelID, mention)
		if err != nil {
			return err
		}
		if project.HasOwner(username) {
			return domain.NewCommandError(domain.ErrAlreadyOwner, "User %s is already an owner of `%s`.", mention, project.Name)
		}
		project.Owners = append(project.Owners, username)
		projectName = project.Name
		return nil
	})
	if err != nil {
		return domain.Result{}, err
	}
	e.logger.Info("Owner added", zap.String("project", projectName), zap.String("mention", mention))
	return domain.TextResult(fmt.Sprintf("User %s added as an owner of `%s`.", mention, projectName)), nil
}

func (e *Executor) remove(ctx context.Context, inv Invocation, mention string) (domain.Result, error) {
	var projectName string
	err := e.store.Update(ctx, func(r *domain.Registry) error {
		project, username, err := resolveOwnerChange(r, inv.ChannelID, mention)
		if err != nil {
			return err
		}
		if !project.HasOwner(username) {
			return domain.NewCommandError(domain.ErrNotOwner, "User %s is not an owner of `%s`.", mention, project.Name)
		}
		project.Owners = slices.DeleteFunc(project.Owners, func(o string) bool { return o == username })
		projectName = project.Name
		return nil
	})
	if err != nil {
		return domain.Result{}, err
	}
	e.logger.Info("Owner removed", zap.String("project", projectName), zap.String("mention", mention))
	return domain.TextResult(fmt.Sprintf("User %s removed as an owner of `%s`.", mention, projectName)), nil
}

func (e *Executor) github(ctx context.Context, inv Invocation, repo string) (domain.Result, error) {
	var projectName string
	err := e.store.Update(ctx, func(r *domain.Registry) error {
		project := domain.ProjectByChannel(r, inv.ChannelID)
		if project == nil {
			return domain.NewCommandError(domain.ErrProjectNotFound, "This channel has no project. Use `/ctrl create <project_name>` first.")
		}
		if _, _, ok := domain.SplitRepository(repo); !ok {
			return domain.NewCommandError(domain.ErrInvalidRepository, "`%s` is not a repository. Use `owner/name`.", repo)
		}
		project.Repository = repo
		projectName = project.Name
		return nil
	})
	if err != nil {
		return domain.Result{}, err
	}
	e.logger.Info("Repository set", zap.String("project", projectName), zap.String("repo", repo))
	return domain.TextResult(fmt.Sprintf("GitHub repository `%s` set for `%s`.", repo, projectName)), nil
}

func (e *Executor) meGitHub(ctx context.Context, inv Invocation, username string) (domain.Result, error) {
	if inv.UserID == "" {
		return domain.Result{}, errors.New("invocation has no user id")
	}
	err := e.store.Update(ctx, func(r *domain.Registry) error {
		r.Profiles[inv.UserID] = &domain.Profile{CodeHostUsername: username}
		return nil
	})
	if err != nil {
		return domain.Result{}, err
	}
	e.logger.Info("GitHub username linked", zap.String("user", inv.UserID), zap.String("github", username))
	return domain.TextResult(fmt.Sprintf("GitHub username set to `%s`.", username)), nil
}

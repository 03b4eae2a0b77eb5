package domain

import "strings"

// Verb identifies a slash command operation.
type Verb string

const (
	VerbHelp     Verb = "help"
	VerbList     Verb = "list"
	VerbCreate   Verb = "create"
	VerbDelete   Verb = "delete"
	VerbAdd      Verb = "add"
	VerbRemove   Verb = "remove"
	VerbGitHub   Verb = "github"
	VerbMeGitHub Verb = "me github"
)

// Mutating reports whether the verb writes the registry.
func (v Verb) Mutating() bool {
	switch v {
	case VerbHelp, VerbList:
		return false
	}
	return true
}

// Command is a parsed slash command. Only the fields relevant to Verb are set.
type Command struct {
	Verb        Verb
	ProjectName string
	Mention     string
	Repository  string
	Username    string
}

// ParseCommand turns the text following "/ctrl" into a Command.
// Tokens are separated by whitespace and there is no quoting; extra tokens are ignored.
func ParseCommand(text string) (Command, error) {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return Command{}, ErrCommandNotFound
	}
	verb, args := tokens[0], tokens[1:]

	need := func(n int) error {
		if len(args) < n {
			return ErrNotEnoughArguments
		}
		return nil
	}

	switch Verb(verb) {
	case VerbHelp, VerbList:
		return Command{Verb: Verb(verb)}, nil
	case VerbCreate, VerbDelete:
		if err := need(1); err != nil {
			return Command{}, err
		}
		return Command{Verb: Verb(verb), ProjectName: args[0]}, nil
	case VerbAdd, VerbRemove:
		if err := need(1); err != nil {
			return Command{}, err
		}
		return Command{Verb: Verb(verb), Mention: args[0]}, nil
	case VerbGitHub:
		if err := need(1); err != nil {
			return Command{}, err
		}
		return Command{Verb: VerbGitHub, Repository: args[0]}, nil
	case "me":
		if err := need(1); err != nil {
			return Command{}, err
		}
		if args[0] != "github" {
			return Command{}, ErrCommandNotFound
		}
		if err := need(2); err != nil {
			return Command{}, err
		}
		return Command{Verb: VerbMeGitHub, Username: args[1]}, nil
	}
	return Command{}, ErrCommandNotFound
}

// HelpText is the usage document returned by the help command.
const HelpText = "⛑️ Here's a simple help guide for all the commands available.\n\n" +
	"- /ctrl help: Show this help guide.\n" +
	"- /ctrl list: List all projects.\n" +
	"- /ctrl create <project_name>: Create a new project assigned to this channel.\n" +
	"- /ctrl delete <project_name>: Delete a project.\n" +
	"- /ctrl add <@user>: Add a user as an owner of this channel's project.\n" +
	"- /ctrl remove <@user>: Remove a user as an owner of this channel's project.\n" +
	"- /ctrl github <owner/repo>: Set the GitHub repository for this channel's project (PRs will be automatically assigned, reviewed and merged).\n" +
	"- /ctrl me github <github_username>: Set your GitHub username.\n"

package domain

import (
	"errors"
	"fmt"
)

// ErrorCategory groups errors by how they are reported.
type ErrorCategory int

const (
	CategoryInternal ErrorCategory = iota
	CategoryUserInput
	CategoryNotFound
	CategoryStateConflict
	CategoryRemoteAction
	CategoryPersistence
)

func (c ErrorCategory) String() string {
	switch c {
	case CategoryUserInput:
		return "user_input"
	case CategoryNotFound:
		return "not_found"
	case CategoryStateConflict:
		return "state_conflict"
	case CategoryRemoteAction:
		return "remote_action"
	case CategoryPersistence:
		return "persistence"
	default:
		return "internal"
	}
}

var (
	ErrCommandNotFound    = errors.New("command not found")
	ErrNotEnoughArguments = errors.New("not enough arguments")
	ErrInvalidMention     = errors.New("invalid user mention")
	ErrInvalidRepository  = errors.New("invalid repository name")

	ErrProjectNotFound = errors.New("project not found")
	ErrUserNotLinked   = errors.New("user has not linked a GitHub account")

	ErrAlreadyExists = errors.New("project already exists")
	ErrAlreadyOwner  = errors.New("user is already a project owner")
	ErrNotOwner      = errors.New("user is not a project owner")

	ErrRemoteAction = errors.New("remote action failed")
	ErrPersistence  = errors.New("registry persistence failed")
)

var categories = map[error]ErrorCategory{
	ErrCommandNotFound:    CategoryUserInput,
	ErrNotEnoughArguments: CategoryUserInput,
	ErrInvalidMention:     CategoryUserInput,
	ErrInvalidRepository:  CategoryUserInput,
	ErrProjectNotFound:    CategoryNotFound,
	ErrUserNotLinked:      CategoryNotFound,
	ErrAlreadyExists:      CategoryStateConflict,
	ErrAlreadyOwner:       CategoryStateConflict,
	ErrNotOwner:           CategoryStateConflict,
	ErrRemoteAction:       CategoryRemoteAction,
	ErrPersistence:        CategoryPersistence,
}

// CommandError carries a validation failure together with the text shown to the user.
type CommandError struct {
	Err     error
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Message)
}

func (e *CommandError) Unwrap() error { return e.Err }

// NewCommandError wraps a sentinel with a user-facing message.
func NewCommandError(err error, format string, args ...any) *CommandError {
	return &CommandError{Err: err, Message: fmt.Sprintf(format, args...)}
}

// Category classifies err by the first known sentinel it wraps.
func Category(err error) ErrorCategory {
	if err == nil {
		return CategoryInternal
	}
	for sentinel, c := range categories {
		if errors.Is(err, sentinel) {
			return c
		}
	}
	return CategoryInternal
}

// IsUserFacing reports whether err should be shown verbatim to the user.
func IsUserFacing(err error) bool {
	switch Category(err) {
	case CategoryUserInput, CategoryNotFound, CategoryStateConflict:
		return true
	}
	return false
}

// UserMessage returns the corrective text for err.
func UserMessage(err error) string {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) && cmdErr.Message != "" {
		return cmdErr.Message
	}
	switch {
	case errors.Is(err, ErrCommandNotFound):
		return "Invalid command. Use `/ctrl help` for a list of commands."
	case errors.Is(err, ErrNotEnoughArguments):
		return "Not enough arguments. Use `/ctrl help` for a list of commands."
	case errors.Is(err, ErrInvalidMention):
		return "Please mention a user, e.g. `@someone`."
	case errors.Is(err, ErrInvalidRepository):
		return "Repository must look like `owner/name`."
	case errors.Is(err, ErrProjectNotFound):
		return "Project not found. Use `/ctrl list` for a list of projects."
	case errors.Is(err, ErrUserNotLinked):
		return "This user must link their GitHub account first. Use `/ctrl me github <github_username>`."
	case errors.Is(err, ErrAlreadyExists):
		return "Project already exists."
	case errors.Is(err, ErrAlreadyOwner):
		return "User is already a project owner."
	case errors.Is(err, ErrNotOwner):
		return "User is not a project owner."
	}
	return "Something went wrong while handling that command. Please try again later."
}

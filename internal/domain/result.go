package domain

// ResultKind selects how a Result is presented.
type ResultKind int

const (
	// ResultText is a single line of plain text.
	ResultText ResultKind = iota
	// ResultHelp is the multi-line usage document.
	ResultHelp
	// ResultProjectList is rendered as one block per project.
	ResultProjectList
	// ResultError is a user-facing validation failure.
	ResultError
)

// Result is the outcome of a command, independent of chat formatting.
type Result struct {
	Kind     ResultKind       `json:"kind"`
	Text     string           `json:"text"`
	Projects []ProjectSummary `json:"projects,omitempty"`
}

// ProjectSummary is one row of the list command.
type ProjectSummary struct {
	Name       string   `json:"name"`
	Channel    string   `json:"channel"`
	Repository string   `json:"repository,omitempty"`
	Owners     []string `json:"owners"`
}

// TextResult builds a plain text result.
func TextResult(text string) Result {
	return Result{Kind: ResultText, Text: text}
}

// ErrorResult builds the result shown for a failed command.
func ErrorResult(err error) Result {
	return Result{Kind: ResultError, Text: UserMessage(err)}
}

package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-github/v62/github"
	"github.com/shurcooL/githubv4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/naka-gawa/ctrl/internal/domain"
)

// setupTestGateway creates a GitHubGateway that communicates with a mock HTTP server.
func setupTestGateway(t *testing.T, handler http.Handler) *GitHubGateway {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	// Setup REST client to point to the mock server.
	restClient := github.NewClient(server.Client())
	baseURL, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	restClient.BaseURL = baseURL

	// Use NewEnterpriseClient to point the GraphQL client to our mock server's URL.
	graphqlClient := githubv4.NewEnterpriseClient(server.URL, server.Client())

	return &GitHubGateway{
		restClient:    restClient,
		graphqlClient: graphqlClient,
		logger:        zap.NewNop(),
	}
}

func TestGitHubGateway_Actions(t *testing.T) {
	testCases := []struct {
		name           string
		call           func(g *GitHubGateway) error
		expectedMethod string
		expectedPath   string
		bodyContains   string
		status         int
		response       string
		expectedErrMsg string
	}{
		{
			name: "AddAssignees - happy path",
			call: func(g *GitHubGateway) error {
				return g.AddAssignees(context.Background(), "repo-org/repo-name", 7, []string{"alice"})
			},
			expectedMethod: http.MethodPost,
			expectedPath:   "/repos/repo-org/repo-name/issues/7/assignees",
			bodyContains:   `"assignees":["alice"]`,
			status:         http.StatusCreated,
			response:       `{"number":7}`,
		},
		{
			name: "RequestReviewers - happy path",
			call: func(g *GitHubGateway) error {
				return g.RequestReviewers(context.Background(), "repo-org/repo-name", 7, []string{"bob", "carol"})
			},
			expectedMethod: http.MethodPost,
			expectedPath:   "/repos/repo-org/repo-name/pulls/7/requested_reviewers",
			bodyContains:   `"reviewers":["bob","carol"]`,
			status:         http.StatusCreated,
			response:       `{"number":7}`,
		},
		{
			name: "RequestReviewers - API rejects",
			call: func(g *GitHubGateway) error {
				return g.RequestReviewers(context.Background(), "repo-org/repo-name", 7, []string{"bob"})
			},
			expectedMethod: http.MethodPost,
			expectedPath:   "/repos/repo-org/repo-name/pulls/7/requested_reviewers",
			status:         http.StatusUnprocessableEntity,
			response:       `{"message":"Reviews may only be requested from collaborators."}`,
			expectedErrMsg: "failed to request reviewers",
		},
		{
			name: "CreateComment - happy path",
			call: func(g *GitHubGateway) error {
				return g.CreateComment(context.Background(), "repo-org/repo-name", 7, "hello")
			},
			expectedMethod: http.MethodPost,
			expectedPath:   "/repos/repo-org/repo-name/issues/7/comments",
			bodyContains:   `"body":"hello"`,
			status:         http.StatusCreated,
			response:       `{"id":1}`,
		},
		{
			name: "Merge - happy path",
			call: func(g *GitHubGateway) error {
				return g.Merge(context.Background(), "repo-org/repo-name", 7, "merged by bot")
			},
			expectedMethod: http.MethodPut,
			expectedPath:   "/repos/repo-org/repo-name/pulls/7/merge",
			bodyContains:   `"commit_message":"merged by bot"`,
			status:         http.StatusOK,
			response:       `{"merged":true,"message":"Pull Request successfully merged"}`,
		},
		{
			name: "Merge - not mergeable",
			call: func(g *GitHubGateway) error {
				return g.Merge(context.Background(), "repo-org/repo-name", 7, "merged by bot")
			},
			expectedMethod: http.MethodPut,
			expectedPath:   "/repos/repo-org/repo-name/pulls/7/merge",
			status:         http.StatusMethodNotAllowed,
			response:       `{"message":"Pull Request is not mergeable"}`,
			expectedErrMsg: "failed to merge pull request",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			handler := func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tc.expectedMethod, r.Method)
				assert.Equal(t, tc.expectedPath, r.URL.Path)
				body, err := io.ReadAll(r.Body)
				require.NoError(t, err)
				if tc.bodyContains != "" {
					assert.Contains(t, string(body), tc.bodyContains)
				}
				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.response)
			}
			gateway := setupTestGateway(t, http.HandlerFunc(handler))

			err := tc.call(gateway)

			if tc.expectedErrMsg != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tc.expectedErrMsg)
				assert.ErrorIs(t, err, domain.ErrRemoteAction)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGitHubGateway_InvalidRepository(t *testing.T) {
	gateway := setupTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request to %s", r.URL.Path)
	}))

	err := gateway.AddAssignees(context.Background(), "not-a-repo", 1, []string{"alice"})
	assert.ErrorIs(t, err, domain.ErrInvalidRepository)
}

func TestGitHubGateway_ListContributors(t *testing.T) {
	var serverURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/repo-org/repo-name/contributors", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `[{"login":"carol"}]`)
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s/repos/repo-org/repo-name/contributors?page=2>; rel="next"`, serverURL))
		fmt.Fprint(w, `[{"login":"alice"},{"login":"bob"}]`)
	})
	gateway := setupTestGateway(t, mux)
	serverURL = gateway.restClient.BaseURL.String()
	serverURL = serverURL[:len(serverURL)-1]

	logins, err := gateway.ListContributors(context.Background(), "repo-org/repo-name")

	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob", "carol"}, logins)
}

func TestGitHubGateway_DefaultBranch(t *testing.T) {
	testCases := []struct {
		name           string
		responseBody   string
		expected       string
		expectedErrMsg string
	}{
		{
			name:         "happy path",
			responseBody: `{"data":{"repository":{"defaultBranchRef":{"name":"trunk"}}}}`,
			expected:     "trunk",
		},
		{
			name:           "error case",
			responseBody:   `{"errors":[{"message":"Could not resolve to a Repository"}]}`,
			expectedErrMsg: "failed to query default branch",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			handler := func(w http.ResponseWriter, r *http.Request) {
				var payload struct {
					Variables map[string]string `json:"variables"`
				}
				require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
				assert.Equal(t, "repo-org", payload.Variables["owner"])
				assert.Equal(t, "repo-name", payload.Variables["name"])
				w.WriteHeader(http.StatusOK)
				fmt.Fprint(w, tc.responseBody)
			}
			gateway := setupTestGateway(t, http.HandlerFunc(handler))

			branch, err := gateway.DefaultBranch(context.Background(), "repo-org/repo-name")

			if tc.expectedErrMsg != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tc.expectedErrMsg)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tc.expected, branch)
			}
		})
	}
}

package bitbucket

import (
	"context"
	"encoding/json"
	"net/url"
	"time"
)

// BackoffCap bounds every computed retry delay.
const BackoffCap = 30 * time.Second

// Default retry tuning.
const (
	DefaultRetryMax  = 3
	DefaultBaseDelay = 1 * time.Second
)

// RetryPolicy controls how the client retries transient failures. Set once at
// construction, read-only afterwards.
type RetryPolicy struct {
	// MaxRetries bounds attempts: a call makes at most MaxRetries+1 of them.
	MaxRetries int

	// BaseDelay seeds the exponential backoff.
	BaseDelay time.Duration

	// Statuses lists the HTTP statuses worth retrying.
	Statuses []int
}

// DefaultRetryPolicy returns the standard policy: 429 and the usual 5xx
// statuses, three retries, one-second base delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: DefaultRetryMax,
		BaseDelay:  DefaultBaseDelay,
		Statuses:   []int{429, 500, 502, 503, 504},
	}
}

// Retryable reports whether the status is in the policy's retry set.
func (p RetryPolicy) Retryable(status int) bool {
	for _, s := range p.Statuses {
		if s == status {
			return true
		}
	}

	return false
}

// ListOptions are the pagination and filtering knobs shared by list
// operations.
type ListOptions struct {
	// Filter is a substring match, translated to the dialect's own query key.
	Filter string

	PageSize int
	Page     int
	All      bool
}

// PullRequestCreate is the input for creating a pull request.
type PullRequestCreate struct {
	Title        string
	Description  string
	SourceBranch string
	TargetBranch string
}

// PullRequestUpdate is the input for updating a pull request. Empty fields
// are left unchanged.
type PullRequestUpdate struct {
	Title       string
	Description string
}

// CommentCreate is the input for adding a comment. FilePath and Line make it
// an inline comment; leaving them zero makes a top-level one.
type CommentCreate struct {
	Text     string
	FilePath string
	Line     int
}

// Client is the platform-abstracted Bitbucket client. The raw methods
// (Get/GetText/Post/Put/Delete/GetPaginated) take paths already produced by
// the resolver; the resource clients are convenience surfaces built entirely
// on top of them.
type Client interface {
	Variant() Variant
	Paths() PathResolver

	Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error)
	GetText(ctx context.Context, path string, query url.Values) (string, error)
	Post(ctx context.Context, path string, body interface{}) (json.RawMessage, error)
	Put(ctx context.Context, path string, body interface{}) (json.RawMessage, error)
	Delete(ctx context.Context, path string, body interface{}) error
	GetPaginated(ctx context.Context, path string, req PageRequest) (*Page, error)

	Repositories() RepositoriesClient
	PullRequests() PullRequestsClient
	Comments() CommentsClient
	Tasks() TasksClient
}

// RepositoriesClient operates on repositories.
type RepositoriesClient interface {
	List(ctx context.Context, workspace string, opts *ListOptions) ([]Repository, error)
	Get(ctx context.Context, workspace, repo string) (*Repository, error)
}

// PullRequestsClient operates on pull requests.
type PullRequestsClient interface {
	List(ctx context.Context, workspace, repo string, state string, opts *ListOptions) ([]PullRequest, error)
	Get(ctx context.Context, workspace, repo string, id int) (*PullRequest, error)
	Create(ctx context.Context, workspace, repo string, req *PullRequestCreate) (*PullRequest, error)
	Update(ctx context.Context, workspace, repo string, id int, req *PullRequestUpdate) (*PullRequest, error)
	Approve(ctx context.Context, workspace, repo string, id int) error
	Unapprove(ctx context.Context, workspace, repo string, id int) error
	Decline(ctx context.Context, workspace, repo string, id int) (*PullRequest, error)
	Merge(ctx context.Context, workspace, repo string, id int, message string) (*PullRequest, error)
	Diff(ctx context.Context, workspace, repo string, id int) (string, error)
	Patch(ctx context.Context, workspace, repo string, id int) (string, error)
}

// CommentsClient operates on pull request comments.
type CommentsClient interface {
	List(ctx context.Context, workspace, repo string, pr int, opts *ListOptions) ([]Comment, error)
	Get(ctx context.Context, workspace, repo string, pr, id int) (*Comment, error)
	Add(ctx context.Context, workspace, repo string, pr int, req *CommentCreate) (*Comment, error)
	Update(ctx context.Context, workspace, repo string, pr, id int, text string) (*Comment, error)
	Delete(ctx context.Context, workspace, repo string, pr, id int) error
	Resolve(ctx context.Context, workspace, repo string, pr, id int) error
	Reopen(ctx context.Context, workspace, repo string, pr, id int) error
}

// TasksClient operates on pull request tasks. On Data Center the same
// logical operations address blocker comments.
type TasksClient interface {
	List(ctx context.Context, workspace, repo string, pr int, opts *ListOptions) ([]Task, error)
	Create(ctx context.Context, workspace, repo string, pr int, text string) (*Task, error)
	UpdateState(ctx context.Context, workspace, repo string, pr, id int, state string) (*Task, error)
	Delete(ctx context.Context, workspace, repo string, pr, id int) error
}

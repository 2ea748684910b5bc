package bitbucket

import (
	"fmt"
)

// Operation names a logical client operation independent of platform dialect.
type Operation string

const (
	OpListRepositories Operation = "repository-list"
	OpGetRepository    Operation = "repository-get"

	OpListPullRequests   Operation = "pull-request-list"
	OpGetPullRequest     Operation = "pull-request-get"
	OpCreatePullRequest  Operation = "pull-request-create"
	OpUpdatePullRequest  Operation = "pull-request-update"
	OpApprovePullRequest Operation = "pull-request-approve"
	OpDeclinePullRequest Operation = "pull-request-decline"
	OpMergePullRequest   Operation = "pull-request-merge"
	OpPullRequestDiff    Operation = "pull-request-diff"
	OpPullRequestPatch   Operation = "pull-request-patch"

	OpListComments   Operation = "comment-list"
	OpGetComment     Operation = "comment-get"
	OpCreateComment  Operation = "comment-create"
	OpUpdateComment  Operation = "comment-update"
	OpDeleteComment  Operation = "comment-delete"
	OpResolveComment Operation = "comment-resolve"

	OpListTasks  Operation = "task-list"
	OpGetTask    Operation = "task-get"
	OpCreateTask Operation = "task-create"
	OpUpdateTask Operation = "task-update"
	OpDeleteTask Operation = "task-delete"
)

// Ref carries the identifiers an operation's path is built from. Workspace
// doubles as the project key on Data Center. Unused fields are ignored.
type Ref struct {
	Workspace   string
	Repo        string
	PullRequest int
	Comment     int
	Task        int
}

// PathResolver maps a logical operation onto the active dialect's wire path.
// Resolution is pure: no I/O, no state. Operations with no equivalent on the
// active variant resolve to an unsupported-operation error rather than a
// guessed path.
type PathResolver interface {
	// Resolve returns the relative path (without the API prefix) for op.
	Resolve(op Operation, ref Ref) (string, error)

	// FilterParam returns the dialect's query key for substring filtering of
	// list endpoints ("q" on Cloud, "filterText" on Data Center).
	FilterParam() string

	// Variant reports which dialect this resolver targets.
	Variant() Variant
}

// NewPathResolver returns the resolver for the given variant.
func NewPathResolver(variant Variant) PathResolver {
	if variant == VariantCloud {
		return cloudResolver{}
	}

	return dcResolver{}
}

func unsupported(op Operation, variant Variant) error {
	return &Error{
		Kind:     ErrorKindUnsupported,
		Resource: string(op),
		Message:  fmt.Sprintf("operation %q is not available on %s", op, variant),
	}
}

type cloudResolver struct{}

func (cloudResolver) Variant() Variant    { return VariantCloud }
func (cloudResolver) FilterParam() string { return "q" }

func (r cloudResolver) Resolve(op Operation, ref Ref) (string, error) {
	repo := fmt.Sprintf("/repositories/%s/%s", ref.Workspace, ref.Repo)
	pr := fmt.Sprintf("%s/pullrequests/%d", repo, ref.PullRequest)

	switch op {
	case OpListRepositories:
		return "/repositories/" + ref.Workspace, nil
	case OpGetRepository:
		return repo, nil
	case OpListPullRequests, OpCreatePullRequest:
		return repo + "/pullrequests", nil
	case OpGetPullRequest, OpUpdatePullRequest:
		return pr, nil
	case OpApprovePullRequest:
		return pr + "/approve", nil
	case OpDeclinePullRequest:
		return pr + "/decline", nil
	case OpMergePullRequest:
		return pr + "/merge", nil
	case OpPullRequestDiff:
		return pr + "/diff", nil
	case OpPullRequestPatch:
		return pr + "/patch", nil
	case OpListComments, OpCreateComment:
		return pr + "/comments", nil
	case OpGetComment, OpUpdateComment, OpDeleteComment:
		return fmt.Sprintf("%s/comments/%d", pr, ref.Comment), nil
	case OpResolveComment:
		return fmt.Sprintf("%s/comments/%d/resolve", pr, ref.Comment), nil
	case OpListTasks, OpCreateTask:
		return pr + "/tasks", nil
	case OpGetTask, OpUpdateTask, OpDeleteTask:
		return fmt.Sprintf("%s/tasks/%d", pr, ref.Task), nil
	default:
		return "", unsupported(op, VariantCloud)
	}
}

type dcResolver struct{}

func (dcResolver) Variant() Variant    { return VariantDataCenter }
func (dcResolver) FilterParam() string { return "filterText" }

func (r dcResolver) Resolve(op Operation, ref Ref) (string, error) {
	repo := fmt.Sprintf("/projects/%s/repos/%s", ref.Workspace, ref.Repo)
	pr := fmt.Sprintf("%s/pull-requests/%d", repo, ref.PullRequest)

	switch op {
	case OpListRepositories:
		return fmt.Sprintf("/projects/%s/repos", ref.Workspace), nil
	case OpGetRepository:
		return repo, nil
	case OpListPullRequests, OpCreatePullRequest:
		return repo + "/pull-requests", nil
	case OpGetPullRequest, OpUpdatePullRequest:
		return pr, nil
	case OpApprovePullRequest:
		return pr + "/approve", nil
	case OpDeclinePullRequest:
		return pr + "/decline", nil
	case OpMergePullRequest:
		return pr + "/merge", nil
	case OpPullRequestDiff:
		return pr + "/diff", nil
	case OpPullRequestPatch:
		// Data Center has no patch endpoint; only Cloud serves one.
		return "", unsupported(op, VariantDataCenter)
	case OpListComments, OpCreateComment:
		return pr + "/comments", nil
	case OpGetComment, OpUpdateComment, OpDeleteComment, OpResolveComment:
		// Resolution is a versioned update of the comment itself, not a
		// dedicated sub-resource like on Cloud.
		return fmt.Sprintf("%s/comments/%d", pr, ref.Comment), nil
	case OpListTasks, OpCreateTask:
		// "Tasks" are a different resource family here: blocker comments.
		return pr + "/blocker-comments", nil
	case OpGetTask, OpUpdateTask, OpDeleteTask:
		return fmt.Sprintf("%s/blocker-comments/%d", pr, ref.Task), nil
	default:
		return "", unsupported(op, VariantDataCenter)
	}
}

// Supports reports whether the operation resolves on the given variant.
func Supports(variant Variant, op Operation) bool {
	_, err := NewPathResolver(variant).Resolve(op, Ref{})
	return err == nil
}

// Operations lists every logical operation, in a stable order.
func Operations() []Operation {
	return []Operation{
		OpListRepositories, OpGetRepository,
		OpListPullRequests, OpGetPullRequest, OpCreatePullRequest,
		OpUpdatePullRequest, OpApprovePullRequest, OpDeclinePullRequest,
		OpMergePullRequest, OpPullRequestDiff, OpPullRequestPatch,
		OpListComments, OpGetComment, OpCreateComment, OpUpdateComment,
		OpDeleteComment, OpResolveComment,
		OpListTasks, OpGetTask, OpCreateTask, OpUpdateTask, OpDeleteTask,
	}
}

package bitbucket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathResolver_TaskListDivergesByVariant(t *testing.T) {
	ref := Ref{Workspace: "WORK", Repo: "repo", PullRequest: 1}

	cloudPath, err := NewPathResolver(VariantCloud).Resolve(OpListTasks, ref)
	require.NoError(t, err)
	assert.Equal(t, "/repositories/WORK/repo/pullrequests/1/tasks", cloudPath)

	dcPath, err := NewPathResolver(VariantDataCenter).Resolve(OpListTasks, ref)
	require.NoError(t, err)
	assert.Equal(t, "/projects/WORK/repos/repo/pull-requests/1/blocker-comments", dcPath)
}

func TestPathResolver_CloudPaths(t *testing.T) {
	resolver := NewPathResolver(VariantCloud)
	ref := Ref{Workspace: "acme", Repo: "widgets", PullRequest: 42, Comment: 7, Task: 9}

	tests := []struct {
		op   Operation
		want string
	}{
		{OpListRepositories, "/repositories/acme"},
		{OpGetRepository, "/repositories/acme/widgets"},
		{OpListPullRequests, "/repositories/acme/widgets/pullrequests"},
		{OpGetPullRequest, "/repositories/acme/widgets/pullrequests/42"},
		{OpApprovePullRequest, "/repositories/acme/widgets/pullrequests/42/approve"},
		{OpDeclinePullRequest, "/repositories/acme/widgets/pullrequests/42/decline"},
		{OpMergePullRequest, "/repositories/acme/widgets/pullrequests/42/merge"},
		{OpPullRequestDiff, "/repositories/acme/widgets/pullrequests/42/diff"},
		{OpPullRequestPatch, "/repositories/acme/widgets/pullrequests/42/patch"},
		{OpListComments, "/repositories/acme/widgets/pullrequests/42/comments"},
		{OpGetComment, "/repositories/acme/widgets/pullrequests/42/comments/7"},
		{OpResolveComment, "/repositories/acme/widgets/pullrequests/42/comments/7/resolve"},
		{OpGetTask, "/repositories/acme/widgets/pullrequests/42/tasks/9"},
	}

	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			path, err := resolver.Resolve(tt.op, ref)
			require.NoError(t, err)
			assert.Equal(t, tt.want, path)
		})
	}
}

func TestPathResolver_DataCenterPaths(t *testing.T) {
	resolver := NewPathResolver(VariantDataCenter)
	ref := Ref{Workspace: "ACME", Repo: "widgets", PullRequest: 42, Comment: 7, Task: 9}

	tests := []struct {
		op   Operation
		want string
	}{
		{OpListRepositories, "/projects/ACME/repos"},
		{OpGetRepository, "/projects/ACME/repos/widgets"},
		{OpListPullRequests, "/projects/ACME/repos/widgets/pull-requests"},
		{OpGetPullRequest, "/projects/ACME/repos/widgets/pull-requests/42"},
		{OpMergePullRequest, "/projects/ACME/repos/widgets/pull-requests/42/merge"},
		{OpListComments, "/projects/ACME/repos/widgets/pull-requests/42/comments"},
		{OpGetComment, "/projects/ACME/repos/widgets/pull-requests/42/comments/7"},
		{OpResolveComment, "/projects/ACME/repos/widgets/pull-requests/42/comments/7"},
		{OpGetTask, "/projects/ACME/repos/widgets/pull-requests/42/blocker-comments/9"},
	}

	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			path, err := resolver.Resolve(tt.op, ref)
			require.NoError(t, err)
			assert.Equal(t, tt.want, path)
		})
	}
}

func TestPathResolver_UnsupportedOperation(t *testing.T) {
	_, err := NewPathResolver(VariantDataCenter).Resolve(OpPullRequestPatch, Ref{
		Workspace: "ACME", Repo: "widgets", PullRequest: 1,
	})
	require.Error(t, err)
	assert.True(t, IsUnsupported(err))

	// The same operation resolves fine on Cloud.
	path, err := NewPathResolver(VariantCloud).Resolve(OpPullRequestPatch, Ref{
		Workspace: "acme", Repo: "widgets", PullRequest: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "/repositories/acme/widgets/pullrequests/1/patch", path)
}

func TestPathResolver_FilterParam(t *testing.T) {
	assert.Equal(t, "q", NewPathResolver(VariantCloud).FilterParam())
	assert.Equal(t, "filterText", NewPathResolver(VariantDataCenter).FilterParam())
}

func TestPathResolver_ResolutionIsPure(t *testing.T) {
	resolver := NewPathResolver(VariantCloud)
	ref := Ref{Workspace: "acme", Repo: "widgets", PullRequest: 3}

	first, err := resolver.Resolve(OpGetPullRequest, ref)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := resolver.Resolve(OpGetPullRequest, ref)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestSupports(t *testing.T) {
	assert.True(t, Supports(VariantCloud, OpPullRequestPatch))
	assert.False(t, Supports(VariantDataCenter, OpPullRequestPatch))
	assert.True(t, Supports(VariantDataCenter, OpMergePullRequest))
}

func TestOperations_CoversEveryOperation(t *testing.T) {
	ops := Operations()
	assert.Len(t, ops, 22)

	seen := map[Operation]bool{}
	for _, op := range ops {
		assert.False(t, seen[op], "duplicate operation %q", op)
		seen[op] = true
	}
}

package mcptools

import (
	"context"
	"encoding/json"
	"fmt"

	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/forgebridge/bitbucket-mcp/pkg/bitbucket"
)

// toolError renders a classified client error as a tool-facing result. The
// error kinds carry enough structure that no message parsing is needed.
func toolError(err error) *mcpgo.CallToolResult {
	switch bitbucket.KindOf(err) {
	case bitbucket.ErrorKindAuthentication:
		return mcpgo.NewToolResultError("Authentication failed: check that the configured token is valid and has the required scopes. " + err.Error())
	case bitbucket.ErrorKindNotFound:
		return mcpgo.NewToolResultError("Resource not found: " + err.Error())
	case bitbucket.ErrorKindConflict:
		return mcpgo.NewToolResultError("The resource was modified concurrently; re-read it and retry the operation. " + err.Error())
	case bitbucket.ErrorKindUnsupported:
		return mcpgo.NewToolResultError("Not available on this Bitbucket platform: " + err.Error())
	case bitbucket.ErrorKindTimeout:
		return mcpgo.NewToolResultError("The request deadline was exceeded: " + err.Error())
	default:
		return mcpgo.NewToolResultError(err.Error())
	}
}

func jsonResult(value interface{}) (*mcpgo.CallToolResult, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding tool result: %w", err)
	}

	return mcpgo.NewToolResultText(string(data)), nil
}

// listOptions builds ListOptions from the shared pagination arguments.
func listOptions(req mcpgo.CallToolRequest) *bitbucket.ListOptions {
	return &bitbucket.ListOptions{
		Filter:   req.GetString("filter", ""),
		PageSize: req.GetInt("page_size", 0),
		Page:     req.GetInt("page", 0),
		All:      req.GetBool("all", false),
	}
}

func (s *Server) handleRepoList(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	workspace, err := req.RequireString("workspace")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	repos, err := s.client.Repositories().List(ctx, workspace, listOptions(req))
	if err != nil {
		return toolError(err), nil
	}

	return jsonResult(repos)
}

func (s *Server) handleRepoGet(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	workspace, err := req.RequireString("workspace")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	repo, err := req.RequireString("repo")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	result, err := s.client.Repositories().Get(ctx, workspace, repo)
	if err != nil {
		return toolError(err), nil
	}

	return jsonResult(result)
}

// prArgs extracts the workspace/repo/pr_id triple most PR tools share.
func prArgs(req mcpgo.CallToolRequest) (workspace, repo string, id int, err error) {
	if workspace, err = req.RequireString("workspace"); err != nil {
		return "", "", 0, err
	}

	if repo, err = req.RequireString("repo"); err != nil {
		return "", "", 0, err
	}

	if id, err = req.RequireInt("pr_id"); err != nil {
		return "", "", 0, err
	}

	return workspace, repo, id, nil
}

func (s *Server) handlePRList(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	workspace, err := req.RequireString("workspace")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	repo, err := req.RequireString("repo")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	prs, err := s.client.PullRequests().List(ctx, workspace, repo, req.GetString("state", ""), listOptions(req))
	if err != nil {
		return toolError(err), nil
	}

	return jsonResult(prs)
}

func (s *Server) handlePRGet(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	workspace, repo, id, err := prArgs(req)
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	pullRequest, err := s.client.PullRequests().Get(ctx, workspace, repo, id)
	if err != nil {
		return toolError(err), nil
	}

	return jsonResult(pullRequest)
}

func (s *Server) handlePRCreate(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	workspace, err := req.RequireString("workspace")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	repo, err := req.RequireString("repo")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	title, err := req.RequireString("title")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	source, err := req.RequireString("source_branch")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	target, err := req.RequireString("target_branch")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	pullRequest, err := s.client.PullRequests().Create(ctx, workspace, repo, &bitbucket.PullRequestCreate{
		Title:        title,
		Description:  req.GetString("description", ""),
		SourceBranch: source,
		TargetBranch: target,
	})
	if err != nil {
		return toolError(err), nil
	}

	return jsonResult(pullRequest)
}

func (s *Server) handlePRUpdate(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	workspace, repo, id, err := prArgs(req)
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	pullRequest, err := s.client.PullRequests().Update(ctx, workspace, repo, id, &bitbucket.PullRequestUpdate{
		Title:       req.GetString("title", ""),
		Description: req.GetString("description", ""),
	})
	if err != nil {
		return toolError(err), nil
	}

	return jsonResult(pullRequest)
}

func (s *Server) handlePRApprove(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	workspace, repo, id, err := prArgs(req)
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	if err := s.client.PullRequests().Approve(ctx, workspace, repo, id); err != nil {
		return toolError(err), nil
	}

	return mcpgo.NewToolResultText(fmt.Sprintf("Approved pull request #%d.", id)), nil
}

func (s *Server) handlePRMerge(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	workspace, repo, id, err := prArgs(req)
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	pullRequest, err := s.client.PullRequests().Merge(ctx, workspace, repo, id, req.GetString("message", ""))
	if err != nil {
		return toolError(err), nil
	}

	return jsonResult(pullRequest)
}

func (s *Server) handlePRDiff(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	workspace, repo, id, err := prArgs(req)
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	diff, err := s.client.PullRequests().Diff(ctx, workspace, repo, id)
	if err != nil {
		return toolError(err), nil
	}

	return mcpgo.NewToolResultText(diff), nil
}

func (s *Server) handleCommentList(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	workspace, repo, id, err := prArgs(req)
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	comments, err := s.client.Comments().List(ctx, workspace, repo, id, listOptions(req))
	if err != nil {
		return toolError(err), nil
	}

	return jsonResult(comments)
}

func (s *Server) handleCommentAdd(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	workspace, repo, id, err := prArgs(req)
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	text, err := req.RequireString("text")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	comment, err := s.client.Comments().Add(ctx, workspace, repo, id, &bitbucket.CommentCreate{
		Text:     text,
		FilePath: req.GetString("file_path", ""),
		Line:     req.GetInt("line", 0),
	})
	if err != nil {
		return toolError(err), nil
	}

	return jsonResult(comment)
}

func (s *Server) handleTaskList(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	workspace, repo, id, err := prArgs(req)
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	tasks, err := s.client.Tasks().List(ctx, workspace, repo, id, listOptions(req))
	if err != nil {
		return toolError(err), nil
	}

	return jsonResult(tasks)
}

func (s *Server) handleTaskCreate(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	workspace, repo, id, err := prArgs(req)
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	text, err := req.RequireString("text")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	task, err := s.client.Tasks().Create(ctx, workspace, repo, id, text)
	if err != nil {
		return toolError(err), nil
	}

	return jsonResult(task)
}

func (s *Server) handleTaskUpdate(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	workspace, repo, id, err := prArgs(req)
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	taskID, err := req.RequireInt("task_id")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	state, err := req.RequireString("state")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	task, err := s.client.Tasks().UpdateState(ctx, workspace, repo, id, taskID, state)
	if err != nil {
		return toolError(err), nil
	}

	return jsonResult(task)
}

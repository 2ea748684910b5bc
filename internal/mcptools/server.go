// Package mcptools exposes the Bitbucket client as MCP tools over stdio,
// enabling an AI assistant to query and mutate repositories, pull requests,
// comments, and tasks on either platform variant.
package mcptools

import (
	"fmt"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/forgebridge/bitbucket-mcp/pkg/bitbucket"
)

// Server wraps an MCP server with a configured Bitbucket client.
type Server struct {
	client bitbucket.Client
	logger bitbucket.Logger
	server *mcpserver.MCPServer
}

// New creates an MCP server with all Bitbucket tools registered.
func New(client bitbucket.Client, logger bitbucket.Logger, version string) *Server {
	s := &Server{
		client: client,
		logger: logger,
		server: mcpserver.NewMCPServer(
			"bitbucket-mcp",
			version,
			mcpserver.WithToolCapabilities(false),
		),
	}
	s.registerTools()

	return s
}

// Run starts the MCP server on stdio.
func (s *Server) Run() error {
	if err := mcpserver.ServeStdio(s.server); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}

	return nil
}

// registerTools adds all Bitbucket tools to the MCP server. Tools whose
// operation has no equivalent on the active platform are still registered;
// their handlers surface the unsupported-operation error as a tool result.
func (s *Server) registerTools() {
	s.server.AddTool(
		mcpgo.NewTool("bitbucket_repo_list",
			mcpgo.WithDescription("List repositories in a workspace (Cloud) or project (Data Center)"),
			mcpgo.WithString("workspace", mcpgo.Description("Workspace slug or project key"), mcpgo.Required()),
			mcpgo.WithString("filter", mcpgo.Description("Substring filter on repository name")),
			mcpgo.WithNumber("page", mcpgo.Description("Explicit page number (disables fetch-all)")),
			mcpgo.WithNumber("page_size", mcpgo.Description("Items per page (1-100)")),
			mcpgo.WithBoolean("all", mcpgo.Description("Accumulate all pages, capped at 1000 items")),
			mcpgo.WithReadOnlyHintAnnotation(true),
			mcpgo.WithOpenWorldHintAnnotation(true),
		),
		s.handleRepoList,
	)

	s.server.AddTool(
		mcpgo.NewTool("bitbucket_repo_get",
			mcpgo.WithDescription("Get a repository"),
			mcpgo.WithString("workspace", mcpgo.Description("Workspace slug or project key"), mcpgo.Required()),
			mcpgo.WithString("repo", mcpgo.Description("Repository slug"), mcpgo.Required()),
			mcpgo.WithReadOnlyHintAnnotation(true),
			mcpgo.WithOpenWorldHintAnnotation(true),
		),
		s.handleRepoGet,
	)

	s.server.AddTool(
		mcpgo.NewTool("bitbucket_pr_list",
			mcpgo.WithDescription("List pull requests in a repository"),
			mcpgo.WithString("workspace", mcpgo.Description("Workspace slug or project key"), mcpgo.Required()),
			mcpgo.WithString("repo", mcpgo.Description("Repository slug"), mcpgo.Required()),
			mcpgo.WithString("state", mcpgo.Description("Filter by state (OPEN, MERGED, DECLINED)")),
			mcpgo.WithString("filter", mcpgo.Description("Substring filter on title/description")),
			mcpgo.WithNumber("page", mcpgo.Description("Explicit page number (disables fetch-all)")),
			mcpgo.WithNumber("page_size", mcpgo.Description("Items per page (1-100)")),
			mcpgo.WithBoolean("all", mcpgo.Description("Accumulate all pages, capped at 1000 items")),
			mcpgo.WithReadOnlyHintAnnotation(true),
			mcpgo.WithOpenWorldHintAnnotation(true),
		),
		s.handlePRList,
	)

	s.server.AddTool(
		mcpgo.NewTool("bitbucket_pr_get",
			mcpgo.WithDescription("Get a pull request"),
			mcpgo.WithString("workspace", mcpgo.Description("Workspace slug or project key"), mcpgo.Required()),
			mcpgo.WithString("repo", mcpgo.Description("Repository slug"), mcpgo.Required()),
			mcpgo.WithNumber("pr_id", mcpgo.Description("Pull request ID"), mcpgo.Required()),
			mcpgo.WithReadOnlyHintAnnotation(true),
			mcpgo.WithOpenWorldHintAnnotation(true),
		),
		s.handlePRGet,
	)

	s.server.AddTool(
		mcpgo.NewTool("bitbucket_pr_create",
			mcpgo.WithDescription("Create a pull request"),
			mcpgo.WithString("workspace", mcpgo.Description("Workspace slug or project key"), mcpgo.Required()),
			mcpgo.WithString("repo", mcpgo.Description("Repository slug"), mcpgo.Required()),
			mcpgo.WithString("title", mcpgo.Description("Pull request title"), mcpgo.Required()),
			mcpgo.WithString("source_branch", mcpgo.Description("Source branch name"), mcpgo.Required()),
			mcpgo.WithString("target_branch", mcpgo.Description("Target branch name"), mcpgo.Required()),
			mcpgo.WithString("description", mcpgo.Description("Pull request description")),
			mcpgo.WithDestructiveHintAnnotation(false),
			mcpgo.WithOpenWorldHintAnnotation(true),
		),
		s.handlePRCreate,
	)

	s.server.AddTool(
		mcpgo.NewTool("bitbucket_pr_update",
			mcpgo.WithDescription("Update a pull request's title or description"),
			mcpgo.WithString("workspace", mcpgo.Description("Workspace slug or project key"), mcpgo.Required()),
			mcpgo.WithString("repo", mcpgo.Description("Repository slug"), mcpgo.Required()),
			mcpgo.WithNumber("pr_id", mcpgo.Description("Pull request ID"), mcpgo.Required()),
			mcpgo.WithString("title", mcpgo.Description("New title")),
			mcpgo.WithString("description", mcpgo.Description("New description")),
			mcpgo.WithOpenWorldHintAnnotation(true),
		),
		s.handlePRUpdate,
	)

	s.server.AddTool(
		mcpgo.NewTool("bitbucket_pr_approve",
			mcpgo.WithDescription("Approve a pull request"),
			mcpgo.WithString("workspace", mcpgo.Description("Workspace slug or project key"), mcpgo.Required()),
			mcpgo.WithString("repo", mcpgo.Description("Repository slug"), mcpgo.Required()),
			mcpgo.WithNumber("pr_id", mcpgo.Description("Pull request ID"), mcpgo.Required()),
			mcpgo.WithOpenWorldHintAnnotation(true),
		),
		s.handlePRApprove,
	)

	s.server.AddTool(
		mcpgo.NewTool("bitbucket_pr_merge",
			mcpgo.WithDescription("Merge a pull request"),
			mcpgo.WithString("workspace", mcpgo.Description("Workspace slug or project key"), mcpgo.Required()),
			mcpgo.WithString("repo", mcpgo.Description("Repository slug"), mcpgo.Required()),
			mcpgo.WithNumber("pr_id", mcpgo.Description("Pull request ID"), mcpgo.Required()),
			mcpgo.WithString("message", mcpgo.Description("Merge commit message (Cloud only)")),
			mcpgo.WithOpenWorldHintAnnotation(true),
		),
		s.handlePRMerge,
	)

	s.server.AddTool(
		mcpgo.NewTool("bitbucket_pr_diff",
			mcpgo.WithDescription("Get the raw diff of a pull request"),
			mcpgo.WithString("workspace", mcpgo.Description("Workspace slug or project key"), mcpgo.Required()),
			mcpgo.WithString("repo", mcpgo.Description("Repository slug"), mcpgo.Required()),
			mcpgo.WithNumber("pr_id", mcpgo.Description("Pull request ID"), mcpgo.Required()),
			mcpgo.WithReadOnlyHintAnnotation(true),
			mcpgo.WithOpenWorldHintAnnotation(true),
		),
		s.handlePRDiff,
	)

	s.server.AddTool(
		mcpgo.NewTool("bitbucket_comment_list",
			mcpgo.WithDescription("List comments on a pull request"),
			mcpgo.WithString("workspace", mcpgo.Description("Workspace slug or project key"), mcpgo.Required()),
			mcpgo.WithString("repo", mcpgo.Description("Repository slug"), mcpgo.Required()),
			mcpgo.WithNumber("pr_id", mcpgo.Description("Pull request ID"), mcpgo.Required()),
			mcpgo.WithBoolean("all", mcpgo.Description("Accumulate all pages, capped at 1000 items")),
			mcpgo.WithReadOnlyHintAnnotation(true),
			mcpgo.WithOpenWorldHintAnnotation(true),
		),
		s.handleCommentList,
	)

	s.server.AddTool(
		mcpgo.NewTool("bitbucket_comment_add",
			mcpgo.WithDescription("Add a comment to a pull request; file_path plus line makes it inline"),
			mcpgo.WithString("workspace", mcpgo.Description("Workspace slug or project key"), mcpgo.Required()),
			mcpgo.WithString("repo", mcpgo.Description("Repository slug"), mcpgo.Required()),
			mcpgo.WithNumber("pr_id", mcpgo.Description("Pull request ID"), mcpgo.Required()),
			mcpgo.WithString("text", mcpgo.Description("Comment text"), mcpgo.Required()),
			mcpgo.WithString("file_path", mcpgo.Description("File path for an inline comment")),
			mcpgo.WithNumber("line", mcpgo.Description("Line number for an inline comment")),
			mcpgo.WithOpenWorldHintAnnotation(true),
		),
		s.handleCommentAdd,
	)

	s.server.AddTool(
		mcpgo.NewTool("bitbucket_task_list",
			mcpgo.WithDescription("List pull request tasks (blocker comments on Data Center)"),
			mcpgo.WithString("workspace", mcpgo.Description("Workspace slug or project key"), mcpgo.Required()),
			mcpgo.WithString("repo", mcpgo.Description("Repository slug"), mcpgo.Required()),
			mcpgo.WithNumber("pr_id", mcpgo.Description("Pull request ID"), mcpgo.Required()),
			mcpgo.WithReadOnlyHintAnnotation(true),
			mcpgo.WithOpenWorldHintAnnotation(true),
		),
		s.handleTaskList,
	)

	s.server.AddTool(
		mcpgo.NewTool("bitbucket_task_create",
			mcpgo.WithDescription("Create a pull request task"),
			mcpgo.WithString("workspace", mcpgo.Description("Workspace slug or project key"), mcpgo.Required()),
			mcpgo.WithString("repo", mcpgo.Description("Repository slug"), mcpgo.Required()),
			mcpgo.WithNumber("pr_id", mcpgo.Description("Pull request ID"), mcpgo.Required()),
			mcpgo.WithString("text", mcpgo.Description("Task text"), mcpgo.Required()),
			mcpgo.WithOpenWorldHintAnnotation(true),
		),
		s.handleTaskCreate,
	)

	s.server.AddTool(
		mcpgo.NewTool("bitbucket_task_update",
			mcpgo.WithDescription("Update a pull request task's state"),
			mcpgo.WithString("workspace", mcpgo.Description("Workspace slug or project key"), mcpgo.Required()),
			mcpgo.WithString("repo", mcpgo.Description("Repository slug"), mcpgo.Required()),
			mcpgo.WithNumber("pr_id", mcpgo.Description("Pull request ID"), mcpgo.Required()),
			mcpgo.WithNumber("task_id", mcpgo.Description("Task or blocker comment ID"), mcpgo.Required()),
			mcpgo.WithString("state", mcpgo.Description("New state: OPEN or RESOLVED"), mcpgo.Required()),
			mcpgo.WithOpenWorldHintAnnotation(true),
		),
		s.handleTaskUpdate,
	)
}

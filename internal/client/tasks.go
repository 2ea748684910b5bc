package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/forgebridge/bitbucket-mcp/internal/httpclient"
	"github.com/forgebridge/bitbucket-mcp/pkg/bitbucket"
)

// TasksClient implements bitbucket.TasksClient. On Cloud these are the
// pull request task endpoints; on Data Center the same logical family is
// served by blocker comments.
type TasksClient struct {
	client *Client
}

// NewTasksClient creates a new tasks client.
func NewTasksClient(client *Client) *TasksClient {
	return &TasksClient{client: client}
}

// Cloud task states, translated to the canonical OPEN/RESOLVED pair.
const cloudTaskUnresolved = "UNRESOLVED"

// cloudTask is the Cloud wire shape.
type cloudTask struct {
	ID      int    `json:"id"`
	State   string `json:"state"`
	Content struct {
		Raw string `json:"raw"`
	} `json:"content"`
}

// dcBlockerComment is the Data Center wire shape.
type dcBlockerComment struct {
	ID      int    `json:"id"`
	Version int    `json:"version"`
	Text    string `json:"text"`
	State   string `json:"state"`
}

func (c *cloudTask) toTask() bitbucket.Task {
	state := c.State
	if state == cloudTaskUnresolved {
		state = bitbucket.TaskStateOpen
	}

	return bitbucket.Task{ID: c.ID, Text: c.Content.Raw, State: state}
}

func (d *dcBlockerComment) toTask() bitbucket.Task {
	return bitbucket.Task{ID: d.ID, Text: d.Text, State: d.State, Version: d.Version}
}

func (t *TasksClient) decodeOne(body []byte) (*bitbucket.Task, error) {
	if t.client.variant == bitbucket.VariantCloud {
		var raw cloudTask
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("parsing task response: %w", err)
		}

		result := raw.toTask()

		return &result, nil
	}

	var raw dcBlockerComment
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parsing task response: %w", err)
	}

	result := raw.toTask()

	return &result, nil
}

// List implements bitbucket.TasksClient.List.
func (t *TasksClient) List(ctx context.Context, workspace, repo string, pr int, opts *bitbucket.ListOptions) ([]bitbucket.Task, error) {
	path, err := t.client.paths.Resolve(bitbucket.OpListTasks, bitbucket.Ref{Workspace: workspace, Repo: repo, PullRequest: pr})
	if err != nil {
		return nil, err
	}

	page, err := t.client.GetPaginated(ctx, path, t.client.pageRequest(opts))
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}

	if t.client.variant == bitbucket.VariantCloud {
		raw, err := bitbucket.ItemsAs[cloudTask](page.Items)
		if err != nil {
			return nil, err
		}

		tasks := make([]bitbucket.Task, 0, len(raw))
		for i := range raw {
			tasks = append(tasks, raw[i].toTask())
		}

		return tasks, nil
	}

	raw, err := bitbucket.ItemsAs[dcBlockerComment](page.Items)
	if err != nil {
		return nil, err
	}

	tasks := make([]bitbucket.Task, 0, len(raw))
	for i := range raw {
		tasks = append(tasks, raw[i].toTask())
	}

	return tasks, nil
}

// readVersion fetches the blocker comment's current version token.
func (t *TasksClient) readVersion(workspace, repo string, pr, id int) func(context.Context) (int, error) {
	return func(ctx context.Context) (int, error) {
		path, err := t.client.paths.Resolve(bitbucket.OpGetTask, bitbucket.Ref{Workspace: workspace, Repo: repo, PullRequest: pr, Task: id})
		if err != nil {
			return 0, err
		}

		body, err := t.client.Get(ctx, path, nil)
		if err != nil {
			return 0, fmt.Errorf("getting task: %w", err)
		}

		task, err := t.decodeOne(body)
		if err != nil {
			return 0, err
		}

		return task.Version, nil
	}
}

// Create implements bitbucket.TasksClient.Create.
func (t *TasksClient) Create(ctx context.Context, workspace, repo string, pr int, text string) (*bitbucket.Task, error) {
	path, err := t.client.paths.Resolve(bitbucket.OpCreateTask, bitbucket.Ref{Workspace: workspace, Repo: repo, PullRequest: pr})
	if err != nil {
		return nil, err
	}

	var body interface{}

	if t.client.variant == bitbucket.VariantCloud {
		body = map[string]interface{}{"content": map[string]string{"raw": text}}
	} else {
		body = map[string]interface{}{"text": text, "severity": "BLOCKER"}
	}

	resp, err := t.client.Post(ctx, path, body)
	if err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}

	return t.decodeOne(resp)
}

// UpdateState implements bitbucket.TasksClient.UpdateState. Guarded on Data
// Center; Cloud tasks carry no version token.
func (t *TasksClient) UpdateState(ctx context.Context, workspace, repo string, pr, id int, state string) (*bitbucket.Task, error) {
	path, err := t.client.paths.Resolve(bitbucket.OpUpdateTask, bitbucket.Ref{Workspace: workspace, Repo: repo, PullRequest: pr, Task: id})
	if err != nil {
		return nil, err
	}

	if t.client.variant == bitbucket.VariantCloud {
		wireState := state
		if wireState == bitbucket.TaskStateOpen {
			wireState = cloudTaskUnresolved
		}

		resp, err := t.client.Put(ctx, path, map[string]interface{}{"state": wireState})
		if err != nil {
			return nil, fmt.Errorf("updating task: %w", err)
		}

		return t.decodeOne(resp)
	}

	return guardedWrite(ctx, t.readVersion(workspace, repo, pr, id), func(ctx context.Context, version int) (*bitbucket.Task, error) {
		resp, err := t.client.Put(ctx, path, map[string]interface{}{
			"state":   state,
			"version": version,
		})
		if err != nil {
			return nil, fmt.Errorf("updating task: %w", err)
		}

		return t.decodeOne(resp)
	})
}

// Delete implements bitbucket.TasksClient.Delete. Guarded on Data Center.
func (t *TasksClient) Delete(ctx context.Context, workspace, repo string, pr, id int) error {
	path, err := t.client.paths.Resolve(bitbucket.OpDeleteTask, bitbucket.Ref{Workspace: workspace, Repo: repo, PullRequest: pr, Task: id})
	if err != nil {
		return err
	}

	if t.client.variant == bitbucket.VariantCloud {
		if err := t.client.Delete(ctx, path, nil); err != nil {
			return fmt.Errorf("deleting task: %w", err)
		}

		return nil
	}

	_, err = guardedWrite(ctx, t.readVersion(workspace, repo, pr, id), func(ctx context.Context, version int) (struct{}, error) {
		_, err := t.client.httpClient.Do(ctx, &httpclient.Request{
			Method: http.MethodDelete,
			Path:   path,
			Query:  url.Values{"version": []string{strconv.Itoa(version)}},
		})
		if err != nil {
			return struct{}{}, fmt.Errorf("deleting task: %w", err)
		}

		return struct{}{}, nil
	})

	return err
}

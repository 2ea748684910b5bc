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

// CommentsClient implements bitbucket.CommentsClient.
type CommentsClient struct {
	client *Client
}

// NewCommentsClient creates a new comments client.
func NewCommentsClient(client *Client) *CommentsClient {
	return &CommentsClient{client: client}
}

// cloudComment is the Cloud wire shape.
type cloudComment struct {
	ID      int `json:"id"`
	Content struct {
		Raw string `json:"raw"`
	} `json:"content"`
	User struct {
		DisplayName string `json:"display_name"`
	} `json:"user"`
	Inline *struct {
		Path string `json:"path"`
		To   int    `json:"to"`
	} `json:"inline,omitempty"`
	Resolved bool `json:"resolved"`
}

// dcComment is the Data Center wire shape.
type dcComment struct {
	ID      int    `json:"id"`
	Version int    `json:"version"`
	Text    string `json:"text"`
	State   string `json:"state"`
	Author  struct {
		DisplayName string `json:"displayName"`
	} `json:"author"`
	Anchor *struct {
		Path string `json:"path"`
		Line int    `json:"line"`
	} `json:"anchor,omitempty"`
}

func (c *cloudComment) toComment() bitbucket.Comment {
	comment := bitbucket.Comment{
		ID:       c.ID,
		Text:     c.Content.Raw,
		Author:   c.User.DisplayName,
		Resolved: c.Resolved,
	}

	if c.Inline != nil {
		comment.FilePath = c.Inline.Path
		comment.Line = c.Inline.To
	}

	return comment
}

func (d *dcComment) toComment() bitbucket.Comment {
	comment := bitbucket.Comment{
		ID:       d.ID,
		Text:     d.Text,
		Author:   d.Author.DisplayName,
		Version:  d.Version,
		Resolved: d.State == bitbucket.TaskStateResolved,
	}

	if d.Anchor != nil {
		comment.FilePath = d.Anchor.Path
		comment.Line = d.Anchor.Line
	}

	return comment
}

func (c *CommentsClient) decodeOne(body []byte) (*bitbucket.Comment, error) {
	if c.client.variant == bitbucket.VariantCloud {
		var raw cloudComment
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("parsing comment response: %w", err)
		}

		result := raw.toComment()

		return &result, nil
	}

	var raw dcComment
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parsing comment response: %w", err)
	}

	result := raw.toComment()

	return &result, nil
}

// List implements bitbucket.CommentsClient.List.
func (c *CommentsClient) List(ctx context.Context, workspace, repo string, pr int, opts *bitbucket.ListOptions) ([]bitbucket.Comment, error) {
	path, err := c.client.paths.Resolve(bitbucket.OpListComments, bitbucket.Ref{Workspace: workspace, Repo: repo, PullRequest: pr})
	if err != nil {
		return nil, err
	}

	page, err := c.client.GetPaginated(ctx, path, c.client.pageRequest(opts))
	if err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}

	if c.client.variant == bitbucket.VariantCloud {
		raw, err := bitbucket.ItemsAs[cloudComment](page.Items)
		if err != nil {
			return nil, err
		}

		comments := make([]bitbucket.Comment, 0, len(raw))
		for i := range raw {
			comments = append(comments, raw[i].toComment())
		}

		return comments, nil
	}

	raw, err := bitbucket.ItemsAs[dcComment](page.Items)
	if err != nil {
		return nil, err
	}

	comments := make([]bitbucket.Comment, 0, len(raw))
	for i := range raw {
		comments = append(comments, raw[i].toComment())
	}

	return comments, nil
}

// Get implements bitbucket.CommentsClient.Get.
func (c *CommentsClient) Get(ctx context.Context, workspace, repo string, pr, id int) (*bitbucket.Comment, error) {
	path, err := c.client.paths.Resolve(bitbucket.OpGetComment, bitbucket.Ref{Workspace: workspace, Repo: repo, PullRequest: pr, Comment: id})
	if err != nil {
		return nil, err
	}

	body, err := c.client.Get(ctx, path, nil)
	if err != nil {
		return nil, fmt.Errorf("getting comment: %w", err)
	}

	return c.decodeOne(body)
}

// readVersion fetches the comment's current version token for guarded
// writes on Data Center.
func (c *CommentsClient) readVersion(workspace, repo string, pr, id int) func(context.Context) (int, error) {
	return func(ctx context.Context) (int, error) {
		comment, err := c.Get(ctx, workspace, repo, pr, id)
		if err != nil {
			return 0, err
		}

		return comment.Version, nil
	}
}

// Add implements bitbucket.CommentsClient.Add.
func (c *CommentsClient) Add(ctx context.Context, workspace, repo string, pr int, req *bitbucket.CommentCreate) (*bitbucket.Comment, error) {
	path, err := c.client.paths.Resolve(bitbucket.OpCreateComment, bitbucket.Ref{Workspace: workspace, Repo: repo, PullRequest: pr})
	if err != nil {
		return nil, err
	}

	var body map[string]interface{}

	if c.client.variant == bitbucket.VariantCloud {
		body = map[string]interface{}{
			"content": map[string]string{"raw": req.Text},
		}
		if req.FilePath != "" {
			body["inline"] = map[string]interface{}{"path": req.FilePath, "to": req.Line}
		}
	} else {
		body = map[string]interface{}{"text": req.Text}
		if req.FilePath != "" {
			body["anchor"] = map[string]interface{}{"path": req.FilePath, "line": req.Line}
		}
	}

	resp, err := c.client.Post(ctx, path, body)
	if err != nil {
		return nil, fmt.Errorf("adding comment: %w", err)
	}

	return c.decodeOne(resp)
}

// Update implements bitbucket.CommentsClient.Update. Guarded on Data Center.
func (c *CommentsClient) Update(ctx context.Context, workspace, repo string, pr, id int, text string) (*bitbucket.Comment, error) {
	path, err := c.client.paths.Resolve(bitbucket.OpUpdateComment, bitbucket.Ref{Workspace: workspace, Repo: repo, PullRequest: pr, Comment: id})
	if err != nil {
		return nil, err
	}

	if c.client.variant == bitbucket.VariantCloud {
		resp, err := c.client.Put(ctx, path, map[string]interface{}{
			"content": map[string]string{"raw": text},
		})
		if err != nil {
			return nil, fmt.Errorf("updating comment: %w", err)
		}

		return c.decodeOne(resp)
	}

	return guardedWrite(ctx, c.readVersion(workspace, repo, pr, id), func(ctx context.Context, version int) (*bitbucket.Comment, error) {
		resp, err := c.client.Put(ctx, path, map[string]interface{}{
			"text":    text,
			"version": version,
		})
		if err != nil {
			return nil, fmt.Errorf("updating comment: %w", err)
		}

		return c.decodeOne(resp)
	})
}

// Delete implements bitbucket.CommentsClient.Delete. Guarded on Data Center,
// where the version token rides as a query parameter.
func (c *CommentsClient) Delete(ctx context.Context, workspace, repo string, pr, id int) error {
	path, err := c.client.paths.Resolve(bitbucket.OpDeleteComment, bitbucket.Ref{Workspace: workspace, Repo: repo, PullRequest: pr, Comment: id})
	if err != nil {
		return err
	}

	if c.client.variant == bitbucket.VariantCloud {
		if err := c.client.Delete(ctx, path, nil); err != nil {
			return fmt.Errorf("deleting comment: %w", err)
		}

		return nil
	}

	_, err = guardedWrite(ctx, c.readVersion(workspace, repo, pr, id), func(ctx context.Context, version int) (struct{}, error) {
		_, err := c.client.httpClient.Do(ctx, &httpclient.Request{
			Method: http.MethodDelete,
			Path:   path,
			Query:  url.Values{"version": []string{strconv.Itoa(version)}},
		})
		if err != nil {
			return struct{}{}, fmt.Errorf("deleting comment: %w", err)
		}

		return struct{}{}, nil
	})

	return err
}

// Resolve implements bitbucket.CommentsClient.Resolve. Cloud has a dedicated
// resolve sub-resource; Data Center resolution is a versioned state update
// of the comment itself.
func (c *CommentsClient) Resolve(ctx context.Context, workspace, repo string, pr, id int) error {
	return c.setResolved(ctx, workspace, repo, pr, id, true)
}

// Reopen implements bitbucket.CommentsClient.Reopen.
func (c *CommentsClient) Reopen(ctx context.Context, workspace, repo string, pr, id int) error {
	return c.setResolved(ctx, workspace, repo, pr, id, false)
}

func (c *CommentsClient) setResolved(ctx context.Context, workspace, repo string, pr, id int, resolved bool) error {
	path, err := c.client.paths.Resolve(bitbucket.OpResolveComment, bitbucket.Ref{Workspace: workspace, Repo: repo, PullRequest: pr, Comment: id})
	if err != nil {
		return err
	}

	if c.client.variant == bitbucket.VariantCloud {
		if resolved {
			_, err = c.client.Post(ctx, path, nil)
		} else {
			err = c.client.Delete(ctx, path, nil)
		}

		if err != nil {
			return fmt.Errorf("updating comment resolution: %w", err)
		}

		return nil
	}

	state := bitbucket.TaskStateOpen
	if resolved {
		state = bitbucket.TaskStateResolved
	}

	_, err = guardedWrite(ctx, c.readVersion(workspace, repo, pr, id), func(ctx context.Context, version int) (struct{}, error) {
		_, err := c.client.Put(ctx, path, map[string]interface{}{
			"state":   state,
			"version": version,
		})
		if err != nil {
			return struct{}{}, fmt.Errorf("updating comment resolution: %w", err)
		}

		return struct{}{}, nil
	})

	return err
}

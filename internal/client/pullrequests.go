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

// PullRequestsClient implements bitbucket.PullRequestsClient.
type PullRequestsClient struct {
	client *Client
}

// NewPullRequestsClient creates a new pull requests client.
func NewPullRequestsClient(client *Client) *PullRequestsClient {
	return &PullRequestsClient{client: client}
}

// cloudPullRequest is the Cloud wire shape.
type cloudPullRequest struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	State       string `json:"state"`
	Author      struct {
		DisplayName string `json:"display_name"`
	} `json:"author"`
	Source struct {
		Branch struct {
			Name string `json:"name"`
		} `json:"branch"`
	} `json:"source"`
	Destination struct {
		Branch struct {
			Name string `json:"name"`
		} `json:"branch"`
	} `json:"destination"`
}

// dcPullRequest is the Data Center wire shape.
type dcPullRequest struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	State       string `json:"state"`
	Version     int    `json:"version"`
	Author      struct {
		User struct {
			DisplayName string `json:"displayName"`
		} `json:"user"`
	} `json:"author"`
	FromRef struct {
		DisplayID string `json:"displayId"`
	} `json:"fromRef"`
	ToRef struct {
		DisplayID string `json:"displayId"`
	} `json:"toRef"`
}

func (c *cloudPullRequest) toPullRequest() bitbucket.PullRequest {
	return bitbucket.PullRequest{
		ID:           c.ID,
		Title:        c.Title,
		Description:  c.Description,
		State:        c.State,
		Author:       c.Author.DisplayName,
		SourceBranch: c.Source.Branch.Name,
		TargetBranch: c.Destination.Branch.Name,
	}
}

func (d *dcPullRequest) toPullRequest() bitbucket.PullRequest {
	return bitbucket.PullRequest{
		ID:           d.ID,
		Title:        d.Title,
		Description:  d.Description,
		State:        d.State,
		Author:       d.Author.User.DisplayName,
		SourceBranch: d.FromRef.DisplayID,
		TargetBranch: d.ToRef.DisplayID,
		Version:      d.Version,
	}
}

func (p *PullRequestsClient) decodeOne(body []byte) (*bitbucket.PullRequest, error) {
	if p.client.variant == bitbucket.VariantCloud {
		var raw cloudPullRequest
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("parsing pull request response: %w", err)
		}

		result := raw.toPullRequest()

		return &result, nil
	}

	var raw dcPullRequest
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parsing pull request response: %w", err)
	}

	result := raw.toPullRequest()

	return &result, nil
}

// List implements bitbucket.PullRequestsClient.List. The state filter uses
// each dialect's own query key ("state" on both, but values differ in case
// conventions; callers pass the canonical upper-case state).
func (p *PullRequestsClient) List(ctx context.Context, workspace, repo string, state string, opts *bitbucket.ListOptions) ([]bitbucket.PullRequest, error) {
	path, err := p.client.paths.Resolve(bitbucket.OpListPullRequests, bitbucket.Ref{Workspace: workspace, Repo: repo})
	if err != nil {
		return nil, err
	}

	req := p.client.pageRequest(opts)

	if state != "" {
		if req.Query == nil {
			req.Query = url.Values{}
		}

		req.Query.Set("state", state)
	}

	page, err := p.client.GetPaginated(ctx, path, req)
	if err != nil {
		return nil, fmt.Errorf("listing pull requests: %w", err)
	}

	if p.client.variant == bitbucket.VariantCloud {
		raw, err := bitbucket.ItemsAs[cloudPullRequest](page.Items)
		if err != nil {
			return nil, err
		}

		prs := make([]bitbucket.PullRequest, 0, len(raw))
		for i := range raw {
			prs = append(prs, raw[i].toPullRequest())
		}

		return prs, nil
	}

	raw, err := bitbucket.ItemsAs[dcPullRequest](page.Items)
	if err != nil {
		return nil, err
	}

	prs := make([]bitbucket.PullRequest, 0, len(raw))
	for i := range raw {
		prs = append(prs, raw[i].toPullRequest())
	}

	return prs, nil
}

// Get implements bitbucket.PullRequestsClient.Get.
func (p *PullRequestsClient) Get(ctx context.Context, workspace, repo string, id int) (*bitbucket.PullRequest, error) {
	path, err := p.client.paths.Resolve(bitbucket.OpGetPullRequest, bitbucket.Ref{Workspace: workspace, Repo: repo, PullRequest: id})
	if err != nil {
		return nil, err
	}

	body, err := p.client.Get(ctx, path, nil)
	if err != nil {
		return nil, fmt.Errorf("getting pull request: %w", err)
	}

	return p.decodeOne(body)
}

// readVersion fetches the pull request's current version token. Used by
// guarded writes on Data Center.
func (p *PullRequestsClient) readVersion(workspace, repo string, id int) func(context.Context) (int, error) {
	return func(ctx context.Context) (int, error) {
		pullRequest, err := p.Get(ctx, workspace, repo, id)
		if err != nil {
			return 0, err
		}

		return pullRequest.Version, nil
	}
}

// Create implements bitbucket.PullRequestsClient.Create.
func (p *PullRequestsClient) Create(ctx context.Context, workspace, repo string, req *bitbucket.PullRequestCreate) (*bitbucket.PullRequest, error) {
	path, err := p.client.paths.Resolve(bitbucket.OpCreatePullRequest, bitbucket.Ref{Workspace: workspace, Repo: repo})
	if err != nil {
		return nil, err
	}

	var body interface{}

	if p.client.variant == bitbucket.VariantCloud {
		body = map[string]interface{}{
			"title":       req.Title,
			"description": req.Description,
			"source":      map[string]interface{}{"branch": map[string]string{"name": req.SourceBranch}},
			"destination": map[string]interface{}{"branch": map[string]string{"name": req.TargetBranch}},
		}
	} else {
		body = map[string]interface{}{
			"title":       req.Title,
			"description": req.Description,
			"fromRef":     map[string]string{"id": "refs/heads/" + req.SourceBranch},
			"toRef":       map[string]string{"id": "refs/heads/" + req.TargetBranch},
		}
	}

	resp, err := p.client.Post(ctx, path, body)
	if err != nil {
		return nil, fmt.Errorf("creating pull request: %w", err)
	}

	return p.decodeOne(resp)
}

// Update implements bitbucket.PullRequestsClient.Update. On Data Center the
// write is guarded: the current version is read immediately before the PUT
// and echoed back in the payload.
func (p *PullRequestsClient) Update(ctx context.Context, workspace, repo string, id int, req *bitbucket.PullRequestUpdate) (*bitbucket.PullRequest, error) {
	path, err := p.client.paths.Resolve(bitbucket.OpUpdatePullRequest, bitbucket.Ref{Workspace: workspace, Repo: repo, PullRequest: id})
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if req.Title != "" {
		fields["title"] = req.Title
	}

	if req.Description != "" {
		fields["description"] = req.Description
	}

	if p.client.variant == bitbucket.VariantCloud {
		resp, err := p.client.Put(ctx, path, fields)
		if err != nil {
			return nil, fmt.Errorf("updating pull request: %w", err)
		}

		return p.decodeOne(resp)
	}

	return guardedWrite(ctx, p.readVersion(workspace, repo, id), func(ctx context.Context, version int) (*bitbucket.PullRequest, error) {
		fields["version"] = version

		resp, err := p.client.Put(ctx, path, fields)
		if err != nil {
			return nil, fmt.Errorf("updating pull request: %w", err)
		}

		return p.decodeOne(resp)
	})
}

// Approve implements bitbucket.PullRequestsClient.Approve.
func (p *PullRequestsClient) Approve(ctx context.Context, workspace, repo string, id int) error {
	path, err := p.client.paths.Resolve(bitbucket.OpApprovePullRequest, bitbucket.Ref{Workspace: workspace, Repo: repo, PullRequest: id})
	if err != nil {
		return err
	}

	if _, err := p.client.Post(ctx, path, nil); err != nil {
		return fmt.Errorf("approving pull request: %w", err)
	}

	return nil
}

// Unapprove implements bitbucket.PullRequestsClient.Unapprove.
func (p *PullRequestsClient) Unapprove(ctx context.Context, workspace, repo string, id int) error {
	path, err := p.client.paths.Resolve(bitbucket.OpApprovePullRequest, bitbucket.Ref{Workspace: workspace, Repo: repo, PullRequest: id})
	if err != nil {
		return err
	}

	if err := p.client.Delete(ctx, path, nil); err != nil {
		return fmt.Errorf("removing pull request approval: %w", err)
	}

	return nil
}

// versionedPost performs a POST carrying the version token as a query
// parameter, the way Data Center's merge and decline endpoints expect it.
func (p *PullRequestsClient) versionedPost(ctx context.Context, path string, version int, body interface{}) (json.RawMessage, error) {
	resp, err := p.client.httpClient.Do(ctx, &httpclient.Request{
		Method: http.MethodPost,
		Path:   path,
		Query:  url.Values{"version": []string{strconv.Itoa(version)}},
		Body:   body,
	})
	if err != nil {
		return nil, err
	}

	return resp.Body, nil
}

// Decline implements bitbucket.PullRequestsClient.Decline.
func (p *PullRequestsClient) Decline(ctx context.Context, workspace, repo string, id int) (*bitbucket.PullRequest, error) {
	path, err := p.client.paths.Resolve(bitbucket.OpDeclinePullRequest, bitbucket.Ref{Workspace: workspace, Repo: repo, PullRequest: id})
	if err != nil {
		return nil, err
	}

	if p.client.variant == bitbucket.VariantCloud {
		resp, err := p.client.Post(ctx, path, nil)
		if err != nil {
			return nil, fmt.Errorf("declining pull request: %w", err)
		}

		return p.decodeOne(resp)
	}

	return guardedWrite(ctx, p.readVersion(workspace, repo, id), func(ctx context.Context, version int) (*bitbucket.PullRequest, error) {
		resp, err := p.versionedPost(ctx, path, version, nil)
		if err != nil {
			return nil, fmt.Errorf("declining pull request: %w", err)
		}

		return p.decodeOne(resp)
	})
}

// Merge implements bitbucket.PullRequestsClient.Merge.
func (p *PullRequestsClient) Merge(ctx context.Context, workspace, repo string, id int, message string) (*bitbucket.PullRequest, error) {
	path, err := p.client.paths.Resolve(bitbucket.OpMergePullRequest, bitbucket.Ref{Workspace: workspace, Repo: repo, PullRequest: id})
	if err != nil {
		return nil, err
	}

	if p.client.variant == bitbucket.VariantCloud {
		var body interface{}
		if message != "" {
			body = map[string]string{"message": message}
		}

		resp, err := p.client.Post(ctx, path, body)
		if err != nil {
			return nil, fmt.Errorf("merging pull request: %w", err)
		}

		return p.decodeOne(resp)
	}

	return guardedWrite(ctx, p.readVersion(workspace, repo, id), func(ctx context.Context, version int) (*bitbucket.PullRequest, error) {
		resp, err := p.versionedPost(ctx, path, version, nil)
		if err != nil {
			return nil, fmt.Errorf("merging pull request: %w", err)
		}

		return p.decodeOne(resp)
	})
}

// Diff implements bitbucket.PullRequestsClient.Diff.
func (p *PullRequestsClient) Diff(ctx context.Context, workspace, repo string, id int) (string, error) {
	path, err := p.client.paths.Resolve(bitbucket.OpPullRequestDiff, bitbucket.Ref{Workspace: workspace, Repo: repo, PullRequest: id})
	if err != nil {
		return "", err
	}

	diff, err := p.client.GetText(ctx, path, nil)
	if err != nil {
		return "", fmt.Errorf("getting pull request diff: %w", err)
	}

	return diff, nil
}

// Patch implements bitbucket.PullRequestsClient.Patch. Cloud only; the
// resolver reports the operation unsupported on Data Center.
func (p *PullRequestsClient) Patch(ctx context.Context, workspace, repo string, id int) (string, error) {
	path, err := p.client.paths.Resolve(bitbucket.OpPullRequestPatch, bitbucket.Ref{Workspace: workspace, Repo: repo, PullRequest: id})
	if err != nil {
		return "", err
	}

	patch, err := p.client.GetText(ctx, path, nil)
	if err != nil {
		return "", fmt.Errorf("getting pull request patch: %w", err)
	}

	return patch, nil
}

package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/forgebridge/bitbucket-mcp/pkg/bitbucket"
)

// RepositoriesClient implements bitbucket.RepositoriesClient.
type RepositoriesClient struct {
	client *Client
}

// NewRepositoriesClient creates a new repositories client.
func NewRepositoriesClient(client *Client) *RepositoriesClient {
	return &RepositoriesClient{client: client}
}

// cloudRepository is the Cloud wire shape.
type cloudRepository struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	FullName    string `json:"full_name"`
	Description string `json:"description"`
	IsPrivate   bool   `json:"is_private"`
}

// dcRepository is the Data Center wire shape.
type dcRepository struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
	Project     struct {
		Key string `json:"key"`
	} `json:"project"`
}

func (c *cloudRepository) toRepository() bitbucket.Repository {
	return bitbucket.Repository{
		Slug:        c.Slug,
		Name:        c.Name,
		FullName:    c.FullName,
		Description: c.Description,
		IsPrivate:   c.IsPrivate,
	}
}

func (d *dcRepository) toRepository() bitbucket.Repository {
	return bitbucket.Repository{
		Slug:        d.Slug,
		Name:        d.Name,
		FullName:    d.Project.Key + "/" + d.Slug,
		Description: d.Description,
		IsPrivate:   !d.Public,
	}
}

func decodeRepositories(variant bitbucket.Variant, items []json.RawMessage) ([]bitbucket.Repository, error) {
	if variant == bitbucket.VariantCloud {
		raw, err := bitbucket.ItemsAs[cloudRepository](items)
		if err != nil {
			return nil, err
		}

		repos := make([]bitbucket.Repository, 0, len(raw))
		for i := range raw {
			repos = append(repos, raw[i].toRepository())
		}

		return repos, nil
	}

	raw, err := bitbucket.ItemsAs[dcRepository](items)
	if err != nil {
		return nil, err
	}

	repos := make([]bitbucket.Repository, 0, len(raw))
	for i := range raw {
		repos = append(repos, raw[i].toRepository())
	}

	return repos, nil
}

// List implements bitbucket.RepositoriesClient.List.
func (r *RepositoriesClient) List(ctx context.Context, workspace string, opts *bitbucket.ListOptions) ([]bitbucket.Repository, error) {
	path, err := r.client.paths.Resolve(bitbucket.OpListRepositories, bitbucket.Ref{Workspace: workspace})
	if err != nil {
		return nil, err
	}

	page, err := r.client.GetPaginated(ctx, path, r.client.pageRequest(opts))
	if err != nil {
		return nil, fmt.Errorf("listing repositories: %w", err)
	}

	return decodeRepositories(r.client.variant, page.Items)
}

// Get implements bitbucket.RepositoriesClient.Get.
func (r *RepositoriesClient) Get(ctx context.Context, workspace, repo string) (*bitbucket.Repository, error) {
	path, err := r.client.paths.Resolve(bitbucket.OpGetRepository, bitbucket.Ref{Workspace: workspace, Repo: repo})
	if err != nil {
		return nil, err
	}

	body, err := r.client.Get(ctx, path, nil)
	if err != nil {
		return nil, fmt.Errorf("getting repository: %w", err)
	}

	if r.client.variant == bitbucket.VariantCloud {
		var raw cloudRepository
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("parsing repository response: %w", err)
		}

		result := raw.toRepository()

		return &result, nil
	}

	var raw dcRepository
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parsing repository response: %w", err)
	}

	result := raw.toRepository()

	return &result, nil
}

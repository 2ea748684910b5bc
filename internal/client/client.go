// Package client implements the bitbucket.Client facade and the
// per-resource clients on top of the resilient HTTP executor.
package client

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/forgebridge/bitbucket-mcp/internal/httpclient"
	"github.com/forgebridge/bitbucket-mcp/pkg/bitbucket"
)

// Client implements the bitbucket.Client interface.
type Client struct {
	httpClient *httpclient.Client
	variant    bitbucket.Variant
	paths      bitbucket.PathResolver
	logger     bitbucket.Logger

	// Resource clients
	repositories bitbucket.RepositoriesClient
	pullRequests bitbucket.PullRequestsClient
	comments     bitbucket.CommentsClient
	tasks        bitbucket.TasksClient
}

// normalizeBaseURL applies the scheme default and routes Cloud traffic to the
// API host.
func normalizeBaseURL(raw string, variant bitbucket.Variant) string {
	base := strings.TrimSuffix(raw, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}

	if variant == bitbucket.VariantCloud && strings.Contains(base, "://bitbucket.org") {
		base = strings.Replace(base, "://bitbucket.org", "://api.bitbucket.org", 1)
	}

	return base
}

// buildRetryPolicy merges config overrides into the default policy.
func buildRetryPolicy(config *bitbucket.Config) bitbucket.RetryPolicy {
	policy := bitbucket.DefaultRetryPolicy()

	if config.RetryMax > 0 {
		policy.MaxRetries = config.RetryMax
	}

	if config.RetryBaseDelay > 0 {
		policy.BaseDelay = config.RetryBaseDelay
	}

	if len(config.RetryableStatuses) > 0 {
		policy.Statuses = config.RetryableStatuses
	}

	return policy
}

// buildHTTPOptions builds executor options from config.
func buildHTTPOptions(config *bitbucket.Config) []httpclient.Option {
	opts := []httpclient.Option{
		httpclient.WithRetryPolicy(buildRetryPolicy(config)),
	}

	if config.Logger != nil {
		opts = append(opts, httpclient.WithLogger(config.Logger))
	}

	if config.Debug {
		opts = append(opts, httpclient.WithDebug(true))
	}

	if config.UserAgent != "" {
		opts = append(opts, httpclient.WithUserAgent(config.UserAgent))
	}

	if config.RequestTimeout > 0 {
		opts = append(opts, httpclient.WithRequestTimeout(config.RequestTimeout))
	}

	if config.HTTPClient != nil {
		opts = append(opts, httpclient.WithHTTPClient(config.HTTPClient))
	}

	return opts
}

// New creates a client for the configured Bitbucket instance. The platform
// variant is fixed here, at construction, and never changes afterwards.
func New(config *bitbucket.Config) (*Client, error) {
	if config == nil {
		return nil, bitbucket.ErrConfigRequired
	}

	if config.BaseURL == "" {
		return nil, bitbucket.ErrBaseURLRequired
	}

	variant := config.Variant
	if variant == "" {
		variant = bitbucket.DetectVariant(config.BaseURL)
	}

	apiBase := normalizeBaseURL(config.BaseURL, variant) + variant.APIPrefix()

	client := &Client{
		httpClient: httpclient.New(apiBase, config.AuthToken, buildHTTPOptions(config)...),
		variant:    variant,
		paths:      bitbucket.NewPathResolver(variant),
		logger:     config.Logger,
	}

	client.initializeResourceClients()

	return client, nil
}

// initializeResourceClients initializes all resource-specific clients.
func (c *Client) initializeResourceClients() {
	c.repositories = NewRepositoriesClient(c)
	c.pullRequests = NewPullRequestsClient(c)
	c.comments = NewCommentsClient(c)
	c.tasks = NewTasksClient(c)
}

// Variant implements bitbucket.Client.Variant.
func (c *Client) Variant() bitbucket.Variant {
	return c.variant
}

// Paths implements bitbucket.Client.Paths.
func (c *Client) Paths() bitbucket.PathResolver {
	return c.paths
}

// Get implements bitbucket.Client.Get.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	resp, err := c.httpClient.Get(ctx, path, query)
	if err != nil {
		return nil, err
	}

	return resp.Body, nil
}

// GetText implements bitbucket.Client.GetText.
func (c *Client) GetText(ctx context.Context, path string, query url.Values) (string, error) {
	return c.httpClient.GetText(ctx, path, query)
}

// Post implements bitbucket.Client.Post.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (json.RawMessage, error) {
	resp, err := c.httpClient.Post(ctx, path, body)
	if err != nil {
		return nil, err
	}

	return resp.Body, nil
}

// Put implements bitbucket.Client.Put.
func (c *Client) Put(ctx context.Context, path string, body interface{}) (json.RawMessage, error) {
	resp, err := c.httpClient.Put(ctx, path, body)
	if err != nil {
		return nil, err
	}

	return resp.Body, nil
}

// Delete implements bitbucket.Client.Delete.
func (c *Client) Delete(ctx context.Context, path string, body interface{}) error {
	_, err := c.httpClient.Delete(ctx, path, body)

	return err
}

// FetchPage implements bitbucket.PageFetcher for the pagination engine.
func (c *Client) FetchPage(ctx context.Context, pathOrURL string, query url.Values) ([]byte, error) {
	resp, err := c.httpClient.Get(ctx, pathOrURL, query)
	if err != nil {
		return nil, err
	}

	return resp.Body, nil
}

// GetPaginated implements bitbucket.Client.GetPaginated. Fetch-all is only
// honored when no explicit page was requested.
func (c *Client) GetPaginated(ctx context.Context, path string, req bitbucket.PageRequest) (*bitbucket.Page, error) {
	if req.All && req.Page == 0 {
		items, err := bitbucket.FetchAll(ctx, c, c.variant, path, req)
		if err != nil {
			return nil, err
		}

		return &bitbucket.Page{Items: items, Size: len(items)}, nil
	}

	return bitbucket.FetchPage(ctx, c, c.variant, path, req)
}

// pageRequest translates ListOptions into a PageRequest, resolving the
// dialect's filter query key.
func (c *Client) pageRequest(opts *bitbucket.ListOptions) bitbucket.PageRequest {
	if opts == nil {
		return bitbucket.PageRequest{}
	}

	req := bitbucket.PageRequest{
		PageSize: opts.PageSize,
		Page:     opts.Page,
		All:      opts.All,
	}

	if opts.Filter != "" {
		req.Query = url.Values{c.paths.FilterParam(): []string{opts.Filter}}
	}

	return req
}

// Resource client accessors

// Repositories implements bitbucket.Client.Repositories.
func (c *Client) Repositories() bitbucket.RepositoriesClient {
	return c.repositories
}

// PullRequests implements bitbucket.Client.PullRequests.
func (c *Client) PullRequests() bitbucket.PullRequestsClient {
	return c.pullRequests
}

// Comments implements bitbucket.Client.Comments.
func (c *Client) Comments() bitbucket.CommentsClient {
	return c.comments
}

// Tasks implements bitbucket.Client.Tasks.
func (c *Client) Tasks() bitbucket.TasksClient {
	return c.tasks
}

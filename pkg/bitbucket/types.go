package bitbucket

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

// Variant identifies which Bitbucket REST dialect a client talks to.
type Variant string

const (
	// VariantCloud is bitbucket.org (API v2.0).
	VariantCloud Variant = "cloud"

	// VariantDataCenter is a self-hosted Bitbucket Data Center or Server
	// instance (REST API 1.0).
	VariantDataCenter Variant = "datacenter"
)

// APIPrefix returns the path prefix the variant's REST API lives under.
func (v Variant) APIPrefix() string {
	if v == VariantCloud {
		return "/2.0"
	}

	return "/rest/api/1.0"
}

// DetectVariant infers the platform variant from a base URL. Anything hosted
// on bitbucket.org is Cloud; everything else is assumed to be Data Center.
func DetectVariant(baseURL string) Variant {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(baseURL, "https://"), "http://")
	host := strings.SplitN(trimmed, "/", 2)[0]

	if host == "bitbucket.org" || strings.HasSuffix(host, ".bitbucket.org") {
		return VariantCloud
	}

	return VariantDataCenter
}

// Static errors for err113 compliance.
var (
	ErrConfigRequired  = errors.New("config is required")
	ErrBaseURLRequired = errors.New("base URL is required")
)

// Config holds the immutable settings a client is constructed with.
type Config struct {
	// BaseURL is the root of the Bitbucket instance, without the API prefix
	// (e.g. "https://bitbucket.org" or "https://git.example.com").
	BaseURL string

	// AuthToken is forwarded as a bearer token on every request.
	AuthToken string

	// Variant overrides URL-based detection when set.
	Variant Variant

	// Retry tuning. Zero values fall back to DefaultRetryPolicy.
	RetryMax          int
	RetryBaseDelay    time.Duration
	RetryableStatuses []int

	// RequestTimeout bounds each call when the caller's context carries no
	// deadline of its own.
	RequestTimeout time.Duration

	Logger    Logger
	Debug     bool
	UserAgent string

	// HTTPClient replaces the default transport when set (tests, proxies).
	HTTPClient *http.Client
}

// Logger is the minimal logging interface the client writes through.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Repository is the subset of repository fields the tools surface.
type Repository struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	FullName    string `json:"full_name,omitempty"`
	Description string `json:"description,omitempty"`
	IsPrivate   bool   `json:"is_private,omitempty"`
}

// PullRequest is the subset of pull request fields the tools surface.
// Version is only populated on Data Center, where mutating calls must echo
// it back (optimistic concurrency).
type PullRequest struct {
	ID           int    `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	State        string `json:"state,omitempty"`
	Author       string `json:"author,omitempty"`
	SourceBranch string `json:"source_branch,omitempty"`
	TargetBranch string `json:"target_branch,omitempty"`
	Version      int    `json:"version,omitempty"`
}

// Comment is a pull request comment. Version follows the same Data Center
// optimistic-concurrency rule as PullRequest.
type Comment struct {
	ID       int    `json:"id"`
	Text     string `json:"text"`
	Author   string `json:"author,omitempty"`
	Version  int    `json:"version,omitempty"`
	Resolved bool   `json:"resolved,omitempty"`
	FilePath string `json:"file_path,omitempty"`
	Line     int    `json:"line,omitempty"`
}

// Task is a pull request task. On Data Center the same logical resource is
// a blocker comment whose state is OPEN or RESOLVED.
type Task struct {
	ID      int    `json:"id"`
	Text    string `json:"text"`
	State   string `json:"state"`
	Version int    `json:"version,omitempty"`
}

// Task states shared by both dialects.
const (
	TaskStateOpen     = "OPEN"
	TaskStateResolved = "RESOLVED"
)

package bitbucket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// Pagination limits.
const (
	// MinPageSize and MaxPageSize bound the requested page size.
	MinPageSize = 1
	MaxPageSize = 100

	// DefaultCloudPageSize and DefaultDCPageSize are each dialect's own
	// server-side default, applied when the caller leaves PageSize unset.
	DefaultCloudPageSize = 10
	DefaultDCPageSize    = 25

	// FetchAllLimit caps accumulated fetch-all results. Reaching it is a
	// success, not an error: the loop stops and returns what it has.
	FetchAllLimit = 1000
)

// PageRequest describes one paginated list call. Created per call and not
// retained; accumulation progress lives in Page values, not in mutated
// request state.
type PageRequest struct {
	// PageSize is clamped to [MinPageSize, MaxPageSize]; zero selects the
	// dialect default.
	PageSize int

	// Page requests one specific page (1-based). When set, All is ignored:
	// explicit pagination always wins over auto-accumulation.
	Page int

	// All requests accumulation across pages, capped at FetchAllLimit.
	All bool

	// Query carries extra parameters (filters) merged into every page fetch.
	Query url.Values
}

// Page is one fetched page. Next is the opaque continuation: the full "next"
// URL on Cloud, the server-reported next start offset on Data Center. An
// empty Next means no more pages.
type Page struct {
	Items []json.RawMessage
	Next  string
	Size  int
}

// PageFetcher performs one GET and returns the raw response body. pathOrURL
// is either a relative API path or an absolute continuation URL to follow
// verbatim. Implemented by the client facade.
type PageFetcher interface {
	FetchPage(ctx context.Context, pathOrURL string, query url.Values) ([]byte, error)
}

// cloudListBody is the Cloud page envelope.
type cloudListBody struct {
	Values []json.RawMessage `json:"values"`
	Next   string            `json:"next,omitempty"`
	Size   int               `json:"size,omitempty"`
}

// offsetListBody is the Data Center page envelope.
type offsetListBody struct {
	Values        []json.RawMessage `json:"values"`
	IsLastPage    bool              `json:"isLastPage"`
	NextPageStart *int              `json:"nextPageStart,omitempty"`
	Size          int               `json:"size,omitempty"`
}

// normalizePageSize applies the dialect default and clamps to the allowed
// range.
func normalizePageSize(variant Variant, size int) int {
	if size == 0 {
		if variant == VariantCloud {
			return DefaultCloudPageSize
		}

		return DefaultDCPageSize
	}

	if size < MinPageSize {
		return MinPageSize
	}

	if size > MaxPageSize {
		return MaxPageSize
	}

	return size
}

func cloneValues(src url.Values) url.Values {
	dst := url.Values{}
	for key, vals := range src {
		dst[key] = append([]string(nil), vals...)
	}

	return dst
}

// FetchPage fetches exactly one page of a list endpoint.
func FetchPage(ctx context.Context, fetcher PageFetcher, variant Variant, path string, req PageRequest) (*Page, error) {
	size := normalizePageSize(variant, req.PageSize)
	query := cloneValues(req.Query)

	if variant == VariantCloud {
		query.Set("pagelen", strconv.Itoa(size))

		if req.Page > 0 {
			query.Set("page", strconv.Itoa(req.Page))
		}
	} else {
		query.Set("limit", strconv.Itoa(size))

		if req.Page > 0 {
			query.Set("start", strconv.Itoa((req.Page-1)*size))
		}
	}

	body, err := fetcher.FetchPage(ctx, path, query)
	if err != nil {
		return nil, err
	}

	return decodePage(variant, body)
}

// followPage fetches the page after a continuation token. Cursor-style
// continuations are followed verbatim; offset-style continuations use the
// server-reported start, never a recomputed one.
func followPage(ctx context.Context, fetcher PageFetcher, variant Variant, path string, req PageRequest, next string) (*Page, error) {
	if variant == VariantCloud {
		body, err := fetcher.FetchPage(ctx, next, nil)
		if err != nil {
			return nil, err
		}

		return decodePage(variant, body)
	}

	query := cloneValues(req.Query)
	query.Set("limit", strconv.Itoa(normalizePageSize(variant, req.PageSize)))
	query.Set("start", next)

	body, err := fetcher.FetchPage(ctx, path, query)
	if err != nil {
		return nil, err
	}

	return decodePage(variant, body)
}

func decodePage(variant Variant, body []byte) (*Page, error) {
	if variant == VariantCloud {
		var list cloudListBody
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, fmt.Errorf("parsing page response: %w", err)
		}

		return &Page{Items: list.Values, Next: list.Next, Size: list.Size}, nil
	}

	var list offsetListBody
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("parsing page response: %w", err)
	}

	page := &Page{Items: list.Values, Size: list.Size}
	if !list.IsLastPage && list.NextPageStart != nil {
		page.Next = strconv.Itoa(*list.NextPageStart)
	}

	return page, nil
}

// FetchAll drives FetchPage across continuations, accumulating up to
// FetchAllLimit items. An explicit page number in the request disables
// accumulation: exactly one page is fetched.
func FetchAll(ctx context.Context, fetcher PageFetcher, variant Variant, path string, req PageRequest) ([]json.RawMessage, error) {
	if req.Page > 0 {
		page, err := FetchPage(ctx, fetcher, variant, path, req)
		if err != nil {
			return nil, err
		}

		return page.Items, nil
	}

	page, err := FetchPage(ctx, fetcher, variant, path, req)
	if err != nil {
		return nil, err
	}

	var items []json.RawMessage

	for {
		items = append(items, page.Items...)

		if len(items) >= FetchAllLimit {
			items = items[:FetchAllLimit]
			break
		}

		if page.Next == "" {
			break
		}

		page, err = followPage(ctx, fetcher, variant, path, req, page.Next)
		if err != nil {
			return nil, err
		}
	}

	return items, nil
}

// ItemsAs decodes raw page items into concrete values.
func ItemsAs[T any](items []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(items))

	for _, raw := range items {
		var val T
		if err := json.Unmarshal(raw, &val); err != nil {
			return nil, fmt.Errorf("parsing list item: %w", err)
		}

		out = append(out, val)
	}

	return out, nil
}

package rest

import (
	"context"
	"fmt"

	"github.com/gered/go-hl7-fhir/model"
)

// NextPageURL returns the href of the bundle's "next" link. An empty string
// means the bundle is the last page; this is the sole termination signal for
// pagination.
func NextPageURL(bundle model.Resource) string {
	return bundle.LinkHref(model.LinkRelNext)
}

// FetchNextPage retrieves the page following the given bundle, or nil when
// there is no next page.
func (c *Client) FetchNextPage(ctx context.Context, bundle model.Resource, opts ...CallOption) (model.Resource, error) {
	next := NextPageURL(bundle)
	if next == "" {
		return nil, nil
	}
	o := applyOptions(opts)

	resp, err := c.get(ctx, next, mergeOptions(c.Options, o.reqOpts))
	if err != nil {
		return nil, err
	}
	if resp.Resource == nil {
		return nil, fmt.Errorf("next page at %s was not a FHIR JSON payload", next)
	}
	return resp.Resource, nil
}

// FetchAll walks a paged result set to completion, starting from the given
// bundle. Pages are fetched strictly sequentially — each page's continuation
// depends on the previous response — and their entries are concatenated in
// page-arrival order into one merged bundle. The merged bundle keeps no
// pagination links (first/last/next/previous); other links, notably
// fhir-base, survive.
//
// Termination relies entirely on the server eventually omitting the next
// link. Use [WithMaxPages] to guard against servers that never do; exceeding
// the limit is an error.
func (c *Client) FetchAll(ctx context.Context, bundle model.Resource, opts ...CallOption) (model.Resource, error) {
	o := applyOptions(opts)

	entries := append([]any(nil), rawEntries(bundle)...)
	page := bundle
	fetched := 1
	for NextPageURL(page) != "" {
		if o.maxPages > 0 && fetched >= o.maxPages {
			return nil, fmt.Errorf("pagination did not terminate within %d pages", o.maxPages)
		}
		next, err := c.FetchNextPage(ctx, page, opts...)
		if err != nil {
			return nil, err
		}
		entries = append(entries, rawEntries(next)...)
		page = next
		fetched++
	}

	merged := make(model.Resource, len(page)+1)
	for k, v := range page {
		merged[k] = v
	}
	merged["entry"] = entries
	merged["link"] = stripPaginationLinks(page)
	return merged, nil
}

func rawEntries(bundle model.Resource) []any {
	entries, _ := bundle["entry"].([]any)
	return entries
}

var paginationRels = map[string]bool{
	model.LinkRelFirst:    true,
	model.LinkRelLast:     true,
	model.LinkRelNext:     true,
	model.LinkRelPrevious: true,
}

func stripPaginationLinks(bundle model.Resource) []any {
	raw, _ := bundle["link"].([]any)
	links := make([]any, 0, len(raw))
	for _, l := range raw {
		if m, ok := l.(map[string]any); ok {
			if rel, _ := m["rel"].(string); paginationRels[rel] {
				continue
			}
		}
		links = append(links, l)
	}
	return links
}

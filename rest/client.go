// Package rest implements the client side of the FHIR REST protocol over
// JSON payloads.
//
// A [Client] issues one blocking network call per logical FHIR operation
// (read, search, create, update, delete, transaction) against a server base
// URL. Resources are opaque [model.Resource] values; this package never
// inspects clinical content beyond the structural resource/bundle predicates.
//
// Every outbound request declares "Accept: application/json+fhir". Non-2xx
// responses surface as [*Error]; structurally invalid caller input surfaces
// as [*ValidationError] before any network call. Nothing is retried.
//
// Request options (credentials, extra headers, TLS trust bypass) are carried
// explicitly: either once on the Client or per call via [WithRequestOptions].
// There is no ambient request state, so a Client is safe for concurrent use.
package rest

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/gered/go-hl7-fhir/model"
	"github.com/gered/go-hl7-fhir/rest/internal/encoding"
	"github.com/gered/go-hl7-fhir/search"
)

// Auth carries request credentials. A non-empty Token is sent as a bearer
// token; otherwise Username/Password are sent as HTTP basic auth.
type Auth struct {
	Username string
	Password string
	Token    string
}

// RequestOptions decorates outbound requests. Options never override the
// protocol-mandated Accept and Content-Type headers.
type RequestOptions struct {
	Auth    *Auth
	Headers map[string]string
	// InsecureSkipVerify disables TLS certificate verification for the
	// request. Only for servers with self-signed test certificates.
	InsecureSkipVerify bool
}

// Client is a FHIR REST client bound to one server base URL.
//
// The zero value of every field except BaseURL is usable: Client falls back
// to http.DefaultClient and empty request options.
type Client struct {
	BaseURL *url.URL
	// Client is the underlying HTTP transport. Timeouts and cancellation
	// are entirely its concern (plus the per-call context).
	Client *http.Client
	// Options apply to every request made by this client. Per-call options
	// passed via WithRequestOptions are merged on top.
	Options RequestOptions
}

// Request is one unified FHIR wire operation, dispatched by [Client.Do].
// The operation layer (Read, Search, Create, ...) builds these; callers
// normally never need to.
type Request struct {
	Method string
	// Path is relative to the client's base URL; empty addresses the
	// server root (transactions).
	Path  string
	Query url.Values
	// Body is sent as an application/json+fhir payload.
	Body model.Resource
	// Form, when set, is sent URL-encoded as the POST body instead of a
	// query string. Search uses this to avoid URL length limits.
	Form url.Values
	// NoFollowLocation suppresses the follow-up GET normally issued when
	// a 2xx response carries a Location header.
	NoFollowLocation bool
}

// Response is the decoded outcome of a successful dispatch. At most one of
// Resource or Body is populated; Location is set whenever the server
// provided one.
type Response struct {
	Resource model.Resource
	Body     string
	Location string
}

// Do builds, dispatches and decodes one FHIR wire operation.
//
// On a 2xx response with a Location header, Do issues a follow-up GET to the
// location and returns its decoded body — unless req.NoFollowLocation is
// set, in which case the raw location string is returned, except when the
// response itself already carried a FHIR JSON payload, which wins. A non-2xx
// response returns a [*Error]. Transport failures are passed through
// unmodified.
func (c *Client) Do(ctx context.Context, req Request, opts RequestOptions) (*Response, error) {
	if c.BaseURL == nil {
		return nil, fmt.Errorf("base URL is nil")
	}

	u := c.BaseURL.JoinPath(req.Path)

	var body io.Reader
	contentType := ""
	switch {
	case req.Form != nil:
		// the compiled query becomes the POST body instead of the query
		// string
		body = bytes.NewBufferString(req.Form.Encode())
		contentType = encoding.MediaTypeForm
	case req.Body != nil:
		buf := &bytes.Buffer{}
		if err := encoding.Encode(buf, req.Body); err != nil {
			return nil, fmt.Errorf("marshal resource: %w", err)
		}
		body = buf
		contentType = encoding.MediaTypeFHIRJSON
	}
	if req.Form == nil && len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}

	merged := mergeOptions(c.Options, opts)

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	decorateRequest(httpReq, merged)
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	requestID := httpReq.Header.Get("X-Request-Id")
	slog.Debug("fhir request", "method", req.Method, "url", u.String(), "requestId", requestID)

	resp, err := c.transportFor(merged).Do(httpReq)
	if err != nil {
		// transport errors pass through unmodified
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Error("fhir request failed", "method", req.Method, "url", u.String(),
			"status", resp.StatusCode, "requestId", requestID)
		return nil, protocolError(resp.StatusCode, resp.Header.Get("Content-Type"), raw)
	}

	location := resp.Header.Get("Location")
	if location != "" && !req.NoFollowLocation {
		followed, err := c.get(ctx, location, merged)
		if err != nil {
			return nil, err
		}
		followed.Location = location
		return followed, nil
	}

	result := &Response{Location: location}
	if isFHIRBody(resp.Header.Get("Content-Type"), raw) {
		resource, err := encoding.DecodeResource(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("parse response: %w", err)
		}
		result.Resource = resource
	} else if location == "" {
		result.Body = string(raw)
	}
	return result, nil
}

// get issues a raw GET against an absolute URL, decorated with the usual
// accept header and options. Used for Location follow-ups and page fetches.
func (c *Client) get(ctx context.Context, absoluteURL string, opts RequestOptions) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, absoluteURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	decorateRequest(httpReq, opts)

	resp, err := c.transportFor(opts).Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Error("fhir request failed", "method", http.MethodGet, "url", absoluteURL,
			"status", resp.StatusCode)
		return nil, protocolError(resp.StatusCode, resp.Header.Get("Content-Type"), raw)
	}

	result := &Response{}
	if isFHIRBody(resp.Header.Get("Content-Type"), raw) {
		resource, err := encoding.DecodeResource(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("parse response: %w", err)
		}
		result.Resource = resource
	} else {
		result.Body = string(raw)
	}
	return result, nil
}

func isFHIRBody(contentType string, raw []byte) bool {
	return encoding.IsFHIRJSON(contentType) && len(bytes.TrimSpace(raw)) > 0
}

func protocolError(status int, contentType string, raw []byte) *Error {
	if encoding.IsFHIRJSON(contentType) && len(bytes.TrimSpace(raw)) > 0 {
		if outcome, err := encoding.DecodeResource(bytes.NewReader(raw)); err == nil {
			return &Error{StatusCode: status, IsFHIRResponse: true, Outcome: outcome}
		}
	}
	return &Error{StatusCode: status, Body: string(raw)}
}

// decorateRequest applies caller options and the protocol-mandated headers.
// Extra headers go first so they can never clobber Accept or the request id.
func decorateRequest(req *http.Request, opts RequestOptions) {
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Accept", encoding.MediaTypeFHIRJSON)
	req.Header.Set("X-Request-Id", uuid.NewString())
	if opts.Auth != nil {
		if opts.Auth.Token != "" {
			req.Header.Set("Authorization", "Bearer "+opts.Auth.Token)
		} else if opts.Auth.Username != "" {
			req.SetBasicAuth(opts.Auth.Username, opts.Auth.Password)
		}
	}
}

func mergeOptions(base, override RequestOptions) RequestOptions {
	merged := RequestOptions{
		Auth:               base.Auth,
		InsecureSkipVerify: base.InsecureSkipVerify || override.InsecureSkipVerify,
	}
	if override.Auth != nil {
		merged.Auth = override.Auth
	}
	if len(base.Headers)+len(override.Headers) > 0 {
		merged.Headers = make(map[string]string, len(base.Headers)+len(override.Headers))
		for k, v := range base.Headers {
			merged.Headers[k] = v
		}
		for k, v := range override.Headers {
			merged.Headers[k] = v
		}
	}
	return merged
}

// transportFor returns the HTTP client to dispatch with, cloning the
// configured one with certificate verification disabled when requested.
func (c *Client) transportFor(opts RequestOptions) *http.Client {
	base := c.Client
	if base == nil {
		base = http.DefaultClient
	}
	if !opts.InsecureSkipVerify {
		return base
	}

	var transport *http.Transport
	if t, ok := base.Transport.(*http.Transport); ok {
		transport = t.Clone()
	} else {
		transport = &http.Transport{}
	}
	if transport.TLSClientConfig == nil {
		transport.TLSClientConfig = &tls.Config{}
	}
	transport.TLSClientConfig.InsecureSkipVerify = true

	return &http.Client{
		Transport:     transport,
		CheckRedirect: base.CheckRedirect,
		Jar:           base.Jar,
		Timeout:       base.Timeout,
	}
}

// CallOption adjusts a single operation call.
type CallOption func(*callOptions)

type callOptions struct {
	version    string
	noResource bool
	params     url.Values
	reqOpts    RequestOptions
	maxPages   int
}

func applyOptions(opts []CallOption) callOptions {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithVersion addresses a specific historical version of a resource
// (FHIR vread). Applies to Read and Update.
func WithVersion(version string) CallOption {
	return func(o *callOptions) { o.version = version }
}

// WithoutResource makes Create and Update return the resulting resource's
// location instead of fetching the resource back.
func WithoutResource() CallOption {
	return func(o *callOptions) { o.noResource = true }
}

// WithParams merges ad hoc query parameters into a Search call, alongside
// the compiled predicate groups.
func WithParams(params url.Values) CallOption {
	return func(o *callOptions) { o.params = params }
}

// WithRequestOptions applies per-call request options on top of the
// client-level ones.
func WithRequestOptions(opts RequestOptions) CallOption {
	return func(o *callOptions) { o.reqOpts = opts }
}

// WithMaxPages bounds FetchAll against servers that never run out of next
// links. Zero means unbounded.
func WithMaxPages(n int) CallOption {
	return func(o *callOptions) { o.maxPages = n }
}

// Read retrieves a resource by type and id. The type name may be given in
// canonical ("DiagnosticReport") or keyword ("diagnostic-report") form.
// An absent (404) or deleted (410) resource yields nil with no error; use
// [Client.Deleted] to tell the two apart. Pass [WithVersion] for a vread.
func (c *Client) Read(ctx context.Context, resourceType, id string, opts ...CallOption) (model.Resource, error) {
	o := applyOptions(opts)
	locator := model.ResourceLocator{Type: model.CanonicalTypeName(resourceType), ID: id, Version: o.version}

	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: locator.RelativePath()}, o.reqOpts)
	if err != nil {
		var protoErr *Error
		if errors.As(err, &protoErr) &&
			(protoErr.StatusCode == http.StatusNotFound || protoErr.StatusCode == http.StatusGone) {
			return nil, nil
		}
		return nil, err
	}
	return resp.Resource, nil
}

// ReadBundle retrieves a resource pre-wrapped in a search bundle via the _id
// parameter. Unlike Read it never returns nil: an absent resource yields a
// bundle with zero entries.
func (c *Client) ReadBundle(ctx context.Context, resourceType, id string, opts ...CallOption) (model.Resource, error) {
	return c.Search(ctx, resourceType, []search.Group{search.Eq(search.Key("_id"), id)}, opts...)
}

// Search runs a search against a resource type and returns the result
// bundle. It always dispatches as a form-encoded POST to Type/_search so
// large predicate sets cannot overrun URL length limits. Predicate groups
// and any [WithParams] extras contribute to the same parameter mapping;
// repeated names accumulate.
func (c *Client) Search(ctx context.Context, resourceType string, groups []search.Group, opts ...CallOption) (model.Resource, error) {
	o := applyOptions(opts)

	form := search.Compile(groups...)
	for name, values := range o.params {
		form[name] = append(form[name], values...)
	}

	path := model.CanonicalTypeName(resourceType) + "/_search"
	resp, err := c.Do(ctx, Request{Method: http.MethodPost, Path: path, Form: form}, o.reqOpts)
	if err != nil {
		return nil, err
	}
	return resp.Resource, nil
}

// Create stores a new resource. By default the server's copy of the created
// resource is returned (following the Location header when necessary); with
// [WithoutResource] only the location is reported back. The returned
// location is the created resource's canonical URL when the server provided
// one.
func (c *Client) Create(ctx context.Context, resourceType string, resource model.Resource, opts ...CallOption) (model.Resource, string, error) {
	if !resource.IsResource() {
		return nil, "", &ValidationError{Reason: "not a valid FHIR resource"}
	}
	o := applyOptions(opts)

	req := Request{
		Method:           http.MethodPost,
		Path:             model.CanonicalTypeName(resourceType),
		Body:             resource,
		NoFollowLocation: o.noResource,
	}
	resp, err := c.Do(ctx, req, o.reqOpts)
	if err != nil {
		return nil, "", err
	}
	return resp.Resource, resp.Location, nil
}

// Update stores a new version of an existing resource. Pass [WithVersion]
// to make the update contingent on a specific current version; a mismatch
// surfaces as the server's conflict error, not a special case here.
// Resource/location return semantics match [Client.Create].
func (c *Client) Update(ctx context.Context, resourceType, id string, resource model.Resource, opts ...CallOption) (model.Resource, string, error) {
	if !resource.IsResource() {
		return nil, "", &ValidationError{Reason: "not a valid FHIR resource"}
	}
	o := applyOptions(opts)
	locator := model.ResourceLocator{Type: model.CanonicalTypeName(resourceType), ID: id, Version: o.version}

	req := Request{
		Method:           http.MethodPut,
		Path:             locator.RelativePath(),
		Body:             resource,
		NoFollowLocation: o.noResource,
	}
	resp, err := c.Do(ctx, req, o.reqOpts)
	if err != nil {
		return nil, "", err
	}
	return resp.Resource, resp.Location, nil
}

// Delete removes a resource. Success returns nil; servers that respond with
// an OperationOutcome have it passed through unchanged.
func (c *Client) Delete(ctx context.Context, resourceType, id string, opts ...CallOption) (model.Resource, error) {
	o := applyOptions(opts)
	locator := model.ResourceLocator{Type: model.CanonicalTypeName(resourceType), ID: id}

	resp, err := c.Do(ctx, Request{Method: http.MethodDelete, Path: locator.RelativePath()}, o.reqOpts)
	if err != nil {
		return nil, err
	}
	return resp.Resource, nil
}

// Deleted reports whether a resource once existed and has been deleted
// (410). An id that never existed (404) and a readable resource both report
// false. Any other failure propagates.
func (c *Client) Deleted(ctx context.Context, resourceType, id string, opts ...CallOption) (bool, error) {
	o := applyOptions(opts)
	locator := model.ResourceLocator{Type: model.CanonicalTypeName(resourceType), ID: id}

	_, err := c.Do(ctx, Request{Method: http.MethodGet, Path: locator.RelativePath()}, o.reqOpts)
	if err != nil {
		var protoErr *Error
		if errors.As(err, &protoErr) {
			switch protoErr.StatusCode {
			case http.StatusGone:
				return true, nil
			case http.StatusNotFound:
				return false, nil
			}
		}
		return false, err
	}
	return false, nil
}

// Transaction posts a bundle of operations to the server root and returns
// the server's response bundle.
func (c *Client) Transaction(ctx context.Context, bundle model.Resource, opts ...CallOption) (model.Resource, error) {
	if !bundle.IsBundle() {
		return nil, &ValidationError{Reason: "not a valid FHIR bundle"}
	}
	o := applyOptions(opts)

	resp, err := c.Do(ctx, Request{Method: http.MethodPost, Body: bundle}, o.reqOpts)
	if err != nil {
		return nil, err
	}
	return resp.Resource, nil
}

// Metadata retrieves the server's capability statement.
func (c *Client) Metadata(ctx context.Context, opts ...CallOption) (model.Resource, error) {
	o := applyOptions(opts)
	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: "metadata"}, o.reqOpts)
	if err != nil {
		return nil, err
	}
	return resp.Resource, nil
}

// History retrieves the version history bundle for a resource instance.
// Deleted versions appear as entries without content.
func (c *Client) History(ctx context.Context, resourceType, id string, opts ...CallOption) (model.Resource, error) {
	o := applyOptions(opts)
	path := fmt.Sprintf("%s/%s/_history", model.CanonicalTypeName(resourceType), id)

	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: path}, o.reqOpts)
	if err != nil {
		return nil, err
	}
	return resp.Resource, nil
}

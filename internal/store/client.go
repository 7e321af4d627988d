package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/itinera-app/backend/internal/domain"
)

// defaultBaseURL is the document store's REST endpoint.
const defaultBaseURL = "https://firestore.googleapis.com/v1"

// TokenSource mints a bearer token for a single store call. Defined here,
// in the consumer package, so the client can be tested with a stub instead
// of the real auth flow.
type TokenSource interface {
	Mint(ctx context.Context) (string, error)
}

// Client performs create, patch, and get operations against one collection.
// Every call mints a fresh token from its TokenSource; nothing is cached.
type Client struct {
	baseURL    string
	projectID  string
	collection string
	tokens     TokenSource
	httpClient *http.Client
}

// NewClient constructs a Client for the given project and collection.
func NewClient(projectID, collection string, tokens TokenSource) *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		projectID:  projectID,
		collection: collection,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// CreateDocument writes a new document under the given id. The store rejects
// a duplicate id; this client does not distinguish that case from other
// write failures — both surface as domain.ErrStore.
func (c *Client) CreateDocument(ctx context.Context, id string, doc map[string]any) error {
	fields, err := encodeFields(doc)
	if err != nil {
		return err
	}
	u := fmt.Sprintf("%s?documentId=%s", c.collectionURL(), url.QueryEscape(id))
	resp, err := c.do(ctx, http.MethodPost, u, document{Fields: fields})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if !success(resp) {
		return fmt.Errorf("%w: create returned %d: %s", domain.ErrStore, resp.StatusCode, bodySnippet(resp))
	}
	return nil
}

// PatchDocument applies a partial update. The write mask is exactly the key
// set of partial, so fields absent from the map are left untouched
// server-side. Applying the same patch twice yields the same document.
func (c *Client) PatchDocument(ctx context.Context, id string, partial map[string]any) error {
	fields, err := encodeFields(partial)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(partial))
	for k := range partial {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	q := url.Values{}
	for _, k := range keys {
		q.Add("updateMask.fieldPaths", k)
	}

	u := fmt.Sprintf("%s?%s", c.documentURL(id), q.Encode())
	resp, err := c.do(ctx, http.MethodPatch, u, document{Fields: fields})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if !success(resp) {
		return fmt.Errorf("%w: patch returned %d: %s", domain.ErrStore, resp.StatusCode, bodySnippet(resp))
	}
	return nil
}

// GetDocument reads and decodes the document with the given id. Any
// non-success read maps to domain.ErrNotFound — the store does not let this
// client distinguish "does not exist" from other read failures.
func (c *Client) GetDocument(ctx context.Context, id string) (map[string]any, error) {
	resp, err := c.do(ctx, http.MethodGet, c.documentURL(id), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if !success(resp) {
		return nil, fmt.Errorf("%w: document %q", domain.ErrNotFound, id)
	}

	var doc document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode document %q: %v", domain.ErrStore, id, err)
	}

	out := make(map[string]any, len(doc.Fields))
	for k, v := range doc.Fields {
		out[k] = Decode(v)
	}
	return out, nil
}

// document is the wire envelope for reads and writes.
type document struct {
	Fields map[string]Value `json:"fields"`
}

// do mints a token and issues one authorized request.
func (c *Client) do(ctx context.Context, method, u string, body any) (*http.Response, error) {
	token, err := c.tokens.Mint(ctx)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%w: marshal request: %v", domain.ErrStore, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrStore, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	return resp, nil
}

func (c *Client) collectionURL() string {
	return fmt.Sprintf("%s/projects/%s/databases/(default)/documents/%s", c.baseURL, c.projectID, c.collection)
}

func (c *Client) documentURL(id string) string {
	return c.collectionURL() + "/" + url.PathEscape(id)
}

func encodeFields(doc map[string]any) (map[string]Value, error) {
	fields := make(map[string]Value, len(doc))
	for k, v := range doc {
		enc, err := Encode(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		fields[k] = enc
	}
	return fields, nil
}

func success(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}

// bodySnippet reads a bounded prefix of an error response for diagnostics.
func bodySnippet(resp *http.Response) string {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return string(b)
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itinera-app/backend/internal/domain"
)

// staticTokens is a TokenSource that counts mints, so tests can assert the
// one-fresh-token-per-call contract.
type staticTokens struct {
	token string
	err   error
	mints int
}

func (s *staticTokens) Mint(context.Context) (string, error) {
	s.mints++
	return s.token, s.err
}

// capturedRequest records what the fake store server saw.
type capturedRequest struct {
	method string
	path   string
	query  map[string][]string
	auth   string
	body   map[string]any
}

func newTestClient(t *testing.T, status int, respBody string, tokens *staticTokens) (*Client, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.method = r.Method
		captured.path = r.URL.Path
		captured.query = r.URL.Query()
		captured.auth = r.Header.Get("Authorization")
		if b, _ := io.ReadAll(r.Body); len(b) > 0 {
			_ = json.Unmarshal(b, &captured.body)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(respBody))
	}))
	t.Cleanup(srv.Close)

	c := NewClient("demo-project", "itineraries", tokens)
	c.baseURL = srv.URL
	return c, captured
}

// TestCreateDocument verifies the create path, the explicit documentId, the
// bearer header, and the tagged body.
func TestCreateDocument(t *testing.T) {
	tokens := &staticTokens{token: "tok-1"}
	c, captured := newTestClient(t, http.StatusOK, `{}`, tokens)

	err := c.CreateDocument(context.Background(), "job-1", map[string]any{
		"destination": "Lisbon",
		"status":      "processing",
	})

	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, captured.method)
	assert.Equal(t, "/projects/demo-project/databases/(default)/documents/itineraries", captured.path)
	assert.Equal(t, []string{"job-1"}, captured.query["documentId"])
	assert.Equal(t, "Bearer tok-1", captured.auth)
	assert.Equal(t, 1, tokens.mints)

	fields, ok := captured.body["fields"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"stringValue": "Lisbon"}, fields["destination"])
}

// TestPatchDocument verifies that the update mask is exactly the key set of
// the partial document.
func TestPatchDocument(t *testing.T) {
	tokens := &staticTokens{token: "tok-2"}
	c, captured := newTestClient(t, http.StatusOK, `{}`, tokens)

	err := c.PatchDocument(context.Background(), "job-1", map[string]any{
		"status":      "failed",
		"error":       "generation exploded",
		"completedAt": "2026-08-23T10:00:00Z",
	})

	require.NoError(t, err)
	assert.Equal(t, http.MethodPatch, captured.method)
	assert.Equal(t, "/projects/demo-project/databases/(default)/documents/itineraries/job-1", captured.path)
	assert.ElementsMatch(t, []string{"completedAt", "error", "status"}, captured.query["updateMask.fieldPaths"])
}

// TestGetDocument verifies a successful read decodes the tagged fields back
// to plain values.
func TestGetDocument(t *testing.T) {
	body := `{"name":"projects/p/databases/(default)/documents/itineraries/job-1","fields":{
		"destination":{"stringValue":"Lisbon"},
		"durationDays":{"integerValue":"3"},
		"error":{"nullValue":"NULL_VALUE"},
		"itinerary":{"arrayValue":{}}
	}}`
	c, captured := newTestClient(t, http.StatusOK, body, &staticTokens{token: "tok"})

	doc, err := c.GetDocument(context.Background(), "job-1")

	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, captured.method)
	assert.Equal(t, "Lisbon", doc["destination"])
	assert.Equal(t, int64(3), doc["durationDays"])
	assert.Nil(t, doc["error"])
	assert.Equal(t, []any{}, doc["itinerary"])
}

// TestGetDocument_nonSuccessIsNotFound verifies that any failed read maps to
// ErrNotFound; the client does not distinguish the underlying reason.
func TestGetDocument_nonSuccessIsNotFound(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusForbidden, http.StatusInternalServerError} {
		c, _ := newTestClient(t, status, `{}`, &staticTokens{token: "tok"})
		_, err := c.GetDocument(context.Background(), "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound, "status %d", status)
	}
}

// TestWrites_nonSuccessIsStoreError verifies write failures surface as
// ErrStore with the status code.
func TestWrites_nonSuccessIsStoreError(t *testing.T) {
	c, _ := newTestClient(t, http.StatusConflict, `{"error":{"status":"ALREADY_EXISTS"}}`, &staticTokens{token: "tok"})

	err := c.CreateDocument(context.Background(), "dup", map[string]any{"a": "b"})
	require.ErrorIs(t, err, domain.ErrStore)
	assert.ErrorContains(t, err, "409")

	err = c.PatchDocument(context.Background(), "dup", map[string]any{"a": "b"})
	require.ErrorIs(t, err, domain.ErrStore)
}

// TestClient_mintFailurePropagates verifies an auth failure aborts the call
// before any HTTP traffic.
func TestClient_mintFailurePropagates(t *testing.T) {
	tokens := &staticTokens{err: domain.ErrAuth}
	srvHit := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { srvHit = true }))
	defer srv.Close()

	c := NewClient("demo-project", "itineraries", tokens)
	c.baseURL = srv.URL

	_, err := c.GetDocument(context.Background(), "job-1")
	require.ErrorIs(t, err, domain.ErrAuth)
	assert.False(t, srvHit)
}

// TestClient_freshTokenPerCall verifies that each store operation mints its
// own token.
func TestClient_freshTokenPerCall(t *testing.T) {
	tokens := &staticTokens{token: "tok"}
	c, _ := newTestClient(t, http.StatusOK, `{"fields":{}}`, tokens)

	require.NoError(t, c.CreateDocument(context.Background(), "j", map[string]any{"a": "b"}))
	require.NoError(t, c.PatchDocument(context.Background(), "j", map[string]any{"a": "c"}))
	_, err := c.GetDocument(context.Background(), "j")
	require.NoError(t, err)

	assert.Equal(t, 3, tokens.mints)
}

// TestEncodeFailureAbortsWrite verifies an unencodable document never
// reaches the wire.
func TestEncodeFailureAbortsWrite(t *testing.T) {
	tokens := &staticTokens{token: "tok"}
	c, captured := newTestClient(t, http.StatusOK, `{}`, tokens)

	err := c.CreateDocument(context.Background(), "j", map[string]any{"bad": 2.5})
	require.True(t, errors.Is(err, domain.ErrEncoding))
	assert.Empty(t, captured.method)
	assert.Zero(t, tokens.mints)
}

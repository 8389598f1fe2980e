package publisher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/inkcast/inkcast/internal/service/store"
)

func testArticle() *ArticleContent {
	return &ArticleContent{
		ID:              "a-1",
		Title:           "Testing in Production",
		Content:         "<p>body</p>",
		MetaDescription: "A short summary",
		Keywords:        []string{"testing", "go"},
	}
}

func TestWordPressSelfHostedPublish(t *testing.T) {
	var gotBody map[string]interface{}
	var gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/wp-json/wp/v2/posts", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{"id": 42, "link": "https://blog.example.com/?p=42"})
	}))
	defer server.Close()

	p := NewWordPressPublisher(zap.NewNop())
	conn := &store.Connection{
		ID:         "conn-1",
		UserID:     "user-1",
		Platform:   "wordpress",
		SiteURL:    server.URL,
		Credential: store.Credential{APIKey: "admin:app-pass-word"},
		IsActive:   true,
	}

	result, err := p.Publish(context.Background(), testArticle(), conn, PublishOptions{})
	require.NoError(t, err)

	assert.Equal(t, "42", result.ExternalID)
	assert.Equal(t, "https://blog.example.com/?p=42", result.URL)
	assert.Contains(t, gotAuth, "Basic ")
	assert.Equal(t, "Testing in Production", gotBody["title"])
	assert.Equal(t, "publish", gotBody["status"])
}

func TestWordPressDraftStatus(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"id": 1})
	}))
	defer server.Close()

	p := NewWordPressPublisher(zap.NewNop())
	conn := &store.Connection{
		SiteURL:    server.URL,
		Credential: store.Credential{APIKey: "admin:pw"},
		IsActive:   true,
	}

	_, err := p.Publish(context.Background(), testArticle(), conn, PublishOptions{Draft: true})
	require.NoError(t, err)
	assert.Equal(t, "draft", gotBody["status"])
}

func TestWordPressComHostedPublish(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/wp/v2/sites/blog.example.com/posts", r.URL.Path)
		require.Equal(t, "Bearer oauth-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"id": 7})
	}))
	defer server.Close()

	p := NewWordPressPublisher(zap.NewNop())
	p.ComBaseURL = server.URL
	conn := &store.Connection{
		SiteURL:    "https://blog.example.com/some/path",
		Credential: store.Credential{AccessToken: "oauth-token"},
		IsActive:   true,
	}

	result, err := p.Publish(context.Background(), testArticle(), conn, PublishOptions{})
	require.NoError(t, err)
	assert.Equal(t, "7", result.ExternalID)
}

func TestWordPressProviderRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":"rest_no_route"}`, http.StatusNotFound)
	}))
	defer server.Close()

	p := NewWordPressPublisher(zap.NewNop())
	conn := &store.Connection{
		SiteURL:    server.URL,
		Credential: store.Credential{APIKey: "admin:pw"},
		IsActive:   true,
	}

	_, err := p.Publish(context.Background(), testArticle(), conn, PublishOptions{})

	var publishErr *PublishError
	require.ErrorAs(t, err, &publishErr)
	assert.Equal(t, http.StatusNotFound, publishErr.Status)
	assert.Contains(t, publishErr.Body, "rest_no_route")
}

func TestWordPressMalformedAppPassword(t *testing.T) {
	p := NewWordPressPublisher(zap.NewNop())
	conn := &store.Connection{
		SiteURL:    "https://blog.example.com",
		Credential: store.Credential{APIKey: "no-separator"},
		IsActive:   true,
	}

	_, err := p.Publish(context.Background(), testArticle(), conn, PublishOptions{})

	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestSplitAppPassword(t *testing.T) {
	user, pass, err := splitAppPassword("admin:secret:with:colons")
	require.NoError(t, err)
	assert.Equal(t, "admin", user)
	assert.Equal(t, "secret:with:colons", pass)

	_, _, err = splitAppPassword("nocolon")
	assert.Error(t, err)
	_, _, err = splitAppPassword(":missing-user")
	assert.Error(t, err)
}

func TestHostOnly(t *testing.T) {
	assert.Equal(t, "example.com", hostOnly("https://example.com/path"))
	assert.Equal(t, "example.com", hostOnly("http://example.com"))
	assert.Equal(t, "example.com", hostOnly("example.com/sub"))
}

func TestEnsureScheme(t *testing.T) {
	assert.Equal(t, "https://example.com", ensureScheme("example.com/"))
	assert.Equal(t, "http://example.com", ensureScheme("http://example.com"))
	assert.Equal(t, "https://example.com", ensureScheme("https://example.com/"))
}

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

type fakePersister struct {
	values map[string]string
	err    error
}

func newFakePersister() *fakePersister {
	return &fakePersister{values: map[string]string{}}
}

func (f *fakePersister) SetConfigValue(_ context.Context, conn *store.Connection, key, value string) error {
	if f.err != nil {
		return f.err
	}
	f.values[key] = value
	if conn.Config == nil {
		conn.Config = map[string]string{}
	}
	conn.Config[key] = value
	return nil
}

func wixConn(config map[string]string) *store.Connection {
	if config == nil {
		config = map[string]string{}
	}
	config[store.ConfigInstanceID] = "inst-1"
	return &store.Connection{
		ID:         "conn-wix",
		UserID:     "user-1",
		Platform:   "wix",
		SiteURL:    "wix-instance-inst-1",
		Credential: store.Credential{AccessToken: "wix-token"},
		Config:     config,
		IsActive:   true,
	}
}

func TestWixPublishWithKnownMember(t *testing.T) {
	var gotBody map[string]interface{}
	var introspected bool

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth2/token-info":
			introspected = true
			w.WriteHeader(http.StatusInternalServerError)
		case "/blog/v3/draft-posts":
			require.Equal(t, "Bearer wix-token", r.Header.Get("Authorization"))
			require.Equal(t, "inst-1", r.Header.Get(wixInstanceHeader))
			json.NewDecoder(r.Body).Decode(&gotBody)
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{"draftPost": map[string]interface{}{"id": "dp-1"}})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	p := NewWixPublisher(zap.NewNop(), newFakePersister())
	p.BaseURL = server.URL

	result, err := p.Publish(context.Background(), testArticle(), wixConn(map[string]string{store.ConfigMemberID: "member-9"}), PublishOptions{})
	require.NoError(t, err)

	assert.Equal(t, "dp-1", result.ExternalID)
	assert.False(t, introspected, "known member id must skip discovery")

	draft := gotBody["draftPost"].(map[string]interface{})
	assert.Equal(t, "member-9", draft["memberId"])
	assert.Equal(t, true, gotBody["publish"])
}

func TestWixMemberDiscoveryViaIntrospection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth2/token-info":
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			require.Equal(t, "wix-token", body["token"])
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"subjectId": "member-from-token"})
		case "/blog/v3/draft-posts":
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{"draftPost": map[string]interface{}{"id": "dp-2"}})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	persister := newFakePersister()
	p := NewWixPublisher(zap.NewNop(), persister)
	p.BaseURL = server.URL

	conn := wixConn(nil)
	_, err := p.Publish(context.Background(), testArticle(), conn, PublishOptions{})
	require.NoError(t, err)

	assert.Equal(t, "member-from-token", persister.values[store.ConfigMemberID])
	assert.Equal(t, "member-from-token", conn.Config[store.ConfigMemberID])
}

func TestWixMemberDiscoveryFallsBackToListing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth2/token-info":
			w.WriteHeader(http.StatusForbidden)
		case "/members/v1/members":
			require.Equal(t, "1", r.URL.Query().Get("paging.limit"))
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{
				"members": []map[string]string{{"id": "member-from-listing"}},
			})
		case "/blog/v3/draft-posts":
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{"draftPost": map[string]interface{}{"id": "dp-3"}})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	persister := newFakePersister()
	p := NewWixPublisher(zap.NewNop(), persister)
	p.BaseURL = server.URL

	_, err := p.Publish(context.Background(), testArticle(), wixConn(nil), PublishOptions{})
	require.NoError(t, err)
	assert.Equal(t, "member-from-listing", persister.values[store.ConfigMemberID])
}

func TestWixMemberDiscoveryExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	p := NewWixPublisher(zap.NewNop(), newFakePersister())
	p.BaseURL = server.URL

	_, err := p.Publish(context.Background(), testArticle(), wixConn(nil), PublishOptions{})

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Reason, "memberId")
}

func TestWixDraftOption(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"draftPost": map[string]interface{}{"id": "dp-4"}})
	}))
	defer server.Close()

	p := NewWixPublisher(zap.NewNop(), newFakePersister())
	p.BaseURL = server.URL

	_, err := p.Publish(context.Background(), testArticle(), wixConn(map[string]string{store.ConfigMemberID: "m"}), PublishOptions{Draft: true})
	require.NoError(t, err)
	assert.Equal(t, false, gotBody["publish"])
}

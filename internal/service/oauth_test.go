package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/inkcast/inkcast/internal/config"
	"github.com/inkcast/inkcast/internal/models"
	"github.com/inkcast/inkcast/internal/service/publisher"
	"github.com/inkcast/inkcast/internal/service/store"
)

// memoryRepository records upserts so OAuth completion can be asserted
// without a database.
type memoryRepository struct {
	upserted []*store.Connection
}

func (m *memoryRepository) Handles(string) bool { return true }

func (m *memoryRepository) ListActive(context.Context, string) ([]store.Connection, error) {
	return nil, nil
}

func (m *memoryRepository) Get(context.Context, string, string) (*store.Connection, error) {
	return nil, nil
}

func (m *memoryRepository) Upsert(_ context.Context, conn *store.Connection) error {
	m.upserted = append(m.upserted, conn)
	return nil
}

func (m *memoryRepository) SoftDelete(context.Context, string, string) (int64, error) {
	return 0, nil
}

func (m *memoryRepository) SetConfigValue(context.Context, string, string, string, string) error {
	return nil
}

func (m *memoryRepository) TouchSync(context.Context, string, string, time.Time) error {
	return nil
}

func newOAuthFixture(cfg *config.OAuthConfig) (*OAuthService, *memoryRepository) {
	repo := &memoryRepository{}
	connStore := store.NewStoreWithRepositories(zap.NewNop(), repo)
	return NewOAuthService(cfg, "https://app.inkcast.example", connStore, zap.NewNop()), repo
}

func TestStartAuthorizationShopify(t *testing.T) {
	svc, _ := newOAuthFixture(&config.OAuthConfig{
		StateSecret: string(stateSecret),
		Shopify:     config.ProviderApp{ClientID: "shopify-app-id"},
	})

	authURL, err := svc.StartAuthorization(models.PlatformShopify, "my-shop.myshopify.com", "user-1")
	require.NoError(t, err)

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)

	assert.Equal(t, "my-shop.myshopify.com", parsed.Host)
	assert.Equal(t, "/admin/oauth/authorize", parsed.Path)

	q := parsed.Query()
	assert.Equal(t, "shopify-app-id", q.Get("client_id"))
	assert.Equal(t, "https://app.inkcast.example/api/v1/oauth/shopify/callback", q.Get("redirect_uri"))
	assert.Equal(t, "read_content,write_content", q.Get("scope"))

	st, err := decodeState(stateSecret, q.Get("state"))
	require.NoError(t, err)
	assert.Equal(t, "user-1", st.UserID)
	assert.Equal(t, "my-shop.myshopify.com", st.SiteURL)
	assert.Equal(t, models.PlatformShopify, st.Platform)
}

func TestStartAuthorizationUnconfiguredProvider(t *testing.T) {
	svc, _ := newOAuthFixture(&config.OAuthConfig{StateSecret: string(stateSecret)})

	_, err := svc.StartAuthorization(models.PlatformWix, "", "user-1")

	var configErr *publisher.ConfigurationError
	require.ErrorAs(t, err, &configErr)
	assert.Equal(t, models.PlatformWix, configErr.Provider)
}

func TestStartAuthorizationStaticPlatform(t *testing.T) {
	svc, _ := newOAuthFixture(&config.OAuthConfig{StateSecret: string(stateSecret)})

	_, err := svc.StartAuthorization(models.PlatformGhost, "https://blog.example.com", "user-1")
	assert.Error(t, err)
}

func TestCompleteAuthorizationWordPress(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth2/token":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "wp-client", r.Form.Get("client_id"))
			assert.Equal(t, "wp-secret", r.Form.Get("client_secret"))
			assert.Equal(t, "auth-code", r.Form.Get("code"))
			assert.Equal(t, "authorization_code", r.Form.Get("grant_type"))
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token": "wp-token",
				"blog_id":      "123",
				"blog_url":     "https://blog.example.com",
				"scope":        "global",
			})
		case "/rest/v1.1/me":
			assert.Equal(t, "Bearer wp-token", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{"ID": 555, "username": "wpuser"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	svc, repo := newOAuthFixture(&config.OAuthConfig{
		StateSecret: string(stateSecret),
		WordPress: config.ProviderApp{
			ClientID:     "wp-client",
			ClientSecret: "wp-secret",
			TokenURL:     server.URL + "/oauth2/token",
		},
	})

	state, err := encodeState(stateSecret, OAuthState{
		UserID: "user-1", SiteURL: "https://blog.example.com", Platform: models.PlatformWordPress,
	})
	require.NoError(t, err)

	conn, err := svc.CompleteAuthorization(context.Background(), "auth-code", state, "", "user-1")
	require.NoError(t, err)

	assert.Equal(t, "wp-token", conn.Credential.AccessToken)
	assert.Equal(t, "555", conn.Config["wpUserId"])
	assert.Equal(t, "global", conn.Config["scope"])
	assert.True(t, conn.IsActive)

	require.Len(t, repo.upserted, 1)
	assert.Equal(t, "user-1", repo.upserted[0].UserID)
}

func TestCompleteAuthorizationShopify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "shop-client", body["client_id"])
		assert.Equal(t, "auth-code", body["code"])
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"access_token": "shpat_new",
			"scope":        "read_content,write_content",
		})
	}))
	defer server.Close()

	svc, repo := newOAuthFixture(&config.OAuthConfig{
		StateSecret: string(stateSecret),
		Shopify: config.ProviderApp{
			ClientID:     "shop-client",
			ClientSecret: "shop-secret",
			TokenURL:     server.URL,
		},
	})

	state, err := encodeState(stateSecret, OAuthState{UserID: "user-1", Platform: models.PlatformShopify})
	require.NoError(t, err)

	conn, err := svc.CompleteAuthorization(context.Background(), "auth-code", state, "demo.myshopify.com", "")
	require.NoError(t, err)

	assert.Equal(t, "demo.myshopify.com", conn.SiteURL, "shop hint fills the missing site")
	assert.Equal(t, "shpat_new", conn.Credential.AccessToken)
	assert.Equal(t, "demo.myshopify.com", conn.Config[store.ConfigShop])
	require.Len(t, repo.upserted, 1)
}

func TestCompleteAuthorizationWix(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "authorization_code", body["grant_type"])
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"access_token": "wix-token"})
	}))
	defer server.Close()

	svc, _ := newOAuthFixture(&config.OAuthConfig{
		StateSecret: string(stateSecret),
		Wix:         config.ProviderApp{ClientID: "wix-client", ClientSecret: "wix-secret", TokenURL: server.URL},
	})

	state, err := encodeState(stateSecret, OAuthState{UserID: "user-1", SiteURL: "wix-site", Platform: models.PlatformWix})
	require.NoError(t, err)

	conn, err := svc.CompleteAuthorization(context.Background(), "auth-code", state, "instance-9", "")
	require.NoError(t, err)

	assert.Equal(t, "wix-token", conn.Credential.AccessToken)
	assert.Equal(t, "instance-9", conn.Config[store.ConfigInstanceID])
}

func TestCompleteAuthorizationRejectsForeignState(t *testing.T) {
	svc, repo := newOAuthFixture(&config.OAuthConfig{
		StateSecret: string(stateSecret),
		WordPress:   config.ProviderApp{ClientID: "wp-client"},
	})

	state, err := encodeState(stateSecret, OAuthState{UserID: "victim", Platform: models.PlatformWordPress})
	require.NoError(t, err)

	_, err = svc.CompleteAuthorization(context.Background(), "code", state, "", "attacker")

	var invalid *InvalidStateError
	require.ErrorAs(t, err, &invalid)
	assert.Empty(t, repo.upserted, "nothing may be persisted on a rejected state")
}

func TestCompleteAuthorizationRejectsBadState(t *testing.T) {
	svc, _ := newOAuthFixture(&config.OAuthConfig{StateSecret: string(stateSecret)})

	_, err := svc.CompleteAuthorization(context.Background(), "code", "garbage", "", "")

	var invalid *InvalidStateError
	assert.ErrorAs(t, err, &invalid)
}

func TestCompleteAuthorizationExchangeRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	svc, repo := newOAuthFixture(&config.OAuthConfig{
		StateSecret: string(stateSecret),
		Shopify:     config.ProviderApp{ClientID: "c", ClientSecret: "s", TokenURL: server.URL},
	})

	state, err := encodeState(stateSecret, OAuthState{UserID: "user-1", SiteURL: "demo.myshopify.com", Platform: models.PlatformShopify})
	require.NoError(t, err)

	_, err = svc.CompleteAuthorization(context.Background(), "bad-code", state, "", "")

	var exchangeErr *TokenExchangeError
	require.ErrorAs(t, err, &exchangeErr)
	assert.Equal(t, http.StatusBadRequest, exchangeErr.Status)
	assert.True(t, strings.Contains(exchangeErr.Body, "invalid_grant"))
	assert.Empty(t, repo.upserted)
}

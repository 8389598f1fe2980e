package service

import (
	"context"
	"fmt"
	"net/url"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/inkcast/inkcast/internal/config"
	"github.com/inkcast/inkcast/internal/models"
	"github.com/inkcast/inkcast/internal/service/publisher"
	"github.com/inkcast/inkcast/internal/service/store"
)

// OAuthService runs the authorization-code flow for OAuth platforms and
// persists the resulting connections.
type OAuthService struct {
	cfg     *config.OAuthConfig
	baseURL string
	store   *store.Store
	logger  *zap.Logger
	client  *resty.Client
}

func NewOAuthService(cfg *config.OAuthConfig, baseURL string, connStore *store.Store, logger *zap.Logger) *OAuthService {
	return &OAuthService{
		cfg:     cfg,
		baseURL: baseURL,
		store:   connStore,
		logger:  logger,
		client:  resty.New(),
	}
}

// RedirectURI returns the fixed callback URL registered with providers.
func (s *OAuthService) RedirectURI(platform string) string {
	return fmt.Sprintf("%s/api/v1/oauth/%s/callback", s.baseURL, platform)
}

func (s *OAuthService) providerApp(platform string) (*config.ProviderApp, error) {
	var app *config.ProviderApp
	switch platform {
	case models.PlatformWordPress:
		app = &s.cfg.WordPress
	case models.PlatformShopify:
		app = &s.cfg.Shopify
	case models.PlatformWix:
		app = &s.cfg.Wix
	default:
		return nil, fmt.Errorf("platform %s does not support oauth", platform)
	}

	if app.ClientID == "" {
		return nil, &publisher.ConfigurationError{Provider: platform, Missing: "client_id"}
	}
	return app, nil
}

// StartAuthorization builds the provider authorize URL carrying a signed
// state token.
func (s *OAuthService) StartAuthorization(platform, siteURL, userID string) (string, error) {
	cap, ok := publisher.Lookup(platform)
	if !ok || cap.AuthorizeURL == nil {
		return "", fmt.Errorf("platform %s does not support oauth", platform)
	}

	app, err := s.providerApp(platform)
	if err != nil {
		return "", err
	}

	state, err := encodeState([]byte(s.cfg.StateSecret), OAuthState{
		UserID:   userID,
		SiteURL:  siteURL,
		Platform: platform,
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign state: %w", err)
	}

	authorizeURL := app.AuthorizeURL
	if authorizeURL == "" {
		authorizeURL = cap.AuthorizeURL(siteURL)
	}

	params := url.Values{}
	params.Set("client_id", app.ClientID)
	params.Set("redirect_uri", s.RedirectURI(platform))
	params.Set("response_type", "code")
	params.Set("scope", cap.Scope)
	params.Set("state", state)

	s.logger.Info("Authorization started",
		zap.String("platform", platform),
		zap.String("user_id", userID),
		zap.String("site_url", siteURL))
	return authorizeURL + "?" + params.Encode(), nil
}

// CompleteAuthorization exchanges the authorization code, optionally
// validates the token against the provider's whoami endpoint, and upserts
// the connection. hint carries the provider-initiated callback extras: the
// shop host for Shopify, the instance id for Wix. callerUserID, when known,
// must match the user encoded in state.
func (s *OAuthService) CompleteAuthorization(ctx context.Context, code, state, hint, callerUserID string) (*store.Connection, error) {
	st, err := decodeState([]byte(s.cfg.StateSecret), state)
	if err != nil {
		return nil, err
	}
	if callerUserID != "" && callerUserID != st.UserID {
		return nil, &InvalidStateError{Reason: "state does not belong to the authenticated user"}
	}

	cap, ok := publisher.Lookup(st.Platform)
	if !ok || cap.TokenURL == nil {
		return nil, &InvalidStateError{Reason: fmt.Sprintf("unrecognized platform %s", st.Platform)}
	}

	app, err := s.providerApp(st.Platform)
	if err != nil {
		return nil, err
	}

	var conn *store.Connection
	switch st.Platform {
	case models.PlatformWordPress:
		conn, err = s.exchangeWordPress(ctx, app, cap, st, code)
	case models.PlatformShopify:
		conn, err = s.exchangeShopify(ctx, app, cap, st, code, hint)
	case models.PlatformWix:
		conn, err = s.exchangeWix(ctx, app, cap, st, code, hint)
	default:
		return nil, &InvalidStateError{Reason: fmt.Sprintf("unrecognized platform %s", st.Platform)}
	}
	if err != nil {
		return nil, err
	}

	if err := s.store.Upsert(ctx, conn); err != nil {
		return nil, err
	}

	s.logger.Info("Authorization completed",
		zap.String("platform", st.Platform),
		zap.String("user_id", st.UserID),
		zap.String("site_url", conn.SiteURL))
	return conn, nil
}

// exchangeWordPress does the WordPress.com form-encoded exchange and
// captures the token owner via the whoami endpoint.
func (s *OAuthService) exchangeWordPress(ctx context.Context, app *config.ProviderApp, cap publisher.Capability, st *OAuthState, code string) (*store.Connection, error) {
	tokenURL := app.TokenURL
	if tokenURL == "" {
		tokenURL = cap.TokenURL(st.SiteURL)
	}

	var token struct {
		AccessToken string `json:"access_token"`
		BlogID      string `json:"blog_id"`
		BlogURL     string `json:"blog_url"`
		Scope       string `json:"scope"`
	}
	resp, err := s.client.R().SetContext(ctx).
		SetFormData(map[string]string{
			"client_id":     app.ClientID,
			"client_secret": app.ClientSecret,
			"code":          code,
			"redirect_uri":  s.RedirectURI(st.Platform),
			"grant_type":    "authorization_code",
		}).
		SetResult(&token).
		Post(tokenURL)
	if err != nil {
		return nil, fmt.Errorf("wordpress token request failed: %w", err)
	}
	if resp.IsError() {
		return nil, &TokenExchangeError{Provider: st.Platform, Status: resp.StatusCode(), Body: resp.String()}
	}

	cfg := map[string]string{
		"scope": token.Scope,
	}
	if token.BlogID != "" {
		cfg["blogId"] = token.BlogID
	}
	if token.BlogURL != "" {
		cfg["blogUrl"] = token.BlogURL
	}

	// Whoami validates the token and records the granting account. A
	// failure here is not fatal: the token already exchanged cleanly.
	whoamiURL := "https://public-api.wordpress.com/rest/v1.1/me"
	if app.TokenURL != "" {
		// Test override in play; derive the whoami host from it.
		if u, perr := url.Parse(app.TokenURL); perr == nil {
			whoamiURL = u.Scheme + "://" + u.Host + "/rest/v1.1/me"
		}
	}

	var me struct {
		ID       int64  `json:"ID"`
		Username string `json:"username"`
	}
	meResp, err := s.client.R().SetContext(ctx).
		SetAuthToken(token.AccessToken).
		SetResult(&me).
		Get(whoamiURL)
	if err == nil && !meResp.IsError() {
		cfg["wpUserId"] = fmt.Sprintf("%d", me.ID)
		cfg["wpUsername"] = me.Username
	} else {
		s.logger.Warn("WordPress whoami failed after token exchange",
			zap.String("user_id", st.UserID),
			zap.Error(err))
	}

	return &store.Connection{
		UserID:     st.UserID,
		Platform:   st.Platform,
		SiteURL:    st.SiteURL,
		Credential: store.Credential{AccessToken: token.AccessToken},
		Config:     cfg,
		IsActive:   true,
	}, nil
}

// exchangeShopify does the JSON exchange against the shop's own token
// endpoint.
func (s *OAuthService) exchangeShopify(ctx context.Context, app *config.ProviderApp, cap publisher.Capability, st *OAuthState, code, shopHint string) (*store.Connection, error) {
	shop := shopHint
	if shop == "" {
		shop = st.SiteURL
	}

	tokenURL := app.TokenURL
	if tokenURL == "" {
		tokenURL = cap.TokenURL(shop)
	}

	var token struct {
		AccessToken string `json:"access_token"`
		Scope       string `json:"scope"`
	}
	resp, err := s.client.R().SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{
			"client_id":     app.ClientID,
			"client_secret": app.ClientSecret,
			"code":          code,
		}).
		SetResult(&token).
		Post(tokenURL)
	if err != nil {
		return nil, fmt.Errorf("shopify token request failed: %w", err)
	}
	if resp.IsError() {
		return nil, &TokenExchangeError{Provider: st.Platform, Status: resp.StatusCode(), Body: resp.String()}
	}

	return &store.Connection{
		UserID:     st.UserID,
		Platform:   st.Platform,
		SiteURL:    shop,
		Credential: store.Credential{AccessToken: token.AccessToken},
		Config: map[string]string{
			store.ConfigShop:  shop,
			store.ConfigScope: token.Scope,
		},
		IsActive: true,
	}, nil
}

// exchangeWix does the JSON exchange; the site instance id arrives on the
// callback query and rides in via hint.
func (s *OAuthService) exchangeWix(ctx context.Context, app *config.ProviderApp, cap publisher.Capability, st *OAuthState, code, instanceHint string) (*store.Connection, error) {
	tokenURL := app.TokenURL
	if tokenURL == "" {
		tokenURL = cap.TokenURL(st.SiteURL)
	}

	var token struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	resp, err := s.client.R().SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{
			"grant_type":    "authorization_code",
			"client_id":     app.ClientID,
			"client_secret": app.ClientSecret,
			"code":          code,
		}).
		SetResult(&token).
		Post(tokenURL)
	if err != nil {
		return nil, fmt.Errorf("wix token request failed: %w", err)
	}
	if resp.IsError() {
		return nil, &TokenExchangeError{Provider: st.Platform, Status: resp.StatusCode(), Body: resp.String()}
	}

	cfg := map[string]string{}
	if instanceHint != "" {
		cfg[store.ConfigInstanceID] = instanceHint
	}

	return &store.Connection{
		UserID:     st.UserID,
		Platform:   st.Platform,
		SiteURL:    st.SiteURL,
		Credential: store.Credential{AccessToken: token.AccessToken},
		Config:     cfg,
		IsActive:   true,
	}, nil
}

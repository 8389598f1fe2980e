package server

import (
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/inkcast/inkcast/internal/service"
	"github.com/inkcast/inkcast/internal/service/publisher"
	"github.com/inkcast/inkcast/internal/service/store"
)

// userID extracts the caller's identity. Sessions live in an upstream
// service; this server trusts the forwarded id.
func userID(c *gin.Context) string {
	if id := c.GetHeader("X-User-ID"); id != "" {
		return id
	}
	return c.Query("user_id")
}

func (s *Server) requireUser(c *gin.Context) (string, bool) {
	id := userID(c)
	if id == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user id"})
		return "", false
	}
	return id, true
}

// writeError maps the typed error taxonomy onto HTTP statuses.
func (s *Server) writeError(c *gin.Context, err error) {
	var (
		connNotFound    *store.ConnectionNotFoundError
		articleNotFound *service.ArticleNotFoundError
		invalidState    *service.InvalidStateError
		configErr       *publisher.ConfigurationError
		validationErr   *publisher.ValidationError
		publishErr      *publisher.PublishError
		exchangeErr     *service.TokenExchangeError
	)

	switch {
	case errors.As(err, &connNotFound), errors.As(err, &articleNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &invalidState):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.As(err, &configErr), errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &publishErr), errors.As(err, &exchangeErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		s.Logger.Error("Request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (s *Server) handleListConnections(c *gin.Context) {
	uid, ok := s.requireUser(c)
	if !ok {
		return
	}

	conns, err := s.Store.ListActive(c.Request.Context(), uid)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"connections": conns})
}

type connectRequest struct {
	Platform    string            `json:"platform" binding:"required"`
	SiteURL     string            `json:"site_url"`
	APIKey      string            `json:"api_key"`
	AccessToken string            `json:"access_token"`
	Config      map[string]string `json:"config"`
}

// handleConnect creates a static-credential connection after a provider
// pre-flight check.
func (s *Server) handleConnect(c *gin.Context) {
	uid, ok := s.requireUser(c)
	if !ok {
		return
	}

	var req connectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cap, found := publisher.Lookup(req.Platform)
	if !found {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown platform %s", req.Platform)})
		return
	}
	if cap.AuthScheme == publisher.AuthOAuth2Code && req.AccessToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("platform %s connects via oauth", req.Platform)})
		return
	}

	conn := &store.Connection{
		UserID:   uid,
		Platform: req.Platform,
		SiteURL:  req.SiteURL,
		Credential: store.Credential{
			AccessToken: req.AccessToken,
			APIKey:      req.APIKey,
		},
		Config:   req.Config,
		IsActive: true,
	}

	if err := s.PublishService.Manager().Validate(c.Request.Context(), conn); err != nil {
		s.writeError(c, err)
		return
	}

	if err := s.Store.Upsert(c.Request.Context(), conn); err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"connection": conn})
}

type disconnectRequest struct {
	Platform string `json:"platform" binding:"required"`
	SiteURL  string `json:"site_url"`
}

func (s *Server) handleDisconnect(c *gin.Context) {
	uid, ok := s.requireUser(c)
	if !ok {
		return
	}

	var req disconnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.Store.SoftDelete(c.Request.Context(), uid, req.Platform, req.SiteURL); err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "disconnected"})
}

type oauthStartRequest struct {
	SiteURL string `json:"site_url"`
}

func (s *Server) handleOAuthStart(c *gin.Context) {
	uid, ok := s.requireUser(c)
	if !ok {
		return
	}

	var req oauthStartRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	authURL, err := s.OAuthService.StartAuthorization(c.Param("platform"), req.SiteURL, uid)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"authorization_url": authURL})
}

// handleOAuthCallback is the public provider redirect target. It answers
// with HTML that works both as a popup (postMessage to the opener) and as a
// full-page redirect back to the dashboard.
func (s *Server) handleOAuthCallback(c *gin.Context) {
	platform := c.Param("platform")

	if provErr := c.Query("error"); provErr != "" {
		s.Logger.Warn("OAuth callback carried provider error",
			zap.String("platform", platform),
			zap.String("error", provErr))
		s.renderCallback(c, platform, false)
		return
	}

	hint := c.Query("shop")
	if hint == "" {
		hint = c.Query("instanceId")
	}
	if hint == "" {
		hint = c.Query("instance")
	}

	// Provider-initiated redirect: the state token is the sole proof of
	// intent, so no caller id is enforced here.
	_, err := s.OAuthService.CompleteAuthorization(c.Request.Context(), c.Query("code"), c.Query("state"), hint, "")
	if err != nil {
		s.Logger.Error("OAuth completion failed",
			zap.String("platform", platform),
			zap.Error(err))
		s.renderCallback(c, platform, false)
		return
	}

	s.renderCallback(c, platform, true)
}

const callbackPage = `<!DOCTYPE html>
<html>
<head><title>Connecting...</title></head>
<body>
<p>%s</p>
<script>
  var payload = {type: %q, success: %t};
  if (window.opener) {
    window.opener.postMessage(payload, "*");
    window.close();
  } else {
    setTimeout(function () { window.location.href = %q; }, 1500);
  }
</script>
</body>
</html>`

func (s *Server) renderCallback(c *gin.Context, platform string, success bool) {
	message := "Connection complete. You can close this window."
	outcome := "1"
	if !success {
		message = "Connection failed. You can close this window and try again."
		outcome = "0"
	}

	// The full-page fallback lands on the dashboard, which reads the outcome
	// from the query string.
	query := url.Values{"platform": {platform}, "success": {outcome}}
	redirect := s.Config.Server.BaseURL + "/dashboard/settings?" + query.Encode()

	page := fmt.Sprintf(callbackPage,
		html.EscapeString(message),
		platform+"_connected",
		success,
		redirect)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

type generateRequest struct {
	TopicHint string `json:"topic_hint"`
	Publish   bool   `json:"publish"`
}

func (s *Server) handleGenerateArticle(c *gin.Context) {
	uid, ok := s.requireUser(c)
	if !ok {
		return
	}

	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	remaining, err := s.GenerateService.QuotaRemaining(c.Request.Context(), uid)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if !remaining {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "monthly article quota reached"})
		return
	}

	article, result, err := s.GenerateService.GenerateArticle(c.Request.Context(), uid, req.TopicHint, req.Publish)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"article": article,
		"state":   result.State,
	})
}

type publishRequest struct {
	ConnectionID string `json:"connection_id" binding:"required"`
	Draft        bool   `json:"draft"`
}

func (s *Server) handlePublishArticle(c *gin.Context) {
	uid, ok := s.requireUser(c)
	if !ok {
		return
	}

	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.PublishService.PublishArticle(c.Request.Context(), uid, c.Param("id"), req.ConnectionID,
		publisher.PublishOptions{Draft: req.Draft})
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": result})
}

func (s *Server) handlePublishHistory(c *gin.Context) {
	if _, ok := s.requireUser(c); !ok {
		return
	}

	jobs, err := s.PublishService.GetPublishHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// handleSchedulerTick mirrors one cron invocation, for ops and tests.
func (s *Server) handleSchedulerTick(c *gin.Context) {
	start := time.Now()
	summary := s.Scheduler.Tick(c.Request.Context())

	c.JSON(http.StatusOK, gin.H{
		"processed": summary.Processed,
		"results":   summary.Results,
		"took":      time.Since(start).String(),
	})
}

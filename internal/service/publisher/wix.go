package publisher

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/inkcast/inkcast/internal/models"
	"github.com/inkcast/inkcast/internal/service/store"
)

const wixInstanceHeader = "wix-instance-id"

// WixPublisher creates (and optionally publishes) blog draft posts. Wix
// requires a member id on every draft; when the connection does not carry
// one it is discovered through token introspection, then a member listing,
// in that order, and written back for future publishes.
type WixPublisher struct {
	logger    *zap.Logger
	client    *resty.Client
	preflight *resty.Client
	persister ConfigPersister

	// BaseURL overrides the Wix API root in tests.
	BaseURL string
}

func NewWixPublisher(logger *zap.Logger, persister ConfigPersister) *WixPublisher {
	return &WixPublisher{
		logger:    logger,
		client:    newClient(),
		preflight: newPreflightClient(),
		persister: persister,
		BaseURL:   "https://www.wixapis.com",
	}
}

func (p *WixPublisher) PlatformName() string {
	return models.PlatformWix
}

func (p *WixPublisher) Validate(ctx context.Context, conn *store.Connection) error {
	if conn.Credential.AccessToken == "" {
		return &ValidationError{Platform: p.PlatformName(), Reason: "missing access token"}
	}
	if conn.Config[store.ConfigInstanceID] == "" {
		return &ValidationError{Platform: p.PlatformName(), Reason: "missing instanceId"}
	}
	return nil
}

func (p *WixPublisher) Publish(ctx context.Context, article *ArticleContent, conn *store.Connection, opts PublishOptions) (*PublishResult, error) {
	memberID, err := p.resolveMemberID(ctx, conn)
	if err != nil {
		return nil, err
	}

	body := map[string]interface{}{
		"draftPost": map[string]interface{}{
			"title":    article.Title,
			"memberId": memberID,
			"excerpt":  article.MetaDescription,
			"content":  article.Content,
		},
		"publish": !opts.Draft,
	}

	var created struct {
		DraftPost map[string]interface{} `json:"draftPost"`
	}
	resp, err := p.client.R().SetContext(ctx).
		SetAuthToken(conn.Credential.AccessToken).
		SetHeader(wixInstanceHeader, conn.Config[store.ConfigInstanceID]).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&created).
		Post(p.BaseURL + "/blog/v3/draft-posts")
	if err != nil {
		return nil, fmt.Errorf("wix request failed: %w", err)
	}
	if resp.IsError() {
		return nil, publishErrorFrom(p.PlatformName(), resp)
	}

	result := &PublishResult{
		Platform:         p.PlatformName(),
		ProviderResponse: created.DraftPost,
	}
	if id, ok := created.DraftPost["id"].(string); ok {
		result.ExternalID = id
	}
	return result, nil
}

// resolveMemberID walks the three discovery tiers: connection config, token
// introspection, member listing. The order is a heuristic carried over from
// operational experience, not a documented contract.
func (p *WixPublisher) resolveMemberID(ctx context.Context, conn *store.Connection) (string, error) {
	if id := conn.Config[store.ConfigMemberID]; id != "" {
		return id, nil
	}

	memberID := p.introspectToken(ctx, conn)
	if memberID == "" {
		memberID = p.listFirstMember(ctx, conn)
	}
	if memberID == "" {
		return "", &ValidationError{Platform: p.PlatformName(), Reason: "memberId could not be discovered"}
	}

	if err := p.persister.SetConfigValue(ctx, conn, store.ConfigMemberID, memberID); err != nil {
		p.logger.Warn("Failed to persist discovered member id",
			zap.String("connection_id", conn.ID),
			zap.Error(err))
	} else {
		p.logger.Info("Discovered Wix member",
			zap.String("connection_id", conn.ID),
			zap.String("member_id", memberID))
	}
	return memberID, nil
}

func (p *WixPublisher) introspectToken(ctx context.Context, conn *store.Connection) string {
	var info struct {
		SubjectID string `json:"subjectId"`
	}
	resp, err := p.client.R().SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"token": conn.Credential.AccessToken}).
		SetResult(&info).
		Post(p.BaseURL + "/oauth2/token-info")
	if err != nil || resp.IsError() {
		p.logger.Debug("Wix token introspection failed",
			zap.String("connection_id", conn.ID),
			zap.Error(err))
		return ""
	}
	return info.SubjectID
}

func (p *WixPublisher) listFirstMember(ctx context.Context, conn *store.Connection) string {
	var listing struct {
		Members []struct {
			ID string `json:"id"`
		} `json:"members"`
	}
	resp, err := p.preflight.R().SetContext(ctx).
		SetAuthToken(conn.Credential.AccessToken).
		SetHeader(wixInstanceHeader, conn.Config[store.ConfigInstanceID]).
		SetQueryParam("paging.limit", "1").
		SetResult(&listing).
		Get(p.BaseURL + "/members/v1/members")
	if err != nil || resp.IsError() || len(listing.Members) == 0 {
		p.logger.Debug("Wix member listing failed",
			zap.String("connection_id", conn.ID),
			zap.Error(err))
		return ""
	}
	return listing.Members[0].ID
}

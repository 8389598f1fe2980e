package service

import "fmt"

// InvalidStateError means the OAuth state token could not be decoded, has
// expired, names an unknown platform, or does not belong to the caller.
// The authorization is aborted; nothing is persisted.
type InvalidStateError struct {
	Reason string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid oauth state: %s", e.Reason)
}

// TokenExchangeError means the provider rejected the code exchange. The raw
// body is surfaced to the caller for diagnostics, never swallowed.
type TokenExchangeError struct {
	Provider string
	Status   int
	Body     string
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("%s token exchange failed with status %d: %s", e.Provider, e.Status, e.Body)
}

// ArticleNotFoundError means the article is missing or owned by another user.
type ArticleNotFoundError struct {
	UserID    string
	ArticleID string
}

func (e *ArticleNotFoundError) Error() string {
	return fmt.Sprintf("article %s not found for user %s", e.ArticleID, e.UserID)
}

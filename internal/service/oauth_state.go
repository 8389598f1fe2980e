package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// stateTTL bounds how long an authorize→callback round trip may take. The
// state token is the only authentication on provider-initiated callbacks,
// so it behaves like a short-lived capability token.
const stateTTL = 15 * time.Minute

// OAuthState is the payload carried through the authorize→callback round
// trip.
type OAuthState struct {
	UserID   string
	SiteURL  string
	Platform string
}

type stateClaims struct {
	UserID   string `json:"uid"`
	SiteURL  string `json:"site"`
	Platform string `json:"plat"`
	jwt.RegisteredClaims
}

// encodeState signs the state payload with the configured secret.
func encodeState(secret []byte, st OAuthState) (string, error) {
	now := time.Now()
	claims := stateClaims{
		UserID:   st.UserID,
		SiteURL:  st.SiteURL,
		Platform: st.Platform,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(stateTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// decodeState verifies signature and expiry. Any failure is an
// InvalidStateError; the caller aborts the authorization.
func decodeState(secret []byte, token string) (*OAuthState, error) {
	var claims stateClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, &InvalidStateError{Reason: err.Error()}
	}
	if !parsed.Valid {
		return nil, &InvalidStateError{Reason: "token is not valid"}
	}

	return &OAuthState{
		UserID:   claims.UserID,
		SiteURL:  claims.SiteURL,
		Platform: claims.Platform,
	}, nil
}

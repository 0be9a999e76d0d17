package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/MyteScripts/gridbot/internal/uniuri"
)

// TokenClaims holds the claims embedded in a dashboard deep link token.
// The bot issues these through the /webtoken command and the login handler
// exchanges them for a regular dashboard session.
type TokenClaims struct {
	jwt.RegisteredClaims
	// UserID is the chat identity the token logs in as.
	UserID string `json:"uid"`
	// Username is carried for display so the dashboard can greet the user
	// before the member row is loaded.
	Username string `json:"name"`
}

// IssueToken creates a signed HS256 deep link token for the given identity.
func IssueToken(secret []byte, userID, username string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			// random token id, correlates a token between issue and login logs
			ID:        uniuri.New(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:   userID,
		Username: username,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign web token")
	}

	return signed, nil
}

// VerifyToken validates a deep link token and returns its claims. Expired
// tokens, tokens signed with another method and garbage all fail.
func VerifyToken(secret []byte, tokenStr string) (*TokenClaims, error) {
	claims := &TokenClaims{}

	_, err := jwt.ParseWithClaims(tokenStr, claims, func(_ *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse web token")
	}

	if claims.UserID == "" {
		return nil, ErrTokenMissingIdentity
	}

	return claims, nil
}

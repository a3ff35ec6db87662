package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/KongzTech/moonzip-backend/infrastructure/config"

	"github.com/KongzTech/moonzip-backend/internal/solana"
)

// AuthConfig configures token issuance and verification.
type AuthConfig struct {
	Secret   string        `yaml:"secret"`
	TokenTTL config.Duration `yaml:"token_ttl"`
}

func (c AuthConfig) ttl() time.Duration {
	if c.TokenTTL <= 0 {
		return 24 * time.Hour
	}
	return c.TokenTTL.Std()
}

// AuthProvider signs and verifies the API's JWTs.
type AuthProvider struct {
	config AuthConfig
}

// NewAuthProvider creates the provider.
func NewAuthProvider(config AuthConfig) *AuthProvider {
	return &AuthProvider{config: config}
}

// AuthRequest asks for a token for a wallet.
type AuthRequest struct {
	User string `json:"user" binding:"required"`
}

// AuthPropose returns the signed token.
type AuthPropose struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}

// IssueToken signs HS256 claims {sub, exp} for the user key.
func (p *AuthProvider) IssueToken(user solana.Pubkey, now time.Time) (AuthPropose, error) {
	expiresAt := now.Add(p.config.ttl())
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   user.String(),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	signed, err := token.SignedString([]byte(p.config.Secret))
	if err != nil {
		return AuthPropose{}, fmt.Errorf("encode token: %w", err)
	}
	return AuthPropose{Token: signed, ExpiresAt: expiresAt.Unix()}, nil
}

type authError struct {
	code    int16
	message string
}

// The authenticated user's key, stored in the request context.
const userContextKey = "auth_user"

// AuthUser extracts the authenticated user key from the request context.
func AuthUser(c *gin.Context) (solana.Pubkey, bool) {
	value, ok := c.Get(userContextKey)
	if !ok {
		return solana.Pubkey{}, false
	}
	key, ok := value.(solana.Pubkey)
	return key, ok
}

// Middleware authenticates protected routes. The Authorization header
// carries "<JWT>;<signature-bs58>" where the signature is the wallet's
// ed25519 signature over the raw JWT bytes.
func (p *AuthProvider) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, authErr := p.verifyRequest(c.GetHeader("Authorization"), time.Now())
		if authErr != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: authErr.message,
				Code:    authErr.code,
			})
			return
		}
		c.Set(userContextKey, user)
		c.Next()
	}
}

func (p *AuthProvider) verifyRequest(header string, now time.Time) (solana.Pubkey, *authError) {
	token, signature, found := strings.Cut(header, ";")
	if header == "" || !found {
		return solana.Pubkey{}, &authError{
			code:    CodeInvalidHeaders,
			message: "no authorization header or it is malformed",
		}
	}

	claims := jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(p.config.Secret), nil
	}, jwt.WithoutClaimsValidation())
	if err != nil || !parsed.Valid {
		return solana.Pubkey{}, &authError{
			code:    CodeMalformedToken,
			message: "passed token is malformed",
		}
	}

	user, err := solana.ParsePubkey(claims.Subject)
	if err != nil {
		return solana.Pubkey{}, &authError{
			code:    CodeMalformedToken,
			message: "passed token is malformed",
		}
	}
	if claims.ExpiresAt == nil || claims.ExpiresAt.Before(now) {
		return solana.Pubkey{}, &authError{
			code:    CodeTokenExpired,
			message: "token is expired, please regenerate",
		}
	}

	sig, err := solana.ParseSignature(signature)
	if err != nil || !sig.Verify(user, []byte(token)) {
		return solana.Pubkey{}, &authError{
			code:    CodeSignatureMismatch,
			message: "signature mismatch for message",
		}
	}
	return user, nil
}

package tokens

import (
	"errors"
	"time"

	"github.com/daybook/daybook/internal/config"
	"github.com/daybook/daybook/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// GenerateAccessToken creates an HS256 access token for u, accepted by the
// HMAC verifier when no OIDC issuer is configured. A zero ttl uses the
// configured access token lifetime.
func GenerateAccessToken(cfg *config.Config, u *models.User, ttl time.Duration) (string, error) {
	if cfg.JWT.Secret == "" {
		return "", errors.New("JWT_SECRET is not set")
	}
	if u == nil || u.Sub == "" {
		return "", errors.New("token subject is required")
	}
	if ttl <= 0 {
		ttl = cfg.JWT.AccessTokenTTL
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   u.Sub,
		"name":  u.Name,
		"email": u.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString([]byte(cfg.JWT.Secret))
}

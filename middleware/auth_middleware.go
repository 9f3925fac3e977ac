package middleware

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yashrajoria/grocery-backend/common/errors"
	"github.com/yashrajoria/grocery-backend/services"
)

const (
	TokenHeader      = "x-auth-token"
	UserContextKey   = "userID"
	DeviceContextKey = "deviceID"
	principalKey     = "principal"
)

// TokenVerifier authenticates a raw token.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*services.Principal, error)
}

// AuthMiddleware requires a valid x-auth-token backed by an active device
// session and stores the principal on the context.
func AuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(TokenHeader)
		if token == "" {
			_ = c.Error(apperrors.AuthRequired("No token, authorization denied"))
			c.Abort()
			return
		}

		principal, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		c.Set(principalKey, principal)
		c.Set(UserContextKey, principal.UserID)
		c.Set(DeviceContextKey, principal.DeviceID)
		c.Next()
	}
}

// GetPrincipal returns the caller set by AuthMiddleware.
func GetPrincipal(c *gin.Context) (*services.Principal, error) {
	if val, ok := c.Get(principalKey); ok {
		if p, ok := val.(*services.Principal); ok && p.UserID != "" {
			return p, nil
		}
	}
	return nil, errors.New("principal not found in context")
}

func GetUserID(c *gin.Context) (string, error) {
	p, err := GetPrincipal(c)
	if err != nil {
		return "", err
	}
	return p.UserID, nil
}

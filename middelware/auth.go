package middelware

import (
	"dispatch-backend/models"
	"dispatch-backend/utils/logger"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Context keys set by AuthMiddleware
const (
	ClaimsKey = "jwt_claims"
	UserIDKey = "user_id"
)

// JWTManager verifies bearer tokens issued by the identity service. It never issues tokens.
type JWTManager struct {
	Config *models.Config
	Logger logger.Logger
	now    func() time.Time
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(cfg *models.Config, log logger.Logger) *JWTManager {
	return &JWTManager{
		Config: cfg,
		Logger: log,
		now:    time.Now,
	}
}

// ValidateToken parses an HS256 token and returns its claims
func (j *JWTManager) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Only HS256 is accepted; anything else is an algorithm confusion attempt
		method, ok := token.Method.(*jwt.SigningMethodHMAC)
		if !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		if method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("invalid signing algorithm: %v", method.Alg())
		}
		return []byte(j.Config.JWTSecret), nil
	}, jwt.WithTimeFunc(j.now))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	if claims.UserID == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// AuthMiddleware rejects requests without a valid bearer token and puts the claims on the context
func (j *JWTManager) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			j.Logger.Warn("Missing Authorization header")
			abort(c, http.StatusUnauthorized, models.ErrorCodeUnauthorized, "Authorization header is required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			j.Logger.Warn("Invalid Authorization header format")
			abort(c, http.StatusUnauthorized, models.ErrorCodeUnauthorized, "Authorization header must be in format: Bearer <token>")
			return
		}

		claims, err := j.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			j.Logger.Warnf("Token validation failed: %v", err)
			abort(c, http.StatusUnauthorized, models.ErrorCodeUnauthorized, "Invalid or expired token")
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(ClaimsKey, claims)
		j.Logger.Debugf("User authenticated: %s", claims.UserID)
		c.Next()
	}
}

// RequireRole lets the request through when the claims carry any of the roles
func (j *JWTManager) RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get(ClaimsKey)
		claims, ok := value.(*models.JWTClaims)
		if !exists || !ok {
			j.Logger.Error("JWT claims not found in context")
			abort(c, http.StatusUnauthorized, models.ErrorCodeUnauthorized, "Authentication required")
			return
		}

		for _, role := range roles {
			if claims.HasRole(role) {
				c.Next()
				return
			}
		}

		j.Logger.Warnf("User %s lacks any of the roles %v", claims.UserID, roles)
		abort(c, http.StatusForbidden, models.ErrorCodeForbidden, "Insufficient permissions")
	}
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, models.APIResponse{
		Success: false,
		Error: &models.APIError{
			Code:    code,
			Message: message,
		},
	})
}

package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"jewellery-billing-api/internal/models"
)

const claimsKey = "claims"

// Claims represents JWT claims
type Claims struct {
	UserID string      `json:"user_id"`
	Name   string      `json:"name"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret     string
	TokenDuration time.Duration
	Issuer        string
}

// AuthService issues and checks access tokens
type AuthService struct {
	config *AuthConfig
	logger *logrus.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(config *AuthConfig, logger *logrus.Logger) *AuthService {
	if config.TokenDuration == 0 {
		config.TokenDuration = 24 * time.Hour
	}
	if config.Issuer == "" {
		config.Issuer = "jewellery-billing-api"
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &AuthService{config: config, logger: logger}
}

// GenerateToken signs a token for user and returns it with its expiry
func (a *AuthService) GenerateToken(user *models.User) (string, time.Time, error) {
	now := time.Now()
	expires := now.Add(a.config.TokenDuration)

	claims := &Claims{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    a.config.Issuer,
			Subject:   user.ID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(a.config.JWTSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, expires, nil
}

// ValidateToken validates a JWT token and returns the claims
func (a *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(a.config.JWTSecret), nil
	}, jwt.WithIssuer(a.config.Issuer))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if !claims.Role.IsValid() {
		return nil, fmt.Errorf("invalid role in token: %s", claims.Role)
	}

	return claims, nil
}

// RefreshToken issues a fresh token for the holder of a still valid one
func (a *AuthService) RefreshToken(tokenString string) (string, time.Time, error) {
	claims, err := a.ValidateToken(tokenString)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("invalid token for refresh: %w", err)
	}

	return a.GenerateToken(&models.User{
		ID:    claims.UserID,
		Name:  claims.Name,
		Email: claims.Email,
		Role:  claims.Role,
	})
}

func bearerToken(c *gin.Context) (string, bool) {
	scheme, token, found := strings.Cut(c.GetHeader("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// Authentication rejects requests without a valid bearer token
func (a *AuthService) Authentication() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header is required",
			})
			return
		}

		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid authorization header format. Expected: Bearer <token>",
			})
			return
		}

		claims, err := a.ValidateToken(token)
		if err != nil {
			a.logger.WithFields(logrus.Fields{
				"error": err.Error(),
				"path":  c.Request.URL.Path,
			}).Warn("Token validation failed")

			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireRole lets the request through when the authenticated user holds one
// of roles
func (a *AuthService) RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
			})
			return
		}

		for _, role := range roles {
			if claims.Role == role {
				c.Next()
				return
			}
		}

		a.logger.WithFields(logrus.Fields{
			"user_id":        claims.UserID,
			"role":           claims.Role,
			"required_roles": roles,
			"path":           c.Request.URL.Path,
		}).Warn("Authorization failed - insufficient permissions")

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":          "Insufficient permissions",
			"required_roles": roles,
		})
	}
}

// ClaimsFromContext returns the claims Authentication stored
func ClaimsFromContext(c *gin.Context) (*Claims, bool) {
	value, exists := c.Get(claimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*Claims)
	return claims, ok
}

// CurrentUserID returns the authenticated user's ID, or nil for anonymous
// requests. Used to stamp created_by columns.
func CurrentUserID(c *gin.Context) *string {
	claims, ok := ClaimsFromContext(c)
	if !ok || claims.UserID == "" {
		return nil
	}
	id := claims.UserID
	return &id
}

// IsAdmin checks if the current user has admin role
func IsAdmin(c *gin.Context) bool {
	claims, ok := ClaimsFromContext(c)
	return ok && claims.Role == models.RoleAdmin
}

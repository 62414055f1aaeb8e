package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/wafflestudio/moiming-web/pkg/response"
)

var (
	ErrMissingAuthHeader = errors.New("missing authorization header")
	ErrInvalidAuthFormat = errors.New("invalid authorization header format")
	ErrInvalidToken      = errors.New("invalid token")
	ErrTokenExpired      = errors.New("token expired")
)

// Context keys for user information
const (
	ContextKeyUserID = "user_id"
	ContextKeyEmail  = "email"
	ContextKeyName   = "name"
)

const bearerPrefix = "Bearer "

// JWTConfig holds configuration for JWT middleware and token issuing
type JWTConfig struct {
	Secret    string
	Issuer    string
	TTL       time.Duration
	SkipPaths []string
}

// Claims are the custom claims carried by access tokens
type Claims struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 access token for the given user
func IssueToken(config *JWTConfig, userID int64, email, name string, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(config.TTL)
	claims := Claims{
		UserID: userID,
		Email:  email,
		Name:   name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(config.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseToken validates tokenString and returns its claims
func ParseToken(config *JWTConfig, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(config.Secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid || claims.UserID <= 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func bearerToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", ErrMissingAuthHeader
	}
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", ErrInvalidAuthFormat
	}
	token := strings.TrimSpace(authHeader[len(bearerPrefix):])
	if token == "" {
		return "", ErrInvalidAuthFormat
	}
	return token, nil
}

func abortAuth(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrTokenExpired):
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(response.ErrCodeTokenExpired, "Access token has expired"))
	case errors.Is(err, ErrMissingAuthHeader):
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Unauthorized("Authorization header is required"))
	case errors.Is(err, ErrInvalidAuthFormat):
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Unauthorized("Invalid authorization header format"))
	default:
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Unauthorized("Invalid access token"))
	}
}

func setClaims(c *gin.Context, claims *Claims) {
	c.Set(ContextKeyUserID, claims.UserID)
	c.Set(ContextKeyEmail, claims.Email)
	c.Set(ContextKeyName, claims.Name)
}

// JWTMiddleware rejects requests without a valid bearer token
func JWTMiddleware(config *JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, path := range config.SkipPaths {
			if c.Request.URL.Path == path {
				c.Next()
				return
			}
		}

		tokenString, err := bearerToken(c)
		if err != nil {
			abortAuth(c, err)
			return
		}

		claims, err := ParseToken(config, tokenString)
		if err != nil {
			abortAuth(c, err)
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// OptionalJWT lets anonymous requests through but still rejects a bad token,
// so a client holding an expired session learns about it.
func OptionalJWT(config *JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := bearerToken(c)
		if errors.Is(err, ErrMissingAuthHeader) {
			c.Next()
			return
		}
		if err != nil {
			abortAuth(c, err)
			return
		}

		claims, err := ParseToken(config, tokenString)
		if err != nil {
			abortAuth(c, err)
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// GetUserID extracts user ID from gin context
func GetUserID(c *gin.Context) (int64, bool) {
	userID, exists := c.Get(ContextKeyUserID)
	if !exists {
		return 0, false
	}
	id, ok := userID.(int64)
	return id, ok
}

// GetEmail extracts email from gin context
func GetEmail(c *gin.Context) (string, bool) {
	email, exists := c.Get(ContextKeyEmail)
	if !exists {
		return "", false
	}
	e, ok := email.(string)
	return e, ok
}

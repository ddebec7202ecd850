package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/insurance-api/internal/models"
	"github.com/sjperalta/insurance-api/internal/services"
)

// TokenVerifier turns an access token into the claims it carries
type TokenVerifier interface {
	Authenticate(token string) (*services.AccessClaims, error)
}

// Credential schemes
const (
	SchemeBearer = "bearer"
	SchemeLegacy = "legacy"
)

// LegacyHeader is the header older clients send their token in
const LegacyHeader = "token"

// Credential is the token a request authenticates with and how it was sent
type Credential struct {
	Scheme string
	Token  string
}

var (
	errMissingCredential = errors.New("authorization header is required")
	errMalformedHeader   = errors.New("invalid authorization header format")
)

// ParseCredential reads "Authorization: Bearer <jwt>" or, failing that, the
// legacy "token: <prefix><jwt>" header
func ParseCredential(r *http.Request, legacyPrefix string) (Credential, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], SchemeBearer) || strings.TrimSpace(parts[1]) == "" {
			return Credential{}, errMalformedHeader
		}
		return Credential{Scheme: SchemeBearer, Token: strings.TrimSpace(parts[1])}, nil
	}

	if header := strings.TrimSpace(r.Header.Get(LegacyHeader)); header != "" {
		if legacyPrefix == "" || !strings.HasPrefix(header, legacyPrefix) {
			return Credential{}, errMalformedHeader
		}
		token := strings.TrimPrefix(header, legacyPrefix)
		if token == "" {
			return Credential{}, errMalformedHeader
		}
		return Credential{Scheme: SchemeLegacy, Token: token}, nil
	}

	return Credential{}, errMissingCredential
}

func abort(c *gin.Context, status int, key, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"message":    message,
		"messageKey": key,
	})
}

// Auth resolves the request's credential through verifier and stores the
// caller's identity on the context
func Auth(verifier TokenVerifier, legacyPrefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		cred, err := ParseCredential(c.Request, legacyPrefix)
		if err != nil {
			abort(c, http.StatusUnauthorized, "auth.unauthorized", err.Error())
			return
		}

		claims, err := verifier.Authenticate(cred.Token)
		if err != nil {
			key := "auth.unauthorized"
			if errors.Is(err, services.ErrTokenExpired) {
				key = "auth.token_expired"
			}
			abort(c, http.StatusUnauthorized, key, err.Error())
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("userEmail", claims.Email)
		c.Set("userRole", claims.Role)
		c.Set("credentialScheme", cred.Scheme)
		c.Set("claims", claims)

		c.Next()
	}
}

// GetUserID extracts the user ID from the Gin context
func GetUserID(c *gin.Context) uint {
	userID, exists := c.Get("userID")
	if !exists {
		return 0
	}
	return userID.(uint)
}

// GetUserRole extracts the user role from the Gin context
func GetUserRole(c *gin.Context) string {
	role, exists := c.Get("userRole")
	if !exists {
		return ""
	}
	return role.(string)
}

// IsAdmin checks if the current user is an admin
func IsAdmin(c *gin.Context) bool {
	return GetUserRole(c) == models.RoleAdmin
}

// RequireAdmin returns a middleware that requires admin role
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdmin(c) {
			abort(c, http.StatusForbidden, "auth.forbidden", "admin role required")
			return
		}
		c.Next()
	}
}

// RequireRole returns a middleware that requires specific roles
func RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole := GetUserRole(c)
		for _, role := range allowedRoles {
			if userRole == role {
				c.Next()
				return
			}
		}
		abort(c, http.StatusForbidden, "auth.forbidden", "you do not have access to this section")
	}
}

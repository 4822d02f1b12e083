package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"portal-server/services/portal-api/internal/config"
	"portal-server/services/portal-api/internal/domain/chat"
)

// viewerKey is the gin context key the resolved viewer is stored under.
const viewerKey = "viewer"

// Validator validates JWTs using JWKS and resolves the portal viewer.
type Validator struct {
	cfg  *config.Config
	log  zerolog.Logger
	jwks *keyfunc.JWKS
}

// NewValidator initializes JWKS fetching when auth is enabled.
func NewValidator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Validator, error) {
	if !cfg.AuthEnabled {
		return &Validator{cfg: cfg, log: log}, nil
	}

	options := keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   time.Hour,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			log.Error().Err(err).Msg("jwks refresh error")
		},
	}

	jwks, err := keyfunc.Get(cfg.AuthJWKSURL, options)
	if err != nil {
		return nil, err
	}

	return &Validator{
		cfg:  cfg,
		log:  log,
		jwks: jwks,
	}, nil
}

// Middleware resolves the acting viewer. With auth enabled it requires
// a valid bearer token and maps the claims; with auth disabled it
// trusts the X-Viewer-* headers, which only makes sense behind a
// gateway or in development.
func (v *Validator) Middleware() gin.HandlerFunc {
	if v == nil || !v.cfg.AuthEnabled {
		return func(c *gin.Context) {
			if viewer, ok := viewerFromHeaders(c); ok {
				c.Set(viewerKey, viewer)
			}
			c.Next()
		}
	}

	return func(c *gin.Context) {
		tokenString := bearerToken(c.GetHeader("Authorization"))
		if tokenString == "" {
			abortUnauthorized(c, "missing bearer token")
			return
		}

		token, err := jwt.Parse(tokenString, v.jwks.Keyfunc,
			jwt.WithIssuer(v.cfg.AuthIssuer),
			jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"}),
		)
		if err != nil || !token.Valid {
			abortUnauthorized(c, "invalid token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			abortUnauthorized(c, "invalid token claims")
			return
		}

		if audience := strings.TrimSpace(v.cfg.AuthAudience); audience != "" {
			if !audienceAllowed(claims, audience) {
				abortUnauthorized(c, "invalid token audience")
				return
			}
		}

		viewer, ok := viewerFromClaims(claims)
		if !ok {
			abortUnauthorized(c, "token carries no portal role")
			return
		}

		c.Set(viewerKey, viewer)
		c.Next()
	}
}

// Ready indicates if the validator is prepared.
func (v *Validator) Ready() bool {
	if v == nil || !v.cfg.AuthEnabled {
		return true
	}
	return v.jwks != nil
}

// ViewerFrom returns the viewer resolved by the middleware.
func ViewerFrom(c *gin.Context) (chat.Viewer, bool) {
	value, exists := c.Get(viewerKey)
	if !exists {
		return chat.Viewer{}, false
	}
	viewer, ok := value.(chat.Viewer)
	return viewer, ok
}

func viewerFromClaims(claims jwt.MapClaims) (chat.Viewer, bool) {
	id, _ := claims["sub"].(string)
	if id == "" {
		return chat.Viewer{}, false
	}
	rawRole, _ := claims["portal_role"].(string)
	role, ok := chat.ParseRole(rawRole)
	if !ok {
		return chat.Viewer{}, false
	}
	name, _ := claims["name"].(string)
	email, _ := claims["email"].(string)
	return chat.Viewer{ID: id, Name: name, Email: email, Role: role}, true
}

func viewerFromHeaders(c *gin.Context) (chat.Viewer, bool) {
	id := strings.TrimSpace(c.GetHeader("X-Viewer-Id"))
	role, ok := chat.ParseRole(c.GetHeader("X-Viewer-Role"))
	if id == "" || !ok {
		return chat.Viewer{}, false
	}
	return chat.Viewer{
		ID:    id,
		Name:  strings.TrimSpace(c.GetHeader("X-Viewer-Name")),
		Email: strings.TrimSpace(c.GetHeader("X-Viewer-Email")),
		Role:  role,
	}, true
}

func audienceAllowed(claims jwt.MapClaims, audience string) bool {
	audClaim, hasAud := claims["aud"]
	if !hasAud {
		return true
	}
	switch aud := audClaim.(type) {
	case string:
		return aud == audience
	case []any:
		for _, entry := range aud {
			if s, ok := entry.(string); ok && s == audience {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"message": message,
			"type":    "unauthorized",
		},
	})
}

package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/knwn/storefront/internal/infrastructure/auth"
	"github.com/knwn/storefront/internal/infrastructure/logger"
	"github.com/knwn/storefront/internal/interfaces/http/dto"
)

// SessionCookieConfig controls the session cookie attributes
type SessionCookieConfig struct {
	Name     string
	Domain   string
	Secure   bool
	SameSite string // strict, lax, none
}

func (c SessionCookieConfig) sameSite() http.SameSite {
	switch c.SameSite {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// Session resolves the browser session from the signed session cookie, or
// from a Bearer token for clients without cookies. A missing, tampered or
// expired token starts a fresh session. Tokens past half their lifetime are
// re-signed so active shoppers keep their cart.
func Session(sessions *auth.SessionService, cfg SessionCookieConfig, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	maxAge := int(sessions.TTL().Seconds())

	return func(c *gin.Context) {
		var (
			issued *auth.Session
			id     string
			err    error
		)

		token := sessionToken(c, cfg.Name)
		if token != "" {
			claims, verr := sessions.Validate(token)
			if verr != nil {
				log.Debug("discarding session token", zap.String("request_id", GetRequestID(c)), zap.Error(verr))
			} else {
				id = claims.SessionID()
				if sessions.NeedsRenewal(claims) {
					if issued, err = sessions.Renew(id); err != nil {
						log.Warn("failed to renew session", zap.String("session_id", id), zap.Error(err))
					}
				}
			}
		}
		if id == "" {
			if issued, err = sessions.Issue(); err != nil {
				log.Error("failed to issue session", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusInternalServerError, dto.NewErrorResponseWithRequestID(
					dto.ErrCodeInternal, "Could not start a session", GetRequestID(c)))
				return
			}
		}
		if issued != nil {
			id = issued.ID
			c.SetSameSite(cfg.sameSite())
			c.SetCookie(cfg.Name, issued.Token, maxAge, "/", cfg.Domain, cfg.Secure, true)
		}

		c.Set(logger.GinSessionIDKey, id)
		c.Request = c.Request.WithContext(logger.WithSessionID(c.Request.Context(), id))
		c.Next()
	}
}

func sessionToken(c *gin.Context, cookieName string) string {
	if token, err := c.Cookie(cookieName); err == nil && token != "" {
		return token
	}
	header := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// GetSessionID returns the session id resolved by Session
func GetSessionID(c *gin.Context) string {
	return c.GetString(logger.GinSessionIDKey)
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knwn/storefront/internal/infrastructure/auth"
	"github.com/knwn/storefront/internal/infrastructure/config"
	"github.com/knwn/storefront/internal/infrastructure/logger"
)

var testCookie = SessionCookieConfig{Name: "knwn_session", SameSite: "lax"}

func newSessions(t *testing.T, ttl time.Duration) *auth.SessionService {
	t.Helper()
	svc, err := auth.NewSessionService(config.SessionConfig{
		Secret: "test-secret-key-at-least-32-chars",
		TTL:    ttl,
		Issuer: "storefront-test",
	})
	require.NoError(t, err)
	return svc
}

func sessionRouter(sessions *auth.SessionService) *gin.Engine {
	router := gin.New()
	router.Use(Session(sessions, testCookie, nil))
	router.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, "%s|%s", GetSessionID(c), logger.SessionID(c.Request.Context()))
	})
	return router
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == testCookie.Name {
			return c
		}
	}
	return nil
}

func TestSession_IssuesCookie(t *testing.T) {
	sessions := newSessions(t, time.Hour)
	w := httptest.NewRecorder()
	sessionRouter(sessions).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	require.Equal(t, http.StatusOK, w.Code)
	cookie := sessionCookie(w)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, 3600, cookie.MaxAge)

	claims, err := sessions.Validate(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, claims.SessionID()+"|"+claims.SessionID(), w.Body.String())
}

func TestSession_ReusesValidCookie(t *testing.T) {
	sessions := newSessions(t, time.Hour)
	session, err := sessions.Renew("sess-42")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: testCookie.Name, Value: session.Token})
	w := httptest.NewRecorder()
	sessionRouter(sessions).ServeHTTP(w, req)

	assert.Equal(t, "sess-42|sess-42", w.Body.String())
	assert.Nil(t, sessionCookie(w), "a fresh token is not re-issued")
}

func TestSession_AcceptsBearerToken(t *testing.T) {
	sessions := newSessions(t, time.Hour)
	session, err := sessions.Renew("sess-bearer")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	w := httptest.NewRecorder()
	sessionRouter(sessions).ServeHTTP(w, req)

	assert.Equal(t, "sess-bearer|sess-bearer", w.Body.String())
}

func TestSession_ReplacesForeignToken(t *testing.T) {
	sessions := newSessions(t, time.Hour)
	other, err := auth.NewSessionService(config.SessionConfig{
		Secret: "a-different-secret-of-32-chars!!",
		TTL:    time.Hour,
		Issuer: "storefront-test",
	})
	require.NoError(t, err)
	forged, err := other.Renew("victim-session")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: testCookie.Name, Value: forged.Token})
	w := httptest.NewRecorder()
	sessionRouter(sessions).ServeHTTP(w, req)

	assert.NotContains(t, w.Body.String(), "victim-session")
	assert.NotNil(t, sessionCookie(w))
}

func TestSession_RenewsAgingToken(t *testing.T) {
	// expiry has second precision; 2.1s into a 4s TTL is always past half
	// and never expired
	sessions := newSessions(t, 4*time.Second)
	session, err := sessions.Renew("sess-old")
	require.NoError(t, err)
	time.Sleep(2100 * time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: testCookie.Name, Value: session.Token})
	w := httptest.NewRecorder()
	sessionRouter(sessions).ServeHTTP(w, req)

	assert.Equal(t, "sess-old|sess-old", w.Body.String())
	cookie := sessionCookie(w)
	require.NotNil(t, cookie)
	assert.NotEqual(t, session.Token, cookie.Value)
}

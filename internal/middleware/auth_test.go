package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/cms-resource-broker/internal/constants"
	"github.com/yukikurage/cms-resource-broker/internal/services"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(sessions.Sessions(constants.DefaultSessionCookieName, cookie.NewStore([]byte("secret"))))
	r.Use(ResolveCaller(services.Caller{User: "Guest", Project: "Online"}))
	r.Use(RequestLogger(zerolog.Nop()))

	r.POST("/login/:name", func(c *gin.Context) {
		session := sessions.Default(c)
		session.Set(constants.SessionKeyUserName, c.Param("name"))
		if err := session.Save(); err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusNoContent)
	})
	r.GET("/caller", func(c *gin.Context) {
		caller, ok := GetCaller(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": caller.User, "project": caller.Project})
	})
	r.GET("/private", RequireAuth(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestResolveCaller(t *testing.T) {
	r := newTestRouter()

	t.Run("defaults to guest in the online project", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/caller", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"user": "Guest", "project": "Online"}`, w.Body.String())
	})

	t.Run("session user and project header", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login/alice", nil))
		require.Equal(t, http.StatusNoContent, w.Code)
		cookies := w.Result().Cookies()

		req := httptest.NewRequest(http.MethodGet, "/caller", nil)
		req.Header.Set(constants.ProjectHeader, "Spring")
		for _, c := range cookies {
			req.AddCookie(c)
		}
		w = httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"user": "alice", "project": "Spring"}`, w.Body.String())
	})
}

func TestRequireAuth(t *testing.T) {
	r := newTestRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/private", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login/alice", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	for _, c := range w.Result().Cookies() {
		req.AddCookie(c)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

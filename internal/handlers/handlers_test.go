package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/cms-resource-broker/internal/backend"
	"github.com/yukikurage/cms-resource-broker/internal/config"
	"github.com/yukikurage/cms-resource-broker/internal/constants"
	"github.com/yukikurage/cms-resource-broker/internal/dto"
	"github.com/yukikurage/cms-resource-broker/internal/services"
	"github.com/yukikurage/cms-resource-broker/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

type handlerTestEnv struct {
	router *gin.Engine
	cfg    config.BrokerConfig
}

func setupHandlerTestEnv(t *testing.T) handlerTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	stores, err := backend.Open("memory", backend.Options{})
	require.NoError(t, err)
	t.Cleanup(func() {
		stores.Close()
	})

	cfg := config.Default().Broker
	cfg.BcryptCost = bcrypt.MinCost
	require.NoError(t, services.Bootstrap(context.Background(), stores, cfg, zerolog.Nop()))

	broker := services.NewResourceBroker(services.BrokerDeps{
		Stores: stores,
		Logger: zerolog.Nop(),
		Config: cfg,
	})
	authService := services.NewAuthService(broker)

	r := gin.New()
	store := cookie.NewStore([]byte("secret"))
	r.Use(sessions.Sessions(constants.DefaultSessionCookieName, store))
	RegisterRoutes(r, broker, authService)

	return handlerTestEnv{router: r, cfg: cfg}
}

type request struct {
	method  string
	path    string
	body    interface{}
	cookies []*http.Cookie
	project string
}

func (env handlerTestEnv) do(t *testing.T, req request) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if req.body != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(req.body))
	}
	httpReq := httptest.NewRequest(req.method, req.path, &body)
	httpReq.Header.Set("Content-Type", "application/json")
	if req.project != "" {
		httpReq.Header.Set(constants.ProjectHeader, req.project)
	}
	for _, c := range req.cookies {
		httpReq.AddCookie(c)
	}

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, httpReq)
	return w
}

func (env handlerTestEnv) login(t *testing.T, name, password string) []*http.Cookie {
	t.Helper()
	w := env.do(t, request{
		method: http.MethodPost,
		path:   "/api/auth/login",
		body:   dto.LoginRequest{Name: name, Password: password},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies
}

func TestHealth(t *testing.T) {
	env := setupHandlerTestEnv(t)

	w := env.do(t, request{method: http.MethodGet, path: "/health"})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAuthHandler(t *testing.T) {
	env := setupHandlerTestEnv(t)

	t.Run("guest without session", func(t *testing.T) {
		w := env.do(t, request{method: http.MethodGet, path: "/api/auth/me"})
		require.Equal(t, http.StatusOK, w.Code)

		var me dto.CurrentUserDTO
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
		assert.True(t, me.Anonymous)
		assert.False(t, me.Admin)
		assert.Equal(t, env.cfg.GuestUser, me.User.Name)
	})

	t.Run("wrong password", func(t *testing.T) {
		w := env.do(t, request{
			method: http.MethodPost,
			path:   "/api/auth/login",
			body:   dto.LoginRequest{Name: env.cfg.AdminUser, Password: "wrong"},
		})
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		w := env.do(t, request{
			method: http.MethodPost,
			path:   "/api/auth/login",
			body:   map[string]string{"name": env.cfg.AdminUser},
		})
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("login then me", func(t *testing.T) {
		cookies := env.login(t, env.cfg.AdminUser, env.cfg.AdminPassword)

		w := env.do(t, request{method: http.MethodGet, path: "/api/auth/me", cookies: cookies})
		require.Equal(t, http.StatusOK, w.Code)

		var me dto.CurrentUserDTO
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
		assert.False(t, me.Anonymous)
		assert.True(t, me.Admin)
		assert.Equal(t, env.cfg.AdminUser, me.User.Name)

		w = env.do(t, request{method: http.MethodPost, path: "/api/auth/logout", cookies: cookies})
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("logout requires a session", func(t *testing.T) {
		w := env.do(t, request{method: http.MethodPost, path: "/api/auth/logout"})
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestPrincipalHandler(t *testing.T) {
	env := setupHandlerTestEnv(t)
	admin := env.login(t, env.cfg.AdminUser, env.cfg.AdminPassword)

	w := env.do(t, request{method: http.MethodGet, path: "/api/users"})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, request{
		method:  http.MethodPost,
		path:    "/api/users",
		cookies: admin,
		body: dto.CreateUserRequest{
			Name:           "alice",
			Password:       "alice-password",
			Group:          env.cfg.UsersGroup,
			AdditionalInfo: map[string]interface{}{"email": "alice@example.com"},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.do(t, request{method: http.MethodPost, path: "/api/groups", cookies: admin, body: dto.CreateGroupRequest{Name: "Editors"}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.do(t, request{method: http.MethodPut, path: "/api/groups/Editors/members/alice", cookies: admin})
	require.Equal(t, http.StatusNoContent, w.Code)

	alice := env.login(t, "alice", "alice-password")

	w = env.do(t, request{method: http.MethodGet, path: "/api/groups/Editors/members/alice", cookies: alice})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"member": true}`, w.Body.String())

	w = env.do(t, request{method: http.MethodGet, path: "/api/users/alice/groups", cookies: alice})
	require.Equal(t, http.StatusOK, w.Code)
	var groups struct {
		Groups []dto.GroupDTO `json:"groups"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &groups))
	assert.Len(t, groups.Groups, 2)

	w = env.do(t, request{method: http.MethodGet, path: "/api/groups?org_unit=/&sub_units=true", cookies: alice})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &groups))
	assert.Len(t, groups.Groups, 5)

	w = env.do(t, request{method: http.MethodGet, path: "/api/groups?org_unit=%25", cookies: alice})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, request{method: http.MethodDelete, path: "/api/groups/Editors", cookies: alice})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, request{method: http.MethodDelete, path: "/api/groups/Missing", cookies: admin})
	require.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, request{method: http.MethodPut, path: "/api/users/alice/password", cookies: alice, body: dto.SetPasswordRequest{Password: "changed"}})
	require.Equal(t, http.StatusNoContent, w.Code)
	env.login(t, "alice", "changed")

	w = env.do(t, request{method: http.MethodDelete, path: "/api/users/" + env.cfg.AdminUser, cookies: admin})
	require.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, request{method: http.MethodDelete, path: "/api/users/alice", cookies: admin})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, request{method: http.MethodGet, path: "/api/users/alice", cookies: admin})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestProjectAndMetadataHandlers(t *testing.T) {
	env := setupHandlerTestEnv(t)
	admin := env.login(t, env.cfg.AdminUser, env.cfg.AdminPassword)

	w := env.do(t, request{
		method:  http.MethodPost,
		path:    "/api/metadefinitions/plain",
		cookies: admin,
		body:    dto.CreateMetadefinitionRequest{Name: "Title"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.do(t, request{
		method:  http.MethodPost,
		path:    "/api/projects",
		cookies: admin,
		body:    dto.CreateProjectRequest{Name: "Spring", Group: env.cfg.UsersGroup},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var project dto.ProjectDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &project))
	assert.Equal(t, "unlocked", string(project.State))

	w = env.do(t, request{method: http.MethodGet, path: "/api/projects/Spring"})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, request{
		method:  http.MethodPost,
		path:    "/api/resources",
		cookies: admin,
		project: "Spring",
		body:    dto.CreateResourceRequest{Path: "/index.html", Type: "plain"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.do(t, request{
		method:  http.MethodPut,
		path:    "/api/metadata/index.html",
		cookies: admin,
		project: "Spring",
		body:    map[string]string{"Title": "Hello"},
	})
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = env.do(t, request{
		method:  http.MethodPut,
		path:    "/api/metadata/index.html",
		cookies: admin,
		project: "Spring",
		body:    map[string]string{"Colour": "red"},
	})
	require.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, request{method: http.MethodGet, path: "/api/metadata/index.html"})
	require.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, request{method: http.MethodGet, path: "/api/resources/index.html", cookies: admin, project: "Spring"})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, request{method: http.MethodPost, path: "/api/projects/Spring/publish", cookies: admin})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, request{method: http.MethodPost, path: "/api/projects/Spring/publish", cookies: admin})
	require.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, request{method: http.MethodGet, path: "/api/metadata/index.html"})
	require.Equal(t, http.StatusOK, w.Code)
	var meta dto.MetainformationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &meta))
	assert.Equal(t, "/index.html", meta.Path)
	assert.Equal(t, map[string]string{"Title": "Hello"}, meta.Values)

	w = env.do(t, request{method: http.MethodGet, path: "/api/metadata/index.html?name=Title"})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, request{method: http.MethodDelete, path: "/api/metadata/index.html?name=Title", cookies: admin})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, request{method: http.MethodPut, path: "/api/metadefinitions/plain/Title", cookies: admin, body: dto.UpdateMetadefinitionRequest{Kind: 2}})
	require.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, request{method: http.MethodGet, path: "/api/metadefinitions/plain?kind=0"})
	require.Equal(t, http.StatusOK, w.Code)
	var defs struct {
		Metadefinitions []dto.MetadefinitionDTO `json:"metadefinitions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &defs))
	require.Len(t, defs.Metadefinitions, 1)
	assert.Equal(t, "Title", defs.Metadefinitions[0].Name)

	w = env.do(t, request{method: http.MethodGet, path: "/api/projects", cookies: admin})
	require.Equal(t, http.StatusOK, w.Code)
	var projects struct {
		Projects []dto.ProjectDTO `json:"projects"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &projects))
	assert.Len(t, projects.Projects, 2)

	w = env.do(t, request{method: http.MethodGet, path: "/api/projects?page=2&limit=1", cookies: admin})
	require.Equal(t, http.StatusOK, w.Code)
	var paged struct {
		Projects   []dto.ProjectDTO         `json:"projects"`
		Pagination utils.PaginationResponse `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &paged))
	assert.Len(t, paged.Projects, 1)
	assert.Equal(t, utils.PaginationResponse{Page: 2, Limit: 1, Total: 2}, paged.Pagination)

	w = env.do(t, request{method: http.MethodGet, path: "/api/projects?page=2305843009213693953&limit=4", cookies: admin})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &paged))
	assert.Empty(t, paged.Projects)

	w = env.do(t, request{method: http.MethodDelete, path: "/api/projects/" + env.cfg.OnlineProject, cookies: admin})
	require.Equal(t, http.StatusConflict, w.Code)
}

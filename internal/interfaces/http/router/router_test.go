package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())

	assert.NotNil(t, r)
	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)
}

func TestRouterWithAPIVersion(t *testing.T) {
	r := NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	group := NewDomainGroup("steps", "/steps")
	group.GET("", func(c *gin.Context) {
		c.String(http.StatusOK, "steps")
	})
	r.Register(group).Setup()

	w := serve(engine, http.MethodGet, "/api/v1/steps")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "steps", w.Body.String())
}

func TestDomainGroup(t *testing.T) {
	t.Run("name and prefix", func(t *testing.T) {
		group := NewDomainGroup("admin", "/admin")
		assert.Equal(t, "admin", group.Name())
		assert.Equal(t, "/admin", group.Prefix())
	})

	t.Run("methods", func(t *testing.T) {
		engine := gin.New()
		ok := func(c *gin.Context) { c.String(http.StatusOK, c.Request.Method) }

		group := NewDomainGroup("clients", "/clients").
			GET("/:token", ok).
			POST("/:token/delete", ok).
			PUT("/:token/active", ok).
			DELETE("/:token/delete", ok)
		NewRouter(engine).Register(group).Setup()

		for _, tc := range []struct{ method, path string }{
			{http.MethodGet, "/api/v1/clients/ABCD1234"},
			{http.MethodPost, "/api/v1/clients/ABCD1234/delete"},
			{http.MethodPut, "/api/v1/clients/ABCD1234/active"},
			{http.MethodDelete, "/api/v1/clients/ABCD1234/delete"},
		} {
			w := serve(engine, tc.method, tc.path)
			assert.Equal(t, http.StatusOK, w.Code, tc.path)
			assert.Equal(t, tc.method, w.Body.String())
		}
	})

	t.Run("middleware applies to subgroups only below it", func(t *testing.T) {
		engine := gin.New()
		guard := func(c *gin.Context) {
			if c.GetHeader("Authorization") == "" {
				c.AbortWithStatus(http.StatusUnauthorized)
				return
			}
			c.Next()
		}
		ok := func(c *gin.Context) { c.Status(http.StatusOK) }

		admin := NewDomainGroup("admin", "/admin")
		admin.POST("/auth/login", ok)
		admin.Group("clients", "/clients").Use(guard).GET("", ok)
		NewRouter(engine).Register(admin).Setup()

		assert.Equal(t, http.StatusOK, serve(engine, http.MethodPost, "/api/v1/admin/auth/login").Code)
		assert.Equal(t, http.StatusUnauthorized, serve(engine, http.MethodGet, "/api/v1/admin/clients").Code)
	})
}

func TestMultipleDomainGroups(t *testing.T) {
	engine := gin.New()
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }

	NewRouter(engine).
		Register(NewDomainGroup("wizard", "/forms").GET("/:token", ok)).
		Register(NewDomainGroup("system", "/system").GET("/info", ok)).
		Setup()

	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/v1/forms/ABCD1234").Code)
	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/v1/system/info").Code)
	assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodGet, "/api/v1/unknown").Code)
}

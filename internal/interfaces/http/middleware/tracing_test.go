package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTracedRouter(t *testing.T) (*gin.Engine, *tracetest.SpanRecorder) {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(t.Context()) })

	router := gin.New()
	router.Use(RequestID(), Tracing(TracingConfig{
		Enabled:     true,
		ServiceName: "test-service",
		Options:     []otelgin.Option{otelgin.WithTracerProvider(tp)},
	}))
	return router, sr
}

func attrValue(attrs []attribute.KeyValue, key string) (string, bool) {
	for _, a := range attrs {
		if string(a.Key) == key {
			return a.Value.Emit(), true
		}
	}
	return "", false
}

func TestTracing_Disabled(t *testing.T) {
	router := gin.New()
	router.Use(Tracing(TracingConfig{Enabled: false}))
	router.GET("/test", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTracing_SpanUsesRoutePattern(t *testing.T) {
	router, sr := newTracedRouter(t)
	router.GET("/api/v1/forms/:token", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/forms/ABCD1234", nil))
	require.Equal(t, http.StatusOK, w.Code)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Contains(t, spans[0].Name(), "/api/v1/forms/:token")
	assert.NotContains(t, spans[0].Name(), "ABCD1234")
}

func TestSpanEnricher(t *testing.T) {
	router, sr := newTracedRouter(t)
	group := router.Group("/forms/:token")
	group.Use(func(c *gin.Context) {
		ctx := logger.WithFormToken(c.Request.Context(), c.Param("token"))
		c.Request = c.Request.WithContext(logger.WithActor(ctx, "admin"))
		c.Next()
	}, SpanEnricher())
	group.GET("", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	group.GET("/boom", func(c *gin.Context) { c.String(http.StatusServiceUnavailable, "down") })
	group.GET("/missing", func(c *gin.Context) { c.String(http.StatusNotFound, "nope") })

	t.Run("copies identity", func(t *testing.T) {
		sr.Reset()
		req := httptest.NewRequest(http.MethodGet, "/forms/ABCD1234", nil)
		req.Header.Set(RequestIDKey, "req-42")
		router.ServeHTTP(httptest.NewRecorder(), req)

		spans := sr.Ended()
		require.Len(t, spans, 1)
		attrs := spans[0].Attributes()
		v, ok := attrValue(attrs, "form.token")
		assert.True(t, ok)
		assert.Equal(t, "ABCD1234", v)
		v, _ = attrValue(attrs, "admin.actor")
		assert.Equal(t, "admin", v)
		v, _ = attrValue(attrs, "request_id")
		assert.Equal(t, "req-42", v)
	})

	t.Run("server errors mark the span", func(t *testing.T) {
		sr.Reset()
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/forms/ABCD1234/boom", nil))

		spans := sr.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Error, spans[0].Status().Code)
	})

	t.Run("client errors do not", func(t *testing.T) {
		sr.Reset()
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/forms/ABCD1234/missing", nil))

		spans := sr.Ended()
		require.Len(t, spans, 1)
		assert.NotEqual(t, codes.Error, spans[0].Status().Code)
	})
}

package router

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/infrastructure/auth"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/infrastructure/config"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/infrastructure/logger"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/interfaces/http/handler"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/interfaces/http/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Config holds the HTTP surface settings
type Config struct {
	ServiceName          string
	HTTP                 config.HTTPConfig
	RequireClientSession bool
	TracingEnabled       bool
}

// Dependencies are the handlers and collaborators mounted on the engine
type Dependencies struct {
	Logger     *zap.Logger
	JWTService *auth.JWTService
	Meter      metric.Meter // optional
	Wizard     *handler.WizardHandler
	Admin      *handler.AdminHandler
	System     *handler.SystemHandler
}

// Engine is the assembled gin engine. Close stops the rate limiters.
type Engine struct {
	*gin.Engine
	limiters []*middleware.RateLimiter
}

// Close releases background resources held by middleware
func (e *Engine) Close() {
	for _, l := range e.limiters {
		l.Stop()
	}
}

// New builds the engine with the global middleware chain and every route
func New(cfg Config, deps Dependencies) (*Engine, error) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return nil, fmt.Errorf("set trusted proxies: %w", err)
	}
	e := &Engine{Engine: engine}

	engine.Use(
		logger.Recovery(deps.Logger),
		middleware.RequestID(),
		middleware.Tracing(middleware.TracingConfig{ServiceName: cfg.ServiceName, Enabled: cfg.TracingEnabled}),
		logger.GinMiddleware(deps.Logger),
		middleware.HTTPMetrics(deps.Meter, deps.Logger),
		middleware.Secure(),
		middleware.CORSWithConfig(corsConfig(cfg.HTTP)),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)
	if cfg.HTTP.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		e.limiters = append(e.limiters, limiter)
		engine.Use(middleware.RateLimit(limiter))
	}

	authLimit := func(c *gin.Context) { c.Next() }
	if cfg.HTTP.AuthRateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow)
		e.limiters = append(e.limiters, limiter)
		authLimit = middleware.RateLimit(limiter)
	}

	jwtCfg := middleware.JWTMiddlewareConfig{JWTService: deps.JWTService, Logger: deps.Logger}
	clientSession := middleware.ClientSessionMiddleware(middleware.ClientSessionConfig{
		JWTMiddlewareConfig: jwtCfg,
		Required:            cfg.RequireClientSession,
	})
	saveCfg := jwtCfg
	saveCfg.OnError = handler.SaveAuthError
	saveSession := middleware.ClientSessionMiddleware(middleware.ClientSessionConfig{
		JWTMiddlewareConfig: saveCfg,
		Required:            cfg.RequireClientSession,
	})

	if deps.System != nil {
		engine.GET("/health", deps.System.Health)
	}

	r := NewRouter(engine)

	if deps.Wizard != nil {
		forms := NewDomainGroup("wizard", "/forms")
		forms.POST("/session", authLimit, deps.Wizard.OpenSession)
		forms.POST("/save", saveSession, middleware.SpanEnricher(), deps.Wizard.Save)
		forms.GET("/:token", clientSession, middleware.SpanEnricher(), deps.Wizard.Resume)
		r.Register(forms)

		steps := NewDomainGroup("steps", "/steps")
		steps.GET("", deps.Wizard.Steps)
		r.Register(steps)
	}

	if deps.Admin != nil {
		admin := NewDomainGroup("admin", "/admin")
		admin.POST("/auth/login", authLimit, deps.Admin.Login)

		clients := admin.Group("clients", "/clients").
			Use(middleware.AdminAuthMiddleware(jwtCfg), middleware.SpanEnricher())
		clients.GET("", deps.Admin.ListClients)
		clients.POST("", deps.Admin.CreateClient)
		clients.GET("/stats", deps.Admin.Stats)
		clients.GET("/:token", deps.Admin.GetClient)
		clients.PUT("/:token/payment", deps.Admin.SetPayment)
		clients.POST("/:token/comments", deps.Admin.AddComment)
		clients.PUT("/:token/active", deps.Admin.SetActive)
		clients.POST("/:token/delete", deps.Admin.RequestDelete)
		clients.DELETE("/:token/delete", deps.Admin.CancelDelete)
		clients.POST("/:token/export", deps.Admin.Export)
		r.Register(admin)
	}

	if deps.System != nil {
		system := NewDomainGroup("system", "/system")
		system.GET("/info", deps.System.GetSystemInfo)
		r.Register(system)
	}

	r.Setup()
	return e, nil
}

func corsConfig(httpCfg config.HTTPConfig) middleware.CORSConfig {
	cfg := middleware.DefaultCORSConfig()
	cfg.AllowOrigins = httpCfg.CORSAllowOrigins
	if len(httpCfg.CORSAllowMethods) > 0 {
		cfg.AllowMethods = httpCfg.CORSAllowMethods
	}
	if len(httpCfg.CORSAllowHeaders) > 0 {
		cfg.AllowHeaders = httpCfg.CORSAllowHeaders
	}
	return cfg
}

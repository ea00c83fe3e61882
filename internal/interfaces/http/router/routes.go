package router

import (
	"github.com/gin-gonic/gin"
	"github.com/shopcore/backend/internal/infrastructure/config"
	"github.com/shopcore/backend/internal/interfaces/http/handler"
	"github.com/shopcore/backend/internal/interfaces/http/middleware"
)

// Handlers groups the HTTP handlers of the shop API
type Handlers struct {
	Health   *handler.HealthHandler
	Auth     *handler.AuthHandler
	Order    *handler.OrderHandler
	Product  *handler.ProductHandler
	Security *handler.SecurityHandler
	Audit    *handler.AuditHandler
}

// Guards are the services the authentication and throttling middleware consult
type Guards struct {
	Tokens middleware.TokenValidator
	Quotas middleware.QuotaTaker
	Blocks middleware.BlockChecker
}

// RegisterShopRoutes mounts /health and the /api/<version> routes on engine
func RegisterShopRoutes(engine *gin.Engine, h Handlers, g Guards, opts ...RouterOption) *Router {
	engine.GET("/health", h.Health.Check)

	opts = append([]RouterOption{WithMiddleware(
		middleware.OptionalJWTAuth(g.Tokens),
		middleware.TracingAttributeInjector(),
		middleware.GeneralQuota(g.Quotas),
	)}, opts...)
	r := NewRouter(engine, opts...)

	authRoutes := NewDomainGroup("auth", "/auth")
	authRoutes.POST("/login", middleware.BlockGuard(g.Blocks), middleware.Quota(g.Quotas, config.QuotaScopeLogin), h.Auth.Login)
	authRoutes.POST("/refresh", middleware.BlockGuard(g.Blocks), middleware.Quota(g.Quotas, config.QuotaScopeRefresh), h.Auth.Refresh)
	authRoutes.POST("/logout", middleware.RequireAuth(), h.Auth.Logout)

	productRoutes := NewDomainGroup("catalog", "/products")
	productRoutes.GET("", h.Product.List)
	productRoutes.GET("/:id", h.Product.GetByID)
	productRoutes.POST("", middleware.RequireAuth(), middleware.RequireAdmin(), h.Product.Create)

	orderRoutes := NewDomainGroup("sales", "/orders").
		Use(middleware.RequireAuth(), middleware.RequireMethodRoles(middleware.OrderPolicy), middleware.BlockGuard(g.Blocks))
	orderRoutes.POST("", middleware.Quota(g.Quotas, config.QuotaScopeOrderCreate), h.Order.Create)
	orderRoutes.GET("", h.Order.List)
	orderRoutes.GET("/:id", h.Order.GetByID)
	orderRoutes.POST("/:id/lines", h.Order.AddLine)
	orderRoutes.DELETE("/:id/lines/:product_id", h.Order.RemoveLine)
	orderRoutes.POST("/:id/confirm", middleware.Quota(g.Quotas, config.QuotaScopeOrderConfirm), h.Order.Confirm)
	orderRoutes.POST("/:id/cancel", h.Order.Cancel)
	orderRoutes.POST("/:id/ship", middleware.RequireRole(middleware.StaffRoles...), h.Order.Ship)
	orderRoutes.POST("/:id/deliver", middleware.RequireRole(middleware.StaffRoles...), h.Order.Deliver)

	securityRoutes := NewDomainGroup("security", "/security").
		Use(middleware.RequireAuth(), middleware.RequireAdmin())
	blocks := securityRoutes.Group("blocks", "/blocks")
	blocks.GET("/:kind/:value", h.Security.GetBlock)
	blocks.DELETE("/ip/:ip", h.Security.UnblockIP)
	blocks.DELETE("/user/:user_id", h.Security.UnblockUser)
	blocks.DELETE("/username/:username", h.Security.UnblockUsername)

	auditRoutes := NewDomainGroup("audit", "/audit").
		Use(middleware.RequireAuth(), middleware.RequireAdmin())
	auditRoutes.GET("", h.Audit.List)

	r.Register(authRoutes).
		Register(productRoutes).
		Register(orderRoutes).
		Register(securityRoutes).
		Register(auditRoutes)
	r.Setup()

	return r
}

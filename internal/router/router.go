package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4" // import the Echo web framework to handle routing
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/flash-sale/internal/config"
    "github.com/iliyamo/flash-sale/internal/handler"    // import the handlers that implement business logic
    "github.com/iliyamo/flash-sale/internal/middleware" // import middleware for JWT authentication and role enforcement
    "github.com/iliyamo/flash-sale/internal/model"
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
    // Used by load balancers and monitoring to verify the service is up.
    e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication routes.  Unauthenticated
// operations live under /v1/auth; everything the purchase flow needs sits
// behind JWTAuth elsewhere.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
    g := e.Group("/v1/auth")
    g.POST("/register", a.Register)
    g.POST("/login", a.Login)
}

// RegisterPublic registers the unauthenticated sale-status reads.  They sit
// behind the short-TTL response cache so the polling stampede before a drop
// opens never reaches MySQL more than once per TTL.
func RegisterPublic(e *echo.Echo, fs *handler.FlashSaleHandler, cacheCfg config.CacheConfig, rdb *redis.Client) {
    cached := e.Group("/v1/flash-sales", middleware.NewRedisCache(cacheCfg, rdb))
    cached.GET("", fs.List)
    cached.GET("/:id", fs.Get)
}

// RegisterPurchase registers the authenticated purchase pipeline and the
// reservation lifecycle.  Buyer identity always comes from the access
// token.
func RegisterPurchase(e *echo.Echo, p *handler.PurchaseHandler, r *handler.ReservationHandler, jwtSecret string) {
    auth := e.Group("/v1")
    auth.Use(middleware.JWTAuth(jwtSecret))
    auth.Use(middleware.RequireRole(model.RoleCustomer, model.RoleAdmin))

    auth.GET("/flash-sales/:id/challenge", p.Challenge)
    auth.POST("/flash-sales/purchase", p.Purchase)

    auth.POST("/reservations/:id/confirm", r.Confirm)
    auth.POST("/reservations/:id/cancel", r.Cancel)
    auth.GET("/reservations", r.List)
}

// RegisterAdmin registers sale administration, restricted to ADMIN tokens.
func RegisterAdmin(e *echo.Echo, fs *handler.FlashSaleHandler, jwtSecret string) {
    admin := e.Group("/v1/admin")
    admin.Use(middleware.JWTAuth(jwtSecret))
    admin.Use(middleware.RequireRole(model.RoleAdmin))

    admin.POST("/flash-sales", fs.Create)
    admin.GET("/flash-sales/:id/dashboard", fs.Dashboard)
}

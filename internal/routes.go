package internal

import (
	"net/http"
	"spd/internal/controllers"
	"spd/internal/providers"
)

func InitRoutes(apiController *controllers.ApiController, limiter providers.RateLimiterInterface) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Get("/api/read", http.HandlerFunc(apiController.Read))
	routers.Post("/api/write", limiter.Middleware(http.HandlerFunc(apiController.Write)))
	return routers
}

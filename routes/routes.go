package routes

import (
	"tourmart/cart"
	"tourmart/catalog"
	"tourmart/checkout"
	"tourmart/middleware"
	"tourmart/orders"
	"tourmart/ratelim"

	"github.com/julienschmidt/httprouter"
)

func AddProductRoutes(router *httprouter.Router, h *catalog.Handler) {
	router.GET("/api/products", middleware.OptionalAuth(h.ListProducts))
	router.GET("/api/products/:productid", middleware.OptionalAuth(h.GetProduct))
}

func AddCartRoutes(router *httprouter.Router, h *cart.Handler, rl *ratelim.RateLimiter) {
	router.GET("/api/cart", middleware.Authenticate(h.GetCart))
	router.GET("/api/cart/count", middleware.Authenticate(h.GetCount))
	router.POST("/api/cart", rl.Limit(middleware.Authenticate(h.AddItem)))
	router.PUT("/api/cart", rl.Limit(middleware.Authenticate(h.UpdateQuantity)))
	router.DELETE("/api/cart", rl.Limit(middleware.Authenticate(h.ClearCart)))
	router.DELETE("/api/cart/:productid/:option", rl.Limit(middleware.Authenticate(h.RemoveItem)))
}

func AddCheckoutRoutes(router *httprouter.Router, h *checkout.Handler, rl *ratelim.RateLimiter) {
	router.GET("/api/checkout/form", middleware.Authenticate(h.GetOrderForm))
	router.POST("/api/checkout", rl.Limit(middleware.Authenticate(h.CreateOrder)))
}

func AddOrderRoutes(router *httprouter.Router, h *orders.Handler, rl *ratelim.RateLimiter) {
	router.GET("/api/orders", middleware.Authenticate(h.GetHistory))
	router.GET("/api/orders/:orderid", middleware.Authenticate(h.GetDetail))
	router.POST("/api/orders/:orderid/pay", rl.Limit(middleware.Authenticate(h.Pay)))
	router.POST("/api/orders/:orderid/cancel", rl.Limit(middleware.Authenticate(h.Cancel)))

	// "count" and "code" would clash with the :orderid wildcard, so they
	// live under the singular prefix.
	router.GET("/api/order/count", middleware.Authenticate(h.GetCount))
	router.GET("/api/order/code/:ordercode", middleware.Authenticate(h.GetByCode))
}

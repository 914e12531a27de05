package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/quickmart/shop-backend/internal/middleware/auth"
)

type Deps struct {
	Cart      *CartHTTP
	Order     *OrderHTTP
	Payment   *PaymentHTTP
	Product   *ProductHTTP
	JWTSecret []byte
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	authMW := &auth.Middleware{JWTSecret: d.JWTSecret}

	products := e.Group("/api/products")
	products.GET("", d.Product.ListProducts)
	products.GET("/:id", d.Product.GetProduct)

	admin := e.Group("/api/admin", authMW.AdminOnly)
	admin.GET("/products", d.Product.AdminListProducts)
	admin.POST("/products", d.Product.CreateProduct)
	admin.PUT("/products/:id", d.Product.UpdateProduct)
	admin.DELETE("/products/:id", d.Product.DeactivateProduct)
	admin.DELETE("/products/:id/hard", d.Product.DeleteProduct)
	admin.GET("/products/low-stock", d.Product.LowStock)
	admin.GET("/orders", d.Order.AllOrders)

	cart := e.Group("/api/cart", authMW.RequireLogin)
	cart.GET("", d.Cart.GetCart)
	cart.POST("/add", d.Cart.AddItem)
	cart.PUT("/update", d.Cart.UpdateItem)
	cart.DELETE("/remove/:productId", d.Cart.RemoveItem)
	cart.POST("/save-for-later/:productId", d.Cart.SaveForLater)
	cart.POST("/move-to-cart/:productId", d.Cart.MoveToCart)

	orders := e.Group("/api/orders", authMW.RequireLogin)
	orders.POST("", d.Order.CreateOrder)
	orders.GET("/my", d.Order.MyOrders)

	payments := e.Group("/api/payments", authMW.RequireLogin)
	payments.POST("/create-intent", d.Payment.CreateIntent)
	payments.POST("/verify", d.Payment.Verify)

	// Registered outside every group: the handler reads the raw body
	// itself, and no body-transforming middleware may touch this route.
	e.POST("/api/webhooks/stripe", d.Payment.StripeWebhook)
}

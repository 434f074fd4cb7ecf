package routes

import (
	"net/http"

	"canteen-service/controllers"
	"canteen-service/middlewares"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Deps struct {
	DB             controllers.Pinger
	Orders         controllers.OrderService
	Catalog        controllers.CatalogService
	JWTSecret      string
	AuthEnabled    bool
	AllowedOrigins []string
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middlewares.RequestLogger(), middlewares.PrometheusMiddleware())
	corsCfg := cors.Config{
		AllowOrigins: d.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
	}
	if len(d.AllowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	}
	r.Use(cors.New(corsCfg))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", controllers.Status(d.DB))
	r.GET("/status", controllers.Status(d.DB))

	catalog := controllers.NewCatalogController(d.Catalog)
	r.GET("/vendors", catalog.ListVendors)
	r.GET("/items", catalog.ListAllItems)
	r.GET("/items/:vendorUsername", catalog.ListVendorItems)
	r.GET("/categories/:vendorUsername", catalog.ListCategoryItems)
	r.GET("/search", catalog.Search)

	orders := controllers.NewOrderController(d.Orders)
	r.GET("/orders/create", orders.Ping)
	r.POST("/dead-letter", orders.HandleDeadLetter)

	authGroup := r.Group("/orders")
	if d.AuthEnabled {
		authGroup.Use(middlewares.AuthMiddleware(d.JWTSecret))
	}
	{
		authGroup.POST("/create", orders.CreateOrder)
		authGroup.GET("/:username", orders.GetCustomerOrders)
		authGroup.PUT("/:id/status", orders.UpdateOrderStatus)
	}

	return r
}

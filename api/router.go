package api

import (
	"context"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

type Handlers struct {
	Flights  *FlightHandler
	Bookings *BookingHandler
	Receipts *ReceiptHandler
	Payments *PaymentHandler
	Auth     *AuthHandler
	Contact  *ContactHandler
}

type RouterConfig struct {
	Logger            *zap.Logger
	Tokens            TokenParser
	RequestsPerMinute int
	// SwaggerDir holds openapi.yaml; the docs UI is disabled when empty.
	SwaggerDir string
	// Health reports whether the service's dependencies are reachable.
	Health func(ctx context.Context) error
}

func NewRouter(cfg RouterConfig, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(cfg.Logger))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if cfg.SwaggerDir != "" {
		router.StaticFile("/openapi.yaml", filepath.Join(cfg.SwaggerDir, "openapi.yaml"))
		router.GET("/swagger/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/openapi.yaml"))))
	}

	api := router.Group("/api", RateLimit(cfg.RequestsPerMinute, cfg.Logger))
	api.GET("/health", healthHandler(cfg.Health))

	authenticated := RequireAuth(cfg.Tokens)

	h.Flights.Register(api.Group("/flights"))
	h.Auth.Register(api.Group("/auth"), authenticated)
	h.Contact.Register(api.Group("/contact"))

	bookings := api.Group("/bookings", authenticated)
	h.Bookings.Register(bookings)
	h.Receipts.Register(bookings)

	h.Payments.Register(api.Group("/payments", authenticated))

	return router
}

func healthHandler(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{"status": "ok", "timestamp": time.Now().UTC().Format(time.RFC3339)}
		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				body["status"] = "degraded"
				c.JSON(http.StatusServiceUnavailable, body)
				return
			}
		}
		c.JSON(http.StatusOK, body)
	}
}

// Package http provides the REST query server.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xiaot623/newsstream/internal/service"
	v1 "github.com/xiaot623/newsstream/internal/transport/http/v1"
	"github.com/xiaot623/newsstream/policy"
)

// NewServer creates and configures the query HTTP server.
// It serves the article filter API, health and Prometheus metrics.
func NewServer(svc *service.Service, engine *policy.Engine, conns v1.ConnectionCounter, gatherer prometheus.Gatherer) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Handlers
	v1Handler := v1.NewHandler(svc, engine, conns)

	// Register Routes
	v1Handler.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	return e
}

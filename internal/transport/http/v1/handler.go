// Package v1 provides the HTTP handlers of the article query API.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/newsstream/internal/service"
	"github.com/xiaot623/newsstream/policy"
)

// isoMillis matches the timestamp format clients already parse.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// ConnectionCounter reports the number of open stream connections.
type ConnectionCounter interface {
	GetConnectionCount() int
}

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
	policy  *policy.Engine
	conns   ConnectionCounter
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service, engine *policy.Engine, conns ConnectionCounter) *Handler {
	return &Handler{
		service: service,
		policy:  engine,
		conns:   conns,
	}
}

// RegisterRoutes registers the API routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/articles/filter", h.FilterArticles)
	e.GET("/api/articles/categories", h.CategoryCounts)
	e.GET("/api/categories", h.ListCategories)

	e.GET("/api/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	connections := 0
	if h.conns != nil {
		connections = h.conns.GetConnectionCount()
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "OK",
		"timestamp":   h.service.Now().UTC().Format(isoMillis),
		"connections": connections,
	})
}

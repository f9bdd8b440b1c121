package v1

import (
	"net/http"
	"strings"

	"github.com/juju/loggo/v2"
	"github.com/labstack/echo/v4"

	"github.com/xiaot623/newsstream/internal/domain"
	"github.com/xiaot623/newsstream/internal/service"
	"github.com/xiaot623/newsstream/policy"
)

var logger = loggo.GetLogger("newsstream.http")

// FilterResponse is the response for GET /api/articles/filter.
type FilterResponse struct {
	Success  bool             `json:"success"`
	Date     string           `json:"date"`
	Category domain.Category  `json:"category,omitempty"`
	Count    int              `json:"count"`
	Articles []domain.Article `json:"articles"`
}

// FilterArticles returns the stored articles of a past day.
// GET /api/articles/filter?date=YYYY-MM-DD&category=
func (h *Handler) FilterArticles(c echo.Context) error {
	ctx := c.Request().Context()
	raw := strings.TrimSpace(c.QueryParam("date"))

	day, _ := service.ParseDate(raw)
	allowed, reason, err := h.policy.AdmitFilter(ctx, policy.NewFilterInput(raw, day, h.service.Yesterday()))
	if err != nil {
		logger.Errorf("evaluating filter policy: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{"success": false, "error": "policy evaluation failed"})
	}
	if !allowed {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{"success": false, "error": reason})
	}

	category, err := parseCategory(c.QueryParam("category"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"success":    false,
			"error":      err.Error(),
			"categories": domain.Categories(),
		})
	}

	articles, err := h.service.FilterArticles(ctx, day, category)
	if err != nil {
		logger.Errorf("filtering articles for %s: %v", day.Format(domain.DateLayout), err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{"success": false, "error": "failed to load articles"})
	}

	return c.JSON(http.StatusOK, FilterResponse{
		Success:  true,
		Date:     day.Format(domain.DateLayout),
		Category: category,
		Count:    len(articles),
		Articles: articles,
	})
}

// CategoryCounts returns the per-category totals of a day.
// GET /api/articles/categories?date=
func (h *Handler) CategoryCounts(c echo.Context) error {
	ctx := c.Request().Context()
	day := h.service.ResolveDate(c.QueryParam("date"))

	counts, err := h.service.CategoryCounts(ctx, day)
	if err != nil {
		logger.Errorf("counting categories for %s: %v", day.Format(domain.DateLayout), err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to count categories"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"date":   day.Format(domain.DateLayout),
		"counts": counts,
	})
}

// ListCategories lists the category labels.
// GET /api/categories
func (h *Handler) ListCategories(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"categories": domain.Categories(),
	})
}

func parseCategory(raw string) (domain.Category, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	return domain.ParseCategory(raw)
}

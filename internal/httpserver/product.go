package httpserver

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/quickmart/shop-backend/internal/logging"
	"github.com/quickmart/shop-backend/internal/models"
	"github.com/quickmart/shop-backend/internal/repo"
	"github.com/quickmart/shop-backend/internal/service"
	"github.com/quickmart/shop-backend/internal/transport"
	"github.com/quickmart/shop-backend/internal/util"
)

type ProductHTTP struct {
	Svc *service.CatalogService
}

func (h *ProductHTTP) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	p, err := h.Svc.GetProduct(ctx, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, withAvailable(p))
}

func (h *ProductHTTP) ListProducts(c echo.Context) error {
	return h.list(c, repo.ProductFilter{
		Category:   c.QueryParam("category"),
		ActiveOnly: true,
	})
}

func (h *ProductHTTP) AdminListProducts(c echo.Context) error {
	return h.list(c, repo.ProductFilter{Category: c.QueryParam("category")})
}

func (h *ProductHTTP) list(c echo.Context, f repo.ProductFilter) error {
	ctx := c.Request().Context()

	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	offset, limit := util.Calculate(page, size)

	items, total, err := h.Svc.ListProducts(ctx, f, offset, limit)
	if err != nil {
		logging.FromContext(ctx).Error("list_products_error", "error", err)
		return httpError(err)
	}

	out := make([]transport.ProductResponse, 0, len(items))
	for i := range items {
		out = append(out, withAvailable(&items[i]))
	}
	return c.JSON(http.StatusOK, map[string]any{
		"data": out,
		"meta": transport.PageMeta{
			Page:       offset/limit + 1,
			Size:       limit,
			Total:      total,
			TotalPages: (total + int64(limit) - 1) / int64(limit),
		},
	})
}

func (h *ProductHTTP) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.create")

	var req transport.ProductRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	p, err := h.Svc.CreateProduct(ctx, req)
	if err != nil {
		l.Warn("create_product_error", "error", err)
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, withAvailable(p))
}

func (h *ProductHTTP) UpdateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.update")

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	var req transport.ProductRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	p, err := h.Svc.UpdateProduct(ctx, id, req)
	if err != nil {
		l.Warn("update_product_error", "product_id", id, "error", err)
		return httpError(err)
	}
	return c.JSON(http.StatusOK, withAvailable(p))
}

func (h *ProductHTTP) DeactivateProduct(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	if err := h.Svc.DeactivateProduct(ctx, id); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "product disabled"})
}

func (h *ProductHTTP) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	if err := h.Svc.DeleteProduct(ctx, id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ProductHTTP) LowStock(c echo.Context) error {
	ctx := c.Request().Context()

	items, err := h.Svc.LowStock(ctx)
	if err != nil {
		return httpError(err)
	}
	out := make([]transport.ProductResponse, 0, len(items))
	for i := range items {
		out = append(out, withAvailable(&items[i]))
	}
	return c.JSON(http.StatusOK, out)
}

func withAvailable(p *models.Product) transport.ProductResponse {
	return transport.ProductResponse{
		ID:                p.ID,
		Name:              p.Name,
		Description:       p.Description,
		Category:          p.Category,
		Images:            p.Images,
		Price:             p.Price,
		Stock:             p.Stock,
		ReservedStock:     p.ReservedStock,
		AvailableStock:    p.AvailableStock(),
		LowStockThreshold: p.LowStockThreshold,
		IsActive:          p.IsActive,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

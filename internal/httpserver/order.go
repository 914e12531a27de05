package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/quickmart/shop-backend/internal/logging"
	"github.com/quickmart/shop-backend/internal/middleware/auth"
	"github.com/quickmart/shop-backend/internal/service"
	"github.com/quickmart/shop-backend/internal/transport"
	"github.com/quickmart/shop-backend/internal/util"
)

type OrderHTTP struct {
	Svc *service.OrderService
}

func (h *OrderHTTP) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.create")

	userID, err := auth.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	order, err := h.Svc.CreateFromCart(ctx, userID)
	if err != nil {
		l.Warn("create_order_error", "user_id", userID, "error", err)
		return httpError(err)
	}

	l.Info("create_order_success", "order_id", order.ID)
	return c.JSON(http.StatusCreated, order)
}

func (h *OrderHTTP) MyOrders(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := auth.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	orders, err := h.Svc.ListMine(ctx, userID)
	if err != nil {
		logging.FromContext(ctx).Error("list_orders_error", "error", err)
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"orders": orders})
}

func (h *OrderHTTP) AllOrders(c echo.Context) error {
	ctx := c.Request().Context()

	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	offset, limit := util.Calculate(page, size)

	orders, total, err := h.Svc.ListAll(ctx, offset, limit)
	if err != nil {
		logging.FromContext(ctx).Error("list_all_orders_error", "error", err)
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"orders": orders,
		"meta": transport.PageMeta{
			Page:       offset/limit + 1,
			Size:       limit,
			Total:      total,
			TotalPages: (total + int64(limit) - 1) / int64(limit),
		},
	})
}

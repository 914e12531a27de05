package httpserver

import (
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/quickmart/shop-backend/internal/logging"
	"github.com/quickmart/shop-backend/internal/middleware/auth"
	"github.com/quickmart/shop-backend/internal/models"
	"github.com/quickmart/shop-backend/internal/service"
	"github.com/quickmart/shop-backend/internal/transport"
)

type PaymentHTTP struct {
	Svc *service.PaymentService
}

func (h *PaymentHTTP) CreateIntent(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.create_intent")

	userID, err := auth.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var req transport.CreateIntentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.OrderID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "order_id required")
	}

	clientSecret, err := h.Svc.CreateIntent(ctx, userID, req.OrderID)
	if err != nil {
		l.Warn("create_intent_error", "order_id", req.OrderID, "error", err)
		return httpError(err)
	}
	return c.JSON(http.StatusOK, transport.CreateIntentResponse{ClientSecret: clientSecret})
}

func (h *PaymentHTTP) Verify(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.verify")

	userID, err := auth.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var req transport.VerifyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.OrderID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "order_id required")
	}

	resp, err := h.Svc.Verify(ctx, userID, req.OrderID)
	if err != nil {
		l.Warn("verify_error", "order_id", req.OrderID, "error", err)
		if resp != nil {
			// Mismatch: the order was forced to Failed; report that state.
			return c.JSON(http.StatusBadRequest, resp)
		}
		return httpError(err)
	}
	if resp.PaymentStatus == models.PaymentFailed {
		return c.JSON(http.StatusBadRequest, resp)
	}
	return c.JSON(http.StatusOK, resp)
}

// StripeWebhook must see the raw, unparsed body: signature verification runs
// over exactly the bytes the provider signed.
func (h *PaymentHTTP) StripeWebhook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.webhook")

	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read body")
	}
	sig := c.Request().Header.Get("Stripe-Signature")

	if err := h.Svc.HandleWebhook(ctx, payload, sig); err != nil {
		l.Warn("webhook_error", "error", err)
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"received": true})
}

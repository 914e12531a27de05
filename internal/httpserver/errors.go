package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/quickmart/shop-backend/internal/service"
)

// httpError maps the service error taxonomy onto HTTP statuses in one place
// so handlers don't repeat the chain.
func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, service.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrItemNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "item not found")
	case errors.Is(err, service.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "forbidden")
	case errors.Is(err, service.ErrInsufficientStock):
		return echo.NewHTTPError(http.StatusConflict, "insufficient stock")
	case errors.Is(err, service.ErrOutOfStock):
		return echo.NewHTTPError(http.StatusConflict, "out of stock")
	case errors.Is(err, service.ErrEmptyCart):
		return echo.NewHTTPError(http.StatusBadRequest, "cart is empty")
	case errors.Is(err, service.ErrProductUnavailable):
		return echo.NewHTTPError(http.StatusConflict, "a cart item is no longer available")
	case errors.Is(err, service.ErrAlreadyPaid):
		return echo.NewHTTPError(http.StatusBadRequest, "order already paid")
	case errors.Is(err, service.ErrNoPaymentIntent):
		return echo.NewHTTPError(http.StatusBadRequest, "no payment intent for this order")
	case errors.Is(err, service.ErrAmountMismatch), errors.Is(err, service.ErrCurrencyMismatch):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidSignature):
		return echo.NewHTTPError(http.StatusBadRequest, "invalid signature")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quickmart/shop-backend/internal/idempotency"
	"github.com/quickmart/shop-backend/internal/logging"
	"github.com/quickmart/shop-backend/internal/models"
	"github.com/quickmart/shop-backend/internal/repo"
	"github.com/quickmart/shop-backend/internal/stripe"
	"github.com/quickmart/shop-backend/internal/transport"
)

// PaymentProvider is the slice of the external payment API the settlement
// gateway consumes.
type PaymentProvider interface {
	CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*stripe.PaymentIntent, error)
	RetrieveIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error)
	ConstructEvent(payload []byte, sigHeader string) (*stripe.Event, error)
}

// PaymentService reconciles provider-reported outcomes with the order
// lifecycle. The webhook is the authoritative path; Verify is the
// client-triggered fallback. Both may race on the same order and rely on
// OrderService re-entrancy, not mutual exclusion.
type PaymentService struct {
	Repo     *repo.GormRepo
	Orders   *OrderService
	Provider PaymentProvider
	Currency string

	// Idem deduplicates webhook deliveries by event id. Optional: a nil
	// store just means duplicate deliveries re-enter the (idempotent)
	// settlement path.
	Idem idempotency.Store
}

// CreateIntent requests a payment intent for the order total in minor units
// and persists the intent reference. The returned client secret is the
// opaque token the client completes payment with.
func (s *PaymentService) CreateIntent(ctx context.Context, userID, orderID uuid.UUID) (string, error) {
	order, err := s.Orders.GetOrder(ctx, userID, orderID)
	if err != nil {
		return "", err
	}
	if order.PaymentStatus == models.PaymentPaid {
		return "", ErrAlreadyPaid
	}

	intent, err := s.Provider.CreateIntent(ctx, order.AmountMinor(), s.Currency, map[string]string{
		"orderId": order.ID.String(),
		"userId":  userID.String(),
	})
	if err != nil {
		return "", fmt.Errorf("create payment intent: %w", err)
	}

	if err := s.Repo.SetPaymentIntent(ctx, order.ID, intent.ID); err != nil {
		return "", err
	}

	logging.FromContext(ctx).Info("payment intent created",
		"order_id", order.ID, "intent_id", intent.ID)
	return intent.ClientSecret, nil
}

// Verify pulls the current intent status from the provider and settles the
// order accordingly. Used when the webhook has not arrived yet.
func (s *PaymentService) Verify(ctx context.Context, userID, orderID uuid.UUID) (*transport.PaymentStatusResponse, error) {
	order, err := s.Orders.GetOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	if order.PaymentStatus == models.PaymentPaid {
		return statusResponse("Payment already verified", order), nil
	}
	if order.PaymentIntentID == "" {
		return nil, ErrNoPaymentIntent
	}

	intent, err := s.Provider.RetrieveIntent(ctx, order.PaymentIntentID)
	if err != nil {
		return nil, fmt.Errorf("retrieve payment intent: %w", err)
	}

	switch intent.Status {
	case "succeeded":
		settled, err := s.Orders.MarkPaid(ctx, order.ID, intent.AmountReceived, intent.Currency)
		if err != nil {
			if settled != nil {
				return statusResponse("Payment verification failed", settled), err
			}
			return nil, err
		}
		return statusResponse("Payment verified successfully", settled), nil
	case "processing":
		// No mutation until the provider reaches a terminal status.
		return &transport.PaymentStatusResponse{
			Message:       "Payment is processing",
			PaymentStatus: models.PaymentPending,
			OrderStatus:   models.OrderProcessing,
		}, nil
	default:
		failed, err := s.Orders.MarkFailed(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		return statusResponse("Payment verification failed", failed), nil
	}
}

// HandleWebhook is the authoritative settlement path. payload must be the
// raw, untransformed request body or signature verification fails.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := s.Provider.ConstructEvent(payload, sigHeader)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	l := logging.FromContext(ctx).With("event_id", event.ID, "event_type", event.Type)

	locked := false
	if s.Idem != nil && event.ID != "" {
		fresh, err := s.Idem.TryLock(ctx, "stripe_event", event.ID)
		if err != nil {
			l.Warn("idempotency store unavailable, continuing", "error", err)
		} else if !fresh {
			l.Info("duplicate webhook delivery skipped")
			return nil
		} else {
			locked = true
		}
	}

	err = s.settleEvent(ctx, l, event)
	if err != nil && locked {
		// The lock marks completed processing. Holding it across a failed
		// settlement would make the provider's retry of this event id look
		// like a duplicate and the order could never settle through the
		// webhook path.
		if uerr := s.Idem.Unlock(ctx, "stripe_event", event.ID); uerr != nil {
			l.Warn("failed to release event lock", "error", uerr)
		}
	}
	return err
}

func (s *PaymentService) settleEvent(ctx context.Context, l *slog.Logger, event *stripe.Event) error {
	switch event.Type {
	case stripe.EventPaymentSucceeded:
		intent, err := event.PaymentIntent()
		if err != nil {
			return err
		}
		order, err := s.resolveOrder(ctx, intent)
		if err != nil {
			return err
		}
		if _, err := s.Orders.MarkPaid(ctx, order.ID, intent.AmountReceived, intent.Currency); err != nil {
			return err
		}
		l.Info("webhook settled order as paid", "order_id", order.ID)
		return nil

	case stripe.EventPaymentFailed:
		intent, err := event.PaymentIntent()
		if err != nil {
			return err
		}
		order, err := s.resolveOrder(ctx, intent)
		if err != nil {
			return err
		}
		if _, err := s.Orders.MarkFailed(ctx, order.ID); err != nil {
			return err
		}
		l.Info("webhook settled order as failed", "order_id", order.ID)
		return nil

	default:
		// Unknown event types are acknowledged and ignored.
		l.Info("ignoring webhook event")
		return nil
	}
}

// resolveOrder finds the order a webhook event refers to, preferring the
// metadata order id and falling back to the intent reference.
func (s *PaymentService) resolveOrder(ctx context.Context, intent *stripe.PaymentIntent) (*models.Order, error) {
	if raw, ok := intent.Metadata["orderId"]; ok {
		if orderID, err := uuid.Parse(raw); err == nil {
			order, err := s.Repo.GetOrder(ctx, orderID)
			if err == nil {
				return order, nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
		}
	}

	order, err := s.Repo.GetOrderByIntent(ctx, intent.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order for intent %s: %w", intent.ID, ErrNotFound)
		}
		return nil, err
	}
	return order, nil
}

func statusResponse(msg string, order *models.Order) *transport.PaymentStatusResponse {
	return &transport.PaymentStatusResponse{
		Message:       msg,
		PaymentStatus: order.PaymentStatus,
		OrderStatus:   order.OrderStatus,
	}
}

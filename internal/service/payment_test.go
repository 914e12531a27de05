package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/quickmart/shop-backend/internal/models"
	"github.com/quickmart/shop-backend/internal/stripe"
)

// fakeProvider serves canned intents keyed by id and decodes webhook
// payloads without signature checks unless told to reject them.
type fakeProvider struct {
	intents   map[string]*stripe.PaymentIntent
	created   []*stripe.PaymentIntent
	rejectSig bool
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{intents: map[string]*stripe.PaymentIntent{}}
}

func (f *fakeProvider) CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*stripe.PaymentIntent, error) {
	intent := &stripe.PaymentIntent{
		ID:           fmt.Sprintf("pi_%d", len(f.created)+1),
		ClientSecret: fmt.Sprintf("pi_%d_secret", len(f.created)+1),
		Status:       "requires_payment_method",
		Amount:       amountMinor,
		Currency:     currency,
		Metadata:     metadata,
	}
	f.intents[intent.ID] = intent
	f.created = append(f.created, intent)
	return intent, nil
}

func (f *fakeProvider) RetrieveIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	intent, ok := f.intents[id]
	if !ok {
		return nil, errors.New("no such payment_intent")
	}
	return intent, nil
}

func (f *fakeProvider) ConstructEvent(payload []byte, sigHeader string) (*stripe.Event, error) {
	if f.rejectSig {
		return nil, stripe.ErrInvalidSignature
	}
	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// settle marks the fake intent as succeeded with the given received amount.
func (f *fakeProvider) settle(id string, amountReceived int64, status string) {
	intent := f.intents[id]
	intent.Status = status
	intent.AmountReceived = amountReceived
}

type fakeIdem struct {
	seen map[string]bool
	err  error
}

func (f *fakeIdem) TryLock(ctx context.Context, scope, key string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	k := scope + ":" + key
	if f.seen[k] {
		return false, nil
	}
	f.seen[k] = true
	return true, nil
}

func (f *fakeIdem) Unlock(ctx context.Context, scope, key string) error {
	if f.err != nil {
		return f.err
	}
	delete(f.seen, scope+":"+key)
	return nil
}

func setupPayment(t *testing.T) (*CartService, *PaymentService, *fakeProvider, uuid.UUID) {
	t.Helper()
	r := newTestRepo(t)
	carts := &CartService{Repo: r}
	orders := &OrderService{Repo: r, Currency: "inr"}
	provider := newFakeProvider()
	payments := &PaymentService{
		Repo:     r,
		Orders:   orders,
		Provider: provider,
		Currency: "inr",
	}
	return carts, payments, provider, uuid.New()
}

func checkoutOrder(t *testing.T, carts *CartService, payments *PaymentService, userID uuid.UUID, qty int64) *models.Order {
	t.Helper()
	p := newProduct(t, payments.Repo, "20.00", 10)
	_, err := carts.AddItem(context.Background(), userID, p.ID, qty)
	require.NoError(t, err)
	order, err := payments.Orders.CreateFromCart(context.Background(), userID)
	require.NoError(t, err)
	return order
}

func webhookPayload(t *testing.T, eventID, eventType string, intent *stripe.PaymentIntent) []byte {
	t.Helper()
	object, err := json.Marshal(intent)
	require.NoError(t, err)
	payload, err := json.Marshal(map[string]any{
		"id":   eventID,
		"type": eventType,
		"data": map[string]any{"object": json.RawMessage(object)},
	})
	require.NoError(t, err)
	return payload
}

func TestCreateIntentPersistsReference(t *testing.T) {
	carts, payments, provider, userID := setupPayment(t)
	order := checkoutOrder(t, carts, payments, userID, 2)

	secret, err := payments.CreateIntent(context.Background(), userID, order.ID)
	require.NoError(t, err)
	require.Equal(t, "pi_1_secret", secret)

	require.Len(t, provider.created, 1)
	require.Equal(t, order.AmountMinor(), provider.created[0].Amount)
	require.Equal(t, "inr", provider.created[0].Currency)
	require.Equal(t, order.ID.String(), provider.created[0].Metadata["orderId"])
	require.Equal(t, userID.String(), provider.created[0].Metadata["userId"])

	got := getOrder(t, payments.Repo, order.ID)
	require.Equal(t, "pi_1", got.PaymentIntentID)
}

func TestCreateIntentWrongUser(t *testing.T) {
	carts, payments, _, userID := setupPayment(t)
	order := checkoutOrder(t, carts, payments, userID, 1)

	_, err := payments.CreateIntent(context.Background(), uuid.New(), order.ID)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestCreateIntentAlreadyPaid(t *testing.T) {
	carts, payments, _, userID := setupPayment(t)
	order := checkoutOrder(t, carts, payments, userID, 1)

	_, err := payments.Orders.MarkPaid(context.Background(), order.ID, order.AmountMinor(), "inr")
	require.NoError(t, err)

	_, err = payments.CreateIntent(context.Background(), userID, order.ID)
	require.ErrorIs(t, err, ErrAlreadyPaid)
}

func TestVerifyWithoutIntent(t *testing.T) {
	carts, payments, _, userID := setupPayment(t)
	order := checkoutOrder(t, carts, payments, userID, 1)

	_, err := payments.Verify(context.Background(), userID, order.ID)
	require.ErrorIs(t, err, ErrNoPaymentIntent)
}

func TestVerifySucceededSettlesOrder(t *testing.T) {
	carts, payments, provider, userID := setupPayment(t)
	order := checkoutOrder(t, carts, payments, userID, 2)

	_, err := payments.CreateIntent(context.Background(), userID, order.ID)
	require.NoError(t, err)
	provider.settle("pi_1", order.AmountMinor(), "succeeded")

	resp, err := payments.Verify(context.Background(), userID, order.ID)
	require.NoError(t, err)
	require.Equal(t, models.PaymentPaid, resp.PaymentStatus)
	require.Equal(t, models.OrderPaid, resp.OrderStatus)

	// A second verify reports the settled state without touching stock.
	resp, err = payments.Verify(context.Background(), userID, order.ID)
	require.NoError(t, err)
	require.Equal(t, "Payment already verified", resp.Message)
}

func TestVerifyProcessingLeavesOrderPending(t *testing.T) {
	carts, payments, provider, userID := setupPayment(t)
	order := checkoutOrder(t, carts, payments, userID, 1)

	_, err := payments.CreateIntent(context.Background(), userID, order.ID)
	require.NoError(t, err)
	provider.settle("pi_1", 0, "processing")

	resp, err := payments.Verify(context.Background(), userID, order.ID)
	require.NoError(t, err)
	require.Equal(t, models.PaymentPending, resp.PaymentStatus)

	got := getOrder(t, payments.Repo, order.ID)
	require.Equal(t, models.PaymentPending, got.PaymentStatus)
}

func TestVerifyFailureFailsOrder(t *testing.T) {
	carts, payments, provider, userID := setupPayment(t)
	order := checkoutOrder(t, carts, payments, userID, 1)

	_, err := payments.CreateIntent(context.Background(), userID, order.ID)
	require.NoError(t, err)
	provider.settle("pi_1", 0, "requires_payment_method")

	resp, err := payments.Verify(context.Background(), userID, order.ID)
	require.NoError(t, err)
	require.Equal(t, models.PaymentFailed, resp.PaymentStatus)
	require.Equal(t, models.OrderFailed, resp.OrderStatus)
}

func TestWebhookSettlesOrderAsPaid(t *testing.T) {
	carts, payments, provider, userID := setupPayment(t)
	order := checkoutOrder(t, carts, payments, userID, 3)

	_, err := payments.CreateIntent(context.Background(), userID, order.ID)
	require.NoError(t, err)
	provider.settle("pi_1", order.AmountMinor(), "succeeded")

	payload := webhookPayload(t, "evt_1", stripe.EventPaymentSucceeded, provider.intents["pi_1"])
	require.NoError(t, payments.HandleWebhook(context.Background(), payload, "sig"))

	got := getOrder(t, payments.Repo, order.ID)
	require.Equal(t, models.PaymentPaid, got.PaymentStatus)
}

func TestWebhookSettlesOrderAsFailed(t *testing.T) {
	carts, payments, provider, userID := setupPayment(t)
	order := checkoutOrder(t, carts, payments, userID, 3)

	_, err := payments.CreateIntent(context.Background(), userID, order.ID)
	require.NoError(t, err)

	payload := webhookPayload(t, "evt_1", stripe.EventPaymentFailed, provider.intents["pi_1"])
	require.NoError(t, payments.HandleWebhook(context.Background(), payload, "sig"))

	got := getOrder(t, payments.Repo, order.ID)
	require.Equal(t, models.PaymentFailed, got.PaymentStatus)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	_, payments, provider, _ := setupPayment(t)
	provider.rejectSig = true

	err := payments.HandleWebhook(context.Background(), []byte(`{}`), "bad")
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestWebhookIgnoresUnknownEventTypes(t *testing.T) {
	_, payments, _, _ := setupPayment(t)

	payload := webhookPayload(t, "evt_1", "customer.created", &stripe.PaymentIntent{ID: "pi_x"})
	require.NoError(t, payments.HandleWebhook(context.Background(), payload, "sig"))
}

func TestWebhookResolvesOrderByIntentWhenMetadataMissing(t *testing.T) {
	carts, payments, provider, userID := setupPayment(t)
	order := checkoutOrder(t, carts, payments, userID, 1)

	_, err := payments.CreateIntent(context.Background(), userID, order.ID)
	require.NoError(t, err)
	provider.settle("pi_1", order.AmountMinor(), "succeeded")

	intent := *provider.intents["pi_1"]
	intent.Metadata = nil
	payload := webhookPayload(t, "evt_1", stripe.EventPaymentSucceeded, &intent)
	require.NoError(t, payments.HandleWebhook(context.Background(), payload, "sig"))

	got := getOrder(t, payments.Repo, order.ID)
	require.Equal(t, models.PaymentPaid, got.PaymentStatus)
}

func TestWebhookDeduplicatesDeliveries(t *testing.T) {
	carts, payments, provider, userID := setupPayment(t)
	payments.Idem = &fakeIdem{}
	order := checkoutOrder(t, carts, payments, userID, 2)

	_, err := payments.CreateIntent(context.Background(), userID, order.ID)
	require.NoError(t, err)
	provider.settle("pi_1", order.AmountMinor(), "succeeded")

	payload := webhookPayload(t, "evt_1", stripe.EventPaymentSucceeded, provider.intents["pi_1"])
	require.NoError(t, payments.HandleWebhook(context.Background(), payload, "sig"))
	require.NoError(t, payments.HandleWebhook(context.Background(), payload, "sig"))

	got := getOrder(t, payments.Repo, order.ID)
	require.Equal(t, models.PaymentPaid, got.PaymentStatus)
}

func TestWebhookRetryAfterErrorIsNotADuplicate(t *testing.T) {
	carts, payments, _, userID := setupPayment(t)
	payments.Idem = &fakeIdem{}
	order := checkoutOrder(t, carts, payments, userID, 2)

	intent := &stripe.PaymentIntent{
		ID:             "pi_1",
		Status:         "succeeded",
		AmountReceived: order.AmountMinor(),
		Currency:       "inr",
	}
	payload := webhookPayload(t, "evt_1", stripe.EventPaymentSucceeded, intent)

	// Delivered before the intent reference landed on the order: the event
	// resolves to no order and the handler errors.
	err := payments.HandleWebhook(context.Background(), payload, "sig")
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, models.PaymentPending, getOrder(t, payments.Repo, order.ID).PaymentStatus)

	require.NoError(t, payments.Repo.SetPaymentIntent(context.Background(), order.ID, "pi_1"))

	// The provider retries the identical event id; it must settle now
	// instead of being skipped as a duplicate delivery.
	require.NoError(t, payments.HandleWebhook(context.Background(), payload, "sig"))
	require.Equal(t, models.PaymentPaid, getOrder(t, payments.Repo, order.ID).PaymentStatus)
}

func TestWebhookToleratesIdemStoreOutage(t *testing.T) {
	carts, payments, provider, userID := setupPayment(t)
	payments.Idem = &fakeIdem{err: errors.New("redis down")}
	order := checkoutOrder(t, carts, payments, userID, 1)

	_, err := payments.CreateIntent(context.Background(), userID, order.ID)
	require.NoError(t, err)
	provider.settle("pi_1", order.AmountMinor(), "succeeded")

	payload := webhookPayload(t, "evt_1", stripe.EventPaymentSucceeded, provider.intents["pi_1"])
	require.NoError(t, payments.HandleWebhook(context.Background(), payload, "sig"))

	got := getOrder(t, payments.Repo, order.ID)
	require.Equal(t, models.PaymentPaid, got.PaymentStatus)
}

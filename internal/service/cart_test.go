package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestAddItemReservesStock(t *testing.T) {
	r := newTestRepo(t)
	svc := &CartService{Repo: r}
	p := newProduct(t, r, "49.99", 10)
	userID := uuid.New()

	resp, err := svc.AddItem(context.Background(), userID, p.ID, 3)
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	require.Equal(t, int64(3), resp.Items[0].Quantity)
	require.Equal(t, int64(7), resp.Items[0].AvailableStock)

	got := getProduct(t, r, p.ID)
	require.Equal(t, int64(10), got.Stock)
	require.Equal(t, int64(3), got.ReservedStock)
}

func TestAddItemMergesExistingLine(t *testing.T) {
	r := newTestRepo(t)
	svc := &CartService{Repo: r}
	p := newProduct(t, r, "49.99", 10)
	userID := uuid.New()

	_, err := svc.AddItem(context.Background(), userID, p.ID, 2)
	require.NoError(t, err)
	resp, err := svc.AddItem(context.Background(), userID, p.ID, 3)
	require.NoError(t, err)

	require.Len(t, resp.Items, 1)
	require.Equal(t, int64(5), resp.Items[0].Quantity)
	require.Equal(t, int64(5), getProduct(t, r, p.ID).ReservedStock)
}

func TestAddItemRejectsBadQuantity(t *testing.T) {
	r := newTestRepo(t)
	svc := &CartService{Repo: r}
	p := newProduct(t, r, "49.99", 10)

	_, err := svc.AddItem(context.Background(), uuid.New(), p.ID, 0)
	require.ErrorIs(t, err, ErrValidation)
}

func TestAddItemUnknownProduct(t *testing.T) {
	r := newTestRepo(t)
	svc := &CartService{Repo: r}

	_, err := svc.AddItem(context.Background(), uuid.New(), uuid.New(), 1)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAddItemRespectsOtherUsersReservations(t *testing.T) {
	r := newTestRepo(t)
	svc := &CartService{Repo: r}
	p := newProduct(t, r, "49.99", 10)

	userA := uuid.New()
	userB := uuid.New()

	_, err := svc.AddItem(context.Background(), userA, p.ID, 3)
	require.NoError(t, err)

	// Only 7 remain available; user B's request for 8 must be refused
	// and must not change the ledger.
	_, err = svc.AddItem(context.Background(), userB, p.ID, 8)
	require.ErrorIs(t, err, ErrInsufficientStock)

	got := getProduct(t, r, p.ID)
	require.Equal(t, int64(3), got.ReservedStock)

	cart, err := r.GetCartByUser(context.Background(), userB)
	require.NoError(t, err)
	require.Empty(t, cart.Items)

	_, err = svc.AddItem(context.Background(), userB, p.ID, 7)
	require.NoError(t, err)
	require.Equal(t, int64(10), getProduct(t, r, p.ID).ReservedStock)
}

func TestUpdateItemReservesOnlyTheDelta(t *testing.T) {
	r := newTestRepo(t)
	svc := &CartService{Repo: r}
	p := newProduct(t, r, "49.99", 10)
	userID := uuid.New()

	_, err := svc.AddItem(context.Background(), userID, p.ID, 2)
	require.NoError(t, err)

	resp, err := svc.UpdateItem(context.Background(), userID, p.ID, 5)
	require.NoError(t, err)
	require.Equal(t, int64(5), resp.Items[0].Quantity)
	require.Equal(t, int64(5), getProduct(t, r, p.ID).ReservedStock)

	resp, err = svc.UpdateItem(context.Background(), userID, p.ID, 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), resp.Items[0].Quantity)
	require.Equal(t, int64(1), getProduct(t, r, p.ID).ReservedStock)
}

func TestUpdateItemInsufficientStockKeepsLine(t *testing.T) {
	r := newTestRepo(t)
	svc := &CartService{Repo: r}
	p := newProduct(t, r, "49.99", 5)
	userID := uuid.New()

	_, err := svc.AddItem(context.Background(), userID, p.ID, 2)
	require.NoError(t, err)

	_, err = svc.UpdateItem(context.Background(), userID, p.ID, 9)
	require.ErrorIs(t, err, ErrInsufficientStock)

	cart, err := svc.GetCart(context.Background(), userID)
	require.NoError(t, err)
	require.Equal(t, int64(2), cart.Items[0].Quantity)
	require.Equal(t, int64(2), getProduct(t, r, p.ID).ReservedStock)
}

func TestUpdateItemMissingLine(t *testing.T) {
	r := newTestRepo(t)
	svc := &CartService{Repo: r}
	p := newProduct(t, r, "49.99", 5)
	userID := uuid.New()

	_, err := svc.AddItem(context.Background(), userID, p.ID, 1)
	require.NoError(t, err)

	_, err = svc.UpdateItem(context.Background(), userID, uuid.New(), 2)
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestRemoveItemReleasesReservation(t *testing.T) {
	r := newTestRepo(t)
	svc := &CartService{Repo: r}
	p := newProduct(t, r, "49.99", 10)
	userID := uuid.New()

	_, err := svc.AddItem(context.Background(), userID, p.ID, 4)
	require.NoError(t, err)

	resp, err := svc.RemoveItem(context.Background(), userID, p.ID)
	require.NoError(t, err)
	require.Empty(t, resp.Items)
	require.Equal(t, int64(0), getProduct(t, r, p.ID).ReservedStock)
}

func TestSaveForLaterReleasesAndKeepsEntry(t *testing.T) {
	r := newTestRepo(t)
	svc := &CartService{Repo: r}
	p := newProduct(t, r, "49.99", 10)
	userID := uuid.New()

	_, err := svc.AddItem(context.Background(), userID, p.ID, 4)
	require.NoError(t, err)

	resp, err := svc.SaveForLater(context.Background(), userID, p.ID)
	require.NoError(t, err)
	require.Empty(t, resp.Items)
	require.Len(t, resp.SavedForLater, 1)
	require.Equal(t, p.ID, resp.SavedForLater[0].ProductID)
	require.Equal(t, int64(0), getProduct(t, r, p.ID).ReservedStock)
}

func TestMoveToCartReservesOneUnit(t *testing.T) {
	r := newTestRepo(t)
	svc := &CartService{Repo: r}
	p := newProduct(t, r, "49.99", 10)
	userID := uuid.New()

	_, err := svc.AddItem(context.Background(), userID, p.ID, 4)
	require.NoError(t, err)
	_, err = svc.SaveForLater(context.Background(), userID, p.ID)
	require.NoError(t, err)

	resp, err := svc.MoveToCart(context.Background(), userID, p.ID)
	require.NoError(t, err)
	require.Empty(t, resp.SavedForLater)
	require.Len(t, resp.Items, 1)
	require.Equal(t, int64(1), resp.Items[0].Quantity)
	require.Equal(t, int64(1), getProduct(t, r, p.ID).ReservedStock)
}

func TestMoveToCartOutOfStock(t *testing.T) {
	r := newTestRepo(t)
	svc := &CartService{Repo: r}
	p := newProduct(t, r, "49.99", 4)
	userID := uuid.New()
	rival := uuid.New()

	_, err := svc.AddItem(context.Background(), userID, p.ID, 2)
	require.NoError(t, err)
	_, err = svc.SaveForLater(context.Background(), userID, p.ID)
	require.NoError(t, err)

	// Someone else drains the remaining availability.
	_, err = svc.AddItem(context.Background(), rival, p.ID, 4)
	require.NoError(t, err)

	_, err = svc.MoveToCart(context.Background(), userID, p.ID)
	require.ErrorIs(t, err, ErrOutOfStock)

	// The saved entry survives a failed move.
	cart, err := svc.GetCart(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, cart.SavedForLater, 1)
}

func TestUpdateItemReleasesDeltaWhenLineWriteFails(t *testing.T) {
	r := newTestRepo(t)
	svc := &CartService{Repo: r}
	p := newProduct(t, r, "49.99", 10)
	userID := uuid.New()

	_, err := svc.AddItem(context.Background(), userID, p.ID, 2)
	require.NoError(t, err)

	require.NoError(t, r.DB.Exec(
		`CREATE TRIGGER block_line_writes BEFORE UPDATE ON cart_items
		 BEGIN SELECT RAISE(ABORT, 'line write refused'); END`).Error)

	_, err = svc.UpdateItem(context.Background(), userID, p.ID, 5)
	require.Error(t, err)

	// The delta reserved for the failed write must be given back; the line
	// still holds the old quantity.
	got := getProduct(t, r, p.ID)
	require.Equal(t, int64(2), got.ReservedStock)
}

func TestUpdateItemRestoresReservationWhenDecreaseWriteFails(t *testing.T) {
	r := newTestRepo(t)
	svc := &CartService{Repo: r}
	p := newProduct(t, r, "49.99", 10)
	userID := uuid.New()

	_, err := svc.AddItem(context.Background(), userID, p.ID, 5)
	require.NoError(t, err)

	require.NoError(t, r.DB.Exec(
		`CREATE TRIGGER block_line_writes BEFORE UPDATE ON cart_items
		 BEGIN SELECT RAISE(ABORT, 'line write refused'); END`).Error)

	_, err = svc.UpdateItem(context.Background(), userID, p.ID, 2)
	require.Error(t, err)

	// The released delta is re-reserved so the surviving 5-unit line stays
	// fully backed.
	require.Equal(t, int64(5), getProduct(t, r, p.ID).ReservedStock)
}

func TestMoveToCartReleasesUnitWhenLineWriteFails(t *testing.T) {
	r := newTestRepo(t)
	svc := &CartService{Repo: r}
	p := newProduct(t, r, "49.99", 10)
	userID := uuid.New()

	_, err := svc.AddItem(context.Background(), userID, p.ID, 1)
	require.NoError(t, err)
	_, err = svc.SaveForLater(context.Background(), userID, p.ID)
	require.NoError(t, err)
	require.Equal(t, int64(0), getProduct(t, r, p.ID).ReservedStock)

	require.NoError(t, r.DB.Exec(
		`CREATE TRIGGER block_line_inserts BEFORE INSERT ON cart_items
		 BEGIN SELECT RAISE(ABORT, 'line write refused'); END`).Error)

	_, err = svc.MoveToCart(context.Background(), userID, p.ID)
	require.Error(t, err)

	// No line backs the move, so its unit must not stay reserved.
	require.Equal(t, int64(0), getProduct(t, r, p.ID).ReservedStock)
}

func TestGetCartCreatesEmptyCart(t *testing.T) {
	r := newTestRepo(t)
	svc := &CartService{Repo: r}

	resp, err := svc.GetCart(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Empty(t, resp.Items)
	require.Empty(t, resp.SavedForLater)
}

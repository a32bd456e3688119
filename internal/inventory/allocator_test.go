package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/iurnickita/dairyshop/internal/model"
	"github.com/iurnickita/dairyshop/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestAllocator(t *testing.T) (*Allocator, store.Store) {
	t.Helper()
	s := store.NewMemStore()
	return NewAllocator(s, s, zap.NewNop()), s
}

func addProduct(t *testing.T, s store.Store, name string, stock int) model.Product {
	t.Helper()
	ctx := context.Background()
	p, err := s.ProductAdd(ctx, model.ProductInfo{Name: name, Producer: "Latteria", Year: 2024, Notes: "n"})
	require.NoError(t, err)
	if stock > 0 {
		ok, err := s.ProductAdjust(ctx, p.ID, stock)
		require.NoError(t, err)
		require.True(t, ok)
	}
	p.Quantity = stock
	return p
}

func quantity(t *testing.T, s store.Store, id int) int {
	t.Helper()
	q, err := s.ProductQuantity(context.Background(), id)
	require.NoError(t, err)
	return q
}

func TestAllocateAcceptsWhenStockCovers(t *testing.T) {
	tests := []struct {
		name      string
		stock     int
		requested int
		accepted  bool
		left      int
	}{
		{name: "less than stock", stock: 5, requested: 3, accepted: true, left: 2},
		{name: "exactly stock", stock: 5, requested: 5, accepted: true, left: 0},
		{name: "more than stock", stock: 5, requested: 6, accepted: false, left: 5},
		{name: "out of stock", stock: 0, requested: 1, accepted: false, left: 0},
		{name: "zero requested, out of stock", stock: 0, requested: 0, accepted: false, left: 0},
		{name: "negative requested, out of stock", stock: 0, requested: -1, accepted: false, left: 0},
		{name: "zero requested", stock: 5, requested: 0, accepted: false, left: 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, s := newTestAllocator(t)
			p := addProduct(t, s, "Mozzarella", tt.stock)
			line := model.CartLine{ID: 1, Customer: "anna", ProductID: p.ID, Quantity: tt.requested}

			outcomes, err := a.Allocate(context.Background(), "anna", []model.CartLine{line})
			require.NoError(t, err)
			require.Len(t, outcomes, 1)
			require.Equal(t, tt.accepted, outcomes[0].Accepted)
			require.Equal(t, line, outcomes[0].CartLine)
			require.Equal(t, tt.left, quantity(t, s, p.ID))

			if tt.accepted {
				require.Equal(t, model.OrderLine{ProductID: p.ID, ProductInfo: p.ProductInfo, Quantity: tt.requested}, outcomes[0].Line)
			}
		})
	}
}

func TestAllocateDeferredLineEnqueuesNotification(t *testing.T) {
	ctx := context.Background()
	a, s := newTestAllocator(t)
	p := addProduct(t, s, "Taleggio", 1)

	outcomes, err := a.Allocate(ctx, "anna", []model.CartLine{{ID: 1, ProductID: p.ID, Quantity: 2}})
	require.NoError(t, err)
	require.False(t, outcomes[0].Accepted)

	// уведомление ждет поступления товара
	products, err := s.NotificationDrain(ctx, "anna")
	require.NoError(t, err)
	require.Empty(t, products)

	ok, err := a.Restock(ctx, p.ID, 5)
	require.NoError(t, err)
	require.True(t, ok)

	products, err = s.NotificationDrain(ctx, "anna")
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.Equal(t, p.ID, products[0].ID)
	require.Equal(t, 6, products[0].Quantity)

	products, err = s.NotificationDrain(ctx, "anna")
	require.NoError(t, err)
	require.Empty(t, products)
}

func TestAllocateMixedLines(t *testing.T) {
	a, s := newTestAllocator(t)
	inStock := addProduct(t, s, "Fontina", 3)
	outOfStock := addProduct(t, s, "Asiago", 0)

	lines := []model.CartLine{
		{ID: 1, ProductID: inStock.ID, Quantity: 2},
		{ID: 2, ProductID: outOfStock.ID, Quantity: 1},
		{ID: 3, ProductID: 999, Quantity: 1},
		{ID: 4, ProductID: inStock.ID, Quantity: 2},
	}
	outcomes, err := a.Allocate(context.Background(), "anna", lines)
	require.NoError(t, err)
	require.Len(t, outcomes, len(lines))

	accepted := make([]bool, 0, len(outcomes))
	for i, o := range outcomes {
		require.Equal(t, lines[i], o.CartLine)
		accepted = append(accepted, o.Accepted)
	}
	require.Equal(t, []bool{true, false, false, false}, accepted)
	require.Equal(t, 1, quantity(t, s, inStock.ID))
}

func TestAllocateLastUnitsConcurrently(t *testing.T) {
	ctx := context.Background()
	a, s := newTestAllocator(t)
	p := addProduct(t, s, "Provolone", 2)

	// A хочет 2, B хочет 1: оба сразу получить не могут
	var wg sync.WaitGroup
	results := make(map[string]bool)
	var mu sync.Mutex
	for customer, requested := range map[string]int{"A": 2, "B": 1} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes, err := a.Allocate(ctx, customer, []model.CartLine{{ProductID: p.ID, Quantity: requested}})
			assert.NoError(t, err)
			mu.Lock()
			results[customer] = outcomes[0].Accepted
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.False(t, results["A"] && results["B"])
	require.True(t, results["A"] || results["B"])
	left := quantity(t, s, p.ID)
	if results["A"] {
		require.Equal(t, 0, left)
	} else {
		require.Equal(t, 1, left)
	}
}

func TestAllocateConservesStock(t *testing.T) {
	ctx := context.Background()
	a, s := newTestAllocator(t)
	p := addProduct(t, s, "Stracchino", 50)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allocated := 0
	restocked := 0
	for i := 0; i < 40; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			outcomes, err := a.Allocate(ctx, "anna", []model.CartLine{{ProductID: p.ID, Quantity: 3}})
			assert.NoError(t, err)
			if outcomes[0].Accepted {
				mu.Lock()
				allocated += outcomes[0].Line.Quantity
				mu.Unlock()
			}
		}()
		go func() {
			defer wg.Done()
			ok, err := a.Restock(ctx, p.ID, 1)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				restocked++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	left := quantity(t, s, p.ID)
	require.GreaterOrEqual(t, left, 0)
	require.Equal(t, 50+restocked, left+allocated)
}

func TestRestock(t *testing.T) {
	ctx := context.Background()
	a, s := newTestAllocator(t)
	p := addProduct(t, s, "Caciocavallo", 2)

	ok, err := a.Restock(ctx, p.ID, -3)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 2, quantity(t, s, p.ID))

	ok, err = a.Restock(ctx, p.ID, -2)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 0, quantity(t, s, p.ID))

	ok, err = a.Restock(ctx, 999, 5)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRestockNegativeDeltaKeepsNotificationsWaiting(t *testing.T) {
	ctx := context.Background()
	a, s := newTestAllocator(t)
	p := addProduct(t, s, "Scamorza", 3)

	require.NoError(t, s.NotificationEnqueue(ctx, "anna", p.ID))
	ok, err := a.Restock(ctx, p.ID, -1)
	require.NoError(t, err)
	require.True(t, ok)

	products, err := s.NotificationDrain(ctx, "anna")
	require.NoError(t, err)
	require.Empty(t, products)
}

type brokenCatalog struct {
	store.Store
}

var errUnreachable = errors.New("connection refused")

func (brokenCatalog) ProductQuantity(context.Context, int) (int, error) {
	return 0, errUnreachable
}

func TestAllocateStorageFault(t *testing.T) {
	s := brokenCatalog{store.NewMemStore()}
	a := NewAllocator(s, s, zap.NewNop())

	outcomes, err := a.Allocate(context.Background(), "anna", []model.CartLine{{ProductID: 1, Quantity: 1}})
	require.ErrorIs(t, err, errUnreachable)
	require.Nil(t, outcomes)
}

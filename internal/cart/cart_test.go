package cart

import (
	"context"
	"testing"

	"github.com/iurnickita/dairyshop/internal/model"
	"github.com/iurnickita/dairyshop/internal/store"
	"github.com/stretchr/testify/require"
)

func TestCart(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemStore()
	c := NewCart(s)

	product, err := s.ProductAdd(ctx, model.ProductInfo{Name: "Robiola", Producer: "Langhe", Year: 2024, Notes: "soft"})
	require.NoError(t, err)
	_, err = s.ProductAdjust(ctx, product.ID, 10)
	require.NoError(t, err)

	first, err := c.Add(ctx, "anna", product.ID, 2)
	require.NoError(t, err)
	second, err := c.Add(ctx, "anna", product.ID, 1)
	require.NoError(t, err)

	_, err = c.Add(ctx, "anna", 404, 1)
	require.ErrorIs(t, err, store.ErrNotFound)

	items, err := c.Display(ctx, "anna")
	require.NoError(t, err)
	require.Equal(t, []model.CartItem{
		{LineID: first.ID, ProductID: product.ID, ProductInfo: product.ProductInfo, Quantity: 2},
		{LineID: second.ID, ProductID: product.ID, ProductInfo: product.ProductInfo, Quantity: 1},
	}, items)

	// корзины покупателей независимы
	items, err = c.Display(ctx, "bruno")
	require.NoError(t, err)
	require.Empty(t, items)

	require.NoError(t, c.Remove(ctx, "anna", product.ID))
	require.NoError(t, c.Remove(ctx, "anna", product.ID))
	items, err = c.Display(ctx, "anna")
	require.NoError(t, err)
	require.Empty(t, items)
}

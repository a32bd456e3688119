package cart

import (
	"context"
	"errors"

	"github.com/iurnickita/dairyshop/internal/model"
	"github.com/iurnickita/dairyshop/internal/store"
)

type Cart interface {
	Add(ctx context.Context, customer string, productID int, quantity int) (model.CartLine, error)
	Remove(ctx context.Context, customer string, productID int) error
	Display(ctx context.Context, customer string) ([]model.CartItem, error)
}

type cart struct {
	store store.Store
}

func NewCart(store store.Store) Cart {
	cart := cart{store: store}
	return &cart
}

func (cart *cart) Add(ctx context.Context, customer string, productID int, quantity int) (model.CartLine, error) {
	return cart.store.CartAdd(ctx, model.CartLine{
		Customer:  customer,
		ProductID: productID,
		Quantity:  quantity,
	})
}

func (cart *cart) Remove(ctx context.Context, customer string, productID int) error {
	return cart.store.CartRemoveProduct(ctx, customer, productID)
}

// Display соединяет строки корзины с карточками товаров, количество берется из корзины.
func (cart *cart) Display(ctx context.Context, customer string) ([]model.CartItem, error) {
	lines, err := cart.store.CartLines(ctx, customer)
	if err != nil {
		return nil, err
	}

	items := make([]model.CartItem, 0, len(lines))
	for _, line := range lines {
		product, err := cart.store.ProductGet(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, err
		}
		items = append(items, model.CartItem{
			LineID:      line.ID,
			ProductID:   line.ProductID,
			ProductInfo: product.ProductInfo,
			Quantity:    line.Quantity,
		})
	}
	return items, nil
}

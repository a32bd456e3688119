// Package inventory decides, line by line, whether the stock covers a purchase
// and keeps every stock mutation of a product serialized.
package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/iurnickita/dairyshop/internal/model"
	"github.com/iurnickita/dairyshop/internal/store"
	"go.uber.org/zap"
)

// Catalog is the part of the store the allocator mutates.
type Catalog interface {
	ProductGet(ctx context.Context, id int) (model.Product, error)
	ProductQuantity(ctx context.Context, id int) (int, error)
	ProductAdjust(ctx context.Context, id int, delta int) (bool, error)
}

// Notifications is the back-in-stock queue.
type Notifications interface {
	NotificationEnqueue(ctx context.Context, customer string, productID int) error
	NotificationMarkPending(ctx context.Context, productID int) error
}

// Outcome is the decision taken for one cart line.
// Accepted outcomes carry the product snapshot and the allocated quantity in Line.
type Outcome struct {
	CartLine model.CartLine
	Accepted bool
	Line     model.OrderLine
}

type Allocator struct {
	catalog       Catalog
	notifications Notifications
	locks         *productLocker
	zaplog        *zap.Logger
}

func NewAllocator(catalog Catalog, notifications Notifications, zaplog *zap.Logger) *Allocator {
	return &Allocator{
		catalog:       catalog,
		notifications: notifications,
		locks:         newProductLocker(),
		zaplog:        zaplog,
	}
}

// Allocate returns exactly one outcome per cart line, in input order.
// An error means the store failed; stock shortage is never an error.
func (a *Allocator) Allocate(ctx context.Context, customer string, lines []model.CartLine) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(lines))
	for _, line := range lines {
		outcome, err := a.allocateLine(ctx, customer, line)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// allocateLine holds the product lock for the whole read, decrement and notify sequence.
func (a *Allocator) allocateLine(ctx context.Context, customer string, line model.CartLine) (Outcome, error) {
	unlock := a.locks.lock(line.ProductID)
	defer unlock()

	outcome := Outcome{CartLine: line}

	stock, err := a.catalog.ProductQuantity(ctx, line.ProductID)
	if errors.Is(err, store.ErrNotFound) {
		// неизвестный товар: подписываться не на что
		a.zaplog.Warn("cart line refers to unknown product",
			zap.String("customer", customer),
			zap.Int("product_id", line.ProductID))
		return outcome, nil
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("read stock of product %d: %w", line.ProductID, err)
	}

	if stock >= line.Quantity && stock > 0 && line.Quantity > 0 {
		ok, err := a.catalog.ProductAdjust(ctx, line.ProductID, -line.Quantity)
		if err != nil {
			return Outcome{}, fmt.Errorf("decrement stock of product %d: %w", line.ProductID, err)
		}
		if ok {
			product, err := a.catalog.ProductGet(ctx, line.ProductID)
			if err != nil {
				return Outcome{}, fmt.Errorf("snapshot product %d: %w", line.ProductID, err)
			}
			outcome.Accepted = true
			outcome.Line = model.OrderLine{
				ProductID:   product.ID,
				ProductInfo: product.ProductInfo,
				Quantity:    line.Quantity,
			}
			return outcome, nil
		}
	}

	if err := a.notifications.NotificationEnqueue(ctx, customer, line.ProductID); err != nil {
		return Outcome{}, fmt.Errorf("enqueue notification for product %d: %w", line.ProductID, err)
	}
	a.zaplog.Info("cart line deferred",
		zap.String("customer", customer),
		zap.Int("product_id", line.ProductID),
		zap.Int("requested", line.Quantity),
		zap.Int("stock", stock))
	return outcome, nil
}

// Restock adds delta to the stock under the product lock. A positive delta makes every
// waiting notification for the product deliverable. It reports false when the product
// is unknown or the stock would become negative.
func (a *Allocator) Restock(ctx context.Context, productID int, delta int) (bool, error) {
	unlock := a.locks.lock(productID)
	defer unlock()

	ok, err := a.catalog.ProductAdjust(ctx, productID, delta)
	if err != nil {
		return false, fmt.Errorf("adjust stock of product %d: %w", productID, err)
	}
	if !ok {
		return false, nil
	}

	if delta > 0 {
		if err := a.notifications.NotificationMarkPending(ctx, productID); err != nil {
			return true, fmt.Errorf("mark notifications of product %d: %w", productID, err)
		}
	}
	a.zaplog.Info("stock adjusted", zap.Int("product_id", productID), zap.Int("delta", delta))
	return true, nil
}

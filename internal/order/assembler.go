// Package order turns a customer's cart into an order.
package order

import (
	"context"
	"fmt"
	"sync"

	"github.com/iurnickita/dairyshop/internal/inventory"
	"github.com/iurnickita/dairyshop/internal/model"
	"go.uber.org/zap"
)

type Cart interface {
	CartLines(ctx context.Context, customer string) ([]model.CartLine, error)
	CartRemoveLine(ctx context.Context, customer string, lineID int) error
}

type Ledger interface {
	OrderNextID(ctx context.Context) (int, error)
	OrderMaxID(ctx context.Context) (int, error)
	OrderAppendLine(ctx context.Context, orderID int, customer string, line model.OrderLine) error
}

type Allocator interface {
	Allocate(ctx context.Context, customer string, lines []model.CartLine) ([]inventory.Outcome, error)
}

type Assembler struct {
	// mu is the global ordering point: identifier reservation and the ledger
	// writes under that identifier never interleave with another order.
	mu        sync.Mutex
	cart      Cart
	ledger    Ledger
	allocator Allocator
	zaplog    *zap.Logger
}

func NewAssembler(cart Cart, ledger Ledger, allocator Allocator, zaplog *zap.Logger) *Assembler {
	return &Assembler{
		cart:      cart,
		ledger:    ledger,
		allocator: allocator,
		zaplog:    zaplog,
	}
}

// PlaceOrder buys whatever the stock allows from the customer's cart.
// When no line could be allocated the result is model.NotPlaced; deferred lines stay in the cart.
func (a *Assembler) PlaceOrder(ctx context.Context, customer string) (model.Order, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	lines, err := a.cart.CartLines(ctx, customer)
	if err != nil {
		return model.Order{}, fmt.Errorf("read cart: %w", err)
	}
	if len(lines) == 0 {
		return model.NotPlaced(customer), nil
	}

	orderID, err := a.ledger.OrderNextID(ctx)
	if err != nil {
		return model.Order{}, err
	}

	outcomes, err := a.allocator.Allocate(ctx, customer, lines)
	if err != nil {
		return model.Order{}, err
	}

	order := model.Order{ID: orderID, Customer: customer, Lines: []model.OrderLine{}}
	for _, outcome := range outcomes {
		if !outcome.Accepted {
			continue
		}
		if err := a.ledger.OrderAppendLine(ctx, orderID, customer, outcome.Line); err != nil {
			return model.Order{}, fmt.Errorf("write order %d: %w", orderID, err)
		}
		if err := a.cart.CartRemoveLine(ctx, customer, outcome.CartLine.ID); err != nil {
			return model.Order{}, fmt.Errorf("clear cart line %d: %w", outcome.CartLine.ID, err)
		}
		order.Lines = append(order.Lines, outcome.Line)
	}

	// заказ оформлен, только если его строки попали в журнал; заказ без строк не оформлен никогда
	maxID, err := a.ledger.OrderMaxID(ctx)
	if err != nil {
		return model.Order{}, err
	}
	if maxID < orderID || len(order.Lines) == 0 {
		a.zaplog.Info("nothing could be purchased",
			zap.String("customer", customer),
			zap.Int("cart_lines", len(lines)),
			zap.Int("reserved_order_id", orderID))
		return model.NotPlaced(customer), nil
	}

	a.zaplog.Info("order placed",
		zap.Int("order_id", orderID),
		zap.String("customer", customer),
		zap.Int("accepted", len(order.Lines)),
		zap.Int("deferred", len(lines)-len(order.Lines)))
	return order, nil
}

package store

import (
	"context"
	"errors"

	"github.com/iurnickita/dairyshop/internal/model"
	"github.com/iurnickita/dairyshop/internal/store/config"
)

type Store interface {
	UserCreate(ctx context.Context, user model.User, passwordHash string) error
	UserGet(ctx context.Context, email string) (model.User, string, error)
	UserList(ctx context.Context, role model.Role) ([]model.User, error)

	ProductAdd(ctx context.Context, info model.ProductInfo) (model.Product, error)
	ProductGet(ctx context.Context, id int) (model.Product, error)
	ProductQuantity(ctx context.Context, id int) (int, error)
	// ProductAdjust atomically adds delta to the stock of the product.
	// It reports false when the product is unknown or the stock would become negative.
	ProductAdjust(ctx context.Context, id int, delta int) (bool, error)
	ProductSearch(ctx context.Context, name string, year int) ([]model.Product, error)

	CartAdd(ctx context.Context, line model.CartLine) (model.CartLine, error)
	CartLines(ctx context.Context, customer string) ([]model.CartLine, error)
	CartRemoveLine(ctx context.Context, customer string, lineID int) error
	CartRemoveProduct(ctx context.Context, customer string, productID int) error

	// OrderNextID reserves a fresh order identifier. Reserved identifiers are never handed out again.
	OrderNextID(ctx context.Context) (int, error)
	OrderMaxID(ctx context.Context) (int, error)
	OrderAppendLine(ctx context.Context, orderID int, customer string, line model.OrderLine) error
	OrderShip(ctx context.Context, orderID int) error
	OrderList(ctx context.Context, filter model.OrderFilter) ([]model.Order, error)

	NotificationEnqueue(ctx context.Context, customer string, productID int) error
	NotificationMarkPending(ctx context.Context, productID int) error
	NotificationDrain(ctx context.Context, customer string) ([]model.Product, error)

	Close() error
}

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// NewStore открывает PostgreSQL по DSN из конфигурации, без DSN данные хранятся в памяти.
func NewStore(cfg config.Config) (Store, error) {
	if cfg.DBDsn == "" {
		return NewMemStore(), nil
	}
	return NewPostgresStore(cfg.DBDsn)
}

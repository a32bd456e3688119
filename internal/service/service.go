package service

import (
	"context"
	"errors"

	"github.com/iurnickita/dairyshop/internal/cart"
	"github.com/iurnickita/dairyshop/internal/inventory"
	"github.com/iurnickita/dairyshop/internal/model"
	"github.com/iurnickita/dairyshop/internal/order"
	"github.com/iurnickita/dairyshop/internal/service/config"
	"github.com/iurnickita/dairyshop/internal/service/warehouse"
	"github.com/iurnickita/dairyshop/internal/store"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type Service interface {
	Register(ctx context.Context, user model.User, password string) (model.User, error)
	Login(ctx context.Context, email string, password string) (model.User, error)
	GetUsers(ctx context.Context, role model.Role) ([]model.User, error)

	AddProduct(ctx context.Context, info model.ProductInfo) (model.Product, error)
	Restock(ctx context.Context, productID int, delta int) (model.Product, error)
	Search(ctx context.Context, name string, year int) ([]model.Product, error)

	AddToCart(ctx context.Context, customer string, productID int, quantity int) (model.CartLine, error)
	RemoveFromCart(ctx context.Context, customer string, productID int) error
	GetCart(ctx context.Context, customer string) ([]model.CartItem, error)

	PlaceOrder(ctx context.Context, customer string) (model.Order, error)
	ShipOrder(ctx context.Context, orderID int) error
	GetOrders(ctx context.Context, filter model.OrderFilter) ([]model.Order, error)

	GetNotifications(ctx context.Context, customer string) ([]model.Product, error)

	Close() error
}

var (
	ErrInsufficientData    = errors.New("insufficient data")
	ErrNotFound            = errors.New("not found")
	ErrAlreadyExists       = errors.New("already exists")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUnprocessableEntity = errors.New("unprocessable entity")
)

type service struct {
	cfg       config.Config
	store     store.Store
	cart      cart.Cart
	allocator *inventory.Allocator
	assembler *order.Assembler
	warehouse warehouse.Publisher
	zaplog    *zap.Logger
}

func NewService(cfg config.Config, store store.Store, zaplog *zap.Logger) (Service, error) {
	publisher, err := warehouse.NewPublisher(cfg.WarehouseURI, cfg.WarehouseQueue)
	if err != nil {
		return nil, err
	}
	return newService(cfg, store, publisher, zaplog)
}

func newService(cfg config.Config, store store.Store, publisher warehouse.Publisher, zaplog *zap.Logger) (Service, error) {
	allocator := inventory.NewAllocator(store, store, zaplog)
	assembler := order.NewAssembler(store, store, allocator, zaplog)

	service := service{
		cfg:       cfg,
		store:     store,
		cart:      cart.NewCart(store),
		allocator: allocator,
		assembler: assembler,
		warehouse: publisher,
		zaplog:    zaplog,
	}

	if err := service.bootstrapEmployee(context.Background()); err != nil {
		return nil, err
	}

	return &service, nil
}

// bootstrapEmployee создает первого сотрудника, только он может регистрировать остальных.
func (service *service) bootstrapEmployee(ctx context.Context) error {
	if service.cfg.AdminEmail == "" {
		return nil
	}
	admin := model.User{Email: service.cfg.AdminEmail, Name: "admin", Surname: "admin", Role: model.RoleEmployee}
	_, err := service.Register(ctx, admin, service.cfg.AdminPassword)
	if err != nil && !errors.Is(err, ErrAlreadyExists) {
		return err
	}
	return nil
}

func (service *service) Close() error {
	return service.warehouse.Close()
}

func (service *service) Register(ctx context.Context, user model.User, password string) (model.User, error) {
	if user.Email == "" || password == "" {
		return model.User{}, ErrInsufficientData
	}
	if user.Role != model.RoleCustomer && user.Role != model.RoleEmployee {
		return model.User{}, ErrUnprocessableEntity
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, err
	}

	err = service.store.UserCreate(ctx, user, string(hash))
	if err != nil {
		switch {
		case errors.Is(err, store.ErrAlreadyExists):
			return model.User{}, ErrAlreadyExists
		default:
			return model.User{}, err
		}
	}
	return user, nil
}

func (service *service) Login(ctx context.Context, email string, password string) (model.User, error) {
	if email == "" || password == "" {
		return model.User{}, ErrInsufficientData
	}

	user, hash, err := service.store.UserGet(ctx, email)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return model.User{}, ErrInvalidCredentials
		default:
			return model.User{}, err
		}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return model.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (service *service) GetUsers(ctx context.Context, role model.Role) ([]model.User, error) {
	return service.store.UserList(ctx, role)
}

func (service *service) AddProduct(ctx context.Context, info model.ProductInfo) (model.Product, error) {
	if info.Name == "" || info.Producer == "" {
		return model.Product{}, ErrInsufficientData
	}

	product, err := service.store.ProductAdd(ctx, info)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrAlreadyExists):
			return model.Product{}, ErrAlreadyExists
		default:
			return model.Product{}, err
		}
	}
	service.zaplog.Info("product added", zap.Int("product_id", product.ID), zap.String("name", product.Name))
	return product, nil
}

func (service *service) Restock(ctx context.Context, productID int, delta int) (model.Product, error) {
	if delta == 0 {
		return model.Product{}, ErrInsufficientData
	}
	if _, err := service.getProduct(ctx, productID); err != nil {
		return model.Product{}, err
	}

	ok, err := service.allocator.Restock(ctx, productID, delta)
	if err != nil {
		return model.Product{}, err
	}
	if !ok {
		return model.Product{}, ErrInsufficientStock
	}
	return service.getProduct(ctx, productID)
}

func (service *service) getProduct(ctx context.Context, productID int) (model.Product, error) {
	product, err := service.store.ProductGet(ctx, productID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return model.Product{}, ErrNotFound
		default:
			return model.Product{}, err
		}
	}
	return product, nil
}

func (service *service) Search(ctx context.Context, name string, year int) ([]model.Product, error) {
	return service.store.ProductSearch(ctx, name, year)
}

func (service *service) AddToCart(ctx context.Context, customer string, productID int, quantity int) (model.CartLine, error) {
	if customer == "" {
		return model.CartLine{}, ErrInsufficientData
	}
	if quantity <= 0 {
		return model.CartLine{}, ErrUnprocessableEntity
	}

	line, err := service.cart.Add(ctx, customer, productID, quantity)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return model.CartLine{}, ErrNotFound
		default:
			return model.CartLine{}, err
		}
	}
	return line, nil
}

func (service *service) RemoveFromCart(ctx context.Context, customer string, productID int) error {
	if customer == "" {
		return ErrInsufficientData
	}
	return service.cart.Remove(ctx, customer, productID)
}

func (service *service) GetCart(ctx context.Context, customer string) ([]model.CartItem, error) {
	if customer == "" {
		return nil, ErrInsufficientData
	}
	return service.cart.Display(ctx, customer)
}

func (service *service) PlaceOrder(ctx context.Context, customer string) (model.Order, error) {
	if customer == "" {
		return model.Order{}, ErrInsufficientData
	}

	order, err := service.assembler.PlaceOrder(ctx, customer)
	if err != nil {
		return model.Order{}, err
	}

	// склад узнает о заказе асинхронно, сбой брокера заказ не отменяет
	if order.Placed() {
		if err := service.warehouse.Publish(ctx, order); err != nil {
			service.zaplog.Warn("order not published to warehouse",
				zap.Int("order_id", order.ID),
				zap.Error(err))
		}
	}
	return order, nil
}

func (service *service) ShipOrder(ctx context.Context, orderID int) error {
	if orderID <= 0 {
		return ErrInsufficientData
	}

	err := service.store.OrderShip(ctx, orderID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return ErrNotFound
		default:
			return err
		}
	}
	service.zaplog.Info("order shipped", zap.Int("order_id", orderID))
	return nil
}

func (service *service) GetOrders(ctx context.Context, filter model.OrderFilter) ([]model.Order, error) {
	return service.store.OrderList(ctx, filter)
}

func (service *service) GetNotifications(ctx context.Context, customer string) ([]model.Product, error) {
	if customer == "" {
		return nil, ErrInsufficientData
	}
	return service.store.NotificationDrain(ctx, customer)
}

package client

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/iurnickita/dairyshop/internal/model"
)

// StatusError: сервер ответил неожиданным кодом.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("shop request status: %d %s", e.Code, e.Message)
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Client interface {
	Register(ctx context.Context, req RegisterRequest) (model.User, error)
	RegisterEmployee(ctx context.Context, req RegisterRequest) (model.User, error)
	Login(ctx context.Context, email string, password string) (model.User, error)
	Guest(ctx context.Context) error
	GetUsers(ctx context.Context) ([]model.User, error)
	GetEmployees(ctx context.Context) ([]model.User, error)

	AddProduct(ctx context.Context, info model.ProductInfo) (model.Product, error)
	Restock(ctx context.Context, productID int, quantity int) (model.Product, error)
	GetProducts(ctx context.Context) ([]model.Product, error)
	Search(ctx context.Context, name string, year int) ([]model.Product, error)

	AddToCart(ctx context.Context, productID int, quantity int) (model.CartLine, error)
	RemoveFromCart(ctx context.Context, productID int) error
	DisplayCart(ctx context.Context) ([]model.CartItem, error)

	NewOrder(ctx context.Context) (model.Order, error)
	ShipOrder(ctx context.Context, orderID int) error
	GetOrders(ctx context.Context) ([]model.Order, error)
	GetOrdersEmployee(ctx context.Context) ([]model.Order, error)
	GetOrdersUser(ctx context.Context) ([]model.Order, error)

	GetNotifications(ctx context.Context) ([]model.Product, error)
}

type client struct {
	resty *resty.Client
}

// NewClient создает клиента магазина; сессионная cookie хранится в cookie jar resty.
func NewClient(serverAddr string) Client {
	if !strings.HasPrefix(serverAddr, "http://") && !strings.HasPrefix(serverAddr, "https://") {
		serverAddr = "http://" + serverAddr
	}
	return &client{resty: resty.New().SetBaseURL(serverAddr)}
}

func (c *client) send(ctx context.Context, method, path string, body, result any, expected ...int) error {
	req := c.resty.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return err
	}
	if !slices.Contains(expected, resp.StatusCode()) {
		return &StatusError{Code: resp.StatusCode(), Message: strings.TrimSpace(resp.String())}
	}
	return nil
}

// Пользователи

func (c *client) Register(ctx context.Context, req RegisterRequest) (model.User, error) {
	var user model.User
	err := c.send(ctx, http.MethodPost, "/api/user/register", req, &user, http.StatusOK)
	return user, err
}

func (c *client) RegisterEmployee(ctx context.Context, req RegisterRequest) (model.User, error) {
	var user model.User
	err := c.send(ctx, http.MethodPost, "/api/employees", req, &user, http.StatusOK)
	return user, err
}

func (c *client) Login(ctx context.Context, email string, password string) (model.User, error) {
	var user model.User
	body := map[string]string{"email": email, "password": password}
	err := c.send(ctx, http.MethodPost, "/api/user/login", body, &user, http.StatusOK)
	return user, err
}

func (c *client) Guest(ctx context.Context) error {
	return c.send(ctx, http.MethodPost, "/api/user/guest", nil, nil, http.StatusOK)
}

func (c *client) GetUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := c.send(ctx, http.MethodGet, "/api/users", nil, &users, http.StatusOK)
	return users, err
}

func (c *client) GetEmployees(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := c.send(ctx, http.MethodGet, "/api/employees", nil, &users, http.StatusOK)
	return users, err
}

// Каталог

func (c *client) AddProduct(ctx context.Context, info model.ProductInfo) (model.Product, error) {
	var product model.Product
	err := c.send(ctx, http.MethodPost, "/api/products", info, &product, http.StatusCreated)
	return product, err
}

func (c *client) Restock(ctx context.Context, productID int, quantity int) (model.Product, error) {
	var product model.Product
	path := "/api/products/" + strconv.Itoa(productID) + "/restock"
	body := map[string]int{"quantity": quantity}
	err := c.send(ctx, http.MethodPost, path, body, &product, http.StatusOK)
	return product, err
}

func (c *client) GetProducts(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := c.send(ctx, http.MethodGet, "/api/products", nil, &products, http.StatusOK)
	return products, err
}

func (c *client) Search(ctx context.Context, name string, year int) ([]model.Product, error) {
	var products []model.Product
	resp, err := c.resty.R().
		SetContext(ctx).
		SetQueryParam("name", name).
		SetQueryParam("year", strconv.Itoa(year)).
		SetResult(&products).
		Get("/api/products/search")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode(), Message: strings.TrimSpace(resp.String())}
	}
	return products, nil
}

// Корзина

func (c *client) AddToCart(ctx context.Context, productID int, quantity int) (model.CartLine, error) {
	var line model.CartLine
	body := map[string]int{"product_id": productID, "quantity": quantity}
	err := c.send(ctx, http.MethodPost, "/api/user/cart", body, &line, http.StatusCreated)
	return line, err
}

func (c *client) RemoveFromCart(ctx context.Context, productID int) error {
	return c.send(ctx, http.MethodDelete, "/api/user/cart/"+strconv.Itoa(productID), nil, nil, http.StatusOK)
}

func (c *client) DisplayCart(ctx context.Context) ([]model.CartItem, error) {
	var items []model.CartItem
	err := c.send(ctx, http.MethodGet, "/api/user/cart", nil, &items, http.StatusOK)
	return items, err
}

// Заказы

// NewOrder возвращает заказ с нулевым ID, если ни одна строка корзины не была куплена.
func (c *client) NewOrder(ctx context.Context) (model.Order, error) {
	var order model.Order
	err := c.send(ctx, http.MethodPost, "/api/user/orders", nil, &order, http.StatusOK, http.StatusCreated)
	return order, err
}

func (c *client) ShipOrder(ctx context.Context, orderID int) error {
	return c.send(ctx, http.MethodPost, "/api/orders/"+strconv.Itoa(orderID)+"/ship", nil, nil, http.StatusOK)
}

func (c *client) GetOrders(ctx context.Context) ([]model.Order, error) {
	return c.getOrders(ctx, "/api/orders")
}

func (c *client) GetOrdersEmployee(ctx context.Context) ([]model.Order, error) {
	return c.getOrders(ctx, "/api/orders/pending")
}

func (c *client) GetOrdersUser(ctx context.Context) ([]model.Order, error) {
	return c.getOrders(ctx, "/api/user/orders")
}

func (c *client) getOrders(ctx context.Context, path string) ([]model.Order, error) {
	var orders []model.Order
	err := c.send(ctx, http.MethodGet, path, nil, &orders, http.StatusOK, http.StatusNoContent)
	return orders, err
}

// Уведомления

func (c *client) GetNotifications(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := c.send(ctx, http.MethodGet, "/api/user/notifications", nil, &products, http.StatusOK)
	return products, err
}

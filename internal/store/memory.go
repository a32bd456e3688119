package store

import (
	"context"
	"sort"
	"sync"

	"github.com/iurnickita/dairyshop/internal/model"
)

type memUser struct {
	user         model.User
	passwordHash string
}

type memOrderLine struct {
	orderID  int
	customer string
	shipped  bool
	line     model.OrderLine
}

type memNotification struct {
	customer  string
	productID int
	send      bool
}

// memStore держит все таблицы под одним мьютексом, каждая операция атомарна.
type memStore struct {
	mu sync.Mutex

	users         map[string]memUser
	products      map[int]model.Product
	lastProductID int
	cart          []model.CartLine
	lastCartLine  int
	orders        []memOrderLine
	lastOrderID   int
	notifications []memNotification
}

func NewMemStore() Store {
	return &memStore{
		users:    make(map[string]memUser),
		products: make(map[int]model.Product),
	}
}

func (s *memStore) Close() error {
	return nil
}

func (s *memStore) UserCreate(_ context.Context, user model.User, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.Email]; ok {
		return ErrAlreadyExists
	}
	s.users[user.Email] = memUser{user: user, passwordHash: passwordHash}
	return nil
}

func (s *memStore) UserGet(_ context.Context, email string) (model.User, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[email]
	if !ok {
		return model.User{}, "", ErrNotFound
	}
	return u.user, u.passwordHash, nil
}

func (s *memStore) UserList(_ context.Context, role model.Role) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var users []model.User
	for _, u := range s.users {
		if u.user.Role == role {
			users = append(users, u.user)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return users, nil
}

func (s *memStore) ProductAdd(_ context.Context, info model.ProductInfo) (model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.products {
		if p.Name == info.Name && p.Year == info.Year && p.Producer == info.Producer {
			return model.Product{}, ErrAlreadyExists
		}
	}
	s.lastProductID++
	p := model.Product{ID: s.lastProductID, ProductInfo: info}
	s.products[p.ID] = p
	return p, nil
}

func (s *memStore) ProductGet(_ context.Context, id int) (model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return model.Product{}, ErrNotFound
	}
	return p, nil
}

func (s *memStore) ProductQuantity(_ context.Context, id int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return 0, ErrNotFound
	}
	return p.Quantity, nil
}

func (s *memStore) ProductAdjust(_ context.Context, id int, delta int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok || p.Quantity+delta < 0 {
		return false, nil
	}
	p.Quantity += delta
	s.products[id] = p
	return true, nil
}

func (s *memStore) ProductSearch(_ context.Context, name string, year int) ([]model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var products []model.Product
	for _, p := range s.products {
		if name != "" && p.Name != name {
			continue
		}
		if year != 0 && p.Year != year {
			continue
		}
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

func (s *memStore) CartAdd(_ context.Context, line model.CartLine) (model.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[line.ProductID]; !ok {
		return model.CartLine{}, ErrNotFound
	}
	s.lastCartLine++
	line.ID = s.lastCartLine
	s.cart = append(s.cart, line)
	return line, nil
}

func (s *memStore) CartLines(_ context.Context, customer string) ([]model.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var lines []model.CartLine
	for _, l := range s.cart {
		if l.Customer == customer {
			lines = append(lines, l)
		}
	}
	return lines, nil
}

func (s *memStore) CartRemoveLine(_ context.Context, customer string, lineID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeCart(func(l model.CartLine) bool { return l.Customer == customer && l.ID == lineID })
	return nil
}

func (s *memStore) CartRemoveProduct(_ context.Context, customer string, productID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeCart(func(l model.CartLine) bool { return l.Customer == customer && l.ProductID == productID })
	return nil
}

func (s *memStore) removeCart(match func(model.CartLine) bool) {
	kept := s.cart[:0]
	for _, l := range s.cart {
		if !match(l) {
			kept = append(kept, l)
		}
	}
	s.cart = kept
}

func (s *memStore) OrderNextID(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastOrderID++
	return s.lastOrderID, nil
}

func (s *memStore) OrderMaxID(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	maxID := 0
	for _, o := range s.orders {
		if o.orderID > maxID {
			maxID = o.orderID
		}
	}
	return maxID, nil
}

func (s *memStore) OrderAppendLine(_ context.Context, orderID int, customer string, line model.OrderLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders = append(s.orders, memOrderLine{orderID: orderID, customer: customer, line: line})
	return nil
}

func (s *memStore) OrderShip(_ context.Context, orderID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	for i := range s.orders {
		if s.orders[i].orderID == orderID {
			s.orders[i].shipped = true
			found = true
		}
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

func (s *memStore) OrderList(_ context.Context, filter model.OrderFilter) ([]model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := make(map[int]*model.Order)
	var ids []int
	for _, o := range s.orders {
		if filter.Customer != "" && o.customer != filter.Customer {
			continue
		}
		if filter.UnshippedOnly && o.shipped {
			continue
		}
		order, ok := byID[o.orderID]
		if !ok {
			order = &model.Order{ID: o.orderID, Customer: o.customer}
			byID[o.orderID] = order
			ids = append(ids, o.orderID)
		}
		order.Shipped = o.shipped
		order.Lines = append(order.Lines, o.line)
	}
	sort.Ints(ids)

	orders := make([]model.Order, 0, len(ids))
	for _, id := range ids {
		orders = append(orders, *byID[id])
	}
	return orders, nil
}

func (s *memStore) NotificationEnqueue(_ context.Context, customer string, productID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notifications = append(s.notifications, memNotification{customer: customer, productID: productID})
	return nil
}

func (s *memStore) NotificationMarkPending(_ context.Context, productID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.notifications {
		if s.notifications[i].productID == productID {
			s.notifications[i].send = true
		}
	}
	return nil
}

func (s *memStore) NotificationDrain(_ context.Context, customer string) ([]model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var products []model.Product
	kept := s.notifications[:0]
	for _, n := range s.notifications {
		if n.customer != customer || !n.send {
			kept = append(kept, n)
			continue
		}
		if p, ok := s.products[n.productID]; ok {
			products = append(products, p)
		}
	}
	s.notifications = kept
	return products, nil
}

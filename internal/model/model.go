package model

// Пользователи

type Role int

const (
	RoleGuest    Role = 0
	RoleCustomer Role = 1
	RoleEmployee Role = 2
)

type User struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Role    Role   `json:"role"`
}

// Каталог

type ProductInfo struct {
	Name     string `json:"name"`
	Producer string `json:"producer"`
	Year     int    `json:"year"`
	Notes    string `json:"notes"`
}

type Product struct {
	ID int `json:"id"`
	ProductInfo
	Quantity int `json:"quantity"`
}

// Корзина

type CartLine struct {
	ID        int    `json:"line_id"`
	Customer  string `json:"-"`
	ProductID int    `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// CartItem is a cart line joined with the product it refers to.
type CartItem struct {
	LineID    int `json:"line_id"`
	ProductID int `json:"product_id"`
	ProductInfo
	Quantity int `json:"quantity"`
}

// Заказы

// OrderLine keeps a snapshot of the product attributes taken when the line was allocated.
type OrderLine struct {
	ProductID int `json:"product_id"`
	ProductInfo
	Quantity int `json:"quantity"`
}

type Order struct {
	ID       int         `json:"id"`
	Customer string      `json:"customer"`
	Shipped  bool        `json:"shipped"`
	Lines    []OrderLine `json:"lines"`
}

// NotPlacedOrderID marks an order for which no line could be allocated.
// Real order identifiers start at 1.
const NotPlacedOrderID = 0

// NotPlaced returns the order reported when nothing was purchased.
func NotPlaced(customer string) Order {
	return Order{ID: NotPlacedOrderID, Customer: customer, Lines: []OrderLine{}}
}

func (o Order) Placed() bool {
	return o.ID != NotPlacedOrderID
}

type OrderFilter struct {
	Customer      string
	UnshippedOnly bool
}

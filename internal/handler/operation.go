package handler

import (
	"net/http"

	"github.com/iurnickita/dairyshop/internal/model"
)

// Operation перечисляет все запросы, которые принимает сервер.
type Operation int

const (
	OpLogin Operation = iota
	OpGuest
	OpRegisterUser
	OpRegisterEmployee
	OpGetEmployees
	OpGetUsers
	OpAddProduct
	OpRestockProduct
	OpGetProducts
	OpSearch
	OpAddToCart
	OpRemoveFromCart
	OpDisplayCart
	OpNewOrder
	OpGetOrdersUser
	OpGetOrders
	OpGetOrdersEmployee
	OpShipOrder
	OpGetNotifications

	opCount
)

var opNames = [opCount]string{
	OpLogin:             "login",
	OpGuest:             "guest",
	OpRegisterUser:      "register_user",
	OpRegisterEmployee:  "register_employee",
	OpGetEmployees:      "get_employees",
	OpGetUsers:          "get_users",
	OpAddProduct:        "add_product",
	OpRestockProduct:    "restock_product",
	OpGetProducts:       "get_products",
	OpSearch:            "search",
	OpAddToCart:         "add_to_cart",
	OpRemoveFromCart:    "remove_from_cart",
	OpDisplayCart:       "display_cart",
	OpNewOrder:          "new_order",
	OpGetOrdersUser:     "get_orders_user",
	OpGetOrders:         "get_orders",
	OpGetOrdersEmployee: "get_orders_employee",
	OpShipOrder:         "ship_order",
	OpGetNotifications:  "get_notifications",
}

func (op Operation) String() string {
	if op < 0 || op >= opCount {
		return "unknown"
	}
	return opNames[op]
}

// route: шаблон ServeMux и роли, которым доступна операция.
// roles == nil: сессия не нужна.
type route struct {
	pattern string
	roles   []model.Role
}

var (
	anyone    = []model.Role{model.RoleGuest, model.RoleCustomer, model.RoleEmployee}
	customers = []model.Role{model.RoleCustomer}
	employees = []model.Role{model.RoleEmployee}
)

var routes = [opCount]route{
	OpLogin:             {"POST /api/user/login", nil},
	OpGuest:             {"POST /api/user/guest", nil},
	OpRegisterUser:      {"POST /api/user/register", nil},
	OpRegisterEmployee:  {"POST /api/employees", employees},
	OpGetEmployees:      {"GET /api/employees", employees},
	OpGetUsers:          {"GET /api/users", employees},
	OpAddProduct:        {"POST /api/products", employees},
	OpRestockProduct:    {"POST /api/products/{id}/restock", employees},
	OpGetProducts:       {"GET /api/products", anyone},
	OpSearch:            {"GET /api/products/search", anyone},
	OpAddToCart:         {"POST /api/user/cart", customers},
	OpRemoveFromCart:    {"DELETE /api/user/cart/{product_id}", customers},
	OpDisplayCart:       {"GET /api/user/cart", customers},
	OpNewOrder:          {"POST /api/user/orders", customers},
	OpGetOrdersUser:     {"GET /api/user/orders", customers},
	OpGetOrders:         {"GET /api/orders", employees},
	OpGetOrdersEmployee: {"GET /api/orders/pending", employees},
	OpShipOrder:         {"POST /api/orders/{id}/ship", employees},
	OpGetNotifications:  {"GET /api/user/notifications", customers},
}

// endpoint возвращает обработчик операции.
func (h *handler) endpoint(op Operation) http.HandlerFunc {
	switch op {
	case OpLogin:
		return h.auth.Login
	case OpGuest:
		return h.auth.Guest
	case OpRegisterUser:
		return h.auth.Register
	case OpRegisterEmployee:
		return h.auth.RegisterEmployee
	case OpGetEmployees:
		return h.GetEmployees
	case OpGetUsers:
		return h.GetUsers
	case OpAddProduct:
		return h.AddProduct
	case OpRestockProduct:
		return h.RestockProduct
	case OpGetProducts:
		return h.GetProducts
	case OpSearch:
		return h.Search
	case OpAddToCart:
		return h.AddToCart
	case OpRemoveFromCart:
		return h.RemoveFromCart
	case OpDisplayCart:
		return h.DisplayCart
	case OpNewOrder:
		return h.NewOrder
	case OpGetOrdersUser:
		return h.GetOrdersUser
	case OpGetOrders:
		return h.GetOrders
	case OpGetOrdersEmployee:
		return h.GetOrdersEmployee
	case OpShipOrder:
		return h.ShipOrder
	case OpGetNotifications:
		return h.GetNotifications
	}
	return nil
}

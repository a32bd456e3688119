package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/iurnickita/dairyshop/internal/auth"
	"github.com/iurnickita/dairyshop/internal/gzip"
	"github.com/iurnickita/dairyshop/internal/handler/config"
	"github.com/iurnickita/dairyshop/internal/logger"
	"github.com/iurnickita/dairyshop/internal/model"
	"github.com/iurnickita/dairyshop/internal/service"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// Serve обслуживает запросы до отмены ctx, после чего дожидается завершения активных запросов.
func Serve(ctx context.Context, cfg config.Config, auth auth.Auth, service service.Service, zaplog *zap.Logger) error {
	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: NewRouter(auth, service, zaplog),
	}

	errc := make(chan error, 1)
	go func() {
		zaplog.Info("server started", zap.String("addr", cfg.ServerAddr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	zaplog.Info("server stopped")
	return nil
}

type handler struct {
	auth    auth.Auth
	service service.Service
	zaplog  *zap.Logger
}

func newHandler(auth auth.Auth, service service.Service, zaplog *zap.Logger) *handler {
	return &handler{
		auth:    auth,
		service: service,
		zaplog:  zaplog,
	}
}

// NewRouter возвращает маршрутизатор со всеми операциями магазина.
func NewRouter(auth auth.Auth, service service.Service, zaplog *zap.Logger) http.Handler {
	return newHandler(auth, service, zaplog).newRouter()
}

func (h *handler) newRouter() *http.ServeMux {
	mux := http.NewServeMux()
	for op := Operation(0); op < opCount; op++ {
		route := routes[op]
		endpoint := h.endpoint(op)
		if route.roles != nil {
			endpoint = h.auth.Middleware(endpoint, route.roles...)
		}
		mux.HandleFunc(route.pattern, gzip.GzipMiddleware(logger.RequestLogMdlw(endpoint, h.zaplog)))
	}
	return mux
}

// Каталог

func (h *handler) AddProduct(w http.ResponseWriter, r *http.Request) {
	var info model.ProductInfo
	if err := json.NewDecoder(r.Body).Decode(&info); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	product, err := h.service.AddProduct(r.Context(), info)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

type RestockJSONRequest struct {
	Quantity int `json:"quantity"`
}

func (h *handler) RestockProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req RestockJSONRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	product, err := h.service.Restock(r.Context(), productID, req.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *handler) GetProducts(w http.ResponseWriter, r *http.Request) {
	h.search(w, r, "", 0)
}

// Search ищет по названию и году; нечисловой год означает поиск без года.
func (h *handler) Search(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		year = 0
	}
	h.search(w, r, r.URL.Query().Get("name"), year)
}

func (h *handler) search(w http.ResponseWriter, r *http.Request, name string, year int) {
	products, err := h.service.Search(r.Context(), name, year)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if products == nil {
		products = []model.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

// Пользователи

func (h *handler) GetUsers(w http.ResponseWriter, r *http.Request) {
	h.getUsers(w, r, model.RoleCustomer)
}

func (h *handler) GetEmployees(w http.ResponseWriter, r *http.Request) {
	h.getUsers(w, r, model.RoleEmployee)
}

func (h *handler) getUsers(w http.ResponseWriter, r *http.Request, role model.Role) {
	users, err := h.service.GetUsers(r.Context(), role)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if users == nil {
		users = []model.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// Корзина

type AddToCartJSONRequest struct {
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}

func (h *handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req AddToCartJSONRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	line, err := h.service.AddToCart(r.Context(), customer(r), req.ProductID, req.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, line)
}

func (h *handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.Atoi(r.PathValue("product_id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.service.RemoveFromCart(r.Context(), customer(r), productID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *handler) DisplayCart(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.GetCart(r.Context(), customer(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if items == nil {
		items = []model.CartItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

// Заказы

type NewOrderJSONResponse struct {
	Placed bool `json:"placed"`
	model.Order
}

// NewOrder отвечает 201 на размещенный заказ и 200 с placed=false, если ничего не куплено.
func (h *handler) NewOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.PlaceOrder(r.Context(), customer(r))
	if err != nil {
		h.writeError(w, err)
		return
	}

	status := http.StatusOK
	if order.Placed() {
		status = http.StatusCreated
	}
	writeJSON(w, status, NewOrderJSONResponse{Placed: order.Placed(), Order: order})
}

func (h *handler) ShipOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.service.ShipOrder(r.Context(), orderID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	h.getOrders(w, r, model.OrderFilter{})
}

func (h *handler) GetOrdersEmployee(w http.ResponseWriter, r *http.Request) {
	h.getOrders(w, r, model.OrderFilter{UnshippedOnly: true})
}

func (h *handler) GetOrdersUser(w http.ResponseWriter, r *http.Request) {
	h.getOrders(w, r, model.OrderFilter{Customer: customer(r)})
}

func (h *handler) getOrders(w http.ResponseWriter, r *http.Request, filter model.OrderFilter) {
	orders, err := h.service.GetOrders(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// Уведомления

func (h *handler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.GetNotifications(r.Context(), customer(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if products == nil {
		products = []model.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

func customer(r *http.Request) string {
	user, _ := auth.UserFromContext(r.Context())
	return user.Email
}

func (h *handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInsufficientData):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrInvalidCredentials):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, service.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, service.ErrAlreadyExists):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrUnprocessableEntity):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		h.zaplog.Error("request failed", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	responseJSON, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(responseJSON)
}

package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/iurnickita/dairyshop/internal/auth"
	"github.com/iurnickita/dairyshop/internal/model"
	"github.com/iurnickita/dairyshop/internal/service"
	"github.com/iurnickita/dairyshop/internal/service/config"
	"github.com/iurnickita/dairyshop/internal/store"
	"github.com/iurnickita/dairyshop/internal/token"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) *handler {
	t.Helper()
	svc, err := service.NewService(config.Config{AdminEmail: "boss@example.com", AdminPassword: "secret"},
		store.NewMemStore(), zap.NewNop())
	require.NoError(t, err)
	a := auth.NewAuth(svc, token.NewIssuer("test", time.Hour))
	return newHandler(a, svc, zap.NewNop())
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	return newTestHandler(t).newRouter()
}

type session struct {
	t      *testing.T
	router http.Handler
	cookie *http.Cookie
}

func (s *session) do(method, path, body string) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	r := httptest.NewRequest(method, path, reader)
	if s.cookie != nil {
		r.AddCookie(s.cookie)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, r)
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.CookieUserToken {
			s.cookie = c
		}
	}
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestOperationsAreTotal(t *testing.T) {
	h := newTestHandler(t)
	patterns := make(map[string]Operation)
	for op := Operation(0); op < opCount; op++ {
		require.NotEmpty(t, routes[op].pattern, "route for %s", op)
		require.NotEqual(t, "unknown", op.String())
		require.NotNil(t, h.endpoint(op), "endpoint for %s", op)

		prev, dup := patterns[routes[op].pattern]
		require.False(t, dup, "%s and %s share a route", prev, op)
		patterns[routes[op].pattern] = op
	}
	require.Nil(t, h.endpoint(opCount))
	require.Equal(t, "unknown", opCount.String())
}

func TestRoleChecks(t *testing.T) {
	router := newTestRouter(t)

	nobody := &session{t: t, router: router}
	require.Equal(t, http.StatusUnauthorized, nobody.do(http.MethodGet, "/api/products", "").Code)

	guest := &session{t: t, router: router}
	require.Equal(t, http.StatusOK, guest.do(http.MethodPost, "/api/user/guest", "").Code)
	require.Equal(t, http.StatusOK, guest.do(http.MethodGet, "/api/products", "").Code)
	require.Equal(t, http.StatusForbidden, guest.do(http.MethodGet, "/api/user/cart", "").Code)
	require.Equal(t, http.StatusForbidden, guest.do(http.MethodPost, "/api/products", `{}`).Code)

	customer := &session{t: t, router: router}
	w := customer.do(http.MethodPost, "/api/user/register",
		`{"name":"Anna","surname":"Rossi","email":"anna@example.com","password":"pw"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, http.StatusOK, customer.do(http.MethodGet, "/api/user/cart", "").Code)
	require.Equal(t, http.StatusForbidden, customer.do(http.MethodGet, "/api/orders", "").Code)
	require.Equal(t, http.StatusForbidden, customer.do(http.MethodPost, "/api/employees",
		`{"email":"x@example.com","password":"pw"}`).Code)
}

func TestShopFlow(t *testing.T) {
	router := newTestRouter(t)

	employee := &session{t: t, router: router}
	require.Equal(t, http.StatusOK, employee.do(http.MethodPost, "/api/user/login",
		`{"email":"boss@example.com","password":"secret"}`).Code)

	w := employee.do(http.MethodPost, "/api/products",
		`{"name":"Fontina","producer":"Aosta","year":2023,"notes":"alpine"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	product := decode[model.Product](t, w)
	require.Equal(t, 0, product.Quantity)

	w = employee.do(http.MethodPost, "/api/products",
		`{"name":"Fontina","producer":"Aosta","year":2023}`)
	require.Equal(t, http.StatusConflict, w.Code)

	customer := &session{t: t, router: router}
	require.Equal(t, http.StatusOK, customer.do(http.MethodPost, "/api/user/register",
		`{"name":"Anna","surname":"Rossi","email":"anna@example.com","password":"pw"}`).Code)

	w = customer.do(http.MethodPost, "/api/user/cart", `{"product_id":`+strconv.Itoa(product.ID)+`,"quantity":2}`)
	require.Equal(t, http.StatusCreated, w.Code)

	// на складе пусто
	w = customer.do(http.MethodPost, "/api/user/orders", "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[NewOrderJSONResponse](t, w)
	require.False(t, resp.Placed)
	require.Equal(t, http.StatusNoContent, customer.do(http.MethodGet, "/api/user/orders", "").Code)

	w = employee.do(http.MethodPost, "/api/products/"+strconv.Itoa(product.ID)+"/restock", `{"quantity":3}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 3, decode[model.Product](t, w).Quantity)

	w = employee.do(http.MethodPost, "/api/products/9999/restock", `{"quantity":3}`)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = customer.do(http.MethodGet, "/api/user/notifications", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode[[]model.Product](t, w), 1)

	w = customer.do(http.MethodPost, "/api/user/orders", "")
	require.Equal(t, http.StatusCreated, w.Code)
	resp = decode[NewOrderJSONResponse](t, w)
	require.True(t, resp.Placed)
	require.Len(t, resp.Lines, 1)
	require.Equal(t, "Fontina", resp.Lines[0].Name)

	w = customer.do(http.MethodGet, "/api/user/cart", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, decode[[]model.CartItem](t, w))

	w = employee.do(http.MethodGet, "/api/orders/pending", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode[[]model.Order](t, w), 1)

	require.Equal(t, http.StatusOK, employee.do(http.MethodPost, "/api/orders/"+strconv.Itoa(resp.ID)+"/ship", "").Code)
	require.Equal(t, http.StatusNotFound, employee.do(http.MethodPost, "/api/orders/9999/ship", "").Code)
	require.Equal(t, http.StatusBadRequest, employee.do(http.MethodPost, "/api/orders/abc/ship", "").Code)
	require.Equal(t, http.StatusNoContent, employee.do(http.MethodGet, "/api/orders/pending", "").Code)

	w = employee.do(http.MethodGet, "/api/orders", "")
	require.Equal(t, http.StatusOK, w.Code)
	orders := decode[[]model.Order](t, w)
	require.Len(t, orders, 1)
	require.True(t, orders[0].Shipped)
}

func TestSearch(t *testing.T) {
	router := newTestRouter(t)

	employee := &session{t: t, router: router}
	employee.do(http.MethodPost, "/api/user/login", `{"email":"boss@example.com","password":"secret"}`)
	employee.do(http.MethodPost, "/api/products", `{"name":"Asiago","producer":"Veneto","year":2020}`)
	employee.do(http.MethodPost, "/api/products", `{"name":"Asiago","producer":"Veneto","year":2022}`)
	employee.do(http.MethodPost, "/api/products", `{"name":"Piave","producer":"Veneto","year":2022}`)

	cases := []struct {
		query string
		want  int
	}{
		{"", 3},
		{"?name=Asiago", 2},
		{"?year=2022", 2},
		{"?name=Asiago&year=2022", 1},
		{"?name=Asiago&year=abc", 2},
		{"?name=Gouda", 0},
	}
	for _, c := range cases {
		w := employee.do(http.MethodGet, "/api/products/search"+c.query, "")
		require.Equal(t, http.StatusOK, w.Code)
		require.Len(t, decode[[]model.Product](t, w), c.want, c.query)
	}

	w := employee.do(http.MethodGet, "/api/products", "")
	require.Len(t, decode[[]model.Product](t, w), 3)
}

func TestCartEndpoints(t *testing.T) {
	router := newTestRouter(t)

	employee := &session{t: t, router: router}
	employee.do(http.MethodPost, "/api/user/login", `{"email":"boss@example.com","password":"secret"}`)
	product := decode[model.Product](t,
		employee.do(http.MethodPost, "/api/products", `{"name":"Taleggio","producer":"Lombardia","year":2021}`))

	customer := &session{t: t, router: router}
	customer.do(http.MethodPost, "/api/user/register",
		`{"name":"Anna","surname":"Rossi","email":"anna@example.com","password":"pw"}`)

	require.Equal(t, http.StatusUnprocessableEntity,
		customer.do(http.MethodPost, "/api/user/cart", `{"product_id":`+strconv.Itoa(product.ID)+`,"quantity":0}`).Code)
	require.Equal(t, http.StatusNotFound,
		customer.do(http.MethodPost, "/api/user/cart", `{"product_id":9999,"quantity":1}`).Code)
	require.Equal(t, http.StatusBadRequest, customer.do(http.MethodPost, "/api/user/cart", `{`).Code)

	customer.do(http.MethodPost, "/api/user/cart", `{"product_id":`+strconv.Itoa(product.ID)+`,"quantity":1}`)
	customer.do(http.MethodPost, "/api/user/cart", `{"product_id":`+strconv.Itoa(product.ID)+`,"quantity":4}`)

	items := decode[[]model.CartItem](t, customer.do(http.MethodGet, "/api/user/cart", ""))
	require.Len(t, items, 2)
	require.Equal(t, "Taleggio", items[0].Name)

	require.Equal(t, http.StatusOK, customer.do(http.MethodDelete, "/api/user/cart/"+strconv.Itoa(product.ID), "").Code)
	require.Empty(t, decode[[]model.CartItem](t, customer.do(http.MethodGet, "/api/user/cart", "")))
}

func TestForgedEmployeeTokenRejected(t *testing.T) {
	svc, err := service.NewService(config.Config{}, store.NewMemStore(), zap.NewNop())
	require.NoError(t, err)
	secret, err := token.RandomSecret()
	require.NoError(t, err)
	router := NewRouter(auth.NewAuth(svc, token.NewIssuer(secret, time.Hour)), svc, zap.NewNop())

	forged, err := token.NewIssuer("dairyshop-secret", time.Hour).
		Build(model.User{Email: "mallory@example.com", Role: model.RoleEmployee})
	require.NoError(t, err)

	intruder := &session{t: t, router: router, cookie: &http.Cookie{Name: auth.CookieUserToken, Value: forged}}
	w := intruder.do(http.MethodPost, "/api/products", `{"name":"X","producer":"Y","year":2024}`)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	products, err := svc.Search(context.Background(), "", 0)
	require.NoError(t, err)
	require.Empty(t, products)
}

func TestEmptyOrderListIsNotCompressed(t *testing.T) {
	router := newTestRouter(t)

	employee := &session{t: t, router: router}
	require.Equal(t, http.StatusOK, employee.do(http.MethodPost, "/api/user/login",
		`{"email":"boss@example.com","password":"secret"}`).Code)

	r := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	r.Header.Set("Accept-Encoding", "gzip")
	r.AddCookie(employee.cookie)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Empty(t, w.Header().Get("Content-Encoding"))
	require.Zero(t, w.Body.Len())
}

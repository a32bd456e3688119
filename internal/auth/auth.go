package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"

	"github.com/iurnickita/dairyshop/internal/model"
	"github.com/iurnickita/dairyshop/internal/service"
	"github.com/iurnickita/dairyshop/internal/token"
)

type Auth interface {
	Register(w http.ResponseWriter, r *http.Request)
	RegisterEmployee(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
	Guest(w http.ResponseWriter, r *http.Request)
	Middleware(h http.HandlerFunc, roles ...model.Role) http.HandlerFunc
}

const CookieUserToken = "dairyshopUserToken"

type ctxKey struct{}

// UserFromContext возвращает пользователя, проверенного Middleware.
func UserFromContext(ctx context.Context) (model.User, bool) {
	user, ok := ctx.Value(ctxKey{}).(model.User)
	return user, ok
}

type auth struct {
	service service.Service
	issuer  *token.Issuer
}

func NewAuth(service service.Service, issuer *token.Issuer) Auth {
	return &auth{service: service, issuer: issuer}
}

type RegisterJSONRequest struct {
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginJSONRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *auth) Register(w http.ResponseWriter, r *http.Request) {
	a.register(w, r, model.RoleCustomer, true)
}

// RegisterEmployee вызывается сотрудником, его собственная сессия не меняется.
func (a *auth) RegisterEmployee(w http.ResponseWriter, r *http.Request) {
	a.register(w, r, model.RoleEmployee, false)
}

func (a *auth) register(w http.ResponseWriter, r *http.Request, role model.Role, login bool) {
	var req RegisterJSONRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user := model.User{Email: req.Email, Name: req.Name, Surname: req.Surname, Role: role}
	user, err := a.service.Register(r.Context(), user, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInsufficientData):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, service.ErrAlreadyExists):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	if login {
		if err := a.setSession(w, user); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	writeUser(w, user)
}

func (a *auth) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginJSONRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := a.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInsufficientData):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, service.ErrInvalidCredentials):
			http.Error(w, err.Error(), http.StatusUnauthorized)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	if err := a.setSession(w, user); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeUser(w, user)
}

// Guest открывает сессию без учетной записи: доступен только просмотр каталога.
func (a *auth) Guest(w http.ResponseWriter, r *http.Request) {
	user := model.User{Role: model.RoleGuest}
	if err := a.setSession(w, user); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeUser(w, user)
}

func (a *auth) setSession(w http.ResponseWriter, user model.User) error {
	tokenString, err := a.issuer.Build(user)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieUserToken,
		Value:    tokenString,
		Path:     "/",
		HttpOnly: true,
	})
	return nil
}

func writeUser(w http.ResponseWriter, user model.User) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

// Middleware пропускает запрос, если роль пользователя входит в roles.
func (a *auth) Middleware(h http.HandlerFunc, roles ...model.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// получение пользователя из токена
		user, err := a.getUser(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		if !slices.Contains(roles, user.Role) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		// передаём управление хендлеру
		h.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, user)))
	}
}

func (a *auth) getUser(r *http.Request) (model.User, error) {
	tokenCookie, err := r.Cookie(CookieUserToken)
	if err != nil {
		return model.User{}, err
	}
	return a.issuer.Parse(tokenCookie.Value)
}

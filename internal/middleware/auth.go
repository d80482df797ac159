package middleware

import (
	"context"
	"net/http"

	"github.com/SergeyBogomolovv/shop-order-service/pkg/utils"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// CurrentUser - результат разбора запроса вышестоящим шлюзом аутентификации.
// Сервис доверяет этим заголовкам и сам токены не проверяет.
type CurrentUser struct {
	ID   string
	Role string
}

func (u CurrentUser) IsAdmin() bool {
	return u.Role == RoleAdmin
}

type userKey struct{}

// Auth кладет пользователя из заголовков шлюза в контекст.
// Отсутствие заголовков - не ошибка: есть анонимные маршруты.
func Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-User-Id")
		if id == "" {
			next.ServeHTTP(w, r)
			return
		}

		user := CurrentUser{ID: id, Role: r.Header.Get("X-User-Role")}
		if user.Role == "" {
			user.Role = RoleUser
		}

		ctx := context.WithValue(r.Context(), userKey{}, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func UserFromContext(ctx context.Context) (CurrentUser, bool) {
	user, ok := ctx.Value(userKey{}).(CurrentUser)
	return user, ok
}

func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromContext(r.Context()); !ok {
			utils.WriteError(w, "authentication required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok || !user.IsAdmin() {
			utils.WriteError(w, "admin access required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

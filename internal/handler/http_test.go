package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/SergeyBogomolovv/shop-order-service/internal/entities"
	"github.com/SergeyBogomolovv/shop-order-service/internal/handler"
	mw "github.com/SergeyBogomolovv/shop-order-service/internal/middleware"
	"github.com/SergeyBogomolovv/shop-order-service/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const orderID = "a3bb189e-8bf9-3888-9912-ace4e6543002"

type fakeService struct {
	createOrder      func(ctx context.Context, ownerID string, products []service.OrderedProduct, shipping entities.Shipping) (entities.Order, error)
	createGuestOrder func(ctx context.Context, contact entities.GuestContact, products []service.OrderedProduct, shipping entities.Shipping) (entities.Order, error)
	getOrCreateCart  func(ctx context.Context, ownerID string) (entities.Order, error)
	addItem          func(ctx context.Context, ownerID string, productID int64, quantity int) (entities.LineItem, error)
	removeItem       func(ctx context.Context, ownerID string, productID int64) error
	setQuantity      func(ctx context.Context, ownerID string, productID int64, quantity int) error
	checkout         func(ctx context.Context, ownerID string, shipping entities.Shipping) (entities.Order, error)
	updateStatus     func(ctx context.Context, orderID string, to entities.Status) (entities.Order, error)
	cancelOrder      func(ctx context.Context, orderID string) (entities.Order, error)
	listOrders       func(ctx context.Context, limit, offset uint64, status entities.Status, ownerID string) ([]entities.Order, error)
	getOrderByID     func(ctx context.Context, orderID string) (entities.Order, error)
	removeOrder      func(ctx context.Context, orderID string) error
}

func (f *fakeService) CreateOrder(ctx context.Context, ownerID string, products []service.OrderedProduct, shipping entities.Shipping) (entities.Order, error) {
	return f.createOrder(ctx, ownerID, products, shipping)
}

func (f *fakeService) CreateGuestOrder(ctx context.Context, contact entities.GuestContact, products []service.OrderedProduct, shipping entities.Shipping) (entities.Order, error) {
	return f.createGuestOrder(ctx, contact, products, shipping)
}

func (f *fakeService) GetOrCreateCart(ctx context.Context, ownerID string) (entities.Order, error) {
	return f.getOrCreateCart(ctx, ownerID)
}

func (f *fakeService) AddItem(ctx context.Context, ownerID string, productID int64, quantity int) (entities.LineItem, error) {
	return f.addItem(ctx, ownerID, productID, quantity)
}

func (f *fakeService) RemoveItem(ctx context.Context, ownerID string, productID int64) error {
	return f.removeItem(ctx, ownerID, productID)
}

func (f *fakeService) SetQuantity(ctx context.Context, ownerID string, productID int64, quantity int) error {
	return f.setQuantity(ctx, ownerID, productID, quantity)
}

func (f *fakeService) Checkout(ctx context.Context, ownerID string, shipping entities.Shipping) (entities.Order, error) {
	return f.checkout(ctx, ownerID, shipping)
}

func (f *fakeService) UpdateStatus(ctx context.Context, orderID string, to entities.Status) (entities.Order, error) {
	return f.updateStatus(ctx, orderID, to)
}

func (f *fakeService) CancelOrder(ctx context.Context, orderID string) (entities.Order, error) {
	return f.cancelOrder(ctx, orderID)
}

func (f *fakeService) ListOrders(ctx context.Context, limit, offset uint64, status entities.Status, ownerID string) ([]entities.Order, error) {
	return f.listOrders(ctx, limit, offset, status, ownerID)
}

func (f *fakeService) GetOrderByID(ctx context.Context, orderID string) (entities.Order, error) {
	return f.getOrderByID(ctx, orderID)
}

func (f *fakeService) RemoveOrder(ctx context.Context, orderID string) error {
	return f.removeOrder(ctx, orderID)
}

// newRouter собирает маршруты поверх того же auth middleware, что и приложение.
func newRouter(svc *fakeService) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	r.Use(mw.Auth)
	handler.NewHTTPHandler(logger, svc).Init(r)
	return r
}

func doRequest(t *testing.T, router http.Handler, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func asUser(id string) map[string]string {
	return map[string]string{"X-User-Id": id}
}

func asAdmin(id string) map[string]string {
	return map[string]string{"X-User-Id": id, "X-User-Role": "admin"}
}

func TestHTTPHandler_Auth(t *testing.T) {
	svc := &fakeService{
		getOrCreateCart: func(context.Context, string) (entities.Order, error) {
			return entities.Order{ID: orderID, Status: entities.StatusCart}, nil
		},
		listOrders: func(context.Context, uint64, uint64, entities.Status, string) ([]entities.Order, error) {
			return nil, nil
		},
	}
	router := newRouter(svc)

	t.Run("anonymous request to protected route", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/orders/cart/mine", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("authenticated request passes", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/orders/cart/mine", "", asUser("user-1"))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("admin route rejects plain user", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/orders/all", "", asUser("user-1"))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin route accepts admin", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/orders/all", "", asAdmin("admin-1"))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestHTTPHandler_CreateGuestOrder(t *testing.T) {
	body := `{
		"products": [{"product_id": 7, "quantity": 2}],
		"shipping": {"name": "Иван", "phone": "+79990000000", "address": "ул. Ленина 1", "city": "Москва"},
		"customer_email": "guest@example.com",
		"customer_name": "Иван"
	}`

	t.Run("creates without authentication", func(t *testing.T) {
		var gotContact entities.GuestContact
		svc := &fakeService{
			createGuestOrder: func(_ context.Context, contact entities.GuestContact, products []service.OrderedProduct, _ entities.Shipping) (entities.Order, error) {
				gotContact = contact
				require.Len(t, products, 1)
				return entities.Order{ID: orderID, Status: entities.StatusProcessing, Guest: &contact}, nil
			},
		}
		rec := doRequest(t, newRouter(svc), http.MethodPost, "/orders/guest", body, nil)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "guest@example.com", gotContact.Email)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "processing", resp["status"])
		assert.Equal(t, "guest@example.com", resp["customer_email"])
	})

	t.Run("email is required", func(t *testing.T) {
		noEmail := `{
			"products": [{"product_id": 7, "quantity": 2}],
			"shipping": {"name": "Иван", "phone": "+79990000000", "address": "ул. Ленина 1", "city": "Москва"}
		}`
		rec := doRequest(t, newRouter(&fakeService{}), http.MethodPost, "/orders/guest", noEmail, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("insufficient stock maps to conflict", func(t *testing.T) {
		svc := &fakeService{
			createGuestOrder: func(context.Context, entities.GuestContact, []service.OrderedProduct, entities.Shipping) (entities.Order, error) {
				return entities.Order{}, entities.ErrInsufficientStock
			},
		}
		rec := doRequest(t, newRouter(svc), http.MethodPost, "/orders/guest", body, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestHTTPHandler_CreateOrder(t *testing.T) {
	body := `{
		"products": [{"product_id": 7, "quantity": 2}],
		"shipping": {"name": "Иван", "phone": "+79990000000", "address": "ул. Ленина 1", "city": "Москва"}
	}`

	t.Run("passes owner from headers", func(t *testing.T) {
		var gotOwner string
		svc := &fakeService{
			createOrder: func(_ context.Context, ownerID string, _ []service.OrderedProduct, _ entities.Shipping) (entities.Order, error) {
				gotOwner = ownerID
				return entities.Order{ID: orderID, Status: entities.StatusProcessing, OwnerID: ownerID}, nil
			},
		}
		rec := doRequest(t, newRouter(svc), http.MethodPost, "/orders", body, asUser("user-1"))

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "user-1", gotOwner)
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		rec := doRequest(t, newRouter(&fakeService{}), http.MethodPost, "/orders", "{not json", asUser("user-1"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects empty products", func(t *testing.T) {
		empty := `{"products": [], "shipping": {"name": "Иван", "phone": "+79990000000", "address": "ул. Ленина 1", "city": "Москва"}}`
		rec := doRequest(t, newRouter(&fakeService{}), http.MethodPost, "/orders", empty, asUser("user-1"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHTTPHandler_Cart(t *testing.T) {
	t.Run("add item", func(t *testing.T) {
		svc := &fakeService{
			addItem: func(_ context.Context, ownerID string, productID int64, quantity int) (entities.LineItem, error) {
				assert.Equal(t, "user-1", ownerID)
				return entities.LineItem{ProductID: productID, Title: "Widget", Quantity: quantity, UnitPrice: 1500}, nil
			},
		}
		rec := doRequest(t, newRouter(svc), http.MethodPost, "/orders/cart/", `{"product_id": 7, "quantity": 2}`, asUser("user-1"))

		assert.Equal(t, http.StatusCreated, rec.Code)
		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, float64(1500), resp["unit_price"])
	})

	t.Run("add unknown product", func(t *testing.T) {
		svc := &fakeService{
			addItem: func(context.Context, string, int64, int) (entities.LineItem, error) {
				return entities.LineItem{}, entities.ErrProductNotFound
			},
		}
		rec := doRequest(t, newRouter(svc), http.MethodPost, "/orders/cart/", `{"product_id": 99, "quantity": 1}`, asUser("user-1"))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("remove item", func(t *testing.T) {
		var removed int64
		svc := &fakeService{
			removeItem: func(_ context.Context, _ string, productID int64) error {
				removed = productID
				return nil
			},
		}
		rec := doRequest(t, newRouter(svc), http.MethodDelete, "/orders/cart/remove/7", "", asUser("user-1"))

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, int64(7), removed)
	})

	t.Run("remove with bad product id", func(t *testing.T) {
		rec := doRequest(t, newRouter(&fakeService{}), http.MethodDelete, "/orders/cart/remove/abc", "", asUser("user-1"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("set quantity on checked out cart", func(t *testing.T) {
		svc := &fakeService{
			setQuantity: func(context.Context, string, int64, int) error {
				return entities.ErrNotCart
			},
		}
		rec := doRequest(t, newRouter(svc), http.MethodPatch, "/orders/cart/quantity", `{"product_id": 7, "quantity": 3}`, asUser("user-1"))
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestHTTPHandler_Checkout(t *testing.T) {
	body := `{"name": "Иван", "phone": "+79990000000", "address": "ул. Ленина 1", "city": "Москва"}`

	t.Run("successful checkout", func(t *testing.T) {
		svc := &fakeService{
			checkout: func(_ context.Context, ownerID string, shipping entities.Shipping) (entities.Order, error) {
				assert.Equal(t, "user-1", ownerID)
				return entities.Order{ID: orderID, Status: entities.StatusProcessing, OwnerID: ownerID, Shipping: &shipping}, nil
			},
		}
		rec := doRequest(t, newRouter(svc), http.MethodPost, "/orders/cart/checkout", body, asUser("user-1"))

		assert.Equal(t, http.StatusCreated, rec.Code)
		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "processing", resp["status"])
		assert.NotNil(t, resp["shipping"])
	})

	t.Run("empty cart", func(t *testing.T) {
		svc := &fakeService{
			checkout: func(context.Context, string, entities.Shipping) (entities.Order, error) {
				return entities.Order{}, entities.ErrEmptyCart
			},
		}
		rec := doRequest(t, newRouter(svc), http.MethodPost, "/orders/cart/checkout", body, asUser("user-1"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("shipping is validated", func(t *testing.T) {
		rec := doRequest(t, newRouter(&fakeService{}), http.MethodPost, "/orders/cart/checkout", `{"name": "Иван"}`, asUser("user-1"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHTTPHandler_GetOrderByID(t *testing.T) {
	order := entities.Order{ID: orderID, Status: entities.StatusProcessing, OwnerID: "user-1"}
	svc := &fakeService{
		getOrderByID: func(_ context.Context, id string) (entities.Order, error) {
			if id != orderID {
				return entities.Order{}, entities.ErrOrderNotFound
			}
			return order, nil
		},
	}
	router := newRouter(svc)

	t.Run("owner reads own order", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/orders/"+orderID, "", asUser("user-1"))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("foreign order is forbidden", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/orders/"+orderID, "", asUser("user-2"))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin reads any order", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/orders/"+orderID, "", asAdmin("admin-1"))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unknown order", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/orders/c56a4180-65aa-42ec-a945-5fd21dec0538", "", asUser("user-1"))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("non-uuid id", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/orders/not-a-uuid", "", asUser("user-1"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHTTPHandler_Admin(t *testing.T) {
	t.Run("update status", func(t *testing.T) {
		svc := &fakeService{
			updateStatus: func(_ context.Context, id string, to entities.Status) (entities.Order, error) {
				assert.Equal(t, entities.StatusShipped, to)
				return entities.Order{ID: id, Status: to}, nil
			},
		}
		rec := doRequest(t, newRouter(svc), http.MethodPut, "/orders/"+orderID, `{"status": "shipped"}`, asAdmin("admin-1"))

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "shipped", resp["status"])
	})

	t.Run("status outside enum", func(t *testing.T) {
		rec := doRequest(t, newRouter(&fakeService{}), http.MethodPut, "/orders/"+orderID, `{"status": "lost"}`, asAdmin("admin-1"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("illegal transition maps to conflict", func(t *testing.T) {
		svc := &fakeService{
			updateStatus: func(context.Context, string, entities.Status) (entities.Order, error) {
				return entities.Order{}, entities.ErrInvalidTransition
			},
		}
		rec := doRequest(t, newRouter(svc), http.MethodPut, "/orders/"+orderID, `{"status": "delivered"}`, asAdmin("admin-1"))
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("cancel order", func(t *testing.T) {
		svc := &fakeService{
			cancelOrder: func(_ context.Context, id string) (entities.Order, error) {
				return entities.Order{ID: id, Status: entities.StatusCancelled}, nil
			},
		}
		rec := doRequest(t, newRouter(svc), http.MethodPut, "/orders/cancel/"+orderID, "", asAdmin("admin-1"))

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "cancelled", resp["status"])
	})

	t.Run("delete order", func(t *testing.T) {
		var deleted string
		svc := &fakeService{
			removeOrder: func(_ context.Context, id string) error {
				deleted = id
				return nil
			},
		}
		rec := doRequest(t, newRouter(svc), http.MethodDelete, "/orders/"+orderID, "", asAdmin("admin-1"))

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, orderID, deleted)
	})

	t.Run("non-uuid id is rejected before the service", func(t *testing.T) {
		// nil func fields: any service call would panic
		router := newRouter(&fakeService{})

		rec := doRequest(t, router, http.MethodPut, "/orders/not-a-uuid", `{"status": "shipped"}`, asAdmin("admin-1"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = doRequest(t, router, http.MethodPut, "/orders/cancel/not-a-uuid", "", asAdmin("admin-1"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = doRequest(t, router, http.MethodDelete, "/orders/not-a-uuid", "", asAdmin("admin-1"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("delete unknown order", func(t *testing.T) {
		svc := &fakeService{
			removeOrder: func(context.Context, string) error { return entities.ErrOrderNotFound },
		}
		rec := doRequest(t, newRouter(svc), http.MethodDelete, "/orders/"+orderID, "", asAdmin("admin-1"))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHTTPHandler_ListOrders(t *testing.T) {
	t.Run("my orders are scoped to the user", func(t *testing.T) {
		var gotOwner string
		svc := &fakeService{
			listOrders: func(_ context.Context, _, _ uint64, _ entities.Status, ownerID string) ([]entities.Order, error) {
				gotOwner = ownerID
				return []entities.Order{{ID: orderID, OwnerID: ownerID, Status: entities.StatusProcessing}}, nil
			},
		}
		rec := doRequest(t, newRouter(svc), http.MethodGet, "/orders/?limit=10&status=processing", "", asUser("user-1"))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "user-1", gotOwner)
	})

	t.Run("admin listing is unscoped", func(t *testing.T) {
		var gotOwner string
		var gotStatus entities.Status
		svc := &fakeService{
			listOrders: func(_ context.Context, _, _ uint64, status entities.Status, ownerID string) ([]entities.Order, error) {
				gotOwner, gotStatus = ownerID, status
				return nil, nil
			},
		}
		rec := doRequest(t, newRouter(svc), http.MethodGet, "/orders/all?status=shipped", "", asAdmin("admin-1"))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, gotOwner)
		assert.Equal(t, entities.StatusShipped, gotStatus)
	})

	t.Run("bad status filter", func(t *testing.T) {
		rec := doRequest(t, newRouter(&fakeService{}), http.MethodGet, "/orders/?status=bogus", "", asUser("user-1"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

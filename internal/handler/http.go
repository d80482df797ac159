package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/SergeyBogomolovv/shop-order-service/internal/entities"
	mw "github.com/SergeyBogomolovv/shop-order-service/internal/middleware"
	"github.com/SergeyBogomolovv/shop-order-service/internal/service"
	"github.com/SergeyBogomolovv/shop-order-service/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type OrderService interface {
	CreateOrder(ctx context.Context, ownerID string, products []service.OrderedProduct, shipping entities.Shipping) (entities.Order, error)
	CreateGuestOrder(ctx context.Context, contact entities.GuestContact, products []service.OrderedProduct, shipping entities.Shipping) (entities.Order, error)
	GetOrCreateCart(ctx context.Context, ownerID string) (entities.Order, error)
	AddItem(ctx context.Context, ownerID string, productID int64, quantity int) (entities.LineItem, error)
	RemoveItem(ctx context.Context, ownerID string, productID int64) error
	SetQuantity(ctx context.Context, ownerID string, productID int64, quantity int) error
	Checkout(ctx context.Context, ownerID string, shipping entities.Shipping) (entities.Order, error)
	UpdateStatus(ctx context.Context, orderID string, to entities.Status) (entities.Order, error)
	CancelOrder(ctx context.Context, orderID string) (entities.Order, error)
	ListOrders(ctx context.Context, limit, offset uint64, status entities.Status, ownerID string) ([]entities.Order, error)
	GetOrderByID(ctx context.Context, orderID string) (entities.Order, error)
	RemoveOrder(ctx context.Context, orderID string) error
}

type HTTPHandler struct {
	logger   *slog.Logger
	validate *validator.Validate
	svc      OrderService
}

func NewHTTPHandler(logger *slog.Logger, svc OrderService) *HTTPHandler {
	return &HTTPHandler{
		logger:   logger.With(slog.String("handler", "http")),
		validate: validator.New(),
		svc:      svc,
	}
}

func (h *HTTPHandler) Init(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Post("/guest", h.CreateGuestOrder)

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAuth)
			r.Post("/", h.CreateOrder)
			r.Get("/", h.ListMyOrders)
			r.Route("/cart", func(r chi.Router) {
				r.Get("/mine", h.GetCart)
				r.Post("/", h.AddToCart)
				r.Delete("/remove/{product_id}", h.RemoveFromCart)
				r.Patch("/quantity", h.UpdateCartQuantity)
				r.Post("/checkout", h.Checkout)
			})
			r.Get("/{order_id}", h.GetOrderByID)
		})

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAuth, mw.RequireAdmin)
			r.Get("/all", h.ListAllOrders)
			r.Put("/{order_id}", h.UpdateOrderStatus)
			r.Put("/cancel/{order_id}", h.CancelOrder)
			r.Delete("/{order_id}", h.DeleteOrder)
		})
	})
}

// CreateOrder оформляет заказ авторизованного пользователя без корзины.
// @Summary      Создать заказ
// @Tags         orders
// @Param        request body CreateOrderRequest true "Состав заказа и доставка"
// @Success      201  {object}  Order
// @Failure      400  {object}  utils.ValidationErrorResponse
// @Failure      409  {object}  utils.ErrorResponse "Недостаточно остатка"
// @Router       /orders [post]
func (h *HTTPHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := mw.UserFromContext(ctx)

	var req CreateOrderRequest
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	order, err := h.svc.CreateOrder(ctx, user.ID, ProductsJSONToInput(req.Products), ShippingJSONToEntity(req.Shipping))
	if err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}

	utils.WriteJSON(w, OrderEntityToJSON(order), http.StatusCreated)
}

// CreateGuestOrder оформляет гостевой заказ без аутентификации.
// @Summary      Создать гостевой заказ
// @Tags         orders
// @Param        request body CreateGuestOrderRequest true "Состав заказа, контакты и доставка"
// @Success      201  {object}  Order
// @Failure      400  {object}  utils.ValidationErrorResponse
// @Failure      409  {object}  utils.ErrorResponse "Недостаточно остатка"
// @Router       /orders/guest [post]
func (h *HTTPHandler) CreateGuestOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateGuestOrderRequest
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	contact := entities.GuestContact{
		Email: req.CustomerEmail,
		Name:  req.CustomerName,
		Phone: req.CustomerPhone,
	}

	order, err := h.svc.CreateGuestOrder(ctx, contact, ProductsJSONToInput(req.Products), ShippingJSONToEntity(req.Shipping))
	if err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}

	guestOrdersTotal.Inc()
	utils.WriteJSON(w, OrderEntityToJSON(order), http.StatusCreated)
}

// ListAllOrders возвращает заказы всех пользователей.
// @Summary      Все заказы (админ)
// @Tags         orders
// @Param        limit   query  int     false  "Размер страницы"
// @Param        offset  query  int     false  "Смещение"
// @Param        status  query  string  false  "Фильтр по статусу"
// @Success      200  {array}  Order
// @Failure      403  {object}  utils.ErrorResponse
// @Router       /orders/all [get]
func (h *HTTPHandler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	h.listOrders(w, r, "")
}

// ListMyOrders возвращает заказы текущего пользователя.
// @Summary      Мои заказы
// @Tags         orders
// @Param        limit   query  int     false  "Размер страницы"
// @Param        offset  query  int     false  "Смещение"
// @Param        status  query  string  false  "Фильтр по статусу"
// @Success      200  {array}  Order
// @Router       /orders [get]
func (h *HTTPHandler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	user, _ := mw.UserFromContext(r.Context())
	h.listOrders(w, r, user.ID)
}

func (h *HTTPHandler) listOrders(w http.ResponseWriter, r *http.Request, ownerID string) {
	ctx := r.Context()

	limit, _ := strconv.ParseUint(r.URL.Query().Get("limit"), 10, 64)
	offset, _ := strconv.ParseUint(r.URL.Query().Get("offset"), 10, 64)

	var status entities.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, err := entities.ParseStatus(raw)
		if err != nil {
			utils.WriteError(w, err.Error(), http.StatusBadRequest)
			return
		}
		status = parsed
	}

	orders, err := h.svc.ListOrders(ctx, limit, offset, status, ownerID)
	if err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}

	utils.WriteJSON(w, OrdersEntityToJSON(orders), http.StatusOK)
}

// GetOrderByID возвращает заказ с позициями и доставкой.
// @Summary      Получить заказ по ID
// @Tags         orders
// @Param        order_id   path      string  true  "Идентификатор заказа"
// @Success      200  {object}  Order
// @Failure      403  {object}  utils.ErrorResponse "Чужой заказ"
// @Failure      404  {object}  utils.ErrorResponse "Заказ не найден"
// @Router       /orders/{order_id} [get]
func (h *HTTPHandler) GetOrderByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID := chi.URLParam(r, "order_id")

	if err := h.validate.Var(orderID, "required,uuid"); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	order, err := h.svc.GetOrderByID(ctx, orderID)
	if err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}

	// владелец видит только свои заказы, админ - любые
	user, _ := mw.UserFromContext(ctx)
	if !user.IsAdmin() && order.OwnerID != user.ID {
		utils.WriteError(w, "forbidden", http.StatusForbidden)
		return
	}

	utils.WriteJSON(w, OrderEntityToJSON(order), http.StatusOK)
}

// UpdateOrderStatus применяет переход статуса заказа.
// @Summary      Обновить статус заказа (админ)
// @Tags         orders
// @Param        order_id   path  string  true  "Идентификатор заказа"
// @Param        request body UpdateStatusRequest true "Новый статус"
// @Success      200  {object}  Order
// @Failure      404  {object}  utils.ErrorResponse
// @Failure      409  {object}  utils.ErrorResponse "Недопустимый переход"
// @Router       /orders/{order_id} [put]
func (h *HTTPHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID := chi.URLParam(r, "order_id")

	if err := h.validate.Var(orderID, "required,uuid"); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	var req UpdateStatusRequest
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	order, err := h.svc.UpdateStatus(ctx, orderID, entities.Status(req.Status))
	if err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}

	utils.WriteJSON(w, OrderEntityToJSON(order), http.StatusOK)
}

// CancelOrder отменяет заказ и возвращает остатки.
// @Summary      Отменить заказ (админ)
// @Tags         orders
// @Param        order_id   path  string  true  "Идентификатор заказа"
// @Success      200  {object}  Order
// @Failure      404  {object}  utils.ErrorResponse
// @Failure      409  {object}  utils.ErrorResponse "Недопустимый переход"
// @Router       /orders/cancel/{order_id} [put]
func (h *HTTPHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID := chi.URLParam(r, "order_id")

	if err := h.validate.Var(orderID, "required,uuid"); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	order, err := h.svc.CancelOrder(ctx, orderID)
	if err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}

	utils.WriteJSON(w, OrderEntityToJSON(order), http.StatusOK)
}

// DeleteOrder жестко удаляет заказ. Остатки не возвращаются.
// @Summary      Удалить заказ (админ)
// @Tags         orders
// @Param        order_id   path  string  true  "Идентификатор заказа"
// @Success      204
// @Failure      404  {object}  utils.ErrorResponse
// @Router       /orders/{order_id} [delete]
func (h *HTTPHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID := chi.URLParam(r, "order_id")

	if err := h.validate.Var(orderID, "required,uuid"); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	if err := h.svc.RemoveOrder(ctx, orderID); err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entities.ErrOrderNotFound),
		errors.Is(err, entities.ErrProductNotFound),
		errors.Is(err, entities.ErrCartItemNotFound):
		utils.WriteError(w, err.Error(), http.StatusNotFound)

	case errors.Is(err, entities.ErrEmptyCart),
		errors.Is(err, entities.ErrInvalidQuantity):
		utils.WriteError(w, err.Error(), http.StatusBadRequest)

	case errors.Is(err, entities.ErrInsufficientStock):
		stockConflictsTotal.Inc()
		utils.WriteError(w, err.Error(), http.StatusConflict)

	case errors.Is(err, entities.ErrInvalidTransition),
		errors.Is(err, entities.ErrNotCart),
		errors.Is(err, entities.ErrCartExists):
		utils.WriteError(w, err.Error(), http.StatusConflict)

	default:
		h.logger.ErrorContext(ctx, "request failed", slog.Any("error", err))
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
	}
}

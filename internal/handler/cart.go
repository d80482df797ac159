package handler

import (
	"net/http"
	"strconv"

	mw "github.com/SergeyBogomolovv/shop-order-service/internal/middleware"
	"github.com/SergeyBogomolovv/shop-order-service/pkg/utils"

	"github.com/go-chi/chi/v5"
)

// GetCart возвращает корзину текущего пользователя, создавая пустую при отсутствии.
// @Summary      Моя корзина
// @Tags         cart
// @Success      200  {object}  Order
// @Router       /orders/cart/mine [get]
func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := mw.UserFromContext(ctx)

	cart, err := h.svc.GetOrCreateCart(ctx, user.ID)
	if err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}

	utils.WriteJSON(w, OrderEntityToJSON(cart), http.StatusOK)
}

// AddToCart добавляет товар в корзину.
// @Summary      Добавить товар в корзину
// @Tags         cart
// @Param        request body AddToCartRequest true "Товар и количество"
// @Success      201  {object}  LineItem
// @Failure      404  {object}  utils.ErrorResponse "Товар не найден"
// @Failure      409  {object}  utils.ErrorResponse "Корзина уже оформлена"
// @Router       /orders/cart [post]
func (h *HTTPHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := mw.UserFromContext(ctx)

	var req AddToCartRequest
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	item, err := h.svc.AddItem(ctx, user.ID, req.ProductID, req.Quantity)
	if err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}

	utils.WriteJSON(w, ItemEntityToJSON(item), http.StatusCreated)
}

// RemoveFromCart удаляет позицию из корзины.
// @Summary      Убрать товар из корзины
// @Tags         cart
// @Param        product_id  path  int  true  "Идентификатор товара"
// @Success      204
// @Failure      404  {object}  utils.ErrorResponse "Позиции нет в корзине"
// @Failure      409  {object}  utils.ErrorResponse "Корзина уже оформлена"
// @Router       /orders/cart/remove/{product_id} [delete]
func (h *HTTPHandler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := mw.UserFromContext(ctx)

	productID, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil || productID <= 0 {
		utils.WriteError(w, "invalid product id", http.StatusBadRequest)
		return
	}

	if err := h.svc.RemoveItem(ctx, user.ID, productID); err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdateCartQuantity выставляет количество позиции в корзине.
// @Summary      Изменить количество товара в корзине
// @Tags         cart
// @Param        request body UpdateCartQuantityRequest true "Товар и новое количество"
// @Success      204
// @Failure      404  {object}  utils.ErrorResponse "Позиции нет в корзине"
// @Failure      409  {object}  utils.ErrorResponse "Корзина уже оформлена"
// @Router       /orders/cart/quantity [patch]
func (h *HTTPHandler) UpdateCartQuantity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := mw.UserFromContext(ctx)

	var req UpdateCartQuantityRequest
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	if err := h.svc.SetQuantity(ctx, user.ID, req.ProductID, req.Quantity); err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Checkout оформляет корзину: списывает остатки и записывает доставку.
// @Summary      Оформить корзину
// @Tags         cart
// @Param        request body Shipping true "Данные доставки"
// @Success      201  {object}  Order
// @Failure      400  {object}  utils.ErrorResponse "Пустая корзина"
// @Failure      404  {object}  utils.ErrorResponse "Корзины нет"
// @Failure      409  {object}  utils.ErrorResponse "Недостаточно остатка"
// @Router       /orders/cart/checkout [post]
func (h *HTTPHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := mw.UserFromContext(ctx)

	var req Shipping
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	order, err := h.svc.Checkout(ctx, user.ID, ShippingJSONToEntity(req))
	if err != nil {
		checkoutsTotal.WithLabelValues("error").Inc()
		h.writeServiceError(ctx, w, err)
		return
	}

	checkoutsTotal.WithLabelValues("ok").Inc()
	utils.WriteJSON(w, OrderEntityToJSON(order), http.StatusCreated)
}

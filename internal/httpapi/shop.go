package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/edgard/baristabot/internal/database"
)

type productQuery struct {
	Skip       int    `form:"skip"        binding:"min=0"`
	Limit      int    `form:"limit"       binding:"omitempty,min=1,max=100"`
	CategoryID *int64 `form:"category_id"`
	IsPopular  *bool  `form:"is_popular"`
	Search     string `form:"search"`
}

func (h *handlers) listProducts(c *gin.Context) {
	var q productQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, http.StatusBadRequest, codeBadRequest, err)
		return
	}

	page, err := h.deps.Store.ListProducts(c.Request.Context(), database.ProductFilter{
		Skip:       q.Skip,
		Limit:      q.Limit,
		CategoryID: q.CategoryID,
		IsPopular:  q.IsPopular,
		Search:     q.Search,
	})
	if err != nil {
		respondStoreError(c, "products", err)
		return
	}
	respondOK(c, page)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, codeBadRequest, errors.New("id must be a positive integer"))
		return 0, false
	}
	return id, true
}

func (h *handlers) getProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := h.deps.Store.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondStoreError(c, "product", err)
		return
	}
	respondOK(c, p)
}

func (h *handlers) listCategories(c *gin.Context) {
	categories, err := h.deps.Store.ListCategories(c.Request.Context())
	if err != nil {
		respondStoreError(c, "categories", err)
		return
	}
	respondOK(c, categories)
}

type cartItemRequest struct {
	SessionID    string `json:"session_id"    binding:"required"`
	ProductID    int64  `json:"product_id"    binding:"required,min=1"`
	Quantity     int    `json:"quantity"      binding:"required,min=1"`
	SelectedSize string `json:"selected_size"`
}

type sessionQuery struct {
	SessionID string `form:"session_id" binding:"required"`
}

func (h *handlers) addToCart(c *gin.Context) {
	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, codeBadRequest, err)
		return
	}
	item, err := h.deps.Store.AddToCart(c.Request.Context(), req.SessionID, req.ProductID, req.Quantity, req.SelectedSize)
	if err != nil {
		respondStoreError(c, "product", err)
		return
	}
	respondOK(c, item)
}

func (h *handlers) getCart(c *gin.Context) {
	var q sessionQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, http.StatusBadRequest, codeBadRequest, err)
		return
	}
	cart, err := h.deps.Store.GetCart(c.Request.Context(), q.SessionID)
	if err != nil {
		respondStoreError(c, "cart", err)
		return
	}
	respondOK(c, cart)
}

type quantityQuery struct {
	Quantity int `form:"quantity" json:"quantity" binding:"required"`
}

func (h *handlers) updateCartItem(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var q quantityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		if bodyErr := c.ShouldBindJSON(&q); bodyErr != nil {
			respondError(c, http.StatusBadRequest, codeBadRequest, err)
			return
		}
	}
	if err := h.deps.Store.UpdateCartItemQuantity(c.Request.Context(), id, q.Quantity); err != nil {
		respondStoreError(c, "cart item", err)
		return
	}
	respondOK(c, messageResponse{Message: "Cart item updated successfully"})
}

func (h *handlers) removeCartItem(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.deps.Store.RemoveCartItem(c.Request.Context(), id); err != nil {
		respondStoreError(c, "cart item", err)
		return
	}
	respondOK(c, messageResponse{Message: "Item removed from cart"})
}

func (h *handlers) clearCart(c *gin.Context) {
	var q sessionQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, http.StatusBadRequest, codeBadRequest, err)
		return
	}
	if _, err := h.deps.Store.ClearCart(c.Request.Context(), q.SessionID); err != nil {
		respondStoreError(c, "cart", err)
		return
	}
	respondOK(c, messageResponse{Message: "Cart cleared successfully"})
}

type orderRequest struct {
	SessionID       string          `json:"session_id"      binding:"required"`
	TaxAmount       float64         `json:"tax_amount"      binding:"min=0"`
	DiscountAmount  float64         `json:"discount_amount" binding:"min=0"`
	PaymentMethod   string          `json:"payment_method"`
	ShippingAddress json.RawMessage `json:"shipping_address"`
	Notes           string          `json:"notes"`
}

func (h *handlers) createOrder(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, codeBadRequest, err)
		return
	}

	var address string
	if len(req.ShippingAddress) > 0 && string(req.ShippingAddress) != "null" {
		address = string(req.ShippingAddress)
	}

	order, err := h.deps.Store.Checkout(c.Request.Context(), database.CheckoutRequest{
		SessionID:       req.SessionID,
		TaxAmount:       req.TaxAmount,
		DiscountAmount:  req.DiscountAmount,
		PaymentMethod:   req.PaymentMethod,
		ShippingAddress: address,
		Notes:           req.Notes,
	})
	if err != nil {
		respondStoreError(c, "order", err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

type ordersQuery struct {
	SessionID string `form:"session_id"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

func (h *handlers) listOrders(c *gin.Context) {
	var q ordersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, http.StatusBadRequest, codeBadRequest, err)
		return
	}
	orders, err := h.deps.Store.ListOrders(c.Request.Context(), q.SessionID, q.Limit)
	if err != nil {
		respondStoreError(c, "orders", err)
		return
	}
	respondOK(c, orders)
}

func (h *handlers) getOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	order, err := h.deps.Store.GetOrder(c.Request.Context(), id)
	if err != nil {
		respondStoreError(c, "order", err)
		return
	}
	respondOK(c, order)
}

package cart

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"tourmart/models"
	"tourmart/utils"

	"github.com/julienschmidt/httprouter"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type itemRequest struct {
	ProductID string `json:"productId"`
	Option    string `json:"option"`
	Quantity  int64  `json:"quantity"`
}

// AddItem adds a product to the cart, incrementing quantity when the same
// (product, option) is already there.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Println("AddItem decode error:", err)
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	buyerID := utils.GetUserIDFromRequest(r)
	if buyerID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if req.Option == "" {
		req.Option = models.OptionStandard
	}

	if err := h.svc.AddItem(ctx, buyerID, req.ProductID, req.Option, req.Quantity); err != nil {
		h.respondCartError(w, buyerID, req.ProductID, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, map[string]string{"status": "added"})
}

// UpdateQuantity overwrites the row's quantity; zero or less removes it.
func (h *Handler) UpdateQuantity(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Println("UpdateQuantity decode error:", err)
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	buyerID := utils.GetUserIDFromRequest(r)
	if buyerID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if req.Option == "" {
		req.Option = models.OptionStandard
	}

	if err := h.svc.UpdateQuantity(ctx, buyerID, req.ProductID, req.Option, req.Quantity); err != nil {
		h.respondCartError(w, buyerID, req.ProductID, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	buyerID := utils.GetUserIDFromRequest(r)
	if buyerID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	productID := ps.ByName("productid")
	option := ps.ByName("option")

	if err := h.svc.RemoveItem(ctx, buyerID, productID, option); err != nil {
		h.respondCartError(w, buyerID, productID, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// ClearCart empties the cart; an already empty cart is still a success.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	buyerID := utils.GetUserIDFromRequest(r)
	if buyerID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.svc.ClearCart(ctx, buyerID); err != nil {
		h.respondCartError(w, buyerID, "", err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// GetCart returns the display view. Internal read failures degrade to an
// empty cart rather than an error page.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	buyerID := utils.GetUserIDFromRequest(r)
	if buyerID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	view, err := h.svc.ListForDisplay(ctx, buyerID)
	if err != nil {
		log.Printf("GetCart degraded to empty cart: buyerId=%s err=%v", buyerID, err)
		view = &models.CartView{BuyerID: buyerID, Items: []models.CartLineView{}}
	}

	utils.RespondWithJSON(w, http.StatusOK, view)
}

// GetCount returns the cart item count; it never errors.
func (h *Handler) GetCount(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	buyerID := utils.GetUserIDFromRequest(r)
	if buyerID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]int64{"count": h.svc.ItemCount(ctx, buyerID)})
}

func (h *Handler) respondCartError(w http.ResponseWriter, buyerID, productID string, err error) {
	switch {
	case errors.Is(err, ErrInvalidQuantity):
		utils.RespondWithErrorCode(w, http.StatusBadRequest, "INVALID_PARAMETER", "quantity must be positive")
	case errors.Is(err, ErrProductNotOnSale), errors.Is(err, ErrItemNotFound):
		utils.RespondWithErrorCode(w, http.StatusNotFound, "ENTITY_NOT_FOUND", "item or product not found")
	default:
		log.Printf("cart error: buyerId=%s productId=%s err=%v", buyerID, productID, err)
		utils.RespondWithErrorCode(w, http.StatusInternalServerError, "BUSINESS_ERROR", "cart operation failed")
	}
}

package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"tourmart/utils"

	"github.com/julienschmidt/httprouter"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type createOrderRequest struct {
	CartItemIDs    []string `json:"cartItemIds"`
	SpecialRequest string   `json:"specialRequest"`
}

// CreateOrder turns selected cart rows into a PENDING order.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Println("CreateOrder decode error:", err)
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	buyerID := utils.GetUserIDFromRequest(r)
	if buyerID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	receipt, err := h.svc.CreateOrder(ctx, buyerID, req.CartItemIDs, req.SpecialRequest)
	if err != nil {
		var rej *Rejection
		if errors.As(err, &rej) {
			utils.RespondWithJSON(w, http.StatusConflict, utils.M{
				"success":   false,
				"code":      rej.Code,
				"message":   rej.Message(),
				"productId": rej.ProductID,
				"title":     rej.Title,
				"oldPrice":  rej.OldPrice,
				"newPrice":  rej.NewPrice,
			})
			return
		}
		log.Printf("CreateOrder failed: buyerId=%s err=%v", buyerID, err)
		utils.RespondWithErrorCode(w, http.StatusInternalServerError, "BUSINESS_ERROR", "order creation failed")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, receipt)
}

// GetOrderForm previews the selection without committing anything:
// GET /api/orders/form?cartItemIds=a,b,c
func (h *Handler) GetOrderForm(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	buyerID := utils.GetUserIDFromRequest(r)
	if buyerID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	raw := strings.TrimSpace(r.URL.Query().Get("cartItemIds"))
	if raw == "" {
		utils.RespondWithErrorCode(w, http.StatusBadRequest, RejectNoItems, "no items selected")
		return
	}
	itemIDs := strings.Split(raw, ",")

	preview, err := h.svc.PreviewOrder(ctx, buyerID, itemIDs)
	if err != nil {
		log.Printf("GetOrderForm failed: buyerId=%s err=%v", buyerID, err)
		utils.RespondWithErrorCode(w, http.StatusInternalServerError, "BUSINESS_ERROR", "could not build order form")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, preview)
}

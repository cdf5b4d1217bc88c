package orders

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
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

// GetDetail returns the order and its lines for the owning buyer.
func (h *Handler) GetDetail(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	buyerID := utils.GetUserIDFromRequest(r)
	if buyerID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	detail, err := h.svc.Detail(ctx, ps.ByName("orderid"), buyerID)
	if err != nil {
		h.respondOrderError(w, buyerID, ps.ByName("orderid"), err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, detail)
}

// GetByCode resolves an order by its human-readable code.
func (h *Handler) GetByCode(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	buyerID := utils.GetUserIDFromRequest(r)
	if buyerID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	detail, err := h.svc.DetailByCode(ctx, ps.ByName("ordercode"), buyerID)
	if err != nil {
		h.respondOrderError(w, buyerID, ps.ByName("ordercode"), err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, detail)
}

// GetHistory lists the buyer's orders, newest first.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	buyerID := utils.GetUserIDFromRequest(r)
	if buyerID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	history, err := h.svc.History(ctx, buyerID)
	if err != nil {
		h.respondOrderError(w, buyerID, "", err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"orders": history})
}

// GetCount returns the buyer's order count; it never errors.
func (h *Handler) GetCount(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	buyerID := utils.GetUserIDFromRequest(r)
	if buyerID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]int64{"count": h.svc.Count(ctx, buyerID)})
}

type payRequest struct {
	Method string `json:"method"`
	Amount int64  `json:"amount"`
}

// Pay charges the order total; the supplied amount must match it exactly.
func (h *Handler) Pay(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	var req payRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Println("Pay decode error:", err)
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	buyerID := utils.GetUserIDFromRequest(r)
	if buyerID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	orderID := ps.ByName("orderid")
	idemKey := r.Header.Get("Idempotency-Key")

	txn, err := h.svc.Pay(ctx, orderID, buyerID, req.Method, req.Amount, idemKey)
	if err != nil {
		h.respondOrderError(w, buyerID, orderID, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"success":       true,
		"transactionId": txn.ID,
		"reference":     txn.Reference,
	})
}

// Cancel moves a pending order to cancelled.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	buyerID := utils.GetUserIDFromRequest(r)
	if buyerID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	orderID := ps.ByName("orderid")
	order, err := h.svc.Cancel(ctx, orderID, buyerID)
	if err != nil {
		h.respondOrderError(w, buyerID, orderID, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"success":   true,
		"orderCode": order.OrderCode,
		"status":    order.Status,
	})
}

func (h *Handler) respondOrderError(w http.ResponseWriter, buyerID, ref string, err error) {
	switch {
	case errors.Is(err, ErrOrderNotFound):
		utils.RespondWithErrorCode(w, http.StatusNotFound, "ENTITY_NOT_FOUND", "order not found")
	case errors.Is(err, ErrAmountMismatch):
		utils.RespondWithErrorCode(w, http.StatusBadRequest, "AMOUNT_MISMATCH", "amount does not match the order total")
	case errors.Is(err, ErrAlreadyCancelled):
		utils.RespondWithErrorCode(w, http.StatusConflict, "ALREADY_CANCELLED", "order is already cancelled")
	case errors.Is(err, ErrAlreadyPaid):
		utils.RespondWithErrorCode(w, http.StatusConflict, "ALREADY_PAID", "order is already paid")
	case errors.Is(err, ErrNotCancellable):
		utils.RespondWithErrorCode(w, http.StatusConflict, "NOT_CANCELLABLE", "order can no longer be cancelled")
	case errors.Is(err, ErrKeyConflict):
		utils.RespondWithErrorCode(w, http.StatusConflict, "IDEMPOTENCY_CONFLICT", "idempotency key was already used for another payment")
	case errors.Is(err, ErrPaymentDeclined):
		utils.RespondWithErrorCode(w, http.StatusPaymentRequired, "PAYMENT_DECLINED", "payment was declined; the order remains pending")
	case errors.Is(err, ErrPaymentBusy):
		http.Error(w, "please retry", http.StatusTooManyRequests)
	default:
		log.Printf("order error: buyerId=%s ref=%s err=%v", buyerID, ref, err)
		utils.RespondWithErrorCode(w, http.StatusInternalServerError, "BUSINESS_ERROR", "order operation failed")
	}
}

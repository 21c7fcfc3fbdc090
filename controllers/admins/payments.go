package admins

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"helpdesk/database"
	"helpdesk/models"
	paymentsvc "helpdesk/services/payment"
	"helpdesk/utils"

	"github.com/gorilla/mux"
)

// PaymentController serves the admin payment surface: listing, manual
// verification against bank mutations, and explicit status edits.
type PaymentController struct {
	Store        *paymentsvc.Store
	Reconciler   *paymentsvc.Reconciler
	Orchestrator *paymentsvc.Orchestrator
}

func NewPaymentController(store *paymentsvc.Store, rec *paymentsvc.Reconciler, orch *paymentsvc.Orchestrator) *PaymentController {
	return &PaymentController{Store: store, Reconciler: rec, Orchestrator: orch}
}

type PaymentResponse struct {
	ID            uint   `json:"id"`
	TicketID      uint   `json:"ticket_id"`
	OrderID       string `json:"order_id"`
	Provider      string `json:"provider"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	UniqueCode    string `json:"unique_code"`
	Status        string `json:"status"`
	ExpiredAt     string `json:"expired_at,omitempty"`
	CreatedAt     string `json:"created_at"`
	StatusHistory []models.StatusTransition `json:"status_history,omitempty"`
}

// GetPayments - paginated listing with status/ticket/date filters
func (c *PaymentController) GetPayments(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	ticketID := r.URL.Query().Get("ticketId")
	status := r.URL.Query().Get("status")
	startDate := r.URL.Query().Get("startDate")
	endDate := r.URL.Query().Get("endDate")

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	offset := (page - 1) * limit

	db := database.DB
	query := db.Model(&models.Payment{})

	if ticketID != "" {
		query = query.Where("ticket_id = ?", ticketID)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	jakartaLoc, _ := time.LoadLocation("Asia/Jakarta")
	if startDate != "" {
		if startTime, err := time.ParseInLocation("2006-01-02", startDate, jakartaLoc); err == nil {
			query = query.Where("created_at >= ?", startTime)
		}
	}
	if endDate != "" {
		if endTime, err := time.ParseInLocation("2006-01-02", endDate, jakartaLoc); err == nil {
			endTime = endTime.AddDate(0, 0, 1)
			query = query.Where("created_at < ?", endTime)
		}
	}

	var payments []models.Payment
	query.Offset(offset).
		Limit(limit).
		Order("created_at DESC").
		Find(&payments)

	response := make([]PaymentResponse, 0, len(payments))
	for i := range payments {
		p := payments[i]
		item := PaymentResponse{
			ID:            p.ID,
			TicketID:      p.TicketID,
			OrderID:       p.OrderID,
			Provider:      p.Provider,
			Amount:        p.Amount,
			Currency:      p.Currency,
			UniqueCode:    utils.GetStringValue(p.UniqueCode),
			Status:        p.Status,
			CreatedAt:     p.CreatedAt.Format(time.RFC3339),
			StatusHistory: p.Transitions(),
		}
		if p.ExpiredAt != nil {
			item.ExpiredAt = p.ExpiredAt.Format(time.RFC3339)
		}
		response = append(response, item)
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data:    response,
	})
}

type VerifyRequest struct {
	Amount     int64  `json:"amount"`
	UniqueCode string `json:"unique_code"`
	OrderID    string `json:"order_id"`
}

// VerifyPayment - resolve a bank mutation (amount + unique code, or an
// explicit order id) to exactly one pending payment. Read-only: the
// admin confirms the match before any status edit happens.
func (c *PaymentController) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{
			Success: false,
			Message: "Invalid JSON body",
		})
		return
	}

	match, err := paymentsvc.Resolve(r.Context(), c.Store, paymentsvc.VerifyQuery{
		Amount:     req.Amount,
		UniqueCode: req.UniqueCode,
		OrderID:    req.OrderID,
	})
	if err != nil {
		switch {
		case errors.Is(err, paymentsvc.ErrValidation):
			utils.WriteError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, paymentsvc.ErrNotFound):
			utils.WriteError(w, http.StatusNotFound, "Tidak ada pembayaran pending yang cocok")
		case errors.Is(err, paymentsvc.ErrAmbiguousMatch):
			// More than one candidate: the UI must ask for the order id
			// instead of this endpoint guessing.
			utils.WriteError(w, http.StatusConflict, "Lebih dari satu pembayaran cocok, masukkan order id")
		default:
			utils.WriteError(w, http.StatusInternalServerError, "Gagal mencari pembayaran")
		}
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data:    match,
	})
}

type StatusEditRequest struct {
	OrderID string `json:"order_id" validate:"required"`
	Status  string `json:"status" validate:"required,oneof=PENDING PAID REJECTED"`
	Notes   string `json:"notes"`
}

// UpdatePaymentStatus - explicit administrative status edit. The order
// id in the body must match the payment id in the path; a mismatch is
// rejected before anything is written.
func (c *PaymentController) UpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	paymentID, err := strconv.ParseUint(vars["id"], 10, 32)
	if err != nil || paymentID == 0 {
		utils.WriteError(w, http.StatusBadRequest, "Invalid payment id")
		return
	}

	var req StatusEditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	adminID64, _ := utils.GetUserID(r)
	adminID := int64(adminID64)

	res, err := c.Reconciler.ApplyAdminEdit(r.Context(), uint(paymentID), req.OrderID, req.Status, req.Notes, adminID)
	if err != nil {
		switch {
		case errors.Is(err, paymentsvc.ErrValidation):
			utils.WriteError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, paymentsvc.ErrNotFound):
			utils.WriteError(w, http.StatusNotFound, "Pembayaran tidak ditemukan")
		case errors.Is(err, paymentsvc.ErrIntegrityMismatch):
			utils.WriteError(w, http.StatusUnprocessableEntity, "Order id tidak sesuai dengan pembayaran")
		default:
			utils.WriteError(w, http.StatusInternalServerError, "Gagal memperbarui status pembayaran")
		}
		return
	}

	if res.NewlyPaid && c.Orchestrator != nil {
		result := *res
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			c.Orchestrator.Run(ctx, result)
		}()
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Status pembayaran berhasil diperbarui",
		Data: map[string]interface{}{
			"order_id":       res.Payment.OrderID,
			"payment_status": res.Payment.Status,
			"ticket_status":  res.Ticket.Status,
		},
	})
}

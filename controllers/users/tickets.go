package users

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"helpdesk/database"
	"helpdesk/models"
	"helpdesk/utils"

	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type attachmentInput struct {
	FileName  string `json:"file_name" validate:"required"`
	ObjectKey string `json:"object_key" validate:"required"`
	Size      int64  `json:"size"`
}

type createTicketRequest struct {
	Subject     string            `json:"subject" validate:"required"`
	Description string            `json:"description"`
	Attachments []attachmentInput `json:"attachments"`
}

// CreateTicket - POST /api/users/tickets
func CreateTicket(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}

	var req createTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ticket := models.Ticket{
		TicketNo:      utils.GenerateTicketNo(),
		CustomerID:    uid,
		Subject:       req.Subject,
		Description:   req.Description,
		Status:        models.TicketDraft,
		PaymentStatus: models.PaymentPending,
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&ticket).Error; err != nil {
			return err
		}
		for _, a := range req.Attachments {
			att := models.Attachment{
				TicketID:  ticket.ID,
				FileName:  a.FileName,
				ObjectKey: a.ObjectKey,
				Size:      a.Size,
			}
			if err := tx.Create(&att).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Gagal membuat tiket")
		return
	}

	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{
		Success: true,
		Message: "Tiket berhasil dibuat",
		Data:    ticket,
	})
}

type requestPaymentRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

// RequestPayment - POST /api/users/tickets/{id}/payments
//
// Creates the PENDING payment for a draft ticket. The amount the
// customer is asked to transfer carries a random three-digit suffix so
// concurrent tickets with the same base amount stay distinguishable at
// manual verification time.
func RequestPayment(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}

	vars := mux.Vars(r)
	ticketID, err := strconv.ParseUint(vars["id"], 10, 32)
	if err != nil || ticketID == 0 {
		utils.WriteError(w, http.StatusBadRequest, "Invalid ticket id")
		return
	}

	var req requestPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	db := database.DB
	var ticket models.Ticket
	if err := db.Where("id = ? AND customer_id = ?", ticketID, uid).First(&ticket).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Tiket tidak ditemukan")
		return
	}
	if ticket.Status != models.TicketDraft {
		utils.WriteError(w, http.StatusConflict, "Tiket sudah diproses")
		return
	}

	// Refuse a second live payment for the same ticket.
	var pendingCount int64
	db.Model(&models.Payment{}).
		Where("ticket_id = ? AND status = ?", ticket.ID, models.PaymentPending).
		Count(&pendingCount)
	if pendingCount > 0 {
		utils.WriteError(w, http.StatusConflict, "Masih ada pembayaran pending untuk tiket ini")
		return
	}

	code, total := utils.GenerateUniqueCode(req.Amount)
	expiredAt := time.Now().Add(24 * time.Hour)
	payment := models.Payment{
		TicketID:   ticket.ID,
		OrderID:    utils.GenerateOrderID(ticket.ID),
		Provider:   models.ProviderQRIS,
		Amount:     total,
		Currency:   "IDR",
		UniqueCode: &code,
		Status:     models.PaymentPending,
		ExpiredAt:  &expiredAt,
	}
	if err := db.Create(&payment).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Gagal membuat pembayaran")
		return
	}

	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{
		Success: true,
		Message: "Silakan transfer sesuai jumlah berikut",
		Data: map[string]interface{}{
			"order_id":    payment.OrderID,
			"amount":      payment.Amount,
			"unique_code": code,
			"expired_at":  expiredAt.Format(time.RFC3339),
		},
	})
}

// GetTickets - GET /api/users/tickets
func GetTickets(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = 10
	}

	db := database.DB
	countQuery := db.Model(&models.Ticket{}).Where("customer_id = ?", uid)
	if status := r.URL.Query().Get("status"); status != "" {
		countQuery = countQuery.Where("status = ?", status)
	}

	var totalRows int64
	if err := countQuery.Count(&totalRows).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}

	totalPages := int(math.Ceil(float64(totalRows) / float64(limit)))
	offset := (page - 1) * limit

	var tickets []models.Ticket
	query := db.Where("customer_id = ?", uid)
	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Order("id DESC").Limit(limit).Offset(offset).Find(&tickets).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data: map[string]interface{}{
			"data": tickets,
			"pagination": map[string]interface{}{
				"page":        page,
				"limit":       limit,
				"total_rows":  totalRows,
				"total_pages": totalPages,
			},
		},
	})
}

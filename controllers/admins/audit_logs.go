package admins

import (
	"net/http"
	"strconv"

	"helpdesk/database"
	"helpdesk/models"
	"helpdesk/utils"
)

// GetAuditLogs - paginated read of the append-only audit trail
func GetAuditLogs(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	ticketID := r.URL.Query().Get("ticketId")
	adminID := r.URL.Query().Get("adminId")

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	offset := (page - 1) * limit

	db := database.DB
	query := db.Model(&models.AuditLog{})
	if ticketID != "" {
		query = query.Where("ticket_id = ?", ticketID)
	}
	if adminID != "" {
		query = query.Where("admin_id = ?", adminID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}

	var logs []models.AuditLog
	if err := query.Order("id DESC").Limit(limit).Offset(offset).Find(&logs).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data: map[string]interface{}{
			"data": logs,
			"pagination": map[string]interface{}{
				"page":       page,
				"limit":      limit,
				"total_rows": total,
			},
		},
	})
}

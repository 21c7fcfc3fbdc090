package controllers

import (
	"net/http"
	"os"
	"time"

	paymentsvc "helpdesk/services/payment"
	"helpdesk/utils"
)

// CronController hosts scheduler-triggered maintenance endpoints,
// protected by the X-CRON-KEY header.
type CronController struct {
	Reconciler *paymentsvc.Reconciler
}

func NewCronController(rec *paymentsvc.Reconciler) *CronController {
	return &CronController{Reconciler: rec}
}

// ExpirePayments marks pending payments past their expiry window as
// EXPIRED through the normal reconciliation path.
func (c *CronController) ExpirePayments(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("X-CRON-KEY")
	if key == "" || key != os.Getenv("CRON_KEY") {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}

	n, err := c.Reconciler.ExpireStale(r.Context(), time.Now())
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{
			Success: false,
			Message: "Gagal menandai pembayaran kedaluwarsa",
		})
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data:    map[string]interface{}{"expired": n},
	})
}

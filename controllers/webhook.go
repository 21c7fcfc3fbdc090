package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	paymentsvc "helpdesk/services/payment"
	"helpdesk/utils"
)

// QRISCallbackController receives payment confirmations from the QRIS
// provider. The provider redelivers on anything but HTTP 200, so after
// the API key check every outcome, including internal errors, answers
// 200 with the result in the body.
type QRISCallbackController struct {
	Reconciler   *paymentsvc.Reconciler
	Orchestrator *paymentsvc.Orchestrator
}

func NewQRISCallbackController(rec *paymentsvc.Reconciler, orch *paymentsvc.Orchestrator) *QRISCallbackController {
	return &QRISCallbackController{Reconciler: rec, Orchestrator: orch}
}

type qrisCallback struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Amount  *int64 `json:"amount,omitempty"`
}

// HandleCallback - callback pembayaran QRIS dari provider
func (c *QRISCallbackController) HandleCallback(w http.ResponseWriter, r *http.Request) {
	if !c.verifyAPIKey(r) {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{
			Success: false,
			Message: "Unauthorized",
		})
		return
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		c.respond(w, false, "Invalid request body", nil)
		return
	}

	var callback qrisCallback
	if err := json.Unmarshal(raw, &callback); err != nil {
		c.respond(w, false, "Invalid request body", nil)
		return
	}

	res, err := c.Reconciler.ApplyWebhook(r.Context(), callback.OrderID, callback.Status, raw)
	if err != nil {
		// Still 200: a permanently failing order must not be retried forever.
		log.Printf("[webhook] order=%s status=%s err=%v", callback.OrderID, callback.Status, err)
		switch {
		case errors.Is(err, paymentsvc.ErrValidation):
			c.respond(w, false, "Missing order_id or status", nil)
		case errors.Is(err, paymentsvc.ErrNotFound):
			c.respond(w, false, "Pembayaran tidak ditemukan", map[string]interface{}{
				"order_id":  callback.OrderID,
				"processed": false,
			})
		default:
			c.respond(w, false, "Gagal memproses pembayaran", map[string]interface{}{
				"order_id":  callback.OrderID,
				"processed": false,
			})
		}
		return
	}

	if res.NewlyPaid && c.Orchestrator != nil {
		// The payment fact is committed; downstream provisioning runs on
		// its own clock and must not hold the webhook response.
		result := *res
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			c.Orchestrator.Run(ctx, result)
		}()
	}

	message := "Pembayaran berhasil diproses"
	if !res.Processed {
		message = "Status tidak dikenali, tidak ada perubahan"
	}
	c.respond(w, true, message, map[string]interface{}{
		"order_id":       res.Payment.OrderID,
		"payment_status": res.Payment.Status,
		"ticket_status":  res.Ticket.Status,
		"processed":      res.Processed,
	})
}

func (c *QRISCallbackController) respond(w http.ResponseWriter, success bool, message string, data map[string]interface{}) {
	resp := utils.APIResponse{Success: success, Message: message}
	if data != nil {
		resp.Data = data
	}
	utils.WriteJSON(w, http.StatusOK, resp)
}

// verifyAPIKey - verifikasi API key dari provider pembayaran
func (c *QRISCallbackController) verifyAPIKey(r *http.Request) bool {
	expectedAPIKey := os.Getenv("QRIS_CALLBACK_KEY")
	if expectedAPIKey == "" {
		return false
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return false
	}

	// Format: "Bearer {api_key}" atau langsung api_key
	token := authHeader
	if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		token = authHeader[7:]
	}

	return token == expectedAPIKey
}

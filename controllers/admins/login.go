package admins

import (
	"encoding/json"
	"fmt"
	"net/http"

	"helpdesk/middleware"
	"helpdesk/models"
	"helpdesk/utils"
)

type AuthController struct {
	Guard *middleware.LoginGuard
}

func NewAuthController(guard *middleware.LoginGuard) *AuthController {
	return &AuthController{Guard: guard}
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{
			Success: false,
			Message: "Invalid JSON body",
		})
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{
			Success: false,
			Message: err.Error(),
		})
		return
	}

	if locked, ttl := c.Guard.IsLocked(r.Context(), req.Username); locked {
		utils.WriteJSON(w, http.StatusTooManyRequests, utils.APIResponse{
			Success: false,
			Message: fmt.Sprintf("Terlalu banyak percobaan login, coba lagi dalam %d detik", int(ttl.Seconds())),
		})
		return
	}

	admin, err := models.GetAdminByUsername(req.Username)
	if err != nil || !admin.ValidatePassword(req.Password) {
		c.Guard.RecordFailure(r.Context(), req.Username)
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{
			Success: false,
			Message: "Username atau password salah",
		})
		return
	}
	c.Guard.Reset(r.Context(), req.Username)

	token, err := utils.GenerateJWT(admin.ID, admin.Username, "admin")
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{
			Success: false,
			Message: "Gagal membuat token",
		})
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Berhasil login",
		Data: map[string]interface{}{
			"token": token,
			"admin": admin,
		},
	})
}

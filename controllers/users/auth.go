package users

import (
	"encoding/json"
	"net/http"

	"helpdesk/database"
	"helpdesk/models"
	"helpdesk/utils"
)

type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Number   string `json:"number"`
	Password string `json:"password" validate:"required,min=8"`
}

// Register - POST /api/users/register
func Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	customer := models.Customer{
		Name:   req.Name,
		Email:  req.Email,
		Number: req.Number,
		Status: "Active",
	}
	if err := customer.HashPassword(req.Password); err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Gagal memproses password")
		return
	}
	if err := database.DB.Create(&customer).Error; err != nil {
		utils.WriteJSON(w, http.StatusConflict, utils.APIResponse{
			Success: false,
			Message: "Email sudah terdaftar",
		})
		return
	}

	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{
		Success: true,
		Message: "Registrasi berhasil",
		Data:    customer,
	})
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login - POST /api/users/login
func Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	customer, err := models.GetCustomerByEmail(req.Email)
	if err != nil || !customer.ValidatePassword(req.Password) {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{
			Success: false,
			Message: "Email atau password salah",
		})
		return
	}
	if customer.Status != "Active" {
		utils.WriteJSON(w, http.StatusForbidden, utils.APIResponse{
			Success: false,
			Message: "Akun anda tidak aktif",
		})
		return
	}

	token, err := utils.GenerateJWT(int64(customer.ID), customer.Email, "user")
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Gagal membuat token")
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Berhasil login",
		Data: map[string]interface{}{
			"token":    token,
			"customer": customer,
		},
	})
}

package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/mansatask/mansatask-api/services"
	"github.com/mansatask/mansatask-api/utils"
)

type AuthController struct {
	auth *services.AuthService
}

func NewAuthController(auth *services.AuthService) *AuthController {
	return &AuthController{auth: auth}
}

// Register creates a merchant account and signs it in
func (ctl *AuthController) Register(c *gin.Context) {
	utils.LogInfo("Register called")

	var req services.RegisterInput
	if !bindJSON(c, &req) {
		return
	}

	result, err := ctl.auth.Register(c.Request.Context(), req)
	if err != nil {
		utils.RespondWithError(c, err)
		return
	}
	utils.Created(c, "Registration successful", result)
}

func (ctl *AuthController) Login(c *gin.Context) {
	utils.LogInfo("Login called")

	var req services.LoginInput
	if !bindJSON(c, &req) {
		return
	}

	result, err := ctl.auth.Login(c.Request.Context(), req)
	if err != nil {
		utils.RespondWithError(c, err)
		return
	}
	utils.Success(c, "Login successful", result)
}

// Refresh exchanges a refresh token for a new pair; the old one stops working
func (ctl *AuthController) Refresh(c *gin.Context) {
	utils.LogInfo("Refresh called")

	var req services.RefreshInput
	if !bindJSON(c, &req) {
		return
	}

	result, err := ctl.auth.Refresh(c.Request.Context(), req)
	if err != nil {
		utils.RespondWithError(c, err)
		return
	}
	utils.Success(c, "Token refreshed", result)
}

func (ctl *AuthController) Logout(c *gin.Context) {
	utils.LogInfo("Logout called")

	var req services.RefreshInput
	if !bindJSON(c, &req) {
		return
	}

	if err := ctl.auth.Logout(c.Request.Context(), req); err != nil {
		utils.RespondWithError(c, err)
		return
	}
	utils.Success(c, "Logged out successfully", nil)
}

// ForgotPassword answers the same way whether or not the account exists
func (ctl *AuthController) ForgotPassword(c *gin.Context) {
	utils.LogInfo("ForgotPassword called")

	var req services.ForgotPasswordInput
	if !bindJSON(c, &req) {
		return
	}

	if err := ctl.auth.ForgotPassword(c.Request.Context(), req); err != nil {
		utils.RespondWithError(c, err)
		return
	}
	utils.Success(c, "If an account exists for this email, a reset link has been sent", nil)
}

func (ctl *AuthController) ResetPassword(c *gin.Context) {
	utils.LogInfo("ResetPassword called")

	var req services.ResetPasswordInput
	if !bindJSON(c, &req) {
		return
	}

	if err := ctl.auth.ResetPassword(c.Request.Context(), req); err != nil {
		utils.RespondWithError(c, err)
		return
	}
	utils.Success(c, "Password reset successfully", nil)
}

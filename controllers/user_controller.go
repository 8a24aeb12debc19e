package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/mansatask/mansatask-api/services"
	"github.com/mansatask/mansatask-api/utils"
)

type UserController struct {
	users *services.UserService
}

func NewUserController(users *services.UserService) *UserController {
	return &UserController{users: users}
}

// GetProfile returns the user's profile information
func (ctl *UserController) GetProfile(c *gin.Context) {
	utils.LogInfo("GetProfile called")

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	user, err := ctl.users.GetProfile(c.Request.Context(), userID)
	if err != nil {
		utils.RespondWithError(c, err)
		return
	}
	utils.Success(c, "Profile retrieved successfully", gin.H{"user": user})
}

// UpdateProfile applies the fields present in the body
func (ctl *UserController) UpdateProfile(c *gin.Context) {
	utils.LogInfo("UpdateProfile called")

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.UpdateProfileInput
	if !bindJSON(c, &req) {
		return
	}

	user, err := ctl.users.UpdateProfile(c.Request.Context(), userID, req)
	if err != nil {
		utils.RespondWithError(c, err)
		return
	}
	utils.Success(c, "Profile updated successfully", gin.H{"user": user})
}

func (ctl *UserController) ChangePassword(c *gin.Context) {
	utils.LogInfo("ChangePassword called")

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.ChangePasswordInput
	if !bindJSON(c, &req) {
		return
	}

	if err := ctl.users.ChangePassword(c.Request.Context(), userID, req); err != nil {
		utils.RespondWithError(c, err)
		return
	}
	utils.Success(c, "Password changed successfully", nil)
}

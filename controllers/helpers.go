package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mansatask/mansatask-api/middleware"
	"github.com/mansatask/mansatask-api/repository"
	"github.com/mansatask/mansatask-api/utils"
)

// currentUserID reads the authenticated user, answering 401 when missing
func currentUserID(c *gin.Context) (uint, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		utils.LogError("User not found in context")
		utils.Unauthorized(c, utils.ErrUnauthorized)
		return 0, false
	}
	return userID, true
}

// bindJSON binds the request body, answering 400 with the binding errors
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		utils.LogError("Invalid request format on %s: %v", c.FullPath(), err)
		utils.BadRequest(c, "Invalid request format", err.Error())
		return false
	}
	return true
}

// paramID parses a positive numeric path parameter
func paramID(c *gin.Context, name, label string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.LogError("Invalid %s: %s", label, c.Param(name))
		utils.BadRequest(c, "Invalid "+label, nil)
		return 0, false
	}
	return uint(id), true
}

func pageFrom(p *utils.Pagination) repository.Page {
	return repository.Page{Offset: p.Offset, Limit: p.Limit}
}

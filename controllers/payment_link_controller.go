package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mansatask/mansatask-api/services"
	"github.com/mansatask/mansatask-api/utils"
)

type PaymentLinkController struct {
	links *services.PaymentLinkService
}

func NewPaymentLinkController(links *services.PaymentLinkService) *PaymentLinkController {
	return &PaymentLinkController{links: links}
}

// List returns the merchant's links; ?status= filters on the display status
func (ctl *PaymentLinkController) List(c *gin.Context) {
	utils.LogInfo("ListPaymentLinks called")

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	pagination := utils.NewPagination(c)
	links, total, err := ctl.links.List(c.Request.Context(), userID, c.Query("status"), pageFrom(pagination))
	if err != nil {
		utils.RespondWithError(c, err)
		return
	}

	pagination.SetTotal(total)
	pagination.Respond(c, "Payment links retrieved successfully", gin.H{"payment_links": links})
}

func (ctl *PaymentLinkController) Create(c *gin.Context) {
	utils.LogInfo("CreatePaymentLink called")

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.CreatePaymentLinkInput
	if !bindJSON(c, &req) {
		return
	}

	link, err := ctl.links.Create(c.Request.Context(), userID, req)
	if err != nil {
		utils.RespondWithError(c, err)
		return
	}
	utils.Created(c, "Payment link created successfully", gin.H{"payment_link": link})
}

func (ctl *PaymentLinkController) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "payment link ID")
	if !ok {
		return
	}

	link, err := ctl.links.Get(c.Request.Context(), userID, id)
	if err != nil {
		utils.RespondWithError(c, err)
		return
	}
	utils.Success(c, "Payment link retrieved successfully", gin.H{"payment_link": link})
}

func (ctl *PaymentLinkController) Update(c *gin.Context) {
	utils.LogInfo("UpdatePaymentLink called")

	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "payment link ID")
	if !ok {
		return
	}

	var req services.UpdatePaymentLinkInput
	if !bindJSON(c, &req) {
		return
	}

	link, err := ctl.links.Update(c.Request.Context(), userID, id, req)
	if err != nil {
		utils.RespondWithError(c, err)
		return
	}
	utils.Success(c, "Payment link updated successfully", gin.H{"payment_link": link})
}

func (ctl *PaymentLinkController) Delete(c *gin.Context) {
	utils.LogInfo("DeletePaymentLink called")

	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "payment link ID")
	if !ok {
		return
	}

	if err := ctl.links.Delete(c.Request.Context(), userID, id); err != nil {
		utils.RespondWithError(c, err)
		return
	}
	utils.Success(c, "Payment link deleted successfully", nil)
}

func (ctl *PaymentLinkController) QRCode(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "payment link ID")
	if !ok {
		return
	}

	png, err := ctl.links.QRCode(c.Request.Context(), userID, id)
	if err != nil {
		utils.RespondWithError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// GetPublic serves the customer payment page data; no authentication
func (ctl *PaymentLinkController) GetPublic(c *gin.Context) {
	link, err := ctl.links.GetPublic(c.Request.Context(), c.Param("slug"))
	if err != nil {
		utils.RespondWithError(c, err)
		return
	}
	utils.Success(c, "Payment link retrieved successfully", gin.H{"payment_link": link})
}

func (ctl *PaymentLinkController) PublicQRCode(c *gin.Context) {
	png, err := ctl.links.PublicQRCode(c.Request.Context(), c.Param("slug"))
	if err != nil {
		utils.RespondWithError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// ExpireLinks deactivates every link whose expiry passed (admin only)
func (ctl *PaymentLinkController) ExpireLinks(c *gin.Context) {
	utils.LogInfo("ExpireLinks called")

	count, err := ctl.links.ExpireLinks(c.Request.Context())
	if err != nil {
		utils.RespondWithError(c, err)
		return
	}
	utils.Success(c, "Expired payment links deactivated", gin.H{"deactivated": count})
}
